package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/eruption-sensor/internal/domain"
)

func record(seq int, title, class string) recordMsg {
	return recordMsg{
		Event:    domain.FocusEvent{WindowTitle: title, WindowClass: class},
		Sequence: seq,
		At:       time.Unix(0, 0),
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRecordsAreShownMostRecentFirst(t *testing.T) {
	m := New("/run/user/1000/eruption-sensor", make(chan Record), make(chan error), 2)

	var cmd tea.Cmd
	m, cmd = update(t, m, record(1, "Firefox", "firefox"))
	assert.NotNil(t, cmd, "must keep waiting for records")
	m, _ = update(t, m, record(2, "Terminal", "gnome-terminal"))
	m, _ = update(t, m, record(3, "", ""))

	got := m.Records()
	require.Len(t, got, 2, "capacity bounds the history")
	assert.Equal(t, 3, got[0].Sequence)
	assert.Equal(t, "Terminal", got[1].Event.WindowTitle)

	view := m.View()
	assert.Contains(t, view, "(nothing focused)")
	assert.Contains(t, view, "3 received")
}

func TestPauseAndClear(t *testing.T) {
	m := New("p", make(chan Record), make(chan error), 0)

	m, _ = update(t, m, key("p"))
	assert.True(t, m.Paused())
	m, _ = update(t, m, record(1, "Firefox", "firefox"))
	assert.Empty(t, m.Records())
	assert.Contains(t, m.View(), "PAUSED")

	m, _ = update(t, m, key("p"))
	m, _ = update(t, m, record(2, "Firefox", "firefox"))
	assert.Len(t, m.Records(), 1)

	m, _ = update(t, m, key("c"))
	assert.Empty(t, m.Records())
}

func TestQuitKey(t *testing.T) {
	m := New("p", make(chan Record), make(chan error), 0)
	_, cmd := update(t, m, key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestErrorsAndClosedStream(t *testing.T) {
	records := make(chan Record)
	close(records)
	m := New("p", records, make(chan error), 0)

	msg := waitForRecord(records)()
	assert.IsType(t, streamClosedMsg{}, msg)
	m, _ = update(t, m, msg)
	m, _ = update(t, m, errMsg{err: errors.New("read failed")})

	view := m.View()
	assert.Contains(t, view, "pipe closed")
	assert.Contains(t, view, "error: read failed")
}

func TestWindowResize(t *testing.T) {
	m := New("p", make(chan Record), make(chan error), 0)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = update(t, m, record(1, strings.Repeat("x", 30), "c"))
	assert.Contains(t, m.View(), strings.Repeat("x", 30))
}
