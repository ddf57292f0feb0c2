// Package tui is the interactive viewer for records read from the sensor pipe.
package tui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vburojevic/eruption-sensor/internal/domain"
)

// DefaultCapacity is how many records are kept on screen.
const DefaultCapacity = 200

// Record is one focus record as received by the viewer.
type Record struct {
	Event    domain.FocusEvent
	Sequence int
	At       time.Time
}

type recordMsg Record

type errMsg struct{ err error }

type streamClosedMsg struct{}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Padding(0, 1)
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

// Model is the bubbletea model of the viewer.
type Model struct {
	pipePath string
	records  <-chan Record
	errs     <-chan error
	capacity int

	table   table.Model
	history []Record // most recent first
	total   int
	paused  bool
	closed  bool
	lastErr error
	width   int
}

// New creates a viewer fed by records and errs. capacity <= 0 uses
// DefaultCapacity.
func New(pipePath string, records <-chan Record, errs <-chan error, capacity int) Model {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	t.SetStyles(styles)

	return Model{
		pipePath: pipePath,
		records:  records,
		errs:     errs,
		capacity: capacity,
		table:    t,
		width:    80,
	}
}

func columns(width int) []table.Column {
	const seqWidth, timeWidth = 6, 12
	rest := width - seqWidth - timeWidth - 8
	if rest < 20 {
		rest = 20
	}
	titleWidth := rest * 2 / 3
	return []table.Column{
		{Title: "#", Width: seqWidth},
		{Title: "Time", Width: timeWidth},
		{Title: "Window title", Width: titleWidth},
		{Title: "Window class", Width: rest - titleWidth},
	}
}

func waitForRecord(ch <-chan Record) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return recordMsg(r)
	}
}

func waitForErr(ch <-chan error) tea.Cmd {
	return func() tea.Msg {
		err, ok := <-ch
		if !ok {
			return nil
		}
		return errMsg{err: err}
	}
}

// Init starts listening on both channels.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForRecord(m.records), waitForErr(m.errs))
}

// Update handles keys, resizes and incoming records.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "p", " ":
			m.paused = !m.paused
			return m, nil
		case "c":
			m.history = nil
			m.table.SetRows(nil)
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetColumns(columns(msg.Width))
		m.table.SetWidth(msg.Width)
		if h := msg.Height - 4; h > 1 {
			m.table.SetHeight(h)
		}
		return m, nil

	case recordMsg:
		m.total++
		if !m.paused {
			m.push(Record(msg))
		}
		return m, waitForRecord(m.records)

	case errMsg:
		m.lastErr = msg.err
		return m, waitForErr(m.errs)

	case streamClosedMsg:
		m.closed = true
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) push(r Record) {
	m.history = append([]Record{r}, m.history...)
	if len(m.history) > m.capacity {
		m.history = m.history[:m.capacity]
	}
	m.table.SetRows(rows(m.history))
}

func rows(history []Record) []table.Row {
	out := make([]table.Row, 0, len(history))
	for _, r := range history {
		title := r.Event.WindowTitle
		if r.Event.Empty() {
			title = "(nothing focused)"
		}
		out = append(out, table.Row{
			strconv.Itoa(r.Sequence),
			r.At.Local().Format("15:04:05.000"),
			title,
			r.Event.WindowClass,
		})
	}
	return out
}

// Records returns the records currently shown, most recent first.
func (m Model) Records() []Record { return m.history }

// Paused reports whether new records are being ignored.
func (m Model) Paused() bool { return m.paused }

// View renders the viewer.
func (m Model) View() string {
	header := headerStyle.Render("eruption-sensor · " + m.pipePath)

	status := fmt.Sprintf("%d received · %d shown · q quit · p pause · c clear", m.total, len(m.history))
	if m.paused {
		status = pausedStyle.Render("PAUSED") + " " + status
	}
	if m.closed {
		status += " · pipe closed"
	}
	footer := statusStyle.Render(status)
	if m.lastErr != nil {
		footer += "\n" + errorStyle.Render("error: "+m.lastErr.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, m.table.View(), footer)
}
