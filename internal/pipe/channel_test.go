package pipe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vburojevic/eruption-sensor/internal/loop"
)

type fakeWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	writes int
	fail   bool
	closed bool
}

func (w *fakeWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail || w.closed {
		return 0, errors.New("broken pipe")
	}
	w.writes++
	return w.buf.Write(p)
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) setFail() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fail = true
}

func (w *fakeWriter) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *fakeWriter) writeCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

type openResult struct {
	w   io.WriteCloser
	err error
}

// fakeOpener blocks each Open until the test supplies a result. It ignores
// ctx so tests control exactly when a completion is produced.
type fakeOpener struct {
	mu      sync.Mutex
	calls   int
	results chan openResult
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{results: make(chan openResult, 8)}
}

func (f *fakeOpener) Open(ctx context.Context, path string) (io.WriteCloser, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	r := <-f.results
	return r.w, r.err
}

func (f *fakeOpener) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type transitionLog struct {
	steps []string
}

func (l *transitionLog) record(from, to State) {
	l.steps = append(l.steps, from.String()+"->"+to.String())
}

func newTestChannel(t *testing.T) (*Channel, *loop.Loop, *fakeOpener, *transitionLog) {
	t.Helper()
	l := loop.New(nil)
	opener := newFakeOpener()
	log := &transitionLog{}
	ch := NewChannel(Options{
		Path:         "/run/user/1000/eruption-sensor",
		Opener:       opener,
		Loop:         l,
		OnTransition: log.record,
	})
	t.Cleanup(func() {
		ch.Release()
		close(opener.results)
	})
	return ch, l, opener, log
}

func waitForState(t *testing.T, ch *Channel, l *loop.Loop, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		l.RunPending()
		return ch.State() == want
	}, 2*time.Second, 5*time.Millisecond, "channel never reached %s", want)
}

func TestEnsureOpenIsSingleFlight(t *testing.T) {
	ch, l, opener, _ := newTestChannel(t)

	ch.EnsureOpen()
	ch.EnsureOpen()
	assert.Equal(t, Opening, ch.State())
	assert.False(t, ch.TryWrite([]byte("x\n")), "write while opening must fail")
	assert.Equal(t, Opening, ch.State())

	w := &fakeWriter{}
	opener.results <- openResult{w: w}
	waitForState(t, ch, l, Open)

	assert.Equal(t, 1, opener.callCount())
	assert.Equal(t, 0, w.writeCount())
}

func TestOpenFailureReturnsToClosed(t *testing.T) {
	ch, l, opener, log := newTestChannel(t)

	ch.EnsureOpen()
	opener.results <- openResult{err: errors.New("no such file or directory")}
	waitForState(t, ch, l, Closed)
	assert.Equal(t, []string{"closed->opening", "opening->closed"}, log.steps)

	// Every send attempt requests a fresh open.
	assert.False(t, ch.TryWrite([]byte("x\n")))
	assert.Equal(t, Opening, ch.State())
	require.Eventually(t, func() bool { return opener.callCount() == 2 }, time.Second, 5*time.Millisecond)
}

func TestWriteWhenOpen(t *testing.T) {
	ch, l, opener, _ := newTestChannel(t)

	w := &fakeWriter{}
	ch.EnsureOpen()
	opener.results <- openResult{w: w}
	waitForState(t, ch, l, Open)

	require.True(t, ch.TryWrite([]byte("a\n")))
	require.True(t, ch.TryWrite([]byte("b\n")))
	assert.Equal(t, "a\nb\n", w.buf.String())
	assert.Equal(t, Open, ch.State())
}

func TestWriteFailureSelfHeals(t *testing.T) {
	ch, l, opener, log := newTestChannel(t)

	first := &fakeWriter{}
	ch.EnsureOpen()
	opener.results <- openResult{w: first}
	waitForState(t, ch, l, Open)

	first.setFail()
	log.steps = nil
	assert.False(t, ch.TryWrite([]byte("lost\n")))
	assert.True(t, first.isClosed(), "failed handle must be discarded")
	assert.Equal(t, []string{"open->faulted", "faulted->closed", "closed->opening"}, log.steps)
	assert.Equal(t, Opening, ch.State())

	second := &fakeWriter{}
	opener.results <- openResult{w: second}
	waitForState(t, ch, l, Open)

	require.True(t, ch.TryWrite([]byte("next\n")))
	assert.Equal(t, 1, second.writeCount())
	assert.Equal(t, "next\n", second.buf.String())
	assert.Equal(t, 2, opener.callCount())
}

func TestReleaseDiscardsPendingOpen(t *testing.T) {
	ch, l, opener, _ := newTestChannel(t)

	ch.EnsureOpen()
	ch.Release()
	assert.Equal(t, Closed, ch.State())

	late := &fakeWriter{}
	opener.results <- openResult{w: late}
	require.Eventually(t, func() bool {
		l.RunPending()
		return late.isClosed()
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, Closed, ch.State())
	assert.False(t, ch.TryWrite([]byte("x\n")))
	assert.ErrorIs(t, ch.Write([]byte("x\n")), ErrReleased)
	assert.Equal(t, 0, late.writeCount())
	assert.Equal(t, 1, opener.callCount(), "released channel must not reopen")
}

func TestCompletionAfterLoopStopIsClosed(t *testing.T) {
	l := loop.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, l.Run(ctx))

	opener := newFakeOpener()
	ch := NewChannel(Options{Path: "p", Opener: opener, Loop: l})
	ch.EnsureOpen()

	w := &fakeWriter{}
	opener.results <- openResult{w: w}
	require.Eventually(t, w.isClosed, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, Opening, ch.State())
}

func TestReleaseClosesOpenHandle(t *testing.T) {
	ch, l, opener, _ := newTestChannel(t)

	w := &fakeWriter{}
	ch.EnsureOpen()
	opener.results <- openResult{w: w}
	waitForState(t, ch, l, Open)

	ch.Release()
	ch.Release()
	assert.True(t, w.isClosed())
	assert.Equal(t, Closed, ch.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "opening", Opening.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "faulted", Faulted.String())
	assert.Equal(t, "unknown", State(42).String())
}
