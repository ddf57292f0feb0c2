package sensor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/vburojevic/eruption-sensor/internal/source"
)

type fakeWindow struct {
	title string
	class string
	err   error
}

func (w *fakeWindow) Title() (string, error)   { return w.title, w.err }
func (w *fakeWindow) WMClass() (string, error) { return w.class, w.err }

type fakeApp struct {
	windows []source.Window
	err     error
}

func (a *fakeApp) Windows() ([]source.Window, error) { return a.windows, a.err }

func appWith(title, class string) *fakeApp {
	return &fakeApp{windows: []source.Window{&fakeWindow{title: title, class: class}}}
}

type fakeTracker struct {
	mu           sync.Mutex
	app          source.App
	err          error
	subscribeErr error
	next         int
	subs         map[int]func()
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{subs: make(map[int]func())}
}

func (f *fakeTracker) FocusApp() (source.App, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.app, f.err
}

func (f *fakeTracker) focus(app source.App) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.app = app
}

func (f *fakeTracker) Subscribe(fn func()) (source.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.next++
	id := f.next
	f.subs[id] = fn
	return source.SubscriptionFunc(func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
		return nil
	}), nil
}

func (f *fakeTracker) emit() {
	f.mu.Lock()
	fns := make([]func(), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (f *fakeTracker) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

type fakeAccessible struct {
	name        string
	description string
	err         error
}

func (a *fakeAccessible) Name() (string, error)        { return a.name, a.err }
func (a *fakeAccessible) Description() (string, error) { return a.description, a.err }

type fakeBus struct {
	mu           sync.Mutex
	subscribeErr error
	next         int
	subs         map[int]func(source.Accessible)
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: make(map[int]func(source.Accessible))}
}

func (b *fakeBus) SubscribeFocus(fn func(source.Accessible)) (source.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribeErr != nil {
		return nil, b.subscribeErr
	}
	b.next++
	id := b.next
	b.subs[id] = fn
	return source.SubscriptionFunc(func() error {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
		return nil
	}), nil
}

func (b *fakeBus) emit(obj source.Accessible) {
	b.mu.Lock()
	fns := make([]func(source.Accessible), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(obj)
	}
}

func (b *fakeBus) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

type recordingWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	writes int
	fail   bool
	closed bool
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail || w.closed {
		return 0, errors.New("broken pipe")
	}
	w.writes++
	return w.buf.Write(p)
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *recordingWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func (w *recordingWriter) writeCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

func (w *recordingWriter) setFail() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fail = true
}

func (w *recordingWriter) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

type openResult struct {
	w   io.WriteCloser
	err error
}

// queuedOpener hands out results pushed by the test, one per Open call.
type queuedOpener struct {
	mu      sync.Mutex
	calls   int
	results chan openResult
}

func newQueuedOpener() *queuedOpener {
	return &queuedOpener{results: make(chan openResult, 8)}
}

func (o *queuedOpener) Open(ctx context.Context, path string) (io.WriteCloser, error) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()
	r, ok := <-o.results
	if !ok {
		return nil, errors.New("opener shut down")
	}
	return r.w, r.err
}

func (o *queuedOpener) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// stubTracker is a WindowTracker used only for normalization tests.
type stubTracker struct {
	app source.App
	err error
}

func (s *stubTracker) FocusApp() (source.App, error) { return s.app, s.err }

func (s *stubTracker) Subscribe(fn func()) (source.Subscription, error) {
	return source.SubscriptionFunc(func() error { return nil }), nil
}
