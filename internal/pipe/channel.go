// Package pipe owns the write end of the named pipe read by the consumer.
//
// A Channel is confined to the sensor loop: every method must be called
// from the loop goroutine. Opening the pipe may block until the consumer
// attaches, so it runs on its own goroutine and posts the result back to
// the loop. Writes are synchronous.
package pipe

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
)

// State is the lifecycle state of a Channel.
type State int

const (
	Closed State = iota
	Opening
	Open
	Faulted
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Opening:
		return "opening"
	case Open:
		return "open"
	case Faulted:
		return "faulted"
	}
	return "unknown"
}

var (
	// ErrNotOpen is returned by Write when the channel has no live handle.
	ErrNotOpen = errors.New("pipe channel is not open")
	// ErrReleased is returned by Write after Release.
	ErrReleased = errors.New("pipe channel released")
)

// Opener produces a write handle for path. Implementations may block until
// the handle is available and must return when ctx is cancelled.
type Opener interface {
	Open(ctx context.Context, path string) (io.WriteCloser, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, path string) (io.WriteCloser, error)

// Open calls f(ctx, path).
func (f OpenerFunc) Open(ctx context.Context, path string) (io.WriteCloser, error) {
	return f(ctx, path)
}

// Poster schedules work on the goroutine that owns the channel.
type Poster interface {
	Post(fn func()) bool
}

// Options configures a Channel.
type Options struct {
	Path   string
	Opener Opener
	Loop   Poster
	Logger *zap.Logger

	// OnTransition, if set, is called on the loop after every state change.
	OnTransition func(from, to State)
}

// Channel is a self-healing write endpoint to a fixed path.
type Channel struct {
	path         string
	opener       Opener
	loop         Poster
	logger       *zap.Logger
	onTransition func(from, to State)

	state    State
	w        io.WriteCloser
	gen      uint64 // identifies the open attempt whose completion is accepted
	released bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewChannel creates a channel in the Closed state. Nothing is opened
// until EnsureOpen or TryWrite is called.
func NewChannel(opts Options) *Channel {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Channel{
		path:         opts.Path,
		opener:       opts.Opener,
		loop:         opts.Loop,
		logger:       logger,
		onTransition: opts.OnTransition,
		state:        Closed,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Path returns the pipe path.
func (c *Channel) Path() string { return c.path }

// State returns the current state.
func (c *Channel) State() State { return c.state }

// EnsureOpen starts an asynchronous open unless the channel is already
// Open or an open is in flight. It never blocks.
func (c *Channel) EnsureOpen() {
	if c.released || c.state == Open || c.state == Opening {
		return
	}

	c.gen++
	gen := c.gen
	c.setState(Opening)

	ctx := c.ctx
	go func() {
		w, err := c.opener.Open(ctx, c.path)
		posted := c.loop.Post(func() { c.opened(gen, w, err) })
		if !posted && w != nil {
			// The loop is gone; nobody will ever own this handle.
			_ = w.Close()
		}
	}()
}

// opened completes the open attempt identified by gen.
func (c *Channel) opened(gen uint64, w io.WriteCloser, err error) {
	if c.released || gen != c.gen || c.state != Opening {
		if w != nil {
			_ = w.Close()
		}
		c.logger.Debug("discarding stale pipe open result", zap.Uint64("generation", gen))
		return
	}

	if err == nil && w == nil {
		err = errors.New("opener returned no handle")
	}
	if err != nil {
		c.logger.Debug("sensor pipe is not available", zap.String("path", c.path), zap.Error(err))
		c.setState(Closed)
		return
	}

	c.w = w
	c.setState(Open)
	c.logger.Info("sensor pipe has been opened", zap.String("path", c.path))
}

// TryWrite writes b if the channel is Open and reports whether the write
// succeeded. A failed write discards the handle and starts a reopen; when
// the channel is not Open an open is requested and false is returned.
func (c *Channel) TryWrite(b []byte) bool {
	return c.Write(b) == nil
}

// Write is TryWrite with the failure reason.
func (c *Channel) Write(b []byte) error {
	if c.released {
		return ErrReleased
	}
	if c.state != Open {
		c.EnsureOpen()
		return ErrNotOpen
	}

	if _, err := c.w.Write(b); err != nil {
		c.logger.Debug("sensor pipe was closed", zap.String("path", c.path), zap.Error(err))
		c.fault()
		c.EnsureOpen()
		return err
	}
	return nil
}

// fault drops the current handle: Open -> Faulted -> Closed.
func (c *Channel) fault() {
	c.setState(Faulted)
	if c.w != nil {
		_ = c.w.Close()
		c.w = nil
	}
	c.setState(Closed)
}

// Release closes the handle and cancels any open in flight. A completion
// arriving afterwards is discarded. The channel cannot be reused.
func (c *Channel) Release() {
	if c.released {
		return
	}
	c.released = true
	c.cancel()
	if c.w != nil {
		_ = c.w.Close()
		c.w = nil
	}
	if c.state != Closed {
		c.setState(Closed)
	}
}

func (c *Channel) setState(s State) {
	from := c.state
	if from == s {
		return
	}
	c.state = s
	if c.onTransition != nil {
		c.onTransition(from, s)
	}
}
