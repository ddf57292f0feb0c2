// Package loop runs all sensor work on a single goroutine.
//
// Event sources and asynchronous completions never touch sensor state
// directly; they Post a task and the loop executes tasks one at a time in
// the order they were posted.
package loop

import (
	"context"

	"go.uber.org/zap"
)

// DefaultQueueSize is the number of tasks that can be pending before Post blocks.
const DefaultQueueSize = 64

// Loop is a single-threaded task queue.
type Loop struct {
	queue  chan func()
	done   chan struct{}
	logger *zap.Logger
}

// New creates a loop. A nil logger disables logging.
func New(logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		queue:  make(chan func(), DefaultQueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Post enqueues fn for execution on the loop. It blocks while the queue is
// full and returns false once the loop has stopped, in which case fn will
// never run.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run executes posted tasks until ctx is cancelled. Tasks still queued
// when Run returns are discarded and later Posts are rejected.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.queue:
			l.exec(fn)
		}
	}
}

// RunPending executes tasks already queued without waiting for new ones
// and returns how many ran. It must not be called while Run is active.
func (l *Loop) RunPending() int {
	n := 0
	for {
		select {
		case fn := <-l.queue:
			l.exec(fn)
			n++
		default:
			return n
		}
	}
}

// Stopped reports whether Run has returned.
func (l *Loop) Stopped() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// exec runs one task; a panicking task is logged and does not stop the loop.
func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("recovered panic in loop task", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn()
}
