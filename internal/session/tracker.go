package session

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/vburojevic/eruption-sensor/internal/domain"
)

// Tracker numbers sensor activations (enable -> disable) and counts what
// happened to the events handled during each one.
type Tracker struct {
	mu            sync.Mutex
	clock         clock.Clock
	current       int
	start         time.Time
	active        bool
	notifications int
	delivered     int
	suppressed    int
	dropped       int
}

// NewTracker creates a new activation tracker. A nil clock uses wall time.
func NewTracker(clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.New()
	}
	return &Tracker{clock: clk}
}

// Begin starts a new activation. Calling Begin while an activation is
// active ends the previous one first.
func (t *Tracker) Begin(pipePath string, sources []string) *domain.ActivationStart {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current++
	t.active = true
	t.start = t.clock.Now()
	t.notifications, t.delivered, t.suppressed, t.dropped = 0, 0, 0, 0

	return domain.NewActivationStart(t.current, pipePath, sources, t.start)
}

// Notification counts one source notification.
func (t *Tracker) Notification() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		t.notifications++
	}
}

// Record counts the outcome of one delivery attempt.
func (t *Tracker) Record(outcome domain.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}
	switch outcome {
	case domain.OutcomeDelivered:
		t.delivered++
	case domain.OutcomeSuppressed:
		t.suppressed++
	case domain.OutcomeDropped:
		t.dropped++
	}
}

// End closes the current activation and returns its summary, or nil when
// no activation is active.
func (t *Tracker) End() *domain.ActivationEnd {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return nil
	}
	t.active = false
	return domain.NewActivationEnd(t.current, t.summaryLocked())
}

// Current returns the current activation number (0 before the first Begin).
func (t *Tracker) Current() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Summary returns statistics for the current activation so far.
func (t *Tracker) Summary() domain.ActivationSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summaryLocked()
}

func (t *Tracker) summaryLocked() domain.ActivationSummary {
	return domain.ActivationSummary{
		Notifications:   t.notifications,
		Delivered:       t.delivered,
		Suppressed:      t.suppressed,
		Dropped:         t.dropped,
		DurationSeconds: int(t.clock.Since(t.start).Seconds()),
	}
}
