// Package sensor forwards focused-window changes from the desktop's
// window tracker and accessibility bus to the sensor pipe.
//
// All sensor state lives on the loop goroutine. Source callbacks and the
// pipe watcher only post work to the loop.
package sensor

import (
	"go.uber.org/zap"

	"github.com/vburojevic/eruption-sensor/internal/domain"
	"github.com/vburojevic/eruption-sensor/internal/pipe"
	"github.com/vburojevic/eruption-sensor/internal/session"
	"github.com/vburojevic/eruption-sensor/internal/source"
)

// Source names reported in activation records.
const (
	SourceWindowTracker = "window-tracker"
	SourceAccessibility = "accessibility"
)

// Loop runs sensor work on a single goroutine.
type Loop interface {
	Post(fn func()) bool
}

// RecordWriter receives activation_start and activation_end records.
type RecordWriter interface {
	WriteRecord(v interface{}) error
}

// Options configures a Sensor. Nil sources are skipped.
type Options struct {
	Loop          Loop
	PipePath      string
	Opener        pipe.Opener
	WatchPipe     bool
	Tracker       source.WindowTracker
	Accessibility source.AccessibilityBus
	Activations   *session.Tracker
	Records       RecordWriter
	Logger        *zap.Logger

	// OnEvent, if set, is called on the loop for every handled event.
	OnEvent func(event domain.FocusEvent, outcome domain.Outcome)
}

// Sensor is the host-facing lifecycle. Enable, Disable and Reload must
// be called on the loop.
type Sensor struct {
	opts        Options
	logger      *zap.Logger
	activations *session.Tracker
	normalizer  *Normalizer

	enabled bool
	gen     uint64 // activation generation; stale notifications are dropped
	channel *pipe.Channel
	sink    *Sink
	subs    []source.Subscription
	watcher *pipe.Watcher
}

// New creates a disabled sensor.
func New(opts Options) *Sensor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Opener == nil {
		opts.Opener = &pipe.FIFOOpener{}
	}
	activations := opts.Activations
	if activations == nil {
		activations = session.NewTracker(nil)
	}
	return &Sensor{
		opts:        opts,
		logger:      logger,
		activations: activations,
		normalizer:  NewNormalizer(opts.Tracker, logger.Named("normalize")),
	}
}

// Enabled reports whether the sensor is active.
func (s *Sensor) Enabled() bool { return s.enabled }

// ChannelState returns the pipe channel state, Closed while disabled.
func (s *Sensor) ChannelState() pipe.State {
	if s.channel == nil {
		return pipe.Closed
	}
	return s.channel.State()
}

// LastDelivered returns the last event written in the current activation.
func (s *Sensor) LastDelivered() (domain.FocusEvent, bool) {
	if s.sink == nil {
		return domain.FocusEvent{}, false
	}
	return s.sink.LastDelivered()
}

// Enable opens the pipe and subscribes to both sources. Calling it while
// enabled does nothing. Subscription failures are logged; the sensor runs
// with whatever sources could be attached.
func (s *Sensor) Enable() {
	if s.enabled {
		return
	}
	s.enabled = true
	s.gen++
	gen := s.gen

	s.channel = pipe.NewChannel(pipe.Options{
		Path:         s.opts.PipePath,
		Opener:       s.opts.Opener,
		Loop:         s.opts.Loop,
		Logger:       s.logger.Named("pipe"),
		OnTransition: s.logTransition,
	})
	s.sink = NewSink(s.channel, s.logger.Named("sink"))

	var sources []string
	if s.opts.Tracker != nil {
		sub, err := s.opts.Tracker.Subscribe(func() {
			s.opts.Loop.Post(func() { s.onFocusAppChanged(gen) })
		})
		if err != nil {
			s.logger.Warn("could not subscribe to window tracker", zap.Error(err))
		} else {
			s.subs = append(s.subs, sub)
			sources = append(sources, SourceWindowTracker)
		}
	}
	if s.opts.Accessibility != nil {
		sub, err := s.opts.Accessibility.SubscribeFocus(func(obj source.Accessible) {
			s.opts.Loop.Post(func() { s.onObjectFocused(gen, obj) })
		})
		if err != nil {
			s.logger.Warn("could not subscribe to accessibility events", zap.Error(err))
		} else {
			s.subs = append(s.subs, sub)
			sources = append(sources, SourceAccessibility)
		}
	}

	if s.opts.WatchPipe {
		// The watcher goroutine must never block on the loop: Disable
		// waits for it while running on the loop.
		w, err := pipe.NewWatcher(s.opts.PipePath, func() {
			go s.opts.Loop.Post(func() { s.onPipeAppeared(gen) })
		}, s.logger.Named("watch"))
		if err != nil {
			s.logger.Warn("could not watch sensor pipe directory", zap.Error(err))
		} else {
			s.watcher = w
		}
	}

	start := s.activations.Begin(s.opts.PipePath, sources)
	s.logger.Info("sensor enabled",
		zap.Int("activation", start.Activation),
		zap.String("pipe_path", start.PipePath),
		zap.Strings("sources", start.Sources))
	s.writeRecord(start)

	s.channel.EnsureOpen()
}

// Disable unsubscribes from both sources and releases the pipe. Calling
// it while disabled does nothing. Completions and notifications that
// arrive afterwards are ignored.
func (s *Sensor) Disable() {
	if !s.enabled {
		return
	}
	s.enabled = false

	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn("unsubscribe failed", zap.Error(err))
		}
	}
	s.subs = nil

	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			s.logger.Debug("closing pipe watcher", zap.Error(err))
		}
		s.watcher = nil
	}

	s.channel.Release()
	s.channel = nil
	s.sink = nil

	if end := s.activations.End(); end != nil {
		s.logger.Info("sensor disabled",
			zap.Int("activation", end.Activation),
			zap.Int("notifications", end.Summary.Notifications),
			zap.Int("delivered", end.Summary.Delivered),
			zap.Int("suppressed", end.Summary.Suppressed),
			zap.Int("dropped", end.Summary.Dropped),
			zap.Int("duration_seconds", end.Summary.DurationSeconds))
		s.writeRecord(end)
	}
}

func (s *Sensor) writeRecord(v interface{}) {
	if s.opts.Records == nil {
		return
	}
	if err := s.opts.Records.WriteRecord(v); err != nil {
		s.logger.Warn("could not write activation record", zap.Error(err))
	}
}

// Reload tears the sensor down and brings it back up with the same
// options.
func (s *Sensor) Reload() {
	s.logger.Info("reloading sensor")
	s.Disable()
	s.Enable()
}

func (s *Sensor) active(gen uint64) bool {
	return s.enabled && gen == s.gen
}

func (s *Sensor) onFocusAppChanged(gen uint64) {
	if !s.active(gen) {
		return
	}
	s.activations.Notification()
	s.deliver(s.normalizer.FromTracker())
}

func (s *Sensor) onObjectFocused(gen uint64, obj source.Accessible) {
	if !s.active(gen) {
		return
	}
	s.activations.Notification()
	s.deliver(s.normalizer.FromAccessible(obj))
}

func (s *Sensor) onPipeAppeared(gen uint64) {
	if !s.active(gen) {
		return
	}
	s.channel.EnsureOpen()
}

func (s *Sensor) deliver(event domain.FocusEvent) {
	outcome := s.sink.Deliver(event)
	s.activations.Record(outcome)
	if s.opts.OnEvent != nil {
		s.opts.OnEvent(event, outcome)
	}
}

func (s *Sensor) logTransition(from, to pipe.State) {
	s.logger.Debug("pipe state",
		zap.Stringer("from", from),
		zap.Stringer("to", to))
}
