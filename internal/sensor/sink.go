package sensor

import (
	"go.uber.org/zap"

	"github.com/vburojevic/eruption-sensor/internal/domain"
	"github.com/vburojevic/eruption-sensor/internal/filter"
)

// LineWriter is the channel the sink writes records to.
type LineWriter interface {
	TryWrite(b []byte) bool
}

// Sink delivers focus events to the pipe, skipping events identical to
// the last one that was written successfully.
type Sink struct {
	out    LineWriter
	dedupe *filter.DedupeFilter
	logger *zap.Logger
}

// NewSink creates a sink writing to out.
func NewSink(out LineWriter, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{out: out, dedupe: filter.NewDedupeFilter(), logger: logger}
}

// Deliver writes event unless it duplicates the last delivered event.
// A failed write leaves the last delivered event untouched, so the same
// event is attempted again on the next notification.
func (s *Sink) Deliver(event domain.FocusEvent) domain.Outcome {
	if !s.dedupe.Check(event) {
		return domain.OutcomeSuppressed
	}

	line, err := event.MarshalLine()
	if err != nil {
		s.logger.Warn("could not encode focus event", zap.Error(err))
		return domain.OutcomeDropped
	}
	if !s.out.TryWrite(line) {
		s.logger.Debug("sensor pipe unavailable, dropping event",
			zap.String("window_title", event.WindowTitle),
			zap.String("window_class", event.WindowClass))
		return domain.OutcomeDropped
	}

	s.dedupe.Commit(event)
	s.logger.Debug("event",
		zap.String("window_title", event.WindowTitle),
		zap.String("window_class", event.WindowClass))
	return domain.OutcomeDelivered
}

// LastDelivered returns the last event written successfully.
func (s *Sink) LastDelivered() (domain.FocusEvent, bool) {
	return s.dedupe.Last()
}
