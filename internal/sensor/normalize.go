package sensor

import (
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/vburojevic/eruption-sensor/internal/domain"
	"github.com/vburojevic/eruption-sensor/internal/source"
)

// Normalizer turns source notifications into focus events. It never
// fails: whatever cannot be read is reported as an empty field.
type Normalizer struct {
	tracker source.WindowTracker
	logger  *zap.Logger
}

// NewNormalizer creates a normalizer. tracker may be nil, in which case
// the window tracker procedure yields empty events.
func NewNormalizer(tracker source.WindowTracker, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{tracker: tracker, logger: logger}
}

// FromTracker describes the first window of the application that has
// focus. If no window can be determined both fields are empty.
func (n *Normalizer) FromTracker() (event domain.FocusEvent) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Debug("could not determine the currently focused window", zap.Any("panic", r))
			event = domain.FocusEvent{}
		}
	}()

	if n.tracker == nil {
		return domain.FocusEvent{}
	}
	app, err := n.tracker.FocusApp()
	if err != nil {
		n.logger.Debug("could not determine the currently focused window", zap.Error(err))
		return domain.FocusEvent{}
	}
	if app == nil {
		return domain.FocusEvent{}
	}
	windows, err := app.Windows()
	if err != nil {
		n.logger.Debug("could not list windows of the focused application", zap.Error(err))
		return domain.FocusEvent{}
	}
	window, ok := lo.Find(windows, func(w source.Window) bool { return w != nil })
	if !ok {
		return domain.FocusEvent{}
	}

	return domain.FocusEvent{
		WindowTitle: read(window.Title),
		WindowClass: read(window.WMClass),
	}
}

// FromAccessible uses the accessible object's name as title and its
// description as class. When both are empty the object tells us nothing,
// and the window tracker is queried instead.
func (n *Normalizer) FromAccessible(obj source.Accessible) domain.FocusEvent {
	if obj == nil {
		return n.FromTracker()
	}
	name := read(obj.Name)
	description := read(obj.Description)
	if name == "" && description == "" {
		return n.FromTracker()
	}
	return domain.FocusEvent{WindowTitle: name, WindowClass: description}
}

// read calls an accessor whose subject may vanish at any moment; errors
// and panics both mean "unknown".
func read(accessor func() (string, error)) (value string) {
	defer func() {
		if recover() != nil {
			value = ""
		}
	}()
	v, err := accessor()
	if err != nil {
		return ""
	}
	return v
}
