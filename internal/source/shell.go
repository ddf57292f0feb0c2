package source

import (
	"fmt"
	"sort"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

// GNOME Shell introspection interface
const (
	shellBusName        = "org.gnome.Shell"
	introspectPath      = "/org/gnome/Shell/Introspect"
	introspectInterface = "org.gnome.Shell.Introspect"
)

// ShellTracker implements WindowTracker on top of org.gnome.Shell.Introspect.
//
// GetWindows is only answered for callers the shell trusts (or with
// introspection enabled in development mode); when it is refused the
// tracker reports the error and the sensor produces empty events.
type ShellTracker struct {
	conn    *dbus.Conn
	shell   dbus.BusObject
	timeout time.Duration
	logger  *zap.Logger
}

// NewShellTracker creates a tracker on a session bus connection. Calls to
// the shell give up after timeout (DefaultCallTimeout when zero).
func NewShellTracker(conn *dbus.Conn, timeout time.Duration, logger *zap.Logger) *ShellTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShellTracker{
		conn:    conn,
		shell:   conn.Object(shellBusName, introspectPath),
		timeout: timeout,
		logger:  logger,
	}
}

// FocusApp implements WindowTracker.
func (t *ShellTracker) FocusApp() (App, error) {
	var windows map[uint64]map[string]dbus.Variant
	call := callWithTimeout(t.shell, t.timeout, introspectInterface+".GetWindows")
	if err := call.Store(&windows); err != nil {
		return nil, fmt.Errorf("GetWindows: %w", err)
	}

	app := focusedApp(windows)
	if app == nil {
		return nil, nil
	}
	return app, nil
}

// Subscribe implements WindowTracker. The shell emits WindowsChanged for
// focus moves and title changes alike; duplicates are filtered downstream.
func (t *ShellTracker) Subscribe(fn func()) (Subscription, error) {
	accept := func(sig *dbus.Signal) bool {
		switch sig.Name {
		case introspectInterface + ".WindowsChanged", introspectInterface + ".RunningApplicationsChanged":
			return true
		}
		return false
	}
	w, err := watchSignals(t.conn, accept, func(*dbus.Signal) { fn() },
		dbus.WithMatchInterface(introspectInterface),
		dbus.WithMatchObjectPath(introspectPath),
	)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("subscribed to shell window changes")
	return w, nil
}

type shellWindow struct {
	id      uint64
	appID   string
	title   string
	wmClass string
	focused bool
}

// Title implements Window.
func (w *shellWindow) Title() (string, error) { return w.title, nil }

// WMClass implements Window.
func (w *shellWindow) WMClass() (string, error) { return w.wmClass, nil }

type shellApp struct {
	windows []Window
}

// Windows implements App.
func (a *shellApp) Windows() ([]Window, error) { return a.windows, nil }

// focusedApp picks the application owning the focused window. Its windows
// are ordered with the focused one first, then by window id.
func focusedApp(raw map[uint64]map[string]dbus.Variant) *shellApp {
	windows := make([]*shellWindow, 0, len(raw))
	var focused *shellWindow
	for id, props := range raw {
		w := &shellWindow{
			id:      id,
			appID:   variantString(props, "app-id"),
			title:   variantString(props, "title"),
			wmClass: variantString(props, "wm-class"),
			focused: variantBool(props, "has-focus"),
		}
		windows = append(windows, w)
		if w.focused {
			focused = w
		}
	}
	if focused == nil {
		return nil
	}

	var owned []*shellWindow
	for _, w := range windows {
		if w == focused || (focused.appID != "" && w.appID == focused.appID) {
			owned = append(owned, w)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].focused != owned[j].focused {
			return owned[i].focused
		}
		return owned[i].id < owned[j].id
	})

	app := &shellApp{windows: make([]Window, len(owned))}
	for i, w := range owned {
		app.windows[i] = w
	}
	return app
}

func variantString(props map[string]dbus.Variant, key string) string {
	v, ok := props[key]
	if !ok {
		return ""
	}
	s, _ := v.Value().(string)
	return s
}

func variantBool(props map[string]dbus.Variant, key string) bool {
	v, ok := props[key]
	if !ok {
		return false
	}
	b, _ := v.Value().(bool)
	return b
}
