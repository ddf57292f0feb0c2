package source

import (
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// AT-SPI D-Bus names
const (
	a11yBusName          = "org.a11y.Bus"
	a11yBusPath          = "/org/a11y/bus"
	a11yBusInterface     = "org.a11y.Bus"
	registryBusName      = "org.a11y.atspi.Registry"
	registryPath         = "/org/a11y/atspi/registry"
	registryInterface    = "org.a11y.atspi.Registry"
	objectEventInterface = "org.a11y.atspi.Event.Object"
	accessibleInterface  = "org.a11y.atspi.Accessible"

	stateChangedPrefix = "object:state-changed:"
)

// DefaultAccessibilityEvents are the AT-SPI events treated as focus changes.
var DefaultAccessibilityEvents = []string{stateChangedPrefix + "focused"}

// ConnectAccessibilityBus asks the session bus for the address of the
// accessibility bus and connects to it.
func ConnectAccessibilityBus(session *dbus.Conn, timeout time.Duration) (*dbus.Conn, error) {
	var address string
	call := callWithTimeout(session.Object(a11yBusName, a11yBusPath), timeout, a11yBusInterface+".GetAddress")
	if err := call.Store(&address); err != nil {
		return nil, fmt.Errorf("get accessibility bus address: %w", err)
	}
	conn, err := dbus.Connect(address)
	if err != nil {
		return nil, fmt.Errorf("connect to accessibility bus %s: %w", address, err)
	}
	return conn, nil
}

// ATSPIBus implements AccessibilityBus over an AT-SPI bus connection.
type ATSPIBus struct {
	conn    *dbus.Conn
	events  []string
	kinds   map[string]bool
	timeout time.Duration
	logger  *zap.Logger
}

// NewATSPIBus creates an accessibility source. Only object:state-changed:*
// events are supported; anything else is ignored with a warning. Registry
// calls and property reads give up after timeout (DefaultCallTimeout when
// zero).
func NewATSPIBus(conn *dbus.Conn, events []string, timeout time.Duration, logger *zap.Logger) *ATSPIBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(events) == 0 {
		events = DefaultAccessibilityEvents
	}

	b := &ATSPIBus{conn: conn, kinds: map[string]bool{}, timeout: timeout, logger: logger}
	for _, ev := range lo.Uniq(events) {
		kind, ok := strings.CutPrefix(ev, stateChangedPrefix)
		if !ok || kind == "" {
			logger.Warn("unsupported accessibility event", zap.String("event", ev))
			continue
		}
		b.events = append(b.events, ev)
		b.kinds[kind] = true
	}
	return b
}

// Events returns the AT-SPI events this bus registers for.
func (b *ATSPIBus) Events() []string { return b.events }

// SubscribeFocus implements AccessibilityBus.
func (b *ATSPIBus) SubscribeFocus(fn func(Accessible)) (Subscription, error) {
	if len(b.events) == 0 {
		return nil, fmt.Errorf("no supported accessibility events configured")
	}

	registry := b.conn.Object(registryBusName, registryPath)
	var registered []string
	deregister := func() error {
		var firstErr error
		for _, ev := range registered {
			if err := callWithTimeout(registry, b.timeout, registryInterface+".DeregisterEvent", ev).Err; err != nil && firstErr == nil {
				firstErr = fmt.Errorf("deregister %s: %w", ev, err)
			}
		}
		return firstErr
	}
	for _, ev := range b.events {
		if err := callWithTimeout(registry, b.timeout, registryInterface+".RegisterEvent", ev).Err; err != nil {
			_ = deregister()
			return nil, fmt.Errorf("register %s: %w", ev, err)
		}
		registered = append(registered, ev)
	}

	accept := func(sig *dbus.Signal) bool {
		kind, gained, ok := parseStateChanged(sig)
		return ok && gained && b.kinds[kind]
	}
	handle := func(sig *dbus.Signal) {
		fn(&atspiObject{obj: b.conn.Object(sig.Sender, sig.Path), timeout: b.timeout})
	}
	w, err := watchSignals(b.conn, accept, handle,
		dbus.WithMatchInterface(objectEventInterface),
		dbus.WithMatchMember("StateChanged"),
	)
	if err != nil {
		_ = deregister()
		return nil, err
	}
	b.logger.Debug("subscribed to accessibility events", zap.Strings("events", b.events))

	return SubscriptionFunc(func() error {
		err := w.Unsubscribe()
		if derr := deregister(); err == nil {
			err = derr
		}
		registered = nil
		return err
	}), nil
}

// parseStateChanged decodes the StateChanged body (kind, detail1, ...).
// detail1 is 1 when the state was set.
func parseStateChanged(sig *dbus.Signal) (kind string, gained bool, ok bool) {
	if sig.Name != objectEventInterface+".StateChanged" || len(sig.Body) < 2 {
		return "", false, false
	}
	kind, ok = sig.Body[0].(string)
	if !ok {
		return "", false, false
	}
	detail1, ok := sig.Body[1].(int32)
	if !ok {
		return "", false, false
	}
	return kind, detail1 == 1, true
}

// atspiObject reads properties of the object that emitted an event.
type atspiObject struct {
	obj     dbus.BusObject
	timeout time.Duration
}

// Name implements Accessible.
func (o *atspiObject) Name() (string, error) {
	return o.stringProperty("Name")
}

// Description implements Accessible.
func (o *atspiObject) Description() (string, error) {
	return o.stringProperty("Description")
}

func (o *atspiObject) stringProperty(name string) (string, error) {
	var v dbus.Variant
	call := callWithTimeout(o.obj, o.timeout, propertiesGet, accessibleInterface, name)
	if err := call.Store(&v); err != nil {
		return "", fmt.Errorf("get %s: %w", name, err)
	}
	s, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("%s is %s, not a string", name, v.Signature())
	}
	return s, nil
}
