package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

// DefaultCallTimeout bounds every method call made to a peer. The sensor
// reads properties on its loop, so an unresponsive application must not
// hold it.
const DefaultCallTimeout = time.Second

const propertiesGet = "org.freedesktop.DBus.Properties.Get"

// callWithTimeout calls method on obj and gives up after timeout.
func callWithTimeout(obj dbus.BusObject, timeout time.Duration, method string, args ...interface{}) *dbus.Call {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return obj.CallWithContext(ctx, method, 0, args...)
}

// signalWatch forwards matching signals from a connection to a handler
// until it is unsubscribed.
type signalWatch struct {
	conn   *dbus.Conn
	rule   []dbus.MatchOption
	ch     chan *dbus.Signal
	stop   chan struct{}
	once   sync.Once
	accept func(*dbus.Signal) bool
	handle func(*dbus.Signal)
}

func watchSignals(conn *dbus.Conn, accept func(*dbus.Signal) bool, handle func(*dbus.Signal), rule ...dbus.MatchOption) (*signalWatch, error) {
	if err := conn.AddMatchSignal(rule...); err != nil {
		return nil, fmt.Errorf("add match rule: %w", err)
	}

	w := &signalWatch{
		conn:   conn,
		rule:   rule,
		ch:     make(chan *dbus.Signal, 16),
		stop:   make(chan struct{}),
		accept: accept,
		handle: handle,
	}
	conn.Signal(w.ch)
	go w.run()
	return w, nil
}

func (w *signalWatch) run() {
	for {
		select {
		case <-w.stop:
			return
		case sig, ok := <-w.ch:
			if !ok {
				return
			}
			if sig == nil || !w.accept(sig) {
				continue
			}
			select {
			case <-w.stop:
				return
			default:
			}
			w.handle(sig)
		}
	}
}

// Unsubscribe implements Subscription. It does not wait for a handler
// that is already running.
func (w *signalWatch) Unsubscribe() error {
	var err error
	w.once.Do(func() {
		close(w.stop)
		w.conn.RemoveSignal(w.ch)
		if rmErr := w.conn.RemoveMatchSignal(w.rule...); rmErr != nil {
			err = fmt.Errorf("remove match rule: %w", rmErr)
		}
	})
	return err
}
