// Package source defines the two desktop notification sources the sensor
// listens to and provides their D-Bus implementations.
//
// Callbacks registered through Subscribe may be invoked from any goroutine.
package source

// Window is one top-level window of an application.
type Window interface {
	Title() (string, error)
	WMClass() (string, error)
}

// App is an application known to the window tracker.
type App interface {
	// Windows returns the application's windows, most relevant first.
	// Entries may be nil.
	Windows() ([]Window, error)
}

// WindowTracker is the coarse source: it knows which application has focus.
type WindowTracker interface {
	// FocusApp returns the application that currently has focus, or nil.
	FocusApp() (App, error)
	// Subscribe calls fn whenever the focused application changes.
	Subscribe(fn func()) (Subscription, error)
}

// Accessible is the subject of an accessibility focus notification.
type Accessible interface {
	Name() (string, error)
	Description() (string, error)
}

// AccessibilityBus is the fine-grained source: it reports individual UI
// objects gaining focus.
type AccessibilityBus interface {
	// SubscribeFocus calls fn with the object that gained focus.
	SubscribeFocus(fn func(Accessible)) (Subscription, error)
}

// Subscription is an active source subscription.
type Subscription interface {
	// Unsubscribe stops delivery. Calling it more than once is allowed.
	Unsubscribe() error
}

// SubscriptionFunc adapts a function to the Subscription interface.
type SubscriptionFunc func() error

// Unsubscribe calls f.
func (f SubscriptionFunc) Unsubscribe() error { return f() }
