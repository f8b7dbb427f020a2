// Package events declares the structured event catalog the bridge publishes.
// Events are immutable except for the cancellation flag and the documented
// outcome fields; the bridge reads flags and outcome fields exactly once,
// after the bus has finished running listeners.
package events

// Event is any structured event the bridge can raise.
type Event interface {
	// EventName identifies the event for bus registration and logging.
	EventName() string
}

// Cancellable is embedded by every event. The flag is one-way: once a
// listener cancels, nothing resets it within the same publication. On
// observational events the flag is settable but has no engine effect.
type Cancellable struct {
	cancelled bool
}

// Cancel marks the event cancelled.
func (c *Cancellable) Cancel() { c.cancelled = true }

// Cancelled reports whether any listener cancelled the event.
func (c *Cancellable) Cancelled() bool { return c.cancelled }
