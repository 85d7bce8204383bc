// Package notify delivers short, user-visible, fire-and-forget messages from
// the prompt pipeline to whatever surface invoked it.
package notify

import "log/slog"

// Sink receives user-visible notifications. Implementations must not block.
type Sink interface {
	Notify(message string)
}

// Func adapts a plain function to the Sink interface.
type Func func(message string)

// Notify implements Sink.
func (f Func) Notify(message string) { f(message) }

// Log returns a Sink that records notifications as warnings on logger.
func Log(logger *slog.Logger) Sink {
	return Func(func(message string) {
		logger.Warn("notice", slog.String("message", message))
	})
}

// Discard is a Sink that drops every notification.
var Discard Sink = Func(func(string) {})
