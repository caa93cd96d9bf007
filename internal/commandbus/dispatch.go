// If you are AI: This file dispatches a parsed command to its registered handler.

package commandbus

import "fmt"

// HandlerFunc processes one parsed command.
type HandlerFunc func(cmd Command) error

// Dispatcher maps verbs to handlers, the shape each component (recorder,
// motion, fileplayer) uses to register the handful of verbs it accepts
// (§6).
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

// NewDispatcher creates an empty dispatch table.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

// Handle registers fn for verb, replacing any previous registration.
func (d *Dispatcher) Handle(verb string, fn HandlerFunc) {
	d.handlers[verb] = fn
}

// Dispatch runs the handler registered for cmd.Verb.
func (d *Dispatcher) Dispatch(cmd Command) error {
	fn, ok := d.handlers[cmd.Verb]
	if !ok {
		return fmt.Errorf("commandbus: unknown verb %q", cmd.Verb)
	}
	return fn(cmd)
}
