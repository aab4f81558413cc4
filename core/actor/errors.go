package actor

import "errors"

var (
	// ErrNoHandler is returned for typed messages no handler is registered for.
	ErrNoHandler = errors.New("actor: no handler for message")
	// ErrHandlerPanic wraps a panic recovered from a mailbox entry.
	ErrHandlerPanic = errors.New("actor: handler panicked")
	// ErrBadResultType is returned when a handler's result does not have the
	// type the requester asked for.
	ErrBadResultType = errors.New("actor: unexpected result type")
)
