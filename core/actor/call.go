package actor

import (
	"fmt"
	"runtime/debug"

	"github.com/turingvideo/couchbase-lite-core/core/async"
)

// Request enqueues msg and returns the reply of the handler registered for
// IN. Errors and panics of the handler reject the returned value; they
// never affect other entries of the mailbox.
func Request[IN, OUT any](a *Actor, msg IN) *async.Value[OUT] {
	key, short := msgTypeFor[IN]()
	return Call(a, short, func() *async.Value[OUT] {
		if a.handlers == nil {
			return async.Rejected[OUT](fmt.Errorf("%w: msg_type=%s", ErrNoHandler, key))
		}
		return cast[OUT](a.handlers.HandleMessage(a.hc, key, msg))
	})
}

// Publish enqueues a one-way message. The returned value resolves once the
// handler has run.
func Publish[IN any](a *Actor, msg IN) *async.Value[async.Void] {
	return async.Then(Request[IN, any](a, msg), func(any) (async.Void, error) {
		return async.Void{}, nil
	})
}

// Call runs fn on the actor's mailbox and forwards the value it returns.
func Call[T any](a *Actor, name string, fn func() *async.Value[T]) *async.Value[T] {
	p := async.NewProvider[T]()
	a.Enqueue(name, func() {
		var v *async.Value[T]
		if err := a.guard(name, func() { v = fn() }); err != nil {
			p.Reject(err)
			return
		}
		if v == nil {
			p.Reject(fmt.Errorf("actor %s: %s returned no value", a.id, name))
			return
		}
		v.Wait(p.Settle)
	})
	return p.Value()
}

// Do runs fn on the actor's mailbox and resolves with its result.
func Do[T any](a *Actor, name string, fn func() (T, error)) *async.Value[T] {
	return Call(a, name, func() *async.Value[T] {
		v, err := fn()
		if err != nil {
			return async.Rejected[T](err)
		}
		return async.Resolved(v)
	})
}

// Hop returns a value that resolves on a's mailbox once v resolves. A chain
// running on behalf of an actor awaits Hop(a, v) instead of v so that it
// resumes inside the actor rather than on whichever goroutine resolved v.
// If v is already resolved it is returned as is.
func Hop[T any](a *Actor, v *async.Value[T]) *async.Value[T] {
	if v.Ready() {
		return v
	}
	p := async.NewProvider[T]()
	v.Wait(func(x T, err error) {
		a.Enqueue("resume", func() { p.Settle(x, err) })
	})
	return p.Value()
}

// guard runs fn and turns a panic into an error reported through the
// entry's own reply.
func (a *Actor) guard(name string, fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if cv, ok := r.(*async.ContractViolation); ok {
			panic(cv)
		}
		a.metrics.MessagePanic(name)
		a.onPanic(r, debug.Stack(), name)
		err = fmt.Errorf("%w: %s: %v", ErrHandlerPanic, name, r)
	}()
	fn()
	return nil
}

func cast[OUT any](v *async.Value[any]) *async.Value[OUT] {
	return async.Then(v, func(x any) (OUT, error) {
		var zero OUT
		if x == nil {
			return zero, nil
		}
		out, ok := x.(OUT)
		if !ok {
			return zero, fmt.Errorf("%w: got %T, want %T", ErrBadResultType, x, zero)
		}
		return out, nil
	})
}
