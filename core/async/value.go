package async

import (
	"fmt"
	"sync"
)

// Void is the payload of chains and requests that produce no value.
type Void = struct{}

// Observer receives the outcome of a Value.
type Observer[T any] func(v T, err error)

// ContractViolation is the panic value raised when a Value or Frame is
// misused. It signals a caller bug and is never turned into an error.
type ContractViolation struct {
	Op  string
	Msg string
}

func (c *ContractViolation) Error() string {
	return fmt.Sprintf("async: contract violation in %s: %s", c.Op, c.Msg)
}

func violation(op, msg string) *ContractViolation {
	return &ContractViolation{Op: op, Msg: msg}
}

// Value is a single-assignment future. It starts pending and is resolved
// exactly once through its Provider.
type Value[T any] struct {
	mu        sync.Mutex
	ready     bool
	v         T
	err       error
	observers []Observer[T]
}

// Provider is the write side of a Value.
type Provider[T any] struct {
	value *Value[T]
}

// NewProvider returns a provider whose Value is pending.
func NewProvider[T any]() *Provider[T] {
	return &Provider[T]{value: &Value[T]{}}
}

// Resolved returns a Value that is already resolved with v.
func Resolved[T any](v T) *Value[T] {
	return &Value[T]{ready: true, v: v}
}

// Rejected returns a Value that is already resolved with err.
func Rejected[T any](err error) *Value[T] {
	return &Value[T]{ready: true, err: err}
}

// Value returns the Value this provider resolves.
func (p *Provider[T]) Value() *Value[T] { return p.value }

// Resolve stores v and runs every registered observer, in registration
// order, on the calling goroutine. Resolving twice panics.
func (p *Provider[T]) Resolve(v T) { p.value.settle("Resolve", v, nil) }

// Reject resolves the Value with err. Resolving twice panics.
func (p *Provider[T]) Reject(err error) {
	var zero T
	if err == nil {
		panic(violation("Reject", "nil error"))
	}
	p.value.settle("Reject", zero, err)
}

// Settle resolves with v when err is nil and rejects with err otherwise.
func (p *Provider[T]) Settle(v T, err error) {
	if err != nil {
		p.Reject(err)
		return
	}
	p.Resolve(v)
}

func (a *Value[T]) settle(op string, v T, err error) {
	a.mu.Lock()
	if a.ready {
		a.mu.Unlock()
		panic(violation(op, "value already resolved"))
	}
	a.ready = true
	a.v, a.err = v, err
	observers := a.observers
	a.observers = nil
	a.mu.Unlock()

	// A panicking observer must not starve the ones after it; the first
	// panic is raised again once every observer has run.
	var first any
	for _, o := range observers {
		if r := notify(o, v, err); r != nil && first == nil {
			first = r
		}
	}
	if first != nil {
		panic(first)
	}
}

func notify[T any](o Observer[T], v T, err error) (recovered any) {
	defer func() { recovered = recover() }()
	o(v, err)
	return nil
}

// Ready reports whether the Value has been resolved.
func (a *Value[T]) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ready
}

// Result returns the resolved value and error. Calling it on a pending
// Value panics.
func (a *Value[T]) Result() (T, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.ready {
		panic(violation("Result", "value not ready"))
	}
	return a.v, a.err
}

// Wait registers o. If the Value is already resolved, o runs immediately on
// the calling goroutine before Wait returns; otherwise it runs on the
// goroutine that resolves the Value.
func (a *Value[T]) Wait(o Observer[T]) {
	a.mu.Lock()
	if !a.ready {
		a.observers = append(a.observers, o)
		a.mu.Unlock()
		return
	}
	v, err := a.v, a.err
	a.mu.Unlock()
	o(v, err)
}

// Then returns a Value resolved with fn applied to the result of a.
// Errors pass through without calling fn. A panic in fn rejects the
// returned Value with ErrChainPanic.
func Then[T, R any](a *Value[T], fn func(T) (R, error)) *Value[R] {
	p := NewProvider[R]()
	a.Wait(func(v T, err error) {
		if err != nil {
			p.Reject(err)
			return
		}
		out, err := apply(fn, v)
		p.Settle(out, err)
	})
	return p.Value()
}

func apply[T, R any](fn func(T) (R, error), v T) (out R, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if cv, ok := r.(*ContractViolation); ok {
			panic(cv)
		}
		err = fmt.Errorf("%w: %v", ErrChainPanic, r)
	}()
	return fn(v)
}
