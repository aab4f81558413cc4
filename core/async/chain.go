package async

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/turingvideo/couchbase-lite-core/core/diag"
)

// ErrChainPanic wraps a panic recovered from a chain body.
var ErrChainPanic = errors.New("async: chain panicked")

// Frame is the continuation state of one chain: the point to resume at and
// the provider of the chain's own Value. Locals that must survive a
// suspension live in the closure the body is declared in.
//
// A body is a switch over f.At(). Each case ends in exactly one transition:
// Await, Goto, Return or Fail. The body is re-entered at the new resume
// point until the chain completes or suspends.
type Frame[T any] struct {
	reg      *diag.Registry
	provider *Provider[T]
	body     func(*Frame[T])

	point    int
	moved    bool
	pending  func() bool
	awaitErr error

	done     bool
	result   T
	err      error
	retained bool
}

// Begin runs body until it first suspends and returns the chain's Value.
// If no awaited value is pending the chain completes before Begin returns.
func Begin[T any](body func(f *Frame[T])) *Value[T] {
	return BeginIn(diag.Default(), body)
}

// BeginIn is Begin with live frames counted in reg.
func BeginIn[T any](reg *diag.Registry, body func(f *Frame[T])) *Value[T] {
	if reg == nil {
		reg = diag.Default()
	}
	f := &Frame[T]{
		reg:      reg,
		provider: NewProvider[T](),
		body:     body,
	}
	v := f.provider.Value()
	f.run()
	return v
}

// At returns the resume point the body must continue from. It is 0 on the
// first entry.
func (f *Frame[T]) At() int { return f.point }

// Goto moves the chain to resume point p without waiting.
func (f *Frame[T]) Goto(p int) {
	f.transition("Goto")
	f.point = p
}

// Return completes the chain with v.
func (f *Frame[T]) Return(v T) {
	f.transition("Return")
	f.done = true
	f.result = v
}

// Fail completes the chain with err.
func (f *Frame[T]) Fail(err error) {
	f.transition("Fail")
	if err == nil {
		panic(violation("Fail", "nil error"))
	}
	f.done = true
	f.err = err
}

// Finish completes a chain that produces no value.
func Finish(f *Frame[Void]) { f.Return(Void{}) }

// Await binds the result of v to *dst and continues at resume point next.
// If v is resolved the chain continues inline. Otherwise the chain
// suspends and is resumed by whichever goroutine resolves v. A rejected v
// fails the chain.
func Await[T, V any](f *Frame[T], next int, v *Value[V], dst *V) {
	f.transition("Await")
	f.point = next

	if v.Ready() {
		x, err := v.Result()
		if err != nil {
			f.awaitErr = err
			return
		}
		if dst != nil {
			*dst = x
		}
		return
	}

	f.pending = func() bool {
		var state atomic.Int32 // 0 registering, 1 fired while registering, 2 suspended
		v.Wait(func(x V, err error) {
			if err != nil {
				f.awaitErr = err
			} else if dst != nil {
				*dst = x
			}
			if state.CompareAndSwap(0, 1) {
				return
			}
			f.run()
		})
		return state.CompareAndSwap(0, 2)
	}
}

func (f *Frame[T]) transition(op string) {
	if f.done {
		panic(violation(op, "chain already completed"))
	}
	if f.moved {
		panic(violation(op, fmt.Sprintf("second transition at resume point %d", f.point)))
	}
	f.moved = true
}

func (f *Frame[T]) run() {
	for {
		if f.awaitErr != nil {
			f.done = true
			f.err = fmt.Errorf("await before resume point %d: %w", f.point, f.awaitErr)
			f.awaitErr = nil
		}
		if f.done {
			f.complete()
			return
		}

		f.moved = false
		f.step()

		if f.done {
			continue
		}
		if !f.moved {
			panic(violation("Begin", fmt.Sprintf("chain made no progress at resume point %d", f.point)))
		}
		if f.pending != nil {
			wait := f.pending
			f.pending = nil
			if !f.retained {
				f.retained = true
				f.reg.FrameRetained()
			}
			if wait() {
				// Suspended: the resolving goroutine owns the frame now.
				return
			}
		}
	}
}

func (f *Frame[T]) step() {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if cv, ok := r.(*ContractViolation); ok {
			panic(cv)
		}
		f.pending = nil
		f.done = true
		f.err = fmt.Errorf("%w at resume point %d: %v\n%s", ErrChainPanic, f.point, r, debug.Stack())
	}()
	f.body(f)
}

func (f *Frame[T]) complete() {
	if f.retained {
		f.retained = false
		f.reg.FrameReleased()
	}
	f.provider.Settle(f.result, f.err)
}
