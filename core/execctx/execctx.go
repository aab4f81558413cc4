// Package execctx identifies the goroutine a piece of code runs on.
//
// It exists for diagnostics only: mailbox provenance and call-history
// descriptions embed the current execution context so that a dump tells
// which worker enqueued or executed an entry. Nothing in the engine relies
// on goroutine identity for correctness.
package execctx

import (
	"fmt"
	"sync"
)

// Context is the identity of the calling goroutine.
type Context interface {
	// ID is stable for the lifetime of the goroutine. Zero means unknown.
	ID() uint64
	// Name is the name given via SetName, or "".
	Name() string
	String() string
}

type current struct {
	id   uint64
	name string
}

func (c current) ID() uint64   { return c.id }
func (c current) Name() string { return c.name }

func (c current) String() string {
	switch {
	case c.name != "" && c.id != 0:
		return fmt.Sprintf("%s (%d)", c.name, c.id)
	case c.name != "":
		return c.name
	case c.id != 0:
		return fmt.Sprintf("goroutine %d", c.id)
	default:
		return "goroutine ?"
	}
}

var names sync.Map // uint64 -> string

// Current returns the execution context of the caller.
func Current() Context {
	id := goid()
	c := current{id: id}
	if id != 0 {
		if n, ok := names.Load(id); ok {
			c.name = n.(string)
		}
	}
	return c
}

// SetName names the calling goroutine. Callers must call ClearName before
// the goroutine exits, otherwise the entry leaks.
func SetName(name string) {
	id := goid()
	if id == 0 {
		return
	}
	if name == "" {
		names.Delete(id)
		return
	}
	names.Store(id, name)
}

// ClearName removes the name of the calling goroutine.
func ClearName() { SetName("") }

// Named runs fn with the calling goroutine named name, restoring the
// previous name afterwards.
func Named(name string, fn func()) {
	id := goid()
	if id == 0 {
		fn()
		return
	}
	prev, had := names.Load(id)
	names.Store(id, name)
	defer func() {
		if had {
			names.Store(id, prev)
		} else {
			names.Delete(id)
		}
	}()
	fn()
}
