package actor

import "github.com/turingvideo/couchbase-lite-core/core/async"

type (
	StateOp[T any] func(*T)

	// State is data owned by an actor. Every access runs as an entry of the
	// actor's mailbox, so no further locking is needed.
	State[T any] struct {
		actor *Actor
		data  *T
		cb    func(*T)
	}
)

// NewState binds data to a. cb, if set, runs after every Update.
func NewState[T any](a *Actor, data *T, cb func(*T)) *State[T] {
	return &State[T]{actor: a, data: data, cb: cb}
}

// Update applies ops in order as one mailbox entry.
func (s *State[T]) Update(ops ...StateOp[T]) *async.Value[async.Void] {
	return Do(s.actor, "state.update", func() (async.Void, error) {
		for _, op := range ops {
			op(s.data)
		}
		if s.cb != nil {
			s.cb(s.data)
		}
		return async.Void{}, nil
	})
}

// Read evaluates op against the state on the actor's mailbox.
func Read[T, R any](s *State[T], op func(*T) R) *async.Value[R] {
	return Do(s.actor, "state.read", func() (R, error) {
		return op(s.data), nil
	})
}
