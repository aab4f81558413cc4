// Package actor provides mailbox actors scheduled on a shared executor.
//
// Each actor:
//   - Has a unique identity and a diagnostic name
//   - Runs the entries of its mailbox one at a time, in enqueue order
//   - Never occupies a goroutine while its mailbox is empty
//   - Records enqueue and execution events in a bounded call history
//
// # Enqueueing Work
//
// The low level API appends closures to the mailbox:
//
//	a := actor.New(actor.Options{Name: "db"})
//	a.Enqueue("save", func() { db.save(doc) })
//	a.EnqueueAfter(time.Second, "flush", db.flush)
//
// [Do] and [Call] return an [async.Value] that resolves with the entry's
// result, so callers never block:
//
//	rev := actor.Do(a, "save", func() (Revision, error) { return db.save(doc) })
//	rev.Wait(func(r Revision, err error) { ... })
//
// # Typed Messages
//
// Handlers are dispatched by message type name:
//
//	a := actor.New(actor.Options{},
//	    actor.HandleMsg[CloseCmd](func(hc actor.HandlerCtx, cmd CloseCmd) error { ... }),
//	    actor.HandleRequest[GetDoc, *Doc](func(hc actor.HandlerCtx, q GetDoc) (*Doc, error) { ... }),
//	    actor.HandleAsync[SaveDoc, Revision](func(hc actor.HandlerCtx, c SaveDoc) *async.Value[Revision] { ... }),
//	    actor.HandleEvery(time.Minute, func(hc actor.HandlerCtx) error { ... }),
//	)
//	doc := actor.Request[GetDoc, *Doc](a, GetDoc{ID: "123"})
//
// A failing or panicking handler only rejects its own reply.
//
// # Executors
//
// Drains run on an [Executor]. [NewPool] runs them on bounded goroutines,
// [NewSharded] pins every actor to one of a fixed set of lanes, and
// [Inline] runs them on the enqueueing goroutine (useful in tests). A drain
// yields back to the executor after [Options.MaxBatch] entries.
//
// # Reentrancy
//
// Enqueue never runs an entry inline on an actor that is already draining:
// the entry is appended and picked up by the running drain. Observers of
// async values run on the resolving goroutine, which may be another actor's
// drain; a chain that must resume inside its own actor awaits [Hop].
//
// # Diagnostics
//
// [Actor.Dump] writes the call history. A [Watchdog] logs the history of
// actors whose mailbox stops making progress. [Actor.Pause], [Actor.Step]
// and [Actor.Resume] hold back and release a mailbox one entry at a time
// while a hang is investigated.
package actor
