// Package async provides single-assignment values and chains of dependent
// asynchronous steps that suspend instead of blocking.
//
// # Values
//
// A [Value] is pending until its [Provider] resolves it. Observers
// registered with [Value.Wait] run synchronously on the goroutine that calls
// [Provider.Resolve] or [Provider.Reject], in registration order. Waiting on
// an already resolved value calls the observer immediately:
//
//	p := async.NewProvider[string]()
//	p.Value().Wait(func(s string, err error) { fmt.Println(s) })
//	p.Resolve("hi") // prints "hi"
//
// Resolving a value twice, or reading the result of a pending value, panics
// with a [*ContractViolation].
//
// # Chains
//
// A chain is a function written as a state machine over resume points.
// Locals that live across an await are declared outside the body:
//
//	func sum(a, b *async.Value[string]) *async.Value[string] {
//	    var x, y string
//	    return async.Begin(func(f *async.Frame[string]) {
//	        switch f.At() {
//	        case 0:
//	            async.Await(f, 1, a, &x)
//	        case 1:
//	            async.Await(f, 2, b, &y)
//	        case 2:
//	            f.Return(x + y)
//	        }
//	    })
//	}
//
// When every awaited value is already resolved the chain completes inside
// [Begin]. Otherwise it suspends at the first pending value and resumes on
// the goroutine that resolves it. Errors, rejected dependencies and panics
// inside the body reject the chain's own value.
//
// Frames that suspended at least once are counted in [diag.Registry] until
// their chain completes.
package async
