// Package reactive is a fine-grained reactive state runtime.
//
// Signals hold values, computeds derive values from other signals, and
// effects run side effects. Dependencies are tracked automatically at run
// time: reading a signal while an effect, computed or observer runs
// subscribes it, and writing the signal re-runs exactly the dependents
// whose inputs changed.
//
// # Core Types
//
// Signal[T] is a mutable reactive value:
//
//	rt := reactive.NewRuntime(reactive.Config{})
//	count := reactive.NewSignal(rt, 0)
//	value := count.Get() // Read (subscribes the running observer)
//	count.Set(5)         // Write (notifies subscribers)
//
// Computed[T] is a lazily cached derivation:
//
//	doubled := reactive.NewComputed(rt, func() int { return count.Get() * 2 })
//	value := doubled.Get() // Recomputes only if count changed
//
// Effect runs a callback now and whenever what it read changes:
//
//	e, err := rt.Effect(func() error {
//	    fmt.Println("doubled is", doubled.Get())
//	    return nil
//	})
//	defer e.Dispose()
//
// # Propagation
//
// A write marks every downstream computed stale in one pass and queues the
// affected effects; the queue is then flushed before the write returns.
// Computeds recompute on read, so an effect never sees a mix of old and new
// values in a diamond-shaped graph, and a computed that recomputes to an
// equal value stops propagation. A computed subscribes to its sources only
// while something observes it; an unobserved computed checks its sources'
// versions when read instead, so reading one never ties it to a signal's
// lifetime. Writes made while effects run are queued
// onto the same pass, so an effect dirtied twice runs once. Batch defers the
// flush explicitly:
//
//	rt.Batch(func() {
//	    a.Set(1)
//	    b.Set(2)
//	}) // effects reading a and b run once
//
// # Host Integration
//
// A host framework installs Host hooks through Config.Host. Consume then
// wraps a unit of work (a component render, say) in a tracking region and
// guarantees the region is closed on every exit path; ObserverHost is the
// reference integration that invalidates the consumer when something it
// read changes.
//
// # Threading
//
// A Runtime is confined to one goroutine and does no locking. Use one
// Runtime per goroutine; Config.CheckGoroutine catches violations.
package reactive
