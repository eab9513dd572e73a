package reactive

import "errors"

// Effect is a side effect that re-runs whenever a signal or computed it read
// during its last successful run changes.
//
// Effects created, and cleanups registered with Runtime.OnCleanup, during an
// effect's run belong to that run: they are disposed, or run, before the
// next run and when the effect is disposed.
type Effect struct {
	n *node
}

// EffectOption configures an Effect.
type EffectOption interface {
	applyEffect(c *effectConfig)
}

type effectConfig struct {
	name string
}

type effectOptionFunc func(*effectConfig)

func (f effectOptionFunc) applyEffect(c *effectConfig) { f(c) }

// EffectName sets the effect's debug name, used in errors, logs and
// snapshots.
func EffectName(name string) EffectOption {
	return effectOptionFunc(func(c *effectConfig) {
		c.name = name
	})
}

// Effect creates an effect and runs it immediately.
//
// The returned error is the failure of the initial run, joined with the
// failures of any effects that run re-triggered. A failed run commits no
// dependencies; the effect stays registered and can be retried with Run or
// released with Dispose.
//
// Example:
//
//	e, err := rt.Effect(func() error {
//	    fmt.Println("Count is:", count.Get())
//	    return nil
//	})
//	defer e.Dispose()
func (rt *Runtime) Effect(fn func() error, opts ...EffectOption) (*Effect, error) {
	rt.enter()
	var cfg effectConfig
	for _, opt := range opts {
		opt.applyEffect(&cfg)
	}

	n := rt.newNode(KindEffect, cfg.name)
	n.run = fn
	e := &Effect{n: n}

	rt.beginBatch()
	err := rt.execute(n)
	return e, errors.Join(err, rt.endBatch())
}

// Run re-runs the effect now, regardless of whether its dependencies
// changed. It is a no-op on a disposed effect.
func (e *Effect) Run() error {
	rt := e.n.rt
	rt.enter()
	if e.n.disposed {
		return nil
	}
	rt.beginBatch()
	err := rt.execute(e.n)
	return errors.Join(err, rt.endBatch())
}

// Dispose removes all of the effect's dependency edges and guarantees it
// never runs again. Disposing twice is a no-op.
func (e *Effect) Dispose() {
	e.n.rt.enter()
	e.n.dispose()
}

// Disposed reports whether Dispose has been called.
func (e *Effect) Disposed() bool {
	return e.n.disposed
}

// ID returns the unique identifier for this effect.
func (e *Effect) ID() uint64 {
	return e.n.id
}

// Dependencies returns the IDs of the sources read by the last successful
// run.
func (e *Effect) Dependencies() []uint64 {
	return e.n.depIDs()
}
