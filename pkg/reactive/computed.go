package reactive

import "time"

// Computed is a memoized value derived from other signals.
//
// Computeds are lazy: the derivation runs on the first read and again only
// when a read finds that a dependency changed. A write upstream marks the
// whole downstream chain stale at once; a recomputation that produces an
// equal value stops propagation there.
//
// Derivations must be pure. Writing a signal from a derivation fails the
// read that triggered it with ErrWriteInDerivation.
type Computed[T any] struct {
	n     *node
	fn    func() T
	value T

	// equal decides whether a recomputation changed the value.
	// If nil, defaultEquals is used.
	equal func(T, T) bool
}

// NewComputed creates a computed from a derivation function.
// The derivation is not run until the first read.
func NewComputed[T any](rt *Runtime, fn func() T) *Computed[T] {
	rt.enter()
	c := &Computed[T]{fn: fn}
	c.n = rt.newNode(KindComputed, "")
	c.n.compute = c.evaluate
	return c
}

// Get returns the current value, recomputing it if needed, and subscribes
// the current observer. If the derivation fails, Get panics with the
// *RunError; effects and enclosing derivations recover it and fail with it.
// Use Read to handle the failure as an error.
func (c *Computed[T]) Get() T {
	v, err := c.Read()
	if err != nil {
		panic(err)
	}
	return v
}

// Read is like Get but returns a derivation failure instead of panicking.
// On failure the last successfully computed value is returned.
func (c *Computed[T]) Read() (T, error) {
	rt := c.n.rt
	rt.enter()
	err := c.n.refresh()
	rt.track(c.n)
	return c.value, err
}

// Peek returns the current value without subscribing.
// It still recomputes when the value is out of date.
func (c *Computed[T]) Peek() T {
	c.n.rt.enter()
	_ = c.n.refresh()
	return c.value
}

// Dispose removes the computed's dependency edges. Afterwards it keeps
// returning its last value. Idempotent.
func (c *Computed[T]) Dispose() {
	c.n.rt.enter()
	c.n.dispose()
}

// WithEquals configures the computed with a custom equality function.
func (c *Computed[T]) WithEquals(fn func(T, T) bool) *Computed[T] {
	c.equal = fn
	return c
}

// Named sets a debug name used in errors, logs and snapshots.
func (c *Computed[T]) Named(name string) *Computed[T] {
	c.n.name = name
	return c
}

// ID returns the unique identifier for this computed.
func (c *Computed[T]) ID() uint64 {
	return c.n.id
}

// Dependencies returns the IDs of the sources read by the last successful
// derivation.
func (c *Computed[T]) Dependencies() []uint64 {
	return c.n.depIDs()
}

// Subscribers returns the IDs of the observers currently depending on c.
func (c *Computed[T]) Subscribers() []uint64 {
	return c.n.subIDs()
}

func (c *Computed[T]) evaluate() (func() bool, error) {
	var v T
	err := callSafe(func() error {
		v = c.fn()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return func() bool {
		changed := !c.n.hasValue || !c.equals(c.value, v)
		c.value = v
		return changed
	}, nil
}

func (c *Computed[T]) equals(a, b T) bool {
	if c.equal != nil {
		return c.equal(a, b)
	}
	return defaultEquals(a, b)
}

// refresh brings a computed node up to date. A stale node whose sources all
// kept their versions is revalidated without running the derivation. An
// unobserved node is never marked by writes, so its clean state only holds
// within the write epoch it was checked in. A failure is returned again
// without re-running the derivation until something is written.
func (n *node) refresh() error {
	if n.disposed {
		return nil
	}
	if n.computing {
		if f := n.rt.innermostDerivation(); f != nil && f.violation == nil {
			f.violation = ErrCircularDependency
		}
		return newRunError(n, ErrCircularDependency)
	}
	rt := n.rt
	switch {
	case n.state == stateClean && (n.watched() || n.epoch == rt.epoch):
		return nil
	case n.state == stateDirty && n.err != nil && n.epoch == rt.epoch:
		return n.err
	}
	if n.state != stateDirty && n.hasValue && !n.sourcesChanged() {
		n.state = stateClean
		n.epoch = rt.epoch
		return nil
	}
	return n.recompute()
}

// recompute runs the derivation in a fresh frame. The new dependency set is
// committed only when the derivation succeeds.
func (n *node) recompute() error {
	rt := n.rt
	f := &frame{owner: n}

	n.computing = true
	rt.push(f)
	start := time.Now()
	commit, err := n.compute()
	rt.pop(f)
	n.computing = false

	if err == nil && f.violation != nil {
		err = f.violation
	}
	err = newRunError(n, err)
	rt.emit(Event{Kind: EventRecompute, NodeID: n.id, Name: n.name, Node: n.kind, Start: start, Duration: time.Since(start), Err: err})
	n.epoch = rt.epoch
	n.err = err
	if err != nil {
		n.state = stateDirty
		return err
	}

	if commit() {
		n.version++
	}
	n.hasValue = true
	n.state = stateClean
	if !n.disposed {
		n.commitDeps(f)
	}
	return nil
}
