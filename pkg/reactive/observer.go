package reactive

import "errors"

// Observer is a tracking scope driven from outside the runtime, typically by
// a host framework around a component render. Between Begin and End every
// signal read is attributed to the observer; End commits that read set as
// its dependencies. When one of them changes, onChange runs during the
// flush. onChange does not re-track; the host is expected to start a new
// Begin/End region, which replaces the dependencies.
type Observer struct {
	n *node
	f *frame
}

// NewObserver creates an observer that calls onChange when a dependency of
// its last committed region changes.
func (rt *Runtime) NewObserver(onChange func()) *Observer {
	rt.enter()
	n := rt.newNode(KindObserver, "")
	n.run = func() error {
		if onChange != nil {
			onChange()
		}
		return nil
	}
	return &Observer{n: n}
}

// Begin starts a tracking region. Effects and cleanups owned by the previous
// region are disposed first. Beginning an observer whose region is still
// open abandons that region without committing it.
func (o *Observer) Begin() {
	rt := o.n.rt
	rt.enter()
	if o.f != nil {
		rt.pop(o.f)
		o.f = nil
	}
	o.n.disposeOwned()
	o.n.runCleanups()
	o.f = &frame{owner: o.n}
	rt.push(o.f)
}

// End closes the region started by Begin. When err is nil the reads of the
// region replace the observer's dependencies; otherwise the previous
// dependencies stay in place.
//
// End returns ErrFrameMismatch when the region was not open or when regions
// opened after it were left unclosed; those are closed without committing.
func (o *Observer) End(err error) error {
	rt := o.n.rt
	rt.enter()
	f := o.f
	if f == nil {
		return ErrFrameMismatch
	}
	o.f = nil

	found, nested := rt.pop(f)
	if !found {
		return ErrFrameMismatch
	}
	if err == nil && !o.n.disposed {
		o.n.commitDeps(f)
		rt.recheck(o.n)
	}

	var errs []error
	if nested {
		errs = append(errs, ErrFrameMismatch)
	}
	if rt.batchDepth == 0 && len(rt.queue) > 0 {
		errs = append(errs, rt.flush())
	}
	return errors.Join(errs...)
}

// Dispose removes all dependency edges; onChange is never called again.
// An open region is closed without committing. Idempotent.
func (o *Observer) Dispose() {
	rt := o.n.rt
	rt.enter()
	if o.f != nil {
		rt.pop(o.f)
		o.f = nil
	}
	o.n.dispose()
}

// Disposed reports whether Dispose has been called.
func (o *Observer) Disposed() bool {
	return o.n.disposed
}

// Active reports whether a region is open.
func (o *Observer) Active() bool {
	return o.f != nil
}

// ID returns the unique identifier for this observer.
func (o *Observer) ID() uint64 {
	return o.n.id
}

// Dependencies returns the IDs of the sources read in the last committed
// region.
func (o *Observer) Dependencies() []uint64 {
	return o.n.depIDs()
}

// Observe runs fn inside a region of o and ends it, on every exit path,
// with fn's error.
func (o *Observer) Observe(fn func() error) (err error) {
	o.Begin()
	defer func() {
		err = errors.Join(err, o.End(err))
	}()
	return callSafe(fn)
}
