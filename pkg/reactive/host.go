package reactive

import "errors"

// Consumer is an external unit of work, such as a component, that wants to
// be re-run when anything it read during its last consumption changes.
// Consumers are used as map keys by ObserverHost and must be comparable;
// pointer types are the usual choice.
type Consumer interface {
	// Invalidate is called during a flush when a dependency changed.
	// It should schedule the unit of work, not run it synchronously.
	Invalidate()
}

// ConsumeHook begins a tracking region for c and returns the observer that
// represents it. It may return nil when the host tracks nothing for c.
type ConsumeHook func(rt *Runtime, c Consumer) *Observer

// ConsumedHook closes the region returned by the matching ConsumeHook.
// err is the unit of work's own failure, nil on success.
type ConsumedHook func(rt *Runtime, o *Observer, err error) error

// Host is the integration point of a host framework. It is installed once
// through Config.Host when the runtime is created. The rest of the runtime
// is unaware of it: the hooks drive regions through the same Observer API
// available to anyone.
type Host struct {
	OnConsume  ConsumeHook
	OnConsumed ConsumedHook
}

// Consumption is an open consumption region.
type Consumption struct {
	rt   *Runtime
	o    *Observer
	done bool
}

// BeginConsume opens a consumption region for c. Callers must close it with
// End on every exit path, usually with defer:
//
//	cs := rt.BeginConsume(comp)
//	defer func() { err = errors.Join(err, cs.End(err)) }()
//
// Writes made while the region is open are deferred until it closes.
// Prefer Consume when the unit of work fits in a closure.
func (rt *Runtime) BeginConsume(c Consumer) *Consumption {
	rt.enter()
	cs := &Consumption{rt: rt}
	if rt.host.OnConsume != nil {
		cs.o = rt.host.OnConsume(rt, c)
	}
	rt.beginBatch()
	return cs
}

// End closes the region with the unit of work's error. The returned error
// joins a failure of the OnConsumed hook with the failures of effects that
// re-ran once the region's deferred writes were flushed. Calling End more
// than once is a no-op.
func (cs *Consumption) End(err error) (endErr error) {
	if cs.done {
		return nil
	}
	cs.done = true
	rt := cs.rt
	rt.enter()

	// The region's batch closes even when the hook panics.
	defer func() {
		endErr = errors.Join(endErr, rt.endBatch())
	}()
	if rt.host.OnConsumed != nil {
		return rt.host.OnConsumed(rt, cs.o, err)
	}
	return nil
}

// Observer returns the observer the OnConsume hook returned, or nil.
func (cs *Consumption) Observer() *Observer {
	return cs.o
}

// Consume runs fn as a unit of work on behalf of c, between the host's
// OnConsume and OnConsumed hooks. OnConsumed runs on every exit path,
// including a panic in fn, which is returned as a *PanicError. With no hooks
// installed fn simply runs.
func (rt *Runtime) Consume(c Consumer, fn func() error) (err error) {
	cs := rt.BeginConsume(c)
	defer func() {
		err = errors.Join(err, cs.End(err))
	}()
	return callSafe(fn)
}

// ObserverHost returns the reference host integration: each Consumer gets
// one Observer, kept by the runtime, whose region spans each consumption.
// When a dependency changes the consumer's Invalidate is called. Release
// disposes a consumer's observer once the unit of work is gone for good.
func ObserverHost() Host {
	return Host{
		OnConsume: func(rt *Runtime, c Consumer) *Observer {
			o := rt.consumers[c]
			if o == nil || o.Disposed() {
				o = rt.NewObserver(c.Invalidate)
				rt.consumers[c] = o
			}
			o.Begin()
			return o
		},
		OnConsumed: func(rt *Runtime, o *Observer, err error) error {
			if o == nil {
				return nil
			}
			return o.End(err)
		},
	}
}

// Release disposes the observer ObserverHost keeps for c, if any.
func (rt *Runtime) Release(c Consumer) {
	rt.enter()
	o, ok := rt.consumers[c]
	if !ok {
		return
	}
	delete(rt.consumers, c)
	o.Dispose()
}

// ObserverFor returns the observer ObserverHost keeps for c, or nil.
func (rt *Runtime) ObserverFor(c Consumer) *Observer {
	return rt.consumers[c]
}
