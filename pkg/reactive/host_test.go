package reactive

import (
	"errors"
	"testing"
)

// testComponent is a Consumer that counts invalidations.
type testComponent struct {
	name        string
	invalidated int
}

func (c *testComponent) Invalidate() {
	c.invalidated++
}

func TestConsumeWithObserverHost(t *testing.T) {
	rt := NewRuntime(Config{Host: ObserverHost(), CheckGoroutine: true})
	title := NewSignal(rt, "hello")
	unrelated := NewSignal(rt, 0)
	comp := &testComponent{name: "header"}

	var rendered string
	render := func() error {
		return rt.Consume(comp, func() error {
			rendered = title.Get()
			return nil
		})
	}
	if err := render(); err != nil {
		t.Fatalf("Consume() error: %v", err)
	}
	if rendered != "hello" {
		t.Fatalf("expected hello, got %q", rendered)
	}

	o := rt.ObserverFor(comp)
	if o == nil {
		t.Fatal("expected an observer for the consumer")
	}
	assertIDs(t, "observer deps", o.Dependencies(), title.ID())

	_ = unrelated.Set(1)
	if comp.invalidated != 0 {
		t.Errorf("expected unrelated write not to invalidate, got %d", comp.invalidated)
	}
	_ = title.Set("world")
	if comp.invalidated != 1 {
		t.Errorf("expected 1 invalidation, got %d", comp.invalidated)
	}

	// The host re-renders; the same observer is reused.
	if err := render(); err != nil {
		t.Fatalf("Consume() error: %v", err)
	}
	if rt.ObserverFor(comp) != o {
		t.Error("expected observer to be reused across consumptions")
	}
	if rendered != "world" {
		t.Errorf("expected world, got %q", rendered)
	}

	rt.Release(comp)
	if !o.Disposed() {
		t.Error("expected Release to dispose the observer")
	}
	_ = title.Set("again")
	if comp.invalidated != 1 {
		t.Errorf("expected no invalidation after release, got %d", comp.invalidated)
	}
	if err := rt.CheckEdges(); err != nil {
		t.Fatalf("CheckEdges: %v", err)
	}
}

func TestConsumeClosesRegionOnErrorAndPanic(t *testing.T) {
	rt := NewRuntime(Config{Host: ObserverHost()})
	s := NewSignal(rt, 0)
	comp := &testComponent{}
	boom := errors.New("render failed")

	if err := rt.Consume(comp, func() error {
		s.Get()
		return nil
	}); err != nil {
		t.Fatalf("Consume() error: %v", err)
	}

	other := NewSignal(rt, 0)
	err := rt.Consume(comp, func() error {
		other.Get()
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected render error, got %v", err)
	}
	if st := rt.Stats(); st.Frames != 0 || st.BatchDepth != 0 {
		t.Fatalf("expected region closed after error, got %+v", st)
	}
	// The failed consumption kept the previous dependencies.
	assertIDs(t, "deps", rt.ObserverFor(comp).Dependencies(), s.ID())

	err = rt.Consume(comp, func() error {
		panic("render panicked")
	})
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PanicError, got %v", err)
	}
	if st := rt.Stats(); st.Frames != 0 || st.BatchDepth != 0 {
		t.Fatalf("expected region closed after panic, got %+v", st)
	}
}

func TestConsumeDefersWritesUntilRegionCloses(t *testing.T) {
	rt := NewRuntime(Config{Host: ObserverHost()})
	s := NewSignal(rt, 0)
	comp := &testComponent{}

	effectRuns := 0
	mustEffect(t, rt, func() error {
		s.Get()
		effectRuns++
		return nil
	})

	err := rt.Consume(comp, func() error {
		_ = s.Set(1)
		if effectRuns != 1 {
			t.Errorf("expected effect deferred during consumption, got %d runs", effectRuns)
		}
		s.Get()
		return nil
	})
	if err != nil {
		t.Fatalf("Consume() error: %v", err)
	}
	if effectRuns != 2 {
		t.Errorf("expected effect to run once the region closed, got %d runs", effectRuns)
	}
	if comp.invalidated != 0 {
		t.Errorf("expected consumer that read the new value not to be invalidated, got %d", comp.invalidated)
	}
}

func TestConsumeInvalidatesWhenReadValueChangedDuringRegion(t *testing.T) {
	rt := NewRuntime(Config{Host: ObserverHost()})
	s := NewSignal(rt, 0)
	comp := &testComponent{}

	_ = rt.Consume(comp, func() error {
		s.Get()
		_ = s.Set(1)
		return nil
	})
	if comp.invalidated != 1 {
		t.Errorf("expected consumer to be invalidated for the stale read, got %d", comp.invalidated)
	}
}

func TestConsumeWithoutHooks(t *testing.T) {
	rt := newTestRuntime()
	s := NewSignal(rt, 0)
	comp := &testComponent{}

	ran := false
	err := rt.Consume(comp, func() error {
		ran = true
		s.Get()
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("expected fn to run without hooks, ran=%v err=%v", ran, err)
	}
	if len(s.Subscribers()) != 0 {
		t.Error("expected no tracking without hooks")
	}
}

func TestCustomHooks(t *testing.T) {
	var calls []string
	host := Host{
		OnConsume: func(rt *Runtime, c Consumer) *Observer {
			calls = append(calls, "consume:"+c.(*testComponent).name)
			o := rt.NewObserver(c.Invalidate)
			o.Begin()
			return o
		},
		OnConsumed: func(rt *Runtime, o *Observer, err error) error {
			calls = append(calls, "consumed")
			return o.End(err)
		},
	}
	rt := NewRuntime(Config{Host: host})
	s := NewSignal(rt, 0)
	comp := &testComponent{name: "list"}

	cs := rt.BeginConsume(comp)
	s.Get()
	o := cs.Observer()
	if err := cs.End(nil); err != nil {
		t.Fatalf("End() error: %v", err)
	}
	if err := cs.End(nil); err != nil {
		t.Errorf("expected second End to be a no-op, got %v", err)
	}

	if len(calls) != 2 || calls[0] != "consume:list" || calls[1] != "consumed" {
		t.Errorf("unexpected hook calls %v", calls)
	}
	assertIDs(t, "deps", o.Dependencies(), s.ID())

	_ = s.Set(1)
	if comp.invalidated != 1 {
		t.Errorf("expected 1 invalidation, got %d", comp.invalidated)
	}
}

func TestConsumedHookPanicClosesRegion(t *testing.T) {
	fail := true
	rt := NewRuntime(Config{Host: Host{
		OnConsumed: func(*Runtime, *Observer, error) error {
			if fail {
				fail = false
				panic("hook failed")
			}
			return nil
		},
	}})

	func() {
		defer func() {
			if r := recover(); r != "hook failed" {
				t.Errorf("expected hook panic to propagate, got %v", r)
			}
		}()
		_ = rt.Consume(&testComponent{}, func() error { return nil })
	}()
	if depth := rt.Stats().BatchDepth; depth != 0 {
		t.Fatalf("expected region batch to be closed, depth %d", depth)
	}

	s := NewSignal(rt, 0)
	runs := 0
	mustEffect(t, rt, func() error {
		s.Get()
		runs++
		return nil
	})
	if err := s.Set(1); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if runs != 2 {
		t.Errorf("expected write to flush after the hook panic, got %d runs", runs)
	}
	if err := rt.Consume(&testComponent{}, func() error { return nil }); err != nil {
		t.Errorf("Consume() error after recovery: %v", err)
	}
}

func TestObserverFrameMismatch(t *testing.T) {
	rt := newTestRuntime()
	s := NewSignal(rt, 0)
	outer := rt.NewObserver(nil)
	inner := rt.NewObserver(nil)

	if err := outer.End(nil); !errors.Is(err, ErrFrameMismatch) {
		t.Errorf("expected ErrFrameMismatch for End without Begin, got %v", err)
	}

	outer.Begin()
	inner.Begin()
	s.Get()
	if err := outer.End(nil); !errors.Is(err, ErrFrameMismatch) {
		t.Errorf("expected ErrFrameMismatch for improperly nested End, got %v", err)
	}
	if err := inner.End(nil); !errors.Is(err, ErrFrameMismatch) {
		t.Errorf("expected ErrFrameMismatch for discarded inner region, got %v", err)
	}
	if st := rt.Stats(); st.Frames != 0 {
		t.Errorf("expected empty stack, got %d frames", st.Frames)
	}
	if len(inner.Dependencies()) != 0 {
		t.Error("expected discarded region not to commit")
	}
}

func TestObserverObserve(t *testing.T) {
	rt := newTestRuntime()
	s := NewSignal(rt, 0)
	changes := 0
	o := rt.NewObserver(func() { changes++ })

	if err := o.Observe(func() error {
		s.Get()
		return nil
	}); err != nil {
		t.Fatalf("Observe() error: %v", err)
	}
	_ = s.Set(1)
	_ = s.Set(2)
	if changes != 2 {
		t.Errorf("expected 2 change notifications, got %d", changes)
	}

	o.Dispose()
	o.Dispose()
	_ = s.Set(3)
	if changes != 2 {
		t.Errorf("expected no notifications after dispose, got %d", changes)
	}
}
