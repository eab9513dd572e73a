package reactive

import (
	"errors"
	"testing"
)

func TestEffectRunsImmediately(t *testing.T) {
	rt := newTestRuntime()
	s := NewSignal(rt, 1)

	var seen []int
	mustEffect(t, rt, func() error {
		seen = append(seen, s.Get())
		return nil
	})

	if len(seen) != 1 || seen[0] != 1 {
		t.Fatalf("expected initial run with 1, got %v", seen)
	}
	_ = s.Set(2)
	_ = s.Set(3)
	if len(seen) != 3 || seen[2] != 3 {
		t.Errorf("expected runs [1 2 3], got %v", seen)
	}
}

func TestEffectDependencyAccuracy(t *testing.T) {
	rt := newTestRuntime()
	flag := NewSignal(rt, true)
	a := NewSignal(rt, 0)
	b := NewSignal(rt, 0)

	runs := 0
	e := mustEffect(t, rt, func() error {
		runs++
		if flag.Get() {
			a.Get()
		} else {
			b.Get()
		}
		return nil
	})
	assertIDs(t, "deps", e.Dependencies(), flag.ID(), a.ID())

	_ = flag.Set(false)
	assertIDs(t, "deps", e.Dependencies(), flag.ID(), b.ID())
	if subs := a.Subscribers(); len(subs) != 0 {
		t.Errorf("expected edge from a to be removed, got %v", subs)
	}

	before := runs
	_ = a.Set(1)
	if runs != before {
		t.Errorf("expected write to dropped dependency not to re-run, got %d runs", runs-before)
	}
	_ = b.Set(1)
	if runs != before+1 {
		t.Errorf("expected write to new dependency to re-run once, got %d runs", runs-before)
	}
	if err := rt.CheckEdges(); err != nil {
		t.Fatalf("CheckEdges: %v", err)
	}
}

func TestEffectDispose(t *testing.T) {
	rt := newTestRuntime()
	a := NewSignal(rt, 0)
	b := NewSignal(rt, 0)

	runs := 0
	e := mustEffect(t, rt, func() error {
		a.Get()
		b.Get()
		runs++
		return nil
	})

	e.Dispose()
	if !e.Disposed() {
		t.Error("expected Disposed() to be true")
	}
	if deps := e.Dependencies(); len(deps) != 0 {
		t.Errorf("expected no dependencies after dispose, got %v", deps)
	}
	if len(a.Subscribers()) != 0 || len(b.Subscribers()) != 0 {
		t.Error("expected signals to have no subscribers after dispose")
	}

	_ = a.Set(1)
	_ = b.Set(1)
	if runs != 1 {
		t.Errorf("expected no re-run after dispose, got %d runs", runs)
	}

	e.Dispose()
	if err := e.Run(); err != nil {
		t.Errorf("expected Run on disposed effect to be a no-op, got %v", err)
	}
	if runs != 1 {
		t.Errorf("expected Run on disposed effect not to run, got %d runs", runs)
	}
}

func TestEffectDisposeDuringOwnRun(t *testing.T) {
	rt := newTestRuntime()
	s := NewSignal(rt, 0)

	var e *Effect
	runs := 0
	e = mustEffect(t, rt, func() error {
		runs++
		if s.Get() > 0 {
			e.Dispose()
		}
		return nil
	})

	_ = s.Set(1)
	if !e.Disposed() {
		t.Fatal("expected effect to be disposed")
	}
	if len(s.Subscribers()) != 0 {
		t.Errorf("expected disposal mid-run not to commit edges, got %v", s.Subscribers())
	}
	_ = s.Set(2)
	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}
}

func TestEffectInitialFailureCommitsNothing(t *testing.T) {
	rt := newTestRuntime()
	s := NewSignal(rt, 0)
	boom := errors.New("boom")

	fail := true
	e, err := rt.Effect(func() error {
		s.Get()
		if fail {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected initial failure, got %v", err)
	}
	if e == nil {
		t.Fatal("expected effect to be returned alongside the error")
	}
	if len(e.Dependencies()) != 0 || len(s.Subscribers()) != 0 {
		t.Error("expected failed run not to commit edges")
	}

	fail = false
	if err := e.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	assertIDs(t, "deps", e.Dependencies(), s.ID())
}

func TestEffectPanicIsRecovered(t *testing.T) {
	rt := newTestRuntime()
	_, err := rt.Effect(func() error {
		panic("kaboom")
	})

	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PanicError, got %v", err)
	}
	if pe.Value != "kaboom" || len(pe.Stack) == 0 {
		t.Errorf("unexpected PanicError %+v", pe)
	}
	if st := rt.Stats(); st.Frames != 0 || st.BatchDepth != 0 {
		t.Errorf("expected runtime state restored after panic, got %+v", st)
	}
}

func TestEffectCleanup(t *testing.T) {
	rt := newTestRuntime()
	s := NewSignal(rt, 0)

	var log []string
	e := mustEffect(t, rt, func() error {
		v := s.Get()
		rt.OnCleanup(func() {
			log = append(log, "cleanup", string(rune('0'+v)))
		})
		return nil
	})

	_ = s.Set(1)
	e.Dispose()

	want := []string{"cleanup", "0", "cleanup", "1"}
	if len(log) != len(want) {
		t.Fatalf("expected %v, got %v", want, log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, log)
		}
	}
}

func TestOnCleanupOutsideEffect(t *testing.T) {
	rt := newTestRuntime()
	if rt.OnCleanup(func() {}) {
		t.Error("expected OnCleanup outside an effect to report false")
	}
}

func TestEffectOwnsNestedEffects(t *testing.T) {
	rt := newTestRuntime()
	outer := NewSignal(rt, 0)
	inner := NewSignal(rt, 0)

	innerRuns := 0
	var children []*Effect
	parent := mustEffect(t, rt, func() error {
		outer.Get()
		child, err := rt.Effect(func() error {
			inner.Get()
			innerRuns++
			return nil
		})
		children = append(children, child)
		return err
	})

	_ = outer.Set(1)
	if len(children) != 2 {
		t.Fatalf("expected 2 child effects, got %d", len(children))
	}
	if !children[0].Disposed() {
		t.Error("expected first child to be disposed when the parent re-ran")
	}

	innerRuns = 0
	_ = inner.Set(1)
	if innerRuns != 1 {
		t.Errorf("expected only the live child to run, got %d runs", innerRuns)
	}

	parent.Dispose()
	if !children[1].Disposed() {
		t.Error("expected child to be disposed with its parent")
	}
	if subs := inner.Subscribers(); len(subs) != 0 {
		t.Errorf("expected no subscribers left, got %v", subs)
	}
}

func TestEffectWritingItsOwnDependencySettles(t *testing.T) {
	rt := newTestRuntime()
	s := NewSignal(rt, 0)

	runs := 0
	mustEffect(t, rt, func() error {
		runs++
		if v := s.Get(); v < 5 {
			return s.Set(v + 1)
		}
		return nil
	})

	if got := s.Peek(); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
	if runs != 6 {
		t.Errorf("expected 6 runs, got %d", runs)
	}
	if err := rt.CheckEdges(); err != nil {
		t.Fatalf("CheckEdges: %v", err)
	}
}

func TestEffectRunBudget(t *testing.T) {
	rt := NewRuntime(Config{MaxRunsPerFlush: 50})
	s := NewSignal(rt, 0)

	e, err := rt.Effect(func() error {
		return s.Set(s.Get() + 1)
	})
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
	if st := rt.Stats(); st.Queued != 0 || st.BatchDepth != 0 {
		t.Errorf("expected queue dropped, got %+v", st)
	}
	if err := rt.CheckEdges(); err != nil {
		t.Fatalf("CheckEdges after budget: %v", err)
	}
	e.Dispose()
	if len(s.Subscribers()) != 0 {
		t.Error("expected effect to dispose cleanly after budget")
	}
}
