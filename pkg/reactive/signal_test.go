package reactive

import (
	"errors"
	"testing"
)

func newTestRuntime() *Runtime {
	return NewRuntime(Config{CheckGoroutine: true})
}

func mustEffect(t *testing.T, rt *Runtime, fn func() error, opts ...EffectOption) *Effect {
	t.Helper()
	e, err := rt.Effect(fn, opts...)
	if err != nil {
		t.Fatalf("Effect() error: %v", err)
	}
	return e
}

func TestSignalGetSet(t *testing.T) {
	rt := newTestRuntime()
	s := NewSignal(rt, 10)

	if got := s.Get(); got != 10 {
		t.Errorf("expected 10, got %d", got)
	}
	if err := s.Set(20); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if got := s.Get(); got != 20 {
		t.Errorf("expected 20, got %d", got)
	}
}

func TestSignalUpdate(t *testing.T) {
	rt := newTestRuntime()
	s := NewSignal(rt, 1)

	if err := s.Update(func(n int) int { return n + 41 }); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if got := s.Peek(); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestSignalSameValueDoesNotNotify(t *testing.T) {
	rt := newTestRuntime()
	s := NewSignal(rt, "a")

	runs := 0
	mustEffect(t, rt, func() error {
		s.Get()
		runs++
		return nil
	})

	_ = s.Set("a")
	_ = s.Update(func(v string) string { return v })
	if runs != 1 {
		t.Errorf("expected 1 run, got %d", runs)
	}

	_ = s.Set("b")
	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}
}

func TestSignalStructuralEquality(t *testing.T) {
	rt := newTestRuntime()
	s := NewSignal(rt, []int{1, 2, 3})

	runs := 0
	mustEffect(t, rt, func() error {
		s.Get()
		runs++
		return nil
	})

	_ = s.Set([]int{1, 2, 3})
	if runs != 1 {
		t.Errorf("expected deep-equal slice to be a no-op, got %d runs", runs)
	}
	_ = s.Set([]int{1, 2})
	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}
}

func TestSignalWithEquals(t *testing.T) {
	rt := newTestRuntime()
	type user struct {
		ID   int
		Name string
	}
	s := NewSignal(rt, user{ID: 1, Name: "a"}).WithEquals(func(a, b user) bool {
		return a.ID == b.ID
	})

	runs := 0
	mustEffect(t, rt, func() error {
		s.Get()
		runs++
		return nil
	})

	_ = s.Set(user{ID: 1, Name: "renamed"})
	if runs != 1 {
		t.Errorf("expected custom equality to suppress the write, got %d runs", runs)
	}
	if got := s.Peek().Name; got != "a" {
		t.Errorf("expected suppressed write to keep old value, got %q", got)
	}
	_ = s.Set(user{ID: 2})
	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}
}

func TestSignalPeekDoesNotSubscribe(t *testing.T) {
	rt := newTestRuntime()
	s := NewSignal(rt, 0)

	runs := 0
	e := mustEffect(t, rt, func() error {
		s.Peek()
		runs++
		return nil
	})

	_ = s.Set(1)
	if runs != 1 {
		t.Errorf("expected Peek not to subscribe, got %d runs", runs)
	}
	if deps := e.Dependencies(); len(deps) != 0 {
		t.Errorf("expected no dependencies, got %v", deps)
	}
}

func TestSignalSetReturnsEffectFailures(t *testing.T) {
	rt := newTestRuntime()
	s := NewSignal(rt, 0)
	boom := errors.New("boom")

	mustEffect(t, rt, func() error {
		if s.Get() > 0 {
			return boom
		}
		return nil
	}, EffectName("fails-when-positive"))

	err := s.Set(1)
	if !errors.Is(err, boom) {
		t.Fatalf("expected Set to surface effect failure, got %v", err)
	}
	var re *RunError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RunError, got %T", err)
	}
	if re.Name != "fails-when-positive" || re.Kind != KindEffect {
		t.Errorf("unexpected RunError %+v", re)
	}
}

func TestSignalNamedAndID(t *testing.T) {
	rt := newTestRuntime()
	a := NewSignal(rt, 0).Named("a")
	b := NewSignal(rt, 0)

	if a.ID() == b.ID() {
		t.Error("expected distinct IDs")
	}
	if a.n.name != "a" {
		t.Errorf("expected name a, got %q", a.n.name)
	}
}
