package reactive

import (
	"errors"
	"testing"
)

func TestBatchCoalescesWrites(t *testing.T) {
	rt := newTestRuntime()
	first := NewSignal(rt, "")
	last := NewSignal(rt, "")

	var seen []string
	mustEffect(t, rt, func() error {
		seen = append(seen, first.Get()+" "+last.Get())
		return nil
	})

	err := rt.Batch(func() {
		_ = first.Set("John")
		_ = last.Set("Doe")
		if len(seen) != 1 {
			t.Errorf("expected no re-run inside batch, got %v", seen)
		}
	})
	if err != nil {
		t.Fatalf("Batch() error: %v", err)
	}
	if len(seen) != 2 || seen[1] != "John Doe" {
		t.Errorf("expected one re-run with both values, got %v", seen)
	}
}

func TestNestedBatch(t *testing.T) {
	rt := newTestRuntime()
	s := NewSignal(rt, 0)

	runs := 0
	mustEffect(t, rt, func() error {
		s.Get()
		runs++
		return nil
	})

	_ = rt.Batch(func() {
		_ = s.Set(1)
		_ = rt.Tx(func() {
			_ = s.Set(2)
		})
		if runs != 1 {
			t.Errorf("expected inner batch not to flush, got %d runs", runs)
		}
		_ = s.Set(3)
	})
	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}
}

func TestBatchReturnsEffectFailures(t *testing.T) {
	rt := newTestRuntime()
	s := NewSignal(rt, 0)
	boom := errors.New("boom")

	mustEffect(t, rt, func() error {
		if s.Get() != 0 {
			return boom
		}
		return nil
	})

	err := rt.TxNamed("update", func() {
		_ = s.Set(1)
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected batch to return effect failure, got %v", err)
	}
}

func TestBatchRevertedValueSkipsRerun(t *testing.T) {
	rt := newTestRuntime()
	s := NewSignal(rt, 0)
	parity := NewComputed(rt, func() bool { return s.Get()%2 == 0 })

	runs := 0
	mustEffect(t, rt, func() error {
		parity.Get()
		runs++
		return nil
	})

	_ = rt.Batch(func() {
		_ = s.Set(1)
		_ = s.Set(2)
	})
	if runs != 1 {
		t.Errorf("expected effect to skip when the computed settled on an equal value, got %d runs", runs)
	}
}
