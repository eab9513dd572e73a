package reactive

import (
	"encoding/json"
	"testing"
)

func TestSnapshot(t *testing.T) {
	rt := newTestRuntime()
	a := NewSignal(rt, 1).Named("a")
	sum := NewComputed(rt, func() int { return a.Get() + 1 }).Named("sum")
	e := mustEffect(t, rt, func() error {
		sum.Get()
		return nil
	}, EffectName("printer"))

	snap := rt.Snapshot()
	if len(snap.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %+v", snap.Nodes)
	}

	byID := map[uint64]NodeInfo{}
	for _, n := range snap.Nodes {
		byID[n.ID] = n
	}
	if n := byID[a.ID()]; n.Kind != "signal" || n.Name != "a" || len(n.Subs) != 1 || n.Subs[0] != sum.ID() {
		t.Errorf("unexpected signal node %+v", n)
	}
	if n := byID[sum.ID()]; n.Kind != "computed" || n.State != "clean" || n.Version != 1 {
		t.Errorf("unexpected computed node %+v", n)
	}
	if n := byID[e.ID()]; n.Kind != "effect" || n.Name != "printer" || len(n.Deps) != 1 {
		t.Errorf("unexpected effect node %+v", n)
	}

	if _, err := json.Marshal(snap); err != nil {
		t.Fatalf("snapshot should marshal: %v", err)
	}
}

func TestSnapshotShowsStaleComputed(t *testing.T) {
	rt := newTestRuntime()
	a := NewSignal(rt, 1)
	c := NewComputed(rt, func() int { return a.Get() })
	o := rt.NewObserver(nil)
	_ = o.Observe(func() error {
		c.Get()
		return nil
	})

	var state string
	_ = rt.Batch(func() {
		_ = a.Set(2)
		for _, n := range rt.Snapshot().Nodes {
			if n.ID == c.ID() {
				state = n.State
			}
		}
	})
	if state != "stale" {
		t.Errorf("expected stale computed inside the batch, got %q", state)
	}
	if got := c.Peek(); got != 2 {
		t.Errorf("expected 2 after the batch, got %d", got)
	}
}

func TestStats(t *testing.T) {
	rt := NewRuntime(Config{Host: ObserverHost()})
	comp := &testComponent{}
	_ = rt.Consume(comp, func() error { return nil })

	st := rt.Stats()
	if st.Roots != 1 || st.Consumers != 1 || st.Frames != 0 || st.Queued != 0 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestRuntimeEdgeLookup(t *testing.T) {
	rt := newTestRuntime()
	a := NewSignal(rt, 1)
	b := NewSignal(rt, 2)
	sum := NewComputed(rt, func() int { return a.Get() + b.Get() })
	e := mustEffect(t, rt, func() error {
		sum.Get()
		return nil
	})

	assertIDs(t, "sum deps", rt.Dependencies(sum.ID()), a.ID(), b.ID())
	assertIDs(t, "a subs", rt.Subscribers(a.ID()), sum.ID())
	assertIDs(t, "effect deps", rt.Dependencies(e.ID()), sum.ID())
	if got := rt.Dependencies(^uint64(0)); got != nil {
		t.Errorf("unknown id should yield nil, got %v", got)
	}
}
