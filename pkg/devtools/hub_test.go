package devtools

import (
	"errors"
	"sync"
	"testing"

	"github.com/fmal/impact/pkg/reactive"
)

func TestHubRingBuffer(t *testing.T) {
	h := NewHub(3)
	for i := 1; i <= 5; i++ {
		h.Observe(reactive.Event{Kind: reactive.EventWrite, NodeID: uint64(i), Node: reactive.KindSignal})
	}

	got := h.Events(0)
	if len(got) != 3 {
		t.Fatalf("expected 3 buffered events, got %d", len(got))
	}
	for i, rec := range got {
		if want := uint64(i + 3); rec.NodeID != want || rec.Seq != want {
			t.Errorf("event %d: got node %d seq %d, want %d", i, rec.NodeID, rec.Seq, want)
		}
	}

	last := h.Events(2)
	if len(last) != 2 || last[0].Seq != 4 || last[1].Seq != 5 {
		t.Errorf("Events(2) = %+v", last)
	}
}

func TestHubRecordFields(t *testing.T) {
	h := NewHub(0)
	h.Observe(reactive.Event{Kind: reactive.EventRun, NodeID: 9, Name: "render", Node: reactive.KindEffect, Err: errors.New("boom")})
	h.Observe(reactive.Event{Kind: reactive.EventFlush, Runs: 4})

	got := h.Events(0)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if r := got[0]; r.Kind != "run" || r.Node != "effect" || r.Name != "render" || r.Err != "boom" {
		t.Errorf("unexpected run record %+v", r)
	}
	if r := got[1]; r.Kind != "flush" || r.Node != "" || r.Runs != 4 {
		t.Errorf("unexpected flush record %+v", r)
	}
}

func TestHubPublish(t *testing.T) {
	h := NewHub(8)
	if _, ok := h.Latest(); ok {
		t.Fatal("expected no snapshot before Publish")
	}

	rt := reactive.NewRuntime(reactive.Config{Instrumentation: h})
	s := reactive.NewSignal(rt, 1)
	if _, err := rt.Effect(func() error { s.Get(); return nil }); err != nil {
		t.Fatal(err)
	}
	h.Publish(rt.Snapshot())

	snap, ok := h.Latest()
	if !ok || len(snap.Nodes) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(h.Events(0)) == 0 {
		t.Error("expected runtime events to be recorded")
	}
}

func TestHubSubscribe(t *testing.T) {
	h := NewHub(8)
	ch, cancel := h.Subscribe()

	h.Observe(reactive.Event{Kind: reactive.EventWrite, NodeID: 1})
	rec := <-ch
	if rec.Kind != "write" || rec.NodeID != 1 {
		t.Errorf("unexpected record %+v", rec)
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after cancel")
	}
	h.Observe(reactive.Event{Kind: reactive.EventWrite})
}

func TestHubSlowSubscriberDrops(t *testing.T) {
	h := NewHub(8)
	_, cancel := h.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		h.Observe(reactive.Event{Kind: reactive.EventWrite})
	}
	if got := h.Dropped(); got != 5 {
		t.Errorf("expected 5 dropped, got %d", got)
	}
}

func TestHubConcurrentReaders(t *testing.T) {
	h := NewHub(16)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Events(5)
				h.Latest()
			}
		}()
	}
	for i := 0; i < 100; i++ {
		h.Observe(reactive.Event{Kind: reactive.EventWrite})
		h.Publish(reactive.Snapshot{Queued: i})
	}
	wg.Wait()
}
