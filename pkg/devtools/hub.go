package devtools

import (
	"sync"
	"time"

	"github.com/fmal/impact/pkg/reactive"
)

// DefaultBufferSize is the number of events a Hub keeps when NewHub is
// given a non-positive size.
const DefaultBufferSize = 256

// subscriberBuffer is the channel capacity of each subscription. Events
// that do not fit are dropped for that subscriber.
const subscriberBuffer = 64

// Record is the JSON form of a reactive.Event.
type Record struct {
	Seq      uint64        `json:"seq"`
	Kind     string        `json:"kind"`
	NodeID   uint64        `json:"node_id,omitempty"`
	Name     string        `json:"name,omitempty"`
	Node     string        `json:"node,omitempty"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration_ns,omitempty"`
	Runs     int           `json:"runs,omitempty"`
	Err      string        `json:"error,omitempty"`
}

func newRecord(seq uint64, ev reactive.Event) Record {
	r := Record{
		Seq:      seq,
		Kind:     ev.Kind.String(),
		NodeID:   ev.NodeID,
		Name:     ev.Name,
		Start:    ev.Start,
		Duration: ev.Duration,
		Runs:     ev.Runs,
	}
	if ev.NodeID != 0 {
		r.Node = ev.Node.String()
	}
	if ev.Err != nil {
		r.Err = ev.Err.Error()
	}
	return r
}

// Hub collects runtime events and graph snapshots for the inspector.
//
// Observe and Publish are called from the runtime goroutine; every other
// method may be called from any goroutine.
type Hub struct {
	mu      sync.Mutex
	ring    []Record
	next    int
	full    bool
	seq     uint64
	dropped uint64

	snapshot    reactive.Snapshot
	hasSnapshot bool

	subs    map[int]chan Record
	nextSub int
}

// NewHub creates a hub keeping the last size events.
func NewHub(size int) *Hub {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Hub{
		ring: make([]Record, size),
		subs: make(map[int]chan Record),
	}
}

// Observe implements reactive.Instrumentation. It never blocks.
func (h *Hub) Observe(ev reactive.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	rec := newRecord(h.seq, ev)
	h.ring[h.next] = rec
	h.next = (h.next + 1) % len(h.ring)
	if h.next == 0 {
		h.full = true
	}

	for _, ch := range h.subs {
		select {
		case ch <- rec:
		default:
			h.dropped++
		}
	}
}

// Events returns up to limit of the most recent events, oldest first.
// A non-positive limit returns everything buffered.
func (h *Hub) Events(limit int) []Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []Record
	if h.full {
		out = append(out, h.ring[h.next:]...)
	}
	out = append(out, h.ring[:h.next]...)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Publish stores s as the latest graph snapshot.
func (h *Hub) Publish(s reactive.Snapshot) {
	h.mu.Lock()
	h.snapshot = s
	h.hasSnapshot = true
	h.mu.Unlock()
}

// Latest returns the most recently published snapshot.
func (h *Hub) Latest() (reactive.Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshot, h.hasSnapshot
}

// Subscribe returns a channel receiving every event observed from now on,
// and a function that ends the subscription and closes the channel.
// A slow subscriber misses events rather than stalling the runtime.
func (h *Hub) Subscribe() (<-chan Record, func()) {
	ch := make(chan Record, subscriberBuffer)

	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Dropped returns the number of events not delivered to slow subscribers.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
