package reactive

import (
	"fmt"
	"sort"
	"time"
)

func (n *node) depIDs() []uint64 {
	ids := make([]uint64, 0, len(n.deps))
	for _, e := range n.deps {
		ids = append(ids, e.source.id)
	}
	return ids
}

func (n *node) subIDs() []uint64 {
	ids := make([]uint64, 0, n.subs.len())
	for _, s := range n.subs.order {
		ids = append(ids, s.id)
	}
	return ids
}

// NodeInfo describes one node of a Snapshot.
type NodeInfo struct {
	ID      uint64   `json:"id"`
	Name    string   `json:"name,omitempty"`
	Kind    string   `json:"kind"`
	State   string   `json:"state,omitempty"`
	Version uint64   `json:"version"`
	Deps    []uint64 `json:"deps,omitempty"`
	Subs    []uint64 `json:"subs,omitempty"`
	Queued  bool     `json:"queued,omitempty"`
}

// Snapshot is a point-in-time dump of the dependency graph reachable from
// the runtime's live effects and observers.
type Snapshot struct {
	Taken  time.Time  `json:"taken"`
	Nodes  []NodeInfo `json:"nodes"`
	Queued int        `json:"queued"`
	Frames int        `json:"frames"`
}

// reachable returns every node connected to a live effect or observer,
// ordered by ID.
func (rt *Runtime) reachable() []*node {
	seen := make(map[*node]struct{}, len(rt.roots))
	work := make([]*node, 0, len(rt.roots))
	for _, n := range rt.roots {
		seen[n] = struct{}{}
		work = append(work, n)
	}
	for i := 0; i < len(work); i++ {
		n := work[i]
		visit := func(m *node) {
			if _, ok := seen[m]; ok {
				return
			}
			seen[m] = struct{}{}
			work = append(work, m)
		}
		for _, e := range n.deps {
			visit(e.source)
		}
		for _, s := range n.subs.order {
			visit(s)
		}
	}
	sort.Slice(work, func(i, j int) bool { return work[i].id < work[j].id })
	return work
}

// Snapshot returns a JSON-serializable dump of the graph.
func (rt *Runtime) Snapshot() Snapshot {
	rt.enter()
	nodes := rt.reachable()
	snap := Snapshot{
		Taken:  time.Now(),
		Nodes:  make([]NodeInfo, 0, len(nodes)),
		Queued: len(rt.queue),
		Frames: len(rt.frames),
	}
	for _, n := range nodes {
		info := NodeInfo{
			ID:      n.id,
			Name:    n.name,
			Kind:    n.kind.String(),
			Version: n.version,
			Queued:  n.queued,
		}
		if n.kind == KindComputed {
			info.State = n.state.String()
		}
		if len(n.deps) > 0 {
			info.Deps = n.depIDs()
		}
		if n.subs.len() > 0 {
			info.Subs = n.subIDs()
		}
		snap.Nodes = append(snap.Nodes, info)
	}
	return snap
}

// lookup finds a reachable node by ID.
func (rt *Runtime) lookup(id uint64) *node {
	for _, n := range rt.reachable() {
		if n.id == id {
			return n
		}
	}
	return nil
}

// Dependencies returns the IDs of the sources of the node with the given
// ID, in first-read order. Nodes not connected to a live effect or observer
// are not found and yield nil.
func (rt *Runtime) Dependencies(id uint64) []uint64 {
	rt.enter()
	if n := rt.lookup(id); n != nil {
		return n.depIDs()
	}
	return nil
}

// Subscribers returns the IDs of the nodes that read the node with the
// given ID.
func (rt *Runtime) Subscribers(id uint64) []uint64 {
	rt.enter()
	if n := rt.lookup(id); n != nil {
		return n.subIDs()
	}
	return nil
}

// CheckEdges verifies the edge invariants over every reachable node: each
// dependency of an observed node has a matching subscriber entry and vice
// versa, an unobserved computed is nobody's subscriber, no dependency is
// listed twice, a disposed node holds no dependencies and is nobody's
// subscriber.
func (rt *Runtime) CheckEdges() error {
	rt.enter()
	for _, n := range rt.reachable() {
		if n.disposed && len(n.deps) > 0 {
			return fmt.Errorf("reactive: disposed %s #%d still has %d dependencies", n.kind, n.id, len(n.deps))
		}
		seen := make(map[*node]struct{}, len(n.deps))
		for _, e := range n.deps {
			if _, dup := seen[e.source]; dup {
				return fmt.Errorf("reactive: %s #%d lists dependency #%d twice", n.kind, n.id, e.source.id)
			}
			seen[e.source] = struct{}{}
			switch listed := e.source.subs.has(n); {
			case n.watched() && !listed:
				return fmt.Errorf("reactive: %s #%d depends on #%d, which does not list it as subscriber", n.kind, n.id, e.source.id)
			case !n.watched() && listed:
				return fmt.Errorf("reactive: unobserved %s #%d is still listed as subscriber of #%d", n.kind, n.id, e.source.id)
			}
		}
		if len(n.subs.order) != len(n.subs.index) {
			return fmt.Errorf("reactive: %s #%d subscriber index out of sync", n.kind, n.id)
		}
		for _, s := range n.subs.order {
			if s.disposed {
				return fmt.Errorf("reactive: %s #%d lists disposed subscriber #%d", n.kind, n.id, s.id)
			}
			if !s.hasDep(n) {
				return fmt.Errorf("reactive: %s #%d lists subscriber #%d, which does not depend on it", n.kind, n.id, s.id)
			}
		}
	}
	return nil
}

func (n *node) hasDep(src *node) bool {
	for _, e := range n.deps {
		if e.source == src {
			return true
		}
	}
	return false
}

// Stats reports the runtime's current bookkeeping sizes.
type Stats struct {
	Roots      int
	Queued     int
	Frames     int
	BatchDepth int
	Consumers  int
}

// Stats returns current bookkeeping sizes.
func (rt *Runtime) Stats() Stats {
	return Stats{
		Roots:      len(rt.roots),
		Queued:     len(rt.queue),
		Frames:     len(rt.frames),
		BatchDepth: rt.batchDepth,
		Consumers:  len(rt.consumers),
	}
}
