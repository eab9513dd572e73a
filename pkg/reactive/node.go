package reactive

// NodeKind identifies the role a node plays in the dependency graph.
type NodeKind uint8

const (
	KindSignal NodeKind = iota + 1
	KindComputed
	KindEffect
	KindObserver
)

// String returns a human-readable name for the node kind.
func (k NodeKind) String() string {
	switch k {
	case KindSignal:
		return "signal"
	case KindComputed:
		return "computed"
	case KindEffect:
		return "effect"
	case KindObserver:
		return "observer"
	default:
		return "unknown"
	}
}

// producer reports whether nodes of this kind can be read (have subscribers).
func (k NodeKind) producer() bool {
	return k == KindSignal || k == KindComputed
}

// nodeState is the freshness of a computed node's cached value.
type nodeState uint8

const (
	// stateClean: the cached value is valid.
	stateClean nodeState = iota
	// stateStale: an upstream node was written; sources must be checked
	// before the cached value can be trusted.
	stateStale
	// stateDirty: the value must be recomputed (never computed, or the last
	// computation failed).
	stateDirty
)

func (s nodeState) String() string {
	switch s {
	case stateClean:
		return "clean"
	case stateStale:
		return "stale"
	default:
		return "dirty"
	}
}

// edge is one entry of an observer's dependency list: the source it read and
// the source version it observed.
type edge struct {
	source  *node
	version uint64
}

// subscriberSet is a signal's outgoing edge set, keyed by subscriber ID and
// kept in insertion order so notification order is stable.
type subscriberSet struct {
	order []*node
	index map[uint64]struct{}
}

// add reports whether n was not yet in the set.
func (s *subscriberSet) add(n *node) bool {
	if s.index == nil {
		s.index = make(map[uint64]struct{})
	}
	if _, ok := s.index[n.id]; ok {
		return false
	}
	s.index[n.id] = struct{}{}
	s.order = append(s.order, n)
	return true
}

// remove reports whether n was in the set.
func (s *subscriberSet) remove(n *node) bool {
	if _, ok := s.index[n.id]; !ok {
		return false
	}
	delete(s.index, n.id)
	for i, existing := range s.order {
		if existing == n {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *subscriberSet) has(n *node) bool {
	_, ok := s.index[n.id]
	return ok
}

func (s *subscriberSet) len() int {
	return len(s.order)
}

// snapshot returns a copy of the subscribers so callers may iterate while the
// set is mutated by re-runs.
func (s *subscriberSet) snapshot() []*node {
	if len(s.order) == 0 {
		return nil
	}
	out := make([]*node, len(s.order))
	copy(out, s.order)
	return out
}

// node is the single entity type behind every reactive primitive. A signal
// only uses the producer half (subs, version), an effect or observer only the
// consumer half (deps), and a computed uses both.
//
// A computed is listed as a subscriber of its sources only while it has
// subscribers itself. An unobserved computed keeps its dependency list and
// revalidates it against source versions on the next read, so nothing
// upstream holds on to it.
type node struct {
	id   uint64
	kind NodeKind
	name string
	rt   *Runtime

	// Producer role.
	version uint64
	subs    subscriberSet

	// Consumer role.
	deps  []edge
	state nodeState

	// compute evaluates a computed node's derivation. On success it returns
	// a commit function that stores the new value and reports whether it
	// differs from the cached one.
	compute func() (commit func() bool, err error)

	// run executes an effect body or an observer's change callback.
	run func() error

	// hasValue is set once a computed has successfully computed.
	hasValue  bool
	computing bool

	// epoch is the runtime write epoch at which a computed was last known
	// to be up to date, or last failed with err.
	epoch uint64
	err   error

	queued   bool
	disposed bool

	// owned are effects and computeds created during this node's last run.
	owned    []*node
	cleanups []func()
	parent   *node
}

func (n *node) label() string {
	if n.name != "" {
		return n.name
	}
	return n.kind.String()
}

// watched reports whether writes upstream reach n through subscriber edges.
// Effects and observers always subscribe; computeds only while observed.
func (n *node) watched() bool {
	return n.kind != KindComputed || n.subs.len() > 0
}

// subscribe adds sub to n's subscribers. A computed gaining its first
// subscriber starts listening to its own sources.
func (n *node) subscribe(sub *node) {
	if !n.subs.add(sub) || n.subs.len() > 1 || n.kind != KindComputed {
		return
	}
	n.attach()
}

// unsubscribe removes sub from n's subscribers. A computed losing its last
// subscriber stops listening to its own sources.
func (n *node) unsubscribe(sub *node) {
	if !n.subs.remove(sub) || n.subs.len() > 0 || n.kind != KindComputed {
		return
	}
	n.detach()
}

// attach subscribes a computed to its recorded sources. Writes made while it
// was detached never marked it, so it turns stale when a source moved on.
func (n *node) attach() {
	moved := false
	for _, e := range n.deps {
		e.source.subscribe(n)
		if e.source.version != e.version || e.source.state != stateClean {
			moved = true
		}
	}
	if moved && n.state == stateClean {
		n.state = stateStale
	}
}

// detach removes a computed from its sources' subscribers. The dependency
// list stays so the next read can revalidate it.
func (n *node) detach() {
	for _, e := range n.deps {
		e.source.unsubscribe(n)
	}
}

// dropDeps removes every incoming edge of n.
func (n *node) dropDeps() {
	for _, e := range n.deps {
		e.source.unsubscribe(n)
	}
	n.deps = nil
}

// commitDeps replaces n's dependency list with the reads recorded in f,
// adding and removing subscriber entries so both sides stay symmetric.
// An unobserved computed records its sources without subscribing.
func (n *node) commitDeps(f *frame) {
	if !n.watched() {
		n.deps = f.reads
		return
	}
	for _, e := range n.deps {
		if _, ok := f.seen[e.source]; !ok {
			e.source.unsubscribe(n)
		}
	}
	for _, e := range f.reads {
		e.source.subscribe(n)
	}
	n.deps = f.reads
}

// sourcesChanged reports whether any source of n moved on since n last
// committed its dependencies. Computed sources are refreshed first, which
// may stop propagation when they recompute to an equal value. A failing
// source counts as changed; its failure stays cached until the next write,
// so the derivation is not run again when n re-reads it.
func (n *node) sourcesChanged() bool {
	for _, e := range n.deps {
		src := e.source
		if src.kind == KindComputed {
			if err := src.refresh(); err != nil {
				return true
			}
		}
		if src.version != e.version {
			return true
		}
	}
	return false
}

// disposeOwned disposes owned nodes in reverse creation order.
func (n *node) disposeOwned() {
	owned := n.owned
	n.owned = nil
	for i := len(owned) - 1; i >= 0; i-- {
		owned[i].dispose()
	}
}

// runCleanups runs registered cleanups in reverse registration order.
func (n *node) runCleanups() {
	cleanups := n.cleanups
	n.cleanups = nil
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// dispose removes every edge of n and prevents future runs. Idempotent.
func (n *node) dispose() {
	if n.disposed {
		return
	}
	n.disposed = true
	n.disposeOwned()
	n.runCleanups()
	n.dropDeps()
	if n.parent != nil {
		n.parent.removeOwned(n)
		n.parent = nil
	}
	n.rt.forget(n)
	n.rt.emit(Event{Kind: EventDispose, NodeID: n.id, Name: n.name, Node: n.kind})
}

func (n *node) removeOwned(child *node) {
	for i, c := range n.owned {
		if c == child {
			n.owned = append(n.owned[:i], n.owned[i+1:]...)
			return
		}
	}
}
