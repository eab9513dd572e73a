package reactive

import (
	"errors"
	"log/slog"
	"time"
)

// DefaultMaxRunsPerFlush is the default storm budget of one flush pass.
const DefaultMaxRunsPerFlush = 10000

// Config configures a Runtime.
type Config struct {
	// Host holds the consumption hooks of the framework integration driving
	// this runtime. The zero value leaves both hooks unset.
	Host Host

	// Logger is used for runtime diagnostics.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// Instrumentation receives runtime events. If nil, nothing is recorded.
	Instrumentation Instrumentation

	// MaxRunsPerFlush bounds the effect and observer runs of one flush pass.
	// A write cycle that never settles fails with ErrBudgetExceeded instead
	// of spinning forever. Default: DefaultMaxRunsPerFlush.
	MaxRunsPerFlush int

	// CheckGoroutine makes every entry point panic with ErrWrongGoroutine
	// when called from a goroutine other than the one that created the
	// runtime. It costs a stack read per call; enable it in development.
	CheckGoroutine bool
}

// Runtime owns the state shared by one reactive graph: the tracking frame
// stack, the propagation queue and the host integration.
//
// A Runtime is confined to a single goroutine and does no locking. Hosts
// that need reactivity on several goroutines create one Runtime for each.
type Runtime struct {
	host    Host
	logger  *slog.Logger
	instr   Instrumentation
	maxRuns int

	checkGoroutine bool
	goroutine      uint64

	frames   []*frame
	deriving int

	// epoch counts writes; unobserved computeds use it to skip revalidation.
	epoch uint64

	batchDepth int
	flushing   bool
	queue      []*node

	// roots are the live effects and observers; inspection walks the graph
	// from them.
	roots map[uint64]*node

	consumers map[Consumer]*Observer
}

// NewRuntime creates a runtime with the given configuration.
func NewRuntime(cfg Config) *Runtime {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxRuns := cfg.MaxRunsPerFlush
	if maxRuns <= 0 {
		maxRuns = DefaultMaxRunsPerFlush
	}
	rt := &Runtime{
		host:           cfg.Host,
		logger:         logger,
		instr:          cfg.Instrumentation,
		maxRuns:        maxRuns,
		checkGoroutine: cfg.CheckGoroutine,
		roots:          make(map[uint64]*node),
		consumers:      make(map[Consumer]*Observer),
	}
	if rt.checkGoroutine {
		rt.goroutine = getGoroutineID()
	}
	return rt
}

// enter guards public entry points against cross-goroutine use.
func (rt *Runtime) enter() {
	if rt.checkGoroutine && getGoroutineID() != rt.goroutine {
		panic(ErrWrongGoroutine)
	}
}

func (rt *Runtime) emit(ev Event) {
	if rt.instr != nil {
		rt.instr.Observe(ev)
	}
}

// newNode allocates a node and, for effects and computeds, attaches it to
// the effect or observer currently running so it is disposed with it.
func (rt *Runtime) newNode(kind NodeKind, name string) *node {
	n := &node{
		id:   nextID(),
		kind: kind,
		name: name,
		rt:   rt,
	}
	switch kind {
	case KindComputed:
		n.state = stateDirty
		rt.adopt(n)
	case KindEffect:
		rt.adopt(n)
		rt.roots[n.id] = n
	case KindObserver:
		rt.roots[n.id] = n
	}
	rt.emit(Event{Kind: EventCreate, NodeID: n.id, Name: name, Node: kind})
	return n
}

func (rt *Runtime) adopt(n *node) {
	if owner := rt.runningOwner(); owner != nil {
		n.parent = owner
		owner.owned = append(owner.owned, n)
	}
}

func (rt *Runtime) forget(n *node) {
	delete(rt.roots, n.id)
}

// OnCleanup registers fn on the effect or observer whose body is running.
// Cleanups run in reverse order before the next run and on disposal.
// It reports false, and does nothing, when no effect is running.
func (rt *Runtime) OnCleanup(fn func()) bool {
	rt.enter()
	owner := rt.runningOwner()
	if owner == nil || owner.disposed {
		return false
	}
	owner.cleanups = append(owner.cleanups, fn)
	return true
}

// =============================================================================
// Propagation
// =============================================================================

// written records a change of src and propagates it. Outside of any batch,
// flush or tracked run the affected observers re-run before it returns.
func (rt *Runtime) written(src *node) error {
	src.version++
	rt.epoch++
	rt.emit(Event{Kind: EventWrite, NodeID: src.id, Name: src.name, Node: src.kind})
	rt.markStale(src)
	if rt.batchDepth > 0 {
		return nil
	}
	return rt.flush()
}

// markStale walks everything downstream of src with a work-list: computeds
// become stale, effects and observers are queued. No node is visited twice
// in one pass. Computeds that are already stale are still walked, so an
// observer dropped from an aborted flush is found again by the next write.
func (rt *Runtime) markStale(src *node) {
	work := src.subs.snapshot()
	visited := make(map[*node]struct{})
	for i := 0; i < len(work); i++ {
		n := work[i]
		if n.disposed {
			continue
		}
		if n.kind != KindComputed {
			rt.enqueue(n)
			continue
		}
		if _, ok := visited[n]; ok {
			continue
		}
		visited[n] = struct{}{}
		if n.state == stateClean {
			n.state = stateStale
		}
		work = append(work, n.subs.order...)
	}
}

func (rt *Runtime) enqueue(n *node) {
	if n.queued || n.disposed {
		return
	}
	n.queued = true
	rt.queue = append(rt.queue, n)
}

// recheck queues n again when a source it just committed moved on while n
// was running, for example because n wrote to it.
func (rt *Runtime) recheck(n *node) {
	for _, e := range n.deps {
		if e.source.version != e.version || e.source.state == stateStale {
			rt.enqueue(n)
			return
		}
	}
}

func (rt *Runtime) beginBatch() {
	rt.batchDepth++
}

func (rt *Runtime) endBatch() error {
	rt.batchDepth--
	if rt.batchDepth > 0 || len(rt.queue) == 0 {
		return nil
	}
	return rt.flush()
}

// flush runs queued observers until the queue is empty. Writes made by those
// runs enqueue onto the same queue, so one call settles the whole graph and
// an observer dirtied several times runs once.
func (rt *Runtime) flush() error {
	if rt.flushing {
		return nil
	}
	rt.flushing = true
	rt.batchDepth++
	defer func() {
		rt.batchDepth--
		rt.flushing = false
	}()

	start := time.Now()
	runs := 0
	var errs []error
	for len(rt.queue) > 0 {
		n := rt.queue[0]
		rt.queue[0] = nil
		rt.queue = rt.queue[1:]
		n.queued = false

		if n.disposed || !n.sourcesChanged() {
			continue
		}
		if runs >= rt.maxRuns {
			dropped := rt.dropQueue() + 1
			rt.logger.Warn("reactive run budget exceeded",
				"runs", runs, "dropped", dropped, "node", n.label(), "id", n.id)
			rt.emit(Event{Kind: EventBudgetExceeded, NodeID: n.id, Name: n.name, Node: n.kind, Runs: runs})
			errs = append(errs, ErrBudgetExceeded)
			break
		}
		runs++
		if err := rt.execute(n); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	d := time.Since(start)
	rt.logger.Debug("reactive flush", "runs", runs, "duration", d, "errors", len(errs))
	rt.emit(Event{Kind: EventFlush, Start: start, Duration: d, Runs: runs, Err: err})
	return err
}

func (rt *Runtime) dropQueue() int {
	n := len(rt.queue)
	for _, q := range rt.queue {
		q.queued = false
	}
	rt.queue = nil
	return n
}

// execute re-runs an effect or notifies an observer.
func (rt *Runtime) execute(n *node) error {
	if n.kind == KindObserver {
		f := &frame{}
		rt.push(f)
		start := time.Now()
		err := callSafe(n.run)
		rt.pop(f)
		err = newRunError(n, err)
		rt.emit(Event{Kind: EventRun, NodeID: n.id, Name: n.name, Node: n.kind, Start: start, Duration: time.Since(start), Err: err})
		return err
	}

	n.disposeOwned()
	n.runCleanups()

	f := &frame{owner: n}
	rt.push(f)
	start := time.Now()
	err := callSafe(n.run)
	rt.pop(f)
	err = newRunError(n, err)
	rt.emit(Event{Kind: EventRun, NodeID: n.id, Name: n.name, Node: n.kind, Start: start, Duration: time.Since(start), Err: err})
	if err != nil || n.disposed {
		return err
	}
	n.commitDeps(f)
	rt.recheck(n)
	return nil
}

// =============================================================================
// Batching
// =============================================================================

// Batch groups writes so dependent effects re-run once, after fn returns.
// Batches can be nested; re-runs happen when the outermost batch completes.
// The returned error joins the failures of those re-runs.
//
// Example:
//
//	err := rt.Batch(func() {
//	    firstName.Set("John")
//	    lastName.Set("Doe")
//	})
//	// Effects reading both names ran once
func (rt *Runtime) Batch(fn func()) (err error) {
	rt.enter()
	rt.beginBatch()
	defer func() {
		err = rt.endBatch()
	}()
	fn()
	return nil
}

// Tx is an alias for Batch.
func (rt *Runtime) Tx(fn func()) error {
	return rt.Batch(fn)
}

// TxNamed runs fn as a named batch. The name is logged at debug level.
func (rt *Runtime) TxNamed(name string, fn func()) error {
	rt.logger.Debug("reactive tx start", "tx", name)
	err := rt.Batch(fn)
	rt.logger.Debug("reactive tx end", "tx", name, "error", err)
	return err
}
