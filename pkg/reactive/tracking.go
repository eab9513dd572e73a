package reactive

import (
	"runtime"
)

// frame records the signals read while one observer is collecting
// dependencies. A frame without an owner records nothing; it is pushed by
// Untracked to suspend the frames below it.
type frame struct {
	owner *node
	reads []edge
	seen  map[*node]struct{}

	// violation is set when a write is attempted while this frame's
	// derivation is running.
	violation error
}

// record registers a read of src at its current version. The first read of a
// source wins; later reads of the same source in one frame are ignored.
func (f *frame) record(src *node) {
	if f.owner == nil || f.owner.disposed || f.owner == src {
		return
	}
	if f.seen == nil {
		f.seen = make(map[*node]struct{})
	}
	if _, ok := f.seen[src]; ok {
		return
	}
	f.seen[src] = struct{}{}
	f.reads = append(f.reads, edge{source: src, version: src.version})
}

// push makes f the current frame.
func (rt *Runtime) push(f *frame) {
	rt.frames = append(rt.frames, f)
	if f.owner != nil && f.owner.kind == KindComputed {
		rt.deriving++
	}
}

// pop removes f and every frame above it. found is false when f is not on
// the stack at all, in which case the stack is left alone. nested is true
// when frames pushed after f had to be discarded.
func (rt *Runtime) pop(f *frame) (found, nested bool) {
	for i := len(rt.frames) - 1; i >= 0; i-- {
		if rt.frames[i] != f {
			continue
		}
		nested = i != len(rt.frames)-1
		for j := len(rt.frames) - 1; j >= i; j-- {
			if owner := rt.frames[j].owner; owner != nil && owner.kind == KindComputed {
				rt.deriving--
			}
			rt.frames[j] = nil
		}
		rt.frames = rt.frames[:i]
		return true, nested
	}
	return false, false
}

// current returns the innermost frame, or nil when nothing is tracking.
func (rt *Runtime) current() *frame {
	if len(rt.frames) == 0 {
		return nil
	}
	return rt.frames[len(rt.frames)-1]
}

// track registers a dependency of the current frame's owner on src.
// All edge registration goes through here.
func (rt *Runtime) track(src *node) {
	if f := rt.current(); f != nil {
		f.record(src)
	}
}

// runningOwner returns the innermost effect or observer whose body is
// currently executing, or nil.
func (rt *Runtime) runningOwner() *node {
	f := rt.current()
	if f == nil || f.owner == nil {
		return nil
	}
	if k := f.owner.kind; k == KindEffect || k == KindObserver {
		return f.owner
	}
	return nil
}

// innermostDerivation returns the frame of the innermost computed whose
// derivation is running, or nil.
func (rt *Runtime) innermostDerivation() *frame {
	if rt.deriving == 0 {
		return nil
	}
	for i := len(rt.frames) - 1; i >= 0; i-- {
		if owner := rt.frames[i].owner; owner != nil && owner.kind == KindComputed {
			return rt.frames[i]
		}
	}
	return nil
}

// Untracked runs fn without recording any signal reads as dependencies of
// the current observer.
//
// Example:
//
//	rt.Untracked(func() {
//	    // Reading count here won't subscribe the running effect
//	    fmt.Println("Current value:", count.Get())
//	})
//
// For single signal reads, signal.Peek() is clearer in intent.
func (rt *Runtime) Untracked(fn func()) {
	rt.enter()
	f := &frame{}
	rt.push(f)
	defer rt.pop(f)
	fn()
}

// Untrack is the value-returning form of Runtime.Untracked.
func Untrack[T any](rt *Runtime, fn func() T) T {
	var out T
	rt.Untracked(func() { out = fn() })
	return out
}

// getGoroutineID returns a unique identifier for the current goroutine.
// This uses the runtime stack to extract the goroutine ID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	// The stack starts with "goroutine <id> "
	var id uint64
	for i := 10; i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
