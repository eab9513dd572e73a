package reactive

import "sync/atomic"

// globalIDCounter is the source of unique IDs for all graph nodes.
// IDs are unique across runtimes so snapshots from several runtimes can be
// merged by a devtools host.
var globalIDCounter uint64

// nextID returns the next unique ID for a graph node.
// IDs are monotonically increasing and never reused.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}
