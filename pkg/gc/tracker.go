// Package gc implements the process-wide cycle collector the value heap
// opts into. It never knows about the concrete Value type — it tracks
// anything implementing Node — so pkg/value depends on pkg/gc and not the
// other way around.
//
// Design notes (see spec.md §4.B):
//
//   - Track/Untrack happen on every allocation/destruction, exactly once.
//   - Statistics (object count, allocated bytes) must be safe under
//     concurrent mutation.
//   - CollectCycles is a stop-the-world mark-and-sweep pass: values with
//     refcount > 1 are roots (something outside the tracker still points
//     at them); anything unmarked and still live after the mark phase is
//     part of an unreachable cycle and gets swept.
//   - The tracker's own mutex is released around each Finalize call,
//     since finalization may re-enter tracker operations (e.g. a nested
//     container's own release path).
//
// The underlying storage is Go's built-in map rather than a hand-rolled
// open-addressed array: Go's map already gives the load-factor growth and
// tombstone-free deletion the spec's hash-table description exists to
// provide, and reimplementing probing here would just be slower,
// unsafe-pointer-flavored C translated into Go. The mutex around every
// operation is what actually delivers the concurrency contract the spec
// cares about.
package gc

import "sync"

// Node is anything the tracker can own. pkg/value's *Value implements it.
type Node interface {
	// Refcount returns the current reference count.
	Refcount() uint32
	// DecRefForSweep decrements the refcount by exactly one and returns
	// the result. Used only by the sweep phase.
	DecRefForSweep() uint32
	// Children returns the direct owned children reachable from this
	// node (list elements, map keys and values). Scalars return nil.
	Children() []Node
	// Finalize frees this node's own buffers without walking children —
	// children are visited independently by the same sweep.
	Finalize()
	// AllocatedBytes estimates the heap footprint of this node alone
	// (not including children), for tracker statistics.
	AllocatedBytes() int64
}

// Tracker is the GC's registry of every live heap value.
type Tracker struct {
	mu             sync.Mutex
	members        map[Node]struct{}
	allocatedBytes int64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{members: make(map[Node]struct{}, 64)}
}

// Track registers a newly allocated node. Track is NULL-safe: tracking the
// same node twice is logged and otherwise a no-op (the spec calls this a
// DEBUG-logged, RELEASE-silent condition; this implementation always
// routes it through the caller-supplied warn hook, which embedders may
// wire to a no-op in release builds).
func (t *Tracker) Track(n Node) {
	if n == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.members[n]; dup {
		warn("gc: duplicate track of already-tracked value")
		return
	}
	t.members[n] = struct{}{}
	t.allocatedBytes += n.AllocatedBytes()
}

// Untrack removes a node from the registry. Untrack tolerates untracked
// values (logs and returns) since destruction paths and GC sweep can both
// race to untrack the same value under misuse.
func (t *Tracker) Untrack(n Node) {
	if n == nil {
		return
	}
	t.mu.Lock()
	if _, ok := t.members[n]; !ok {
		t.mu.Unlock()
		warn("gc: untrack of a value the tracker never tracked")
		return
	}
	delete(t.members, n)
	t.allocatedBytes -= n.AllocatedBytes()
	t.mu.Unlock()
}

// ObjectCount returns the number of currently tracked values.
func (t *Tracker) ObjectCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.members)
}

// AllocatedBytes returns the tracker's running estimate of live heap bytes.
func (t *Tracker) AllocatedBytes() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allocatedBytes
}

// CollectCycles runs one stop-the-world mark-and-sweep pass and returns the
// number of values it reclaimed. It is never invoked automatically — the
// host or VM decides when a quiescent point is safe to pause at.
//
// Mark: every tracked value with refcount > 1 is a root (it has at least
// one reference from outside its own possible cycle); everything
// reachable from a root through Children is marked live.
//
// Sweep: every tracked, unmarked value with refcount > 0 has its refcount
// decremented by the one reference the cycle held on it; if that reaches
// zero, the value is untracked and finalized. Finalize does not walk
// children — they are independently visited by this same sweep, since a
// cycle consists entirely of unmarked nodes.
func (t *Tracker) CollectCycles() int {
	t.mu.Lock()
	roots := make([]Node, 0, len(t.members)/4+1)
	all := make([]Node, 0, len(t.members))
	for n := range t.members {
		all = append(all, n)
		if n.Refcount() > 1 {
			roots = append(roots, n)
		}
	}
	t.mu.Unlock()

	marked := make(map[Node]struct{}, len(all))
	stack := make([]Node, 0, len(roots))
	stack = append(stack, roots...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := marked[n]; ok {
			continue
		}
		marked[n] = struct{}{}
		stack = append(stack, n.Children()...)
	}

	swept := 0
	for _, n := range all {
		if _, live := marked[n]; live {
			continue
		}
		if n.Refcount() == 0 {
			continue
		}
		if n.DecRefForSweep() == 0 {
			t.Untrack(n)
			// Finalize runs with the tracker mutex released: it may
			// re-enter Track/Untrack for values it owns indirectly.
			n.Finalize()
			swept++
		}
	}
	return swept
}

// DestroyFinalizingRefcountOne is used by runtime cleanup: it finalizes
// only values whose refcount is exactly 1 (i.e. only the tracker's own
// implicit reference remains) and untracks them, leaving values with
// outstanding external references to be reclaimed naturally by their own
// release calls.
func (t *Tracker) DestroyFinalizingRefcountOne() {
	t.mu.Lock()
	all := make([]Node, 0, len(t.members))
	for n := range t.members {
		all = append(all, n)
	}
	t.mu.Unlock()

	for _, n := range all {
		if n.Refcount() == 1 {
			t.Untrack(n)
			n.Finalize()
		}
	}
}

// warn is a package-level hook so pkg/kronoslog can redirect tracker
// warnings without pkg/gc importing it (that would invert the dependency
// the spec's "package as a Runtime object" note argues against).
var warn = func(string) {}

// SetWarnHook installs the function called for every logged anomaly
// (double-track, untrack-of-untracked, ...). Passing nil restores the
// default no-op.
func SetWarnHook(fn func(string)) {
	if fn == nil {
		fn = func(string) {}
	}
	warn = fn
}
