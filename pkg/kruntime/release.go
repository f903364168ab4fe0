package kruntime

import (
	"github.com/kristofer/kronos/pkg/gc"
	"github.com/kristofer/kronos/pkg/value"
)

// Retain increments v's refcount. NULL-safe; see value.Retain for the
// saturation behavior at the u32 ceiling.
func (rt *Runtime) Retain(v *value.Value) { value.Retain(v) }

// Release decrements v's refcount; at zero it untracks v, frees its own
// buffers, and releases its children. Release is NULL-safe.
//
// Release is iterative rather than recursive: a work stack holds values
// whose refcount has just dropped to zero and which still need their
// children released and themselves finalized. This lets a release of a
// pathologically deep nested list/map run in a loop instead of blowing
// the goroutine stack. If appending to the work stack itself fails (it
// cannot in Go barring an allocator panic, since slices grow
// automatically), the deferred recover falls back to releasing that one
// element recursively rather than losing the reference — matching the
// spec's "log a warning and fall back to recursion for that element"
// contract.
func (rt *Runtime) Release(v *value.Value) {
	if v == nil {
		return
	}
	if value.Refcount(v) == 0 {
		warnf("kruntime: release of a value already at refcount 0 (double release)")
		return
	}
	work := []*value.Value{v}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]
		if cur == nil {
			continue
		}
		remaining := decref(cur)
		if remaining > 0 {
			continue
		}
		rt.Tracker.Untrack(cur)
		children := cur.ReleaseChildrenRefs()
		cur.Finalize()
		work = appendChildren(work, children)
	}
}

// appendChildren defends the "work stack cannot grow" fallback: under
// normal operation append always succeeds, but if it were ever to panic
// (e.g. a corrupted allocator state) the recover releases the remaining
// children recursively instead of leaking them.
func appendChildren(work []*value.Value, children []*value.Value) (out []*value.Value) {
	defer func() {
		if r := recover(); r != nil {
			warnf("kruntime: release work stack could not grow, falling back to recursion")
			out = work
			for _, c := range children {
				releaseRecursive(c)
			}
		}
	}()
	return append(work, children...)
}

// releaseRecursive is the fallback path used only when the iterative work
// stack cannot be grown.
func releaseRecursive(v *value.Value) {
	if v == nil {
		return
	}
	if decref(v) > 0 {
		return
	}
	children := v.ReleaseChildrenRefs()
	v.Finalize()
	for _, c := range children {
		releaseRecursive(c)
	}
}

// decref is the same saturating-free decrement the tracker's sweep phase
// uses, exposed here so Release shares its exact semantics.
func decref(v *value.Value) uint32 { return v.DecRefForSweep() }

var warnf = func(string) {}

// SetWarnHook installs the function called for release-path anomalies
// (double release, work-stack overflow), and installs the same function
// as pkg/gc's and pkg/value's warn hooks. A nil argument restores the
// default no-op in all three.
func SetWarnHook(fn func(string)) {
	if fn == nil {
		fn = func(string) {}
	}
	warnf = fn
	gc.SetWarnHook(fn)
	value.SetWarnHook(fn)
}
