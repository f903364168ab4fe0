package value

import (
	"math"

	"github.com/kristofer/kronos/pkg/gc"
)

// warn receives every logged anomaly (refcount saturation, double-free
// attempts, ...). pkg/kruntime redirects this to pkg/kronoslog; by default
// it is silent so pkg/value has no logging dependency of its own.
var warn = func(string) {}

// SetWarnHook installs the function called for every logged anomaly. A nil
// argument restores the default no-op.
func SetWarnHook(fn func(string)) {
	if fn == nil {
		fn = func(string) {}
	}
	warn = fn
}

// Retain increments v's refcount. Retain is NULL-safe (retaining nil is a
// no-op) and saturates at math.MaxUint32 rather than wrapping or aborting,
// logging a warning on saturation.
func Retain(v *Value) {
	if v == nil {
		return
	}
	if v.refcount == math.MaxUint32 {
		warn("value: refcount saturated at MaxUint32, further retains ignored")
		return
	}
	v.refcount++
}

// Refcount reports v's current reference count. Refcount(nil) is 0.
func Refcount(v *Value) uint32 {
	if v == nil {
		return 0
	}
	return v.refcount
}

// gc.Node implementation. *Value satisfies gc.Node directly so the tracker
// never needs to know the concrete value representation.

func (v *Value) Refcount() uint32 { return v.refcount }

// DecRefForSweep is used only by the cycle collector's sweep phase; it
// decrements unconditionally by one (the sweep already checked refcount >
// 0 before calling this).
func (v *Value) DecRefForSweep() uint32 {
	v.refcount--
	return v.refcount
}

// Children returns the direct owned children reachable from v: list
// elements, map keys and values, and tuple elements. Scalars, ranges,
// functions and channels have none.
func (v *Value) Children() []gc.Node {
	switch v.tag {
	case TagList:
		out := make([]gc.Node, 0, len(v.list.items))
		for _, it := range v.list.items {
			if it != nil {
				out = append(out, it)
			}
		}
		return out
	case TagMap:
		out := make([]gc.Node, 0, v.mp.count*2)
		for _, s := range v.mp.slots {
			if s.key == nil || s.tomb {
				continue
			}
			out = append(out, s.key, s.val)
		}
		return out
	case TagTuple:
		out := make([]gc.Node, 0, len(v.tuple))
		for _, it := range v.tuple {
			if it != nil {
				out = append(out, it)
			}
		}
		return out
	default:
		return nil
	}
}

// Finalize frees v's own buffers WITHOUT walking its children — children
// are finalized independently by the same GC sweep, or (on a normal
// release to zero) released by the iterative release walk after Finalize
// returns, from the references ReleaseChildrenRefs collected beforehand. Calling Finalize twice on the same value is a bug
// in the caller; Finalize itself does not defend against it because the
// tracker guarantees each tracked value is finalized at most once.
func (v *Value) Finalize() {
	switch v.tag {
	case TagString:
		v.str = nil
	case TagList:
		v.list = nil
	case TagMap:
		v.mp = nil
	case TagTuple:
		v.tuple = nil
	case TagFunction:
		v.fn = nil
	case TagChannel:
		v.ch = nil
	}
}

// AllocatedBytes estimates v's own heap footprint (not including owned
// children, which are tracked independently) for gc.Tracker statistics.
func (v *Value) AllocatedBytes() int64 {
	const header = 48 // approximate struct + refcount overhead
	switch v.tag {
	case TagString:
		return header + int64(len(v.str.buf))
	case TagList:
		return header + int64(cap(v.list.items))*8
	case TagMap:
		return header + int64(len(v.mp.slots))*24
	case TagTuple:
		return header + int64(len(v.tuple))*8
	case TagFunction:
		return header + int64(len(v.fn.code)) + int64(len(v.fn.params))*16
	default:
		return header
	}
}

// ReleaseChildrenRefs returns a copy of v's direct child references (list
// elements, live map keys and values, tuple elements) without changing
// any refcount or freeing v's own buffers. It is the primitive kruntime's
// iterative release walk uses to push work for deeply nested containers
// instead of recursing natively.
func (v *Value) ReleaseChildrenRefs() []*Value {
	switch v.tag {
	case TagList:
		return append([]*Value(nil), v.list.items...)
	case TagMap:
		out := make([]*Value, 0, v.mp.count*2)
		for _, s := range v.mp.slots {
			if s.key == nil || s.tomb {
				continue
			}
			out = append(out, s.key, s.val)
		}
		return out
	case TagTuple:
		return append([]*Value(nil), v.tuple...)
	default:
		return nil
	}
}
