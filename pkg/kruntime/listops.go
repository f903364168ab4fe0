package kruntime

import (
	"fmt"

	"github.com/kristofer/kronos/pkg/value"
)

// ListAppend retains elt and appends it to l, growing l's backing array
// (doubling) if needed.
func (rt *Runtime) ListAppend(l *value.Value, elt *value.Value) {
	value.Retain(elt)
	l.AppendItem(elt)
}

// ListGet returns the element at idx without retaining it (the caller
// retains if it needs to keep the reference beyond this call). A negative
// index counts from the end (spec.md open question, resolved in
// SPEC_FULL.md §9: negative LIST_GET indices count from the end,
// consistently with LIST_SLICE). Returns an error for any index still out
// of range after that adjustment, and for idx == len (the spec's
// boundary: "LIST_GET with index = len is out of range").
func (rt *Runtime) ListGet(l *value.Value, idx int) (*value.Value, error) {
	n := l.ListLen()
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return nil, fmt.Errorf("list index out of range: %d", idx)
	}
	return l.Items()[idx], nil
}

// ListSet replaces the element at idx, releasing the old value and
// retaining the new one. Negative indices count from the end, matching
// ListGet.
func (rt *Runtime) ListSet(l *value.Value, idx int, v *value.Value) error {
	n := l.ListLen()
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return fmt.Errorf("list index out of range: %d", idx)
	}
	old := l.Items()[idx]
	value.Retain(v)
	l.SetItem(idx, v)
	rt.Release(old)
	return nil
}

// ListLen returns the number of elements in l, or the byte length of a
// string, or the element count implied by a Range (per LIST_LEN's
// "length of list/string/range").
func (rt *Runtime) ListLen(v *value.Value) (int, error) {
	switch v.Tag() {
	case value.TagList:
		return v.ListLen(), nil
	case value.TagString:
		return v.StringLen(), nil
	case value.TagRange:
		start, end, step := v.RangeParts()
		return rangeLen(start, end, step), nil
	default:
		return 0, fmt.Errorf("LIST_LEN: unsupported type %s", v.Tag())
	}
}

func rangeLen(start, end, step float64) int {
	if step == 0 {
		return 0
	}
	n := (end - start) / step
	if n < 0 {
		return 0
	}
	count := int(n) + 1
	if count < 0 {
		return 0
	}
	return count
}

// ListSlice returns a new list containing l[start:end]. end == -1 is the
// sentinel meaning "through end". start > end yields an empty list.
func (rt *Runtime) ListSlice(l *value.Value, start, end int) *value.Value {
	n := l.ListLen()
	if end == -1 {
		end = n
	}
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	out := rt.NewList(0)
	if start >= end {
		return out
	}
	for _, it := range l.Items()[start:end] {
		rt.ListAppend(out, it)
	}
	return out
}
