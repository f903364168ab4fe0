package kruntime

import (
	"github.com/google/uuid"
	"github.com/kristofer/kronos/pkg/value"
)

// NewNumber allocates a Number value with refcount 1, tracked by rt.
func (rt *Runtime) NewNumber(f float64) *value.Value { return rt.track(value.NewNumber(f)) }

// NewBool allocates a Bool value.
func (rt *Runtime) NewBool(b bool) *value.Value { return rt.track(value.NewBool(b)) }

// NewNil allocates a Nil value.
func (rt *Runtime) NewNil() *value.Value { return rt.track(value.NewNil()) }

// NewString copies bytes into an owned, non-interned String value.
func (rt *Runtime) NewString(bytes []byte) *value.Value { return rt.track(value.NewString(bytes)) }

// NewList allocates an empty List with the given capacity hint (0 means
// the spec's default initial capacity of 4).
func (rt *Runtime) NewList(capHint int) *value.Value { return rt.track(value.NewList(capHint)) }

// NewMap allocates an empty Map with the given capacity hint (0 means the
// spec's default initial capacity of 8).
func (rt *Runtime) NewMap(capHint int) *value.Value { return rt.track(value.NewMap(capHint)) }

// NewTuple allocates an immutable Tuple, retaining each element (matching
// the spec's "retains each input").
func (rt *Runtime) NewTuple(items []*value.Value) *value.Value {
	return rt.track(value.NewTuple(items))
}

// NewRange allocates a Range value. A zero step is coerced to 1; the
// caller is responsible for surfacing the spec-mandated warning when it
// does so (the compiler/VM know the source expression, the factory does
// not).
func (rt *Runtime) NewRange(start, end, step float64) *value.Value {
	return rt.track(value.NewRange(start, end, step))
}

// NewFunction allocates a Function value, copying its body and parameter
// names.
func (rt *Runtime) NewFunction(code []byte, arity int, params []string) *value.Value {
	return rt.track(value.NewFunction(code, arity, params))
}

// NewChannel wraps an opaque host handle in a Channel value, assigning it
// a fresh correlation id.
func (rt *Runtime) NewChannel(handle uintptr) *value.Value {
	id := uuid.New()
	var raw [16]byte
	copy(raw[:], id[:])
	return rt.track(value.NewChannel(handle, raw))
}
