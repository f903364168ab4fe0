package value

import "hash/fnv"

// The constructors in this file build a Value with refcount 1 and do
// nothing else — no gc tracking, no interning. kruntime.Runtime's
// factories call these and then register the result with the tracker (and
// the intern table, for strings), which is why "new_string" in the spec
// is split here into HashFNV1a + NewString: the Runtime needs the hash
// before it decides whether to intern.

// HashFNV1a computes the 32-bit FNV-1a hash the spec mandates for strings.
func HashFNV1a(b []byte) uint32 {
	h := fnv.New32a()
	_, _ = h.Write(b)
	return h.Sum32()
}

// NewNumber builds a Number value.
func NewNumber(f float64) *Value {
	return &Value{tag: TagNumber, refcount: 1, number: f}
}

// NewBool builds a Bool value.
func NewBool(b bool) *Value {
	return &Value{tag: TagBool, refcount: 1, bval: b}
}

// NewNil builds a Nil value.
func NewNil() *Value {
	return &Value{tag: TagNil, refcount: 1}
}

// NewString copies bytes into an owned, NUL-terminated buffer and computes
// its FNV-1a hash.
func NewString(bytes []byte) *Value {
	buf := make([]byte, len(bytes)+1)
	copy(buf, bytes)
	buf[len(bytes)] = 0
	return &Value{
		tag:      TagString,
		refcount: 1,
		str: &stringPayload{
			buf:    buf,
			length: len(bytes),
			hash:   HashFNV1a(bytes),
		},
	}
}

// NewInternedString is like NewString but marks the result as owned by the
// intern table; only pkg/kruntime's intern table calls this.
func NewInternedString(bytes []byte, hash uint32) *Value {
	buf := make([]byte, len(bytes)+1)
	copy(buf, bytes)
	buf[len(bytes)] = 0
	return &Value{
		tag:      TagString,
		refcount: 1,
		str: &stringPayload{
			buf:      buf,
			length:   len(bytes),
			hash:     hash,
			interned: true,
		},
	}
}

// NewList builds an empty list with the requested initial capacity (4 if
// capHint <= 0, matching the spec's "initial capacity 4" default).
func NewList(capHint int) *Value {
	if capHint <= 0 {
		capHint = 4
	}
	return &Value{tag: TagList, refcount: 1, list: &listPayload{items: make([]*Value, 0, capHint)}}
}

// NewMap builds an empty map with the requested initial bucket capacity (8
// if capHint <= 0).
func NewMap(capHint int) *Value {
	if capHint <= 0 {
		capHint = 8
	}
	return &Value{tag: TagMap, refcount: 1, mp: &mapPayload{slots: make([]mapSlot, capHint)}}
}

// NewTuple builds an immutable fixed-size tuple, retaining each element.
func NewTuple(items []*Value) *Value {
	owned := make([]*Value, len(items))
	copy(owned, items)
	for _, it := range owned {
		Retain(it)
	}
	return &Value{tag: TagTuple, refcount: 1, tuple: owned}
}

// NewRange builds a Range value. A zero step is coerced to 1 (the caller
// is expected to have already logged the spec-mandated warning).
func NewRange(start, end, step float64) *Value {
	if step == 0 {
		step = 1
	}
	return &Value{tag: TagRange, refcount: 1, rng: rangePayload{start: start, end: end, step: step}}
}

// NewFunction copies code and parameter names into an owned Function value.
func NewFunction(code []byte, arity int, params []string) *Value {
	ownedCode := append([]byte(nil), code...)
	var ownedParams []string
	if params != nil {
		ownedParams = append([]string(nil), params...)
	}
	return &Value{
		tag:      TagFunction,
		refcount: 1,
		fn:       &functionPayload{code: ownedCode, arity: arity, params: ownedParams},
	}
}

// NewChannel wraps an opaque host handle; the value never owns or
// interprets it.
func NewChannel(handle uintptr, id [16]byte) *Value {
	return &Value{tag: TagChannel, refcount: 1, ch: &channelPayload{handle: handle, id: id}}
}
