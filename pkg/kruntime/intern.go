package kruntime

import (
	"sync"

	"github.com/kristofer/kronos/pkg/value"
)

// internTableSize is the fixed number of slots in the string intern table
// (the spec calls for "1024 slots, linear probing... sized for typical
// programs").
const internTableSize = 1024

type internSlot struct {
	v   *value.Value
	set bool
}

type internTable struct {
	mu    sync.Mutex
	slots [internTableSize]internSlot
	count int
}

func newInternTable() *internTable {
	return &internTable{}
}

// Intern looks up bytes by (hash, length, bytes); on a hit it retains and
// returns the existing value. On a miss it inserts a new string with two
// references — one held by the table, one returned to the caller, so the
// contract matches NewString exactly. When the table is full, Intern logs
// a warning and falls back to a non-interned string.
func (rt *Runtime) Intern(bytes []byte) *value.Value {
	hash := value.HashFNV1a(bytes)
	return rt.intern.lookupOrInsert(rt, bytes, hash)
}

func (t *internTable) lookupOrInsert(rt *Runtime, bytes []byte, hash uint32) *value.Value {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := int(hash % internTableSize)
	firstFree := -1
	for i := 0; i < internTableSize; i++ {
		slot := &t.slots[idx]
		if !slot.set {
			if firstFree == -1 {
				firstFree = idx
			}
			break // empty slot ends the probe chain; this key isn't interned
		}
		if slot.v.StringHash() == hash && slot.v.StringLen() == len(bytes) && sameBytes(slot.v.Bytes(), bytes) {
			value.Retain(slot.v) // one more ref for the caller
			return slot.v
		}
		idx = (idx + 1) % internTableSize
	}

	if firstFree == -1 || t.count >= internTableSize {
		warnf("kruntime: intern table full, falling back to a non-interned string")
		return rt.track(value.NewString(bytes))
	}

	v := value.NewInternedString(bytes, hash)
	value.Retain(v) // table's own extra reference
	t.slots[firstFree] = internSlot{v: v, set: true}
	t.count++
	return rt.track(v)
}

func sameBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// clear empties the intern table, warning once if any entry still has
// refcount > 1 (i.e. an external reference survives beyond the table's
// own). Called only by CleanupRuntime on the last runtime reference.
func (t *internTable) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	leaked := false
	for i := range t.slots {
		if t.slots[i].set && value.Refcount(t.slots[i].v) > 1 {
			leaked = true
		}
		t.slots[i] = internSlot{}
	}
	t.count = 0
	if leaked {
		warnf("kruntime: runtime_cleanup found interned strings with outstanding external references")
	}
}
