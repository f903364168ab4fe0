package kruntime

import (
	"github.com/kristofer/kronos/pkg/value"
)

// mapGrowNumerator/mapGrowDenominator encode the 0.75 load factor growth
// threshold from spec.md §4.A ("grow when count * 4 >= cap * 3").
const (
	mapGrowNumerator   = 4
	mapGrowDenominator = 3
)

// MapGet probes m for k, returning its value without retaining it (mirrors
// ListGet: the caller retains only if it keeps the reference beyond this
// call). The second return is false on a miss.
func (rt *Runtime) MapGet(m *value.Value, k *value.Value) (*value.Value, bool) {
	slots := m.MapSlots()
	capN := len(slots)
	if capN == 0 {
		return nil, false
	}
	idx := int(value.Hash(k) % uint64(capN))
	for i := 0; i < capN; i++ {
		s := m.MapSlotAt(idx)
		if s.Key == nil && !s.Tomb {
			return nil, false // empty slot ends the probe chain
		}
		if s.Key != nil && value.Equals(s.Key, k) {
			return s.Val, true
		}
		idx = (idx + 1) % capN
	}
	return nil, false
}

// MapSet installs k -> v in m, retaining both on insert. On update of an
// existing key, the old value is released and the new one retained; the
// key itself is left alone (its first-inserted reference is kept, matching
// the spec's "do not re-retain the key on update" wording). Grows the
// bucket array first when count * 4 >= cap * 3.
func (rt *Runtime) MapSet(m *value.Value, k *value.Value, v *value.Value) {
	if m.MapCount()*mapGrowNumerator >= len(m.MapSlots())*mapGrowDenominator {
		rt.mapGrow(m)
	}
	slots := m.MapSlots()
	capN := len(slots)
	idx := int(value.Hash(k) % uint64(capN))
	firstTomb := -1
	for i := 0; i < capN; i++ {
		s := m.MapSlotAt(idx)
		switch {
		case s.Key == nil && s.Tomb:
			if firstTomb == -1 {
				firstTomb = idx
			}
		case s.Key == nil && !s.Tomb:
			target := idx
			if firstTomb != -1 {
				target = firstTomb
			}
			value.Retain(k)
			value.Retain(v)
			m.MapSetSlot(target, k, v)
			m.MapSetCount(m.MapCount() + 1)
			return
		case s.Key != nil && value.Equals(s.Key, k):
			value.Retain(v)
			rt.Release(s.Val)
			m.MapSetSlot(idx, s.Key, v)
			return
		}
		idx = (idx + 1) % capN
	}
	// Table is entirely full of tombstones/live slots with no terminator;
	// this cannot happen given the load-factor growth above, but fall back
	// to the first tombstone found rather than silently dropping the entry.
	if firstTomb != -1 {
		value.Retain(k)
		value.Retain(v)
		m.MapSetSlot(firstTomb, k, v)
		m.MapSetCount(m.MapCount() + 1)
	}
}

// MapDelete removes k from m, releasing its key and value and marking the
// bucket a tombstone. Deletions never immediately compact; compaction
// happens lazily the next time MapSet triggers a grow. Returns false if k
// was not present.
func (rt *Runtime) MapDelete(m *value.Value, k *value.Value) bool {
	slots := m.MapSlots()
	capN := len(slots)
	if capN == 0 {
		return false
	}
	idx := int(value.Hash(k) % uint64(capN))
	for i := 0; i < capN; i++ {
		s := m.MapSlotAt(idx)
		if s.Key == nil && !s.Tomb {
			return false
		}
		if s.Key != nil && value.Equals(s.Key, k) {
			rt.Release(s.Key)
			rt.Release(s.Val)
			m.MapTombstoneSlot(idx)
			m.MapSetCount(m.MapCount() - 1)
			return true
		}
		idx = (idx + 1) % capN
	}
	return false
}

// mapGrow doubles m's bucket array (an 8-slot default floor, matching
// NewMap's default capacity hint) and rehashes every live entry into it,
// which is also where tombstones get compacted away.
func (rt *Runtime) mapGrow(m *value.Value) {
	oldSlots := m.MapSlots()
	newCap := len(oldSlots) * 2
	if newCap == 0 {
		newCap = 8
	}
	newSlots := make([]value.MapSlot, newCap)
	live := 0
	for _, s := range oldSlots {
		if s.Key == nil {
			continue
		}
		idx := int(value.Hash(s.Key) % uint64(newCap))
		for {
			if newSlots[idx].Key == nil {
				newSlots[idx] = value.MapSlot{Key: s.Key, Val: s.Val}
				live++
				break
			}
			idx = (idx + 1) % newCap
		}
	}
	m.MapReplaceSlots(newSlots)
	m.MapSetCount(live)
}
