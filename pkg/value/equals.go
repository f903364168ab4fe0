package value

const maxCompareDepth = 64

const epsilon = 1e-9

type pairKey struct{ a, b *Value }

// Equals implements value_equals from the spec: pointer-equal is always
// equal; different tags are always unequal; numbers compare within an
// absolute epsilon (NaN never equals itself, even pointer-identical, since
// the epsilon check on a NaN difference is itself NaN and so false);
// strings compare byte-for-byte; lists/tuples compare element-wise; ranges
// compare component-wise within epsilon; maps compare order-insensitively
// (every live key in a must be found in b with an equal value). Recursion
// is capped at 64 and a cycle (the same pointer pair seen twice on the
// current path) is treated as equal rather than looping forever.
func Equals(a, b *Value) bool {
	return equalsAt(a, b, 0, make(map[pairKey]bool))
}

func equalsAt(a, b *Value, depth int, seen map[pairKey]bool) bool {
	if a == b {
		if a != nil && a.tag == TagNumber {
			// NaN must compare unequal to itself even when pointer-identical.
			return a.number == a.number
		}
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.tag != b.tag {
		return false
	}
	if depth >= maxCompareDepth {
		return true
	}

	switch a.tag {
	case TagNil:
		return true
	case TagBool:
		return a.bval == b.bval
	case TagNumber:
		if a.number != a.number || b.number != b.number {
			return false // NaN never equals anything, including another NaN
		}
		diff := a.number - b.number
		if diff < 0 {
			diff = -diff
		}
		return diff <= epsilon
	case TagString:
		return a.str.length == b.str.length && string(a.Bytes()) == string(b.Bytes())
	case TagRange:
		return nearlyEqual(a.rng.start, b.rng.start) &&
			nearlyEqual(a.rng.end, b.rng.end) &&
			nearlyEqual(a.rng.step, b.rng.step)
	case TagList:
		return equalSequence(a.list.items, b.list.items, depth, seen)
	case TagTuple:
		return equalSequence(a.tuple, b.tuple, depth, seen)
	case TagMap:
		return equalMap(a, b, depth, seen)
	case TagFunction:
		return a == b // functions compare by identity; code equality is not observable behavior the spec defines
	case TagChannel:
		return a == b
	default:
		return false
	}
}

func nearlyEqual(x, y float64) bool {
	diff := x - y
	if diff < 0 {
		diff = -diff
	}
	return diff <= epsilon
}

func equalSequence(a, b []*Value, depth int, seen map[pairKey]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		key := pairKey{a[i], b[i]}
		if seen[key] {
			continue // cycle: treat as equal and move on
		}
		seen[key] = true
		if !equalsAt(a[i], b[i], depth+1, seen) {
			return false
		}
	}
	return true
}

func equalMap(a, b *Value, depth int, seen map[pairKey]bool) bool {
	if a.mp.count != b.mp.count {
		return false
	}
	for _, sa := range a.mp.slots {
		if sa.key == nil || sa.tomb {
			continue
		}
		bv, ok := mapLookup(b, sa.key)
		if !ok {
			return false
		}
		key := pairKey{sa.val, bv}
		if seen[key] {
			continue
		}
		seen[key] = true
		if !equalsAt(sa.val, bv, depth+1, seen) {
			return false
		}
	}
	return true
}

// mapLookup is a read-only probe used by Equals; it mirrors kruntime's
// MapGet but lives here so pkg/value has no dependency on pkg/kruntime.
func mapLookup(m *Value, k *Value) (*Value, bool) {
	slots := m.mp.slots
	n := len(slots)
	if n == 0 {
		return nil, false
	}
	idx := int(Hash(k) % uint64(n))
	for i := 0; i < n; i++ {
		s := &slots[idx]
		if s.key == nil && !s.tomb {
			return nil, false
		}
		if s.key != nil && !s.tomb && Equals(s.key, k) {
			return s.val, true
		}
		idx = (idx + 1) % n
	}
	return nil, false
}
