package value

// Truthy implements the spec's truthiness table: nil is always false;
// bool is itself; number is non-zero; string is non-empty; every other
// variant (list, map, tuple, range, function, channel) is always true,
// regardless of emptiness.
func Truthy(v *Value) bool {
	if v == nil {
		return false
	}
	switch v.tag {
	case TagNil:
		return false
	case TagBool:
		return v.bval
	case TagNumber:
		return v.number != 0
	case TagString:
		return v.str.length > 0
	default:
		return true
	}
}
