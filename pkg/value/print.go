package value

import (
	"fmt"
	"strconv"
	"strings"
)

const maxPrintDepth = 64

// Sprint renders v the way PRINT and string coercion do: integer-valued
// numbers print without a decimal point, strings print raw (no quoting),
// containers print in a bracketed form, and nesting deeper than 64 prints
// an ellipsis instead of recursing further.
func Sprint(v *Value) string {
	var b strings.Builder
	sprintAt(&b, v, 0)
	return b.String()
}

func sprintAt(b *strings.Builder, v *Value, depth int) {
	if v == nil {
		b.WriteString("nil")
		return
	}
	if depth >= maxPrintDepth {
		b.WriteString("...")
		return
	}
	switch v.tag {
	case TagNil:
		b.WriteString("nil")
	case TagBool:
		if v.bval {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case TagNumber:
		b.WriteString(formatNumber(v.number))
	case TagString:
		b.Write(v.Bytes())
	case TagList:
		b.WriteByte('[')
		for i, it := range v.list.items {
			if i > 0 {
				b.WriteString(", ")
			}
			sprintAt(b, it, depth+1)
		}
		b.WriteByte(']')
	case TagTuple:
		b.WriteByte('(')
		for i, it := range v.tuple {
			if i > 0 {
				b.WriteString(", ")
			}
			sprintAt(b, it, depth+1)
		}
		b.WriteByte(')')
	case TagMap:
		b.WriteByte('{')
		first := true
		for _, s := range v.mp.slots {
			if s.key == nil || s.tomb {
				continue
			}
			if !first {
				b.WriteString(", ")
			}
			first = false
			sprintAt(b, s.key, depth+1)
			b.WriteString(": ")
			sprintAt(b, s.val, depth+1)
		}
		b.WriteByte('}')
	case TagRange:
		fmt.Fprintf(b, "%s..%s step %s", formatNumber(v.rng.start), formatNumber(v.rng.end), formatNumber(v.rng.step))
	case TagFunction:
		fmt.Fprintf(b, "<function/%d>", v.fn.arity)
	case TagChannel:
		b.WriteString("<channel>")
	default:
		b.WriteString("<?>")
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
