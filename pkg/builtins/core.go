package builtins

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/kristofer/kronos/pkg/kruntime"
	"github.com/kristofer/kronos/pkg/value"
)

// registerCore installs the string, number and array functions §6 names
// directly ("len, uppercase, lowercase, trim, split, join, to_string,
// to_number, to_bool, contains, starts_with, ends_with, replace, sqrt,
// power, abs, round, floor, ceil, rand, min, max, reverse, sort").
func (r *Registry) registerCore() {
	r.Register("len", biLen)
	r.Register("uppercase", biUppercase)
	r.Register("lowercase", biLowercase)
	r.Register("trim", biTrim)
	r.Register("split", biSplit)
	r.Register("join", biJoin)
	r.Register("to_string", biToString)
	r.Register("to_number", biToNumber)
	r.Register("to_bool", biToBool)
	r.Register("contains", biContains)
	r.Register("starts_with", biStartsWith)
	r.Register("ends_with", biEndsWith)
	r.Register("replace", biReplace)
	r.Register("sqrt", biSqrt)
	r.Register("power", biPower)
	r.Register("abs", biAbs)
	r.Register("round", biRound)
	r.Register("floor", biFloor)
	r.Register("ceil", biCeil)
	r.Register("rand", biRand)
	r.Register("min", biMin)
	r.Register("max", biMax)
	r.Register("reverse", biReverse)
	r.Register("sort", biSort)
}

func biLen(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	if len(args) != 1 {
		return nil, argErr("len", 1, len(args))
	}
	n, err := rt.ListLen(args[0])
	if err != nil {
		return nil, err
	}
	return rt.NewNumber(float64(n)), nil
}

func biUppercase(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	s, err := wantString("uppercase", args, 0)
	if err != nil {
		return nil, err
	}
	return rt.NewString([]byte(strings.ToUpper(s))), nil
}

func biLowercase(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	s, err := wantString("lowercase", args, 0)
	if err != nil {
		return nil, err
	}
	return rt.NewString([]byte(strings.ToLower(s))), nil
}

func biTrim(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	s, err := wantString("trim", args, 0)
	if err != nil {
		return nil, err
	}
	return rt.NewString([]byte(strings.TrimSpace(s))), nil
}

func biSplit(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	s, err := wantString("split", args, 0)
	if err != nil {
		return nil, err
	}
	sep, err := wantString("split", args, 1)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, sep)
	out := rt.NewList(len(parts))
	for _, p := range parts {
		rt.ListAppend(out, rt.NewString([]byte(p)))
	}
	return out, nil
}

func biJoin(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	if len(args) != 2 {
		return nil, argErr("join", 2, len(args))
	}
	if args[0].Tag() != value.TagList {
		return nil, typeErr("join", 0, value.TagList, args[0])
	}
	sep, err := wantString("join", args, 1)
	if err != nil {
		return nil, err
	}
	parts := make([]string, 0, args[0].ListLen())
	for _, it := range args[0].Items() {
		if it.Tag() != value.TagString {
			return nil, fmt.Errorf("join: list element is not a string")
		}
		parts = append(parts, string(it.Bytes()))
	}
	return rt.NewString([]byte(strings.Join(parts, sep))), nil
}

func biToString(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	if len(args) != 1 {
		return nil, argErr("to_string", 1, len(args))
	}
	return rt.NewString([]byte(value.Sprint(args[0]))), nil
}

func biToNumber(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	if len(args) != 1 {
		return nil, argErr("to_number", 1, len(args))
	}
	switch args[0].Tag() {
	case value.TagNumber:
		return rt.NewNumber(args[0].Number()), nil
	case value.TagString:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(args[0].Bytes())), 64)
		if err != nil {
			return nil, fmt.Errorf("to_number: cannot parse %q", args[0].Bytes())
		}
		return rt.NewNumber(f), nil
	case value.TagBool:
		if args[0].Bool() {
			return rt.NewNumber(1), nil
		}
		return rt.NewNumber(0), nil
	default:
		return nil, typeErr("to_number", 0, value.TagString, args[0])
	}
}

func biToBool(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	if len(args) != 1 {
		return nil, argErr("to_bool", 1, len(args))
	}
	return rt.NewBool(value.Truthy(args[0])), nil
}

func biContains(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	if len(args) != 2 {
		return nil, argErr("contains", 2, len(args))
	}
	switch args[0].Tag() {
	case value.TagString:
		needle, err := wantString("contains", args, 1)
		if err != nil {
			return nil, err
		}
		return rt.NewBool(strings.Contains(string(args[0].Bytes()), needle)), nil
	case value.TagList:
		for _, it := range args[0].Items() {
			if value.Equals(it, args[1]) {
				return rt.NewBool(true), nil
			}
		}
		return rt.NewBool(false), nil
	default:
		return nil, typeErr("contains", 0, value.TagList, args[0])
	}
}

func biStartsWith(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	s, err := wantString("starts_with", args, 0)
	if err != nil {
		return nil, err
	}
	prefix, err := wantString("starts_with", args, 1)
	if err != nil {
		return nil, err
	}
	return rt.NewBool(strings.HasPrefix(s, prefix)), nil
}

func biEndsWith(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	s, err := wantString("ends_with", args, 0)
	if err != nil {
		return nil, err
	}
	suffix, err := wantString("ends_with", args, 1)
	if err != nil {
		return nil, err
	}
	return rt.NewBool(strings.HasSuffix(s, suffix)), nil
}

func biReplace(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	s, err := wantString("replace", args, 0)
	if err != nil {
		return nil, err
	}
	old, err := wantString("replace", args, 1)
	if err != nil {
		return nil, err
	}
	new, err := wantString("replace", args, 2)
	if err != nil {
		return nil, err
	}
	return rt.NewString([]byte(strings.ReplaceAll(s, old, new))), nil
}

func biSqrt(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	n, err := wantNumber("sqrt", args, 0)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("sqrt: negative argument")
	}
	return rt.NewNumber(math.Sqrt(n)), nil
}

func biPower(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	base, err := wantNumber("power", args, 0)
	if err != nil {
		return nil, err
	}
	exp, err := wantNumber("power", args, 1)
	if err != nil {
		return nil, err
	}
	return rt.NewNumber(math.Pow(base, exp)), nil
}

func biAbs(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	n, err := wantNumber("abs", args, 0)
	if err != nil {
		return nil, err
	}
	return rt.NewNumber(math.Abs(n)), nil
}

func biRound(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	n, err := wantNumber("round", args, 0)
	if err != nil {
		return nil, err
	}
	return rt.NewNumber(math.Round(n)), nil
}

func biFloor(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	n, err := wantNumber("floor", args, 0)
	if err != nil {
		return nil, err
	}
	return rt.NewNumber(math.Floor(n)), nil
}

func biCeil(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	n, err := wantNumber("ceil", args, 0)
	if err != nil {
		return nil, err
	}
	return rt.NewNumber(math.Ceil(n)), nil
}

// biRand returns a random float in [0, 1) with no arguments, or a random
// integer in [lo, hi] when given two bounds.
func biRand(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	switch len(args) {
	case 0:
		return rt.NewNumber(rand.Float64()), nil
	case 2:
		lo, err := wantNumber("rand", args, 0)
		if err != nil {
			return nil, err
		}
		hi, err := wantNumber("rand", args, 1)
		if err != nil {
			return nil, err
		}
		if hi < lo {
			return nil, fmt.Errorf("rand: upper bound below lower bound")
		}
		span := int64(hi) - int64(lo) + 1
		return rt.NewNumber(float64(int64(lo) + rand.Int64N(span))), nil
	default:
		return nil, fmt.Errorf("rand expects 0 or 2 arguments, got %d", len(args))
	}
}

func biMin(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("min expects at least 1 argument")
	}
	best, err := wantNumber("min", args, 0)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(args); i++ {
		n, err := wantNumber("min", args, i)
		if err != nil {
			return nil, err
		}
		if n < best {
			best = n
		}
	}
	return rt.NewNumber(best), nil
}

func biMax(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("max expects at least 1 argument")
	}
	best, err := wantNumber("max", args, 0)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(args); i++ {
		n, err := wantNumber("max", args, i)
		if err != nil {
			return nil, err
		}
		if n > best {
			best = n
		}
	}
	return rt.NewNumber(best), nil
}

func biReverse(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	if len(args) != 1 {
		return nil, argErr("reverse", 1, len(args))
	}
	switch args[0].Tag() {
	case value.TagString:
		b := args[0].Bytes()
		out := make([]byte, len(b))
		for i, c := range b {
			out[len(b)-1-i] = c
		}
		return rt.NewString(out), nil
	case value.TagList:
		items := args[0].Items()
		out := rt.NewList(len(items))
		for i := len(items) - 1; i >= 0; i-- {
			rt.ListAppend(out, items[i])
		}
		return out, nil
	default:
		return nil, typeErr("reverse", 0, value.TagList, args[0])
	}
}

// biSort returns a new list sorted ascending; elements must be all
// numbers or all strings.
func biSort(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	if len(args) != 1 || args[0].Tag() != value.TagList {
		if len(args) == 1 {
			return nil, typeErr("sort", 0, value.TagList, args[0])
		}
		return nil, argErr("sort", 1, len(args))
	}
	items := append([]*value.Value{}, args[0].Items()...)
	var sortErr error
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Tag() == value.TagNumber && b.Tag() == value.TagNumber {
			return a.Number() < b.Number()
		}
		if a.Tag() == value.TagString && b.Tag() == value.TagString {
			return string(a.Bytes()) < string(b.Bytes())
		}
		sortErr = fmt.Errorf("sort: list elements must be all numbers or all strings")
		return false
	})
	if sortErr != nil {
		return nil, sortErr
	}
	out := rt.NewList(len(items))
	for _, it := range items {
		rt.ListAppend(out, it)
	}
	return out, nil
}
