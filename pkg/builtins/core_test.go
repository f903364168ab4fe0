package builtins

import (
	"testing"

	"github.com/kristofer/kronos/pkg/kruntime"
	"github.com/kristofer/kronos/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callBuiltin(t *testing.T, name string, args ...*value.Value) (*value.Value, error) {
	t.Helper()
	r := NewRegistry()
	fn, ok := r.Lookup(name)
	require.True(t, ok, "builtin %q not registered", name)
	rt := kruntime.NewStandaloneRuntime()
	return fn(rt, args)
}

func TestBiUppercaseAndLowercase(t *testing.T) {
	rt := kruntime.NewStandaloneRuntime()
	s := rt.NewString([]byte("Hi There"))

	up, err := callBuiltin(t, "uppercase", s)
	require.NoError(t, err)
	assert.Equal(t, "HI THERE", value.Sprint(up))

	low, err := callBuiltin(t, "lowercase", s)
	require.NoError(t, err)
	assert.Equal(t, "hi there", value.Sprint(low))
}

func TestBiLenOnStringAndList(t *testing.T) {
	rt := kruntime.NewStandaloneRuntime()
	s := rt.NewString([]byte("abcd"))
	n, err := callBuiltin(t, "len", s)
	require.NoError(t, err)
	assert.Equal(t, 4.0, n.Number())

	list := rt.NewList(0)
	rt.ListAppend(list, rt.NewNumber(1))
	rt.ListAppend(list, rt.NewNumber(2))
	n, err = callBuiltin(t, "len", list)
	require.NoError(t, err)
	assert.Equal(t, 2.0, n.Number())
}

func TestBiSplitAndJoin(t *testing.T) {
	rt := kruntime.NewStandaloneRuntime()
	s := rt.NewString([]byte("a,b,c"))
	sep := rt.NewString([]byte(","))

	parts, err := callBuiltin(t, "split", s, sep)
	require.NoError(t, err)
	n, err := rt.ListLen(parts)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	joined, err := callBuiltin(t, "join", parts, sep)
	require.NoError(t, err)
	assert.Equal(t, "a,b,c", value.Sprint(joined))
}

func TestBiSqrtAndPower(t *testing.T) {
	rt := kruntime.NewStandaloneRuntime()
	sq, err := callBuiltin(t, "sqrt", rt.NewNumber(9))
	require.NoError(t, err)
	assert.Equal(t, 3.0, sq.Number())

	pw, err := callBuiltin(t, "power", rt.NewNumber(2), rt.NewNumber(10))
	require.NoError(t, err)
	assert.Equal(t, 1024.0, pw.Number())
}

func TestBiContainsStartsEndsWith(t *testing.T) {
	rt := kruntime.NewStandaloneRuntime()
	s := rt.NewString([]byte("hello world"))

	ok, err := callBuiltin(t, "contains", s, rt.NewString([]byte("wor")))
	require.NoError(t, err)
	assert.True(t, ok.Bool())

	ok, err = callBuiltin(t, "starts_with", s, rt.NewString([]byte("hell")))
	require.NoError(t, err)
	assert.True(t, ok.Bool())

	ok, err = callBuiltin(t, "ends_with", s, rt.NewString([]byte("rld")))
	require.NoError(t, err)
	assert.True(t, ok.Bool())
}

func TestBiMinMax(t *testing.T) {
	rt := kruntime.NewStandaloneRuntime()
	mn, err := callBuiltin(t, "min", rt.NewNumber(3), rt.NewNumber(1), rt.NewNumber(2))
	require.NoError(t, err)
	assert.Equal(t, 1.0, mn.Number())

	mx, err := callBuiltin(t, "max", rt.NewNumber(3), rt.NewNumber(1), rt.NewNumber(2))
	require.NoError(t, err)
	assert.Equal(t, 3.0, mx.Number())
}

func TestBiSort(t *testing.T) {
	rt := kruntime.NewStandaloneRuntime()
	list := rt.NewList(0)
	rt.ListAppend(list, rt.NewNumber(3))
	rt.ListAppend(list, rt.NewNumber(1))
	rt.ListAppend(list, rt.NewNumber(2))

	sorted, err := callBuiltin(t, "sort", list)
	require.NoError(t, err)
	first, err := rt.ListGet(sorted, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, first.Number())
}

func TestBiArgCountError(t *testing.T) {
	_, err := callBuiltin(t, "sqrt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects")
}

func TestBiTypeError(t *testing.T) {
	rt := kruntime.NewStandaloneRuntime()
	_, err := callBuiltin(t, "sqrt", rt.NewString([]byte("nope")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a number")
}
