package builtins

import (
	"testing"

	"github.com/kristofer/kronos/pkg/kruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBiRegexMatchFullString(t *testing.T) {
	rt := kruntime.NewStandaloneRuntime()
	ok, err := callBuiltin(t, "regex.match", rt.NewString([]byte(`\d+`)), rt.NewString([]byte("123")))
	require.NoError(t, err)
	assert.True(t, ok.Bool())

	ok, err = callBuiltin(t, "regex.match", rt.NewString([]byte(`\d+`)), rt.NewString([]byte("abc123")))
	require.NoError(t, err)
	assert.False(t, ok.Bool())
}

func TestBiRegexSearchFindsFirstMatch(t *testing.T) {
	rt := kruntime.NewStandaloneRuntime()
	m, err := callBuiltin(t, "regex.search", rt.NewString([]byte(`\d+`)), rt.NewString([]byte("abc123def")))
	require.NoError(t, err)
	assert.Equal(t, "123", string(m.Bytes()))
}

func TestBiRegexFindallReturnsAllMatches(t *testing.T) {
	rt := kruntime.NewStandaloneRuntime()
	out, err := callBuiltin(t, "regex.findall", rt.NewString([]byte(`\d+`)), rt.NewString([]byte("a1b22c333")))
	require.NoError(t, err)
	n, err := rt.ListLen(out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestBiRegexInvalidPatternErrors(t *testing.T) {
	rt := kruntime.NewStandaloneRuntime()
	_, err := callBuiltin(t, "regex.match", rt.NewString([]byte(`(`)), rt.NewString([]byte("x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}
