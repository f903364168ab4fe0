package builtins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kristofer/kronos/pkg/kruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBiWriteThenReadFile(t *testing.T) {
	rt := kruntime.NewStandaloneRuntime()
	path := filepath.Join(t.TempDir(), "out.txt")

	_, err := callBuiltin(t, "write_file", rt.NewString([]byte(path)), rt.NewString([]byte("hello\nworld\n")))
	require.NoError(t, err)

	exists, err := callBuiltin(t, "file_exists", rt.NewString([]byte(path)))
	require.NoError(t, err)
	assert.True(t, exists.Bool())

	contents, err := callBuiltin(t, "read_file", rt.NewString([]byte(path)))
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", string(contents.Bytes()))

	lines, err := callBuiltin(t, "read_lines", rt.NewString([]byte(path)))
	require.NoError(t, err)
	n, err := rt.ListLen(lines)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestBiFileExistsFalseForMissingPath(t *testing.T) {
	rt := kruntime.NewStandaloneRuntime()
	exists, err := callBuiltin(t, "file_exists", rt.NewString([]byte(filepath.Join(t.TempDir(), "nope"))))
	require.NoError(t, err)
	assert.False(t, exists.Bool())
}

func TestBiJoinPathDirnameBasename(t *testing.T) {
	rt := kruntime.NewStandaloneRuntime()
	joined, err := callBuiltin(t, "join_path", rt.NewString([]byte("a")), rt.NewString([]byte("b")), rt.NewString([]byte("c.txt")))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("a", "b", "c.txt"), string(joined.Bytes()))

	dir, err := callBuiltin(t, "dirname", joined)
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(string(joined.Bytes())), string(dir.Bytes()))

	base, err := callBuiltin(t, "basename", joined)
	require.NoError(t, err)
	assert.Equal(t, "c.txt", string(base.Bytes()))
}

func TestBiListFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("y"), 0o644))

	rt := kruntime.NewStandaloneRuntime()
	out, err := callBuiltin(t, "list_files", rt.NewString([]byte(dir)))
	require.NoError(t, err)
	n, err := rt.ListLen(out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
