package kronosconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesNamedConstants(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1024, cfg.Runtime.InternTableSize)
	assert.Equal(t, 0.75, cfg.Runtime.MapLoadFactor)
	assert.Equal(t, 4, cfg.Runtime.ListInitialCap)
	assert.Equal(t, 8, cfg.Runtime.MapInitialCap)
	assert.Equal(t, 256, cfg.VM.InitialStackCap)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kronos.toml")
	toml := "[Runtime]\nInternTableSize = 2048\n\n[VM]\nInitialStackCap = 512\n"
	require.NoError(t, os.WriteFile(path, []byte(toml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.Runtime.InternTableSize)
	assert.Equal(t, 512, cfg.VM.InitialStackCap)
	assert.Equal(t, 0.75, cfg.Runtime.MapLoadFactor, "unset fields keep their default")
}

func TestLoadRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kronos.toml")
	require.NoError(t, os.WriteFile(path, []byte("[Runtime]\nBogusField = 1\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}
