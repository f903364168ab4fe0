// Package kronosconfig loads the VM's tuning knobs from a TOML file,
// following the same toml.Config{NormFieldName, FieldToKey, MissingField}
// pattern the ProbeChain example's gprobe command uses for its own
// configuration: Go struct field names double as the TOML keys verbatim,
// and an unrecognized field is a hard error rather than silently ignored.
package kronosconfig

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"
)

var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Config holds the knobs that tune the value system, GC and VM without
// changing language semantics: initial capacities and growth factors that
// spec.md names as constants (1024-slot intern table, 0.75 map load
// factor) but an embedder may reasonably want to override for a given
// workload.
type Config struct {
	// Runtime tunes pkg/kruntime/pkg/gc.
	Runtime RuntimeConfig

	// VM tunes pkg/vm.
	VM VMConfig
}

// RuntimeConfig mirrors the capacities spec.md hardcodes as constants.
type RuntimeConfig struct {
	InternTableSize  int     `toml:",omitempty"` // default 1024
	MapLoadFactor    float64 `toml:",omitempty"` // default 0.75
	ListInitialCap   int     `toml:",omitempty"` // default 4
	MapInitialCap    int     `toml:",omitempty"` // default 8
	GCCyclesPerCheck int     `toml:",omitempty"` // default 0 (disabled; caller-driven)
}

// VMConfig tunes the dispatch loop.
type VMConfig struct {
	InitialStackCap int `toml:",omitempty"` // default 256
}

// Default returns the hardcoded defaults spec.md names, before any TOML
// overrides are applied.
func Default() Config {
	return Config{
		Runtime: RuntimeConfig{
			InternTableSize: 1024,
			MapLoadFactor:   0.75,
			ListInitialCap:  4,
			MapInitialCap:   8,
		},
		VM: VMConfig{
			InitialStackCap: 256,
		},
	}
}

// Load reads path as TOML into Default()'s result, returning an error for
// any field the file sets that Config does not define (MissingField is
// strict, matching the gprobe-derived settings above).
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	return cfg, err
}
