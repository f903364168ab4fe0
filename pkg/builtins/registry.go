// Package builtins implements the concrete registry of built-in functions
// CALL_FUNC dispatches to before falling back to the user function table.
// Every function here operates directly on the value system (borrowed
// arguments, owned return value) the same way a user-defined Kronos
// function would, so the VM's calling convention never has to special-case
// a built-in.
package builtins

import (
	"fmt"

	"github.com/kristofer/kronos/pkg/kruntime"
	"github.com/kristofer/kronos/pkg/value"
)

// Func is one built-in's implementation: args are borrowed references
// (the VM releases its own copies after the call returns), and the
// returned value is a new owned reference the VM takes ownership of.
type Func func(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error)

// Registry maps a built-in's name (which may carry a module prefix, e.g.
// "regex.match") to its implementation.
type Registry struct {
	fns map[string]Func
}

// NewRegistry returns a Registry pre-populated with the full expected set:
// string/number/array helpers, file I/O, and regex.
func NewRegistry() *Registry {
	r := &Registry{fns: make(map[string]Func)}
	r.registerCore()
	r.registerFile()
	r.registerRegex()
	return r
}

// Register installs or replaces a single built-in, for an embedder adding
// host-specific functions alongside the expected set.
func (r *Registry) Register(name string, fn Func) {
	r.fns[name] = fn
}

// Lookup returns name's implementation, or false if it isn't registered
// (CALL_FUNC then tries the user function table).
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.fns[name]
	return fn, ok
}

func argErr(name string, want, got int) error {
	return fmt.Errorf("%s expects %d argument(s), got %d", name, want, got)
}

func typeErr(name string, i int, want value.Tag, got *value.Value) error {
	return fmt.Errorf("%s: argument %d must be a %s, got %s", name, i, want, got.Tag())
}

func wantString(name string, args []*value.Value, i int) (string, error) {
	if i >= len(args) || args[i].Tag() != value.TagString {
		if i < len(args) {
			return "", typeErr(name, i, value.TagString, args[i])
		}
		return "", argErr(name, i+1, len(args))
	}
	return string(args[i].Bytes()), nil
}

func wantNumber(name string, args []*value.Value, i int) (float64, error) {
	if i >= len(args) || args[i].Tag() != value.TagNumber {
		if i < len(args) {
			return 0, typeErr(name, i, value.TagNumber, args[i])
		}
		return 0, argErr(name, i+1, len(args))
	}
	return args[i].Number(), nil
}
