package builtins

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kristofer/kronos/pkg/kruntime"
	"github.com/kristofer/kronos/pkg/value"
)

// registerFile installs the file.*-flavored portion of §6's expected set:
// read_file, write_file, read_lines, file_exists, list_files, join_path,
// dirname, basename. Grounded on the teacher's own stdlib-backed
// primitives (os, path/filepath), narrowed to what §6 actually names —
// the teacher's HTTP/crypto/compression built-ins have no home in this
// spec's expected set.
func (r *Registry) registerFile() {
	r.Register("read_file", biReadFile)
	r.Register("write_file", biWriteFile)
	r.Register("read_lines", biReadLines)
	r.Register("file_exists", biFileExists)
	r.Register("list_files", biListFiles)
	r.Register("join_path", biJoinPath)
	r.Register("dirname", biDirname)
	r.Register("basename", biBasename)
}

func biReadFile(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	path, err := wantString("read_file", args, 0)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read_file: %s", err)
	}
	return rt.NewString(data), nil
}

func biWriteFile(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	path, err := wantString("write_file", args, 0)
	if err != nil {
		return nil, err
	}
	contents, err := wantString("write_file", args, 1)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return nil, fmt.Errorf("write_file: %s", err)
	}
	return rt.NewNil(), nil
}

func biReadLines(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	path, err := wantString("read_lines", args, 0)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read_lines: %s", err)
	}
	text := strings.TrimRight(string(data), "\n")
	var lines []string
	if text != "" {
		lines = strings.Split(text, "\n")
	}
	out := rt.NewList(len(lines))
	for _, l := range lines {
		rt.ListAppend(out, rt.NewString([]byte(l)))
	}
	return out, nil
}

func biFileExists(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	path, err := wantString("file_exists", args, 0)
	if err != nil {
		return nil, err
	}
	_, statErr := os.Stat(path)
	return rt.NewBool(statErr == nil), nil
}

func biListFiles(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	path, err := wantString("list_files", args, 0)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("list_files: %s", err)
	}
	out := rt.NewList(len(entries))
	for _, e := range entries {
		rt.ListAppend(out, rt.NewString([]byte(e.Name())))
	}
	return out, nil
}

func biJoinPath(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("join_path expects at least 1 argument")
	}
	parts := make([]string, len(args))
	for i := range args {
		s, err := wantString("join_path", args, i)
		if err != nil {
			return nil, err
		}
		parts[i] = s
	}
	return rt.NewString([]byte(filepath.Join(parts...))), nil
}

func biDirname(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	path, err := wantString("dirname", args, 0)
	if err != nil {
		return nil, err
	}
	return rt.NewString([]byte(filepath.Dir(path))), nil
}

func biBasename(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	path, err := wantString("basename", args, 0)
	if err != nil {
		return nil, err
	}
	return rt.NewString([]byte(filepath.Base(path))), nil
}
