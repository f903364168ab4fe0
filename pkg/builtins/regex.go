package builtins

import (
	"fmt"
	"regexp"

	"github.com/kristofer/kronos/pkg/kruntime"
	"github.com/kristofer/kronos/pkg/value"
)

// registerRegex installs the regex.*-prefixed subset: regex.match (full
// string match), regex.search (first match anywhere), regex.findall (all
// non-overlapping matches), all built on the standard regexp package.
func (r *Registry) registerRegex() {
	r.Register("regex.match", biRegexMatch)
	r.Register("regex.search", biRegexSearch)
	r.Register("regex.findall", biRegexFindall)
}

func compilePattern(name string, args []*value.Value) (*regexp.Regexp, string, error) {
	pattern, err := wantString(name, args, 0)
	if err != nil {
		return nil, "", err
	}
	s, err := wantString(name, args, 1)
	if err != nil {
		return nil, "", err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, "", fmt.Errorf("%s: invalid pattern: %s", name, err)
	}
	return re, s, nil
}

func biRegexMatch(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	re, s, err := compilePattern("regex.match", args)
	if err != nil {
		return nil, err
	}
	loc := re.FindStringIndex(s)
	matched := loc != nil && loc[0] == 0 && loc[1] == len(s)
	return rt.NewBool(matched), nil
}

func biRegexSearch(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	re, s, err := compilePattern("regex.search", args)
	if err != nil {
		return nil, err
	}
	m := re.FindString(s)
	if m == "" && !re.MatchString(s) {
		return rt.NewNil(), nil
	}
	return rt.NewString([]byte(m)), nil
}

func biRegexFindall(rt *kruntime.Runtime, args []*value.Value) (*value.Value, error) {
	re, s, err := compilePattern("regex.findall", args)
	if err != nil {
		return nil, err
	}
	matches := re.FindAllString(s, -1)
	out := rt.NewList(len(matches))
	for _, m := range matches {
		rt.ListAppend(out, rt.NewString([]byte(m)))
	}
	return out, nil
}
