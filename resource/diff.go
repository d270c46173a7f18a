package resource

import (
	"fmt"
	"reflect"
	"sort"
)

type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
	OpChange Op = "change"
)

// Change is one structural difference between two pulled snapshots.
// Path is dotted for mapping keys and indexed for sequence elements,
// e.g. "resources[2].zone".
type Change struct {
	Op   Op
	Path string
	From any
	To   any
}

func (c Change) String() string {
	switch c.Op {
	case OpAdd:
		return fmt.Sprintf("add %s = %v", c.Path, c.To)
	case OpRemove:
		return fmt.Sprintf("remove %s (was %v)", c.Path, c.From)
	default:
		return fmt.Sprintf("change %s: %v -> %v", c.Path, c.From, c.To)
	}
}

// Report is the outcome of comparing the last two distinct snapshots of a
// resource, with the author of the newer one when the server disclosed it.
type Report struct {
	Changes        []Change
	LastModifiedBy string
}

// diffStates walks both snapshots and reports differences in a stable
// order: mapping keys sorted, sequence elements by index.
func diffStates(prev map[string]any, next map[string]any) []Change {
	changes := []Change{}
	diffMaps("", prev, next, &changes)
	return changes
}

func diffMaps(path string, prev map[string]any, next map[string]any, out *[]Change) {
	keys := map[string]struct{}{}
	for k := range prev {
		keys[k] = struct{}{}
	}
	for k := range next {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		p := path + "." + k
		if path == "" {
			p = k
		}
		from, inPrev := prev[k]
		to, inNext := next[k]
		switch {
		case !inPrev:
			*out = append(*out, Change{Op: OpAdd, Path: p, To: to})
		case !inNext:
			*out = append(*out, Change{Op: OpRemove, Path: p, From: from})
		default:
			diffValues(p, from, to, out)
		}
	}
}

func diffValues(path string, from any, to any, out *[]Change) {
	if fromMap, ok := from.(map[string]any); ok {
		if toMap, ok := to.(map[string]any); ok {
			diffMaps(path, fromMap, toMap, out)
			return
		}
	}
	if fromSeq, ok := from.([]any); ok {
		if toSeq, ok := to.([]any); ok {
			diffSlices(path, fromSeq, toSeq, out)
			return
		}
	}
	if !reflect.DeepEqual(from, to) {
		*out = append(*out, Change{Op: OpChange, Path: path, From: from, To: to})
	}
}

func diffSlices(path string, from []any, to []any, out *[]Change) {
	n := len(from)
	if len(to) < n {
		n = len(to)
	}
	for i := 0; i < n; i++ {
		diffValues(fmt.Sprintf("%s[%d]", path, i), from[i], to[i], out)
	}
	for i := n; i < len(from); i++ {
		*out = append(*out, Change{
			Op: OpRemove, Path: fmt.Sprintf("%s[%d]", path, i), From: from[i],
		})
	}
	for i := n; i < len(to); i++ {
		*out = append(*out, Change{
			Op: OpAdd, Path: fmt.Sprintf("%s[%d]", path, i), To: to[i],
		})
	}
}
