package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/entries/internal/doc"
)

// matchSubset compares actual against expected and describes the first
// difference, or returns "" when they match.
//
// Objects match when every expected key is present and matches; extra keys
// in actual are allowed. Arrays must have the same length and match
// element-wise. Scalars must be equal.
func matchSubset(path string, expected, actual doc.Value) string {
	switch want := expected.(type) {
	case doc.Object:
		got, ok := actual.(doc.Object)
		if !ok {
			return fmt.Sprintf("%s: expected object, got %s", path, doc.Kind(actual))
		}
		for _, k := range want.SortedKeys() {
			gotVal, exists := got[k]
			if !exists {
				return fmt.Sprintf("%s.%s: missing", path, k)
			}
			if m := matchSubset(path+"."+k, want[k], gotVal); m != "" {
				return m
			}
		}
		return ""

	case doc.Array:
		got, ok := actual.(doc.Array)
		if !ok {
			return fmt.Sprintf("%s: expected array, got %s", path, doc.Kind(actual))
		}
		if len(got) != len(want) {
			return fmt.Sprintf("%s: expected %d elements, got %d", path, len(want), len(got))
		}
		for i := range want {
			if m := matchSubset(fmt.Sprintf("%s[%d]", path, i), want[i], got[i]); m != "" {
				return m
			}
		}
		return ""

	default:
		if !doc.Equal(expected, actual) {
			return fmt.Sprintf("%s: expected %s, got %s", path, render(expected), render(actual))
		}
		return ""
	}
}

// lookupPath resolves a dotted path ("entry._id") to a scalar rendered as a
// string.
func lookupPath(v doc.Value, path string) (string, error) {
	cur := v
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(doc.Object)
		if !ok {
			return "", fmt.Errorf("path %q: %s is not an object", path, doc.Kind(cur))
		}
		next, exists := obj[key]
		if !exists {
			return "", fmt.Errorf("path %q: key %q not found", path, key)
		}
		cur = next
	}

	switch val := cur.(type) {
	case doc.String:
		return string(val), nil
	case doc.Number:
		return string(val), nil
	case doc.Bool:
		return fmt.Sprint(bool(val)), nil
	default:
		return "", fmt.Errorf("path %q: expected a scalar, got %s", path, doc.Kind(cur))
	}
}

func render(v doc.Value) string {
	if v == nil {
		return "nothing"
	}
	b, err := doc.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(b)
}
