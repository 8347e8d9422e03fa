package records

import "reflect"

// PostFilter holds in-process value filters applied to decoded record bodies
// after the tag filter has been pushed down to the backing store. In alt mode
// each entry's value is a slice of alternatives; otherwise it is a single
// value matched by equality.
type PostFilter map[string]any

// MatchPostFilter reports whether a decoded record body survives the filter.
//
// Positive, non-alt: every listed field must equal its listed value.
// Positive, alt: every listed field's value must be a member of that field's
// alternative set (per-field OR, cross-field AND).
// Negative (either mode): the record is rejected as soon as any listed field
// equals its value (non-alt) or lies in its alternative set (alt).
//
// An empty or nil filter matches everything.
func MatchPostFilter(vals map[string]any, filter PostFilter, positive, alt bool) bool {
	if len(filter) == 0 {
		return true
	}

	if positive {
		for k, want := range filter {
			if !fieldMatches(vals[k], want, alt) {
				return false
			}
		}
		return true
	}

	for k, want := range filter {
		if fieldMatches(vals[k], want, alt) {
			return false
		}
	}
	return true
}

func fieldMatches(got, want any, alt bool) bool {
	if !alt {
		return valueEqual(got, want)
	}
	for _, alternative := range alternatives(want) {
		if valueEqual(got, alternative) {
			return true
		}
	}
	return false
}

func alternatives(want any) []any {
	switch list := want.(type) {
	case []any:
		return list
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out
	}
	return nil
}

// valueEqual compares a decoded JSON value with a filter value. Decoded
// bodies carry strings, bools and float64 numbers, so plain comparability
// covers the common cases; DeepEqual handles the rest.
func valueEqual(got, want any) bool {
	if got == nil || want == nil {
		return got == want
	}
	if reflect.TypeOf(got).Comparable() && reflect.TypeOf(want).Comparable() {
		return got == want
	}
	return reflect.DeepEqual(got, want)
}
