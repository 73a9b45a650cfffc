// Package filter holds the pure predicates the dashboard lists are narrowed with.
// None of them mutate their input; Apply only ever removes rows.
package filter

import "strings"

// All is the sentinel that disables an equality filter.
const All = "all"

// Resolution filter states.
const (
	StateOpen     = "open"
	StateResolved = "resolved"
)

// Predicate reports whether a row stays in the view.
type Predicate[T any] func(T) bool

// Apply returns the rows that pass every predicate, in their original order.
// The input slice is never written to; the result is always a new slice.
func Apply[T any](rows []T, preds ...Predicate[T]) []T {
	out := make([]T, 0, len(rows))
rowLoop:
	for _, row := range rows {
		for _, p := range preds {
			if !p(row) {
				continue rowLoop
			}
		}
		out = append(out, row)
	}
	return out
}

// WithAll prefixes the All sentinel to an allow-list of values.
func WithAll(values ...string) []string {
	out := make([]string, 0, len(values)+1)
	out = append(out, All)
	return append(out, values...)
}

// Equal passes when want is unset, the All sentinel, or exactly got.
func Equal(want, got string) bool {
	return want == "" || want == All || want == got
}

// Contains passes when term is empty or is a case-insensitive substring of any field.
func Contains(term string, fields ...string) bool {
	if term == "" {
		return true
	}
	needle := strings.ToLower(term)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// Resolved applies the tri-state resolution filter. A nil resolution is open.
func Resolved(state string, resolved *bool) bool {
	switch state {
	case StateResolved:
		return resolved != nil && *resolved
	case StateOpen:
		return resolved == nil || !*resolved
	default:
		return true
	}
}
