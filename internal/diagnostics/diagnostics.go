// Package diagnostics defines the structured output of an analyzer and the
// filter that narrows it to the lines touched by an edit.
package diagnostics

import "sort"

// Diagnostic is one finding extracted from an analyzer output row.
type Diagnostic struct {
	Tool string
	Line int    // 1-indexed
	Text string // message without the location prefix
	Raw  string // the unmodified output row
}

// LineSet is a set of 1-indexed line numbers.
type LineSet map[int]struct{}

// NewLineSet builds a set from line numbers.
func NewLineSet(lines ...int) LineSet {
	s := make(LineSet, len(lines))
	for _, l := range lines {
		s[l] = struct{}{}
	}
	return s
}

// Contains reports whether line is in the set.
func (s LineSet) Contains(line int) bool {
	_, ok := s[line]
	return ok
}

// Sorted returns the line numbers in ascending order.
func (s LineSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// Apply keeps the diagnostics whose line is in changed, preserving order.
// Diagnostics without a positive line number never match.
func Apply(diags []Diagnostic, changed LineSet) []Diagnostic {
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.Line <= 0 {
			continue
		}
		if changed.Contains(d.Line) {
			out = append(out, d)
		}
	}
	return out
}
