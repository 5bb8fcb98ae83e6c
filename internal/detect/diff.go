package detect

import (
	"github.com/pmezard/go-difflib/difflib"

	"linewatch/internal/diagnostics"
	"linewatch/internal/records"
)

// ChangeSet is the result of one accepted modification.
// Every element of ChangedLines is within [1, len(NewLines)].
type ChangeSet struct {
	Path         string
	ChangedLines []int // ascending, 1-indexed
	NewLines     []string
}

// LineSet returns ChangedLines as a set for diagnostic filtering
func (c ChangeSet) LineSet() diagnostics.LineSet {
	return diagnostics.NewLineSet(c.ChangedLines...)
}

// Empty reports whether no line was added or modified
func (c ChangeSet) Empty() bool {
	return len(c.ChangedLines) == 0
}

// Line returns the text of the 1-indexed line n of the new content
func (c ChangeSet) Line(n int) string {
	if n < 1 || n > len(c.NewLines) {
		return ""
	}
	return c.NewLines[n-1]
}

// HasRealContentChange compares fingerprints; equal content is a no-op.
func HasRealContentChange(oldLines, newLines []string) bool {
	return records.Fingerprint(oldLines) != records.Fingerprint(newLines)
}

// ComputeChange aligns oldLines and newLines and returns the line numbers of
// newLines that were inserted or replaced.
//
// Unchanged runs are aligned, so an insertion never shifts the lines after it
// into the result. A line removed in one place and re-added verbatim in
// another is a move and is not reported. Deletions contribute nothing.
func ComputeChange(path string, oldLines, newLines []string) ChangeSet {
	cs := ChangeSet{Path: path, NewLines: newLines, ChangedLines: []int{}}
	if len(newLines) == 0 {
		return cs
	}

	// Autojunk off: popular lines such as blank lines or "pass" must still align.
	m := difflib.NewMatcherWithJunk(oldLines, newLines, false, nil)
	opcodes := m.GetOpCodes()

	removed := make(map[string]int)
	for _, op := range opcodes {
		if op.Tag == 'd' || op.Tag == 'r' {
			for i := op.I1; i < op.I2; i++ {
				removed[oldLines[i]]++
			}
		}
	}

	for _, op := range opcodes {
		if op.Tag != 'i' && op.Tag != 'r' {
			continue
		}
		for j := op.J1; j < op.J2; j++ {
			if removed[newLines[j]] > 0 {
				removed[newLines[j]]--
				continue
			}
			cs.ChangedLines = append(cs.ChangedLines, j+1)
		}
	}
	return cs
}
