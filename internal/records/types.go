// Package records holds the in-memory baseline of every tracked file.
//
// A FileRecord is the last processed content of a path. Records are created by
// the startup scan or the first event for a path and replaced only after a
// confirmed change; nothing is persisted across restarts.
package records

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// FileRecord is the last processed state of one tracked path.
// Invariant: Fingerprint == Fingerprint(Lines).
type FileRecord struct {
	Path          string
	Lines         []string // line 1 at index 0, trailing newline kept
	Fingerprint   uint64
	LastEventTime time.Time
	Armed         bool // swallow exactly one event before detection starts
}

// LineCount returns the number of lines in the record
func (r FileRecord) LineCount() int {
	return len(r.Lines)
}

// Fingerprint computes the content digest of lines.
// Each line is length-prefixed so ["ab"] and ["a", "b"] never collide by concatenation.
func Fingerprint(lines []string) uint64 {
	d := xxhash.New()
	for _, line := range lines {
		_, _ = d.WriteString(strconv.Itoa(len(line)))
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(line)
	}
	return d.Sum64()
}

// ReadLines reads a file into lines, keeping each line's trailing newline.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only

	return SplitLinesReader(f)
}

// SplitLinesReader splits r into newline-terminated lines.
// The final line is kept even without a trailing newline.
func SplitLinesReader(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	lines := make([]string, 0, 64)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			lines = append(lines, line)
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// SplitLines is SplitLinesReader for in-memory content.
func SplitLines(content string) []string {
	lines, _ := SplitLinesReader(strings.NewReader(content))
	return lines
}
