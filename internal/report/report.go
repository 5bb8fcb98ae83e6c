// Package report renders change and analyzer output for the console.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"linewatch/internal/analyzers"
	"linewatch/internal/detect"
)

// TimestampLayout is the banner timestamp format
const TimestampLayout = "2006-01-02 15:04:05"

const separatorWidth = 72

// Reporter writes one block per analysis run. Blocks from concurrent runs
// never interleave.
type Reporter struct {
	mu sync.Mutex
	w  io.Writer

	banner  *color.Color
	changed *color.Color
	tool    *color.Color
	finding *color.Color
	clean   *color.Color
	failure *color.Color
	faint   *color.Color
}

// New creates a reporter; colorize forces ANSI colours on or off.
func New(w io.Writer, colorize bool) *Reporter {
	r := &Reporter{
		w:       w,
		banner:  color.New(color.FgCyan, color.Bold),
		changed: color.New(color.FgYellow),
		tool:    color.New(color.FgBlue, color.Bold),
		finding: color.New(color.FgRed),
		clean:   color.New(color.FgGreen),
		failure: color.New(color.FgMagenta),
		faint:   color.New(color.Faint),
	}
	for _, c := range []*color.Color{r.banner, r.changed, r.tool, r.finding, r.clean, r.failure, r.faint} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

// Banner returns the change banner for path
func Banner(path string, at time.Time) string {
	return fmt.Sprintf("[%s] Detected changes in the file: [%s]", at.Format(TimestampLayout), path)
}

// ChangedLine describes one changed line
func ChangedLine(n int, text string) string {
	return fmt.Sprintf("New/Changed line at %d: %s", n, strings.TrimRight(text, "\r\n"))
}

// NoContentChange is printed for events that leave the content unchanged
func NoContentChange(path string) string {
	return fmt.Sprintf("File '%s' was modified but no content change was detected.", path)
}

// Separator closes a run block
func Separator(runID string) string {
	label := " run " + runID + " "
	pad := separatorWidth - len(label)
	if pad < 4 {
		pad = 4
	}
	return strings.Repeat("-", pad/2) + label + strings.Repeat("-", pad-pad/2)
}

// Run writes a complete run: banner, changed lines, each analyzer result in
// order, and the separator.
func (r *Reporter) Run(runID string, cs detect.ChangeSet, at time.Time, results []analyzers.Result) {
	var buf bytes.Buffer

	r.banner.Fprintln(&buf, Banner(cs.Path, at))
	for _, n := range cs.ChangedLines {
		r.changed.Fprintln(&buf, ChangedLine(n, cs.Line(n)))
	}
	if cs.Empty() {
		r.faint.Fprintln(&buf, "Only deletions; no lines to analyze.")
	}

	for _, res := range results {
		buf.WriteString("\n")
		r.writeResult(&buf, res)
	}

	r.faint.Fprintln(&buf, Separator(runID))
	r.flush(buf.Bytes())
}

// NoChange reports an event whose content hash did not change
func (r *Reporter) NoChange(path string) {
	var buf bytes.Buffer
	r.faint.Fprintln(&buf, NoContentChange(path))
	r.flush(buf.Bytes())
}

func (r *Reporter) writeResult(buf *bytes.Buffer, res analyzers.Result) {
	switch {
	case res.Failed():
		r.failure.Fprintln(buf, analyzers.FailureMessage(res))
	case len(res.Diagnostics) == 0:
		r.clean.Fprintln(buf, analyzers.NoIssuesMessage(res.Label, res.Path))
	default:
		r.tool.Fprintln(buf, analyzers.ResultsHeader(res.Label, res.Path))
		for _, d := range res.Diagnostics {
			r.finding.Fprintln(buf, d.Raw)
		}
	}
}

func (r *Reporter) flush(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = r.w.Write(p)
}
