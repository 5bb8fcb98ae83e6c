// Package analyzers runs external static-analysis tools and turns their output
// into diagnostics.
//
// Every tool is an Analyzer. The built-in flake8, pylint, mypy and bandit
// adapters and any user-defined tools share one positional parser: a row is
// split on a separator and the line number is read from a fixed field.
package analyzers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"linewatch/internal/diagnostics"
	lwerrors "linewatch/internal/errors"
)

// Analyzer is the capability every analysis back end implements.
type Analyzer interface {
	// Name is the stable identifier used in configuration.
	Name() string

	// Invoke runs the tool against the whole file and returns its raw report.
	// Failures carry ANALYZER_UNAVAILABLE or ANALYZER_TIMEOUT codes.
	Invoke(ctx context.Context, path string) (string, error)

	// Parse extracts diagnostics from raw output. Rows that do not match the
	// tool's format are skipped.
	Parse(raw string) []diagnostics.Diagnostic
}

// StatsParser is implemented by analyzers that count skipped rows.
type StatsParser interface {
	ParseWithStats(raw string) ([]diagnostics.Diagnostic, ParseStats)
}

// Labeled is implemented by analyzers with a human-facing name.
type Labeled interface {
	Label() string
}

// ParseStats counts the rows seen by a parser.
type ParseStats struct {
	Rows    int // non-blank rows
	Parsed  int
	Skipped int
}

// Result is the outcome of one analyzer against one change.
type Result struct {
	Tool        string
	Label       string
	Path        string
	Diagnostics []diagnostics.Diagnostic // filtered to the changed lines
	Total       int                      // diagnostics before filtering
	Stats       ParseStats
	Elapsed     time.Duration
	Err         error
}

// Failed reports whether the analyzer could not produce output
func (r Result) Failed() bool {
	return r.Err != nil
}

// TimedOut reports whether the analyzer hit its timeout
func (r Result) TimedOut() bool {
	return lwerrors.Is(r.Err, lwerrors.AnalyzerTimeout)
}

// Canceled reports whether the run was abandoned because the caller stopped
func (r Result) Canceled() bool {
	return errors.Is(r.Err, context.Canceled)
}

// LabelOf returns the display name of a
func LabelOf(a Analyzer) string {
	if l, ok := a.(Labeled); ok && l.Label() != "" {
		return l.Label()
	}
	return a.Name()
}

// Run invokes a, parses its output and keeps the diagnostics on changed lines.
// A failed invocation is recorded in the result with no diagnostics.
func Run(ctx context.Context, a Analyzer, path string, changed diagnostics.LineSet) Result {
	r := Result{Tool: a.Name(), Label: LabelOf(a), Path: path}

	start := time.Now()
	raw, err := a.Invoke(ctx, path)
	r.Elapsed = time.Since(start)
	if err != nil {
		r.Err = err
		return r
	}

	var diags []diagnostics.Diagnostic
	if sp, ok := a.(StatsParser); ok {
		diags, r.Stats = sp.ParseWithStats(raw)
	} else {
		diags = a.Parse(raw)
		r.Stats = ParseStats{Parsed: len(diags)}
	}

	r.Total = len(diags)
	r.Diagnostics = diagnostics.Apply(diags, changed)
	return r
}

// FilterAndReport runs a and writes its filtered result to w.
func FilterAndReport(ctx context.Context, a Analyzer, path string, changed diagnostics.LineSet, w io.Writer) Result {
	r := Run(ctx, a, path, changed)
	WriteResult(w, r)
	return r
}

// WriteResult writes r in plain text.
func WriteResult(w io.Writer, r Result) {
	switch {
	case r.Failed():
		fmt.Fprintln(w, FailureMessage(r))
	case len(r.Diagnostics) == 0:
		fmt.Fprintln(w, NoIssuesMessage(r.Label, r.Path))
	default:
		fmt.Fprintln(w, ResultsHeader(r.Label, r.Path))
		for _, d := range r.Diagnostics {
			fmt.Fprintln(w, d.Raw)
		}
	}
}

// NoIssuesMessage is printed when no diagnostic falls on a changed line
func NoIssuesMessage(label, path string) string {
	return fmt.Sprintf("%s: No issues found for the newly added or changed lines in '%s'.", label, path)
}

// ResultsHeader precedes the filtered diagnostics of one analyzer
func ResultsHeader(label, path string) string {
	return fmt.Sprintf("%s: Filtered results for '%s':", label, path)
}

// FailureMessage describes a failed analyzer run
func FailureMessage(r Result) string {
	var lw *lwerrors.LinewatchError
	if errors.As(r.Err, &lw) {
		return fmt.Sprintf("%s: %s for '%s' (%s)", r.Label, lw.Message, r.Path, lw.Code)
	}
	return fmt.Sprintf("%s: failed for '%s': %v", r.Label, r.Path, r.Err)
}
