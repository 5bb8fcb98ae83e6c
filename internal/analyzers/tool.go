package analyzers

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"linewatch/internal/diagnostics"
	lwerrors "linewatch/internal/errors"
)

// PathPlaceholder is replaced by the analyzed file in Definition.Args
const PathPlaceholder = "{path}"

// Definition describes how to run one tool and where its rows keep the line number.
type Definition struct {
	Name        string   `toml:"name"`
	Label       string   `toml:"label"`
	Command     string   `toml:"command"`
	Args        []string `toml:"args"`
	Separator   string   `toml:"separator"`
	LineField   int      `toml:"line_field"`
	OKExitCodes []int    `toml:"ok_exit_codes"`
	TimeoutMs   int      `toml:"timeout_ms"`
	Install     string   `toml:"install"`
}

// Validate checks that d can be turned into a Tool
func (d Definition) Validate() error {
	switch {
	case d.Name == "":
		return fmt.Errorf("analyzer definition: name is required")
	case d.Command == "":
		return fmt.Errorf("analyzer %q: command is required", d.Name)
	case d.LineField < 0:
		return fmt.Errorf("analyzer %q: line_field must be >= 0", d.Name)
	case d.TimeoutMs < 0:
		return fmt.Errorf("analyzer %q: timeout_ms must be >= 0", d.Name)
	}
	hasPath := false
	for _, a := range d.Args {
		if strings.Contains(a, PathPlaceholder) {
			hasPath = true
			break
		}
	}
	if !hasPath {
		return fmt.Errorf("analyzer %q: args must contain %s", d.Name, PathPlaceholder)
	}
	return nil
}

// Tool is an Analyzer backed by an external command and a positional parser.
type Tool struct {
	def     Definition
	timeout time.Duration
	runner  ExecRunner
}

// NewTool creates a Tool. A zero timeout means the caller's context bounds the run.
func NewTool(def Definition, timeout time.Duration, runner ExecRunner) *Tool {
	if def.Separator == "" {
		def.Separator = ":"
	}
	if len(def.OKExitCodes) == 0 {
		def.OKExitCodes = []int{0}
	}
	if def.Label == "" {
		def.Label = defaultLabel(def.Name)
	}
	if def.TimeoutMs > 0 {
		timeout = time.Duration(def.TimeoutMs) * time.Millisecond
	}
	return &Tool{def: def, timeout: timeout, runner: runner}
}

// Name implements Analyzer.
func (t *Tool) Name() string { return t.def.Name }

// Label implements Labeled.
func (t *Tool) Label() string { return t.def.Label }

// Command returns the executable name
func (t *Tool) Command() string { return t.def.Command }

// Timeout returns the per-invocation timeout
func (t *Tool) Timeout() time.Duration { return t.timeout }

// Args returns the argument list for path
func (t *Tool) Args(path string) []string {
	args := make([]string, len(t.def.Args))
	for i, a := range t.def.Args {
		args[i] = strings.ReplaceAll(a, PathPlaceholder, path)
	}
	return args
}

// Available checks that the command is on PATH.
func (t *Tool) Available() (string, error) {
	p, err := t.runner.LookPath(t.def.Command)
	if err != nil {
		return "", t.unavailable("Analyzer not installed", err)
	}
	return p, nil
}

// Invoke implements Analyzer.
func (t *Tool) Invoke(ctx context.Context, path string) (string, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	stdout, stderr, err := t.runner.Run(ctx, t.def.Command, t.Args(path)...)
	if err == nil {
		return stdout, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", lwerrors.New(lwerrors.AnalyzerTimeout, "Analyzer timed out", ctx.Err(),
			lwerrors.GetSuggestedFixes(lwerrors.AnalyzerTimeout)).
			WithDetails(map[string]interface{}{"tool": t.def.Name, "timeout": t.timeout.String()})
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return "", ctx.Err()
	}

	if errors.Is(err, exec.ErrNotFound) {
		return "", t.unavailable("Analyzer not installed", err)
	}

	var exit interface{ ExitCode() int }
	if errors.As(err, &exit) {
		if t.okExit(exit.ExitCode()) {
			return stdout, nil
		}
		return "", t.unavailable("Analyzer crashed", err).
			WithDetails(map[string]interface{}{
				"tool":     t.def.Name,
				"exitCode": exit.ExitCode(),
				"stderr":   stderr,
			})
	}

	return "", t.unavailable("Analyzer could not be started", err)
}

// Parse implements Analyzer.
func (t *Tool) Parse(raw string) []diagnostics.Diagnostic {
	diags, _ := t.ParseWithStats(raw)
	return diags
}

// ParseWithStats implements StatsParser.
func (t *Tool) ParseWithStats(raw string) ([]diagnostics.Diagnostic, ParseStats) {
	var stats ParseStats
	var diags []diagnostics.Diagnostic

	for _, row := range strings.Split(raw, "\n") {
		row = strings.TrimRight(row, "\r")
		if strings.TrimSpace(row) == "" {
			continue
		}
		stats.Rows++

		d, ok := t.parseRow(row)
		if !ok {
			stats.Skipped++
			continue
		}
		stats.Parsed++
		diags = append(diags, d)
	}
	return diags, stats
}

// parseRow reads the line number from field LineField and takes the rest of
// the row after it as the message.
func (t *Tool) parseRow(row string) (diagnostics.Diagnostic, bool) {
	body := row
	if t.def.LineField > 0 && t.def.Separator == ":" {
		body = trimDrive(body)
	}

	fields := strings.SplitN(body, t.def.Separator, t.def.LineField+2)
	if len(fields) <= t.def.LineField {
		return diagnostics.Diagnostic{}, false
	}

	line, err := strconv.Atoi(strings.TrimSpace(fields[t.def.LineField]))
	if err != nil || line <= 0 {
		return diagnostics.Diagnostic{}, false
	}

	text := ""
	if len(fields) > t.def.LineField+1 {
		text = strings.TrimSpace(fields[t.def.LineField+1])
	}

	return diagnostics.Diagnostic{
		Tool: t.def.Name,
		Line: line,
		Text: text,
		Raw:  row,
	}, true
}

func (t *Tool) okExit(code int) bool {
	for _, c := range t.def.OKExitCodes {
		if c == code {
			return true
		}
	}
	return false
}

func (t *Tool) unavailable(msg string, cause error) *lwerrors.LinewatchError {
	fixes := append([]lwerrors.FixAction{}, lwerrors.GetSuggestedFixes(lwerrors.AnalyzerUnavailable)...)
	if t.def.Install != "" {
		fix := lwerrors.InstallFix(t.def.Command)
		fix.Command = t.def.Install
		fixes = append(fixes, fix)
	}
	return lwerrors.New(lwerrors.AnalyzerUnavailable, msg, cause, fixes).
		WithDetails(map[string]interface{}{"tool": t.def.Name, "command": t.def.Command})
}

// trimDrive drops a Windows drive prefix so "C:\x.py:3:..." keeps its field positions.
func trimDrive(row string) string {
	if len(row) >= 3 && row[1] == ':' && (row[2] == '\\' || row[2] == '/') &&
		((row[0] >= 'a' && row[0] <= 'z') || (row[0] >= 'A' && row[0] <= 'Z')) {
		return row[2:]
	}
	return row
}

func defaultLabel(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
