package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"linewatch/internal/analyzers"
	"linewatch/internal/detect"
	"linewatch/internal/diagnostics"
	lwerrors "linewatch/internal/errors"
)

func TestRunBlock(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	cs := detect.ChangeSet{
		Path:         "app.py",
		ChangedLines: []int{2},
		NewLines:     []string{"import os\n", "x=1\n"},
	}
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	results := []analyzers.Result{
		{Tool: "flake8", Label: "Flake8", Path: "app.py", Diagnostics: []diagnostics.Diagnostic{
			{Line: 2, Raw: "2:E225 missing whitespace around operator"},
		}},
		{Tool: "mypy", Label: "MyPy", Path: "app.py"},
		{Tool: "bandit", Label: "Bandit", Path: "app.py",
			Err: lwerrors.New(lwerrors.AnalyzerTimeout, "Analyzer timed out", nil, nil)},
	}

	r.Run("abc123", cs, at, results)

	want := strings.Join([]string{
		"[2024-05-01 09:30:00] Detected changes in the file: [app.py]",
		"New/Changed line at 2: x=1",
		"",
		"Flake8: Filtered results for 'app.py':",
		"2:E225 missing whitespace around operator",
		"",
		"MyPy: No issues found for the newly added or changed lines in 'app.py'.",
		"",
		"Bandit: Analyzer timed out for 'app.py' (ANALYZER_TIMEOUT)",
		Separator("abc123"),
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestRunOnlyDeletions(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Run("r1", detect.ChangeSet{Path: "a.py"}, time.Now(), nil)

	assert.Contains(t, buf.String(), "Only deletions")
}

func TestNoChange(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).NoChange("a.py")

	assert.Equal(t, "File 'a.py' was modified but no content change was detected.\n", buf.String())
}

func TestColorize(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, true).NoChange("a.py")

	assert.Contains(t, buf.String(), "\x1b[")
}

func TestSeparator(t *testing.T) {
	s := Separator("0f8c")
	assert.Contains(t, s, " run 0f8c ")
	assert.Len(t, s, separatorWidth)
	assert.True(t, strings.HasPrefix(s, "---"))
}
