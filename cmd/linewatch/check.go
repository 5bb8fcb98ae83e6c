package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"linewatch/internal/analyzers"
	"linewatch/internal/diagnostics"
	lwerrors "linewatch/internal/errors"
	"linewatch/internal/records"
	"linewatch/internal/slogutil"
)

var (
	checkLines string
	checkRoot  string
)

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Run the analyzers once on a file",
	Long: `Run every configured analyzer on file and print the findings on the given
lines, exactly as the watcher would after a change.

Examples:
  linewatch check app.py                 # all lines
  linewatch check app.py --lines 3,5-7   # lines 3, 5, 6 and 7`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkLines, "lines", "", "Lines to report, e.g. 3,5-7 (default: all)")
	checkCmd.Flags().StringVar(&checkRoot, "root", "", "Directory whose configuration is used (default: the file's directory)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	file, err := filepath.Abs(args[0])
	if err != nil {
		return lwerrors.New(lwerrors.UsageError, "Invalid file", err, nil)
	}
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is a directory", file)
		}
		return lwerrors.New(lwerrors.UsageError, "Not a file", err, nil)
	}

	rootArg := checkRoot
	if rootArg == "" {
		rootArg = filepath.Dir(file)
	}
	root, err := resolveRoot([]string{rootArg})
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}

	lines, err := records.ReadLines(file)
	if err != nil {
		return lwerrors.New(lwerrors.IOFailure, "Failed to read file", err, nil)
	}

	var changed diagnostics.LineSet
	if checkLines == "" {
		changed = allLines(len(lines))
	} else {
		changed, err = parseLineSpec(checkLines)
		if err != nil {
			return lwerrors.New(lwerrors.UsageError, "Invalid --lines", err, nil)
		}
	}

	tools, err := analyzers.BuildForRoot(root, cfg, analyzers.NewRealRunner(), slogutil.NewDiscardLogger())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed := 0
	for i, t := range tools {
		if i > 0 {
			fmt.Println()
		}
		if r := analyzers.FilterAndReport(ctx, t, file, changed, os.Stdout); r.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d analyzers failed", failed, len(tools))
	}
	return nil
}

// parseLineSpec parses "3,5-7" into {3,5,6,7}
func parseLineSpec(spec string) (diagnostics.LineSet, error) {
	set := diagnostics.NewLineSet()
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || first < 1 {
			return nil, fmt.Errorf("bad line %q", part)
		}
		last := first
		if isRange {
			last, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || last < first {
				return nil, fmt.Errorf("bad range %q", part)
			}
		}
		for n := first; n <= last; n++ {
			set[n] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no lines in %q", spec)
	}
	return set, nil
}

func allLines(n int) diagnostics.LineSet {
	set := diagnostics.NewLineSet()
	for i := 1; i <= n; i++ {
		set[i] = struct{}{}
	}
	return set
}
