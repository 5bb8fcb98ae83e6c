package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"linewatch/internal/analyzers"
	lwerrors "linewatch/internal/errors"
	"linewatch/internal/slogutil"
)

var doctorFormat string

var doctorCmd = &cobra.Command{
	Use:   "doctor [dir]",
	Short: "Check that the configured analyzers are installed",
	Long: `Resolve the analyzers configured for dir (built-in and custom) and check
that each command is on PATH. Exits non-zero when any analyzer is missing.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(doctorCmd)
}

// AnalyzerCheck is the availability of one analyzer
type AnalyzerCheck struct {
	Name      string               `json:"name"`
	Command   string               `json:"command"`
	Path      string               `json:"path,omitempty"`
	Available bool                 `json:"available"`
	Fixes     []lwerrors.FixAction `json:"fixes,omitempty"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}

	tools, err := analyzers.BuildForRoot(root, cfg, analyzers.NewRealRunner(), slogutil.NewDiscardLogger())
	if err != nil {
		return err
	}

	checks := checkAnalyzers(tools)
	missing := 0
	for _, c := range checks {
		if !c.Available {
			missing++
		}
	}

	switch doctorFormat {
	case "json":
		data, err := json.MarshalIndent(checks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "human":
		writeChecksHuman(os.Stdout, checks, useColor())
	default:
		return lwerrors.New(lwerrors.UsageError, "Unsupported format",
			fmt.Errorf("format %q: must be json or human", doctorFormat), nil)
	}

	if missing > 0 {
		return fmt.Errorf("%d of %d analyzers unavailable", missing, len(checks))
	}
	return nil
}

// checkAnalyzers looks up each tool with LookPath
func checkAnalyzers(tools []*analyzers.Tool) []AnalyzerCheck {
	checks := make([]AnalyzerCheck, 0, len(tools))
	for _, t := range tools {
		c := AnalyzerCheck{Name: t.Name(), Command: t.Command()}
		p, err := t.Available()
		if err == nil {
			c.Available = true
			c.Path = p
		} else {
			var lw *lwerrors.LinewatchError
			if errors.As(err, &lw) {
				c.Fixes = lw.SuggestedFixes
			}
		}
		checks = append(checks, c)
	}
	return checks
}

func writeChecksHuman(w io.Writer, checks []AnalyzerCheck, colorize bool) {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	if colorize {
		ok.EnableColor()
		bad.EnableColor()
	} else {
		ok.DisableColor()
		bad.DisableColor()
	}

	for _, c := range checks {
		if c.Available {
			fmt.Fprintf(w, "%s %-10s %s\n", ok.Sprint("ok"), c.Name, c.Path)
			continue
		}
		fmt.Fprintf(w, "%s %-10s %s not found on PATH\n", bad.Sprint("!!"), c.Name, c.Command)
		for _, f := range c.Fixes {
			if f.Type == lwerrors.InstallTool && f.Command != "" {
				fmt.Fprintf(w, "   fix: %s\n", f.Command)
			}
		}
	}
}
