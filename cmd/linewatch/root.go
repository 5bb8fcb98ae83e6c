package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"linewatch/internal/analyzers"
	"linewatch/internal/config"
	"linewatch/internal/detect"
	lwerrors "linewatch/internal/errors"
	"linewatch/internal/orchestrator"
	"linewatch/internal/records"
	"linewatch/internal/report"
	"linewatch/internal/slogutil"
	"linewatch/internal/version"
	"linewatch/internal/watcher"
)

var (
	configFile    string
	debounceMs    int
	analyzerNames []string
	verbosity     int
	quiet         bool
	logFile       string
	noColor       bool
)

var rootCmd = &cobra.Command{
	Use:   "linewatch [dir]",
	Short: "Run Python analyzers on the lines you just changed",
	Long: `linewatch watches a directory tree and, each time a tracked file is saved,
works out which lines were added or changed and reports only the analyzer
findings (flake8, pylint, mypy, bandit or custom tools) on those lines.

The first sighting of a file only records its baseline.`,
	Args:          cobra.MaximumNArgs(1),
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWatch,
}

func init() {
	rootCmd.SetVersionTemplate("linewatch version {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default: <dir>/.linewatch/config.{json,yaml,toml})")
	pf.StringSliceVar(&analyzerNames, "analyzers", nil, "Analyzers to run, comma separated (overrides analyzers.enabled)")
	pf.CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Suppress all logs")
	pf.StringVar(&logFile, "log-file", "", "Also write logs to this file")
	pf.BoolVar(&noColor, "no-color", false, "Disable coloured output")

	rootCmd.Flags().IntVar(&debounceMs, "debounce", 0, "Minimum milliseconds between two analyzed events for a file")
}

func runWatch(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}

	colorize := useColor()
	factory := slogutil.NewLoggerFactory(root, cfg, cliLevel())
	defer factory.Close()
	logger := factory.ProcessLogger(os.Stderr, colorize)

	store := records.NewStore(records.StoreOptions{
		ArmOnLoad:          cfg.Watch.SuppressFirstEvent,
		CompressAboveBytes: cfg.Store.CompressAboveBytes,
	}, logger)
	defer store.Close()

	det := detect.New(store, detect.Options{
		Root:   root,
		Window: cfg.DebounceWindow(),
		Ignore: detect.NewIgnoreMatcher(cfg.Watch.IgnorePatterns),
	}, logger)

	tools, err := analyzers.BuildForRoot(root, cfg, analyzers.NewRealRunner(), logger)
	if err != nil {
		return err
	}
	warnUnavailable(tools, logger)

	orch := orchestrator.New(store, det, analyzers.AsAnalyzers(tools), report.New(os.Stdout, colorize),
		orchestrator.Options{
			Root:                 root,
			Extensions:           cfg.Watch.Extensions,
			MaxConcurrentFiles:   int64(cfg.Pipeline.MaxConcurrentFiles),
			MaxParallelAnalyzers: cfg.Analyzers.MaxParallel,
		}, logger)
	defer orch.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := orch.Scan(ctx); err != nil {
		return lwerrors.New(lwerrors.IOFailure, "Failed to scan directory", err, nil).
			WithDetails(map[string]interface{}{"root": root})
	}

	w := watcher.New(watcher.Config{
		Root:       root,
		Extensions: cfg.Watch.Extensions,
		Settle:     cfg.SettleDelay(),
		IgnoreDir:  det.IsIgnoredDir,
		IgnoreFile: det.IsIgnored,
	}, logger, orch.HandleEvent)
	if err := w.Start(); err != nil {
		return lwerrors.New(lwerrors.IOFailure, "Failed to start file watcher", err, nil).
			WithDetails(map[string]interface{}{"root": root})
	}

	fmt.Fprintf(os.Stdout, "Watching %s for changes (%d analyzers). Press Ctrl+C to stop.\n", root, len(tools))

	<-ctx.Done()
	logger.Info("Shutting down")

	if err := w.Stop(); err != nil {
		logger.Warn("File watcher did not stop cleanly", "error", err.Error())
	}
	_ = orch.Close()

	st := orch.Stats()
	logger.Info("Stopped",
		"events", st.Events,
		"runs", st.Runs,
		"debounced", st.Debounced,
		"noChange", st.NoChange,
		"ioFailures", st.IOFailures,
	)
	return nil
}

// resolveRoot returns the absolute directory to watch
func resolveRoot(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", lwerrors.New(lwerrors.UsageError, "Invalid directory", err, nil)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", lwerrors.New(lwerrors.UsageError, "Directory does not exist", err, nil).
			WithDetails(map[string]interface{}{"path": abs})
	}
	if !info.IsDir() {
		return "", lwerrors.New(lwerrors.UsageError, "Not a directory",
			fmt.Errorf("%s is not a directory", abs), nil).
			WithDetails(map[string]interface{}{"path": abs})
	}
	return abs, nil
}

// loadConfig loads the config for root and applies command-line overrides
func loadConfig(cmd *cobra.Command, root string) (*config.Config, error) {
	cfg, err := config.LoadConfig(root, configFile)
	if err != nil {
		return nil, lwerrors.New(lwerrors.ConfigInvalid, "Failed to load configuration", err,
			lwerrors.GetSuggestedFixes(lwerrors.ConfigInvalid))
	}

	if f := cmd.Flags().Lookup("debounce"); f != nil && f.Changed {
		cfg.Watch.DebounceMs = debounceMs
	}
	if len(analyzerNames) > 0 {
		cfg.Analyzers.Enabled = analyzerNames
	}
	if logFile != "" {
		cfg.Logging.File = logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, lwerrors.New(lwerrors.ConfigInvalid, "Invalid configuration", err,
			lwerrors.GetSuggestedFixes(lwerrors.ConfigInvalid))
	}
	return cfg, nil
}

// cliLevel returns the level set by -v/-q, or nil to defer to the config
func cliLevel() *slog.Level {
	if verbosity == 0 && !quiet {
		return nil
	}
	level := slogutil.LevelFromVerbosity(verbosity, quiet)
	return &level
}

func useColor() bool {
	return !noColor && !color.NoColor
}

// warnUnavailable logs analyzers whose command is not on PATH. They still run
// and report ANALYZER_UNAVAILABLE, so installing one mid-session takes effect.
func warnUnavailable(tools []*analyzers.Tool, logger *slog.Logger) {
	for _, t := range tools {
		if _, err := t.Available(); err != nil {
			logger.Warn("Analyzer not found on PATH", "tool", t.Name(), "command", t.Command())
		}
	}
}
