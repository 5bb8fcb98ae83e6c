package slogutil

import (
	"io"
	"log/slog"
	"os"

	"linewatch/internal/config"
	"linewatch/internal/paths"
)

// LoggerFactory creates the process logger.
// It respects the configuration precedence: CLI flags > logging config > default (info).
type LoggerFactory struct {
	root     string
	config   *config.Config
	cliLevel *slog.Level // nil when no -v/-q flag was given
	closers  []io.Closer
}

// NewLoggerFactory creates a new logger factory.
// cliLevel should be nil if no CLI override was specified.
func NewLoggerFactory(root string, cfg *config.Config, cliLevel *slog.Level) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{
		root:     root,
		config:   cfg,
		cliLevel: cliLevel,
		closers:  make([]io.Closer, 0),
	}
}

// ProcessLogger creates the logger used by the watch loop.
// Records go to console; when logging.file is configured they are also
// written to that file (relative paths resolve against the watched root).
// A log file that cannot be opened degrades to console-only logging.
func (f *LoggerFactory) ProcessLogger(console io.Writer, colorize bool) *slog.Logger {
	level := f.effectiveLevel()
	consoleHandler := NewConsoleHandler(console, level, colorize)

	if f.config.Logging.File == "" {
		return slog.New(consoleHandler)
	}

	logPath := paths.ResolveFromRoot(f.root, f.config.Logging.File)
	w, err := f.openLogWriter(logPath)
	if err != nil {
		logger := slog.New(consoleHandler)
		logger.Warn("Failed to open log file, logging to console only", "path", logPath, "error", err.Error())
		return logger
	}

	f.closers = append(f.closers, w)
	fileHandler := NewHandler(w, &slog.HandlerOptions{Level: level})
	return NewTeeLogger(consoleHandler, fileHandler)
}

// openLogWriter opens a log file with optional rotation based on config
func (f *LoggerFactory) openLogWriter(path string) (io.WriteCloser, error) {
	size := ParseSize(f.config.Logging.MaxSize)
	if size > 0 {
		return OpenRotatingFile(path, size, f.config.Logging.MaxBackups)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

// effectiveLevel returns the effective log level.
func (f *LoggerFactory) effectiveLevel() slog.Level {
	if f.cliLevel != nil {
		return *f.cliLevel
	}
	if f.config.Logging.Level != "" {
		return LevelFromString(f.config.Logging.Level)
	}
	return slog.LevelInfo
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
