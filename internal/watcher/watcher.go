// Package watcher delivers debounced file events for a directory tree.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"linewatch/internal/paths"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Handler is called with each settled create or modify event. It runs on a
// timer goroutine and should hand work off rather than block.
type Handler func(Event)

// Config contains watcher configuration
type Config struct {
	Root       string
	Extensions []string      // only files with these extensions produce events
	Settle     time.Duration // quiet period per path before an event is delivered

	// IgnoreDir and IgnoreFile receive absolute paths
	IgnoreDir  func(path string) bool
	IgnoreFile func(path string) bool
}

// Stats is a snapshot of watcher counters
type Stats struct {
	WatchedDirs int   `json:"watchedDirs"`
	Received    int64 `json:"received"`
	Delivered   int64 `json:"delivered"`
	Dropped     int64 `json:"dropped"`
	Errors      int64 `json:"errors"`
	Pending     int   `json:"pending"`
}

// Watcher watches a directory tree recursively
type Watcher struct {
	config    Config
	logger    *slog.Logger
	handler   Handler
	fsw       *fsnotify.Watcher
	debouncer *Debouncer

	dirs map[string]bool

	received  atomic.Int64
	delivered atomic.Int64
	dropped   atomic.Int64
	errCount  atomic.Int64

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	wg      sync.WaitGroup
	started bool
}

// New creates a new file system watcher
func New(config Config, logger *slog.Logger, handler Handler) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())

	if config.IgnoreDir == nil {
		config.IgnoreDir = func(string) bool { return false }
	}
	if config.IgnoreFile == nil {
		config.IgnoreFile = func(string) bool { return false }
	}

	return &Watcher{
		config:    config,
		logger:    logger,
		handler:   handler,
		debouncer: NewDebouncer(config.Settle),
		dirs:      make(map[string]bool),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start adds every non-ignored directory under the root and begins delivering events
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.started = true
	w.mu.Unlock()

	if err := w.addTree(w.config.Root); err != nil {
		w.mu.Lock()
		w.started = false
		w.mu.Unlock()
		_ = fsw.Close()
		return err
	}

	w.logger.Info("Starting file watcher",
		"root", w.config.Root,
		"directories", len(w.WatchedDirs()),
		"settleMs", w.config.Settle.Milliseconds(),
	)

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop stops watching; pending events are discarded
func (w *Watcher) Stop() error {
	w.cancel()
	w.debouncer.Stop()

	w.mu.Lock()
	fsw := w.fsw
	started := w.started
	w.started = false
	w.mu.Unlock()

	if !started {
		return nil
	}

	w.logger.Info("Stopping file watcher")
	err := fsw.Close()
	w.wg.Wait()
	w.logger.Info("File watcher stopped")
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.errCount.Add(1)
			w.logger.Warn("File watcher error", "error", err.Error())
		}
	}
}

func (w *Watcher) handleFSEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.handleNewDir(path)
			return
		}
	}

	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.mu.Lock()
		wasDir := w.dirs[path]
		delete(w.dirs, path)
		w.mu.Unlock()
		if wasDir {
			w.logger.Debug("Watched directory removed", "path", path)
			return
		}
	}

	if !w.wanted(path) {
		return
	}
	w.received.Add(1)

	switch {
	case ev.Has(fsnotify.Write):
		w.schedule(Event{Type: EventModify, Path: path, Timestamp: time.Now()})
	case ev.Has(fsnotify.Create):
		w.schedule(Event{Type: EventCreate, Path: path, Timestamp: time.Now()})
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// deletions are not analyzed, nor is an edit still settling
		w.dropped.Add(1)
		if w.debouncer.Cancel(path) {
			w.dropped.Add(1)
		}
		w.logger.Debug("File removed", "path", path, "op", ev.Op.String())
	default:
		w.dropped.Add(1)
	}
}

// handleNewDir watches a directory created after Start and reports the files
// already inside it, which were written before the watch existed.
func (w *Watcher) handleNewDir(dir string) {
	if w.config.IgnoreDir(dir) {
		return
	}
	if err := w.addTree(dir); err != nil {
		w.logger.Warn("Failed to watch new directory", "path", dir, "error", err.Error())
		return
	}

	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != dir && w.config.IgnoreDir(p) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.wanted(p) {
			w.received.Add(1)
			w.schedule(Event{Type: EventCreate, Path: p, Timestamp: time.Now()})
		}
		return nil
	})
}

func (w *Watcher) schedule(ev Event) {
	w.debouncer.Trigger(ev.Path, func() {
		w.delivered.Add(1)
		if w.handler != nil {
			w.handler(ev)
		}
	})
}

func (w *Watcher) wanted(path string) bool {
	return paths.HasExtension(path, w.config.Extensions) && !w.config.IgnoreFile(path)
}

// addTree watches root and every non-ignored directory below it
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			// unreadable subdirectory
			w.logger.Debug("Skipping unreadable path", "path", p, "error", err.Error())
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.config.IgnoreDir(p) {
			return filepath.SkipDir
		}
		return w.addDir(p)
	})
}

func (w *Watcher) addDir(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.dirs[dir] || w.fsw == nil {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	w.dirs[dir] = true
	return nil
}

// WatchedDirs returns the watched directories, sorted
func (w *Watcher) WatchedDirs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	dirs := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Stats returns watcher statistics
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	n := len(w.dirs)
	w.mu.RUnlock()

	return Stats{
		WatchedDirs: n,
		Received:    w.received.Load(),
		Delivered:   w.delivered.Load(),
		Dropped:     w.dropped.Load(),
		Errors:      w.errCount.Load(),
		Pending:     w.debouncer.Pending(),
	}
}
