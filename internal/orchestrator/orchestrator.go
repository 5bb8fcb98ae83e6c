// Package orchestrator drives change detection and analysis for a watched tree.
//
// Each path moves through Unseen -> Tracked. The first sighting of a path
// (startup scan or first event) stores its baseline and reports nothing. Later
// events pass the debounce gate, are compared against the baseline, and on a
// real change replace it and run every analyzer on the changed lines.
package orchestrator

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"linewatch/internal/analyzers"
	"linewatch/internal/detect"
	lwerrors "linewatch/internal/errors"
	"linewatch/internal/paths"
	"linewatch/internal/records"
	"linewatch/internal/report"
	"linewatch/internal/watcher"
)

// Options configures an Orchestrator
type Options struct {
	Root                 string
	Extensions           []string
	MaxConcurrentFiles   int64
	MaxParallelAnalyzers int
	Clock                func() time.Time
}

// Stats is a snapshot of orchestrator counters
type Stats struct {
	Events     int64 `json:"events"`
	Baselines  int64 `json:"baselines"`
	Runs       int64 `json:"runs"`
	NoChange   int64 `json:"noChange"`
	Debounced  int64 `json:"debounced"`
	Rejected   int64 `json:"rejected"`
	IOFailures int64 `json:"ioFailures"`
	Coalesced  int64 `json:"coalesced"`
}

// pathState serializes pipelines for one path
type pathState struct {
	running bool
	dirty   bool // an event arrived while running
	retry   *time.Timer
}

// Orchestrator dispatches events to per-path pipelines
type Orchestrator struct {
	opts      Options
	store     *records.Store
	detector  *detect.Detector
	analyzers []analyzers.Analyzer
	reporter  *report.Reporter
	logger    *slog.Logger
	sem       *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	states map[string]*pathState
	closed bool

	events     atomic.Int64
	baselines  atomic.Int64
	runs       atomic.Int64
	noChange   atomic.Int64
	debounced  atomic.Int64
	rejected   atomic.Int64
	ioFailures atomic.Int64
	coalesced  atomic.Int64
}

// New creates an orchestrator
func New(store *records.Store, detector *detect.Detector, list []analyzers.Analyzer,
	reporter *report.Reporter, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.MaxConcurrentFiles <= 0 {
		opts.MaxConcurrentFiles = 1
	}
	if opts.MaxParallelAnalyzers <= 0 {
		opts.MaxParallelAnalyzers = len(list)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		opts:      opts,
		store:     store,
		detector:  detector,
		analyzers: list,
		reporter:  reporter,
		logger:    logger,
		sem:       semaphore.NewWeighted(opts.MaxConcurrentFiles),
		ctx:       ctx,
		cancel:    cancel,
		states:    make(map[string]*pathState),
	}
}

// Scan loads a baseline for every tracked file under the root.
// Unreadable files are logged and skipped; they are picked up on their next event.
func (o *Orchestrator) Scan(ctx context.Context) (int, error) {
	start := time.Now()
	loaded := 0

	err := filepath.WalkDir(o.opts.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == o.opts.Root {
				return err
			}
			o.logger.Debug("Skipping unreadable path", "path", p, "error", err.Error())
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if p != o.opts.Root && o.detector.IsIgnoredDir(p) {
				return filepath.SkipDir
			}
			return nil
		}
		if !paths.HasExtension(p, o.opts.Extensions) || o.detector.IsIgnored(p) {
			return nil
		}

		rec, err := o.store.Load(p)
		if err != nil {
			o.ioFailures.Add(1)
			o.logger.Warn("Failed to load baseline", "path", p, "error", err.Error())
			return nil
		}
		o.store.Put(rec)
		o.baselines.Add(1)
		loaded++
		return nil
	})
	if err != nil {
		return loaded, err
	}

	o.logger.Info("Loaded baselines",
		"root", o.opts.Root,
		"files", loaded,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return loaded, nil
}

// HandleEvent is the watcher callback. It never blocks on analysis.
func (o *Orchestrator) HandleEvent(ev watcher.Event) {
	o.events.Add(1)
	o.logger.Debug("File event", "path", ev.Path, "type", ev.Type.String())
	o.Trigger(ev.Path)
}

// Trigger schedules a pipeline pass for path. If one is already running the
// request is coalesced into a single follow-up pass.
func (o *Orchestrator) Trigger(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	st, ok := o.states[path]
	if !ok {
		st = &pathState{}
		o.states[path] = st
	}
	if st.retry != nil {
		st.retry.Stop()
		st.retry = nil
	}
	if st.running {
		if st.dirty {
			o.coalesced.Add(1)
		}
		st.dirty = true
		return
	}

	st.running = true
	o.wg.Add(1)
	go o.run(path, st)
}

// run executes passes for path until no event is left pending
func (o *Orchestrator) run(path string, st *pathState) {
	defer o.wg.Done()

	for {
		if err := o.sem.Acquire(o.ctx, 1); err != nil {
			o.mu.Lock()
			st.running = false
			o.mu.Unlock()
			return
		}
		retryAfter := o.process(o.ctx, path)
		o.sem.Release(1)

		o.mu.Lock()
		if st.dirty && !o.closed {
			st.dirty = false
			o.mu.Unlock()
			continue
		}
		st.running = false
		st.dirty = false
		if retryAfter > 0 && !o.closed {
			st.retry = time.AfterFunc(retryAfter, func() { o.Trigger(path) })
		}
		o.mu.Unlock()
		return
	}
}

// process runs one pipeline pass and returns how long to wait before retrying
// an event that fell inside the debounce window.
func (o *Orchestrator) process(ctx context.Context, path string) time.Duration {
	now := o.opts.Clock()

	decision := o.detector.Evaluate(path, now)
	switch decision.Verdict {
	case detect.Accept:
	case detect.RejectDebounced:
		o.debounced.Add(1)
		o.logger.Debug("Event debounced", "path", path, "retryAfter", decision.RetryAfter.String())
		return decision.RetryAfter
	default:
		o.rejected.Add(1)
		o.logger.Debug("Event rejected", "path", path, "reason", decision.Verdict.String())
		return 0
	}

	baseline, seen := o.store.Get(path)

	current, err := o.store.Load(path)
	if err != nil {
		o.ioFailures.Add(1)
		o.logger.Warn("Failed to read changed file", "path", path, "error", err.Error(),
			"code", string(lwerrors.CodeOf(err)))
		return 0
	}
	current.LastEventTime = now

	if !seen {
		o.store.Put(current)
		o.baselines.Add(1)
		o.logger.Info("Tracking new file", "path", path, "lines", current.LineCount())
		return 0
	}

	if !detect.HasRealContentChange(baseline.Lines, current.Lines) {
		o.noChange.Add(1)
		o.reporter.NoChange(path)
		return 0
	}

	cs := detect.ComputeChange(path, baseline.Lines, current.Lines)
	current.Armed = false
	o.store.Put(current)
	o.runs.Add(1)

	runID := uuid.NewString()
	logger := o.logger.With("runId", runID, "path", path)
	logger.Info("Change detected", "changedLines", len(cs.ChangedLines), "lines", len(cs.NewLines))

	var results []analyzers.Result
	if !cs.Empty() {
		results = o.analyze(ctx, cs, logger)
	}
	o.reporter.Run(runID, cs, now, results)
	return 0
}

// analyze runs every analyzer concurrently; results keep analyzer order.
func (o *Orchestrator) analyze(ctx context.Context, cs detect.ChangeSet, logger *slog.Logger) []analyzers.Result {
	results := make([]analyzers.Result, len(o.analyzers))
	changed := cs.LineSet()

	var g errgroup.Group
	g.SetLimit(o.opts.MaxParallelAnalyzers)
	for i, a := range o.analyzers {
		g.Go(func() error {
			results[i] = analyzers.Run(ctx, a, cs.Path, changed)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		switch {
		case r.Canceled():
			logger.Debug("Analyzer canceled", "tool", r.Tool)
		case r.Failed():
			logger.Warn("Analyzer failed", "tool", r.Tool, "code", string(lwerrors.CodeOf(r.Err)),
				"error", r.Err.Error())
		default:
			logger.Debug("Analyzer finished",
				"tool", r.Tool,
				"elapsed", r.Elapsed.Round(time.Millisecond).String(),
				"total", r.Total,
				"matched", len(r.Diagnostics),
				"skippedRows", r.Stats.Skipped,
			)
		}
	}
	return results
}

// Stats returns orchestrator statistics
func (o *Orchestrator) Stats() Stats {
	return Stats{
		Events:     o.events.Load(),
		Baselines:  o.baselines.Load(),
		Runs:       o.runs.Load(),
		NoChange:   o.noChange.Load(),
		Debounced:  o.debounced.Load(),
		Rejected:   o.rejected.Load(),
		IOFailures: o.ioFailures.Load(),
		Coalesced:  o.coalesced.Load(),
	}
}

// Wait blocks until no pipeline is running. Pending retries are not waited for.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels in-flight analyzers, drops pending retries and waits for
// running pipelines to return.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	for _, st := range o.states {
		if st.retry != nil {
			st.retry.Stop()
			st.retry = nil
		}
	}
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
	return nil
}
