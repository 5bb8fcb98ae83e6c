// Package detect decides whether a filesystem event is a real edit and which
// lines of the new content it touched.
package detect

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"linewatch/internal/paths"
	"linewatch/internal/records"
)

// Verdict is the outcome of the debounce gate
type Verdict int

const (
	Accept Verdict = iota
	RejectIgnored
	RejectMissing
	RejectArmed
	RejectDebounced
)

// String returns a string representation of the verdict
func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case RejectIgnored:
		return "ignored"
	case RejectMissing:
		return "missing"
	case RejectArmed:
		return "armed"
	case RejectDebounced:
		return "debounced"
	default:
		return "unknown"
	}
}

// Decision is a Verdict plus, for RejectDebounced, the time left in the window
type Decision struct {
	Verdict    Verdict
	RetryAfter time.Duration
}

// Accepted reports whether the event should be processed
func (d Decision) Accepted() bool {
	return d.Verdict == Accept
}

// Options configures a Detector
type Options struct {
	Root   string        // watched root; ignore patterns are relative to it
	Window time.Duration // debounce window measured from the last accepted change
	Ignore *IgnoreMatcher
}

// Detector owns the debounce and suppression policy. It reads the store and
// consumes Armed flags but never replaces records.
type Detector struct {
	store  *records.Store
	root   string
	window time.Duration
	ignore *IgnoreMatcher
	logger *slog.Logger

	stat func(string) (os.FileInfo, error)
}

// New creates a detector over store
func New(store *records.Store, opts Options, logger *slog.Logger) *Detector {
	ignore := opts.Ignore
	if ignore == nil {
		ignore = NewIgnoreMatcher(nil)
	}
	return &Detector{
		store:  store,
		root:   opts.Root,
		window: opts.Window,
		ignore: ignore,
		logger: logger,
		stat:   os.Stat,
	}
}

// Window returns the debounce window
func (d *Detector) Window() time.Duration {
	return d.window
}

// IsIgnored reports whether path matches the ignore set
func (d *Detector) IsIgnored(path string) bool {
	return d.ignore.Match(d.rel(path))
}

// IsIgnoredDir reports whether the directory at path is ignored as a whole
func (d *Detector) IsIgnoredDir(path string) bool {
	return d.ignore.MatchDir(d.rel(path))
}

// ShouldProcess is the debounce gate; see Evaluate for the reasons it rejects.
func (d *Detector) ShouldProcess(path string, now time.Time) bool {
	return d.Evaluate(path, now).Accepted()
}

// Evaluate runs the gate for a modify event on path observed at now.
//
// An event is rejected when the path is ignored, when the file is gone, when
// the record is armed (the flag is consumed, so exactly one event is
// swallowed), or when now falls inside the debounce window of the last
// accepted change. A path with no record is accepted; the caller loads its
// baseline.
func (d *Detector) Evaluate(path string, now time.Time) Decision {
	if d.IsIgnored(path) {
		return Decision{Verdict: RejectIgnored}
	}

	if info, err := d.stat(path); err != nil || info.IsDir() {
		return Decision{Verdict: RejectMissing}
	}

	rec, ok := d.store.Get(path)
	if !ok {
		return Decision{Verdict: Accept}
	}

	if rec.Armed && d.store.Disarm(path) {
		d.logger.Debug("Suppressed first event", "path", path)
		return Decision{Verdict: RejectArmed}
	}

	if elapsed := now.Sub(rec.LastEventTime); elapsed < d.window {
		return Decision{Verdict: RejectDebounced, RetryAfter: d.window - elapsed}
	}

	return Decision{Verdict: Accept}
}

// rel returns path relative to the root for ignore matching. Symlinks in
// either directory are resolved first so a tree watched through a link
// matches the same patterns as its real location.
func (d *Detector) rel(path string) string {
	if d.root == "" || !filepath.IsAbs(path) {
		return path
	}
	if rel, err := paths.CanonicalizePath(path, d.root); err == nil && !paths.Escapes(rel) {
		return rel
	}
	rel, err := filepath.Rel(d.root, path)
	if err != nil {
		return path
	}
	return rel
}
