package records

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	lwerrors "linewatch/internal/errors"
)

// StoreOptions configures a Store
type StoreOptions struct {
	// Clock stamps LastEventTime on Load. Defaults to time.Now.
	Clock func() time.Time

	// ArmOnLoad sets Armed on every loaded record (first-event suppression).
	ArmOnLoad bool

	// CompressAboveBytes keeps baselines larger than this zstd-compressed.
	// Zero disables compression.
	CompressAboveBytes int

	// ReadLines reads a file for Load. Defaults to ReadLines.
	ReadLines func(path string) ([]string, error)
}

// entry is a stored record; Lines is nil when packed holds the content
type entry struct {
	record FileRecord
	packed []byte
}

// Store is a keyed, concurrency-safe store of FileRecords.
// It holds no detection policy: Load reads, Get returns, Put replaces.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry

	clock         func() time.Time
	readLines     func(path string) ([]string, error)
	armOnLoad     bool
	compressAbove int
	encoder       *zstd.Encoder
	decoder       *zstd.Decoder
	logger        *slog.Logger
}

// StoreStats summarizes store contents
type StoreStats struct {
	Records     int
	Compressed  int
	PackedBytes int
}

// NewStore creates an empty store
func NewStore(opts StoreOptions, logger *slog.Logger) *Store {
	s := &Store{
		entries:       make(map[string]*entry),
		clock:         opts.Clock,
		readLines:     opts.ReadLines,
		armOnLoad:     opts.ArmOnLoad,
		compressAbove: opts.CompressAboveBytes,
		logger:        logger,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.readLines == nil {
		s.readLines = ReadLines
	}

	if s.compressAbove > 0 {
		enc, encErr := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		dec, decErr := zstd.NewReader(nil)
		if encErr != nil || decErr != nil {
			logger.Warn("Baseline compression unavailable, storing plain text",
				"encoderError", errString(encErr), "decoderError", errString(decErr))
			s.compressAbove = 0
		} else {
			s.encoder = enc
			s.decoder = dec
		}
	}

	return s
}

// Load reads path from disk into a new record stamped with the store clock.
// The record is not stored; callers Put it once they accept it.
func (s *Store) Load(path string) (FileRecord, error) {
	lines, err := s.readLines(path)
	if err != nil {
		return FileRecord{}, lwerrors.New(lwerrors.IOFailure, "Failed to read file", err, nil).
			WithDetails(map[string]interface{}{"path": path})
	}

	return FileRecord{
		Path:          path,
		Lines:         lines,
		Fingerprint:   Fingerprint(lines),
		LastEventTime: s.clock(),
		Armed:         s.armOnLoad,
	}, nil
}

// Get returns the record for path
func (s *Store) Get(path string) (FileRecord, bool) {
	s.mu.RLock()
	e, ok := s.entries[path]
	s.mu.RUnlock()
	if !ok {
		return FileRecord{}, false
	}

	rec := e.record
	if e.packed != nil {
		lines, err := s.unpack(e.packed)
		if err != nil {
			// Treat an undecodable baseline as unseen so the next event rebuilds it
			s.logger.Error("Failed to decode stored baseline", "path", path, "error", err.Error())
			return FileRecord{}, false
		}
		rec.Lines = lines
	}
	return rec, true
}

// Put replaces the record for rec.Path
func (s *Store) Put(rec FileRecord) {
	e := &entry{record: rec}
	if s.compressAbove > 0 && contentSize(rec.Lines) > s.compressAbove {
		e.packed = s.encoder.EncodeAll([]byte(strings.Join(rec.Lines, "")), nil)
		e.record.Lines = nil
	}

	s.mu.Lock()
	s.entries[rec.Path] = e
	s.mu.Unlock()
}

// Disarm clears the Armed flag for path and reports whether it was set
func (s *Store) Disarm(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[path]
	if !ok || !e.record.Armed {
		return false
	}
	e.record.Armed = false
	return true
}

// Len returns the number of tracked paths
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Paths returns all tracked paths, sorted
func (s *Store) Paths() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.entries))
	for p := range s.entries {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Stats returns store statistics
func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := StoreStats{Records: len(s.entries)}
	for _, e := range s.entries {
		if e.packed != nil {
			st.Compressed++
			st.PackedBytes += len(e.packed)
		}
	}
	return st
}

// Close releases compression resources
func (s *Store) Close() {
	if s.encoder != nil {
		_ = s.encoder.Close()
	}
	if s.decoder != nil {
		s.decoder.Close()
	}
}

func (s *Store) unpack(packed []byte) ([]string, error) {
	raw, err := s.decoder.DecodeAll(packed, nil)
	if err != nil {
		return nil, err
	}
	return SplitLines(string(raw)), nil
}

func contentSize(lines []string) int {
	n := 0
	for _, l := range lines {
		n += len(l)
	}
	return n
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
