package detect

import (
	"path"
	"path/filepath"
	"strings"
)

// IgnoreMatcher matches slash-separated paths relative to the watched root
// against ignore patterns.
//
// Supported forms:
//
//	*.pyc            matched against the base name
//	__pycache__/**   the directory and everything under it, at any depth
//	build/out/**     a nested directory sequence, at any depth
//	docs/*.py        a plain glob against the whole relative path
type IgnoreMatcher struct {
	patterns []string
}

// NewIgnoreMatcher creates a matcher. Empty patterns are dropped.
func NewIgnoreMatcher(patterns []string) *IgnoreMatcher {
	m := &IgnoreMatcher{patterns: make([]string, 0, len(patterns))}
	for _, p := range patterns {
		p = strings.TrimSpace(filepath.ToSlash(p))
		if p != "" {
			m.patterns = append(m.patterns, p)
		}
	}
	return m
}

// Patterns returns the active patterns
func (m *IgnoreMatcher) Patterns() []string {
	return m.patterns
}

// Match reports whether the file at rel is ignored
func (m *IgnoreMatcher) Match(rel string) bool {
	rel = cleanRel(rel)
	if rel == "" {
		return false
	}
	segments := strings.Split(rel, "/")
	return m.match(rel, segments[:len(segments)-1], segments[len(segments)-1])
}

// MatchDir reports whether the directory at rel and its subtree are ignored
func (m *IgnoreMatcher) MatchDir(rel string) bool {
	rel = cleanRel(rel)
	if rel == "" {
		return false
	}
	segments := strings.Split(rel, "/")
	return m.match(rel, segments, segments[len(segments)-1])
}

func (m *IgnoreMatcher) match(rel string, dirs []string, base string) bool {
	for _, pattern := range m.patterns {
		if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
			if containsDirSequence(dirs, strings.Split(prefix, "/")) {
				return true
			}
			continue
		}

		if !strings.Contains(pattern, "/") {
			if matched, _ := path.Match(pattern, base); matched {
				return true
			}
			continue
		}

		if matched, _ := path.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// containsDirSequence reports whether want appears as a contiguous run in dirs
func containsDirSequence(dirs, want []string) bool {
	if len(want) == 0 || len(want) > len(dirs) {
		return false
	}
	for i := 0; i+len(want) <= len(dirs); i++ {
		hit := true
		for j, w := range want {
			if matched, _ := path.Match(w, dirs[i+j]); !matched {
				hit = false
				break
			}
		}
		if hit {
			return true
		}
	}
	return false
}

func cleanRel(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimPrefix(rel, "./")
	rel = strings.Trim(rel, "/")
	if rel == "." {
		return ""
	}
	return rel
}
