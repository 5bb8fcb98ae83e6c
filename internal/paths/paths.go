package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// ConfigDirName is the per-tree directory holding linewatch configuration
const ConfigDirName = ".linewatch"

// CanonicalizePath returns path relative to root with symlinks in both
// directories resolved, using forward slashes. The final element of path is
// kept as named, so a symlinked file is reported under its own name and a
// path that no longer exists still canonicalizes.
func CanonicalizePath(path, root string) (string, error) {
	dir, err := resolveDir(filepath.Dir(path))
	if err != nil {
		return "", err
	}
	base, err := resolveDir(root)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(base, filepath.Join(dir, filepath.Base(path)))
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Escapes reports whether a root-relative path points outside the root
func Escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, "../")
}

func resolveDir(dir string) (string, error) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}
	parent := filepath.Dir(dir)
	if parent == dir {
		return filepath.Clean(dir), nil
	}
	up, err := resolveDir(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(up, filepath.Base(dir)), nil
}

// HasExtension reports whether path ends in one of the given extensions.
// Extensions are compared case-insensitively and may omit the leading dot.
func HasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	for _, e := range extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if ext == e {
			return true
		}
	}
	return false
}

// ConfigDir returns <root>/.linewatch
func ConfigDir(root string) string {
	return filepath.Join(root, ConfigDirName)
}

// EnsureConfigDir creates <root>/.linewatch if needed and returns its path
func EnsureConfigDir(root string) (string, error) {
	dir := ConfigDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// ResolveFromRoot returns p unchanged if absolute, otherwise joined onto root
func ResolveFromRoot(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
