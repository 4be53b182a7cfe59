// Package security guards the file paths lapdelta reads laps from and
// writes reports to.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// maxNameLen bounds generated file names.
const maxNameLen = 128

// WithinDir returns an error unless path resolves to a location inside dir.
// Symlinks are resolved on the longest existing prefix of each path, so a
// link inside dir that points elsewhere is rejected even when the final file
// does not exist yet.
func WithinDir(path, dir string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	rel, err := filepath.Rel(resolve(absDir), resolve(absPath))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", path, dir)
	}
	return nil
}

// resolve evaluates symlinks on the deepest existing ancestor of an absolute
// path and re-attaches the remainder.
func resolve(abs string) string {
	for p := abs; ; {
		if real, err := filepath.EvalSymlinks(p); err == nil {
			rest, _ := filepath.Rel(p, abs)
			return filepath.Join(real, rest)
		}
		parent := filepath.Dir(p)
		if parent == p {
			return abs
		}
		p = parent
	}
}

// SanitizeFilename turns an arbitrary lap label into a file name made of
// ASCII letters, digits, dot, underscore and dash. Runs of other characters
// become a single underscore.
func SanitizeFilename(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range s {
		if b.Len() >= maxNameLen {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// ComparisonName is the base file name for artifacts comparing two laps.
func ComparisonName(reference, target string) string {
	return SanitizeFilename(reference) + "_vs_" + SanitizeFilename(target)
}
