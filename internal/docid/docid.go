// Package docid assigns document IDs from a human-readable base plus a random suffix.
package docid

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	fallbackBase = "doc"
	suffixLen    = 8
	maxBaseLen   = 64
)

// Assign returns a new ID for a document with the given base name (typically a filename stem).
// The ID is the sanitized base, a dash, and 8 random hex characters. The index is never consulted:
// uniqueness rests on the random suffix, so ingesting the same content twice yields two IDs.
func Assign(baseName string) string {
	return Sanitize(baseName) + "-" + suffix()
}

// Stem returns the file name without directory and extension ("cv/Jane Doe.pdf" -> "Jane Doe").
func Stem(filename string) string {
	base := filepath.Base(filepath.ToSlash(filename))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Sanitize collapses whitespace runs to "_", drops control characters and path separators,
// and caps the length. An empty result becomes "doc".
func Sanitize(base string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(base) {
		switch {
		case unicode.IsSpace(r):
			pendingSep = true
			continue
		case unicode.IsControl(r), r == '/', r == '\\':
			continue
		}
		if pendingSep && b.Len() > 0 {
			b.WriteByte('_')
		}
		pendingSep = false
		b.WriteRune(r)
	}
	out := b.String()
	if r := []rune(out); len(r) > maxBaseLen {
		out = string(r[:maxBaseLen])
	}
	if out == "" {
		return fallbackBase
	}
	return out
}

func suffix() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:suffixLen]
}
