// Package filename keeps peer-supplied filenames from escaping the
// receive directory and resolves collisions between concurrent
// transfers writing to the same directory.
package filename

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MaxLen bounds a sanitized name, extension included.
const MaxLen = 255

// InvalidFilenameError reports a name with no usable characters left
// after sanitization.
type InvalidFilenameError struct {
	Raw string
}

func (e *InvalidFilenameError) Error() string {
	return fmt.Sprintf("invalid filename %q: nothing left after sanitization", e.Raw)
}

// Sanitize reduces a raw, possibly hostile filename to a safe
// basename: only the final path segment survives, and only characters
// legal on every supported filesystem. Sanitize is idempotent.
func Sanitize(raw string) (string, error) {
	name := raw
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		}
	}
	safe := b.String()

	if strings.Trim(safe, ".") == "" {
		return "", &InvalidFilenameError{Raw: raw}
	}

	if len(safe) > MaxLen {
		ext := filepath.Ext(safe)
		if len(ext) >= MaxLen {
			ext = ""
		}
		safe = safe[:MaxLen-len(ext)] + ext
	}
	return safe, nil
}

// Resolve appends _1, _2, ... before the extension until exists
// reports an unused name. Deterministic for a fixed existing-name set.
func Resolve(safeName string, exists func(string) bool) string {
	if !exists(safeName) {
		return safeName
	}
	ext := filepath.Ext(safeName)
	stem := strings.TrimSuffix(safeName, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if !exists(candidate) {
			return candidate
		}
	}
}
