// Package naming builds canonical filenames for routed documents.
package naming

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the date component of every built filename.
const DateLayout = "2006-01-02"

const separator = "__"

var (
	unsafeChars  = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	placeholders = regexp.MustCompile(`\{([a-z_][a-z0-9_]*)\}`)
)

// Build joins date, route tag, priority tier and fingerprint prefix with a
// double underscore and appends ext. The result is deterministic for equal
// inputs: 2026-01-02__AP__P1__ab12cd34.pdf.
func Build(date time.Time, routeTag, priorityTier, fingerprintPrefix, ext string) string {
	parts := []string{
		date.Format(DateLayout),
		Sanitize(routeTag),
		Sanitize(priorityTier),
		Sanitize(fingerprintPrefix),
	}
	return strings.Join(parts, separator) + normalizeExt(ext)
}

// Sanitize replaces runs of characters outside [A-Za-z0-9._-] with a single
// underscore and trims leading dots so the result cannot escape a directory.
func Sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.TrimLeft(s, ".")
	if s == "" {
		return "_"
	}
	return s
}

// Template expands {key} placeholders in tmpl from values, sanitizing each
// substituted value. It fails when a placeholder has no value or when the
// expansion is not a plain filename. ext is appended unless the template
// already ends with it.
func Template(tmpl string, values map[string]string, ext string) (string, error) {
	var missing []string
	name := placeholders.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := values[key]
		if !ok || v == "" {
			missing = append(missing, key)
			return m
		}
		return Sanitize(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("naming template: missing values for %s", strings.Join(missing, ", "))
	}

	ext = normalizeExt(ext)
	if !strings.HasSuffix(strings.ToLower(name), ext) {
		name += ext
	}
	return Filename(name)
}

// Filename validates a filename proposed by an external party. It must be
// a single path element without separators, traversal or control characters.
func Filename(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "", name == ".", name == "..":
		return "", fmt.Errorf("invalid filename %q", name)
	case strings.ContainsAny(name, `/\`):
		return "", fmt.Errorf("filename %q must not contain path separators", name)
	case strings.HasPrefix(name, "."):
		return "", fmt.Errorf("filename %q must not be hidden", name)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return "", fmt.Errorf("filename %q contains control characters", name)
		}
	}
	return name, nil
}

// WithExt replaces the extension of name with ext.
func WithExt(name, ext string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return name + normalizeExt(ext)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
