package util

import (
	"path"
	"strings"
	"unicode"
)

// SanitizeString trims whitespace and removes control characters from s.
func SanitizeString(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeFileName reduces a client-supplied name to a single path element.
// Directory parts (either separator style) are dropped; the result is "" when
// nothing usable is left.
func SanitizeFileName(name string) string {
	name = SanitizeString(strings.ReplaceAll(name, `\`, "/"))
	name = path.Base(name)
	switch name {
	case ".", "..", "/":
		return ""
	}
	return name
}

// SanitizePathSegment makes s safe to use as one directory name by replacing
// separators and dots-only names.
func SanitizePathSegment(s string) string {
	s = SanitizeString(s)
	s = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, s)
	if strings.Trim(s, ".") == "" {
		return strings.Repeat("_", len(s))
	}
	return s
}
