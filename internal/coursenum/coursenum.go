// Package coursenum normalizes course numbers.
//
// The same transform is used for building index keys and for duplicate
// detection during imports. Keeping it in one place prevents the two call
// sites from drifting apart, which would make a number match in one path
// and miss in the other.
package coursenum

import "strings"

// Normalize canonicalizes a raw course number for lookups: trims
// whitespace, uppercases, strips a leading '#', and drops every character
// outside [A-Z0-9-]. Empty input yields an empty string.
//
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = strings.ToUpper(s)
	s = strings.TrimPrefix(s, "#")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
