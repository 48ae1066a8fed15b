package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics removes combining marks after NFD decomposition ("Renée" becomes "Renee").
func StripDiacritics(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}

// Slug reduces value to ASCII-safe alphanumerics joined by hyphens, capped at limit characters.
// Characters other than letters, digits, spaces and hyphens are dropped; runs of whitespace become
// a single hyphen. A non-positive limit disables the cap.
func Slug(value string, limit int) string {
	value = StripDiacritics(strings.TrimSpace(value))

	var b strings.Builder
	b.Grow(len(value))
	pendingSpace := false
	for _, r := range value {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case r == '-' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))):
			if pendingSpace {
				b.WriteByte('-')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}

	slug := b.String()
	if limit > 0 && len(slug) > limit {
		slug = strings.TrimRight(slug[:limit], "-")
	}
	return slug
}
