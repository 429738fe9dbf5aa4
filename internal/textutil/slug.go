package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics decomposes characters and strips combining marks, so
// "\u00c9t\u00e9" slugs to "ete" rather than dropping the accented letters.
var foldDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Slug converts a title to a lowercase hyphen-joined token safe for use in
// filenames and URLs. Diacritics are folded to their base letters; every run
// of non-alphanumeric characters collapses to a single hyphen. Returns ""
// for input with no usable characters.
func Slug(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	folded, _, err := transform.String(foldDiacritics, value)
	if err == nil {
		value = folded
	}

	var b strings.Builder
	b.Grow(len(value))
	pendingHyphen := false
	for _, r := range strings.ToLower(value) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingHyphen = b.Len() > 0
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SplitExt splits a filename into its stem and extension. The extension
// includes the leading dot and is lowercased; a name without a dot yields an
// empty extension.
func SplitExt(filename string) (stem, ext string) {
	filename = strings.TrimSpace(filename)
	idx := strings.LastIndexByte(filename, '.')
	if idx <= 0 {
		return filename, ""
	}
	return filename[:idx], strings.ToLower(filename[idx:])
}
