package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizePersonName normalizes a name for comparison (lowercase, no diacritics,
// spaces for dashes and underscores, single spaces).
func NormalizePersonName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

// CleanDisplayName trims and collapses whitespace in a name shown to people.
func CleanDisplayName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// SameName reports whether two names refer to the same person after normalization.
func SameName(a, b string) bool {
	return NormalizePersonName(a) == NormalizePersonName(b)
}

// FindIdentityByName returns the index of the first gallery name equal to name
// after normalization, or -1.
func FindIdentityByName(names []string, name string) int {
	target := NormalizePersonName(name)
	for i, n := range names {
		if NormalizePersonName(n) == target {
			return i
		}
	}
	return -1
}
