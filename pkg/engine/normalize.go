package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText lowercases, trims, and strips diacritics so "Sí" matches
// "si" and "Café" matches "cafe".
func normalizeText(input string) string {
	stripped, _, err := transform.String(diacriticStripper, input)
	if err != nil {
		stripped = input
	}

	return strings.ToLower(strings.TrimSpace(stripped))
}

// singular strips a trailing plural "s" for the partial-match fallback.
func singular(input string) string {
	if len(input) > 1 && strings.HasSuffix(input, "s") {
		return input[:len(input)-1]
	}

	return input
}

// textMatches reports whether a stored value matches the search input after
// normalization: exact first, then a partial fallback that tolerates a
// trailing plural and substring containment in either direction.
func textMatches(storedValue, input string, partial bool) bool {
	stored := normalizeText(storedValue)
	searched := normalizeText(input)

	if stored == "" || searched == "" {
		return false
	}

	if stored == searched {
		return true
	}

	if !partial {
		return false
	}

	stored = singular(stored)
	searched = singular(searched)

	return stored == searched || strings.Contains(stored, searched) || strings.Contains(searched, stored)
}
