// Package catalog implements the filter, sort and pagination pipeline applied
// to catalog entries once they have been fetched from the backend.
//
// Every function in this package is a pure transformation over its inputs:
// entries are never mutated, and time is supplied by the Engine clock rather
// than read from globals.
package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s, trims it and strips diacritics, so that
// "Mês", "MES" and "mes" all compare equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// normalizedEqual reports whether a and b are equal after normalization.
func normalizedEqual(a, b string) bool {
	return Normalize(a) == b
}
