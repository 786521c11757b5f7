// Package textmatch holds the case-insensitive matching used by filters and the eligibility scorer.
package textmatch

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns s in its case-folded form.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Contains reports whether needle occurs in haystack, ignoring case.
// An empty needle always matches.
func Contains(haystack, needle string) bool {
	folder := cases.Fold()
	return strings.Contains(folder.String(haystack), folder.String(needle))
}

// ContainsAny reports whether any of the needles occurs in haystack, ignoring case.
// Empty needles are ignored.
func ContainsAny(haystack string, needles ...string) bool {
	folder := cases.Fold()
	folded := folder.String(haystack)

	for _, needle := range needles {
		if needle == "" {
			continue
		}
		if strings.Contains(folded, folder.String(needle)) {
			return true
		}
	}
	return false
}
