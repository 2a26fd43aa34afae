package utils

import (
	"strings"

	"golang.org/x/text/cases"
)

// FoldQuery returns the comparison key of a search query: trimmed and
// Unicode case-folded, so "Élodie" and "élodie" compare equal.
func FoldQuery(q string) string {
	return cases.Fold().String(strings.TrimSpace(q))
}
