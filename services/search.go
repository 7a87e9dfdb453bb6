package services

import (
	"strings"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/cases"
)

// normalizeSearch folds case and strips accents so "Café" matches "cafe".
func normalizeSearch(s string) string {
	return cases.Fold().String(unidecode.Unidecode(strings.TrimSpace(s)))
}

// MatchJourney reports whether every term of query appears in one of fields.
// An empty query matches everything.
func MatchJourney(query string, fields ...string) bool {
	terms := strings.Fields(normalizeSearch(query))
	if len(terms) == 0 {
		return true
	}
	haystack := normalizeSearch(strings.Join(fields, " "))
	for _, term := range terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}
