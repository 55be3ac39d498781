package ops

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// fuzzyThreshold is the normalized edit-distance cutoff for a key segment
// to count as a match when no substring hit exists.
const fuzzyThreshold = 0.4

// FilterProperties narrows config entries by keyword. A case-insensitive
// substring hit on the key always matches; otherwise a key counts when one
// of its dot-separated segments is within edit distance of the query, so
// "datasorce" still finds "app.datasource.url". Blank queries return the
// input unchanged.
func FilterProperties(items []ConfigProperty, query string) []ConfigProperty {
	keyword := strings.ToLower(strings.TrimSpace(query))
	if keyword == "" {
		return items
	}
	out := make([]ConfigProperty, 0, len(items))
	for _, item := range items {
		if matchKey(item.Key, keyword) {
			out = append(out, item)
		}
	}
	return out
}

func matchKey(key, keyword string) bool {
	lower := strings.ToLower(key)
	if strings.Contains(lower, keyword) {
		return true
	}
	for _, segment := range strings.FieldsFunc(lower, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	}) {
		if fuzzyMatch(segment, keyword) {
			return true
		}
	}
	return false
}

func fuzzyMatch(a, b string) bool {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return false
	}
	dist := levenshtein.ComputeDistance(a, b)
	return float64(dist)/float64(longest) < fuzzyThreshold
}
