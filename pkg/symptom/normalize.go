// Package symptom canonicalizes free-text symptom labels for comparison.
package symptom

import (
	"sort"
	"strings"
	"unicode"
)

// Normalize lowercases text, drops every rune that is not a letter, digit,
// underscore or whitespace, collapses whitespace runs to one space and trims
// the ends.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// FuzzyEqual reports whether two labels name the same symptom: equal
// normalized forms, or one normalized form contained in the other.
// Absence never matches.
func FuzzyEqual(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}

// Same reports whether two labels have equal, non-empty normalized forms.
func Same(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}

// Key reduces a symptom list to its sorted, de-duplicated normalized forms.
// Two antecedent lists with the same Key describe the same symptom set.
func Key(symptoms []string) []string {
	seen := make(map[string]struct{}, len(symptoms))
	out := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		n := Normalize(s)
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Slug turns a human-readable name into an identifier: normalized words joined
// by underscores, cut to at most max runes. Underscores in the name are kept.
func Slug(name string, max int) string {
	slug := strings.ReplaceAll(Normalize(name), " ", "_")
	if max > 0 {
		if runes := []rune(slug); len(runes) > max {
			slug = strings.TrimRight(string(runes[:max]), "_")
		}
	}
	return slug
}

// Clean trims every entry and drops the empty ones, keeping order.
func Clean(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if t := strings.TrimSpace(item); t != "" {
			out = append(out, t)
		}
	}
	return out
}
