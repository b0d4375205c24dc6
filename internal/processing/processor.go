package processing

import (
	"regexp"
	"strings"
)

var (
	whitespace    = regexp.MustCompile(`\s+`)
	skillSplitter = regexp.MustCompile(`[,;|\n]+`)
)

// CleanText trims the input and squeezes runs of whitespace into single spaces.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(input, " "))
}

// NormalizeSearch prepares a user supplied search term for case-insensitive matching.
// An empty result means no text filter.
func NormalizeSearch(term string) string {
	return strings.ToLower(CleanText(term))
}

// ContainsFold reports whether text contains the already normalized term, ignoring case.
// An empty text never matches a non-empty term.
func ContainsFold(text, normalizedTerm string) bool {
	if normalizedTerm == "" {
		return true
	}
	if text == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), normalizedTerm)
}

// SplitSkills turns a delimited skills string into a trimmed list, dropping blanks
// and case-insensitive duplicates while preserving order.
func SplitSkills(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return DedupeSkills(skillSplitter.Split(raw, -1))
}

// DedupeSkills cleans each skill and removes blanks and duplicates, keeping first occurrences.
func DedupeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	var out []string
	for _, skill := range skills {
		skill = CleanText(skill)
		if skill == "" {
			continue
		}
		key := strings.ToLower(skill)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, skill)
	}
	return out
}
