package search

import "strings"

// ToTSQuery converts free text into the AND-of-terms tsquery pattern
// the full-text providers expect, with prefix matching applied only to
// the final term: "live music" becomes "live & music:*". Any
// replacement full-text backend must honor this transformation for
// parity.
func ToTSQuery(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = sanitizeTerm(f)
		if f != "" {
			terms = append(terms, f)
		}
	}
	if len(terms) == 0 {
		return ""
	}
	terms[len(terms)-1] += ":*"
	return strings.Join(terms, " & ")
}

// sanitizeTerm strips tsquery operator characters so user input cannot
// alter the query structure.
func sanitizeTerm(term string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '&', '|', '!', '(', ')', ':', '*', '\'', '\\':
			return -1
		}
		return r
	}, term)
}
