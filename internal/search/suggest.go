package search

import (
	"context"
	"strings"
)

// Typo suggestion bounds. Queries under MinSuggestLength never request
// corrections; single and double letter inputs produce noisy matches
// from the similarity provider.
const (
	MinSuggestLength = 3
	MaxSuggestions   = 3
)

// Suggest returns up to MaxSuggestions typo-corrected query strings
// from the fuzzy-similarity provider. A provider error degrades to no
// suggestions; the primary result list is never blocked on this call.
func (s *Service) Suggest(ctx context.Context, query string) []string {
	query = strings.TrimSpace(query)
	if len(query) < MinSuggestLength {
		return nil
	}

	suggestions, err := s.providers.Spelling.SuggestSpellings(ctx, query, MaxSuggestions)
	if err != nil {
		s.logger.ErrorContext(ctx, "spelling suggestion failed, omitting suggestions",
			"query", query, "error", err)
		return nil
	}
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions
}
