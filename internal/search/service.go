package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/marqueehq/marquee/internal/ranking"
)

// MinQueryLength is the minimum trimmed query length for a search to
// run. Shorter queries get an empty success response, never an error.
const MinQueryLength = 2

// Service is the unified search aggregator. It is stateless and safe
// for concurrent use; each request owns its inputs and outputs.
type Service struct {
	providers Providers
	bonuses   *ranking.Bonuses
	rescorer  *Rescorer
	booster   *Booster
	logger    *slog.Logger
	onError   func(Kind)
}

// NewService creates the aggregator over the given providers. A nil
// bonuses table falls back to defaults; a nil logger falls back to
// slog.Default.
func NewService(p Providers, bonuses *ranking.Bonuses, logger *slog.Logger) *Service {
	if bonuses == nil {
		bonuses = ranking.DefaultBonuses()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		providers: p,
		bonuses:   bonuses,
		rescorer:  NewRescorer(bonuses),
		booster:   NewBooster(bonuses),
		logger:    logger,
	}
}

// OnProviderError registers a sink called with the entity kind each
// time a provider failure is absorbed into an empty result set. Used
// to feed metrics; optional. Must be set before the service handles
// requests.
func (s *Service) OnProviderError(fn func(Kind)) {
	s.onError = fn
}

// Search runs the unified multi-entity search: classify intent, fan out
// to the requested entity adapters plus facets and typo suggestions
// concurrently, rescore and boost every row, then globally sort and
// truncate. A degenerate query returns an empty response and no error.
func (s *Service) Search(ctx context.Context, q Query, sc Context) (*Response, error) {
	text := strings.TrimSpace(q.Text)
	if len(text) < MinQueryLength {
		return &Response{Results: []Row{}, Facets: []Facet{}}, nil
	}
	q.Text = text

	kinds := q.Kinds
	if len(kinds) == 0 {
		kinds = AllKinds()
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	intent := Intent{Kind: IntentGeneral, Priorities: defaultPriorities()}
	if q.UseIntent {
		intent = Classify(text)
	}

	filters := s.effectiveFilters(q, intent)

	// Per-type fetch limit: split the overall limit evenly across the
	// requested kinds (ceiling division) so no single kind dominates the
	// candidate pool on raw volume before global re-ranking.
	perType := (limit + len(kinds) - 1) / len(kinds)

	adapters := s.adapters()

	var (
		wg          sync.WaitGroup
		rowsByKind  = make([][]Row, len(kinds))
		facetCounts map[Kind]int
		suggestions []string
	)

	for i, kind := range kinds {
		wg.Add(1)
		go func(i int, kind Kind) {
			defer wg.Done()
			rowsByKind[i] = adapters[kind].search(ctx, q, filters, perType, q.Offset, s.bonuses.OverfetchFactor)
		}(i, kind)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		counts, err := s.providers.Facets.CountByKind(ctx, text, kinds, filters)
		if err != nil {
			s.logger.ErrorContext(ctx, "facet count failed, omitting facets",
				"query", text, "error", err)
			return
		}
		facetCounts = counts
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		suggestions = s.Suggest(ctx, text)
	}()

	wg.Wait()

	merged := make([]Row, 0, limit)
	for _, rows := range rowsByKind {
		for _, row := range rows {
			row = s.rescorer.Rescore(row, text, q.BoostExactMatches)
			row = s.booster.Boost(row, intent, sc)
			merged = append(merged, row)
		}
	}

	// One global stable sort across kinds; per-type caps only bounded
	// the candidate pool, final selection is purely score-driven.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	// A failed facet count leaves the facets section empty; emitting a
	// zero count per kind would misreport "no matches".
	facets := []Facet{}
	total := 0
	if facetCounts != nil {
		facets = make([]Facet, 0, len(kinds))
		for _, kind := range kinds {
			count := facetCounts[kind]
			facets = append(facets, Facet{Kind: kind, Count: count})
			total += count
		}
	}

	return &Response{
		Results:     merged,
		Facets:      facets,
		Total:       total,
		Suggestions: suggestions,
	}, nil
}

// effectiveFilters resolves the structural filters the providers see.
// An explicit date filter wins over an intent-derived one, and
// "tonight" is normalized to "today" since the underlying date
// predicate does not distinguish them.
func (s *Service) effectiveFilters(q Query, intent Intent) Filters {
	date := q.Date
	if date == DateAny && intent.Date != DateAny {
		date = intent.Date
	}
	if date == DateTonight {
		date = DateToday
	}
	return Filters{
		Categories:    q.Categories,
		Neighborhoods: q.Neighborhoods,
		Date:          date,
		FreeOnly:      q.FreeOnly,
		Portal:        q.Portal,
	}
}

// DefaultLimit is the overall page size when the caller does not
// request one.
const DefaultLimit = 20
