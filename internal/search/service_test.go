package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
)

// stubProviders implements every provider interface with canned data
// and records what the aggregator asked for.
type stubProviders struct {
	mu sync.Mutex

	rows   map[Kind][]Row
	errs   map[Kind]error
	facets map[Kind]int

	facetErr    error
	suggestions []string
	suggestErr  error

	gotFilters map[Kind]Filters
	gotLimits  map[Kind]int
}

func newStubProviders() *stubProviders {
	return &stubProviders{
		rows:       map[Kind][]Row{},
		errs:       map[Kind]error{},
		facets:     map[Kind]int{},
		gotFilters: map[Kind]Filters{},
		gotLimits:  map[Kind]int{},
	}
}

func (s *stubProviders) record(kind Kind, f Filters, limit int) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gotFilters[kind] = f
	s.gotLimits[kind] = limit
	if err := s.errs[kind]; err != nil {
		return nil, err
	}
	rows := s.rows[kind]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *stubProviders) SearchEvents(_ context.Context, _ string, f Filters, limit, _ int) ([]Row, error) {
	return s.record(KindEvent, f, limit)
}

func (s *stubProviders) SearchVenues(_ context.Context, _ string, f Filters, limit, _ int) ([]Row, error) {
	return s.record(KindVenue, f, limit)
}

func (s *stubProviders) SearchOrganizers(_ context.Context, _ string, f Filters, limit, _ int) ([]Row, error) {
	return s.record(KindOrganizer, f, limit)
}

func (s *stubProviders) LookupSeries(_ context.Context, _, portal string, limit, _ int) ([]Row, error) {
	return s.record(KindSeries, Filters{Portal: portal}, limit)
}

func (s *stubProviders) LookupLists(_ context.Context, _, portal string, limit, _ int) ([]Row, error) {
	return s.record(KindList, Filters{Portal: portal}, limit)
}

func (s *stubProviders) CountByKind(_ context.Context, _ string, kinds []Kind, _ Filters) (map[Kind]int, error) {
	if s.facetErr != nil {
		return nil, s.facetErr
	}
	counts := make(map[Kind]int, len(kinds))
	for _, kind := range kinds {
		counts[kind] = s.facets[kind]
	}
	return counts, nil
}

func (s *stubProviders) SuggestSpellings(_ context.Context, _ string, limit int) ([]string, error) {
	if s.suggestErr != nil {
		return nil, s.suggestErr
	}
	out := s.suggestions
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubProviders) filters(kind Kind) Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gotFilters[kind]
}

func (s *stubProviders) limit(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gotLimits[kind]
}

func (s *stubProviders) providers() Providers {
	return Providers{
		Events:     s,
		Venues:     s,
		Organizers: s,
		Series:     s,
		Lists:      s,
		Facets:     s,
		Spelling:   s,
	}
}

func newTestService(stub *stubProviders) *Service {
	return NewService(stub.providers(), nil, slog.Default())
}

func TestSearchShortQuery(t *testing.T) {
	stub := newStubProviders()
	stub.rows[KindEvent] = []Row{{ID: "e1", Title: "Jazz"}}
	svc := newTestService(stub)

	for _, text := range []string{"", "j", "  x  "} {
		resp, err := svc.Search(context.Background(), Query{Text: text}, Context{})
		if err != nil {
			t.Fatalf("Search(%q) error: %v", text, err)
		}
		if len(resp.Results) != 0 || resp.Total != 0 {
			t.Errorf("Search(%q) = %d results total %d, want empty", text, len(resp.Results), resp.Total)
		}
		if resp.Results == nil || resp.Facets == nil {
			t.Errorf("Search(%q) returned nil slices", text)
		}
	}

	if stub.limit(KindEvent) != 0 {
		t.Error("providers were called for a degenerate query")
	}
}

func TestSearchDefaultsToAllKinds(t *testing.T) {
	stub := newStubProviders()
	stub.rows[KindEvent] = []Row{{ID: "e1", Title: "Jazz Night"}}
	stub.rows[KindVenue] = []Row{{ID: "v1", Title: "Jazz Cellar"}}
	stub.rows[KindOrganizer] = []Row{{ID: "o1", Title: "Jazz Collective"}}
	stub.rows[KindSeries] = []Row{{ID: "s1", Title: "Jazz Mondays"}}
	stub.rows[KindList] = []Row{{ID: "l1", Title: "Best Jazz Spots"}}
	stub.facets = map[Kind]int{KindEvent: 3, KindVenue: 2, KindOrganizer: 1, KindSeries: 1, KindList: 1}
	svc := newTestService(stub)

	resp, err := svc.Search(context.Background(), Query{Text: "jazz"}, Context{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}

	seen := map[Kind]bool{}
	for _, row := range resp.Results {
		seen[row.Kind] = true
	}
	for _, kind := range AllKinds() {
		if !seen[kind] {
			t.Errorf("kind %q missing from results", kind)
		}
	}

	if len(resp.Facets) != len(AllKinds()) {
		t.Fatalf("got %d facets, want %d", len(resp.Facets), len(AllKinds()))
	}
	for i, kind := range AllKinds() {
		if resp.Facets[i].Kind != kind {
			t.Errorf("facet[%d].Kind = %q, want %q", i, resp.Facets[i].Kind, kind)
		}
	}
	if resp.Total != 8 {
		t.Errorf("Total = %d, want 8", resp.Total)
	}
}

func TestSearchFailureIsolation(t *testing.T) {
	stub := newStubProviders()
	stub.errs[KindEvent] = errors.New("events shard down")
	stub.rows[KindVenue] = []Row{{ID: "v1", Title: "Jazz Cellar"}}
	svc := newTestService(stub)

	resp, err := svc.Search(context.Background(), Query{Text: "jazz"}, Context{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Kind != KindVenue {
		t.Errorf("expected the surviving venue row, got %+v", resp.Results)
	}
}

func TestSearchFacetFailureOmitsCounts(t *testing.T) {
	stub := newStubProviders()
	stub.rows[KindEvent] = []Row{{ID: "e1", Title: "Jazz Night"}}
	stub.facetErr = errors.New("count timeout")
	svc := newTestService(stub)

	resp, err := svc.Search(context.Background(), Query{Text: "jazz"}, Context{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Error("results dropped because facets failed")
	}
	if len(resp.Facets) != 0 {
		t.Errorf("Facets = %+v, want none when facet counting fails", resp.Facets)
	}
	if resp.Total != 0 {
		t.Errorf("Total = %d, want 0 when facet counting fails", resp.Total)
	}
}

func TestSearchReportsProviderFailures(t *testing.T) {
	stub := newStubProviders()
	stub.errs[KindEvent] = errors.New("events shard down")
	stub.rows[KindVenue] = []Row{{ID: "v1", Title: "Jazz Cellar"}}
	svc := newTestService(stub)

	var (
		mu     sync.Mutex
		failed []Kind
	)
	svc.OnProviderError(func(kind Kind) {
		mu.Lock()
		failed = append(failed, kind)
		mu.Unlock()
	})

	if _, err := svc.Search(context.Background(), Query{Text: "jazz"}, Context{}); err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(failed) != 1 || failed[0] != KindEvent {
		t.Errorf("failure sink saw %v, want [event]", failed)
	}
}

func TestSearchGlobalOrdering(t *testing.T) {
	stub := newStubProviders()
	// All base scores equal; lexical rescoring decides the order across
	// kinds.
	stub.rows[KindEvent] = []Row{{ID: "e1", Title: "A Night of Blue Note Covers", Score: 1}}
	stub.rows[KindVenue] = []Row{{ID: "v1", Title: "Blue Note", Score: 1}}
	stub.rows[KindList] = []Row{{ID: "l1", Title: "Blue Note and Friends", Score: 1}}
	svc := newTestService(stub)

	resp, err := svc.Search(context.Background(), Query{
		Text:              "blue note",
		Kinds:             []Kind{KindEvent, KindVenue, KindList},
		BoostExactMatches: true,
	}, Context{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(resp.Results))
	}

	wantOrder := []string{"v1", "l1", "e1"} // exact > prefix > word match
	for i, want := range wantOrder {
		if resp.Results[i].ID != want {
			t.Errorf("results[%d].ID = %q, want %q", i, resp.Results[i].ID, want)
		}
	}
}

func TestSearchTonightNormalizedToToday(t *testing.T) {
	stub := newStubProviders()
	svc := newTestService(stub)

	_, err := svc.Search(context.Background(), Query{Text: "jazz", Date: DateTonight}, Context{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if got := stub.filters(KindEvent).Date; got != DateToday {
		t.Errorf("provider date filter = %q, want today", got)
	}
}

func TestSearchIntentDateFilter(t *testing.T) {
	stub := newStubProviders()
	svc := newTestService(stub)

	// Intent-derived date applies when none is explicit.
	_, err := svc.Search(context.Background(), Query{Text: "jazz tonight", UseIntent: true}, Context{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if got := stub.filters(KindEvent).Date; got != DateToday {
		t.Errorf("intent-derived date filter = %q, want today", got)
	}

	// An explicit date filter wins over the intent-derived one.
	_, err = svc.Search(context.Background(), Query{Text: "jazz tonight", UseIntent: true, Date: DateWeekend}, Context{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if got := stub.filters(KindEvent).Date; got != DateWeekend {
		t.Errorf("explicit date filter = %q, want weekend", got)
	}
}

func TestSearchPerTypeLimit(t *testing.T) {
	stub := newStubProviders()
	svc := newTestService(stub)

	// 20 across 5 kinds: 4 each.
	if _, err := svc.Search(context.Background(), Query{Text: "jazz", Limit: 20}, Context{}); err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if got := stub.limit(KindEvent); got != 4 {
		t.Errorf("per-type limit = %d, want 4", got)
	}

	// Ceiling division: 5 across 2 kinds is 3 each.
	if _, err := svc.Search(context.Background(), Query{
		Text:  "jazz",
		Limit: 5,
		Kinds: []Kind{KindEvent, KindVenue},
	}, Context{}); err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if got := stub.limit(KindEvent); got != 3 {
		t.Errorf("per-type limit = %d, want 3", got)
	}
}

func TestSearchTruncatesButCountsAll(t *testing.T) {
	stub := newStubProviders()
	stub.rows[KindEvent] = []Row{
		{ID: "e1", Title: "Jazz One"},
		{ID: "e2", Title: "Jazz Two"},
		{ID: "e3", Title: "Jazz Three"},
	}
	stub.facets = map[Kind]int{KindEvent: 40}
	svc := newTestService(stub)

	resp, err := svc.Search(context.Background(), Query{
		Text:  "jazz",
		Kinds: []Kind{KindEvent},
		Limit: 2,
	}, Context{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("got %d results, want 2", len(resp.Results))
	}
	if resp.Total != 40 {
		t.Errorf("Total = %d, want the full facet count 40", resp.Total)
	}
}

func TestSearchAttachesSuggestions(t *testing.T) {
	stub := newStubProviders()
	stub.suggestions = []string{"jazz"}
	svc := newTestService(stub)

	resp, err := svc.Search(context.Background(), Query{Text: "jass"}, Context{})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(resp.Suggestions) != 1 || resp.Suggestions[0] != "jazz" {
		t.Errorf("Suggestions = %v, want [jazz]", resp.Suggestions)
	}
}
