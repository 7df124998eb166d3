// Package store provides the provider implementations behind unified
// search: a Postgres-backed provider for production and an in-memory
// provider for tests and development.
package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/marqueehq/marquee/internal/search"
)

// Memory is an in-memory implementation of every search provider
// interface. Rows are seeded directly; scoring mimics the ranked
// providers with simple tiered text matching.
type Memory struct {
	Events     []search.Row
	Venues     []search.Row
	Organizers []search.Row
	Series     []search.Row
	Lists      []search.Row

	// Dictionary seeds spelling suggestions.
	Dictionary []string

	// Fail injects a per-kind provider error for failure-path tests.
	Fail map[search.Kind]error
	// FailFacets injects a facet-provider error.
	FailFacets error
	// FailSpelling injects a spelling-provider error.
	FailSpelling error

	// Now overrides the clock for date-filter evaluation.
	Now func() time.Time
}

// NewMemory creates an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{Now: time.Now}
}

func (m *Memory) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// SearchEvents implements search.EventProvider.
func (m *Memory) SearchEvents(_ context.Context, query string, f search.Filters, limit, offset int) ([]search.Row, error) {
	if err := m.Fail[search.KindEvent]; err != nil {
		return nil, err
	}
	return m.rank(m.Events, query, f, limit, offset), nil
}

// SearchVenues implements search.VenueProvider.
func (m *Memory) SearchVenues(_ context.Context, query string, f search.Filters, limit, offset int) ([]search.Row, error) {
	if err := m.Fail[search.KindVenue]; err != nil {
		return nil, err
	}
	return m.rank(m.Venues, query, f, limit, offset), nil
}

// SearchOrganizers implements search.OrganizerProvider.
func (m *Memory) SearchOrganizers(_ context.Context, query string, f search.Filters, limit, offset int) ([]search.Row, error) {
	if err := m.Fail[search.KindOrganizer]; err != nil {
		return nil, err
	}
	return m.rank(m.Organizers, query, f, limit, offset), nil
}

// LookupSeries implements search.SeriesProvider with prefix-then-substring
// ordering, the way entities without a ranking primitive are looked up.
func (m *Memory) LookupSeries(_ context.Context, query, _ string, limit, offset int) ([]search.Row, error) {
	if err := m.Fail[search.KindSeries]; err != nil {
		return nil, err
	}
	return m.lookup(m.Series, query, limit, offset), nil
}

// LookupLists implements search.ListProvider.
func (m *Memory) LookupLists(_ context.Context, query, _ string, limit, offset int) ([]search.Row, error) {
	if err := m.Fail[search.KindList]; err != nil {
		return nil, err
	}
	return m.lookup(m.Lists, query, limit, offset), nil
}

// CountByKind implements search.FacetProvider. Counts come from the
// full match set under the same predicates, independent of pagination.
func (m *Memory) CountByKind(_ context.Context, query string, kinds []search.Kind, f search.Filters) (map[search.Kind]int, error) {
	if m.FailFacets != nil {
		return nil, m.FailFacets
	}
	sets := map[search.Kind][]search.Row{
		search.KindEvent:     m.Events,
		search.KindVenue:     m.Venues,
		search.KindOrganizer: m.Organizers,
		search.KindSeries:    m.Series,
		search.KindList:      m.Lists,
	}
	counts := make(map[search.Kind]int, len(kinds))
	for _, kind := range kinds {
		n := 0
		for _, row := range sets[kind] {
			if m.matches(row, query, f) {
				n++
			}
		}
		counts[kind] = n
	}
	return counts, nil
}

// SuggestSpellings implements search.SpellingProvider using edit
// distance over the seeded dictionary, closest first.
func (m *Memory) SuggestSpellings(_ context.Context, query string, limit int) ([]string, error) {
	if m.FailSpelling != nil {
		return nil, m.FailSpelling
	}
	query = strings.ToLower(query)

	type candidate struct {
		term string
		dist int
	}
	var candidates []candidate
	for _, term := range m.Dictionary {
		termLower := strings.ToLower(term)
		if termLower == query {
			continue
		}
		if d := editDistance(query, termLower); d <= 2 {
			candidates = append(candidates, candidate{term: term, dist: d})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	out := make([]string, 0, limit)
	for _, c := range candidates {
		out = append(out, c.term)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// rank scores matching rows with tiered text matching (title above
// subtitle above tags) and returns them sorted by descending score.
func (m *Memory) rank(rows []search.Row, query string, f search.Filters, limit, offset int) []search.Row {
	queryLower := strings.ToLower(query)

	var out []search.Row
	for _, row := range rows {
		if !m.matches(row, query, f) {
			continue
		}
		scored := row
		switch {
		case strings.Contains(strings.ToLower(row.Title), queryLower):
			scored.Score = 1.0
		case strings.Contains(strings.ToLower(row.Subtitle), queryLower):
			scored.Score = 0.8
		default:
			scored.Score = 0.6 // matched via tags
		}
		out = append(out, scored)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return page(out, limit, offset)
}

// lookup returns matching rows with prefix matches ahead of substring
// matches, mirroring the direct-lookup primitives.
func (m *Memory) lookup(rows []search.Row, query string, limit, offset int) []search.Row {
	queryLower := strings.ToLower(query)

	var out []search.Row
	for _, row := range rows {
		titleLower := strings.ToLower(row.Title)
		scored := row
		switch {
		case strings.HasPrefix(titleLower, queryLower):
			scored.Score = 1.0
		case strings.Contains(titleLower, queryLower):
			scored.Score = 0.5
		default:
			continue
		}
		out = append(out, scored)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return page(out, limit, offset)
}

// matches applies the text predicate plus every structural filter the
// external primitives would apply server-side.
func (m *Memory) matches(row search.Row, query string, f search.Filters) bool {
	queryLower := strings.ToLower(query)
	text := strings.ToLower(row.Title) + " " + strings.ToLower(row.Subtitle) + " " + strings.ToLower(strings.Join(row.Meta.Tags, " "))
	if !strings.Contains(text, queryLower) {
		return false
	}

	if len(f.Categories) > 0 && !containsFold(f.Categories, row.Meta.Category) {
		return false
	}
	if len(f.Neighborhoods) > 0 && !containsFold(f.Neighborhoods, row.Meta.Neighborhood) {
		return false
	}
	if f.FreeOnly && !row.Meta.Free {
		return false
	}
	if f.Date != search.DateAny && row.Meta.Date != "" {
		if !m.inDateWindow(row.Meta.Date, f.Date) {
			return false
		}
	}
	return true
}

// inDateWindow checks a row's date against the named window. Rows with
// unparseable dates are kept; date filtering is a structural predicate,
// not a correctness gate.
func (m *Memory) inDateWindow(date string, filter search.DateFilter) bool {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return true
	}
	start, end := DateWindow(filter, m.now())
	if start.IsZero() {
		return true
	}
	return !d.Before(start) && !d.After(end)
}

func page(rows []search.Row, limit, offset int) []search.Row {
	if offset >= len(rows) {
		return []search.Row{}
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// DateWindow resolves a date filter to an inclusive [start, end] day
// range relative to now. DateAny returns zero times.
func DateWindow(filter search.DateFilter, now time.Time) (time.Time, time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch filter {
	case search.DateToday, search.DateTonight:
		return day, day
	case search.DateTomorrow:
		t := day.AddDate(0, 0, 1)
		return t, t
	case search.DateWeekend:
		// Saturday through Sunday of the current week; on a weekend day
		// the window starts today.
		offset := (int(time.Saturday) - int(day.Weekday()) + 7) % 7
		if day.Weekday() == time.Sunday {
			return day, day
		}
		start := day.AddDate(0, 0, offset)
		return start, start.AddDate(0, 0, 1)
	case search.DateWeek:
		return day, day.AddDate(0, 0, 6)
	}
	return time.Time{}, time.Time{}
}

// editDistance is the Levenshtein distance between two strings, used
// by the in-memory spelling provider.
func editDistance(a, b string) int {
	runesA := []rune(a)
	runesB := []rune(b)

	prev := make([]int, len(runesB)+1)
	curr := make([]int, len(runesB)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(runesA); i++ {
		curr[0] = i
		for j := 1; j <= len(runesB); j++ {
			cost := 1
			if runesA[i-1] == runesB[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(runesB)]
}

func minInt(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
