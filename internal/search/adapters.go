package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Route templates per entity kind. Hrefs are relative to the portal
// root; scoped portals get a /p/{portal} prefix.
const (
	routeEvent     = "/e/%s"
	routeVenue     = "/v/%s"
	routeOrganizer = "/o/%s"
	routeSeries    = "/series/%s"
	routeList      = "/lists/%s"
)

var routeTemplates = map[Kind]string{
	KindEvent:     routeEvent,
	KindVenue:     routeVenue,
	KindOrganizer: routeOrganizer,
	KindSeries:    routeSeries,
	KindList:      routeList,
}

// hrefFor builds the target reference for a row of the given kind.
func hrefFor(kind Kind, id, portal string) string {
	href := fmt.Sprintf(routeTemplates[kind], id)
	if portal != "" {
		return "/p/" + portal + href
	}
	return href
}

// adapter wraps one external search primitive for one entity kind,
// normalizes its rows, and applies the post-filters the primitive
// cannot express.
type adapter struct {
	kind    Kind
	fetch   func(ctx context.Context, query string, f Filters, limit, offset int) ([]Row, error)
	logger  *slog.Logger
	onError func(Kind)
}

// search fetches and normalizes rows for this adapter's kind. When
// subcategory or tag filters are requested it over-fetches by the given
// factor, filters client-side, and truncates to the caller's limit;
// otherwise legitimate matches could be starved by the provider's
// unfiltered page boundary. A provider error degrades to an empty
// result set rather than failing the whole request.
func (a *adapter) search(ctx context.Context, q Query, f Filters, limit, offset, overfetch int) []Row {
	fetchLimit := limit
	postFilter := len(q.Subcategories) > 0 || len(q.Tags) > 0
	if postFilter && overfetch > 1 {
		fetchLimit = limit * overfetch
	}

	rows, err := a.fetch(ctx, q.Text, f, fetchLimit, offset)
	if err != nil {
		a.logger.ErrorContext(ctx, "entity search failed, degrading to empty results",
			"kind", string(a.kind),
			"query", q.Text,
			"error", err)
		if a.onError != nil {
			a.onError(a.kind)
		}
		return []Row{}
	}

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if !matchesSubcategories(row.Meta, q.Subcategories) {
			continue
		}
		if !matchesTags(row.Meta.Tags, q.Tags) {
			continue
		}
		row.Kind = a.kind
		row.Href = hrefFor(a.kind, row.ID, q.Portal)
		out = append(out, row)
		if len(out) == limit {
			break
		}
	}
	return out
}

// matchesSubcategories keeps a row when its subcategory exactly matches
// a requested "category.sub" value, or when the row has no subcategory
// but its parent category matches the category portion of a requested
// value. The asymmetry is deliberate: it keeps uncategorized-but-on-topic
// rows while excluding rows that are categorized into a different
// subcategory.
func matchesSubcategories(meta Meta, requested []string) bool {
	if len(requested) == 0 {
		return true
	}
	for _, want := range requested {
		category, sub, ok := strings.Cut(want, ".")
		if !ok {
			sub = want
			category = ""
		}
		if meta.Subcategory != "" &&
			(strings.EqualFold(meta.Subcategory, want) || strings.EqualFold(meta.Subcategory, sub)) {
			return true
		}
		if meta.Subcategory == "" && category != "" && strings.EqualFold(meta.Category, category) {
			return true
		}
	}
	return false
}

// matchesTags keeps a row when any of its tags intersects the requested
// set (OR semantics).
func matchesTags(tags, requested []string) bool {
	if len(requested) == 0 {
		return true
	}
	for _, t := range tags {
		if containsFold(requested, t) {
			return true
		}
	}
	return false
}

// adapters builds the per-kind adapter table over the configured
// providers.
func (s *Service) adapters() map[Kind]*adapter {
	p := s.providers
	return map[Kind]*adapter{
		KindEvent: {
			kind:    KindEvent,
			logger:  s.logger,
			onError: s.onError,
			fetch:   p.Events.SearchEvents,
		},
		KindVenue: {
			kind:    KindVenue,
			logger:  s.logger,
			onError: s.onError,
			fetch:   p.Venues.SearchVenues,
		},
		KindOrganizer: {
			kind:    KindOrganizer,
			logger:  s.logger,
			onError: s.onError,
			fetch:   p.Organizers.SearchOrganizers,
		},
		KindSeries: {
			kind:    KindSeries,
			logger:  s.logger,
			onError: s.onError,
			fetch: func(ctx context.Context, query string, f Filters, limit, offset int) ([]Row, error) {
				return p.Series.LookupSeries(ctx, query, f.Portal, limit, offset)
			},
		},
		KindList: {
			kind:    KindList,
			logger:  s.logger,
			onError: s.onError,
			fetch: func(ctx context.Context, query string, f Filters, limit, offset int) ([]Row, error) {
				return p.Lists.LookupLists(ctx, query, f.Portal, limit, offset)
			},
		},
	}
}
