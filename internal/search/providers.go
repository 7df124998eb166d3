package search

import "context"

// Filters are the structural predicates the external search primitives
// can express. Subcategory and tag filtering are deliberately absent:
// the primitives cannot express them, so adapters apply those
// client-side after fetching.
type Filters struct {
	Categories    []string
	Neighborhoods []string
	Date          DateFilter
	FreeOnly      bool
	Portal        string
}

// EventProvider is the ranked full-text search primitive for events.
// Rows come back pre-sorted by the provider's combined relevance score.
type EventProvider interface {
	SearchEvents(ctx context.Context, query string, f Filters, limit, offset int) ([]Row, error)
}

// VenueProvider is the ranked full-text search primitive for venues.
type VenueProvider interface {
	SearchVenues(ctx context.Context, query string, f Filters, limit, offset int) ([]Row, error)
}

// OrganizerProvider is the ranked full-text search primitive for organizers.
type OrganizerProvider interface {
	SearchOrganizers(ctx context.Context, query string, f Filters, limit, offset int) ([]Row, error)
}

// SeriesProvider is a direct prefix/substring lookup for recurring
// series, which have no dedicated ranking primitive.
type SeriesProvider interface {
	LookupSeries(ctx context.Context, query string, portal string, limit, offset int) ([]Row, error)
}

// ListProvider is a direct prefix/substring lookup for curated lists.
type ListProvider interface {
	LookupLists(ctx context.Context, query string, portal string, limit, offset int) ([]Row, error)
}

// FacetProvider returns match counts per entity kind for the same query
// and filters, independent of pagination.
type FacetProvider interface {
	CountByKind(ctx context.Context, query string, kinds []Kind, f Filters) (map[Kind]int, error)
}

// SpellingProvider is the fuzzy-similarity lookup backing typo
// suggestions. Returned strings are ranked by similarity.
type SpellingProvider interface {
	SuggestSpellings(ctx context.Context, query string, limit int) ([]string, error)
}

// Providers bundles every external primitive the aggregator fans out
// to. All fields are required.
type Providers struct {
	Events     EventProvider
	Venues     VenueProvider
	Organizers OrganizerProvider
	Series     SeriesProvider
	Lists      ListProvider
	Facets     FacetProvider
	Spelling   SpellingProvider
}
