// Package search implements unified, intent-aware search across the
// entity kinds of the discovery portal: events, venues, organizers,
// recurring series, and curated lists.
package search

// Kind identifies a searchable entity kind.
type Kind string

// Searchable entity kinds.
const (
	KindEvent     Kind = "event"
	KindVenue     Kind = "venue"
	KindOrganizer Kind = "organizer"
	KindSeries    Kind = "series"
	KindList      Kind = "list"
)

// AllKinds returns every searchable kind in display order.
func AllKinds() []Kind {
	return []Kind{KindEvent, KindVenue, KindOrganizer, KindSeries, KindList}
}

// ValidKind reports whether k names a known entity kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindEvent, KindVenue, KindOrganizer, KindSeries, KindList:
		return true
	}
	return false
}

// DateFilter narrows date-bearing results to a named window.
type DateFilter string

// Supported date filters. DateTonight is accepted as input but is
// normalized to DateToday before reaching providers; the underlying
// date predicate does not distinguish them.
const (
	DateAny      DateFilter = ""
	DateToday    DateFilter = "today"
	DateTonight  DateFilter = "tonight"
	DateTomorrow DateFilter = "tomorrow"
	DateWeekend  DateFilter = "weekend"
	DateWeek     DateFilter = "week"
)

// Query is the immutable input to a unified search request.
type Query struct {
	Text          string
	Kinds         []Kind
	Limit         int
	Offset        int
	Categories    []string
	Subcategories []string // dotted "category.sub" syntax
	Tags          []string
	Neighborhoods []string
	Date          DateFilter
	FreeOnly      bool
	Portal        string // tenant/portal scope id, empty for the global portal

	// Feature toggles.
	UseIntent         bool
	BoostExactMatches bool
}

// ViewMode is the navigation view the user searched from.
type ViewMode string

// Navigation view modes.
const (
	ViewExplore  ViewMode = "explore"
	ViewMap      ViewMode = "map"
	ViewCalendar ViewMode = "calendar"
)

// Sub-view identifiers within a view mode.
const (
	SubViewEvents       = "events"
	SubViewDestinations = "destinations"
	SubViewCommunity    = "community"
	SubViewSeries       = "series"
)

// Preferences is the read-only per-user personalization input.
type Preferences struct {
	FollowedOrganizers []string
	FollowedVenues     []string
	FavoriteCategories []string
}

// Context carries the navigational situation a search was issued from.
type Context struct {
	ViewMode ViewMode
	SubView  string
	Portal   string
	Prefs    *Preferences
}

// Meta is the optional metadata bag on a result row. Only the fields
// that make sense for the row's kind are populated.
type Meta struct {
	Date          string   `json:"date,omitempty"` // ISO 8601 date (2006-01-02)
	Time          string   `json:"time,omitempty"`
	Neighborhood  string   `json:"neighborhood,omitempty"`
	Category      string   `json:"category,omitempty"`
	Subcategory   string   `json:"subcategory,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Vibes         []string `json:"vibes,omitempty"`
	Free          bool     `json:"free,omitempty"`
	Live          bool     `json:"live,omitempty"`
	EventCount    int      `json:"event_count,omitempty"`
	FollowerCount int      `json:"follower_count,omitempty"`
	ItemCount     int      `json:"item_count,omitempty"`
}

// Row is the normalized result shape every entity kind maps into.
// Identity (ID + Kind) is immutable; only Score is adjusted as the row
// passes through rescoring and boosting.
type Row struct {
	ID          string  `json:"id"`
	Kind        Kind    `json:"kind"`
	Title       string  `json:"title"`
	Subtitle    string  `json:"subtitle,omitempty"`
	Href        string  `json:"href"`
	Score       float64 `json:"score"`
	BoostReason string  `json:"boost_reason,omitempty"`
	Meta        Meta    `json:"meta"`
}

// Facet is a per-kind match count, computed from the full match set
// independently of pagination.
type Facet struct {
	Kind  Kind `json:"kind"`
	Count int  `json:"count"`
}

// Response is the assembled result of a unified search. It is not
// mutated after being returned.
type Response struct {
	Results     []Row    `json:"results"`
	Facets      []Facet  `json:"facets"`
	Total       int      `json:"total"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// QuickAction is a navigation shortcut derived from recognizable query
// phrases, surfaced alongside search results.
type QuickAction struct {
	Label  string            `json:"label"`
	Params map[string]string `json:"params"`
	URL    string            `json:"url"`
}
