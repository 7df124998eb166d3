// Package ranking holds the calibrated bonus and cap tables used by
// search rescoring and boosting, with support for loading overrides
// from a calibration file.
package ranking

// MatchBonuses are the lexical match bonuses, applied first-hit-wins:
// exact beats prefix beats word beats substring. The gaps between tiers
// are what make the tie-break ordering hold, so overrides must keep
// ExactTitle > TitlePrefix > WordMatch > Substring.
type MatchBonuses struct {
	ExactTitle  float64 `json:"exact_title"`  // exact case-insensitive title match
	TitlePrefix float64 `json:"title_prefix"` // title starts with the query
	WordMatch   float64 `json:"word_match"`   // query appears as a whole word
	Substring   float64 `json:"substring"`    // query appears anywhere
}

// RecencyBonuses shape the linear decay applied to date-bearing rows.
type RecencyBonuses struct {
	Max        float64 `json:"max"`         // bonus at 0 days out (or already started)
	WindowDays int     `json:"window_days"` // days until the bonus reaches zero
}

// PopularityBonuses are capped linear bonuses from count-like metadata.
// At most one applies per row, depending on which count field is set.
type PopularityBonuses struct {
	PerEvent    float64 `json:"per_event"`    // venues/series: per upcoming event
	EventCap    float64 `json:"event_cap"`    //
	PerFollower float64 `json:"per_follower"` // organizers: per follower
	FollowerCap float64 `json:"follower_cap"` //
	PerItem     float64 `json:"per_item"`     // lists: per curated item
	ItemCap     float64 `json:"item_cap"`     //
}

// Bonuses is the full calibrated table for a deployment.
type Bonuses struct {
	Match      MatchBonuses      `json:"match"`
	Recency    RecencyBonuses    `json:"recency"`
	Popularity PopularityBonuses `json:"popularity"`

	// IntentScale multiplies (priority/100 x confidence) when folding
	// the classifier's type-priority table into a row's score.
	IntentScale float64 `json:"intent_scale"`

	// Personalization is the flat bonus for a followed organizer,
	// followed venue, or favorite category.
	Personalization float64 `json:"personalization"`

	// OverfetchFactor multiplies the fetch limit when subcategory or
	// tag post-filters are active, since those run after the provider
	// returns its page. Heuristic; can under-fill a page if filtering
	// removes more than (factor-1)/factor of candidates.
	OverfetchFactor int `json:"overfetch_factor"`
}

// DefaultBonuses returns the default calibration.
//
// The lexical tiers dominate: an exact title match outscores any
// combination of recency and popularity bonuses, which are capped
// precisely so they cannot overwhelm lexical relevance.
func DefaultBonuses() *Bonuses {
	return &Bonuses{
		Match: MatchBonuses{
			ExactTitle:  50,
			TitlePrefix: 30,
			WordMatch:   20,
			Substring:   10,
		},
		Recency: RecencyBonuses{
			Max:        15,
			WindowDays: 30,
		},
		Popularity: PopularityBonuses{
			PerEvent:    0.5,
			EventCap:    10,
			PerFollower: 0.02,
			FollowerCap: 8,
			PerItem:     0.3,
			ItemCap:     6,
		},
		IntentScale:     10,
		Personalization: 12,
		OverfetchFactor: 3,
	}
}
