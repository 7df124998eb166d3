package search

import (
	"strings"

	"github.com/marqueehq/marquee/internal/ranking"
)

// Personalization boost reasons, reported back for UI attribution.
const (
	BoostFollowedOrganizer = "followed_organizer"
	BoostFollowedVenue     = "followed_venue"
	BoostFavoriteCategory  = "favorite_category"
)

// contextPriorities is the static priority table keyed by view mode and
// sub-view. Constructed once at init and read-only per request. A
// "destinations" sub-view up-weights venues over events; an "events"
// sub-view does the reverse.
var contextPriorities = map[ViewMode]map[string]map[Kind]float64{
	ViewExplore: {
		SubViewEvents: {
			KindEvent: 8, KindSeries: 4, KindVenue: 2, KindList: 2, KindOrganizer: 1,
		},
		SubViewDestinations: {
			KindVenue: 8, KindList: 4, KindEvent: 2, KindSeries: 1, KindOrganizer: 1,
		},
		SubViewCommunity: {
			KindOrganizer: 8, KindSeries: 5, KindEvent: 3, KindVenue: 1, KindList: 1,
		},
		SubViewSeries: {
			KindSeries: 8, KindEvent: 5, KindOrganizer: 3, KindVenue: 1, KindList: 1,
		},
	},
	ViewMap: {
		SubViewEvents: {
			KindEvent: 7, KindVenue: 5, KindSeries: 2, KindList: 1, KindOrganizer: 0,
		},
		SubViewDestinations: {
			KindVenue: 9, KindEvent: 3, KindList: 2, KindSeries: 1, KindOrganizer: 0,
		},
	},
	ViewCalendar: {
		SubViewEvents: {
			KindEvent: 9, KindSeries: 6, KindVenue: 1, KindList: 1, KindOrganizer: 0,
		},
		SubViewSeries: {
			KindSeries: 9, KindEvent: 6, KindVenue: 1, KindList: 1, KindOrganizer: 0,
		},
	},
}

// viewDefaults is the fallback table per view mode, used when the
// sub-view is unrecognized.
var viewDefaults = map[ViewMode]map[Kind]float64{
	ViewExplore: {
		KindEvent: 5, KindVenue: 4, KindSeries: 3, KindList: 2, KindOrganizer: 2,
	},
	ViewMap: {
		KindVenue: 6, KindEvent: 5, KindList: 2, KindSeries: 1, KindOrganizer: 0,
	},
	ViewCalendar: {
		KindEvent: 8, KindSeries: 5, KindVenue: 1, KindList: 1, KindOrganizer: 0,
	},
}

// Booster applies navigation-context and personalization boosts on top
// of rescored rows.
type Booster struct {
	bonuses *ranking.Bonuses
}

// NewBooster creates a Booster with the given calibration. A nil table
// falls back to defaults.
func NewBooster(b *ranking.Bonuses) *Booster {
	if b == nil {
		b = ranking.DefaultBonuses()
	}
	return &Booster{bonuses: b}
}

// Boost returns the row with context and personalization boosts added.
// The input row is not modified.
func (b *Booster) Boost(row Row, intent Intent, sc Context) Row {
	row.Score += b.intentBoost(row.Kind, intent)
	row.Score += contextBoost(row.Kind, sc)

	if reason, ok := b.personalization(row, sc.Prefs); ok {
		row.Score += b.bonuses.Personalization
		row.BoostReason = reason
	}
	return row
}

// intentBoost folds the classifier's type-priority table into the
// score, scaled by the classifier's confidence.
func (b *Booster) intentBoost(kind Kind, intent Intent) float64 {
	weight, ok := intent.Priorities[kind]
	if !ok {
		return 0
	}
	return float64(weight) / 100 * intent.Confidence * b.bonuses.IntentScale
}

// contextBoost looks up the static (view mode, sub-view) priority for
// the row's kind, falling back to the per-view default table when the
// sub-view is unrecognized.
func contextBoost(kind Kind, sc Context) float64 {
	subViews, ok := contextPriorities[sc.ViewMode]
	if !ok {
		return 0
	}
	if table, ok := subViews[sc.SubView]; ok {
		return table[kind]
	}
	return viewDefaults[sc.ViewMode][kind]
}

// personalization reports the single boost reason for a row, if any.
// Organizer and venue follows take precedence over category favorites,
// so at most one reason is attributed even when several match.
func (b *Booster) personalization(row Row, prefs *Preferences) (string, bool) {
	if prefs == nil {
		return "", false
	}
	if row.Kind == KindOrganizer && containsString(prefs.FollowedOrganizers, row.ID) {
		return BoostFollowedOrganizer, true
	}
	if row.Kind == KindVenue && containsString(prefs.FollowedVenues, row.ID) {
		return BoostFollowedVenue, true
	}
	if row.Meta.Category != "" && containsFold(prefs.FavoriteCategories, row.Meta.Category) {
		return BoostFavoriteCategory, true
	}
	return "", false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
