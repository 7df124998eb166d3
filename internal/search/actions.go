package search

import (
	"net/url"
	"regexp"
	"strings"
)

// MaxQuickActions caps the combined quick-action list. Groups are
// evaluated free > category > time > neighborhood, so when all four
// match, the neighborhood suggestion is the one dropped.
const MaxQuickActions = 3

// actionGroup is one independent keyword group. Patterns within a group
// are ordered; the first match contributes the group's single action.
type actionGroup struct {
	patterns []actionPattern
}

type actionPattern struct {
	re    *regexp.Regexp
	build func(match []string, scope string) QuickAction
}

var freeGroup = actionGroup{
	patterns: []actionPattern{
		{
			re: regexp.MustCompile(`(?i)\b(free|no cover|cheap)\b`),
			build: func(_ []string, scope string) QuickAction {
				return QuickAction{
					Label:  "Free events",
					Params: map[string]string{"free": "true"},
					URL:    scopedSearchURL(scope, url.Values{"free": {"true"}}),
				}
			},
		},
	},
}

var timeGroup = actionGroup{
	patterns: []actionPattern{
		{
			re: regexp.MustCompile(`(?i)\b(tonight)\b`),
			build: func(_ []string, scope string) QuickAction {
				return QuickAction{
					Label:  "Happening tonight",
					Params: map[string]string{"date": string(DateTonight)},
					URL:    scopedSearchURL(scope, url.Values{"date": {string(DateTonight)}}),
				}
			},
		},
		{
			re: regexp.MustCompile(`(?i)\b(today|now)\b`),
			build: func(_ []string, scope string) QuickAction {
				return QuickAction{
					Label:  "Happening today",
					Params: map[string]string{"date": string(DateToday)},
					URL:    scopedSearchURL(scope, url.Values{"date": {string(DateToday)}}),
				}
			},
		},
		{
			re: regexp.MustCompile(`(?i)\b(this weekend|weekend)\b`),
			build: func(_ []string, scope string) QuickAction {
				return QuickAction{
					Label:  "This weekend",
					Params: map[string]string{"date": string(DateWeekend)},
					URL:    scopedSearchURL(scope, url.Values{"date": {string(DateWeekend)}}),
				}
			},
		},
	},
}

// knownNeighborhoods is the static neighborhood vocabulary recognized
// in query text. Read-only after init.
var knownNeighborhoods = []string{
	"downtown",
	"riverside",
	"old town",
	"midtown",
	"northside",
	"southside",
	"eastside",
	"westside",
	"the heights",
	"warehouse district",
	"arts district",
}

func categoryGroup() actionGroup {
	return actionGroup{
		patterns: []actionPattern{
			{
				re: categoryKeywordPattern,
				build: func(match []string, scope string) QuickAction {
					category := categoryForKeyword(strings.ToLower(match[1]))
					return QuickAction{
						Label:  "Browse " + category,
						Params: map[string]string{"category": category},
						URL:    scopedSearchURL(scope, url.Values{"category": {category}}),
					}
				},
			},
		},
	}
}

func neighborhoodGroup() actionGroup {
	patterns := make([]actionPattern, 0, len(knownNeighborhoods))
	for _, hood := range knownNeighborhoods {
		hood := hood
		patterns = append(patterns, actionPattern{
			re: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(hood) + `\b`),
			build: func(_ []string, scope string) QuickAction {
				return QuickAction{
					Label:  "Explore " + hood,
					Params: map[string]string{"neighborhood": hood},
					URL:    scopedSearchURL(scope, url.Values{"neighborhood": {hood}}),
				}
			},
		})
	}
	return actionGroup{patterns: patterns}
}

// DetectQuickActions evaluates the independent keyword groups against
// the query. Each group contributes at most one action; groups run in a
// fixed order and the combined list is capped at MaxQuickActions.
func DetectQuickActions(query, scopeSlug string) []QuickAction {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	groups := []actionGroup{
		freeGroup,
		categoryGroup(),
		timeGroup,
		neighborhoodGroup(),
	}

	actions := make([]QuickAction, 0, MaxQuickActions)
	for _, group := range groups {
		for _, p := range group.patterns {
			if match := p.re.FindStringSubmatch(query); match != nil {
				actions = append(actions, p.build(match, scopeSlug))
				break
			}
		}
		if len(actions) == MaxQuickActions {
			break
		}
	}
	return actions
}

// scopedSearchURL builds a search URL under the caller's portal scope.
func scopedSearchURL(scope string, params url.Values) string {
	base := "/search"
	if scope != "" {
		base = "/p/" + scope + "/search"
	}
	if len(params) == 0 {
		return base
	}
	return base + "?" + params.Encode()
}
