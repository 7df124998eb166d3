package search

import (
	"regexp"
	"strings"
)

// IntentKind classifies the purpose behind a query.
type IntentKind string

// Query intents, in evaluation priority order.
const (
	IntentTime      IntentKind = "time"
	IntentVenue     IntentKind = "venue"
	IntentOrganizer IntentKind = "organizer"
	IntentSeries    IntentKind = "series"
	IntentCategory  IntentKind = "category"
	IntentLocation  IntentKind = "location"
	IntentGeneral   IntentKind = "general"
)

// Intent is the classified purpose of a query, with a confidence value
// and a type-priority table weighting entity kinds for this intent.
type Intent struct {
	Kind       IntentKind
	Confidence float64
	Value      string       // extracted phrase, when the group captures one
	Date       DateFilter   // derived date filter, time intent only
	Priorities map[Kind]int // entity kind -> weight, 0..100
	Variants   []string     // suggested query variants, when applicable
}

// defaultPriorities is the flat table used for general and degenerate
// queries. Events are weighted highest since they dominate portal usage.
func defaultPriorities() map[Kind]int {
	return map[Kind]int{
		KindEvent:     60,
		KindVenue:     40,
		KindOrganizer: 30,
		KindSeries:    30,
		KindList:      25,
	}
}

// intentRule pairs a pattern with the intent it constructs. Rules are
// evaluated in order and the first match wins, so slice order is the
// classification priority: time > venue > organizer > series >
// category > location.
type intentRule struct {
	re    *regexp.Regexp
	build func(text string, match []string) Intent
}

var timeDateFilters = map[string]DateFilter{
	"tonight":      DateTonight,
	"today":        DateToday,
	"now":          DateToday,
	"tomorrow":     DateTomorrow,
	"this weekend": DateWeekend,
	"weekend":      DateWeekend,
	"this week":    DateWeek,
}

var intentRules = []intentRule{
	{
		re: regexp.MustCompile(`(?i)\b(tonight|today|tomorrow|this weekend|weekend|this week|now|happening soon)\b`),
		build: func(_ string, match []string) Intent {
			phrase := strings.ToLower(match[1])
			return Intent{
				Kind:       IntentTime,
				Confidence: 0.9,
				Value:      phrase,
				Date:       timeDateFilters[phrase],
				Priorities: map[Kind]int{
					KindEvent:     95,
					KindSeries:    40,
					KindVenue:     25,
					KindList:      20,
					KindOrganizer: 10,
				},
			}
		},
	},
	{
		re: regexp.MustCompile(`(?i)\b(venue|bar|club|theater|theatre|hall|cafe|brewery|winery|gallery|rooftop|arena|lounge|ballroom)s?\b`),
		build: func(_ string, match []string) Intent {
			return Intent{
				Kind:       IntentVenue,
				Confidence: 0.8,
				Value:      strings.ToLower(match[1]),
				Priorities: map[Kind]int{
					KindVenue:     95,
					KindEvent:     55,
					KindList:      30,
					KindSeries:    15,
					KindOrganizer: 10,
				},
			}
		},
	},
	{
		re: regexp.MustCompile(`(?i)\b(hosted by|presented by|presents|promoter|organizer|organiser|collective|productions|crew)\b`),
		build: func(_ string, match []string) Intent {
			return Intent{
				Kind:       IntentOrganizer,
				Confidence: 0.8,
				Value:      strings.ToLower(match[1]),
				Priorities: map[Kind]int{
					KindOrganizer: 95,
					KindEvent:     50,
					KindSeries:    35,
					KindVenue:     15,
					KindList:      15,
				},
			}
		},
	},
	{
		re: regexp.MustCompile(`(?i)\b(every (monday|tuesday|wednesday|thursday|friday|saturday|sunday|week|month)|weekly|monthly|recurring|residency|series|open mic)\b`),
		build: func(_ string, match []string) Intent {
			return Intent{
				Kind:       IntentSeries,
				Confidence: 0.75,
				Value:      strings.ToLower(match[1]),
				Priorities: map[Kind]int{
					KindSeries:    95,
					KindEvent:     55,
					KindVenue:     20,
					KindOrganizer: 20,
					KindList:      15,
				},
			}
		},
	},
	{
		re: categoryKeywordPattern,
		build: func(text string, match []string) Intent {
			keyword := strings.ToLower(match[1])
			category := categoryForKeyword(keyword)
			return Intent{
				Kind:       IntentCategory,
				Confidence: 0.7,
				Value:      category,
				Priorities: map[Kind]int{
					KindEvent:     85,
					KindList:      45,
					KindSeries:    40,
					KindVenue:     35,
					KindOrganizer: 25,
				},
				Variants: categoryVariants(text, keyword, category),
			}
		},
	},
	{
		re: regexp.MustCompile(`(?i)\b(near me|nearby|close by|around here|downtown|uptown|in town|neighborhood|neighbourhood)\b`),
		build: func(_ string, match []string) Intent {
			return Intent{
				Kind:       IntentLocation,
				Confidence: 0.7,
				Value:      strings.ToLower(match[1]),
				Priorities: map[Kind]int{
					KindEvent:     75,
					KindVenue:     70,
					KindList:      30,
					KindSeries:    20,
					KindOrganizer: 15,
				},
			}
		},
	},
}

// categoryKeywords maps recognizable keywords to the category they
// belong to. The table is read-only after init.
var categoryKeywords = map[string]string{
	"music":    "music",
	"concert":  "music",
	"concerts": "music",
	"band":     "music",
	"bands":    "music",
	"dj":       "music",
	"jazz":     "music",
	"karaoke":  "music",
	"comedy":   "comedy",
	"standup":  "comedy",
	"improv":   "comedy",
	"art":      "art",
	"gallery":  "art",
	"exhibit":  "art",
	"food":     "food",
	"tasting":  "food",
	"brunch":   "food",
	"theater":  "theater",
	"theatre":  "theater",
	"play":     "theater",
	"musical":  "theater",
	"film":     "film",
	"movie":    "film",
	"movies":   "film",
	"trivia":   "games",
	"bingo":    "games",
	"market":   "market",
	"markets":  "market",
	"yoga":     "wellness",
	"wellness": "wellness",
}

var categoryKeywordPattern = buildCategoryPattern()

func buildCategoryPattern() *regexp.Regexp {
	words := make([]string, 0, len(categoryKeywords))
	for w := range categoryKeywords {
		words = append(words, regexp.QuoteMeta(w))
	}
	// Longest-first so "concerts" is preferred over "concert".
	for i := 0; i < len(words); i++ {
		for j := i + 1; j < len(words); j++ {
			if len(words[j]) > len(words[i]) {
				words[i], words[j] = words[j], words[i]
			}
		}
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)\b`)
}

func categoryForKeyword(keyword string) string {
	if c, ok := categoryKeywords[keyword]; ok {
		return c
	}
	return keyword
}

// categoryVariants suggests query rewrites that swap the matched
// keyword for its canonical category label.
func categoryVariants(text, keyword, category string) []string {
	if keyword == category {
		return nil
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
	variant := re.ReplaceAllString(text, category)
	if strings.EqualFold(variant, text) {
		return nil
	}
	return []string{variant}
}

// Classify maps raw query text to an intent. It is a pure function:
// never errors, and absence of any pattern match yields the general
// intent. Texts shorter than 2 characters produce the general intent
// with confidence 0 and the default type-priority table.
func Classify(text string) Intent {
	text = strings.TrimSpace(text)
	if len(text) < 2 {
		return Intent{
			Kind:       IntentGeneral,
			Confidence: 0,
			Priorities: defaultPriorities(),
		}
	}

	for _, rule := range intentRules {
		if match := rule.re.FindStringSubmatch(text); match != nil {
			return rule.build(text, match)
		}
	}

	return Intent{
		Kind:       IntentGeneral,
		Confidence: 0.3,
		Priorities: defaultPriorities(),
	}
}
