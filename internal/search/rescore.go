package search

import (
	"regexp"
	"strings"
	"time"

	"github.com/marqueehq/marquee/internal/ranking"
)

// Rescorer applies additive relevance bonuses on top of the provider's
// base score: one lexical match bonus (most specific rule wins), plus
// independent recency and popularity bonuses. It never discards rows.
type Rescorer struct {
	bonuses *ranking.Bonuses
	now     func() time.Time
}

// NewRescorer creates a Rescorer with the given calibration. A nil
// table falls back to defaults.
func NewRescorer(b *ranking.Bonuses) *Rescorer {
	if b == nil {
		b = ranking.DefaultBonuses()
	}
	return &Rescorer{bonuses: b, now: time.Now}
}

// Rescore returns the row with its score adjusted for the query text.
// The input row is not modified. lexical controls whether the match
// bonus tier applies; recency and popularity always do.
func (r *Rescorer) Rescore(row Row, queryText string, lexical bool) Row {
	if lexical {
		row.Score += r.matchBonus(row.Title, queryText)
	}
	row.Score += r.recencyBonus(row.Meta.Date)
	row.Score += r.popularityBonus(row.Meta)
	return row
}

// matchBonus picks the single most specific applicable lexical rule:
// exact title > title prefix > whole word > substring. Rules are not
// cumulative.
func (r *Rescorer) matchBonus(title, queryText string) float64 {
	query := strings.ToLower(strings.TrimSpace(queryText))
	if query == "" {
		return 0
	}
	titleLower := strings.ToLower(title)

	switch {
	case titleLower == query:
		return r.bonuses.Match.ExactTitle
	case strings.HasPrefix(titleLower, query):
		return r.bonuses.Match.TitlePrefix
	case wordBoundaryMatch(titleLower, query):
		return r.bonuses.Match.WordMatch
	case strings.Contains(titleLower, query):
		return r.bonuses.Match.Substring
	}
	return 0
}

// wordBoundaryMatch reports whether query appears as a whole word in text.
func wordBoundaryMatch(text, query string) bool {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(query) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// recencyBonus decays linearly from the maximum at "today or already
// started" down to zero at the window boundary. Dates beyond the window
// or unparseable dates get no bonus: an unparseable date is treated as
// far future, not as an error.
func (r *Rescorer) recencyBonus(date string) float64 {
	if date == "" {
		return 0
	}
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0
	}

	window := r.bonuses.Recency.WindowDays
	if window <= 0 {
		return 0
	}

	// The parsed date is a UTC midnight; pin "today" to UTC midnight of
	// the local calendar day too so the difference is a whole number of
	// days in any server timezone.
	now := r.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(d.Sub(today).Hours() / 24)

	if days <= 0 {
		// Today, or already past due but still listed.
		return r.bonuses.Recency.Max
	}
	if days > window {
		return 0
	}
	return r.bonuses.Recency.Max * (1 - float64(days)/float64(window))
}

// popularityBonus is a capped linear function of whichever count-like
// field is present. At most one applies per row.
func (r *Rescorer) popularityBonus(meta Meta) float64 {
	p := r.bonuses.Popularity
	switch {
	case meta.EventCount > 0:
		return capped(float64(meta.EventCount)*p.PerEvent, p.EventCap)
	case meta.FollowerCount > 0:
		return capped(float64(meta.FollowerCount)*p.PerFollower, p.FollowerCap)
	case meta.ItemCount > 0:
		return capped(float64(meta.ItemCount)*p.PerItem, p.ItemCap)
	}
	return 0
}

func capped(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}
