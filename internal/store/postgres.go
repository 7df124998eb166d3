package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/marqueehq/marquee/internal/search"
	"github.com/marqueehq/marquee/internal/tracing"
)

// Postgres implements the search provider interfaces over PostgreSQL.
// Full-text ranking uses ts_rank over a precomputed search_vector
// column combined with pg_trgm similarity on titles; series and lists
// use direct prefix/substring lookups.
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres creates a Postgres provider.
func NewPostgres(db *sql.DB, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger}
}

// SearchEvents implements search.EventProvider.
func (p *Postgres) SearchEvents(ctx context.Context, query string, f search.Filters, limit, offset int) ([]search.Row, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "events", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	tsquery := search.ToTSQuery(query)
	args := []any{query, tsquery, limit, offset}
	where := `(e.search_vector @@ to_tsquery('simple', $2) OR e.title % $1)`
	where, args = appendFilterClauses(where, args, f, "e")

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT e.id, e.title, COALESCE(e.venue_name, ''),
		       to_char(e.starts_on, 'YYYY-MM-DD'), COALESCE(e.starts_at_time, ''),
		       COALESCE(e.neighborhood, ''), COALESCE(e.category, ''), COALESCE(e.subcategory, ''),
		       COALESCE(e.tags, '{}'), e.is_free, e.is_live,
		       ts_rank(e.search_vector, to_tsquery('simple', $2)) + similarity(e.title, $1) AS score
		FROM events e
		WHERE %s
		ORDER BY score DESC, e.starts_on ASC
		LIMIT $3 OFFSET $4`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("event search query: %w", err)
	}
	defer closeRows(rows, p.logger)

	var out []search.Row
	for rows.Next() {
		var r search.Row
		var tags pq.StringArray
		if err = rows.Scan(&r.ID, &r.Title, &r.Subtitle,
			&r.Meta.Date, &r.Meta.Time,
			&r.Meta.Neighborhood, &r.Meta.Category, &r.Meta.Subcategory,
			&tags, &r.Meta.Free, &r.Meta.Live, &r.Score); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		r.Meta.Tags = tags
		out = append(out, r)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("event search rows: %w", err)
	}
	return out, nil
}

// SearchVenues implements search.VenueProvider.
func (p *Postgres) SearchVenues(ctx context.Context, query string, f search.Filters, limit, offset int) ([]search.Row, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "venues", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	tsquery := search.ToTSQuery(query)
	args := []any{query, tsquery, limit, offset}
	where := `(v.search_vector @@ to_tsquery('simple', $2) OR v.name % $1)`
	where, args = appendVenueFilterClauses(where, args, f)

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT v.id, v.name, COALESCE(v.tagline, ''),
		       COALESCE(v.neighborhood, ''), COALESCE(v.category, ''), COALESCE(v.tags, '{}'),
		       v.upcoming_event_count,
		       ts_rank(v.search_vector, to_tsquery('simple', $2)) + similarity(v.name, $1) AS score
		FROM venues v
		WHERE %s
		ORDER BY score DESC, v.name ASC
		LIMIT $3 OFFSET $4`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("venue search query: %w", err)
	}
	defer closeRows(rows, p.logger)

	var out []search.Row
	for rows.Next() {
		var r search.Row
		var tags pq.StringArray
		if err = rows.Scan(&r.ID, &r.Title, &r.Subtitle,
			&r.Meta.Neighborhood, &r.Meta.Category, &tags,
			&r.Meta.EventCount, &r.Score); err != nil {
			return nil, fmt.Errorf("scan venue row: %w", err)
		}
		r.Meta.Tags = tags
		out = append(out, r)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("venue search rows: %w", err)
	}
	return out, nil
}

// SearchOrganizers implements search.OrganizerProvider.
func (p *Postgres) SearchOrganizers(ctx context.Context, query string, f search.Filters, limit, offset int) ([]search.Row, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "organizers", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	tsquery := search.ToTSQuery(query)
	args := []any{query, tsquery, limit, offset}
	where := `(o.search_vector @@ to_tsquery('simple', $2) OR o.name % $1)`
	if f.Portal != "" {
		args = append(args, f.Portal)
		where += fmt.Sprintf(" AND o.portal_slug = $%d", len(args))
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT o.id, o.name, COALESCE(o.tagline, ''), o.follower_count,
		       ts_rank(o.search_vector, to_tsquery('simple', $2)) + similarity(o.name, $1) AS score
		FROM organizers o
		WHERE %s
		ORDER BY score DESC, o.name ASC
		LIMIT $3 OFFSET $4`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("organizer search query: %w", err)
	}
	defer closeRows(rows, p.logger)

	var out []search.Row
	for rows.Next() {
		var r search.Row
		if err = rows.Scan(&r.ID, &r.Title, &r.Subtitle, &r.Meta.FollowerCount, &r.Score); err != nil {
			return nil, fmt.Errorf("scan organizer row: %w", err)
		}
		out = append(out, r)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("organizer search rows: %w", err)
	}
	return out, nil
}

// LookupSeries implements search.SeriesProvider. Series have no ranking
// primitive, so a prefix match sorts ahead of a substring match. The
// event count populates metadata only; it never filters.
func (p *Postgres) LookupSeries(ctx context.Context, query, portal string, limit, offset int) ([]search.Row, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "series", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	args := []any{query, limit, offset}
	where := `s.name ILIKE '%' || $1 || '%'`
	if portal != "" {
		args = append(args, portal)
		where += fmt.Sprintf(" AND s.portal_slug = $%d", len(args))
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT s.id, s.name, COALESCE(s.cadence, ''),
		       (SELECT COUNT(*) FROM events e WHERE e.series_id = s.id AND e.starts_on >= CURRENT_DATE),
		       CASE WHEN s.name ILIKE $1 || '%%' THEN 1.0 ELSE 0.5 END AS score
		FROM series s
		WHERE %s
		ORDER BY score DESC, s.name ASC
		LIMIT $2 OFFSET $3`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("series lookup query: %w", err)
	}
	defer closeRows(rows, p.logger)

	var out []search.Row
	for rows.Next() {
		var r search.Row
		if err = rows.Scan(&r.ID, &r.Title, &r.Subtitle, &r.Meta.EventCount, &r.Score); err != nil {
			return nil, fmt.Errorf("scan series row: %w", err)
		}
		out = append(out, r)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("series lookup rows: %w", err)
	}
	return out, nil
}

// LookupLists implements search.ListProvider. Curator display names
// populate the subtitle; item counts populate metadata only.
func (p *Postgres) LookupLists(ctx context.Context, query, portal string, limit, offset int) ([]search.Row, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "lists", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	args := []any{query, limit, offset}
	where := `l.name ILIKE '%' || $1 || '%'`
	if portal != "" {
		args = append(args, portal)
		where += fmt.Sprintf(" AND l.portal_slug = $%d", len(args))
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT l.id, l.name, COALESCE(c.display_name, ''),
		       (SELECT COUNT(*) FROM list_items li WHERE li.list_id = l.id),
		       CASE WHEN l.name ILIKE $1 || '%%' THEN 1.0 ELSE 0.5 END AS score
		FROM lists l
		LEFT JOIN curators c ON c.id = l.curator_id
		WHERE %s
		ORDER BY score DESC, l.name ASC
		LIMIT $2 OFFSET $3`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list lookup query: %w", err)
	}
	defer closeRows(rows, p.logger)

	var out []search.Row
	for rows.Next() {
		var r search.Row
		if err = rows.Scan(&r.ID, &r.Title, &r.Subtitle, &r.Meta.ItemCount, &r.Score); err != nil {
			return nil, fmt.Errorf("scan list row: %w", err)
		}
		out = append(out, r)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("list lookup rows: %w", err)
	}
	return out, nil
}

// CountByKind implements search.FacetProvider with one count query per
// kind under the same predicates as the search queries, so totals are
// not undercounted by pagination.
func (p *Postgres) CountByKind(ctx context.Context, query string, kinds []search.Kind, f search.Filters) (map[search.Kind]int, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "facets", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	counts := make(map[search.Kind]int, len(kinds))
	for _, kind := range kinds {
		var n int
		n, err = p.countKind(ctx, kind, query, f)
		if err != nil {
			return nil, fmt.Errorf("facet count for %s: %w", kind, err)
		}
		counts[kind] = n
	}
	return counts, nil
}

func (p *Postgres) countKind(ctx context.Context, kind search.Kind, query string, f search.Filters) (int, error) {
	tsquery := search.ToTSQuery(query)

	var sqlText string
	args := []any{query, tsquery}
	switch kind {
	case search.KindEvent:
		where := `(e.search_vector @@ to_tsquery('simple', $2) OR e.title % $1)`
		where, args = appendFilterClauses(where, args, f, "e")
		sqlText = fmt.Sprintf(`SELECT COUNT(*) FROM events e WHERE %s`, where)
	case search.KindVenue:
		where := `(v.search_vector @@ to_tsquery('simple', $2) OR v.name % $1)`
		where, args = appendVenueFilterClauses(where, args, f)
		sqlText = fmt.Sprintf(`SELECT COUNT(*) FROM venues v WHERE %s`, where)
	case search.KindOrganizer:
		where := `(o.search_vector @@ to_tsquery('simple', $2) OR o.name % $1)`
		if f.Portal != "" {
			args = append(args, f.Portal)
			where += fmt.Sprintf(" AND o.portal_slug = $%d", len(args))
		}
		sqlText = fmt.Sprintf(`SELECT COUNT(*) FROM organizers o WHERE %s`, where)
	case search.KindSeries:
		args = []any{query}
		where := `s.name ILIKE '%' || $1 || '%'`
		if f.Portal != "" {
			args = append(args, f.Portal)
			where += fmt.Sprintf(" AND s.portal_slug = $%d", len(args))
		}
		sqlText = fmt.Sprintf(`SELECT COUNT(*) FROM series s WHERE %s`, where)
	case search.KindList:
		args = []any{query}
		where := `l.name ILIKE '%' || $1 || '%'`
		if f.Portal != "" {
			args = append(args, f.Portal)
			where += fmt.Sprintf(" AND l.portal_slug = $%d", len(args))
		}
		sqlText = fmt.Sprintf(`SELECT COUNT(*) FROM lists l WHERE %s`, where)
	default:
		return 0, fmt.Errorf("unknown kind %q", kind)
	}

	var n int
	if err := p.db.QueryRowContext(ctx, sqlText, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// SuggestSpellings implements search.SpellingProvider via pg_trgm
// similarity over the search lexicon.
func (p *Postgres) SuggestSpellings(ctx context.Context, query string, limit int) ([]string, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "search_lexicon", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	rows, err := p.db.QueryContext(ctx, `
		SELECT term
		FROM search_lexicon
		WHERE similarity(term, $1) > 0.3 AND lower(term) <> lower($1)
		ORDER BY similarity(term, $1) DESC
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("spelling suggestion query: %w", err)
	}
	defer closeRows(rows, p.logger)

	var out []string
	for rows.Next() {
		var term string
		if err = rows.Scan(&term); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		out = append(out, term)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("spelling suggestion rows: %w", err)
	}
	return out, nil
}

// appendFilterClauses adds event-table structural filters to a WHERE
// clause with positional args.
func appendFilterClauses(where string, args []any, f search.Filters, alias string) (string, []any) {
	if len(f.Categories) > 0 {
		args = append(args, pq.Array(f.Categories))
		where += fmt.Sprintf(" AND %s.category = ANY($%d)", alias, len(args))
	}
	if len(f.Neighborhoods) > 0 {
		args = append(args, pq.Array(f.Neighborhoods))
		where += fmt.Sprintf(" AND %s.neighborhood = ANY($%d)", alias, len(args))
	}
	if f.FreeOnly {
		where += fmt.Sprintf(" AND %s.is_free", alias)
	}
	if f.Date != search.DateAny {
		start, end := DateWindow(f.Date, time.Now())
		if !start.IsZero() {
			args = append(args, start.Format("2006-01-02"))
			where += fmt.Sprintf(" AND %s.starts_on >= $%d", alias, len(args))
			args = append(args, end.Format("2006-01-02"))
			where += fmt.Sprintf(" AND %s.starts_on <= $%d", alias, len(args))
		}
	}
	if f.Portal != "" {
		args = append(args, f.Portal)
		where += fmt.Sprintf(" AND %s.portal_slug = $%d", alias, len(args))
	}
	return where, args
}

// appendVenueFilterClauses adds venue-table structural filters. Venues
// carry no date or free columns; those predicates apply to events only.
func appendVenueFilterClauses(where string, args []any, f search.Filters) (string, []any) {
	if len(f.Categories) > 0 {
		args = append(args, pq.Array(f.Categories))
		where += fmt.Sprintf(" AND v.category = ANY($%d)", len(args))
	}
	if len(f.Neighborhoods) > 0 {
		args = append(args, pq.Array(f.Neighborhoods))
		where += fmt.Sprintf(" AND v.neighborhood = ANY($%d)", len(args))
	}
	if f.Portal != "" {
		args = append(args, f.Portal)
		where += fmt.Sprintf(" AND v.portal_slug = $%d", len(args))
	}
	return where, args
}

func closeRows(rows *sql.Rows, logger *slog.Logger) {
	if err := rows.Close(); err != nil {
		logger.Warn("failed to close rows", "error", err)
	}
}
