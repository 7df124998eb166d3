// Package api provides the HTTP handlers and standardized error
// handling for the search API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/marqueehq/marquee/internal/cache"
	"github.com/marqueehq/marquee/internal/middleware"
	"github.com/marqueehq/marquee/internal/search"
)

// MaxLimit caps the requested page size.
const MaxLimit = 100

// SearchHandlers serves the unified search endpoints.
type SearchHandlers struct {
	svc     *search.Service
	cache   cache.ResponseCache
	metrics *middleware.Metrics
	logger  *slog.Logger

	// Feature-toggle defaults from configuration; requests may disable
	// them per call but never force them on when globally off.
	intentAnalysis   bool
	exactMatchBoosts bool
}

// SearchHandlersConfig configures the search handlers. Cache and
// Metrics are optional.
type SearchHandlersConfig struct {
	Service          *search.Service
	Cache            cache.ResponseCache
	Metrics          *middleware.Metrics
	Logger           *slog.Logger
	IntentAnalysis   bool
	ExactMatchBoosts bool
}

// NewSearchHandlers creates the search handler set.
func NewSearchHandlers(cfg SearchHandlersConfig) *SearchHandlers {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchHandlers{
		svc:              cfg.Service,
		cache:            cfg.Cache,
		metrics:          cfg.Metrics,
		logger:           logger,
		intentAnalysis:   cfg.IntentAnalysis,
		exactMatchBoosts: cfg.ExactMatchBoosts,
	}
}

// Search handles GET /search.
//
// Query parameters:
//   - q: search text (required; under 2 chars returns an empty result set)
//   - types: comma-separated entity kinds (default: all)
//   - limit, offset: pagination (limit capped at 100)
//   - category, subcategory, tag, neighborhood: repeatable filters
//   - date: named window (today, tonight, tomorrow, weekend, week)
//   - free: only free events when true
//   - portal: tenant scope id
//   - view, subview: navigation context for contextual boosts
//   - followed_organizers, followed_venues, favorite_categories:
//     personalization inputs
//   - intent: set to false to disable intent analysis for this request
//   - exact_boost: set to false to disable exact-match boosting for
//     this request
func (h *SearchHandlers) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	params := r.URL.Query()

	q, sc, errCode, errMsg := h.parseSearchRequest(params)
	if errCode != "" {
		writeBadRequest(w, r, errCode, errMsg)
		return
	}

	if h.metrics != nil {
		intent := search.IntentGeneral
		if q.UseIntent {
			intent = search.Classify(q.Text).Kind
		}
		h.metrics.IncSearchRequests(string(intent))
	}

	if h.cache != nil {
		key := cache.Key(q, sc)
		cached, err := h.cache.Get(r.Context(), key)
		switch {
		case err == nil:
			if h.metrics != nil {
				h.metrics.IncSearchCacheEvent("hit")
			}
			writeJSON(w, r, http.StatusOK, cached)
			return
		case errors.Is(err, cache.ErrMiss):
			if h.metrics != nil {
				h.metrics.IncSearchCacheEvent("miss")
			}
		default:
			// Cache trouble never fails a search.
			if h.metrics != nil {
				h.metrics.IncSearchCacheEvent("error")
			}
			h.logger.WarnContext(r.Context(), "response cache lookup failed", "error", err)
		}
	}

	resp, err := h.svc.Search(r.Context(), q, sc)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "search failed", "query", q.Text, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "search failed")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), cache.Key(q, sc), resp); err != nil {
			h.logger.WarnContext(r.Context(), "response cache store failed", "error", err)
		}
	}

	writeJSON(w, r, http.StatusOK, resp)
}

// QuickActionsResponse wraps the quick actions list.
type QuickActionsResponse struct {
	Actions []search.QuickAction `json:"actions"`
}

// QuickActions handles GET /search/actions. Detection is purely
// lexical, so the endpoint is cheap enough to hit on every keystroke.
func (h *SearchHandlers) QuickActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	params := r.URL.Query()
	query := params.Get("q")
	portal := params.Get("portal")

	actions := search.DetectQuickActions(query, portal)
	writeJSON(w, r, http.StatusOK, QuickActionsResponse{Actions: actions})
}

// SuggestionsResponse wraps the spelling suggestions list.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// Suggestions handles GET /search/suggestions.
func (h *SearchHandlers) Suggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	suggestions := h.svc.Suggest(r.Context(), r.URL.Query().Get("q"))
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, r, http.StatusOK, SuggestionsResponse{Suggestions: suggestions})
}

// parseSearchRequest maps query parameters onto the search inputs.
// Returns a non-empty error code on validation failure.
func (h *SearchHandlers) parseSearchRequest(params url.Values) (search.Query, search.Context, string, string) {
	var q search.Query
	var sc search.Context

	q.Text = params.Get("q")
	q.Portal = params.Get("portal")
	sc.Portal = q.Portal

	for _, raw := range splitParam(params, "types") {
		kind := search.Kind(strings.ToLower(raw))
		if !search.ValidKind(kind) {
			return q, sc, ErrCodeInvalidKind, "unknown entity kind: " + raw
		}
		q.Kinds = append(q.Kinds, kind)
	}

	limit, err := parseIntParam(params, "limit", search.DefaultLimit)
	if err != nil {
		return q, sc, ErrCodeValidation, "limit must be an integer"
	}
	if limit < 0 {
		return q, sc, ErrCodeValidation, "limit must not be negative"
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	q.Limit = limit

	offset, err := parseIntParam(params, "offset", 0)
	if err != nil || offset < 0 {
		return q, sc, ErrCodeValidation, "offset must be a non-negative integer"
	}
	q.Offset = offset

	q.Categories = splitParam(params, "category")
	q.Subcategories = splitParam(params, "subcategory")
	q.Tags = splitParam(params, "tag")
	q.Neighborhoods = splitParam(params, "neighborhood")

	switch date := search.DateFilter(strings.ToLower(params.Get("date"))); date {
	case search.DateAny, search.DateToday, search.DateTonight, search.DateTomorrow, search.DateWeekend, search.DateWeek:
		q.Date = date
	default:
		return q, sc, ErrCodeInvalidDateFilter, "unknown date filter: " + params.Get("date")
	}

	q.FreeOnly = parseBoolParam(params, "free", false)

	switch view := search.ViewMode(strings.ToLower(params.Get("view"))); view {
	case "", search.ViewExplore:
		sc.ViewMode = search.ViewExplore
	case search.ViewMap, search.ViewCalendar:
		sc.ViewMode = view
	default:
		return q, sc, ErrCodeInvalidView, "unknown view mode: " + params.Get("view")
	}
	sc.SubView = strings.ToLower(params.Get("subview"))

	followedOrganizers := splitParam(params, "followed_organizers")
	followedVenues := splitParam(params, "followed_venues")
	favoriteCategories := splitParam(params, "favorite_categories")
	if len(followedOrganizers) > 0 || len(followedVenues) > 0 || len(favoriteCategories) > 0 {
		sc.Prefs = &search.Preferences{
			FollowedOrganizers: followedOrganizers,
			FollowedVenues:     followedVenues,
			FavoriteCategories: favoriteCategories,
		}
	}

	// Requests can opt out of the global toggles, never force them on.
	q.UseIntent = h.intentAnalysis && parseBoolParam(params, "intent", true)
	q.BoostExactMatches = h.exactMatchBoosts && parseBoolParam(params, "exact_boost", true)

	return q, sc, "", ""
}

// splitParam collects a repeatable parameter, additionally splitting
// each occurrence on commas. Empty entries are dropped.
func splitParam(params url.Values, key string) []string {
	var out []string
	for _, raw := range params[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseIntParam(params url.Values, key string, def int) (int, error) {
	raw := params.Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func parseBoolParam(params url.Values, key string, def bool) bool {
	switch strings.ToLower(params.Get(key)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}
