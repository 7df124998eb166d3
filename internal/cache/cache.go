// Package cache provides a Redis-backed response cache for unified
// search. Responses are immutable once built and identical portal
// queries repeat heavily, so a short-TTL cache in front of the
// aggregator absorbs most of the hot-query load.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/marqueehq/marquee/internal/search"
)

// DefaultTTL is the cache entry lifetime when none is configured.
// Short by design: facet counts drift as events are published.
const DefaultTTL = 2 * time.Minute

// ErrMiss is returned when no cached response exists for a key.
var ErrMiss = errors.New("cache miss")

// ResponseCache caches assembled search responses. Implementations
// must be fail-open: callers treat any error like a miss.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*search.Response, error)
	Set(ctx context.Context, key string, resp *search.Response) error
}

// Redis is a ResponseCache over a Redis client with CBOR-encoded
// values.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis creates a Redis response cache. A non-positive ttl falls
// back to DefaultTTL.
func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached response for key, or ErrMiss.
func (c *Redis) Get(ctx context.Context, key string) (*search.Response, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	var resp search.Response
	if err := cbor.Unmarshal(data, &resp); err != nil {
		// A corrupt entry is treated as a miss; it will be overwritten.
		c.logger.WarnContext(ctx, "discarding undecodable cache entry", "key", key, "error", err)
		return nil, ErrMiss
	}
	return &resp, nil
}

// Set stores the response under key with the configured TTL.
func (c *Redis) Set(ctx context.Context, key string, resp *search.Response) error {
	data, err := cbor.Marshal(resp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Key builds a deterministic cache key over every request field that
// affects the response, including the navigation context. Preference
// sets are part of the key since personalization changes scores.
func Key(q search.Query, sc search.Context) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(q.Text)))
	b.WriteByte('|')
	for _, k := range q.Kinds {
		b.WriteString(string(k))
		b.WriteByte(',')
	}
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(q.Limit))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(q.Offset))
	b.WriteByte('|')
	writeSorted(&b, q.Categories)
	writeSorted(&b, q.Subcategories)
	writeSorted(&b, q.Tags)
	writeSorted(&b, q.Neighborhoods)
	b.WriteString(string(q.Date))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(q.FreeOnly))
	b.WriteByte('|')
	b.WriteString(q.Portal)
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(q.UseIntent))
	b.WriteString(strconv.FormatBool(q.BoostExactMatches))
	b.WriteByte('|')
	b.WriteString(string(sc.ViewMode))
	b.WriteByte(':')
	b.WriteString(sc.SubView)
	if sc.Prefs != nil {
		writeSorted(&b, sc.Prefs.FollowedOrganizers)
		writeSorted(&b, sc.Prefs.FollowedVenues)
		writeSorted(&b, sc.Prefs.FavoriteCategories)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return "search:v1:" + hex.EncodeToString(sum[:16])
}

func writeSorted(b *strings.Builder, values []string) {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	for _, v := range sorted {
		b.WriteString(strings.ToLower(v))
		b.WriteByte(',')
	}
	b.WriteByte('|')
}
