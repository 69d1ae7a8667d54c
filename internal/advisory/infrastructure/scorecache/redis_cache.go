// Package scorecache adds a Redis read-through cache in front of an
// advisory scorer. Sub-scores change slowly relative to anchoring runs, so
// repeated runs for the same day reuse cached values instead of re-calling
// the scoring service.
package scorecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	anchoringDomain "github.com/anchora-app/anchora/internal/anchoring/domain"
	"github.com/anchora-app/anchora/internal/advisory/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long cached sub-scores stay valid.
const DefaultTTL = 15 * time.Minute

// CachedScorer decorates a scorer with a Redis read-through cache.
type CachedScorer struct {
	inner  domain.Scorer
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a cached scorer. A nil Redis client disables caching and
// passes every call through to the inner scorer.
func New(inner domain.Scorer, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedScorer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedScorer{inner: inner, client: client, ttl: ttl, logger: logger}
}

// ScorePattern returns the cached or freshly fetched pattern sub-score.
func (c *CachedScorer) ScorePattern(ctx context.Context, activity anchoringDomain.ActivityRequirement, slot domain.SlotContext) (float64, error) {
	return c.through(ctx, "pattern", activity, slot, func() (float64, error) {
		return c.inner.ScorePattern(ctx, activity, slot)
	})
}

// ScoreHabit returns the cached or freshly fetched habit sub-score.
func (c *CachedScorer) ScoreHabit(ctx context.Context, activity anchoringDomain.ActivityRequirement, slot domain.SlotContext) (float64, error) {
	return c.through(ctx, "habit", activity, slot, func() (float64, error) {
		return c.inner.ScoreHabit(ctx, activity, slot)
	})
}

// ScoreContext returns the cached or freshly fetched context sub-score.
func (c *CachedScorer) ScoreContext(ctx context.Context, activity anchoringDomain.ActivityRequirement, slot domain.SlotContext, nearby []anchoringDomain.BusyInterval) (float64, error) {
	return c.through(ctx, "context", activity, slot, func() (float64, error) {
		return c.inner.ScoreContext(ctx, activity, slot, nearby)
	})
}

func (c *CachedScorer) through(ctx context.Context, kind string, activity anchoringDomain.ActivityRequirement, slot domain.SlotContext, fetch func() (float64, error)) (float64, error) {
	if c.client == nil {
		return fetch()
	}

	key := cacheKey(kind, activity, slot)
	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		if score, parseErr := strconv.ParseFloat(cached, 64); parseErr == nil {
			return score, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("score cache read failed", "key", key, "error", err)
	}

	score, err := fetch()
	if err != nil {
		return 0, err
	}

	if setErr := c.client.Set(ctx, key, strconv.FormatFloat(score, 'f', -1, 64), c.ttl).Err(); setErr != nil {
		c.logger.Warn("score cache write failed", "key", key, "error", setErr)
	}
	return score, nil
}

// cacheKey buckets the slot by its start hour so minor capacity shifts
// within a run do not fragment the cache.
func cacheKey(kind string, activity anchoringDomain.ActivityRequirement, slot domain.SlotContext) string {
	bucket := slot.Start.UTC().Format("2006-01-02T15")
	return fmt.Sprintf("anchora:score:%s:%s:%s", kind, activity.ID, bucket)
}
