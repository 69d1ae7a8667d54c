// Package application batches advisory score retrieval so the anchoring
// loop itself stays synchronous and deterministic.
package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	anchoringDomain "github.com/anchora-app/anchora/internal/anchoring/domain"
	"github.com/anchora-app/anchora/internal/advisory/domain"
	"github.com/google/uuid"
)

// DefaultParallelism bounds the prefetch worker pool.
const DefaultParallelism = 8

// DefaultScoreTimeout bounds the scorer calls for one pair.
const DefaultScoreTimeout = 5 * time.Second

// PairKey identifies one (activity, slot) pair in the prefetched score map.
type PairKey struct {
	ActivityID uuid.UUID
	SlotID     uuid.UUID
}

// Request names one pair whose advisory scores should be fetched.
type Request struct {
	Activity anchoringDomain.ActivityRequirement
	Slot     domain.SlotContext
	Nearby   []anchoringDomain.BusyInterval
}

// Prefetcher fetches advisory scores for a batch of candidate pairs with a
// bounded worker pool. Scorer failures degrade to zero sub-scores.
type Prefetcher struct {
	scorer      domain.Scorer
	parallelism int
	timeout     time.Duration
	logger      *slog.Logger
}

// NewPrefetcher creates a prefetcher. A nil scorer is valid and yields
// all-zero score sets.
func NewPrefetcher(scorer domain.Scorer, parallelism int, timeout time.Duration, logger *slog.Logger) *Prefetcher {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	if timeout <= 0 {
		timeout = DefaultScoreTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prefetcher{
		scorer:      scorer,
		parallelism: parallelism,
		timeout:     timeout,
		logger:      logger,
	}
}

// FetchAll returns a score set for every requested pair. Every key in the
// result is present even when all three scorers fail; missing sub-scores
// are zero.
func (p *Prefetcher) FetchAll(ctx context.Context, requests []Request) map[PairKey]domain.ScoreSet {
	results := make(map[PairKey]domain.ScoreSet, len(requests))
	if len(requests) == 0 {
		return results
	}

	if p.scorer == nil {
		for _, req := range requests {
			results[PairKey{ActivityID: req.Activity.ID, SlotID: req.Slot.SlotID}] = domain.ScoreSet{}
		}
		return results
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.parallelism)

	for _, req := range requests {
		wg.Add(1)
		sem <- struct{}{}
		go func(req Request) {
			defer wg.Done()
			defer func() { <-sem }()

			scores := p.fetchOne(ctx, req)

			mu.Lock()
			results[PairKey{ActivityID: req.Activity.ID, SlotID: req.Slot.SlotID}] = scores
			mu.Unlock()
		}(req)
	}
	wg.Wait()

	return results
}

func (p *Prefetcher) fetchOne(ctx context.Context, req Request) domain.ScoreSet {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var scores domain.ScoreSet

	if pattern, err := p.scorer.ScorePattern(ctx, req.Activity, req.Slot); err != nil {
		p.logWarn("pattern", req, err)
	} else {
		scores.Pattern = pattern
	}

	if habit, err := p.scorer.ScoreHabit(ctx, req.Activity, req.Slot); err != nil {
		p.logWarn("habit", req, err)
	} else {
		scores.Habit = habit
	}

	if contextScore, err := p.scorer.ScoreContext(ctx, req.Activity, req.Slot, req.Nearby); err != nil {
		p.logWarn("context", req, err)
	} else {
		scores.Context = contextScore
	}

	return scores.Clamp()
}

func (p *Prefetcher) logWarn(scorer string, req Request, err error) {
	p.logger.Warn("advisory scorer unavailable, using zero sub-score",
		"scorer", scorer,
		"activity_id", req.Activity.ID,
		"slot_id", req.Slot.SlotID,
		"error", err,
	)
}
