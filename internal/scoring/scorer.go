// Package scoring estimates how complex a support query is. The estimate
// comes from an external oracle (a scoring service or an LLM); every backend
// failure degrades to a local heuristic so a broken scorer never blocks an
// assignment cycle.
package scoring

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Score bounds, fixed by the scorer contract: 1.0 is trivial, 5.0 is severe.
const (
	ScoreMin = 1.0
	ScoreMax = 5.0
)

// cacheLimit bounds the per-query score cache. Callers evict entries via
// Forget once a score is persisted; the cap is a backstop for queries whose
// persist never succeeds.
const cacheLimit = 1024

// Scorer produces a complexity score for a query description.
type Scorer interface {
	Score(ctx context.Context, description string) (float64, error)
}

// Adapter wraps a Scorer backend with a bounded timeout, a heuristic
// fallback, and a per-query cache so repeated scoring is stable.
type Adapter struct {
	backend Scorer
	timeout time.Duration
	logger  *slog.Logger

	onFallback func()

	mu    sync.RWMutex
	cache map[uuid.UUID]float64
}

func NewAdapter(backend Scorer, timeout time.Duration, logger *slog.Logger) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{
		backend: backend,
		timeout: timeout,
		logger:  logger,
		cache:   make(map[uuid.UUID]float64),
	}
}

// OnFallback registers a hook invoked whenever the backend fails and the
// heuristic takes over. Used for metrics.
func (a *Adapter) OnFallback(fn func()) {
	a.onFallback = fn
}

// ScoreQuery returns the complexity score for a query, caching by query id.
// It never returns an error: backend failures fall back to the heuristic.
func (a *Adapter) ScoreQuery(ctx context.Context, queryID uuid.UUID, description string) float64 {
	a.mu.RLock()
	if score, ok := a.cache[queryID]; ok {
		a.mu.RUnlock()
		return score
	}
	a.mu.RUnlock()

	score := a.score(ctx, description)

	a.mu.Lock()
	if len(a.cache) >= cacheLimit {
		for id := range a.cache {
			delete(a.cache, id)
			break
		}
	}
	a.cache[queryID] = score
	a.mu.Unlock()
	return score
}

// Forget drops the cached score for a query. Called once the score has been
// persisted (or the query has left routing) so the cache holds only in-flight
// queries.
func (a *Adapter) Forget(queryID uuid.UUID) {
	a.mu.Lock()
	delete(a.cache, queryID)
	a.mu.Unlock()
}

func (a *Adapter) score(ctx context.Context, description string) float64 {
	if a.backend != nil {
		scoreCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		score, err := a.backend.Score(scoreCtx, description)
		if err == nil {
			return Clamp(score)
		}
		a.logger.Warn("scorer backend failed, using heuristic fallback", "error", err)
		if a.onFallback != nil {
			a.onFallback()
		}
	}
	return Heuristic(description)
}

// Clamp bounds a score into [ScoreMin, ScoreMax].
func Clamp(score float64) float64 {
	if score < ScoreMin {
		return ScoreMin
	}
	if score > ScoreMax {
		return ScoreMax
	}
	return score
}
