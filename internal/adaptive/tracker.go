package adaptive

import (
	"math"
	"sync"
	"time"

	"adaptivecache/internal/types"
)

// strategyHistoryLimit bounds the per-strategy efficiency history; the
// oldest score is evicted first once the limit is reached.
const strategyHistoryLimit = 100

// Tracker maintains per-strategy rolling statistics derived from snapshots
// attributed to the strategy that was active when each snapshot was taken.
type Tracker struct {
	mu   sync.RWMutex
	perf map[types.Strategy]*types.StrategyPerformance
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		perf: make(map[types.Strategy]*types.StrategyPerformance),
	}
}

// Update appends an efficiency score to the strategy's bounded history and
// recomputes its aggregates. Mean and standard deviation always reflect the
// current history contents, never a stale running value.
func (t *Tracker) Update(strategy types.Strategy, efficiency float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sp, ok := t.perf[strategy]
	if !ok {
		sp = &types.StrategyPerformance{Strategy: strategy}
		t.perf[strategy] = sp
	}

	sp.History = append(sp.History, efficiency)
	if len(sp.History) > strategyHistoryLimit {
		sp.History = sp.History[1:]
	}

	sp.AvgPerformance, sp.StdPerformance = meanStd(sp.History)
	sp.UsageCount++
	sp.LastUsed = time.Now()
}

// BestPerforming returns the strategy with the highest average performance
// among those used strictly more than minUsage times. Ties resolve to the
// earlier catalog entry; when nothing qualifies the safe strategy is
// returned.
func (t *Tracker) BestPerforming(minUsage int64) types.Strategy {
	t.mu.RLock()
	defer t.mu.RUnlock()

	best := types.SafeStrategy
	bestAvg := -1.0
	for _, s := range types.Catalog() {
		sp, ok := t.perf[s]
		if !ok || sp.UsageCount <= minUsage {
			continue
		}
		if sp.AvgPerformance > bestAvg {
			best = s
			bestAvg = sp.AvgPerformance
		}
	}
	return best
}

// Get returns a copy of the named strategy's aggregate, or nil when the
// strategy has never been updated.
func (t *Tracker) Get(strategy types.Strategy) *types.StrategyPerformance {
	t.mu.RLock()
	defer t.mu.RUnlock()

	sp, ok := t.perf[strategy]
	if !ok {
		return nil
	}
	return sp.Clone()
}

// Snapshot returns a deep copy of all per-strategy aggregates.
func (t *Tracker) Snapshot() map[types.Strategy]*types.StrategyPerformance {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[types.Strategy]*types.StrategyPerformance, len(t.perf))
	for s, sp := range t.perf {
		out[s] = sp.Clone()
	}
	return out
}

// meanStd computes the mean and population standard deviation of values.
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}
