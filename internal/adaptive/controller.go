// Package adaptive implements the self-tuning cache strategy controller: a
// per-cache state machine that observes runtime performance, learns which
// eviction/admission strategy works best under the current workload, and
// recommends strategy switches with cooldown gating and a safety fallback.
package adaptive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"adaptivecache/internal/config"
	"adaptivecache/internal/logging"
	"adaptivecache/internal/metrics"
	"adaptivecache/internal/predictor"
	"adaptivecache/internal/types"
)

// recentWindow is the number of trailing snapshots averaged to form the
// "recent efficiency" signal driving mode transitions.
const recentWindow = 10

// bestPerformingMinUsage is the usage floor a strategy must exceed before
// its historical average is trusted for recommendations.
const bestPerformingMinUsage = 5

// Controller owns the adaptive lifecycle of a single named cache. All shared
// state is guarded by one mutex; predictor calls never run under it.
type Controller struct {
	cacheName string
	cfg       config.AdaptiveConfig
	logger    logging.Logger
	collector *metrics.Collector
	predictor predictor.Predictor

	mu              sync.Mutex
	mode            types.Mode
	phase           types.Phase
	currentStrategy types.Strategy
	lastSwitch      time.Time
	snapshots       []types.PerformanceSnapshot
	tracker         *Tracker
	stats           types.ControllerStatistics

	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewController builds a controller for the named cache. Nil arguments fall
// back to safe defaults: default config, no-op logger, no-op predictor, no
// metrics. The controller answers every public operation correctly before
// Start is ever called.
func NewController(cacheName string, cfg *config.AdaptiveConfig, logger logging.Logger, pred predictor.Predictor, collector *metrics.Collector) *Controller {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.NewNoop()
	}
	if pred == nil {
		pred = predictor.NewNoop()
	}

	return &Controller{
		cacheName:       cacheName,
		cfg:             *cfg,
		logger:          logger.WithComponent("adaptive-controller").WithTraceID(logging.GenerateTraceID()),
		collector:       collector,
		predictor:       pred,
		mode:            types.ModeLearning,
		phase:           types.PhaseInitialization,
		currentStrategy: types.SafeStrategy,
		// The cooldown window opens at construction, so a fresh controller
		// keeps recommending the safe strategy until it has had a chance to
		// observe the cache.
		lastSwitch: time.Now(),
		tracker:    NewTracker(),
	}
}

// CacheName returns the name of the cache this controller serves.
func (c *Controller) CacheName() string { return c.cacheName }

// RecordPerformance ingests one observation from the owning cache. The
// snapshot is attributed to the strategy active at ingestion time, appended
// to the bounded log (oldest evicted first), folded into the per-strategy
// tracker, and forwarded to the predictor's training buffer. Calls are
// applied in the order received.
func (c *Controller) RecordPerformance(m types.CacheMetrics, accessWindow []types.AccessRecord) {
	now := time.Now()

	snapshot := types.PerformanceSnapshot{
		Timestamp:       now,
		CacheName:       c.cacheName,
		HitRate:         clamp01(m.HitRate),
		AvgAccessTimeMs: nonNegative(m.AvgAccessTimeMs),
		CacheEfficiency: clamp01(m.CacheEfficiency),
		MemoryUsageMB:   nonNegative(m.MemoryUsageMB),
		TotalRequests:   m.TotalRequests,
		HourOfDay:       now.Hour(),
		DayOfWeek:       int(now.Weekday()),
		RequestRate:     requestRate(accessWindow, now),
		DataSizeAvg:     nonNegative(m.DataSizeAvg),
	}

	c.mu.Lock()
	snapshot.Strategy = c.currentStrategy
	c.snapshots = append(c.snapshots, snapshot)
	if len(c.snapshots) > c.cfg.PerformanceWindow {
		c.snapshots = c.snapshots[1:]
	}
	c.stats.SnapshotsRecorded++
	c.mu.Unlock()

	c.tracker.Update(snapshot.Strategy, snapshot.CacheEfficiency)

	// Predictor ingestion stays outside the lock so a slow predictor never
	// blocks readers.
	c.predictor.AddTrainingSample(snapshot)
	c.collector.RecordSnapshot(c.cacheName)
}

// RecommendedStrategy computes the strategy the cache should use next. It
// never mutates stored state: within the cooldown window since the last
// switch it returns the current strategy unchanged, otherwise it dispatches
// on the operating mode. Failures degrade to the current strategy.
func (c *Controller) RecommendedStrategy(current types.CacheMetrics) (result types.Strategy) {
	c.mu.Lock()
	mode := c.mode
	currentStrategy := c.currentStrategy
	inCooldown := time.Since(c.lastSwitch) < c.cfg.SwitchCooldown
	features := c.featuresLocked(current)
	c.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("recommendation failed, keeping current strategy", "panic", r)
			result = currentStrategy
		}
	}()

	if inCooldown {
		return currentStrategy
	}

	switch mode {
	case types.ModeLearning:
		// Round-robin through the catalog keyed by hour-of-day so the
		// tracker accumulates observations for every strategy.
		catalog := types.Catalog()
		return catalog[features.HourOfDay%len(catalog)]

	case types.ModeOptimizing:
		if suggested, ok := c.predictor.SuggestBestStrategy(features); ok && suggested.IsValid() {
			return suggested
		}
		return c.tracker.BestPerforming(bestPerformingMinUsage)

	case types.ModeStable:
		return c.tracker.BestPerforming(bestPerformingMinUsage)

	case types.ModeFallback:
		return types.SafeStrategy

	default:
		return currentStrategy
	}
}

// featuresLocked derives the predictor feature vector from live metrics plus
// clock context. The request rate comes from the most recent snapshot, since
// the caller's metrics carry no access window. Caller holds c.mu.
func (c *Controller) featuresLocked(m types.CacheMetrics) types.FeatureVector {
	now := time.Now()
	rate := 0.0
	if n := len(c.snapshots); n > 0 {
		rate = c.snapshots[n-1].RequestRate
	}
	return types.FeatureVector{
		HitRate:         clamp01(m.HitRate),
		AvgAccessTimeMs: nonNegative(m.AvgAccessTimeMs),
		MemoryUsageMB:   nonNegative(m.MemoryUsageMB),
		RequestRate:     rate,
		DataSizeAvg:     nonNegative(m.DataSizeAvg),
		HourOfDay:       now.Hour(),
		DayOfWeek:       int(now.Weekday()),
	}
}

// ApplyStrategy installs a new strategy. Applying the current strategy is a
// successful no-op; otherwise the switch is atomic, resets the cooldown
// timer, and bumps the adaptation counter. Returns false only when the
// requested strategy is not a catalog member.
func (c *Controller) ApplyStrategy(strategy types.Strategy) bool {
	if !strategy.IsValid() {
		c.logger.Error("refusing to apply unknown strategy", "strategy", strategy)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if strategy == c.currentStrategy {
		return true
	}

	previous := c.currentStrategy
	c.currentStrategy = strategy
	c.lastSwitch = time.Now()
	c.stats.Adaptations++

	c.logger.Info("strategy switched",
		"cache", c.cacheName,
		"from", previous,
		"to", strategy,
		"mode", c.mode)
	c.collector.RecordAdaptation(c.cacheName, strategy)
	return true
}

// Start launches the background learning loop. Idempotent: a second Start
// returns false and changes nothing.
func (c *Controller) Start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	go c.run(ctx, c.done)

	c.logger.Info("controller started",
		"cache", c.cacheName,
		"interval", c.cfg.TrainingInterval)
	return true
}

// Stop signals the loop to exit and waits up to the configured timeout for
// it to drain. If the timeout elapses the goroutine is abandoned; it exits
// on its next cancellation check rather than blocking the caller further.
// Idempotent: stopping a stopped controller returns false.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return false
	}
	c.running = false
	cancel := c.cancel
	done := c.done
	timeout := c.cfg.StopTimeout
	c.mu.Unlock()

	cancel()

	select {
	case <-done:
		c.logger.Info("controller stopped", "cache", c.cacheName)
	case <-time.After(timeout):
		c.logger.Warn("background loop did not drain in time, abandoning",
			"cache", c.cacheName,
			"timeout", timeout)
	}
	return true
}

// CurrentStrategy returns the installed strategy, bypassing the
// cooldown-gated recommendation path.
func (c *Controller) CurrentStrategy() types.Strategy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentStrategy
}

// Status returns a read-only deep copy of controller state, safe to call
// concurrently with everything else.
func (c *Controller) Status() *types.ControllerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	return &types.ControllerStatus{
		CacheName:          c.cacheName,
		Mode:               c.mode,
		Phase:              c.phase,
		CurrentStrategy:    c.currentStrategy,
		SampleCount:        len(c.snapshots),
		RecentPerformance:  c.recentEfficiencyLocked(),
		LastStrategySwitch: c.lastSwitch,
		Statistics:         c.stats,
		StrategyStats:      c.tracker.Snapshot(),
		Running:            c.running,
	}
}

// Recommendations derives observability-facing advisories from the current
// mode and tracker state.
func (c *Controller) Recommendations() []types.Recommendation {
	c.mu.Lock()
	mode := c.mode
	current := c.currentStrategy
	recent := c.recentEfficiencyLocked()
	samples := len(c.snapshots)
	c.mu.Unlock()

	best := c.tracker.BestPerforming(bestPerformingMinUsage)
	bestStats := c.tracker.Get(best)

	var recs []types.Recommendation
	switch mode {
	case types.ModeLearning:
		recs = append(recs, types.Recommendation{
			ID:                 uuid.New().String(),
			Description:        fmt.Sprintf("controller is in learning mode with %d samples; continue collecting data before expecting optimized recommendations", samples),
			ImpactScore:        0.3,
			ImplementationCost: 0.0,
		})

	case types.ModeOptimizing, types.ModeStable:
		if best != current && bestStats != nil && bestStats.AvgPerformance > recent {
			improvement := bestStats.AvgPerformance - recent
			recs = append(recs, types.Recommendation{
				ID:                  uuid.New().String(),
				Description:         fmt.Sprintf("switch from %s to %s for an estimated %.0f%% efficiency improvement", current, best, improvement*100),
				ImpactScore:         clamp01(improvement * 2),
				ImplementationCost:  0.2,
				ExpectedImprovement: improvement,
			})
		} else {
			recs = append(recs, types.Recommendation{
				ID:                 uuid.New().String(),
				Description:        fmt.Sprintf("current strategy %s is performing well (recent efficiency %.2f); no change recommended", current, recent),
				ImpactScore:        0.1,
				ImplementationCost: 0.0,
			})
		}

	case types.ModeFallback:
		recs = append(recs, types.Recommendation{
			ID:                 uuid.New().String(),
			Description:        fmt.Sprintf("fallback mode active (recent efficiency %.2f below emergency threshold %.2f); investigate cache load and upstream latency", recent, c.cfg.EmergencyFallbackThreshold),
			ImpactScore:        1.0,
			ImplementationCost: 0.8,
		})
	}
	return recs
}

// recentEfficiencyLocked averages cache efficiency over the trailing
// recentWindow snapshots; 0.0 when none exist. Caller holds c.mu.
func (c *Controller) recentEfficiencyLocked() float64 {
	n := len(c.snapshots)
	if n == 0 {
		return 0.0
	}

	start := n - recentWindow
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for i := start; i < n; i++ {
		sum += c.snapshots[i].CacheEfficiency
	}
	return sum / float64(n-start)
}

// requestRate counts accesses within the trailing 60 seconds of now and
// normalizes to a per-second rate.
func requestRate(accessWindow []types.AccessRecord, now time.Time) float64 {
	cutoff := now.Add(-60 * time.Second)
	count := 0
	for _, a := range accessWindow {
		if a.Timestamp.After(cutoff) {
			count++
		}
	}
	return float64(count) / 60.0
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
