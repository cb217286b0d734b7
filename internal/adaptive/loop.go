package adaptive

import (
	"context"
	"fmt"
	"time"

	"adaptivecache/internal/types"
)

const (
	// learningExitEfficiency is the recent-efficiency floor for leaving
	// learning mode once enough samples exist.
	learningExitEfficiency = 0.6

	// stableReentryMargin is subtracted from the stability threshold before
	// stable mode drops back to optimizing, so the two transitions do not
	// oscillate around a single boundary.
	stableReentryMargin = 0.1

	// fallbackRecoveryMargin is added to the emergency threshold before
	// fallback mode releases back to learning, for the same reason.
	fallbackRecoveryMargin = 0.1
)

// run is the background learning loop: one iteration per training interval,
// cancellation checked at the top of every iteration, and error-isolated
// iterations — a failing iteration logs, backs off, and the loop continues.
// Only Stop ends it.
func (c *Controller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.cfg.TrainingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.iterate(ctx); err != nil {
				c.logger.Error("learning loop iteration failed",
					"cache", c.cacheName,
					"error", err,
					"backoff", c.cfg.LoopBackoff)
				select {
				case <-ctx.Done():
					return
				case <-time.After(c.cfg.LoopBackoff):
				}
			}
		}
	}
}

// iterate performs one loop pass: advance the learning phase, then
// re-evaluate the operating mode. Panics are converted to errors at this
// boundary so a bad iteration can never kill the loop.
func (c *Controller) iterate(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("iteration panicked: %v", r)
		}
	}()

	c.advancePhase(ctx)

	if ctx.Err() != nil {
		return nil
	}

	c.evaluateMode()

	c.mu.Lock()
	c.stats.LoopIterations++
	c.mu.Unlock()
	c.collector.RecordLoopIteration(c.cacheName)
	return nil
}

// advancePhase executes the current phase's action and moves to the next
// phase per the cycle Initialization → DataCollection → ModelTraining →
// Validation → Deployment → DataCollection. Predictor work happens with the
// lock released.
func (c *Controller) advancePhase(ctx context.Context) {
	c.mu.Lock()
	phase := c.phase
	// Training readiness is judged on the cumulative count, not the bounded
	// log length, which is capped well below the training minimum.
	sampleCount := c.stats.SnapshotsRecorded
	var latest *types.PerformanceSnapshot
	if n := len(c.snapshots); n > 0 {
		cp := c.snapshots[n-1]
		latest = &cp
	}
	c.mu.Unlock()

	switch phase {
	case types.PhaseInitialization:
		c.setPhase(types.PhaseDataCollection)

	case types.PhaseDataCollection:
		if sampleCount >= int64(c.cfg.MinSamplesForTraining) {
			c.setPhase(types.PhaseModelTraining)
			return
		}
		c.logger.Debug("collecting performance data",
			"cache", c.cacheName,
			"samples", sampleCount,
			"needed", c.cfg.MinSamplesForTraining)

	case types.PhaseModelTraining:
		if ctx.Err() != nil {
			return
		}
		ok := c.predictor.Train()

		c.mu.Lock()
		c.stats.TrainingRuns++
		if !ok {
			c.stats.TrainingFailures++
		}
		c.mu.Unlock()

		c.collector.RecordTraining(c.cacheName, ok)
		if ok {
			c.logger.Info("predictor training succeeded",
				"cache", c.cacheName,
				"samples", sampleCount)
		} else {
			// Not fatal: the phase still advances and training is retried
			// on the next full cycle.
			c.logger.Warn("predictor training failed or skipped",
				"cache", c.cacheName,
				"samples", sampleCount)
		}
		c.setPhase(types.PhaseValidation)

	case types.PhaseValidation:
		if latest != nil {
			predicted, ok := c.predictor.PredictEfficiency(latest.Features(), latest.Strategy)
			if ok {
				c.logger.Info("model validation prediction",
					"cache", c.cacheName,
					"strategy", latest.Strategy,
					"predicted", predicted,
					"observed", latest.CacheEfficiency)
			} else {
				c.logger.Warn("model validation produced no prediction",
					"cache", c.cacheName,
					"strategy", latest.Strategy)
			}
		}
		c.setPhase(types.PhaseDeployment)

	case types.PhaseDeployment:
		// Marker phase: the trained model is already live in memory.
		c.setPhase(types.PhaseDataCollection)
	}
}

func (c *Controller) setPhase(next types.Phase) {
	c.mu.Lock()
	prev := c.phase
	c.phase = next
	c.mu.Unlock()

	if prev != next {
		c.logger.Debug("learning phase advanced",
			"cache", c.cacheName,
			"from", prev,
			"to", next)
	}
}

// evaluateMode re-derives the operating mode from recent performance,
// independent of the learning phase. Emergency checks take precedence over
// promotion checks.
func (c *Controller) evaluateMode() {
	c.mu.Lock()

	recent := c.recentEfficiencyLocked()
	samples := c.stats.SnapshotsRecorded
	prev := c.mode
	next := prev

	switch prev {
	case types.ModeLearning:
		if samples >= 2*int64(c.cfg.MinSamplesForTraining) && recent > learningExitEfficiency {
			next = types.ModeOptimizing
		}
	case types.ModeOptimizing:
		if recent < c.cfg.EmergencyFallbackThreshold {
			next = types.ModeFallback
		} else if recent > c.cfg.StabilityThreshold {
			next = types.ModeStable
		}
	case types.ModeStable:
		if recent < c.cfg.EmergencyFallbackThreshold {
			next = types.ModeFallback
		} else if recent < c.cfg.StabilityThreshold-stableReentryMargin {
			next = types.ModeOptimizing
		}
	case types.ModeFallback:
		if recent > c.cfg.EmergencyFallbackThreshold+fallbackRecoveryMargin {
			next = types.ModeLearning
		}
	}

	transitioned := next != prev
	if transitioned {
		c.mode = next
		if next == types.ModeFallback {
			c.stats.FallbackActivations++
		}
	}
	c.mu.Unlock()

	if transitioned {
		c.logger.Info("operating mode changed",
			"cache", c.cacheName,
			"from", prev,
			"to", next,
			"recent_efficiency", recent,
			"samples", samples)
		if next == types.ModeFallback {
			c.collector.RecordFallback(c.cacheName)
		}
	}

	c.collector.SetRecentEfficiency(c.cacheName, recent)
	c.collector.SetMode(c.cacheName, next)
}
