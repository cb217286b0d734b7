// Package metrics exposes Prometheus instrumentation for the adaptive cache
// strategy controller. The controller performs no network I/O itself; the
// embedding process mounts the returned registry on its own /metrics
// endpoint if it wants scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"adaptivecache/internal/types"
)

// Collector aggregates controller metrics. A nil *Collector is valid and
// records nothing, so instrumentation stays optional at every call site.
type Collector struct {
	registry *prometheus.Registry

	snapshotsTotal      *prometheus.CounterVec
	adaptationsTotal    *prometheus.CounterVec
	fallbacksTotal      *prometheus.CounterVec
	trainingRunsTotal   *prometheus.CounterVec
	loopIterationsTotal *prometheus.CounterVec

	recentEfficiency *prometheus.GaugeVec
	currentMode      *prometheus.GaugeVec
}

// NewCollector builds a collector backed by its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		snapshotsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adaptivecache",
			Name:      "snapshots_total",
			Help:      "Performance snapshots recorded per cache.",
		}, []string{"cache"}),
		adaptationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adaptivecache",
			Name:      "adaptations_total",
			Help:      "Strategy switches applied per cache.",
		}, []string{"cache", "strategy"}),
		fallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adaptivecache",
			Name:      "fallback_activations_total",
			Help:      "Entries into fallback mode per cache.",
		}, []string{"cache"}),
		trainingRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adaptivecache",
			Name:      "training_runs_total",
			Help:      "Predictor training attempts per cache and outcome.",
		}, []string{"cache", "outcome"}),
		loopIterationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adaptivecache",
			Name:      "loop_iterations_total",
			Help:      "Background learning loop iterations per cache.",
		}, []string{"cache"}),
		recentEfficiency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "adaptivecache",
			Name:      "recent_efficiency",
			Help:      "Mean cache efficiency over the trailing snapshot window.",
		}, []string{"cache"}),
		currentMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "adaptivecache",
			Name:      "mode",
			Help:      "Current operating mode per cache (1 for active, 0 otherwise).",
		}, []string{"cache", "mode"}),
	}

	c.registry.MustRegister(
		c.snapshotsTotal,
		c.adaptationsTotal,
		c.fallbacksTotal,
		c.trainingRunsTotal,
		c.loopIterationsTotal,
		c.recentEfficiency,
		c.currentMode,
	)
	return c
}

// Registry returns the Prometheus registry for embedding in a scrape
// endpoint.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordSnapshot counts one recorded performance snapshot.
func (c *Collector) RecordSnapshot(cache string) {
	if c == nil {
		return
	}
	c.snapshotsTotal.WithLabelValues(cache).Inc()
}

// RecordAdaptation counts one applied strategy switch.
func (c *Collector) RecordAdaptation(cache string, strategy types.Strategy) {
	if c == nil {
		return
	}
	c.adaptationsTotal.WithLabelValues(cache, string(strategy)).Inc()
}

// RecordFallback counts one entry into fallback mode.
func (c *Collector) RecordFallback(cache string) {
	if c == nil {
		return
	}
	c.fallbacksTotal.WithLabelValues(cache).Inc()
}

// RecordTraining counts one predictor training attempt.
func (c *Collector) RecordTraining(cache string, success bool) {
	if c == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.trainingRunsTotal.WithLabelValues(cache, outcome).Inc()
}

// RecordLoopIteration counts one background loop iteration.
func (c *Collector) RecordLoopIteration(cache string) {
	if c == nil {
		return
	}
	c.loopIterationsTotal.WithLabelValues(cache).Inc()
}

// SetRecentEfficiency publishes the trailing-window efficiency.
func (c *Collector) SetRecentEfficiency(cache string, value float64) {
	if c == nil {
		return
	}
	c.recentEfficiency.WithLabelValues(cache).Set(value)
}

// SetMode publishes the current operating mode as a one-hot gauge family.
func (c *Collector) SetMode(cache string, mode types.Mode) {
	if c == nil {
		return
	}
	for _, m := range []types.Mode{types.ModeLearning, types.ModeOptimizing, types.ModeStable, types.ModeFallback} {
		v := 0.0
		if m == mode {
			v = 1.0
		}
		c.currentMode.WithLabelValues(cache, string(m)).Set(v)
	}
}
