package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptivecache/internal/types"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()

	c.RecordSnapshot("users")
	c.RecordSnapshot("users")
	c.RecordAdaptation("users", types.StrategyFrequency)
	c.RecordFallback("users")
	c.RecordTraining("users", true)
	c.RecordTraining("users", false)
	c.RecordLoopIteration("users")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.snapshotsTotal.WithLabelValues("users")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.adaptationsTotal.WithLabelValues("users", "frequency")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fallbacksTotal.WithLabelValues("users")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.trainingRunsTotal.WithLabelValues("users", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.trainingRunsTotal.WithLabelValues("users", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.loopIterationsTotal.WithLabelValues("users")))
}

func TestCollectorGauges(t *testing.T) {
	c := NewCollector()

	c.SetRecentEfficiency("users", 0.87)
	assert.Equal(t, 0.87, testutil.ToFloat64(c.recentEfficiency.WithLabelValues("users")))

	c.SetMode("users", types.ModeStable)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.currentMode.WithLabelValues("users", "stable")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.currentMode.WithLabelValues("users", "learning")))

	c.SetMode("users", types.ModeFallback)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.currentMode.WithLabelValues("users", "stable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.currentMode.WithLabelValues("users", "fallback")))
}

func TestNilCollectorIsInert(t *testing.T) {
	var c *Collector

	require.Nil(t, c.Registry())
	c.RecordSnapshot("x")
	c.RecordAdaptation("x", types.StrategyRecency)
	c.RecordFallback("x")
	c.RecordTraining("x", true)
	c.RecordLoopIteration("x")
	c.SetRecentEfficiency("x", 1)
	c.SetMode("x", types.ModeLearning)
}

func TestRegistryGathers(t *testing.T) {
	c := NewCollector()
	c.RecordSnapshot("users")

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
