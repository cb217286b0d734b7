package predictor

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptivecache/internal/types"
)

func sample(strategy types.Strategy, efficiency float64, hour int) types.PerformanceSnapshot {
	return types.PerformanceSnapshot{
		Timestamp:       time.Now(),
		CacheName:       "test",
		Strategy:        strategy,
		HitRate:         efficiency,
		CacheEfficiency: efficiency,
		HourOfDay:       hour,
		DayOfWeek:       2,
	}
}

func trainedPredictor(t *testing.T) *Statistical {
	t.Helper()
	p := NewStatistical(nil)
	// Frequency consistently outperforms recency in this synthetic history.
	for i := 0; i < 60; i++ {
		p.AddTrainingSample(sample(types.StrategyFrequency, 0.9, i%24))
		p.AddTrainingSample(sample(types.StrategyRecency, 0.5, i%24))
	}
	require.True(t, p.Train())
	return p
}

func TestUntrainedPredictorReportsUnavailable(t *testing.T) {
	p := NewStatistical(nil)

	_, ok := p.PredictEfficiency(types.FeatureVector{}, types.StrategyRecency)
	assert.False(t, ok)

	_, ok = p.SuggestBestStrategy(types.FeatureVector{})
	assert.False(t, ok)
}

func TestTrainRequiresMinimumSamples(t *testing.T) {
	p := NewStatistical(nil)

	for i := 0; i < defaultMinTrainSamples-1; i++ {
		p.AddTrainingSample(sample(types.StrategyRecency, 0.7, 10))
	}
	assert.False(t, p.Train())

	p.AddTrainingSample(sample(types.StrategyRecency, 0.7, 10))
	assert.True(t, p.Train())
}

func TestPredictEfficiencyBounds(t *testing.T) {
	p := trainedPredictor(t)

	for _, s := range []types.Strategy{types.StrategyFrequency, types.StrategyRecency} {
		got, ok := p.PredictEfficiency(types.FeatureVector{HourOfDay: 3, DayOfWeek: 2}, s)
		require.True(t, ok)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}

	// A strategy with no observations yields no prediction.
	_, ok := p.PredictEfficiency(types.FeatureVector{}, types.StrategyIntelligent)
	assert.False(t, ok)
}

func TestSuggestBestStrategyPicksObservedWinner(t *testing.T) {
	p := trainedPredictor(t)

	best, ok := p.SuggestBestStrategy(types.FeatureVector{HourOfDay: 5, DayOfWeek: 2})
	require.True(t, ok)
	assert.Equal(t, types.StrategyFrequency, best)
}

func TestPredictionsOrderStrategiesByObservedEfficiency(t *testing.T) {
	p := trainedPredictor(t)
	features := types.FeatureVector{HourOfDay: 8, DayOfWeek: 2}

	freq, ok := p.PredictEfficiency(features, types.StrategyFrequency)
	require.True(t, ok)
	rec, ok := p.PredictEfficiency(features, types.StrategyRecency)
	require.True(t, ok)

	assert.Greater(t, freq, rec)
}

func TestSampleBufferCapped(t *testing.T) {
	p := NewStatistical(nil)

	for i := 0; i < maxSamples; i++ {
		p.AddTrainingSample(sample(types.StrategyRecency, 0.5, i%24))
	}
	assert.Equal(t, keepSamples, p.SampleCount())

	// Further samples accumulate again until the next trim.
	p.AddTrainingSample(sample(types.StrategyRecency, 0.5, 0))
	assert.Equal(t, keepSamples+1, p.SampleCount())
}

func TestFailedTrainingKeepsPriorModel(t *testing.T) {
	p := trainedPredictor(t)

	before, ok := p.PredictEfficiency(types.FeatureVector{HourOfDay: 1, DayOfWeek: 2}, types.StrategyFrequency)
	require.True(t, ok)

	// Drain the buffer below the training minimum, then fail a training run.
	p.mu.Lock()
	p.samples = nil
	p.mu.Unlock()
	assert.False(t, p.Train())

	after, ok := p.PredictEfficiency(types.FeatureVector{HourOfDay: 1, DayOfWeek: 2}, types.StrategyFrequency)
	require.True(t, ok, "prior model must survive a failed training attempt")
	assert.Equal(t, before, after)
}

func TestPersistLoadRoundTrip(t *testing.T) {
	p := trainedPredictor(t)
	path := filepath.Join(t.TempDir(), "model.json")

	require.True(t, p.Persist(path))

	restored := NewStatistical(nil)
	require.True(t, restored.Load(path))

	features := types.FeatureVector{HourOfDay: 5, DayOfWeek: 2}
	want, ok := p.PredictEfficiency(features, types.StrategyFrequency)
	require.True(t, ok)
	got, ok := restored.PredictEfficiency(features, types.StrategyFrequency)
	require.True(t, ok)
	assert.InDelta(t, want, got, 1e-12)
}

func TestPersistLoadBestEffort(t *testing.T) {
	p := NewStatistical(nil)

	assert.False(t, p.Persist(filepath.Join(t.TempDir(), "untrained.json")), "untrained model cannot be persisted")
	assert.False(t, p.Load(filepath.Join(t.TempDir(), "missing.json")))
}

func TestNoopPredictor(t *testing.T) {
	n := NewNoop()

	n.AddTrainingSample(sample(types.StrategyRecency, 0.5, 0))
	assert.False(t, n.Train())

	_, ok := n.PredictEfficiency(types.FeatureVector{}, types.StrategyRecency)
	assert.False(t, ok)
	_, ok = n.SuggestBestStrategy(types.FeatureVector{})
	assert.False(t, ok)
	assert.False(t, n.Persist("x"))
	assert.False(t, n.Load("x"))
}
