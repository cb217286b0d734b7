package predictor

import (
	"encoding/json"
	"math"
	"os"
	"sync"
	"time"

	"adaptivecache/internal/logging"
	"adaptivecache/internal/types"
)

const (
	// Sample buffer bounds: once the buffer reaches maxSamples, only the
	// most recent keepSamples survive the trim.
	maxSamples  = 10000
	keepSamples = 5000

	// Minimum observations before Train will fit anything.
	defaultMinTrainSamples = 50

	// Shrinkage constant for bucket means: buckets with few observations
	// are pulled toward the strategy-wide mean.
	bucketShrinkage = 10.0
)

// Statistical predicts cache efficiency from bucketed aggregates of observed
// snapshots. Per strategy it maintains an overall mean plus hour-of-day and
// day-of-week bucket means; predictions blend the buckets, weighting each by
// how much evidence it carries. Cheap to train, deterministic, and good
// enough to rank strategies against each other, which is all the controller
// needs.
type Statistical struct {
	mu sync.RWMutex

	samples         []types.PerformanceSnapshot
	minTrainSamples int
	validationSplit float64

	model *fittedModel

	logger logging.Logger
}

// fittedModel is the trained state, rebuilt wholesale on every Train.
type fittedModel struct {
	GlobalMean    float64                                `json:"global_mean"`
	Strategies    map[types.Strategy]*strategyAggregates `json:"strategies"`
	SampleCount   int                                    `json:"sample_count"`
	ValidationMAE float64                                `json:"validation_mae"`
	TrainedAt     time.Time                              `json:"trained_at"`
}

type strategyAggregates struct {
	Mean      float64     `json:"mean"`
	Count     int         `json:"count"`
	HourMean  [24]float64 `json:"hour_mean"`
	HourCount [24]int     `json:"hour_count"`
	DowMean   [7]float64  `json:"dow_mean"`
	DowCount  [7]int      `json:"dow_count"`
}

// NewStatistical creates an untrained statistical predictor.
func NewStatistical(logger logging.Logger) *Statistical {
	if logger == nil {
		logger = logging.NewNoop()
	}
	return &Statistical{
		minTrainSamples: defaultMinTrainSamples,
		validationSplit: 0.2,
		logger:          logger.WithComponent("predictor"),
	}
}

// AddTrainingSample appends one observation, trimming the buffer to the most
// recent keepSamples once it reaches maxSamples.
func (p *Statistical) AddTrainingSample(snapshot types.PerformanceSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.samples = append(p.samples, snapshot)
	if len(p.samples) >= maxSamples {
		trimmed := make([]types.PerformanceSnapshot, keepSamples)
		copy(trimmed, p.samples[len(p.samples)-keepSamples:])
		p.samples = trimmed
	}
}

// SampleCount reports the current training buffer size.
func (p *Statistical) SampleCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.samples)
}

// Train fits a fresh model from the buffered samples. The trailing
// validationSplit fraction is held out to measure mean absolute error; the
// held-out samples still feed the final model so nothing is wasted. Returns
// false, leaving any prior model in place, when too few samples exist.
func (p *Statistical) Train() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.samples) < p.minTrainSamples {
		p.logger.Debug("skipping training, not enough samples",
			"have", len(p.samples), "need", p.minTrainSamples)
		return false
	}

	split := len(p.samples) - int(float64(len(p.samples))*p.validationSplit)
	candidate := fit(p.samples[:split])
	if candidate == nil {
		return false
	}

	// Score on the held-out tail, then refit on everything.
	mae := 0.0
	holdout := p.samples[split:]
	for i := range holdout {
		s := &holdout[i]
		pred, ok := candidate.predict(s.Features(), s.Strategy)
		if !ok {
			pred = candidate.GlobalMean
		}
		mae += math.Abs(pred - s.CacheEfficiency)
	}
	if len(holdout) > 0 {
		mae /= float64(len(holdout))
	}

	final := fit(p.samples)
	if final == nil {
		return false
	}
	final.ValidationMAE = mae
	p.model = final

	p.logger.Info("trained efficiency model",
		"samples", final.SampleCount,
		"strategies", len(final.Strategies),
		"validation_mae", mae)
	return true
}

func fit(samples []types.PerformanceSnapshot) *fittedModel {
	if len(samples) == 0 {
		return nil
	}

	m := &fittedModel{
		Strategies:  make(map[types.Strategy]*strategyAggregates),
		SampleCount: len(samples),
		TrainedAt:   time.Now(),
	}

	globalSum := 0.0
	for i := range samples {
		s := &samples[i]
		globalSum += s.CacheEfficiency

		agg, ok := m.Strategies[s.Strategy]
		if !ok {
			agg = &strategyAggregates{}
			m.Strategies[s.Strategy] = agg
		}

		// Running means keep the pass single and allocation-free.
		agg.Count++
		agg.Mean += (s.CacheEfficiency - agg.Mean) / float64(agg.Count)

		if h := s.HourOfDay; h >= 0 && h < 24 {
			agg.HourCount[h]++
			agg.HourMean[h] += (s.CacheEfficiency - agg.HourMean[h]) / float64(agg.HourCount[h])
		}
		if d := s.DayOfWeek; d >= 0 && d < 7 {
			agg.DowCount[d]++
			agg.DowMean[d] += (s.CacheEfficiency - agg.DowMean[d]) / float64(agg.DowCount[d])
		}
	}
	m.GlobalMean = globalSum / float64(len(samples))
	return m
}

// predict blends the strategy mean with its hour and day-of-week buckets.
// Bucket weights shrink toward zero when the bucket has little evidence, so
// sparse buckets cannot dominate the strategy-wide signal.
func (m *fittedModel) predict(features types.FeatureVector, strategy types.Strategy) (float64, bool) {
	agg, ok := m.Strategies[strategy]
	if !ok || agg.Count == 0 {
		return 0, false
	}

	pred := agg.Mean
	weight := 1.0

	if h := features.HourOfDay; h >= 0 && h < 24 && agg.HourCount[h] > 0 {
		w := float64(agg.HourCount[h]) / (float64(agg.HourCount[h]) + bucketShrinkage)
		pred += agg.HourMean[h] * w
		weight += w
	}
	if d := features.DayOfWeek; d >= 0 && d < 7 && agg.DowCount[d] > 0 {
		w := float64(agg.DowCount[d]) / (float64(agg.DowCount[d]) + bucketShrinkage)
		pred += agg.DowMean[d] * w
		weight += w
	}

	return clamp01(pred / weight), true
}

// PredictEfficiency returns the model's efficiency estimate for the strategy
// under the given conditions, or false when untrained or the strategy has no
// observations.
func (p *Statistical) PredictEfficiency(features types.FeatureVector, strategy types.Strategy) (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.model == nil {
		return 0, false
	}
	return p.model.predict(features, strategy)
}

// SuggestBestStrategy returns the catalog member with the highest predicted
// efficiency. Ties resolve to the earlier catalog entry.
func (p *Statistical) SuggestBestStrategy(features types.FeatureVector) (types.Strategy, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.model == nil {
		return "", false
	}

	var best types.Strategy
	bestScore := -1.0
	for _, s := range types.Catalog() {
		score, ok := p.model.predict(features, s)
		if ok && score > bestScore {
			best = s
			bestScore = score
		}
	}
	if bestScore < 0 {
		return "", false
	}
	return best, true
}

// Persist writes the trained model to path as JSON. Best-effort: returns
// false when untrained or on any I/O error.
func (p *Statistical) Persist(path string) bool {
	p.mu.RLock()
	model := p.model
	p.mu.RUnlock()

	if model == nil {
		return false
	}

	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		p.logger.Warn("failed to serialize model", "error", err)
		return false
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		p.logger.Warn("failed to persist model", "path", path, "error", err)
		return false
	}
	return true
}

// Load replaces the current model with one previously written by Persist.
// Best-effort: on failure the prior model is left untouched.
func (p *Statistical) Load(path string) bool {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied model path
	if err != nil {
		p.logger.Warn("failed to read model", "path", path, "error", err)
		return false
	}

	var model fittedModel
	if err := json.Unmarshal(data, &model); err != nil {
		p.logger.Warn("failed to parse model", "path", path, "error", err)
		return false
	}
	if model.Strategies == nil {
		return false
	}

	p.mu.Lock()
	p.model = &model
	p.mu.Unlock()
	return true
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
