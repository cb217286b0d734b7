// Package types defines the shared data model for the adaptive cache
// strategy controller: the strategy catalog, performance snapshots, and the
// aggregate/statistics shapes exchanged between the controller, the tracker,
// and the performance predictor.
package types

import (
	"time"
)

// Strategy identifies a cache eviction/admission policy the controller can
// select. The set is fixed for the process lifetime.
type Strategy string

const (
	StrategyRecency        Strategy = "recency"
	StrategyFrequency      Strategy = "frequency"
	StrategyInsertionOrder Strategy = "insertion_order"
	StrategyAdaptive       Strategy = "adaptive"
	StrategyPredictive     Strategy = "predictive"
	StrategyIntelligent    Strategy = "intelligent"
)

// SafeStrategy is the designated fallback policy. Recency (plain LRU) is the
// conservative choice: it needs no model, no frequency state, and degrades
// gracefully under any workload.
const SafeStrategy = StrategyRecency

// Catalog returns the full strategy catalog in declaration order. The order
// is load-bearing: round-robin selection in learning mode and tie-breaking in
// best-performing lookups both iterate this slice.
func Catalog() []Strategy {
	return []Strategy{
		StrategyRecency,
		StrategyFrequency,
		StrategyInsertionOrder,
		StrategyAdaptive,
		StrategyPredictive,
		StrategyIntelligent,
	}
}

// IsValid reports whether s is a catalog member.
func (s Strategy) IsValid() bool {
	for _, c := range Catalog() {
		if s == c {
			return true
		}
	}
	return false
}

// CacheMetrics is the raw measurement the owning cache reports on each
// request. All fields describe the cache as a whole at reporting time.
type CacheMetrics struct {
	HitRate         float64 `json:"hit_rate"`
	AvgAccessTimeMs float64 `json:"avg_access_time_ms"`
	CacheEfficiency float64 `json:"cache_efficiency"`
	MemoryUsageMB   float64 `json:"memory_usage_mb"`
	TotalRequests   int64   `json:"total_requests"`
	DataSizeAvg     float64 `json:"data_size_avg"`
}

// AccessRecord is a single timestamped cache access, used to derive the
// request rate over the trailing minute.
type AccessRecord struct {
	Timestamp time.Time `json:"timestamp"`
}

// PerformanceSnapshot is one observation of cache performance paired with
// environmental context. Immutable once created; evicted oldest-first when
// the controller's bounded log exceeds its window.
type PerformanceSnapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	CacheName       string    `json:"cache_name"`
	Strategy        Strategy  `json:"strategy"`
	HitRate         float64   `json:"hit_rate"`
	AvgAccessTimeMs float64   `json:"avg_access_time_ms"`
	CacheEfficiency float64   `json:"cache_efficiency"`
	MemoryUsageMB   float64   `json:"memory_usage_mb"`
	TotalRequests   int64     `json:"total_requests"`
	HourOfDay       int       `json:"hour_of_day"`
	DayOfWeek       int       `json:"day_of_week"`
	RequestRate     float64   `json:"request_rate"`
	DataSizeAvg     float64   `json:"data_size_avg"`
}

// Features extracts the predictor feature vector from the snapshot.
func (s *PerformanceSnapshot) Features() FeatureVector {
	return FeatureVector{
		HitRate:         s.HitRate,
		AvgAccessTimeMs: s.AvgAccessTimeMs,
		MemoryUsageMB:   s.MemoryUsageMB,
		RequestRate:     s.RequestRate,
		DataSizeAvg:     s.DataSizeAvg,
		HourOfDay:       s.HourOfDay,
		DayOfWeek:       s.DayOfWeek,
	}
}

// FeatureVector is the environmental input to the performance predictor.
type FeatureVector struct {
	HitRate         float64 `json:"hit_rate"`
	AvgAccessTimeMs float64 `json:"avg_access_time_ms"`
	MemoryUsageMB   float64 `json:"memory_usage_mb"`
	RequestRate     float64 `json:"request_rate"`
	DataSizeAvg     float64 `json:"data_size_avg"`
	HourOfDay       int     `json:"hour_of_day"`
	DayOfWeek       int     `json:"day_of_week"`
}

// StrategyPerformance is the per-strategy rolling aggregate maintained by the
// tracker. AvgPerformance and StdPerformance are always recomputed from the
// current History contents.
type StrategyPerformance struct {
	Strategy       Strategy  `json:"strategy"`
	History        []float64 `json:"history"`
	AvgPerformance float64   `json:"avg_performance"`
	StdPerformance float64   `json:"std_performance"`
	UsageCount     int64     `json:"usage_count"`
	LastUsed       time.Time `json:"last_used"`
}

// Clone returns a deep copy safe to hand to callers.
func (sp *StrategyPerformance) Clone() *StrategyPerformance {
	cp := *sp
	cp.History = append([]float64(nil), sp.History...)
	return &cp
}

// Mode is the controller's high-level operating regime.
type Mode string

const (
	ModeLearning   Mode = "learning"
	ModeOptimizing Mode = "optimizing"
	ModeStable     Mode = "stable"
	ModeFallback   Mode = "fallback"
)

// Phase is the controller's position within its recurring training cycle,
// independent of Mode. Advanced only by the background loop.
type Phase string

const (
	PhaseInitialization Phase = "initialization"
	PhaseDataCollection Phase = "data_collection"
	PhaseModelTraining  Phase = "model_training"
	PhaseValidation     Phase = "validation"
	PhaseDeployment     Phase = "deployment"
)

// ControllerStatistics are the controller's monotonic counters.
type ControllerStatistics struct {
	SnapshotsRecorded   int64 `json:"snapshots_recorded"`
	Adaptations         int64 `json:"adaptations"`
	FallbackActivations int64 `json:"fallback_activations"`
	TrainingRuns        int64 `json:"training_runs"`
	TrainingFailures    int64 `json:"training_failures"`
	LoopIterations      int64 `json:"loop_iterations"`
}

// ControllerStatus is a read-only snapshot of controller state, safe to
// retain after the call returns.
type ControllerStatus struct {
	CacheName          string                            `json:"cache_name"`
	Mode               Mode                              `json:"mode"`
	Phase              Phase                             `json:"phase"`
	CurrentStrategy    Strategy                          `json:"current_strategy"`
	SampleCount        int                               `json:"sample_count"`
	RecentPerformance  float64                           `json:"recent_performance"`
	LastStrategySwitch time.Time                         `json:"last_strategy_switch"`
	Statistics         ControllerStatistics              `json:"statistics"`
	StrategyStats      map[Strategy]*StrategyPerformance `json:"strategy_stats"`
	Running            bool                              `json:"running"`
}

// Recommendation is an observability-facing advisory derived from the
// controller's current mode.
type Recommendation struct {
	ID                  string  `json:"id"`
	Description         string  `json:"description"`
	ImpactScore         float64 `json:"impact_score"`
	ImplementationCost  float64 `json:"implementation_cost"`
	ExpectedImprovement float64 `json:"expected_improvement"`
}
