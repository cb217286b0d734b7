// Package predictor defines the performance-predictor capability the
// controller depends on, plus two implementations: a no-op used when no
// predictor is wired in, and a statistical model trained from accumulated
// performance snapshots.
//
// Every method is best-effort by contract: prediction methods report
// availability through their boolean return, Train and Persist/Load report
// failure as false, and nothing here ever panics into the controller.
package predictor

import (
	"adaptivecache/internal/types"
)

// Predictor is the narrow contract between the controller and whatever model
// backs it. The controller must stay fully functional when every call
// reports unavailability.
type Predictor interface {
	// AddTrainingSample ingests one observation into the training buffer.
	AddTrainingSample(snapshot types.PerformanceSnapshot)

	// Train attempts to fit a model from accumulated samples. It returns
	// false, leaving any prior model untouched, when too few samples exist
	// or fitting fails.
	Train() bool

	// PredictEfficiency returns the predicted efficiency in [0,1] for
	// running the given strategy under the given conditions. The boolean is
	// false when no model is available or the strategy was never observed.
	PredictEfficiency(features types.FeatureVector, strategy types.Strategy) (float64, bool)

	// SuggestBestStrategy evaluates PredictEfficiency across the catalog
	// and returns the argmax, or false when no prediction is possible.
	SuggestBestStrategy(features types.FeatureVector) (types.Strategy, bool)

	// Persist and Load serialize the trained model. Both are best-effort.
	Persist(path string) bool
	Load(path string) bool
}

// Noop is the null predictor. The controller's control flow never branches
// on predictor presence; it calls this and handles unavailability uniformly.
type Noop struct{}

// NewNoop returns a predictor that reports unavailability on every call.
func NewNoop() *Noop { return &Noop{} }

func (n *Noop) AddTrainingSample(types.PerformanceSnapshot) {}
func (n *Noop) Train() bool                                 { return false }

func (n *Noop) PredictEfficiency(types.FeatureVector, types.Strategy) (float64, bool) {
	return 0, false
}

func (n *Noop) SuggestBestStrategy(types.FeatureVector) (types.Strategy, bool) {
	return "", false
}

func (n *Noop) Persist(string) bool { return false }
func (n *Noop) Load(string) bool    { return false }
