package adaptive

import (
	"fmt"
	"sync"

	"adaptivecache/internal/config"
	"adaptivecache/internal/logging"
	"adaptivecache/internal/metrics"
	"adaptivecache/internal/predictor"
)

// Registry is the process-wide mapping from cache name to controller.
// Controllers are created and started on first lookup and stopped on
// removal. Different caches are fully independent; the registry only
// serializes map access.
type Registry struct {
	mu          sync.Mutex
	controllers map[string]*Controller

	baseConfig *config.AdaptiveConfig
	logger     logging.Logger
	collector  *metrics.Collector

	// newPredictor builds the predictor for each new controller. Overridable
	// so tests and embedders can inject their own capability.
	newPredictor func() predictor.Predictor
}

// NewRegistry builds a registry. Nil arguments fall back to defaults; by
// default each controller gets its own statistical predictor.
func NewRegistry(baseConfig *config.AdaptiveConfig, logger logging.Logger, collector *metrics.Collector) *Registry {
	if baseConfig == nil {
		baseConfig = config.Default()
	}
	if logger == nil {
		logger = logging.NewNoop()
	}

	r := &Registry{
		controllers: make(map[string]*Controller),
		baseConfig:  baseConfig,
		logger:      logger,
		collector:   collector,
	}
	r.newPredictor = func() predictor.Predictor {
		return predictor.NewStatistical(logger)
	}
	return r
}

// SetPredictorFactory replaces the predictor constructor used for
// subsequently created controllers.
func (r *Registry) SetPredictorFactory(factory func() predictor.Predictor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if factory != nil {
		r.newPredictor = factory
	}
}

// GetOrCreate returns the controller for the named cache, constructing,
// starting, and registering a new one on first use. Overrides, when
// non-nil, are map-shaped config tweaks applied on top of the registry's
// base configuration.
func (r *Registry) GetOrCreate(name string, overrides map[string]any) (*Controller, error) {
	if name == "" {
		return nil, fmt.Errorf("cache name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ctrl, ok := r.controllers[name]; ok {
		return ctrl, nil
	}

	cfg := r.baseConfig
	if overrides != nil {
		merged, err := r.baseConfig.FromMap(overrides)
		if err != nil {
			return nil, fmt.Errorf("invalid config for cache %q: %w", name, err)
		}
		cfg = merged
	}

	ctrl := NewController(name, cfg, r.logger, r.newPredictor(), r.collector)
	ctrl.Start()
	r.controllers[name] = ctrl

	r.logger.Info("registered adaptive controller", "cache", name)
	return ctrl, nil
}

// Remove stops and evicts the named controller, reporting whether an entry
// existed.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	ctrl, ok := r.controllers[name]
	delete(r.controllers, name)
	r.mu.Unlock()

	if !ok {
		return false
	}

	ctrl.Stop()
	r.logger.Info("removed adaptive controller", "cache", name)
	return true
}

// ListAll returns a defensive copy of the name → controller mapping.
func (r *Registry) ListAll() map[string]*Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]*Controller, len(r.controllers))
	for name, ctrl := range r.controllers {
		out[name] = ctrl
	}
	return out
}

// StopAll stops every registered controller and clears the registry. Used at
// process shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	controllers := make([]*Controller, 0, len(r.controllers))
	for _, ctrl := range r.controllers {
		controllers = append(controllers, ctrl)
	}
	r.controllers = make(map[string]*Controller)
	r.mu.Unlock()

	for _, ctrl := range controllers {
		ctrl.Stop()
	}
}
