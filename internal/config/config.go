// Package config holds the tunables of the adaptive cache strategy
// controller. The configuration is resolved once, at controller construction,
// through a fixed precedence chain: defaults, then an optional YAML file,
// then environment variables, then explicit per-cache overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// AdaptiveConfig is the immutable set of controller tunables. A controller
// copies the config at construction; later mutation of the source value has
// no effect on a running controller.
type AdaptiveConfig struct {
	// Learning behaviour.
	LearningRate          float64       `yaml:"learning_rate" mapstructure:"learning_rate"`
	MinSamplesForTraining int           `yaml:"min_samples_for_training" mapstructure:"min_samples_for_training"`
	TrainingInterval      time.Duration `yaml:"training_interval" mapstructure:"training_interval"`
	ValidationSplit       float64       `yaml:"validation_split" mapstructure:"validation_split"`
	MinImprovement        float64       `yaml:"min_improvement" mapstructure:"min_improvement"`

	// Observation window and switching behaviour.
	PerformanceWindow       int           `yaml:"performance_window" mapstructure:"performance_window"`
	StabilityThreshold      float64       `yaml:"stability_threshold" mapstructure:"stability_threshold"`
	SwitchCooldown          time.Duration `yaml:"switch_cooldown" mapstructure:"switch_cooldown"`
	MaxConcurrentStrategies int           `yaml:"max_concurrent_strategies" mapstructure:"max_concurrent_strategies"`

	// Safety rails.
	EmergencyFallbackThreshold float64 `yaml:"emergency_fallback_threshold" mapstructure:"emergency_fallback_threshold"`
	MaxDegradation             float64 `yaml:"max_degradation" mapstructure:"max_degradation"`

	// Background loop behaviour.
	LoopBackoff time.Duration `yaml:"loop_backoff" mapstructure:"loop_backoff"`
	StopTimeout time.Duration `yaml:"stop_timeout" mapstructure:"stop_timeout"`
}

// Default returns the baseline configuration.
func Default() *AdaptiveConfig {
	return &AdaptiveConfig{
		LearningRate:               0.01,
		MinSamplesForTraining:      100,
		TrainingInterval:           5 * time.Minute,
		ValidationSplit:            0.2,
		MinImprovement:             0.05,
		PerformanceWindow:          50,
		StabilityThreshold:         0.95,
		SwitchCooldown:             30 * time.Minute,
		MaxConcurrentStrategies:    3,
		EmergencyFallbackThreshold: 0.5,
		MaxDegradation:             0.2,
		LoopBackoff:                60 * time.Second,
		StopTimeout:                5 * time.Second,
	}
}

// Load resolves the full precedence chain: defaults, then the YAML file at
// path (skipped when path is empty), then ADAPTIVE_CACHE_* environment
// variables. The result is validated before being returned.
func Load(path string) (*AdaptiveConfig, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AdaptiveConfig) loadFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// FromMap applies map-shaped overrides (e.g. per-cache settings handed to the
// registry) on top of the receiver and returns the merged copy. Unknown keys
// are rejected so typos fail loudly.
func (c *AdaptiveConfig) FromMap(overrides map[string]any) (*AdaptiveConfig, error) {
	merged := *c

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &merged,
		ErrorUnused: true,
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build override decoder: %w", err)
	}
	if err := decoder.Decode(overrides); err != nil {
		return nil, fmt.Errorf("invalid config overrides: %w", err)
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Validate checks internal consistency of the tunables.
func (c *AdaptiveConfig) Validate() error {
	if c.MinSamplesForTraining <= 0 {
		return fmt.Errorf("min_samples_for_training must be positive, got %d", c.MinSamplesForTraining)
	}
	if c.PerformanceWindow <= 0 {
		return fmt.Errorf("performance_window must be positive, got %d", c.PerformanceWindow)
	}
	if c.StabilityThreshold <= 0 || c.StabilityThreshold > 1 {
		return fmt.Errorf("stability_threshold must be in (0,1], got %g", c.StabilityThreshold)
	}
	if c.EmergencyFallbackThreshold < 0 || c.EmergencyFallbackThreshold >= c.StabilityThreshold {
		return fmt.Errorf("emergency_fallback_threshold must be in [0, stability_threshold), got %g", c.EmergencyFallbackThreshold)
	}
	if c.SwitchCooldown < 0 {
		return fmt.Errorf("switch_cooldown must not be negative, got %s", c.SwitchCooldown)
	}
	if c.TrainingInterval <= 0 {
		return fmt.Errorf("training_interval must be positive, got %s", c.TrainingInterval)
	}
	if c.ValidationSplit < 0 || c.ValidationSplit >= 1 {
		return fmt.Errorf("validation_split must be in [0,1), got %g", c.ValidationSplit)
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("stop_timeout must be positive, got %s", c.StopTimeout)
	}
	return nil
}

// applyEnv overlays ADAPTIVE_CACHE_* environment variables.
func (c *AdaptiveConfig) applyEnv() {
	c.LearningRate = getEnvFloat("ADAPTIVE_CACHE_LEARNING_RATE", c.LearningRate)
	c.MinSamplesForTraining = getEnvInt("ADAPTIVE_CACHE_MIN_SAMPLES_FOR_TRAINING", c.MinSamplesForTraining)
	c.TrainingInterval = getEnvDuration("ADAPTIVE_CACHE_TRAINING_INTERVAL", c.TrainingInterval)
	c.ValidationSplit = getEnvFloat("ADAPTIVE_CACHE_VALIDATION_SPLIT", c.ValidationSplit)
	c.MinImprovement = getEnvFloat("ADAPTIVE_CACHE_MIN_IMPROVEMENT", c.MinImprovement)
	c.PerformanceWindow = getEnvInt("ADAPTIVE_CACHE_PERFORMANCE_WINDOW", c.PerformanceWindow)
	c.StabilityThreshold = getEnvFloat("ADAPTIVE_CACHE_STABILITY_THRESHOLD", c.StabilityThreshold)
	c.SwitchCooldown = getEnvDuration("ADAPTIVE_CACHE_SWITCH_COOLDOWN", c.SwitchCooldown)
	c.MaxConcurrentStrategies = getEnvInt("ADAPTIVE_CACHE_MAX_CONCURRENT_STRATEGIES", c.MaxConcurrentStrategies)
	c.EmergencyFallbackThreshold = getEnvFloat("ADAPTIVE_CACHE_EMERGENCY_FALLBACK_THRESHOLD", c.EmergencyFallbackThreshold)
	c.MaxDegradation = getEnvFloat("ADAPTIVE_CACHE_MAX_DEGRADATION", c.MaxDegradation)
	c.LoopBackoff = getEnvDuration("ADAPTIVE_CACHE_LOOP_BACKOFF", c.LoopBackoff)
	c.StopTimeout = getEnvDuration("ADAPTIVE_CACHE_STOP_TIMEOUT", c.StopTimeout)
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultValue
}
