// Package config loads chainwatch configuration from YAML files and
// CHAINWATCH_* environment overrides, and builds ensembles from it.
package config

import (
	"fmt"
	"time"
)

// Config is the complete application configuration.
type Config struct {
	Ensemble  EnsembleConfig   `mapstructure:"ensemble"`
	Detectors []DetectorConfig `mapstructure:"detectors"`
	Logging   LoggingConfig    `mapstructure:"logging"`
}

// EnsembleConfig controls the combination layer.
type EnsembleConfig struct {
	// Policy is "weighted" or "quorum".
	Policy string `mapstructure:"policy"`
	// Quorum overrides the default vote requirement (quorum policy only,
	// 0 = default majority rule).
	Quorum int `mapstructure:"quorum"`
	// Threshold is the initial decision threshold (weighted policy).
	Threshold float64 `mapstructure:"threshold"`
	// Objective is "f1" (default) or "cost". Exactly one is active.
	Objective string `mapstructure:"objective"`
	// FPCost and FNCost are the unit error costs for the cost objective.
	FPCost float64 `mapstructure:"fp_cost"`
	FNCost float64 `mapstructure:"fn_cost"`
	// DetectorTimeout bounds each per-detector fit/predict call
	// (0 = unbounded).
	DetectorTimeout time.Duration `mapstructure:"detector_timeout"`
	// Seed fixes the train/validation shuffle.
	Seed int64 `mapstructure:"seed"`
}

// DetectorConfig declares one roster entry.
type DetectorConfig struct {
	// ID is the stable identifier persisted with the model bundle.
	ID string `mapstructure:"id"`
	// Type selects the algorithm: iforest, zscore, mad, kmeans.
	Type string `mapstructure:"type"`
	// Threshold is the detector's own cutoff; 0 keeps the algorithm default.
	Threshold float64 `mapstructure:"threshold"`
	// Contamination is the expected anomaly fraction (iforest, kmeans).
	Contamination float64 `mapstructure:"contamination"`
	// Trees is the forest size (iforest).
	Trees int `mapstructure:"trees"`
	// Clusters is the cluster count (kmeans).
	Clusters int `mapstructure:"clusters"`
	// Seed fixes the detector's randomness.
	Seed int64 `mapstructure:"seed"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `mapstructure:"level"`
	// Format is "json" or "console".
	Format string `mapstructure:"format"`
}

// Validate checks cross-field constraints not expressible as defaults.
func (c *Config) Validate() error {
	switch c.Ensemble.Policy {
	case "weighted", "quorum":
	default:
		return fmt.Errorf("ensemble.policy must be weighted or quorum, got %q", c.Ensemble.Policy)
	}

	switch c.Ensemble.Objective {
	case "f1":
		if c.Ensemble.FPCost != 0 || c.Ensemble.FNCost != 0 {
			return fmt.Errorf("error costs set but objective is f1; configure exactly one objective")
		}
	case "cost":
		if c.Ensemble.FPCost <= 0 && c.Ensemble.FNCost <= 0 {
			return fmt.Errorf("cost objective requires fp_cost or fn_cost")
		}
	default:
		return fmt.Errorf("ensemble.objective must be f1 or cost, got %q", c.Ensemble.Objective)
	}

	if len(c.Detectors) == 0 {
		return fmt.Errorf("at least one detector must be configured")
	}
	seen := make(map[string]bool)
	for _, d := range c.Detectors {
		if d.ID == "" {
			return fmt.Errorf("detector entry missing id")
		}
		if seen[d.ID] {
			return fmt.Errorf("duplicate detector id %q", d.ID)
		}
		seen[d.ID] = true
	}

	if q := c.Ensemble.Quorum; q != 0 && (q < 1 || q > len(c.Detectors)) {
		return fmt.Errorf("ensemble.quorum %d outside [1, %d]", q, len(c.Detectors))
	}

	return nil
}
