package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Ensemble: EnsembleConfig{
			Policy:    "weighted",
			Threshold: 0.5,
			Objective: "f1",
		},
		Detectors: []DetectorConfig{
			{ID: "iforest", Type: "iforest"},
			{ID: "zscore", Type: "zscore"},
		},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown policy",
			mutate:  func(c *Config) { c.Ensemble.Policy = "median" },
			wantErr: "policy must be weighted or quorum",
		},
		{
			name:    "unknown objective",
			mutate:  func(c *Config) { c.Ensemble.Objective = "accuracy" },
			wantErr: "objective must be f1 or cost",
		},
		{
			name:    "costs alongside f1",
			mutate:  func(c *Config) { c.Ensemble.FNCost = 10 },
			wantErr: "exactly one objective",
		},
		{
			name: "cost objective without costs",
			mutate: func(c *Config) {
				c.Ensemble.Objective = "cost"
			},
			wantErr: "requires fp_cost or fn_cost",
		},
		{
			name:    "no detectors",
			mutate:  func(c *Config) { c.Detectors = nil },
			wantErr: "at least one detector",
		},
		{
			name: "duplicate detector id",
			mutate: func(c *Config) {
				c.Detectors = append(c.Detectors, DetectorConfig{ID: "zscore", Type: "zscore"})
			},
			wantErr: "duplicate detector id",
		},
		{
			name:    "missing detector id",
			mutate:  func(c *Config) { c.Detectors[0].ID = "" },
			wantErr: "missing id",
		},
		{
			name:    "quorum beyond roster",
			mutate:  func(c *Config) { c.Ensemble.Quorum = 5 },
			wantErr: "quorum 5 outside",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCostObjective(t *testing.T) {
	cfg := validConfig()
	cfg.Ensemble.Objective = "cost"
	cfg.Ensemble.FNCost = 25
	assert.NoError(t, cfg.Validate())
}
