package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkado/chainwatch/pkg/logging"
)

func TestBuildEnsemble(t *testing.T) {
	cfg := &Config{
		Ensemble: EnsembleConfig{
			Policy:    "weighted",
			Threshold: 0.6,
			Objective: "f1",
			Seed:      7,
		},
		Detectors: []DetectorConfig{
			{ID: "forest", Type: "iforest", Trees: 50, Contamination: 0.05},
			{ID: "sigma", Type: "zscore", Threshold: 2.5},
			{ID: "robust", Type: "mad"},
		},
	}

	ens, err := BuildEnsemble(cfg, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0.6, ens.Threshold())
	assert.False(t, ens.Fitted())
}

func TestBuildEnsembleQuorum(t *testing.T) {
	cfg := &Config{
		Ensemble: EnsembleConfig{
			Policy:    "quorum",
			Quorum:    2,
			Objective: "f1",
		},
		Detectors: []DetectorConfig{
			{ID: "forest", Type: "iforest"},
			{ID: "clusters", Type: "kmeans", Clusters: 4},
			{ID: "sigma", Type: "zscore"},
		},
	}

	ens, err := BuildEnsemble(cfg, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, ens.Quorum())
}

func TestBuildEnsembleKmeansNeedsQuorumPolicy(t *testing.T) {
	cfg := &Config{
		Ensemble: EnsembleConfig{
			Policy:    "weighted",
			Objective: "f1",
		},
		Detectors: []DetectorConfig{
			{ID: "clusters", Type: "kmeans"},
		},
	}

	_, err := BuildEnsemble(cfg, logging.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no decision function")
}

func TestBuildDetectorUnknownType(t *testing.T) {
	_, err := buildDetector(DetectorConfig{ID: "x", Type: "autoencoder"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "autoencoder")
}
