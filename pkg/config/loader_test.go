package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Run from an empty directory so no chainwatch.yaml is picked up.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "weighted", cfg.Ensemble.Policy)
	assert.Equal(t, 0.5, cfg.Ensemble.Threshold)
	assert.Equal(t, "f1", cfg.Ensemble.Objective)
	assert.Equal(t, 30*time.Second, cfg.Ensemble.DetectorTimeout)
	assert.Equal(t, int64(42), cfg.Ensemble.Seed)

	require.Len(t, cfg.Detectors, 3)
	assert.Equal(t, "iforest", cfg.Detectors[0].ID)
	assert.Equal(t, 100, cfg.Detectors[0].Trees)
	assert.Equal(t, "zscore", cfg.Detectors[1].ID)
	assert.Equal(t, "mad", cfg.Detectors[2].ID)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chainwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ensemble:
  policy: quorum
  quorum: 2
detectors:
  - id: zscore
    type: zscore
    threshold: 2.5
  - id: kmeans
    type: kmeans
    clusters: 4
logging:
  level: debug
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "quorum", cfg.Ensemble.Policy)
	assert.Equal(t, 2, cfg.Ensemble.Quorum)
	// Unset keys keep their defaults.
	assert.Equal(t, "f1", cfg.Ensemble.Objective)

	require.Len(t, cfg.Detectors, 2)
	assert.Equal(t, 2.5, cfg.Detectors[0].Threshold)
	assert.Equal(t, 4, cfg.Detectors[1].Clusters)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chainwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ensemble:
  policy: median
detectors:
  - id: zscore
    type: zscore
`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "policy must be weighted or quorum")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
