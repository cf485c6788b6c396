package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arkado/chainwatch/pkg/detectors"
)

func TestOptimizeThresholdF1(t *testing.T) {
	t.Run("separating point wins", func(t *testing.T) {
		scores := []float64{0.2, 0.3, 0.35, 0.8, 0.9}
		labels := []detectors.Label{lblA, lblA, lblN, lblN, lblN}

		got := optimizeThreshold(scores, labels, ObjectiveF1, 0, 0)
		assert.InDelta(t, 0.30, got, 0.01)
	})

	t.Run("ties break toward the lower threshold", func(t *testing.T) {
		// Every candidate separates these perfectly, so the sweep keeps
		// its first, lowest candidate.
		scores := []float64{0.05, 0.05, 0.95, 0.95}
		labels := []detectors.Label{lblA, lblA, lblN, lblN}

		got := optimizeThreshold(scores, labels, ObjectiveF1, 0, 0)
		assert.InDelta(t, 0.10, got, 1e-9)
	})

	t.Run("single-class labels keep the default", func(t *testing.T) {
		scores := []float64{0.2, 0.4, 0.6}
		labels := []detectors.Label{lblN, lblN, lblN}

		got := optimizeThreshold(scores, labels, ObjectiveF1, 0, 0)
		assert.Equal(t, defaultThreshold, got)
	})
}

func TestOptimizeThresholdCost(t *testing.T) {
	scores := []float64{0.1, 0.4, 0.3, 0.9}
	labels := []detectors.Label{lblA, lblA, lblN, lblN}

	t.Run("expensive misses push the threshold up", func(t *testing.T) {
		// At 0.40 the only error is one false positive (cost 1); every
		// lower candidate misses an anomaly for cost 10.
		got := optimizeThreshold(scores, labels, ObjectiveCost, 1, 10)
		assert.InDelta(t, 0.40, got, 0.01)
	})

	t.Run("expensive false alarms pull it down", func(t *testing.T) {
		got := optimizeThreshold(scores, labels, ObjectiveCost, 10, 1)
		assert.InDelta(t, 0.10, got, 0.01)
	})
}
