package ensemble

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arkado/chainwatch/pkg/logging"
)

func TestRecalibrateWeights(t *testing.T) {
	rows, labels := makeTelemetry(4, 4)

	sharp := newFake()
	blind := &fakeDetector{scoreFn: func(row []float64) float64 { return 1 }}

	handles := []Handle{
		{ID: "sharp", Detector: sharp},
		{ID: "blind", Detector: blind},
	}
	active := map[string]bool{"sharp": true, "blind": true}

	weights := recalibrateWeights(handles, active, rows, labels, logging.Nop())

	// A detector that flags nothing scores zero on every statistic.
	assert.InDelta(t, 1.0, weights["sharp"], 1e-12)
	assert.InDelta(t, 0.0, weights["blind"], 1e-12)
}

func TestRecalibrateWeightsProportional(t *testing.T) {
	rows, labels := makeTelemetry(4, 4)

	sharp := newFake()
	eager := &fakeDetector{scoreFn: func(row []float64) float64 { return -1 }}

	handles := []Handle{
		{ID: "sharp", Detector: sharp},
		{ID: "eager", Detector: eager},
	}
	active := map[string]bool{"sharp": true, "eager": true}

	weights := recalibrateWeights(handles, active, rows, labels, logging.Nop())

	// Flag-everything on a balanced split: precision 0.5, recall 1, F1 2/3.
	perfEager := perfF1Weight*(2.0/3.0) + perfPrecisionWeight*0.5 + perfRecallWeight*1.0
	total := 1.0 + perfEager

	assert.InDelta(t, 1.0/total, weights["sharp"], 1e-12)
	assert.InDelta(t, perfEager/total, weights["eager"], 1e-12)

	var sum float64
	for _, w := range weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestRecalibrateWeightsFailedPredict(t *testing.T) {
	rows, labels := makeTelemetry(4, 4)

	broken := newFake()
	broken.predErr = errors.New("feed offline")

	handles := []Handle{
		{ID: "ok", Detector: newFake()},
		{ID: "broken", Detector: broken},
	}
	active := map[string]bool{"ok": true, "broken": true}

	weights := recalibrateWeights(handles, active, rows, labels, logging.Nop())
	assert.InDelta(t, 1.0, weights["ok"], 1e-12)
	assert.InDelta(t, 0.0, weights["broken"], 1e-12)
}

func TestRecalibrateWeightsAllZeroFallsBackToUniform(t *testing.T) {
	rows, labels := makeTelemetry(4, 4)

	blind1 := &fakeDetector{scoreFn: func(row []float64) float64 { return 1 }}
	blind2 := &fakeDetector{scoreFn: func(row []float64) float64 { return 1 }}

	handles := []Handle{
		{ID: "b1", Detector: blind1},
		{ID: "b2", Detector: blind2},
	}
	active := map[string]bool{"b1": true, "b2": true}

	weights := recalibrateWeights(handles, active, rows, labels, logging.Nop())
	assert.InDelta(t, 0.5, weights["b1"], 1e-12)
	assert.InDelta(t, 0.5, weights["b2"], 1e-12)
}

func TestRecalibrateWeightsSkipsInactive(t *testing.T) {
	rows, labels := makeTelemetry(4, 4)

	handles := []Handle{
		{ID: "in", Detector: newFake()},
		{ID: "out", Detector: newFake()},
	}
	active := map[string]bool{"in": true}

	weights := recalibrateWeights(handles, active, rows, labels, logging.Nop())
	assert.Len(t, weights, 1)
	assert.InDelta(t, 1.0, weights["in"], 1e-12)
}
