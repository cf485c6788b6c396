package ensemble

import "github.com/arkado/chainwatch/pkg/detectors"

// Objective selects what the threshold sweep optimizes. Exactly one
// objective is active per ensemble; configuring both F1 and cost is a
// construction error rather than last-writer-wins.
type Objective int

const (
	// ObjectiveF1 maximizes F1 of the anomalous class.
	ObjectiveF1 Objective = iota
	// ObjectiveCost minimizes fp_count*fp_cost + fn_count*fn_cost.
	ObjectiveCost
)

// defaultThreshold is used before optimization and as the degenerate-split
// fallback.
const defaultThreshold = 0.5

// Threshold sweep grid over the combined [0, 1] score scale.
const (
	sweepLow  = 0.10
	sweepHigh = 0.90
	sweepStep = 0.05
)

// optimizeThreshold sweeps candidate thresholds over combined validation
// scores and returns the best one under the configured objective.
// Predictions during the sweep follow the combiner rule: anomalous iff
// score <= threshold.
//
// Ties break toward the lower threshold, biasing the operating point toward
// flagging anomalies, since false negatives are the expensive failure mode.
// A validation split missing either class returns the default threshold.
func optimizeThreshold(scores []float64, labels []detectors.Label, obj Objective, fpCost, fnCost float64) float64 {
	var anomalies, normals int
	for _, l := range labels {
		if l == detectors.LabelAnomaly {
			anomalies++
		} else {
			normals++
		}
	}
	if anomalies == 0 || normals == 0 {
		return defaultThreshold
	}

	best := defaultThreshold
	bestSet := false
	var bestValue float64

	pred := make([]detectors.Label, len(scores))
	for t := sweepLow; t <= sweepHigh+epsilon; t += sweepStep {
		for i, s := range scores {
			if s <= t {
				pred[i] = detectors.LabelAnomaly
			} else {
				pred[i] = detectors.LabelNormal
			}
		}
		c := Confuse(pred, labels)

		var value float64
		switch obj {
		case ObjectiveCost:
			value = float64(c.FP)*fpCost + float64(c.FN)*fnCost
			if !bestSet || value < bestValue {
				best, bestValue, bestSet = t, value, true
			}
		default:
			value = c.F1()
			if !bestSet || value > bestValue {
				best, bestValue, bestSet = t, value, true
			}
		}
	}

	return best
}
