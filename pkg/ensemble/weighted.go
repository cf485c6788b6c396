package ensemble

import (
	"sort"

	"github.com/arkado/chainwatch/pkg/detectors"
)

// WeightedCombiner averages normalized detector scores under per-detector
// weights and thresholds the result.
//
// Detectors absent from a batch's score map (failed for that batch) are
// excluded from the sum and the remaining weights are renormalized to sum
// to 1 per observation, so a single outage does not bias the combined score
// toward either class.
type WeightedCombiner struct {
	// Weights maps detector identifier to its weight. Non-negative;
	// recalibration keeps them summing to 1.
	Weights map[string]float64

	// Threshold on the combined [0, 1] score; combined scores above it are
	// normal. Expressed on the combiner's output scale, never on any
	// individual detector's raw scale.
	Threshold float64
}

// NewWeightedCombiner builds a combiner with uniform weights over ids and
// the default 0.5 threshold.
func NewWeightedCombiner(ids []string) *WeightedCombiner {
	weights := make(map[string]float64, len(ids))
	for _, id := range ids {
		weights[id] = 1.0 / float64(len(ids))
	}
	return &WeightedCombiner{Weights: weights, Threshold: 0.5}
}

// Combine produces one combined score per observation from per-detector
// normalized score vectors. n is the batch length; every present vector
// must have length n.
func (c *WeightedCombiner) Combine(normalized map[string][]float64, n int) []float64 {
	var present []string
	var total float64
	for id := range c.Weights {
		if _, ok := normalized[id]; ok {
			present = append(present, id)
			total += c.Weights[id]
		}
	}
	// Deterministic summation order keeps repeated predictions bit-identical.
	sort.Strings(present)

	scores := make([]float64, n)
	if len(present) == 0 {
		return scores
	}

	for i := 0; i < n; i++ {
		var sum float64
		for _, id := range present {
			w := c.Weights[id]
			if total > 0 {
				w /= total
			} else {
				// All surviving weights are zero; fall back to an even split.
				w = 1.0 / float64(len(present))
			}
			sum += w * normalized[id][i]
		}
		scores[i] = sum
	}
	return scores
}

// Predict thresholds combined scores: above the threshold is normal.
func (c *WeightedCombiner) Predict(scores []float64) []detectors.Label {
	labels := make([]detectors.Label, len(scores))
	for i, s := range scores {
		if s > c.Threshold {
			labels[i] = detectors.LabelNormal
		} else {
			labels[i] = detectors.LabelAnomaly
		}
	}
	return labels
}

// DecisionFunction rescales combined scores to [-1, 1] via 2*s - 1, so
// positive means normal and negative means anomalous, matching the sign
// convention of the underlying detectors.
func (c *WeightedCombiner) DecisionFunction(scores []float64) []float64 {
	signed := make([]float64, len(scores))
	for i, s := range scores {
		signed[i] = 2*s - 1
	}
	return signed
}
