package ensemble

import (
	"github.com/arkado/chainwatch/pkg/detectors"
	"github.com/arkado/chainwatch/pkg/logging"
)

// Relative contributions of each statistic to a detector's validation
// performance score.
const (
	perfF1Weight        = 0.5
	perfPrecisionWeight = 0.3
	perfRecallWeight    = 0.2
)

// recalibrateWeights re-derives combiner weights from each detector's
// performance on a labeled validation split.
//
// Each detector predicts the split; its performance statistic is
// 0.5*F1 + 0.3*precision + 0.2*recall with anomalous as the positive class,
// and its new weight is perf / sum(perf). When every detector scores zero
// (degenerate split, e.g. no anomalies present) weights fall back to
// uniform rather than dividing by zero. Detectors that fail to predict the
// split score zero.
func recalibrateWeights(handles []Handle, active map[string]bool, data [][]float64, labels []detectors.Label, log *logging.Logger) map[string]float64 {
	perf := make(map[string]float64)
	var total float64

	for _, h := range handles {
		if !active[h.ID] {
			continue
		}
		pred, err := h.Detector.Predict(data)
		if err != nil {
			log.Warn("detector failed on validation split, weight set to zero",
				"detector", h.ID, "error", err)
			perf[h.ID] = 0
			continue
		}
		c := Confuse(pred, labels)
		p := perfF1Weight*c.F1() + perfPrecisionWeight*c.Precision() + perfRecallWeight*c.Recall()
		perf[h.ID] = p
		total += p
	}

	weights := make(map[string]float64, len(perf))
	if total == 0 {
		uniform := 1.0 / float64(len(perf))
		for id := range perf {
			weights[id] = uniform
		}
		return weights
	}

	for id, p := range perf {
		weights[id] = p / total
	}
	return weights
}
