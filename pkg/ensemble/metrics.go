package ensemble

import "github.com/arkado/chainwatch/pkg/detectors"

// Confusion holds binary classification counts with the anomalous class
// treated as positive throughout.
type Confusion struct {
	TP, FP, TN, FN int
}

// Confuse tallies predictions against ground truth. Slices must be the
// same length.
func Confuse(pred, truth []detectors.Label) Confusion {
	var c Confusion
	for i := range pred {
		switch {
		case pred[i] == detectors.LabelAnomaly && truth[i] == detectors.LabelAnomaly:
			c.TP++
		case pred[i] == detectors.LabelAnomaly && truth[i] == detectors.LabelNormal:
			c.FP++
		case pred[i] == detectors.LabelNormal && truth[i] == detectors.LabelNormal:
			c.TN++
		default:
			c.FN++
		}
	}
	return c
}

// Precision is TP / (TP + FP), zero when nothing was flagged.
func (c Confusion) Precision() float64 {
	if c.TP+c.FP == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FP)
}

// Recall is TP / (TP + FN), zero when no anomalies exist.
func (c Confusion) Recall() float64 {
	if c.TP+c.FN == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FN)
}

// F1 is the harmonic mean of precision and recall.
func (c Confusion) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}
