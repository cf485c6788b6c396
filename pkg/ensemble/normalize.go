package ensemble

// epsilon guards normalization against vanishing score ranges.
const epsilon = 1e-10

// Normalize rescales one detector's raw decision scores onto [0, 1] using
// min-max scaling over the batch, where 1 means most normal. Each detector
// is normalized against its own range only, never against another
// detector's.
//
// A batch of size 1, or a batch where the detector returned a constant,
// maps to the midpoint 0.5 instead of dividing by zero.
func Normalize(raw []float64) []float64 {
	out := make([]float64, len(raw))
	if len(raw) == 0 {
		return out
	}

	minVal, maxVal := raw[0], raw[0]
	for _, v := range raw[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	if maxVal-minVal < epsilon {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}

	span := maxVal - minVal
	for i, v := range raw {
		out[i] = (v - minVal) / span
	}
	return out
}
