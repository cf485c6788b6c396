// Package zscore implements a per-feature Gaussian z-score detector.
//
// Fit records mean and standard deviation per feature column; scoring uses
// the largest absolute z-score across features, so one wildly deviating
// column is enough to flag a row.
package zscore

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"sync"

	"github.com/arkado/chainwatch/pkg/detectors"
)

// Detector flags rows whose maximum per-feature |z| exceeds the threshold.
type Detector struct {
	mu sync.RWMutex

	threshold float64

	means   []float64
	stddevs []float64
	trained bool
}

// Option configures a Detector.
type Option func(*Detector)

// WithThreshold sets the |z| cutoff (default 3, the usual three-sigma rule).
func WithThreshold(t float64) Option {
	return func(d *Detector) {
		d.threshold = t
	}
}

// New creates a z-score detector.
func New(opts ...Option) *Detector {
	d := &Detector{threshold: 3.0}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ detectors.ScoringDetector = (*Detector)(nil)

// Fit records per-column mean and standard deviation.
func (d *Detector) Fit(data [][]float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(data) == 0 {
		return errors.New("empty training data")
	}

	nFeatures := len(data[0])
	means := make([]float64, nFeatures)
	stddevs := make([]float64, nFeatures)

	for _, row := range data {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(len(data))
	}

	for _, row := range data {
		for j, v := range row {
			diff := v - means[j]
			stddevs[j] += diff * diff
		}
	}
	for j := range stddevs {
		stddevs[j] = math.Sqrt(stddevs[j] / float64(len(data)))
	}

	d.means = means
	d.stddevs = stddevs
	d.trained = true
	return nil
}

// Predict labels a row anomalous when any feature's |z| exceeds the threshold.
func (d *Detector) Predict(data [][]float64) ([]detectors.Label, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.trained {
		return nil, errors.New("model not trained")
	}

	labels := make([]detectors.Label, len(data))
	for i, row := range data {
		if d.maxAbsZ(row) > d.threshold {
			labels[i] = detectors.LabelAnomaly
		} else {
			labels[i] = detectors.LabelNormal
		}
	}
	return labels, nil
}

// DecisionFunction returns threshold - max|z| per row, so positive means
// normal and more negative means further outside the expected range.
func (d *Detector) DecisionFunction(data [][]float64) ([]float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.trained {
		return nil, errors.New("model not trained")
	}

	scores := make([]float64, len(data))
	for i, row := range data {
		scores[i] = d.threshold - d.maxAbsZ(row)
	}
	return scores, nil
}

func (d *Detector) maxAbsZ(row []float64) float64 {
	var maxZ float64
	for j, v := range row {
		if j >= len(d.means) {
			break
		}
		// Flat feature columns carry no signal.
		if d.stddevs[j] == 0 {
			continue
		}
		z := math.Abs((v - d.means[j]) / d.stddevs[j])
		if z > maxZ {
			maxZ = z
		}
	}
	return maxZ
}

type savedState struct {
	Threshold float64
	Means     []float64
	Stddevs   []float64
}

// Save serializes the trained model.
func (d *Detector) Save() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.trained {
		return nil, errors.New("model not trained")
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(savedState{
		Threshold: d.threshold,
		Means:     d.means,
		Stddevs:   d.stddevs,
	}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load deserializes a trained model.
func (d *Detector) Load(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var st savedState
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&st); err != nil {
		return err
	}

	d.threshold = st.Threshold
	d.means = st.Means
	d.stddevs = st.Stddevs
	d.trained = true
	return nil
}
