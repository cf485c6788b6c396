// Package mad implements a robust median / median-absolute-deviation detector.
//
// The modified z-score 0.6745*(x - median)/MAD is far less sensitive to the
// anomalies already present in the training window than a plain z-score,
// which matters for telemetry with heavy-tailed noise (lead times, costs).
package mad

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/arkado/chainwatch/pkg/detectors"
)

// consistencyConstant rescales MAD to estimate the standard deviation
// under a normal distribution.
const consistencyConstant = 0.6745

// Detector flags rows whose maximum per-feature modified z-score exceeds
// the threshold.
type Detector struct {
	mu sync.RWMutex

	threshold float64

	medians []float64
	mads    []float64
	trained bool
}

// Option configures a Detector.
type Option func(*Detector)

// WithThreshold sets the modified z-score cutoff (default 3.5, the
// customary Iglewicz-Hoaglin value).
func WithThreshold(t float64) Option {
	return func(d *Detector) {
		d.threshold = t
	}
}

// New creates a MAD detector.
func New(opts ...Option) *Detector {
	d := &Detector{threshold: 3.5}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ detectors.ScoringDetector = (*Detector)(nil)

// Fit records per-column median and median absolute deviation.
func (d *Detector) Fit(data [][]float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(data) == 0 {
		return errors.New("empty training data")
	}

	nFeatures := len(data[0])
	medians := make([]float64, nFeatures)
	mads := make([]float64, nFeatures)

	column := make([]float64, len(data))
	for j := 0; j < nFeatures; j++ {
		for i, row := range data {
			column[i] = row[j]
		}
		medians[j] = median(column)

		for i, row := range data {
			column[i] = math.Abs(row[j] - medians[j])
		}
		mads[j] = median(column)
	}

	d.medians = medians
	d.mads = mads
	d.trained = true
	return nil
}

// Predict labels a row anomalous when any feature's modified z-score
// exceeds the threshold.
func (d *Detector) Predict(data [][]float64) ([]detectors.Label, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.trained {
		return nil, errors.New("model not trained")
	}

	labels := make([]detectors.Label, len(data))
	for i, row := range data {
		if d.maxModifiedZ(row) > d.threshold {
			labels[i] = detectors.LabelAnomaly
		} else {
			labels[i] = detectors.LabelNormal
		}
	}
	return labels, nil
}

// DecisionFunction returns threshold - max modified z per row; higher
// means more normal.
func (d *Detector) DecisionFunction(data [][]float64) ([]float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.trained {
		return nil, errors.New("model not trained")
	}

	scores := make([]float64, len(data))
	for i, row := range data {
		scores[i] = d.threshold - d.maxModifiedZ(row)
	}
	return scores, nil
}

func (d *Detector) maxModifiedZ(row []float64) float64 {
	var maxZ float64
	for j, v := range row {
		if j >= len(d.medians) {
			break
		}
		if d.mads[j] == 0 {
			continue
		}
		z := math.Abs(consistencyConstant * (v - d.medians[j]) / d.mads[j])
		if z > maxZ {
			maxZ = z
		}
	}
	return maxZ
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

type savedState struct {
	Threshold float64
	Medians   []float64
	MADs      []float64
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
		Medians:   d.medians,
		MADs:      d.mads,
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
	d.medians = st.Medians
	d.mads = st.MADs
	d.trained = true
	return nil
}
