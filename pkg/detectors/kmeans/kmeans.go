// Package kmeans implements a clustering-based anomaly detector.
//
// Rows are assigned to the nearest centroid after Lloyd's iterations; a row
// whose distance to its centroid exceeds that cluster's calibrated cutoff is
// flagged. The detector deliberately exposes no continuous decision score:
// cluster membership is a binary fact, so it participates in quorum-voting
// ensembles only.
package kmeans

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/arkado/chainwatch/pkg/detectors"
)

// Detector flags rows far from every learned cluster centroid.
type Detector struct {
	mu sync.RWMutex

	k             int
	maxIterations int
	contamination float64
	rng           *rand.Rand

	centroids [][]float64
	cutoffs   []float64 // per-cluster distance cutoff
	trained   bool
}

// Option configures a Detector.
type Option func(*Detector)

// WithClusters sets the number of clusters.
func WithClusters(k int) Option {
	return func(d *Detector) {
		d.k = k
	}
}

// WithMaxIterations bounds Lloyd's iterations.
func WithMaxIterations(n int) Option {
	return func(d *Detector) {
		d.maxIterations = n
	}
}

// WithContamination sets the expected proportion of anomalies, which
// controls the per-cluster distance cutoff.
func WithContamination(c float64) Option {
	return func(d *Detector) {
		d.contamination = c
	}
}

// WithSeed sets the random seed for centroid initialization.
func WithSeed(seed int64) Option {
	return func(d *Detector) {
		d.rng = rand.New(rand.NewSource(seed))
	}
}

// New creates a k-means detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		k:             8,
		maxIterations: 100,
		contamination: 0.1,
		rng:           rand.New(rand.NewSource(42)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ detectors.Detector = (*Detector)(nil)

// Fit clusters the training data and calibrates per-cluster cutoffs at the
// (1 - contamination) quantile of member distances.
func (d *Detector) Fit(data [][]float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(data) == 0 {
		return errors.New("empty training data")
	}

	k := d.k
	if k > len(data) {
		k = len(data)
	}

	// Forgy initialization: k distinct training rows.
	centroids := make([][]float64, k)
	for i, idx := range d.rng.Perm(len(data))[:k] {
		centroids[i] = append([]float64(nil), data[idx]...)
	}

	assignments := make([]int, len(data))
	for iter := 0; iter < d.maxIterations; iter++ {
		changed := false
		for i, row := range data {
			c := nearest(row, centroids)
			if c != assignments[i] {
				assignments[i] = c
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centroids; empty clusters keep their previous position.
		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, len(data[0]))
		}
		for i, row := range data {
			c := assignments[i]
			counts[c]++
			for j, v := range row {
				sums[c][j] += v
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for j := range centroids[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	// Per-cluster cutoff from member distances.
	memberDists := make([][]float64, k)
	for i, row := range data {
		c := assignments[i]
		memberDists[c] = append(memberDists[c], euclidean(row, centroids[c]))
	}
	cutoffs := make([]float64, k)
	for c, dists := range memberDists {
		cutoffs[c] = quantile(dists, 1-d.contamination)
	}

	d.centroids = centroids
	d.cutoffs = cutoffs
	d.trained = true
	return nil
}

// Predict labels a row anomalous when it is farther from its nearest
// centroid than that cluster's cutoff.
func (d *Detector) Predict(data [][]float64) ([]detectors.Label, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.trained {
		return nil, errors.New("model not trained")
	}

	labels := make([]detectors.Label, len(data))
	for i, row := range data {
		c := nearest(row, d.centroids)
		if euclidean(row, d.centroids[c]) > d.cutoffs[c] {
			labels[i] = detectors.LabelAnomaly
		} else {
			labels[i] = detectors.LabelNormal
		}
	}
	return labels, nil
}

func nearest(row []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		if dist := euclidean(row, centroid); dist < bestDist {
			best = c
			bestDist = dist
		}
	}
	return best
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		if i >= len(b) {
			break
		}
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(math.Ceil(q*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

type savedState struct {
	K             int
	Contamination float64
	Centroids     [][]float64
	Cutoffs       []float64
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
		K:             d.k,
		Contamination: d.contamination,
		Centroids:     d.centroids,
		Cutoffs:       d.cutoffs,
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

	d.k = st.K
	d.contamination = st.Contamination
	d.centroids = st.Centroids
	d.cutoffs = st.Cutoffs
	d.trained = true
	return nil
}
