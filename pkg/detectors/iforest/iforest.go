// Package iforest implements the Isolation Forest algorithm.
//
// Isolation Forest isolates observations by recursive random splits; anomalies
// need fewer splits to isolate and therefore sit closer to the root. It is the
// default boundary/density detector for telemetry ensembles.
package iforest

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

// Forest implements unsupervised anomaly detection using isolation trees.
type Forest struct {
	mu sync.RWMutex

	// Configuration
	nTrees        int
	sampleSize    int
	contamination float64
	threshold     float64
	maxDepth      int
	rng           *rand.Rand

	// Trained model
	trees   []*iTree
	trained bool

	// Statistics from training
	avgPathLength float64
}

// iTree is a single isolation tree. Fields are exported for gob.
type iTree struct {
	Root *node
}

// node is a node in the isolation tree. Fields are exported for gob.
type node struct {
	// Split parameters (for internal nodes)
	SplitFeature int
	SplitValue   float64

	// Children
	Left  *node
	Right *node

	// Leaf information
	Size int // number of samples that reached this leaf
}

// Option configures a Forest.
type Option func(*Forest)

// WithTrees sets the number of isolation trees.
func WithTrees(n int) Option {
	return func(f *Forest) {
		f.nTrees = n
	}
}

// WithSampleSize sets the subsample size for each tree.
func WithSampleSize(n int) Option {
	return func(f *Forest) {
		f.sampleSize = n
	}
}

// WithContamination sets the expected proportion of anomalies.
func WithContamination(c float64) Option {
	return func(f *Forest) {
		f.contamination = c
	}
}

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int64) Option {
	return func(f *Forest) {
		f.rng = rand.New(rand.NewSource(seed))
	}
}

// New creates a Forest with the given options.
func New(opts ...Option) *Forest {
	f := &Forest{
		nTrees:        100,
		sampleSize:    256,
		contamination: 0.1,
		threshold:     0.5,
		rng:           rand.New(rand.NewSource(42)),
	}

	for _, opt := range opts {
		opt(f)
	}

	// Max depth based on sample size
	f.maxDepth = int(math.Ceil(math.Log2(float64(f.sampleSize))))

	return f
}

var _ detectors.ScoringDetector = (*Forest)(nil)

// Fit trains the forest on the provided telemetry.
func (f *Forest) Fit(data [][]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(data) == 0 {
		return errors.New("empty training data")
	}

	nSamples := len(data)
	nFeatures := len(data[0])

	sampleSize := f.sampleSize
	if sampleSize > nSamples {
		sampleSize = nSamples
	}

	f.trees = make([]*iTree, f.nTrees)
	for i := 0; i < f.nTrees; i++ {
		// Sample without replacement
		indices := f.rng.Perm(nSamples)[:sampleSize]
		sample := make([][]float64, sampleSize)
		for j, idx := range indices {
			sample[j] = data[idx]
		}

		f.trees[i] = &iTree{Root: f.buildNode(sample, nFeatures, 0)}
	}

	f.avgPathLength = averagePathLength(float64(sampleSize))
	f.trained = true

	// Calibrate the threshold so the expected contamination fraction of the
	// training data lands above it.
	if f.contamination > 0 {
		scores := f.anomalyScores(data)
		f.threshold = percentile(scores, 100*(1-f.contamination))
	}

	return nil
}

func (f *Forest) buildNode(data [][]float64, nFeatures, depth int) *node {
	n := len(data)

	if depth >= f.maxDepth || n <= 1 {
		return &node{Size: n}
	}

	feature := f.rng.Intn(nFeatures)

	minVal, maxVal := data[0][feature], data[0][feature]
	for _, row := range data[1:] {
		if row[feature] < minVal {
			minVal = row[feature]
		}
		if row[feature] > maxVal {
			maxVal = row[feature]
		}
	}

	// Constant feature in this partition, nothing left to split on.
	if minVal == maxVal {
		return &node{Size: n}
	}

	splitValue := minVal + f.rng.Float64()*(maxVal-minVal)

	var leftData, rightData [][]float64
	for _, row := range data {
		if row[feature] < splitValue {
			leftData = append(leftData, row)
		} else {
			rightData = append(rightData, row)
		}
	}

	return &node{
		SplitFeature: feature,
		SplitValue:   splitValue,
		Left:         f.buildNode(leftData, nFeatures, depth+1),
		Right:        f.buildNode(rightData, nFeatures, depth+1),
	}
}

// Predict returns a label per row: anomalous when the isolation score
// exceeds the calibrated threshold.
func (f *Forest) Predict(data [][]float64) ([]detectors.Label, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return nil, errors.New("model not trained")
	}

	labels := make([]detectors.Label, len(data))
	for i, sample := range data {
		if f.anomalyScore(sample) >= f.threshold {
			labels[i] = detectors.LabelAnomaly
		} else {
			labels[i] = detectors.LabelNormal
		}
	}
	return labels, nil
}

// DecisionFunction returns per-row decision scores where higher means more
// normal. The score is the calibrated threshold minus the isolation score,
// so positive values sit on the normal side of the boundary.
func (f *Forest) DecisionFunction(data [][]float64) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return nil, errors.New("model not trained")
	}

	scores := make([]float64, len(data))
	for i, sample := range data {
		scores[i] = f.threshold - f.anomalyScore(sample)
	}
	return scores, nil
}

func (f *Forest) anomalyScores(data [][]float64) []float64 {
	scores := make([]float64, len(data))
	for i, sample := range data {
		scores[i] = f.anomalyScore(sample)
	}
	return scores
}

// anomalyScore is the standard isolation score 2^(-avgPath / c(n)), in [0, 1]
// with higher meaning more anomalous. Caller must hold the lock.
func (f *Forest) anomalyScore(sample []float64) float64 {
	var totalPath float64
	for _, tree := range f.trees {
		totalPath += pathLength(sample, tree.Root, 0)
	}
	avgPath := totalPath / float64(len(f.trees))

	return math.Pow(2, -avgPath/f.avgPathLength)
}

// pathLength calculates the path length for a sample in a tree.
func pathLength(sample []float64, n *node, currentDepth int) float64 {
	if n.Left == nil && n.Right == nil {
		// Leaf node: add expected path length for remaining isolation
		return float64(currentDepth) + averagePathLength(float64(n.Size))
	}

	if sample[n.SplitFeature] < n.SplitValue {
		return pathLength(sample, n.Left, currentDepth+1)
	}
	return pathLength(sample, n.Right, currentDepth+1)
}

// averagePathLength returns the average path length of unsuccessful search
// in a BST: c(n) = 2*H(n-1) - 2*(n-1)/n, with H(n) approximated by
// ln(n) + the Euler-Mascheroni constant.
func averagePathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	return 2*(math.Log(n-1)+0.5772156649) - 2*(n-1)/n
}

// Save serializes the trained model.
func (f *Forest) Save() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return nil, errors.New("model not trained")
	}

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	for _, v := range []any{f.nTrees, f.sampleSize, f.contamination, f.threshold, f.avgPathLength} {
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
	}
	if err := enc.Encode(f.trees); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Load deserializes a trained model.
func (f *Forest) Load(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	dec := gob.NewDecoder(bytes.NewBuffer(data))

	for _, v := range []any{&f.nTrees, &f.sampleSize, &f.contamination, &f.threshold, &f.avgPathLength} {
		if err := dec.Decode(v); err != nil {
			return err
		}
	}
	if err := dec.Decode(&f.trees); err != nil {
		return err
	}

	f.maxDepth = int(math.Ceil(math.Log2(float64(f.sampleSize))))
	f.trained = true

	return nil
}

// Threshold returns the current anomaly threshold.
func (f *Forest) Threshold() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.threshold
}

// SetThreshold updates the anomaly threshold.
func (f *Forest) SetThreshold(t float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threshold = t
}

// percentile calculates the p-th percentile of the data.
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)-1) * p / 100)
	return sorted[idx]
}
