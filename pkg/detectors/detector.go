// Package detectors provides unsupervised anomaly detection algorithms
// for supply-chain telemetry.
package detectors

// Label classifies a single observation.
//
// The sign convention follows the usual outlier-detection one: +1 means
// normal, -1 means anomalous. Ground-truth labels supplied to the ensemble
// use the same convention.
type Label int

const (
	// LabelNormal marks an observation as normal.
	LabelNormal Label = 1
	// LabelAnomaly marks an observation as anomalous.
	LabelAnomaly Label = -1
)

// Detector is the common capability every anomaly detector provides.
//
// data is a 2D slice where each row is an observation and each column is an
// already-engineered numeric feature. Detectors never mutate input rows.
type Detector interface {
	// Fit trains the detector on historical telemetry.
	Fit(data [][]float64) error

	// Predict returns a per-row label for the given observations.
	Predict(data [][]float64) ([]Label, error)

	// Save serializes the trained model to bytes.
	Save() ([]byte, error)

	// Load deserializes a trained model from bytes.
	Load(data []byte) error
}

// Scorer is the optional continuous-scoring capability. Detectors that only
// vote (e.g. cluster-membership flags) implement Detector alone.
type Scorer interface {
	// DecisionFunction returns one score per row. Higher means more normal,
	// lower means more anomalous. Scales are detector-specific; callers must
	// normalize before comparing scores across detectors.
	DecisionFunction(data [][]float64) ([]float64, error)
}

// ScoringDetector combines both capabilities. Weighted ensembles require it;
// quorum ensembles accept plain Detectors.
type ScoringDetector interface {
	Detector
	Scorer
}
