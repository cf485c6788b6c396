// Package ensemble combines heterogeneous anomaly detectors into a single
// calibrated decision.
//
// Detectors with incompatible score ranges and failure modes are normalized
// onto a common scale, combined by either a weighted-average or a
// quorum-vote policy, weighted against labeled validation performance, and
// thresholded at a tunable operating point. Individual detector failures
// are contained: a detector that fails to fit is excluded for the cycle, a
// detector that fails on a batch is dropped for that batch only, and in
// both cases the remaining weights are renormalized so the combined score
// stays unbiased.
package ensemble

import (
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/arkado/chainwatch/pkg/detectors"
	"github.com/arkado/chainwatch/pkg/logging"
)

// Policy selects how detector outputs are combined.
type Policy string

const (
	// PolicyWeighted averages normalized decision scores under
	// per-detector weights.
	PolicyWeighted Policy = "weighted"
	// PolicyQuorum counts anomalous votes against a quorum.
	PolicyQuorum Policy = "quorum"
)

// Handle is a named binding of a stable detector identifier to a detector
// instance. Identifiers survive save/load; the roster is fixed at
// construction.
type Handle struct {
	ID       string
	Detector detectors.Detector
}

type state int

const (
	stateUnfitted state = iota
	stateFitting
	stateFitted
)

// validationFraction is the held-out share of labeled training data used
// for weight recalibration and threshold search.
const validationFraction = 0.2

// Report describes how many detectors contributed to a batch, letting
// callers distinguish a degraded answer from a full one.
type Report struct {
	Total       int
	Contributed int
	Failed      []string
}

// Degraded reports whether at least one detector sat out the batch.
func (r Report) Degraded() bool {
	return r.Contributed < r.Total
}

// Ensemble orchestrates a fixed roster of detectors behind one
// fit/predict surface.
//
// Fit and predict on the same instance must not run concurrently; the
// internal lock serializes them (predictions are readers, fit and load are
// writers).
type Ensemble struct {
	mu sync.RWMutex

	policy   Policy
	handles  []Handle
	weighted *WeightedCombiner
	quorum   *QuorumCombiner

	objective Objective
	fpCost    float64
	fnCost    float64

	timeout time.Duration
	rng     *rand.Rand
	log     *logging.Logger

	state     state
	active    map[string]bool
	nFeatures int
}

// Option configures an Ensemble.
type Option func(*Ensemble) error

// WithThreshold sets the initial decision threshold on the combined score
// scale (weighted policy).
func WithThreshold(t float64) Option {
	return func(e *Ensemble) error {
		if t < 0 || t > 1 {
			return fmt.Errorf("threshold %v outside [0, 1]", t)
		}
		e.weighted.Threshold = t
		return nil
	}
}

// WithQuorum overrides the default vote requirement (quorum policy).
func WithQuorum(q int) Option {
	return func(e *Ensemble) error {
		if q < 1 || q > len(e.handles) {
			return fmt.Errorf("quorum %d outside [1, %d]", q, len(e.handles))
		}
		e.quorum.Quorum = q
		return nil
	}
}

// WithCostObjective switches the threshold search from F1 maximization to
// business-cost minimization with the given per-error unit costs. The two
// objectives are mutually exclusive; this replaces F1 outright.
func WithCostObjective(fpCost, fnCost float64) Option {
	return func(e *Ensemble) error {
		if fpCost < 0 || fnCost < 0 {
			return fmt.Errorf("negative error cost (fp=%v fn=%v)", fpCost, fnCost)
		}
		e.objective = ObjectiveCost
		e.fpCost = fpCost
		e.fnCost = fnCost
		return nil
	}
}

// WithTimeout bounds every per-detector fit/predict call. A call exceeding
// the timeout counts as that detector's failure; zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Ensemble) error {
		e.timeout = d
		return nil
	}
}

// WithSeed fixes the seed of the stratified train/validation shuffle.
func WithSeed(seed int64) Option {
	return func(e *Ensemble) error {
		e.rng = rand.New(rand.NewSource(seed))
		return nil
	}
}

// WithLogger injects a logger; the default discards everything.
func WithLogger(l *logging.Logger) Option {
	return func(e *Ensemble) error {
		e.log = l
		return nil
	}
}

// New creates an ensemble over a fixed detector roster.
//
// The weighted policy requires every detector to implement
// detectors.Scorer; the quorum policy accepts vote-only detectors and
// defaults to DefaultQuorum(len(handles)).
func New(policy Policy, handles []Handle, opts ...Option) (*Ensemble, error) {
	if len(handles) == 0 {
		return nil, errors.New("ensemble requires at least one detector")
	}

	ids := make([]string, 0, len(handles))
	seen := make(map[string]bool, len(handles))
	for _, h := range handles {
		if h.ID == "" || h.Detector == nil {
			return nil, errors.New("detector handle requires an id and an instance")
		}
		if seen[h.ID] {
			return nil, fmt.Errorf("duplicate detector id %q", h.ID)
		}
		seen[h.ID] = true
		ids = append(ids, h.ID)
	}

	switch policy {
	case PolicyWeighted:
		for _, h := range handles {
			if _, ok := h.Detector.(detectors.Scorer); !ok {
				return nil, fmt.Errorf("detector %q has no decision function; use the quorum policy", h.ID)
			}
		}
	case PolicyQuorum:
	default:
		return nil, fmt.Errorf("unknown combination policy %q", policy)
	}

	e := &Ensemble{
		policy:   policy,
		handles:  handles,
		weighted: NewWeightedCombiner(ids),
		quorum:   &QuorumCombiner{Quorum: DefaultQuorum(len(handles))},
		rng:      rand.New(rand.NewSource(42)),
		log:      logging.Nop(),
		active:   make(map[string]bool),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// NewLightweight builds the two-detector quorum variant used for
// lightweight deployments: both detectors must agree before an observation
// is flagged.
func NewLightweight(a, b Handle, opts ...Option) (*Ensemble, error) {
	return New(PolicyQuorum, []Handle{a, b}, opts...)
}

// Fit trains every detector in the roster.
//
// With labels present, the data is split 80/20 stratified by label;
// detectors fit on the 80% split, combiner weights are recalibrated and the
// decision threshold swept on the held-out 20%, and finally all surviving
// detectors refit on the full dataset so the deployed model has seen
// everything while calibration decisions used held-out data only. Without
// labels, weights and threshold keep their current values.
//
// A detector that fails (or times out) is logged and excluded for this fit
// cycle; Fit fails only when every detector failed.
func (e *Ensemble) Fit(data [][]float64, labels []detectors.Label) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(data) == 0 {
		return errors.New("empty training data")
	}
	if labels != nil && len(labels) != len(data) {
		return fmt.Errorf("labels length %d does not match data length %d", len(labels), len(data))
	}

	e.state = stateFitting

	train := data
	var val [][]float64
	var valLabels []detectors.Label
	if labels != nil {
		train, val, valLabels = stratifiedSplit(data, labels, validationFraction, e.rng)
	}

	active, causes := e.fitDetectors(train, nil)
	if len(active) == 0 {
		e.state = stateUnfitted
		return &FitError{Causes: causes}
	}
	e.active = active

	if labels != nil {
		e.calibrate(val, valLabels)

		// Refit on the full dataset. A detector that survived the first
		// pass but fails here drops out of the cycle like any other fit
		// failure.
		active, causes = e.fitDetectors(data, e.active)
		if len(active) == 0 {
			e.state = stateUnfitted
			return &FitError{Causes: causes}
		}
		e.active = active
	}

	e.nFeatures = len(data[0])
	e.state = stateFitted
	e.log.Info("ensemble fitted",
		"policy", string(e.policy),
		"detectors", len(e.active),
		"roster", len(e.handles),
		"threshold", e.weighted.Threshold)
	return nil
}

// calibrate updates weights and threshold from the held-out split. Caller
// holds the write lock.
func (e *Ensemble) calibrate(val [][]float64, valLabels []detectors.Label) {
	if e.policy != PolicyWeighted {
		// Quorum voting carries no weights and no continuous threshold;
		// labeled fits only drive the detectors themselves.
		return
	}
	if degenerate(valLabels) {
		e.log.Warn("validation split is single-class; keeping uniform weights and default threshold")
		e.weighted.Weights = uniformWeights(e.active)
		e.weighted.Threshold = defaultThreshold
		return
	}

	e.weighted.Weights = recalibrateWeights(e.handles, e.active, val, valLabels, e.log)
	e.log.Debug("weights recalibrated", "weights", e.weighted.Weights)

	scores, _, err := e.combinedScores(val)
	if err != nil {
		e.log.Warn("threshold search skipped", "error", err)
		return
	}
	e.weighted.Threshold = optimizeThreshold(scores, valLabels, e.objective, e.fpCost, e.fnCost)
	e.log.Debug("threshold optimized", "threshold", e.weighted.Threshold)
}

// Predict returns one label per observation under the active policy.
func (e *Ensemble) Predict(data [][]float64) ([]detectors.Label, error) {
	labels, _, err := e.PredictWithReport(data)
	return labels, err
}

// PredictWithReport is Predict plus a per-batch report of how many
// detectors contributed, so callers can tell a degraded answer from a full
// one.
func (e *Ensemble) PredictWithReport(data [][]float64) ([]detectors.Label, Report, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.checkPredictable(data); err != nil {
		return nil, Report{}, err
	}

	if e.policy == PolicyQuorum {
		votes, report, err := e.collectVotes(data)
		if err != nil {
			return nil, report, err
		}
		return e.quorum.Combine(votes, len(data)), report, nil
	}

	scores, report, err := e.combinedScores(data)
	if err != nil {
		return nil, report, err
	}
	return e.weighted.Predict(scores), report, nil
}

// DecisionFunction returns one signed score per observation: positive
// means normal, negative anomalous, matching the detector-level sign
// convention. Scores are on the combiner's output scale, not any
// individual detector's.
func (e *Ensemble) DecisionFunction(data [][]float64) ([]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.checkPredictable(data); err != nil {
		return nil, err
	}

	scores, err := e.combinedOrAgreement(data)
	if err != nil {
		return nil, err
	}
	return e.weighted.DecisionFunction(scores), nil
}

// PredictProba returns, per observation, [probability normal, probability
// anomalous]. The value is the combined normalized score and its
// complement, with no extra calibration applied: treat it as a relative
// ranking, not a calibrated probability.
func (e *Ensemble) PredictProba(data [][]float64) ([][2]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.checkPredictable(data); err != nil {
		return nil, err
	}

	scores, err := e.combinedOrAgreement(data)
	if err != nil {
		return nil, err
	}

	probs := make([][2]float64, len(scores))
	for i, s := range scores {
		probs[i] = [2]float64{s, 1 - s}
	}
	return probs, nil
}

// combinedOrAgreement produces the policy's [0, 1] per-row score. Caller
// holds a lock.
func (e *Ensemble) combinedOrAgreement(data [][]float64) ([]float64, error) {
	if e.policy == PolicyQuorum {
		votes, _, err := e.collectVotes(data)
		if err != nil {
			return nil, err
		}
		return e.quorum.AgreementScores(votes, len(data)), nil
	}
	scores, _, err := e.combinedScores(data)
	return scores, err
}

// Weights returns a copy of the current detector weights.
func (e *Ensemble) Weights() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]float64, len(e.weighted.Weights))
	for id, w := range e.weighted.Weights {
		out[id] = w
	}
	return out
}

// Threshold returns the current decision threshold.
func (e *Ensemble) Threshold() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.weighted.Threshold
}

// Quorum returns the current vote requirement.
func (e *Ensemble) Quorum() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.quorum.Quorum
}

// Fitted reports whether the ensemble completed at least one successful
// fit.
func (e *Ensemble) Fitted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state == stateFitted
}

// Reset discards all fitted state, returning the ensemble to its
// just-constructed condition.
func (e *Ensemble) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, len(e.handles))
	for i, h := range e.handles {
		ids[i] = h.ID
	}
	e.weighted = NewWeightedCombiner(ids)
	e.quorum = &QuorumCombiner{Quorum: DefaultQuorum(len(e.handles))}
	e.active = make(map[string]bool)
	e.nFeatures = 0
	e.state = stateUnfitted
}

// checkPredictable validates state and input shape. Caller holds a lock.
func (e *Ensemble) checkPredictable(data [][]float64) error {
	if e.state != stateFitted {
		return ErrNotFitted
	}
	if len(data) > 0 && len(data[0]) != e.nFeatures {
		return &SchemaError{Want: e.nFeatures, Got: len(data[0])}
	}
	return nil
}

// combinedScores runs every active scoring detector over the batch,
// normalizes each detector's scores independently, and combines them under
// the current weights. Detectors failing on this batch are dropped from it
// only. Caller holds a lock.
func (e *Ensemble) combinedScores(data [][]float64) ([]float64, Report, error) {
	raw := make(map[string][]float64)
	var rawMu sync.Mutex
	report := e.forEachActive(func(h Handle) error {
		scorer := h.Detector.(detectors.Scorer)
		scores, err := scorer.DecisionFunction(data)
		if err != nil {
			return err
		}
		if len(scores) != len(data) {
			return fmt.Errorf("detector %q returned %d scores for %d rows", h.ID, len(scores), len(data))
		}
		rawMu.Lock()
		raw[h.ID] = scores
		rawMu.Unlock()
		return nil
	})

	if len(raw) == 0 {
		return nil, report, ErrUnavailable
	}

	normalized := make(map[string][]float64, len(raw))
	for id, scores := range raw {
		normalized[id] = Normalize(scores)
	}
	return e.weighted.Combine(normalized, len(data)), report, nil
}

// collectVotes gathers per-detector labels for the quorum policy. Caller
// holds a lock.
func (e *Ensemble) collectVotes(data [][]float64) (map[string][]detectors.Label, Report, error) {
	votes := make(map[string][]detectors.Label)
	var votesMu sync.Mutex
	report := e.forEachActive(func(h Handle) error {
		labels, err := h.Detector.Predict(data)
		if err != nil {
			return err
		}
		if len(labels) != len(data) {
			return fmt.Errorf("detector %q returned %d votes for %d rows", h.ID, len(labels), len(data))
		}
		votesMu.Lock()
		votes[h.ID] = labels
		votesMu.Unlock()
		return nil
	})

	if len(votes) == 0 {
		return nil, report, ErrUnavailable
	}
	return votes, report, nil
}

// forEachActive runs fn for every active detector concurrently, bounded by
// the available cores, applying the per-detector timeout. Callbacks must
// synchronize their own shared writes. Failures are logged and reported,
// never propagated.
func (e *Ensemble) forEachActive(fn func(h Handle) error) Report {
	report := Report{Total: len(e.active)}

	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, h := range e.handles {
		if !e.active[h.ID] {
			continue
		}
		wg.Add(1)
		go func(h Handle) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := callWithTimeout(e.timeout, func() error {
				return fn(h)
			})
			if err != nil {
				e.log.Warn("detector dropped for this batch", "detector", h.ID, "error", err)
				mu.Lock()
				report.Failed = append(report.Failed, h.ID)
				mu.Unlock()
			}
		}(h)
	}
	wg.Wait()

	report.Contributed = report.Total - len(report.Failed)
	return report
}

// fitDetectors fits the roster (or the subset) on data concurrently and
// returns the surviving set plus per-detector failure causes. Caller holds
// the write lock.
func (e *Ensemble) fitDetectors(data [][]float64, subset map[string]bool) (map[string]bool, map[string]error) {
	active := make(map[string]bool)
	causes := make(map[string]error)

	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, h := range e.handles {
		if subset != nil && !subset[h.ID] {
			continue
		}
		wg.Add(1)
		go func(h Handle) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := callWithTimeout(e.timeout, func() error {
				return h.Detector.Fit(data)
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				causes[h.ID] = err
				e.log.Warn("detector failed to fit, excluded for this cycle", "detector", h.ID, "error", err)
				return
			}
			active[h.ID] = true
		}(h)
	}
	wg.Wait()

	return active, causes
}

// callWithTimeout runs fn, failing with ErrDetectorTimeout after d. A
// detector that never returns leaks its goroutine; the timeout exists so
// one stalled detector cannot stall the whole ensemble.
func callWithTimeout(d time.Duration, fn func() error) error {
	if d <= 0 {
		return fn()
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-time.After(d):
		return ErrDetectorTimeout
	}
}

// stratifiedSplit shuffles each class independently and holds out valFrac
// of it, preserving class balance in both splits.
func stratifiedSplit(data [][]float64, labels []detectors.Label, valFrac float64, rng *rand.Rand) (train [][]float64, val [][]float64, valLabels []detectors.Label) {
	byClass := make(map[detectors.Label][]int)
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}

	for _, indices := range byClass {
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		nVal := int(float64(len(indices)) * valFrac)
		for k, idx := range indices {
			if k < nVal {
				val = append(val, data[idx])
				valLabels = append(valLabels, labels[idx])
			} else {
				train = append(train, data[idx])
			}
		}
	}
	return train, val, valLabels
}

// degenerate reports whether the validation labels contain fewer than two
// classes.
func degenerate(labels []detectors.Label) bool {
	var anomalies, normals int
	for _, l := range labels {
		if l == detectors.LabelAnomaly {
			anomalies++
		} else {
			normals++
		}
	}
	return anomalies == 0 || normals == 0
}

// uniformWeights assigns 1/n to every active detector.
func uniformWeights(active map[string]bool) map[string]float64 {
	weights := make(map[string]float64, len(active))
	for id := range active {
		weights[id] = 1.0 / float64(len(active))
	}
	return weights
}
