package ensemble

import (
	"errors"
	"fmt"
)

// ErrNotFitted is returned when predict, score, or save operations run
// before a successful Fit.
var ErrNotFitted = errors.New("ensemble not fitted")

// ErrDetectorTimeout marks a detector call that exceeded the configured
// per-detector timeout. Treated like any other detector failure.
var ErrDetectorTimeout = errors.New("detector call timed out")

// ErrUnavailable is returned when every detector failed on a batch and no
// combined output can be produced.
var ErrUnavailable = errors.New("ensemble unavailable: no detector produced output")

// SchemaError reports an input whose column count differs from the column
// count seen at fit time. Never coerced.
type SchemaError struct {
	Want int
	Got  int
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema mismatch: fitted on %d features, got %d", e.Want, e.Got)
}

// FitError is returned when the whole fit cycle fails, i.e. every detector
// in the roster failed to fit. Per-detector causes are attached.
type FitError struct {
	Causes map[string]error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("ensemble fit failed: all %d detectors failed", len(e.Causes))
}

// RosterError reports a persisted bundle whose detector roster does not
// match the roster of the loading ensemble.
type RosterError struct {
	Missing []string // in the bundle but not the roster
	Extra   []string // in the roster but not the bundle
}

func (e *RosterError) Error() string {
	return fmt.Sprintf("roster mismatch: bundle has unknown detectors %v, roster detectors %v absent from bundle", e.Missing, e.Extra)
}
