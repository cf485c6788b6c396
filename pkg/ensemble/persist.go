package ensemble

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/golang/snappy"
)

const bundleVersion = 1

// bundle is the persisted EnsembleState: roster, fitted detector
// internals, weights or quorum, threshold, and schema. It is saved and
// loaded as a whole; partial state is never written.
type bundle struct {
	Version     int
	Policy      Policy
	DetectorIDs []string
	Active      []string
	Blobs       map[string][]byte
	Weights     map[string]float64
	Quorum      int
	Threshold   float64
	NFeatures   int
}

// Save serializes the entire ensemble state to path as one snappy-compressed
// gob bundle. Saving an unfitted ensemble fails with ErrNotFitted.
func (e *Ensemble) Save(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != stateFitted {
		return ErrNotFitted
	}

	b := bundle{
		Version:   bundleVersion,
		Policy:    e.policy,
		Blobs:     make(map[string][]byte, len(e.active)),
		Weights:   e.weighted.Weights,
		Quorum:    e.quorum.Quorum,
		Threshold: e.weighted.Threshold,
		NFeatures: e.nFeatures,
	}
	for _, h := range e.handles {
		b.DetectorIDs = append(b.DetectorIDs, h.ID)
		if !e.active[h.ID] {
			continue
		}
		blob, err := h.Detector.Save()
		if err != nil {
			return fmt.Errorf("serialize detector %q: %w", h.ID, err)
		}
		b.Blobs[h.ID] = blob
		b.Active = append(b.Active, h.ID)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return fmt.Errorf("encode ensemble bundle: %w", err)
	}

	return os.WriteFile(path, snappy.Encode(nil, buf.Bytes()), 0o644)
}

// Load restores a bundle previously written by Save into this ensemble.
//
// The bundle's detector roster must match the constructed roster exactly; a
// missing or extra identifier is a RosterError, never a silent partial
// load. On success the ensemble is immediately ready to predict.
func (e *Ensemble) Load(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compressed, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return fmt.Errorf("decompress ensemble bundle: %w", err)
	}

	var b bundle
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&b); err != nil {
		return fmt.Errorf("decode ensemble bundle: %w", err)
	}
	if b.Version != bundleVersion {
		return fmt.Errorf("unsupported bundle version %d", b.Version)
	}
	if b.Policy != e.policy {
		return fmt.Errorf("bundle policy %q does not match ensemble policy %q", b.Policy, e.policy)
	}

	if err := e.checkRoster(b.DetectorIDs); err != nil {
		return err
	}

	byID := make(map[string]Handle, len(e.handles))
	for _, h := range e.handles {
		byID[h.ID] = h
	}

	active := make(map[string]bool, len(b.Active))
	for _, id := range b.Active {
		blob, ok := b.Blobs[id]
		if !ok {
			return fmt.Errorf("bundle marks detector %q active but carries no state for it", id)
		}
		if err := byID[id].Detector.Load(blob); err != nil {
			return fmt.Errorf("restore detector %q: %w", id, err)
		}
		active[id] = true
	}

	e.active = active
	e.weighted.Weights = b.Weights
	e.weighted.Threshold = b.Threshold
	e.quorum.Quorum = b.Quorum
	e.nFeatures = b.NFeatures
	e.state = stateFitted
	return nil
}

// checkRoster verifies set equality between the bundle's roster and the
// ensemble's. Caller holds the write lock.
func (e *Ensemble) checkRoster(bundleIDs []string) error {
	roster := make(map[string]bool, len(e.handles))
	for _, h := range e.handles {
		roster[h.ID] = true
	}
	inBundle := make(map[string]bool, len(bundleIDs))

	var missing, extra []string
	for _, id := range bundleIDs {
		inBundle[id] = true
		if !roster[id] {
			missing = append(missing, id)
		}
	}
	for _, h := range e.handles {
		if !inBundle[h.ID] {
			extra = append(extra, h.ID)
		}
	}

	if len(missing) > 0 || len(extra) > 0 {
		return &RosterError{Missing: missing, Extra: extra}
	}
	return nil
}
