// Package io provides input/output utilities for telemetry ingestion and
// detection results.
package io

import (
	"context"

	"github.com/arkado/chainwatch/pkg/detectors"
)

// Reader is the interface for reading telemetry from various sources.
//
// Implementations must produce a stable column order and column count
// across training and inference reads; the ensemble rejects batches whose
// width differs from what it was fitted on.
type Reader interface {
	// Read returns the complete dataset.
	Read() ([][]float64, error)

	// Stream returns a channel of rows for real-time processing.
	Stream(ctx context.Context) (<-chan []float64, error)

	// Close releases resources.
	Close() error
}

// LabeledReader extends Reader for sources carrying ground-truth labels.
type LabeledReader interface {
	Reader

	// ReadLabeled returns the dataset plus a parallel label vector.
	ReadLabeled() ([][]float64, []detectors.Label, error)
}

// Writer is the interface for writing detection results.
type Writer interface {
	// Write outputs a single result.
	Write(result Result) error

	// WriteAll outputs multiple results.
	WriteAll(results []Result) error

	// Close releases resources.
	Close() error
}

// Result represents one scored observation.
type Result struct {
	RunID     string          `json:"run_id"`
	Index     int             `json:"index"`
	Label     detectors.Label `json:"label"`
	Score     float64         `json:"score"`
	IsAnomaly bool            `json:"is_anomaly"`
	Features  []float64       `json:"features,omitempty"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}
