// Package csv provides CSV file reading for tabular telemetry.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/arkado/chainwatch/pkg/detectors"
)

// Reader reads telemetry from CSV files. With a label column configured it
// also yields ground-truth labels in the +1 normal / -1 anomalous
// convention.
type Reader struct {
	file        *os.File
	reader      *csv.Reader
	hasHeader   bool
	headers     []string
	labelColumn string
	labelIndex  int // -1 when no label column
}

// Option configures a CSV reader.
type Option func(*Reader)

// WithHeader indicates the CSV has a header row.
func WithHeader(has bool) Option {
	return func(r *Reader) {
		r.hasHeader = has
	}
}

// WithLabelColumn names the header column holding ground-truth labels
// (+1 normal, -1 anomalous). Requires a header row.
func WithLabelColumn(name string) Option {
	return func(r *Reader) {
		r.labelColumn = name
	}
}

// NewReader creates a new CSV reader.
func NewReader(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		file:       file,
		reader:     csv.NewReader(file),
		hasHeader:  true,
		labelIndex: -1,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.hasHeader {
		headers, err := r.reader.Read()
		if err != nil {
			file.Close()
			return nil, err
		}
		r.headers = headers
	}

	if r.labelColumn != "" {
		for i, h := range r.headers {
			if h == r.labelColumn {
				r.labelIndex = i
				break
			}
		}
		if r.labelIndex < 0 {
			file.Close()
			return nil, fmt.Errorf("label column %q not found in header", r.labelColumn)
		}
	}

	return r, nil
}

// Headers returns the column headers.
func (r *Reader) Headers() []string {
	return r.headers
}

// Read returns all feature rows, dropping the label column if configured.
func (r *Reader) Read() ([][]float64, error) {
	rows, _, err := r.readAll()
	return rows, err
}

// ReadLabeled returns all feature rows plus a parallel label vector. It
// fails when no label column was configured.
func (r *Reader) ReadLabeled() ([][]float64, []detectors.Label, error) {
	if r.labelIndex < 0 {
		return nil, nil, errors.New("no label column configured")
	}
	return r.readAll()
}

func (r *Reader) readAll() ([][]float64, []detectors.Label, error) {
	var data [][]float64
	var labels []detectors.Label

	for {
		record, err := r.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		row, label, err := r.parseRecord(record)
		if err != nil {
			continue // Skip malformed rows
		}
		data = append(data, row)
		if r.labelIndex >= 0 {
			labels = append(labels, label)
		}
	}

	return data, labels, nil
}

// Stream returns a channel of feature rows for real-time processing.
func (r *Reader) Stream(ctx context.Context) (<-chan []float64, error) {
	out := make(chan []float64, 100)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				record, err := r.reader.Read()
				if err == io.EOF {
					return
				}
				if err != nil {
					continue
				}

				row, _, err := r.parseRecord(record)
				if err != nil {
					continue
				}

				select {
				case out <- row:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// parseRecord converts one CSV record to a feature row, peeling off the
// label column when configured.
func (r *Reader) parseRecord(record []string) ([]float64, detectors.Label, error) {
	if len(record) == 0 {
		return nil, 0, errors.New("empty row")
	}

	label := detectors.LabelNormal
	row := make([]float64, 0, len(record))
	for i, val := range record {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, 0, err
		}
		if i == r.labelIndex {
			if f < 0 {
				label = detectors.LabelAnomaly
			}
			continue
		}
		row = append(row, f)
	}
	return row, label, nil
}
