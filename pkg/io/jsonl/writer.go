// Package jsonl writes detection results as JSON Lines, one result per
// line, suitable for piping into downstream reporting.
package jsonl

import (
	"encoding/json"
	"io"
	"os"

	"github.com/google/uuid"

	cwio "github.com/arkado/chainwatch/pkg/io"
)

// Writer emits Results as JSON Lines. Every writer carries a run
// identifier stamped on each result so downstream consumers can group
// output by detection run.
type Writer struct {
	w     io.Writer
	file  *os.File
	runID string
	enc   *json.Encoder
}

// NewWriter creates a writer targeting w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:     w,
		runID: uuid.NewString(),
		enc:   json.NewEncoder(w),
	}
}

// NewFileWriter creates a writer targeting a file, truncating it.
func NewFileWriter(filename string) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	w := NewWriter(file)
	w.file = file
	return w, nil
}

// RunID returns the identifier stamped on this writer's results.
func (w *Writer) RunID() string {
	return w.runID
}

// Write outputs a single result.
func (w *Writer) Write(result cwio.Result) error {
	result.RunID = w.runID
	return w.enc.Encode(result)
}

// WriteAll outputs multiple results.
func (w *Writer) WriteAll(results []cwio.Result) error {
	for _, r := range results {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close releases resources.
func (w *Writer) Close() error {
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

var _ cwio.Writer = (*Writer)(nil)
