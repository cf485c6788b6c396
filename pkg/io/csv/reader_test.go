package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkado/chainwatch/pkg/detectors"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "telemetry.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRead(t *testing.T) {
	path := writeCSV(t, "temperature_c,humidity_pct\n4.2,61\n5.1,58\n22.8,40\n")

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"temperature_c", "humidity_pct"}, r.Headers())

	rows, err := r.Read()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []float64{4.2, 61}, rows[0])
	assert.Equal(t, []float64{22.8, 40}, rows[2])
}

func TestReadNoHeader(t *testing.T) {
	path := writeCSV(t, "1,2\n3,4\n")

	r, err := NewReader(path, WithHeader(false))
	require.NoError(t, err)
	defer r.Close()

	rows, err := r.Read()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Empty(t, r.Headers())
}

func TestReadSkipsMalformedRows(t *testing.T) {
	path := writeCSV(t, "a,b\n1,2\nbad,4\n5,6\n")

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	rows, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {5, 6}}, rows)
}

func TestReadLabeled(t *testing.T) {
	path := writeCSV(t, "temp,qty,label\n4.2,100,1\n30.5,90,-1\n5.0,110,1\n")

	r, err := NewReader(path, WithLabelColumn("label"))
	require.NoError(t, err)
	defer r.Close()

	rows, labels, err := r.ReadLabeled()
	require.NoError(t, err)

	// The label column is peeled off the feature rows.
	assert.Equal(t, [][]float64{{4.2, 100}, {30.5, 90}, {5.0, 110}}, rows)
	assert.Equal(t, []detectors.Label{
		detectors.LabelNormal,
		detectors.LabelAnomaly,
		detectors.LabelNormal,
	}, labels)
}

func TestReadLabeledWithoutColumn(t *testing.T) {
	path := writeCSV(t, "a,b\n1,2\n")

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	_, _, err = r.ReadLabeled()
	assert.Error(t, err)
}

func TestLabelColumnNotFound(t *testing.T) {
	path := writeCSV(t, "a,b\n1,2\n")

	_, err := NewReader(path, WithLabelColumn("verdict"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verdict")
}

func TestStream(t *testing.T) {
	path := writeCSV(t, "a,b\n1,2\n3,4\n5,6\n")

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	ch, err := r.Stream(context.Background())
	require.NoError(t, err)

	var rows [][]float64
	for row := range ch {
		rows = append(rows, row)
	}
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}, {5, 6}}, rows)
}

func TestStreamCancel(t *testing.T) {
	path := writeCSV(t, "a,b\n1,2\n3,4\n")

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch, err := r.Stream(ctx)
	require.NoError(t, err)

	var count int
	for range ch {
		count++
	}
	assert.LessOrEqual(t, count, 1)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
