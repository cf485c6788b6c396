package zscore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkado/chainwatch/pkg/detectors"
)

// trainingRows alternates 9.9 and 10.1 in the first column, giving mean 10
// and stddev 0.1 exactly. The second column is flat and must carry no
// signal.
func trainingRows() [][]float64 {
	rows := make([][]float64, 20)
	for i := range rows {
		v := 9.9
		if i%2 == 1 {
			v = 10.1
		}
		rows[i] = []float64{v, 7.0}
	}
	return rows
}

func TestFitPredict(t *testing.T) {
	d := New()
	require.NoError(t, d.Fit(trainingRows()))

	labels, err := d.Predict([][]float64{
		{10.0, 7.0}, // z = 0
		{10.2, 7.0}, // z = 2
		{10.5, 7.0}, // z = 5
		{9.4, 7.0},  // z = 6
	})
	require.NoError(t, err)
	assert.Equal(t, []detectors.Label{
		detectors.LabelNormal,
		detectors.LabelNormal,
		detectors.LabelAnomaly,
		detectors.LabelAnomaly,
	}, labels)
}

func TestDecisionFunction(t *testing.T) {
	d := New()
	require.NoError(t, d.Fit(trainingRows()))

	scores, err := d.DecisionFunction([][]float64{
		{10.0, 7.0},
		{10.5, 7.0},
	})
	require.NoError(t, err)

	// threshold - max|z|: 3 - 0 and 3 - 5.
	assert.InDelta(t, 3.0, scores[0], 1e-9)
	assert.InDelta(t, -2.0, scores[1], 1e-9)
}

func TestFlatColumnIgnored(t *testing.T) {
	d := New()
	require.NoError(t, d.Fit(trainingRows()))

	// Wildly off in the zero-variance column only.
	labels, err := d.Predict([][]float64{{10.0, 9000.0}})
	require.NoError(t, err)
	assert.Equal(t, detectors.LabelNormal, labels[0])
}

func TestCustomThreshold(t *testing.T) {
	d := New(WithThreshold(1.5))
	require.NoError(t, d.Fit(trainingRows()))

	labels, err := d.Predict([][]float64{{10.2, 7.0}}) // z = 2
	require.NoError(t, err)
	assert.Equal(t, detectors.LabelAnomaly, labels[0])
}

func TestNotTrained(t *testing.T) {
	d := New()

	_, err := d.Predict([][]float64{{1}})
	assert.Error(t, err)

	_, err = d.DecisionFunction([][]float64{{1}})
	assert.Error(t, err)

	_, err = d.Save()
	assert.Error(t, err)
}

func TestFitEmpty(t *testing.T) {
	assert.Error(t, New().Fit(nil))
}

func TestSaveLoad(t *testing.T) {
	d := New()
	require.NoError(t, d.Fit(trainingRows()))

	blob, err := d.Save()
	require.NoError(t, err)

	restored := New()
	require.NoError(t, restored.Load(blob))

	probe := [][]float64{{9.7, 7.0}, {10.0, 7.0}, {10.6, 7.0}}
	want, err := d.DecisionFunction(probe)
	require.NoError(t, err)
	got, err := restored.DecisionFunction(probe)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
