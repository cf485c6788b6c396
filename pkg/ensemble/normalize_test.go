package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  []float64
		want []float64
	}{
		{
			name: "distinct min and max",
			raw:  []float64{2, 4, 6},
			want: []float64{0, 0.5, 1},
		},
		{
			name: "negative scores",
			raw:  []float64{-10, 0, 10},
			want: []float64{0, 0.5, 1},
		},
		{
			name: "constant batch maps to midpoint",
			raw:  []float64{3.3, 3.3, 3.3, 3.3},
			want: []float64{0.5, 0.5, 0.5, 0.5},
		},
		{
			name: "single element maps to midpoint",
			raw:  []float64{42},
			want: []float64{0.5},
		},
		{
			name: "empty batch",
			raw:  nil,
			want: []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			assert.Equal(t, len(tt.want), len(got))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-12)
			}
		})
	}
}

func TestNormalizeBounds(t *testing.T) {
	raw := []float64{-3.7, 12.1, 0.004, 8.8, -0.5, 12.1}
	got := Normalize(raw)

	for _, v := range got {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}

	// The raw max maps to exactly 1 and the raw min to exactly 0.
	assert.Equal(t, 1.0, got[1])
	assert.Equal(t, 0.0, got[0])
}
