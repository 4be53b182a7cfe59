package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lapdelta/internal/telemetry"
	"github.com/banshee-data/lapdelta/internal/testutil"
)

func grid(n int, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * step
	}
	return out
}

func TestSummarize(t *testing.T) {
	s := &telemetry.DeltaSeries{
		Distance: []float64{0, 10, 20, 30},
		Delta:    []float64{0, -0.2, 0.4, 0.1},
	}
	sum, err := Summarize(s)
	require.NoError(t, err)

	assert.Equal(t, 4, sum.Points)
	assert.Equal(t, 30.0, sum.TotalDistance)
	assert.Equal(t, 10.0, sum.GridStep)
	assert.Equal(t, 0.1, sum.FinalDelta)
	assert.Equal(t, -0.2, sum.Min)
	assert.Equal(t, 10.0, sum.MinDistance)
	assert.Equal(t, 0.4, sum.Max)
	assert.Equal(t, 20.0, sum.MaxDistance)
	assert.Equal(t, 0.4, sum.MaxGap)
	assert.InDelta(t, 0.075, sum.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(0.046875), sum.StdDev, 1e-12)
}

func TestSummarize_MaxGapUsesMagnitude(t *testing.T) {
	sum, err := Summarize(&telemetry.DeltaSeries{
		Distance: []float64{0, 10},
		Delta:    []float64{-0.9, 0.3},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.9, sum.MaxGap)
}

func TestSummarize_Empty(t *testing.T) {
	for _, s := range []*telemetry.DeltaSeries{
		nil,
		{},
		{Distance: []float64{0, 1}, Delta: []float64{0}},
	} {
		_, err := Summarize(s)
		assert.ErrorIs(t, err, ErrEmptySeries)
	}
}

func TestNearest(t *testing.T) {
	g := []float64{0, 10, 20}
	tests := []struct {
		d    float64
		want int
	}{
		{-3, 0},
		{0, 0},
		{5, 0},
		{5.0001, 1},
		{14, 1},
		{20, 2},
		{99, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nearest(g, tt.d), "d=%v", tt.d)
	}
}

func TestSmooth(t *testing.T) {
	tests := []struct {
		name   string
		in     []float64
		window int
		want   []float64
	}{
		{"constant", []float64{2, 2, 2, 2}, 5, []float64{2, 2, 2, 2}},
		{"spike", []float64{0, 0, 0, 10, 0, 0, 0}, 3, []float64{0, 0, 10.0 / 3, 10.0 / 3, 10.0 / 3, 0, 0}},
		{"nearest edges", []float64{1, 2, 3}, 3, []float64{4.0 / 3, 2, 8.0 / 3}},
		{"even window", []float64{0, 0, 10, 0}, 2, []float64{0, 0, 5, 5}},
		{"window one", []float64{1, 5, 3}, 1, []float64{1, 5, 3}},
		{"empty", nil, 5, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertFloatsNear(t, Smooth(tt.in, tt.window), tt.want, 1e-12)
		})
	}
}

func TestSmooth_DoesNotModifyInput(t *testing.T) {
	in := []float64{1, 2, 3}
	out := Smooth(in, 1)
	out[0] = 99
	assert.Equal(t, []float64{1, 2, 3}, in)
}

func TestGradient(t *testing.T) {
	x := []float64{0, 1, 3, 6}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 2*v + 1
	}
	testutil.AssertFloatsNear(t, gradient(x, y), []float64{2, 2, 2, 2}, 1e-12)

	// Second order in the interior: exact for a quadratic on uneven spacing.
	for i, v := range x {
		y[i] = v * v
	}
	g := gradient(x, y)
	assert.InDelta(t, 2.0, g[1], 1e-12)
	assert.InDelta(t, 6.0, g[2], 1e-12)

	assert.Equal(t, []float64{0}, gradient([]float64{1}, []float64{4}))
}
