package delta

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lapdelta/internal/telemetry"
	"github.com/banshee-data/lapdelta/internal/testutil"
)

func TestReconstruct_Endpoints(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		profile testutil.SpeedProfile
		lapTime float64
	}{
		{"constant", testutil.ConstantSpeed(50), 20},
		{"wavy", testutil.WavySpeed(45, 8, 130), 21.7},
		{"slow", testutil.ConstantSpeed(3), 333.3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tr := testutil.SyntheticTrace("lap", 100, 0, 10, tc.lapTime, tc.profile)

			rec, err := Reconstruct(tr)
			require.NoError(t, err)
			tm := rec.Trace.Time
			require.Len(t, tm, 100)
			assert.Equal(t, 0.0, tm[0])
			assert.Equal(t, tc.lapTime, tm[len(tm)-1])
			for i := 1; i < len(tm); i++ {
				assert.Greater(t, tm[i], tm[i-1], "time not increasing at %d", i)
			}
			assert.Empty(t, rec.Diagnostics)
		})
	}
}

func TestReconstruct_IgnoresRawTime(t *testing.T) {
	t.Parallel()

	a := testutil.SyntheticTrace("a", 50, 0, 10, 12, testutil.WavySpeed(40, 5, 90))
	b := a.Clone()
	for i := range b.Samples {
		b.Samples[i].RawTime = float64(i*i) * 3
	}

	ra, err := Reconstruct(a)
	require.NoError(t, err)
	rb, err := Reconstruct(b)
	require.NoError(t, err)
	assert.Equal(t, ra.Trace.Time, rb.Trace.Time)
}

func TestReconstruct_ConstantSpeedIsLinear(t *testing.T) {
	t.Parallel()

	tr := testutil.SyntheticTrace("lap", 100, 0, 10, 20, testutil.ConstantSpeed(50))
	rec, err := Reconstruct(tr)
	require.NoError(t, err)

	want := make([]float64, 100)
	for i := range want {
		want[i] = 20 * float64(i) / 99
	}
	testutil.AssertFloatsNear(t, rec.Trace.Time, want, 1e-9)
}

func TestReconstruct_DropsBadSamples(t *testing.T) {
	t.Parallel()

	tr := telemetry.Trace{Label: "noisy", LapTime: 10, Samples: []telemetry.RawSample{
		{Distance: 0, Speed: 10},
		{Distance: 10, Speed: 10},
		{Distance: 9.5, Speed: 10}, // backwards
		{Distance: 20, Speed: math.Inf(1)},
		{Distance: 30, Speed: -1},
		{Distance: 30, Speed: 10},
		{Distance: 30, Speed: 10}, // repeated
		{Distance: 40, Speed: 10},
	}}
	orig := tr.Clone()

	rec, err := Reconstruct(tr)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 10, 30, 40}, rec.Trace.Distance)
	assert.Equal(t, 4, rec.Dropped)
	assert.Equal(t, 2, rec.Diagnostics.Count(telemetry.KindInvalidSample))
	assert.Equal(t, 2, rec.Diagnostics.Count(telemetry.KindNonMonotonicSample))
	assert.Equal(t, orig, tr, "input must not be modified")
}

func TestReconstruct_SingleDistanceGlitch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		index  int
		glitch float64
	}{
		{"spike after start", 1, 985},
		{"spike on first sample", 0, 5000},
		{"dip mid lap", 50, 3},
		{"spike on last sample", 99, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := testutil.SyntheticTrace("glitch", 100, 0, 10, 20, testutil.ConstantSpeed(50))
			tr.Samples[tt.index].Distance = tt.glitch

			rec, err := Reconstruct(tr)
			require.NoError(t, err)
			assert.Equal(t, 1, rec.Dropped)
			assert.Equal(t, 99, rec.Trace.Len())
			assert.Equal(t, 1, rec.Diagnostics.Count(telemetry.KindNonMonotonicSample))
			assert.Equal(t, tt.index, rec.Diagnostics[0].Index)
			assert.NotContains(t, rec.Trace.Distance, tt.glitch)
			assert.Equal(t, 20.0, rec.Trace.Time[98])
		})
	}
}

func TestMonotoneSubset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		dist []float64
		want []int
	}{
		{"empty", nil, []int{}},
		{"increasing", []float64{0, 1, 2}, []int{0, 1, 2}},
		{"ambiguous pair keeps earliest", []float64{0, 10, 5}, []int{0, 1}},
		{"repeats keep first", []float64{0, 5, 5, 5, 6}, []int{0, 1, 4}},
		{"block jump back", []float64{0, 10, 20, 30, 5, 6, 7, 8, 9, 40}, []int{0, 4, 5, 6, 7, 8, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := make([]telemetry.RawSample, len(tt.dist))
			candidates := make([]int, len(tt.dist))
			for i, d := range tt.dist {
				samples[i].Distance = d
				candidates[i] = i
			}
			got := monotoneSubset(samples, candidates)
			if got == nil {
				got = []int{}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconstruct_ZeroSpeedStep(t *testing.T) {
	t.Parallel()

	tr := telemetry.Trace{Label: "stall", LapTime: 6, Samples: []telemetry.RawSample{
		{Distance: 0, Speed: 10},
		{Distance: 10, Speed: 0},
		{Distance: 20, Speed: 0},
		{Distance: 30, Speed: 10},
	}}

	rec, err := Reconstruct(tr)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Diagnostics.Count(telemetry.KindZeroSpeedStep))

	tm := rec.Trace.Time
	assert.Equal(t, 0.0, tm[0])
	assert.Equal(t, tm[1], tm[2], "zero speed step takes no time")
	assert.Equal(t, 6.0, tm[3])
	assert.InDelta(t, 3.0, tm[1], 1e-12)
}

func TestReconstruct_Errors(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name  string
		trace telemetry.Trace
	}{
		{"zero lap time", telemetry.Trace{LapTime: 0, Samples: []telemetry.RawSample{{Distance: 0, Speed: 1}, {Distance: 1, Speed: 1}}}},
		{"negative lap time", telemetry.Trace{LapTime: -3, Samples: []telemetry.RawSample{{Distance: 0, Speed: 1}, {Distance: 1, Speed: 1}}}},
		{"one sample", telemetry.Trace{LapTime: 10, Samples: []telemetry.RawSample{{Distance: 0, Speed: 1}}}},
		{"all but one non-monotonic", telemetry.Trace{LapTime: 10, Samples: []telemetry.RawSample{
			{Distance: 5, Speed: 1}, {Distance: 4, Speed: 1}, {Distance: 3, Speed: 1},
		}}},
		{"all speeds zero", telemetry.Trace{LapTime: 10, Samples: []telemetry.RawSample{
			{Distance: 0, Speed: 0}, {Distance: 10, Speed: 0}, {Distance: 20, Speed: 0},
		}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Reconstruct(tc.trace)
			var dataErr *telemetry.DataInsufficientError
			require.True(t, errors.As(err, &dataErr), "got %v", err)
			assert.ErrorIs(t, err, telemetry.ErrDataInsufficient)
		})
	}
}
