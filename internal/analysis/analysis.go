// Package analysis derives presentation data from a finished delta curve:
// summary statistics, evenly spaced markers, speed and overtaking zones,
// camera waypoints and sector estimates.
package analysis

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/lapdelta/internal/telemetry"
)

// ErrEmptySeries is returned when there is no curve to analyse.
var ErrEmptySeries = errors.New("empty delta series")

// Options controls the derived outputs. Zero values fall back to the
// defaults.
type Options struct {
	MarkerInterval      float64 `json:"marker_interval_m"`
	OvertakingThreshold float64 `json:"overtaking_threshold_s_per_km"`
	Waypoints           int     `json:"waypoints"`
	SmoothWindow        int     `json:"smooth_window"`
}

// DefaultOptions returns 100 m markers, a 0.1 s/km overtaking threshold,
// 20 camera waypoints and a 5-point smoothing window.
func DefaultOptions() Options {
	return Options{
		MarkerInterval:      100,
		OvertakingThreshold: 0.1,
		Waypoints:           20,
		SmoothWindow:        5,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MarkerInterval <= 0 {
		o.MarkerInterval = def.MarkerInterval
	}
	if o.OvertakingThreshold <= 0 {
		o.OvertakingThreshold = def.OvertakingThreshold
	}
	if o.Waypoints <= 0 {
		o.Waypoints = def.Waypoints
	}
	if o.SmoothWindow <= 0 {
		o.SmoothWindow = def.SmoothWindow
	}
	return o
}

// Summary holds the headline statistics of a delta curve.
type Summary struct {
	Points        int     `json:"data_points"`
	TotalDistance float64 `json:"total_distance_m"`
	GridStep      float64 `json:"grid_resolution_m"`
	FinalDelta    float64 `json:"final_delta_s"`
	MaxGap        float64 `json:"max_gap_s"`
	Mean          float64 `json:"mean_delta_s"`
	StdDev        float64 `json:"std_delta_s"`
	Min           float64 `json:"min_delta_s"`
	MinDistance   float64 `json:"min_delta_distance_m"`
	Max           float64 `json:"max_delta_s"`
	MaxDistance   float64 `json:"max_delta_distance_m"`
}

// Summarize computes the statistics of a delta curve. StdDev is the
// population standard deviation.
func Summarize(s *telemetry.DeltaSeries) (Summary, error) {
	if s == nil || len(s.Delta) == 0 || len(s.Delta) != len(s.Distance) {
		return Summary{}, ErrEmptySeries
	}
	n := len(s.Delta)
	minIdx, maxIdx := floats.MinIdx(s.Delta), floats.MaxIdx(s.Delta)
	mean, std := stat.PopMeanStdDev(s.Delta, nil)

	sum := Summary{
		Points:        n,
		TotalDistance: s.Distance[n-1] - s.Distance[0],
		FinalDelta:    s.Delta[n-1],
		Mean:          mean,
		StdDev:        std,
		Min:           s.Delta[minIdx],
		MinDistance:   s.Distance[minIdx],
		Max:           s.Delta[maxIdx],
		MaxDistance:   s.Distance[maxIdx],
	}
	sum.MaxGap = math.Max(math.Abs(sum.Min), math.Abs(sum.Max))
	if n > 1 {
		sum.GridStep = s.Distance[1] - s.Distance[0]
	}
	return sum, nil
}

// nearest returns the index of the grid distance closest to d. The grid
// must be ascending. Ties go to the lower index.
func nearest(grid []float64, d float64) int {
	i := sort.SearchFloat64s(grid, d)
	switch {
	case i == 0:
		return 0
	case i == len(grid):
		return len(grid) - 1
	case d-grid[i-1] <= grid[i]-d:
		return i - 1
	default:
		return i
	}
}

// Smooth applies a centered moving average of the given window. Samples
// beyond either end repeat the edge value. A window of 1 or less returns a
// copy.
func Smooth(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 || len(values) == 0 {
		copy(out, values)
		return out
	}

	// Pad with the edge values so every output sees a full window.
	left := window / 2
	padded := make([]float64, len(values)+window-1)
	for i := range padded {
		j := i - left
		if j < 0 {
			j = 0
		} else if j >= len(values) {
			j = len(values) - 1
		}
		padded[i] = values[j]
	}
	floats.CumSum(padded, padded)

	w := float64(window)
	for i := range out {
		hi := padded[i+window-1]
		lo := 0.0
		if i > 0 {
			lo = padded[i-1]
		}
		out[i] = (hi - lo) / w
	}
	return out
}

// gradient returns dy/dx using second-order central differences in the
// interior and one-sided differences at the ends. Spacing may be uneven.
func gradient(x, y []float64) []float64 {
	n := len(y)
	g := make([]float64, n)
	if n < 2 {
		return g
	}
	g[0] = (y[1] - y[0]) / (x[1] - x[0])
	g[n-1] = (y[n-1] - y[n-2]) / (x[n-1] - x[n-2])
	for i := 1; i < n-1; i++ {
		hs := x[i] - x[i-1]
		hd := x[i+1] - x[i]
		g[i] = (hs*hs*y[i+1] + (hd*hd-hs*hs)*y[i] - hd*hd*y[i-1]) / (hs * hd * (hd + hs))
	}
	return g
}
