package delta

import (
	"fmt"
	"math"

	"github.com/banshee-data/lapdelta/internal/telemetry"
)

// gridSlack absorbs floating point error when deciding whether the last grid
// point still fits inside the overlap, measured in grid steps.
const gridSlack = 1e-9

// GridSeries is one trace resampled onto the common grid.
type GridSeries struct {
	Label    string
	LapTime  float64
	Distance []float64
	Speed    []float64
	Time     []float64
}

// Trace returns a copy of the series as a reconstructed trace, so a grid
// pair can be fed back into Resample.
func (g *GridSeries) Trace() *telemetry.ReconstructedTrace {
	return (&telemetry.ReconstructedTrace{
		Label:    g.Label,
		LapTime:  g.LapTime,
		Distance: g.Distance,
		Speed:    g.Speed,
		Time:     g.Time,
	}).Clone()
}

// GridPair holds both traces on an identical distance abscissa.
type GridPair struct {
	Reference   GridSeries
	Target      GridSeries
	Step        float64
	Diagnostics telemetry.Diagnostics
}

// Len returns the number of grid points.
func (p *GridPair) Len() int {
	return len(p.Reference.Distance)
}

// GridLength returns the number of points a uniform grid over [lo, hi]
// holds: floor((hi-lo)/step)+1, or 0 for an empty range.
func GridLength(lo, hi, step float64) int {
	if !(hi >= lo) || !(step > 0) {
		return 0
	}
	return int(math.Floor((hi-lo)/step+gridSlack)) + 1
}

// Resample interpolates both traces onto a uniform grid spanning the
// intersection of their distance ranges. Both endpoints are included when
// the range is a whole number of steps; otherwise the grid stops short of
// the upper bound. Nothing is extrapolated.
//
// Offset-corrected targets may fold back on themselves where adjacent
// windows chose different offsets. Those seam samples are dropped (and
// reported) so each axis is strictly increasing before interpolation.
func Resample(ref, tgt *telemetry.ReconstructedTrace, step float64) (*GridPair, error) {
	if math.IsNaN(step) || math.IsInf(step, 0) || step <= 0 {
		return nil, &telemetry.ConfigurationError{Field: "grid_step_m", Reason: fmt.Sprintf("must be positive and finite, got %v", step)}
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if err := tgt.Validate(); err != nil {
		return nil, err
	}

	pair := &GridPair{Step: step}
	refD, refV, refT := monotone(ref, &pair.Diagnostics)
	tgtD, tgtV, tgtT := monotone(tgt, &pair.Diagnostics)
	if len(refD) < 2 || len(tgtD) < 2 {
		return nil, &telemetry.GridDegenerateError{Step: step, Reason: "fewer than 2 monotonic samples in a trace"}
	}

	lo := math.Max(refD[0], tgtD[0])
	hi := math.Min(refD[len(refD)-1], tgtD[len(tgtD)-1])
	n := GridLength(lo, hi, step)
	if n < 2 {
		return nil, &telemetry.GridDegenerateError{Lo: lo, Hi: hi, Step: step, Reason: "overlap holds fewer than 2 grid points"}
	}

	grid := make([]float64, n)
	for k := range grid {
		grid[k] = math.Min(lo+float64(k)*step, hi)
	}

	var err error
	if pair.Reference, err = sampleOnGrid(ref, grid, refD, refV, refT); err != nil {
		return nil, err
	}
	if pair.Target, err = sampleOnGrid(tgt, grid, tgtD, tgtV, tgtT); err != nil {
		return nil, err
	}
	return pair, nil
}

// monotone returns the trace columns with every sample that does not
// advance past the last kept distance removed.
func monotone(tr *telemetry.ReconstructedTrace, diags *telemetry.Diagnostics) (dist, speed, tm []float64) {
	dist = make([]float64, 0, tr.Len())
	speed = make([]float64, 0, tr.Len())
	tm = make([]float64, 0, tr.Len())
	for i, d := range tr.Distance {
		if n := len(dist); n > 0 && d <= dist[n-1] {
			diags.Add(telemetry.StageResample, telemetry.KindSeamSampleDropped, tr.Label, i,
				"distance %.3f folds back behind %.3f", d, dist[n-1])
			continue
		}
		dist = append(dist, d)
		speed = append(speed, tr.Speed[i])
		tm = append(tm, tr.Time[i])
	}
	return dist, speed, tm
}

func sampleOnGrid(tr *telemetry.ReconstructedTrace, grid, dist, speed, tm []float64) (GridSeries, error) {
	sp, err := fitLinear(dist, speed)
	if err != nil {
		return GridSeries{}, fmt.Errorf("trace %q speed: %w", tr.Label, err)
	}
	tp, err := fitLinear(dist, tm)
	if err != nil {
		return GridSeries{}, fmt.Errorf("trace %q time: %w", tr.Label, err)
	}
	out := GridSeries{
		Label:    tr.Label,
		LapTime:  tr.LapTime,
		Distance: make([]float64, len(grid)),
		Speed:    make([]float64, len(grid)),
		Time:     make([]float64, len(grid)),
	}
	copy(out.Distance, grid)
	for k, d := range grid {
		out.Speed[k] = sp.at(d)
		out.Time[k] = tp.at(d)
	}
	return out, nil
}
