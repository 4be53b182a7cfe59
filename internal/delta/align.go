package delta

import (
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/lapdelta/internal/telemetry"
)

// mseTieTolerance is the relative MSE difference under which two offset
// candidates count as tied.
const mseTieTolerance = 1e-12

// WindowResult is the outcome of the offset search in one window.
type WindowResult struct {
	Window telemetry.AlignmentWindow `json:"window"`
	Offset float64                   `json:"offset_m"`
	// MSE of the winning offset, NaN for a degenerate window.
	MSE float64 `json:"mse"`
	// Samples is the number of reference samples inside the window.
	Samples int `json:"samples"`
	// Candidates is the number of offsets that had enough comparison points.
	Candidates int  `json:"candidates"`
	Degenerate bool `json:"degenerate"`
}

// Alignment is the Windowed Offset Aligner output.
type Alignment struct {
	// Target is a corrected copy of the input target.
	Target      *telemetry.ReconstructedTrace
	Boundaries  []float64
	Windows     []WindowResult
	Diagnostics telemetry.Diagnostics
}

// Offsets returns the chosen offset per window, in window order.
func (a *Alignment) Offsets() []float64 {
	out := make([]float64, len(a.Windows))
	for i, w := range a.Windows {
		out[i] = w.Offset
	}
	return out
}

// Align re-registers tgt against ref.
//
// The overlapping distance range is split into cfg.NumWindows equal windows.
// Within each window every offset candidate is tried by shifting the target
// distance axis and comparing its interpolated speed against the reference
// samples in the window; the candidate with the lowest mean squared error
// wins. Ties go to the smallest |offset|, then to the earlier candidate.
// The winning offset is added to every target sample whose unshifted
// distance falls in the window. Target samples before or after the overlap
// take the offset of the first or last window.
//
// Windows are searched concurrently; results are merged by window index so
// the output does not depend on scheduling.
func Align(ref, tgt *telemetry.ReconstructedTrace, cfg Config) (*Alignment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if err := tgt.Validate(); err != nil {
		return nil, err
	}

	refLo, refHi := ref.Bounds()
	tgtLo, tgtHi := tgt.Bounds()
	lo, hi := math.Max(refLo, tgtLo), math.Min(refHi, tgtHi)
	if !(hi > lo) {
		return nil, &telemetry.GridDegenerateError{Lo: lo, Hi: hi, Step: cfg.GridStep, Reason: "traces do not overlap"}
	}

	target, err := fitLinear(tgt.Distance, tgt.Speed)
	if err != nil {
		return nil, err
	}

	bounds := windowBoundaries(lo, hi, cfg.NumWindows)
	members := partitionReference(ref.Distance, bounds)
	candidates := cfg.OffsetCandidates()

	results := make([]WindowResult, cfg.NumWindows)
	var g errgroup.Group
	g.SetLimit(cfg.workers())
	for i := range results {
		g.Go(func() error {
			win := telemetry.AlignmentWindow{Index: i, Start: bounds[i], End: bounds[i+1]}
			idx := members[i]
			results[i] = searchWindow(win, ref.Distance[idx[0]:idx[1]], ref.Speed[idx[0]:idx[1]], target, candidates)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Alignment{Boundaries: bounds, Windows: results}
	for _, r := range results {
		switch {
		case r.Degenerate && r.Samples < 2:
			out.Diagnostics.Add(telemetry.StageAlign, telemetry.KindDegenerateWindow, tgt.Label, r.Window.Index,
				"window [%.3f, %.3f] holds %d reference samples, offset defaults to 0", r.Window.Start, r.Window.End, r.Samples)
		case r.Degenerate:
			out.Diagnostics.Add(telemetry.StageAlign, telemetry.KindNoUsableOffset, tgt.Label, r.Window.Index,
				"no offset candidate overlapped 2 reference samples in [%.3f, %.3f], offset defaults to 0", r.Window.Start, r.Window.End)
		}
	}

	corrected := tgt.Clone()
	for i, d := range tgt.Distance {
		corrected.Distance[i] = d + results[windowFor(bounds, d)].Offset
	}
	out.Target = corrected
	return out, nil
}

// windowBoundaries returns n+1 equally spaced boundaries over [lo, hi] with
// the endpoints pinned exactly.
func windowBoundaries(lo, hi float64, n int) []float64 {
	b := floats.Span(make([]float64, n+1), lo, hi)
	b[0], b[n] = lo, hi
	return b
}

// windowFor returns the index of the window holding distance d. A distance
// exactly on an interior boundary belongs to the lower window. Distances
// outside the boundaries clamp to the first or last window.
func windowFor(bounds []float64, d float64) int {
	n := len(bounds) - 1
	i := sort.SearchFloat64s(bounds[1:], d)
	if i >= n {
		return n - 1
	}
	return i
}

// partitionReference returns, per window, the [start, end) index range of
// the reference samples it contains. Samples outside [lo, hi] belong to no
// window. The reference distance axis is strictly increasing, so each
// window holds a contiguous run.
func partitionReference(dist []float64, bounds []float64) [][2]int {
	n := len(bounds) - 1
	hi := bounds[n]
	out := make([][2]int, n)
	j := sort.SearchFloat64s(dist, bounds[0])
	for i := range out {
		start := j
		for j < len(dist) && dist[j] <= hi && windowFor(bounds, dist[j]) == i {
			j++
		}
		out[i] = [2]int{start, j}
	}
	return out
}

// searchWindow evaluates every candidate offset for one window. It reads
// only its arguments, so windows can be searched in parallel.
func searchWindow(win telemetry.AlignmentWindow, refDist, refSpeed []float64, target *linear, candidates []float64) WindowResult {
	res := WindowResult{Window: win, Samples: len(refDist), MSE: math.NaN()}
	if len(refDist) < 2 {
		res.Degenerate = true
		return res
	}

	refBuf := make([]float64, 0, len(refDist))
	tgtBuf := make([]float64, 0, len(refDist))
	diff := make([]float64, len(refDist))
	found := false
	best, bestOffset := math.Inf(1), 0.0
	for _, o := range candidates {
		refBuf, tgtBuf = refBuf[:0], tgtBuf[:0]
		for j, x := range refDist {
			// Shifting the target by +o is reading it at x-o.
			xs := x - o
			if !target.covers(xs) {
				continue
			}
			refBuf = append(refBuf, refSpeed[j])
			tgtBuf = append(tgtBuf, target.at(xs))
		}
		if len(refBuf) < 2 {
			continue
		}
		res.Candidates++
		d := floats.SubTo(diff[:len(refBuf)], refBuf, tgtBuf)
		mse := floats.Dot(d, d) / float64(len(d))

		if found {
			tie := mseTieTolerance * math.Max(1, best)
			better := mse < best-tie || (math.Abs(mse-best) <= tie && math.Abs(o) < math.Abs(bestOffset))
			if !better {
				continue
			}
		}
		found = true
		best, bestOffset = mse, o
	}
	if !found {
		res.Degenerate = true
		return res
	}
	res.Offset = bestOffset
	res.MSE = best
	return res
}
