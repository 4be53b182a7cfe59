package delta

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/lapdelta/internal/telemetry"
)

// Reconstruction is the Time Reconstructor output.
type Reconstruction struct {
	Trace       *telemetry.ReconstructedTrace
	Dropped     int
	Diagnostics telemetry.Diagnostics
}

// Reconstruct rebuilds the time axis of a trace from distance and speed.
//
// Provider timestamps are ignored. Invalid samples are dropped, as are
// distance outliers: only the longest strictly increasing run of distances
// is kept. Each remaining step takes
// Δd / ((v0+v1)/2) seconds; a step with zero average speed takes zero time
// and is reported as a diagnostic. The provisional axis is then scaled so
// the final sample lands exactly on the lap time.
func Reconstruct(t telemetry.Trace) (*Reconstruction, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	rec := &Reconstruction{}
	valid := make([]int, 0, len(t.Samples))
	for i, s := range t.Samples {
		if finite(s.Distance) && finite(s.Speed) && s.Speed >= 0 {
			valid = append(valid, i)
		}
	}
	kept := monotoneSubset(t.Samples, valid)

	dist := make([]float64, 0, len(kept))
	speed := make([]float64, 0, len(kept))
	k, prev := 0, math.Inf(-1)
	for i, s := range t.Samples {
		switch {
		case k < len(kept) && kept[k] == i:
			dist = append(dist, s.Distance)
			speed = append(speed, s.Speed)
			prev = s.Distance
			k++
			continue
		case !finite(s.Distance) || !finite(s.Speed) || s.Speed < 0:
			rec.Diagnostics.Add(telemetry.StageReconstruct, telemetry.KindInvalidSample, t.Label, i,
				"distance=%v speed=%v", s.Distance, s.Speed)
		default:
			rec.Diagnostics.Add(telemetry.StageReconstruct, telemetry.KindNonMonotonicSample, t.Label, i,
				"distance %.3f is out of sequence after %.3f", s.Distance, prev)
		}
		rec.Dropped++
	}
	if len(dist) < 2 {
		return nil, &telemetry.DataInsufficientError{
			Label:  t.Label,
			Valid:  len(dist),
			Reason: "fewer than 2 samples remain after removing invalid and non-monotonic samples",
		}
	}

	steps := make([]float64, len(dist))
	for i := 1; i < len(dist); i++ {
		avg := (speed[i-1] + speed[i]) / 2
		if avg == 0 {
			rec.Diagnostics.Add(telemetry.StageReconstruct, telemetry.KindZeroSpeedStep, t.Label, i,
				"zero average speed over [%.3f, %.3f], step treated as zero duration", dist[i-1], dist[i])
			continue
		}
		steps[i] = (dist[i] - dist[i-1]) / avg
	}

	tm := floats.CumSum(make([]float64, len(steps)), steps)
	total := tm[len(tm)-1]
	if !(total > 0) || math.IsInf(total, 0) {
		return nil, &telemetry.DataInsufficientError{
			Label:  t.Label,
			Valid:  len(dist),
			Reason: "no step with positive average speed, time axis is undefined",
		}
	}
	floats.Scale(t.LapTime/total, tm)
	tm[0] = 0
	for i := range tm {
		if tm[i] > t.LapTime {
			tm[i] = t.LapTime
		}
	}
	tm[len(tm)-1] = t.LapTime

	rec.Trace = &telemetry.ReconstructedTrace{
		Label:    t.Label,
		LapTime:  t.LapTime,
		Distance: dist,
		Speed:    speed,
		Time:     tm,
	}
	return rec, nil
}

// monotoneSubset returns the indices, drawn from candidates, of the longest
// run of samples with strictly increasing distance. Among equally long runs
// the one using the earliest samples wins, so a single glitch costs only
// the glitched sample.
func monotoneSubset(samples []telemetry.RawSample, candidates []int) []int {
	n := len(candidates)
	if n == 0 {
		return nil
	}

	// longest[j]: length of the longest increasing run starting at
	// candidates[j]. Walking backwards, that is a decreasing run ending at
	// j, found by patience sorting on negated distances.
	longest := make([]int, n)
	var tails []float64
	for j := n - 1; j >= 0; j-- {
		v := -samples[candidates[j]].Distance
		pos := sort.SearchFloat64s(tails, v)
		if pos == len(tails) {
			tails = append(tails, v)
		} else {
			tails[pos] = v
		}
		longest[j] = pos + 1
	}

	need := len(tails)
	out := make([]int, 0, need)
	last := math.Inf(-1)
	for j := 0; j < n && need > 0; j++ {
		d := samples[candidates[j]].Distance
		if longest[j] == need && d > last {
			out = append(out, candidates[j])
			last = d
			need--
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
