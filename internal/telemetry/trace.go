// Package telemetry defines the lap telemetry data model shared by the delta
// engine and the providers that feed it.
//
// Distances are meters, speeds are meters per second and times are seconds
// throughout. Providers that record other speed units convert on load (see
// the units package).
package telemetry

import (
	"fmt"
	"math"
)

// RawSample is a single provider sample. RawTime is carried for reference
// only; the engine rebuilds the time axis from distance and speed.
type RawSample struct {
	Distance float64 `json:"distance_m"`
	Speed    float64 `json:"speed_mps"`
	RawTime  float64 `json:"raw_time_s"`
}

// Trace is one lap of one driver as delivered by a provider.
type Trace struct {
	Label   string      `json:"label"`
	LapTime float64     `json:"lap_time_s"`
	Samples []RawSample `json:"samples"`
}

// Validate checks the provider-level invariants: a positive, finite lap time
// and at least two samples. Distance monotonicity is enforced later by the
// reconstructor, which drops offending samples instead of failing.
func (t Trace) Validate() error {
	if math.IsNaN(t.LapTime) || math.IsInf(t.LapTime, 0) || t.LapTime <= 0 {
		return &DataInsufficientError{
			Label:  t.Label,
			Valid:  len(t.Samples),
			Reason: fmt.Sprintf("lap time must be positive and finite, got %v", t.LapTime),
		}
	}
	if len(t.Samples) < 2 {
		return &DataInsufficientError{
			Label:  t.Label,
			Valid:  len(t.Samples),
			Reason: "at least 2 samples are required",
		}
	}
	return nil
}

// Clone returns a deep copy of the trace.
func (t Trace) Clone() Trace {
	out := Trace{Label: t.Label, LapTime: t.LapTime}
	if t.Samples != nil {
		out.Samples = make([]RawSample, len(t.Samples))
		copy(out.Samples, t.Samples)
	}
	return out
}

// ReconstructedTrace is a cleaned trace with a synthetic time axis. The
// columns always have equal length.
type ReconstructedTrace struct {
	Label    string
	LapTime  float64
	Distance []float64
	Speed    []float64
	Time     []float64
}

// Len returns the number of samples.
func (r *ReconstructedTrace) Len() int {
	return len(r.Distance)
}

// Bounds returns the first and last distance of the trace. The distance
// column is not required to be monotonic (offset-corrected targets may fold
// at window seams), so the extremes are scanned.
func (r *ReconstructedTrace) Bounds() (lo, hi float64) {
	if len(r.Distance) == 0 {
		return math.NaN(), math.NaN()
	}
	lo, hi = r.Distance[0], r.Distance[0]
	for _, d := range r.Distance[1:] {
		if d < lo {
			lo = d
		}
		if d > hi {
			hi = d
		}
	}
	return lo, hi
}

// Validate checks that the columns line up and that there is enough data to
// interpolate.
func (r *ReconstructedTrace) Validate() error {
	n := len(r.Distance)
	if len(r.Speed) != n || len(r.Time) != n {
		return fmt.Errorf("trace %q: column length mismatch (distance=%d speed=%d time=%d)",
			r.Label, n, len(r.Speed), len(r.Time))
	}
	if n < 2 {
		return &DataInsufficientError{Label: r.Label, Valid: n, Reason: "at least 2 samples are required"}
	}
	return nil
}

// Clone returns a deep copy of the trace.
func (r *ReconstructedTrace) Clone() *ReconstructedTrace {
	return &ReconstructedTrace{
		Label:    r.Label,
		LapTime:  r.LapTime,
		Distance: cloneFloats(r.Distance),
		Speed:    cloneFloats(r.Speed),
		Time:     cloneFloats(r.Time),
	}
}

func cloneFloats(xs []float64) []float64 {
	if xs == nil {
		return nil
	}
	out := make([]float64, len(xs))
	copy(out, xs)
	return out
}
