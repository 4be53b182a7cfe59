package delta

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/lapdelta/internal/telemetry"
)

// rescaleEpsilon is the raw endpoint magnitude below which a multiplicative
// rescale is treated as undefined.
const rescaleEpsilon = 1e-12

// Integration is the Delta Integrator output.
type Integration struct {
	Series *telemetry.DeltaSeries
	// Raw is the cumulative delta before rescaling.
	Raw []float64
	// Scale is the multiplicative factor applied to Raw. It is 1 when the
	// degenerate fallback was used.
	Scale       float64
	Diagnostics telemetry.Diagnostics
}

// Integrate accumulates the per-cell time difference between the two grid
// series and anchors the curve to the authoritative lap time gap:
//
//	raw[k]   = cumRef[k] - cumTgt[k]
//	delta[k] = raw[k] * (refLap-tgtLap) / raw[last]
//
// The last value equals refLap-tgtLap exactly. When raw[last] is zero the
// factor is undefined: an equal gap keeps the raw curve, any other gap is
// spread as a linear ramp over distance and reported.
func Integrate(pair *GridPair, refLap, tgtLap float64, method IntegrationMethod) (*Integration, error) {
	n := pair.Len()
	if n < 2 || len(pair.Target.Distance) != n {
		return nil, &telemetry.GridDegenerateError{Step: pair.Step, Reason: fmt.Sprintf("grid pair holds %d/%d points", n, len(pair.Target.Distance))}
	}
	for _, v := range []float64{refLap, tgtLap} {
		if !finite(v) || v <= 0 {
			return nil, &telemetry.DataInsufficientError{Valid: n, Reason: fmt.Sprintf("lap time %v is not positive", v)}
		}
	}

	out := &Integration{Scale: 1}
	var cumRef, cumTgt []float64
	switch method {
	case IntegrateTime, "":
		cumRef = elapsedFromTime(pair.Reference.Time)
		cumTgt = elapsedFromTime(pair.Target.Time)
	case IntegrateSpeed:
		cumRef = elapsedFromSpeed(&pair.Reference, &out.Diagnostics)
		cumTgt = elapsedFromSpeed(&pair.Target, &out.Diagnostics)
	default:
		return nil, &telemetry.ConfigurationError{Field: "integration", Reason: fmt.Sprintf("unknown method %q", method)}
	}

	out.Raw = floats.SubTo(make([]float64, n), cumRef, cumTgt)
	dist := pair.Reference.Distance
	out.Series = &telemetry.DeltaSeries{
		Distance:         append([]float64(nil), dist...),
		Delta:            append([]float64(nil), out.Raw...),
		ReferenceLapTime: refLap,
		TargetLapTime:    tgtLap,
	}
	delta := out.Series.Delta
	gap := out.Series.Gap()
	last := out.Raw[n-1]

	switch {
	case math.Abs(last) > rescaleEpsilon:
		out.Scale = gap / last
		floats.Scale(out.Scale, delta)
	case gap != 0:
		span := dist[n-1] - dist[0]
		for k := range delta {
			delta[k] += gap * (dist[k] - dist[0]) / span
		}
		out.Diagnostics.Add(telemetry.StageIntegrate, telemetry.KindDegenerateRescale, "", n-1,
			"raw delta endpoint %.3g cannot be scaled to gap %.3f, added a linear ramp", last, gap)
	}
	delta[n-1] = gap
	return out, nil
}

// elapsedFromTime measures elapsed time from the first grid point.
func elapsedFromTime(tm []float64) []float64 {
	out := make([]float64, len(tm))
	for k, t := range tm {
		out[k] = t - tm[0]
	}
	return out
}

// elapsedFromSpeed integrates 1/speed cell by cell with the trapezoid rule.
func elapsedFromSpeed(g *GridSeries, diags *telemetry.Diagnostics) []float64 {
	cells := make([]float64, len(g.Distance))
	for k := 1; k < len(cells); k++ {
		avg := (g.Speed[k-1] + g.Speed[k]) / 2
		if !(avg > 0) {
			diags.Add(telemetry.StageIntegrate, telemetry.KindZeroSpeedCell, g.Label, k-1,
				"zero average speed over [%.3f, %.3f], cell treated as zero duration", g.Distance[k-1], g.Distance[k])
			continue
		}
		cells[k] = (g.Distance[k] - g.Distance[k-1]) / avg
	}
	return floats.CumSum(cells, cells)
}
