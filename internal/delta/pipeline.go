package delta

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/lapdelta/internal/monitoring"
	"github.com/banshee-data/lapdelta/internal/telemetry"
)

// Result is the full output of one delta computation.
type Result struct {
	Reference   *telemetry.ReconstructedTrace
	Target      *telemetry.ReconstructedTrace
	Alignment   *Alignment
	Grid        *GridPair
	Delta       *telemetry.DeltaSeries
	Scale       float64
	Summary     []telemetry.GridPoint
	Diagnostics telemetry.Diagnostics
	Config      Config
}

// Compute runs the four stages: both traces are reconstructed, the target
// is aligned to the reference, both are resampled onto a common grid and
// the delta is integrated and anchored to the lap time gap.
//
// Inputs are not modified. Stage failures are returned as the typed errors
// of package telemetry.
func Compute(ref, tgt telemetry.Trace, cfg Config) (*Result, error) {
	start := time.Now()
	res, err := compute(ref, tgt, cfg)
	if err != nil {
		monitoring.ObserveRun(runResult(err), time.Since(start), nil, nil)
		return nil, err
	}
	tally := make(map[string]int)
	for kind, n := range res.Diagnostics.ByKind() {
		tally[string(kind)] = n
	}
	monitoring.ObserveRun(monitoring.ResultOK, time.Since(start), tally, res.Alignment.Offsets())
	return res, nil
}

func compute(ref, tgt telemetry.Trace, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res := &Result{Config: cfg}
	refRec, err := Reconstruct(ref)
	if err != nil {
		return nil, fmt.Errorf("reconstruct reference: %w", err)
	}
	tgtRec, err := Reconstruct(tgt)
	if err != nil {
		return nil, fmt.Errorf("reconstruct target: %w", err)
	}
	res.Reference, res.Target = refRec.Trace, tgtRec.Trace
	res.Diagnostics = append(res.Diagnostics, refRec.Diagnostics...)
	res.Diagnostics = append(res.Diagnostics, tgtRec.Diagnostics...)
	if n := refRec.Dropped + tgtRec.Dropped; n > 0 {
		monitoring.Logf("[delta] reconstruct dropped %d samples (ref=%d tgt=%d)", n, refRec.Dropped, tgtRec.Dropped)
	}

	res.Alignment, err = Align(res.Reference, res.Target, cfg)
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}
	res.Diagnostics = append(res.Diagnostics, res.Alignment.Diagnostics...)
	monitoring.Logf("[delta] %s vs %s window offsets %v", ref.Label, tgt.Label, res.Alignment.Offsets())

	res.Grid, err = Resample(res.Reference, res.Alignment.Target, cfg.GridStep)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	res.Diagnostics = append(res.Diagnostics, res.Grid.Diagnostics...)

	integ, err := Integrate(res.Grid, res.Reference.LapTime, res.Target.LapTime, cfg.integration())
	if err != nil {
		return nil, fmt.Errorf("integrate: %w", err)
	}
	res.Delta, res.Scale = integ.Series, integ.Scale
	res.Diagnostics = append(res.Diagnostics, integ.Diagnostics...)
	monitoring.Logf("[delta] grid %d points step %.2fm, rescale %.6f, final delta %.3fs",
		res.Grid.Len(), cfg.GridStep, res.Scale, res.Delta.Final())

	res.Summary = BuildSummary(res.Grid, res.Delta)
	return res, nil
}

// BuildSummary joins the grid pair and delta curve into summary rows.
func BuildSummary(pair *GridPair, series *telemetry.DeltaSeries) []telemetry.GridPoint {
	n := pair.Len()
	if series.Len() < n {
		n = series.Len()
	}
	rows := make([]telemetry.GridPoint, n)
	for k := range rows {
		rows[k] = telemetry.GridPoint{
			Distance:       pair.Reference.Distance[k],
			ReferenceSpeed: pair.Reference.Speed[k],
			ReferenceTime:  pair.Reference.Time[k],
			TargetSpeed:    pair.Target.Speed[k],
			TargetTime:     pair.Target.Time[k],
			Delta:          series.Delta[k],
		}
	}
	return rows
}

// ComputeFromSource loads both laps from src and runs Compute.
func ComputeFromSource(ctx context.Context, src telemetry.Source, refID, tgtID string, cfg Config) (*Result, error) {
	ref, err := src.LoadTrace(ctx, refID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference lap %s: %w", refID, err)
	}
	tgt, err := src.LoadTrace(ctx, tgtID)
	if err != nil {
		return nil, fmt.Errorf("failed to load target lap %s: %w", tgtID, err)
	}
	return Compute(ref, tgt, cfg)
}

func runResult(err error) string {
	switch {
	case errors.Is(err, telemetry.ErrConfiguration):
		return monitoring.ResultConfigError
	case errors.Is(err, telemetry.ErrDataInsufficient):
		return monitoring.ResultDataError
	case errors.Is(err, telemetry.ErrGridDegenerate):
		return monitoring.ResultGridError
	default:
		return monitoring.ResultOtherFailure
	}
}
