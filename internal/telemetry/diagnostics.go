package telemetry

import "fmt"

// Stage names the pipeline stage that raised a diagnostic.
type Stage string

const (
	StageReconstruct Stage = "reconstruct"
	StageAlign       Stage = "align"
	StageResample    Stage = "resample"
	StageIntegrate   Stage = "integrate"
)

// DiagnosticKind classifies a recoverable condition.
type DiagnosticKind string

const (
	// KindInvalidSample: non-finite distance/speed or negative speed, sample dropped.
	KindInvalidSample DiagnosticKind = "invalid_sample"
	// KindNonMonotonicSample: distance did not advance, sample dropped.
	KindNonMonotonicSample DiagnosticKind = "non_monotonic_sample"
	// KindZeroSpeedStep: average speed of a step was zero, step given zero duration.
	KindZeroSpeedStep DiagnosticKind = "zero_speed_step"
	// KindDegenerateWindow: fewer than 2 reference samples in a window, offset 0.
	KindDegenerateWindow DiagnosticKind = "degenerate_window"
	// KindNoUsableOffset: no offset candidate had 2 comparison points, offset 0.
	KindNoUsableOffset DiagnosticKind = "no_usable_offset"
	// KindSeamSampleDropped: corrected distance folded back at a window seam.
	KindSeamSampleDropped DiagnosticKind = "seam_sample_dropped"
	// KindZeroSpeedCell: average grid speed was zero, cell given zero duration.
	KindZeroSpeedCell DiagnosticKind = "zero_speed_cell"
	// KindDegenerateRescale: raw delta endpoint was zero, linear ramp used.
	KindDegenerateRescale DiagnosticKind = "degenerate_rescale"
)

// Diagnostic records one recoverable condition. Index is the sample, window
// or grid cell index the condition refers to.
type Diagnostic struct {
	Stage  Stage          `json:"stage"`
	Kind   DiagnosticKind `json:"kind"`
	Trace  string         `json:"trace,omitempty"`
	Index  int            `json:"index"`
	Detail string         `json:"detail,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Trace != "" {
		return fmt.Sprintf("%s/%s[%s#%d] %s", d.Stage, d.Kind, d.Trace, d.Index, d.Detail)
	}
	return fmt.Sprintf("%s/%s[#%d] %s", d.Stage, d.Kind, d.Index, d.Detail)
}

// Diagnostics is an ordered diagnostics channel.
type Diagnostics []Diagnostic

// Add appends a diagnostic.
func (ds *Diagnostics) Add(stage Stage, kind DiagnosticKind, trace string, index int, format string, args ...interface{}) {
	*ds = append(*ds, Diagnostic{
		Stage:  stage,
		Kind:   kind,
		Trace:  trace,
		Index:  index,
		Detail: fmt.Sprintf(format, args...),
	})
}

// Count returns how many diagnostics of the given kind were recorded.
func (ds Diagnostics) Count(kind DiagnosticKind) int {
	n := 0
	for _, d := range ds {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// ByKind tallies diagnostics per kind.
func (ds Diagnostics) ByKind() map[DiagnosticKind]int {
	out := make(map[DiagnosticKind]int)
	for _, d := range ds {
		out[d.Kind]++
	}
	return out
}
