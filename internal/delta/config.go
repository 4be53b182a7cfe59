// Package delta implements the lap alignment and delta computation engine:
// time reconstruction, windowed offset alignment, common grid resampling and
// delta integration.
//
// Sign conventions:
//   - An alignment offset is added to the target's distance axis. A target
//     whose distances read 10 m long is corrected by -10.
//   - A positive delta means the target is ahead of the reference. The final
//     delta equals referenceLapTime - targetLapTime.
package delta

import (
	"fmt"
	"math"
	"runtime"

	"github.com/banshee-data/lapdelta/internal/telemetry"
)

// IntegrationMethod selects how the delta integrator measures per-cell time.
type IntegrationMethod string

const (
	// IntegrateTime differences the grid-aligned reconstructed times.
	IntegrateTime IntegrationMethod = "time"
	// IntegrateSpeed integrates 1/speed over each cell with the trapezoid rule.
	IntegrateSpeed IntegrationMethod = "speed"
)

// maxOffsetCandidates bounds the search so a tiny step cannot blow up the
// per-window work.
const maxOffsetCandidates = 10000

// Config holds the engine options.
type Config struct {
	NumWindows  int               `json:"num_windows"`
	OffsetMin   float64           `json:"offset_min_m"`
	OffsetMax   float64           `json:"offset_max_m"`
	OffsetStep  float64           `json:"offset_step_m"`
	GridStep    float64           `json:"grid_step_m"`
	Workers     int               `json:"workers"`
	Integration IntegrationMethod `json:"integration"`
}

// DefaultConfig returns the stock options: 4 windows, offsets -15..15 m at
// 0.5 m, a 5 m grid and time-based integration.
func DefaultConfig() Config {
	return Config{
		NumWindows:  4,
		OffsetMin:   -15,
		OffsetMax:   15,
		OffsetStep:  0.5,
		GridStep:    5,
		Integration: IntegrateTime,
	}
}

// Validate checks the options and returns a *telemetry.ConfigurationError
// for the first problem found.
func (c Config) Validate() error {
	if c.NumWindows < 1 {
		return &telemetry.ConfigurationError{Field: "num_windows", Reason: fmt.Sprintf("must be >= 1, got %d", c.NumWindows)}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"offset_min_m", c.OffsetMin},
		{"offset_max_m", c.OffsetMax},
		{"offset_step_m", c.OffsetStep},
		{"grid_step_m", c.GridStep},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &telemetry.ConfigurationError{Field: f.name, Reason: fmt.Sprintf("must be finite, got %v", f.v)}
		}
	}
	if c.OffsetStep <= 0 {
		return &telemetry.ConfigurationError{Field: "offset_step_m", Reason: fmt.Sprintf("must be positive, got %v", c.OffsetStep)}
	}
	if c.OffsetMin > c.OffsetMax {
		return &telemetry.ConfigurationError{Field: "offset range", Reason: fmt.Sprintf("is inverted: min %v > max %v", c.OffsetMin, c.OffsetMax)}
	}
	if c.GridStep <= 0 {
		return &telemetry.ConfigurationError{Field: "grid_step_m", Reason: fmt.Sprintf("must be positive, got %v", c.GridStep)}
	}
	if c.Workers < 0 {
		return &telemetry.ConfigurationError{Field: "workers", Reason: fmt.Sprintf("must be >= 0, got %d", c.Workers)}
	}
	if n := candidateCount(c.OffsetMin, c.OffsetMax, c.OffsetStep); n > maxOffsetCandidates {
		return &telemetry.ConfigurationError{Field: "offset_step_m", Reason: fmt.Sprintf("yields %d candidates (max %d)", n, maxOffsetCandidates)}
	}
	switch c.Integration {
	case "", IntegrateTime, IntegrateSpeed:
	default:
		return &telemetry.ConfigurationError{Field: "integration", Reason: fmt.Sprintf("unknown method %q", c.Integration)}
	}
	return nil
}

// OffsetCandidates returns the discretized offsets in test order: ascending
// from OffsetMin, inclusive of OffsetMax when it lies on the step.
func (c Config) OffsetCandidates() []float64 {
	if c.OffsetStep <= 0 || c.OffsetMin > c.OffsetMax {
		return nil
	}
	n := candidateCount(c.OffsetMin, c.OffsetMax, c.OffsetStep)
	if n > maxOffsetCandidates {
		return nil
	}
	out := make([]float64, n)
	for k := range out {
		// Index arithmetic, not accumulation, so 0 lands exactly on 0.
		v := c.OffsetMin + float64(k)*c.OffsetStep
		out[k] = math.Round(v*1e9) / 1e9
	}
	return out
}

func (c Config) integration() IntegrationMethod {
	if c.Integration == "" {
		return IntegrateTime
	}
	return c.Integration
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func candidateCount(lo, hi, step float64) int {
	return int(math.Floor((hi-lo)/step+1e-9)) + 1
}
