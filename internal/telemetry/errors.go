package telemetry

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching. The typed errors below unwrap to
// these.
var (
	ErrDataInsufficient = errors.New("insufficient telemetry data")
	ErrGridDegenerate   = errors.New("degenerate resampling grid")
	ErrConfiguration    = errors.New("invalid configuration")
)

// DataInsufficientError reports a trace that cannot yield a time axis.
type DataInsufficientError struct {
	Label  string
	Valid  int
	Reason string
}

func (e *DataInsufficientError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("insufficient telemetry data (%d valid samples): %s", e.Valid, e.Reason)
	}
	return fmt.Sprintf("trace %q: insufficient telemetry data (%d valid samples): %s", e.Label, e.Valid, e.Reason)
}

func (e *DataInsufficientError) Unwrap() error { return ErrDataInsufficient }

// GridDegenerateError reports an empty or too narrow distance overlap.
type GridDegenerateError struct {
	Lo     float64
	Hi     float64
	Step   float64
	Reason string
}

func (e *GridDegenerateError) Error() string {
	return fmt.Sprintf("degenerate grid over [%.3f, %.3f] step %.3f: %s", e.Lo, e.Hi, e.Step, e.Reason)
}

func (e *GridDegenerateError) Unwrap() error { return ErrGridDegenerate }

// ConfigurationError reports an invalid engine option.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }
