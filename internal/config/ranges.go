package config

import (
	"fmt"
	"strconv"
	"strings"
)

// RangeSpec is a "min:max:step" range as accepted on the command line.
type RangeSpec struct {
	Min  float64
	Max  float64
	Step float64
}

// ParseRangeSpec parses a "min:max:step" string into a RangeSpec.
// Returns an error if the format is invalid, a value cannot be parsed, the
// step is not positive or the range is inverted.
func ParseRangeSpec(s string) (RangeSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return RangeSpec{}, fmt.Errorf("invalid range format %q: expected min:max:step", s)
	}

	min, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return RangeSpec{}, fmt.Errorf("invalid min value %q: %w", parts[0], err)
	}

	max, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return RangeSpec{}, fmt.Errorf("invalid max value %q: %w", parts[1], err)
	}

	step, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return RangeSpec{}, fmt.Errorf("invalid step value %q: %w", parts[2], err)
	}

	if step <= 0 {
		return RangeSpec{}, fmt.Errorf("step must be positive, got %f", step)
	}
	if min > max {
		return RangeSpec{}, fmt.Errorf("min %f exceeds max %f", min, max)
	}

	return RangeSpec{Min: min, Max: max, Step: step}, nil
}

func (r RangeSpec) String() string {
	return fmt.Sprintf("%g:%g:%g", r.Min, r.Max, r.Step)
}
