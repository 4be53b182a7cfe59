// Package units provides speed unit constants and conversions for telemetry
// providers. The engine works in meters per second; providers convert on load.
package units

import "strings"

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

const mpsToMPH = 2.2369362920544

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mps, mph, kmph, kph"
}

// Normalize maps common spellings ("km/h", "m/s", "KPH") onto the unit
// constants. Unknown input is returned lowercased so IsValid rejects it.
func Normalize(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch u {
	case "m/s", "ms", "meters_per_second":
		return MPS
	case "km/h", "kmh", "kph":
		return KPH
	case "mi/h":
		return MPH
	}
	return u
}

// ConvertSpeed converts a speed from meters per second to the target units
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedMPS
	case MPH:
		return speedMPS * mpsToMPH
	case KMPH, KPH:
		return speedMPS * 3.6
	default:
		return speedMPS
	}
}

// ConvertToMPS converts a speed in the given units to meters per second.
// Unknown units are treated as m/s.
func ConvertToMPS(speed float64, fromUnits string) float64 {
	switch fromUnits {
	case MPS:
		return speed
	case MPH:
		return speed / mpsToMPH
	case KMPH, KPH:
		return speed / 3.6
	default:
		return speed
	}
}
