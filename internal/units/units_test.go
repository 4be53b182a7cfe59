package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid mps", MPS, true},
		{"valid mph", MPH, true},
		{"valid kmph", KMPH, true},
		{"valid kph", KPH, true},
		{"invalid unit", "invalid", false},
		{"empty string", "", false},
		{"case sensitive", "MPH", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	expected := "mps, mph, kmph, kph"
	result := GetValidUnitsString()
	if result != expected {
		t.Errorf("GetValidUnitsString() = %s, want %s", result, expected)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"km/h", KPH},
		{" KPH ", KPH},
		{"m/s", MPS},
		{"mps", MPS},
		{"mi/h", MPH},
		{"kmph", KMPH},
		{"furlongs", "furlongs"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConvertToMPS(t *testing.T) {
	tests := []struct {
		name     string
		speed    float64
		fromUnit string
		expected float64
	}{
		{"5 mps to mps", 5.0, MPS, 5.0},
		{"10 mph to mps", 10.0, MPH, 10.0 / 2.2369362920544},
		{"3.6 kmph to mps", 3.6, KMPH, 1.0},
		{"324 kph to mps", 324.0, KPH, 90.0},
		{"5 unknown to mps", 5.0, "unknown", 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertToMPS(tt.speed, tt.fromUnit)
			if math.Abs(result-tt.expected) > 1e-10 {
				t.Errorf("ConvertToMPS(%f, %s) = %f, want %f", tt.speed, tt.fromUnit, result, tt.expected)
			}
		})
	}
}

func TestRoundTripConversions(t *testing.T) {
	originalMPS := 83.5

	for _, unit := range ValidUnits {
		back := ConvertToMPS(ConvertSpeed(originalMPS, unit), unit)
		if math.Abs(back-originalMPS) > 1e-10 {
			t.Errorf("%s round-trip: started %f m/s, got %f m/s", unit, originalMPS, back)
		}
	}
}
