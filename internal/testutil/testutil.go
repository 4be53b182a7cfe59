// Package testutil provides shared test helpers and synthetic lap fixtures.
package testutil

import (
	"math"
	"testing"

	"github.com/banshee-data/lapdelta/internal/telemetry"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertFloatsNear fails the test if the slices differ in length or any
// element differs by more than tol.
func AssertFloatsNear(t *testing.T, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > tol || math.IsNaN(got[i]) != math.IsNaN(want[i]) {
			t.Errorf("[%d] = %v, want %v (tol %g)", i, got[i], want[i], tol)
		}
	}
}

// SpeedProfile returns the speed in m/s at a distance.
type SpeedProfile func(distance float64) float64

// ConstantSpeed is a flat speed profile.
func ConstantSpeed(v float64) SpeedProfile {
	return func(float64) float64 { return v }
}

// WavySpeed oscillates around base with the given amplitude and wavelength,
// giving the aligner a unique best offset.
func WavySpeed(base, amplitude, wavelength float64) SpeedProfile {
	return func(d float64) float64 {
		return base + amplitude*math.Sin(2*math.Pi*d/wavelength) + 0.3*amplitude*math.Cos(2*math.Pi*d/(2.7*wavelength))
	}
}

// SyntheticTrace samples profile every step meters from start for n samples.
// Raw times are filled with a deliberately distorted clock.
func SyntheticTrace(label string, n int, start, step, lapTime float64, profile SpeedProfile) telemetry.Trace {
	tr := telemetry.Trace{Label: label, LapTime: lapTime, Samples: make([]telemetry.RawSample, n)}
	for i := range tr.Samples {
		d := start + float64(i)*step
		tr.Samples[i] = telemetry.RawSample{
			Distance: d,
			Speed:    profile(d),
			RawTime:  float64(i) * 0.37,
		}
	}
	return tr
}

// ShiftedTrace samples profile like SyntheticTrace but records every
// distance shift meters long, as a lap whose odometer runs ahead.
func ShiftedTrace(label string, n int, start, step, shift, lapTime float64, profile SpeedProfile) telemetry.Trace {
	tr := SyntheticTrace(label, n, start, step, lapTime, profile)
	for i := range tr.Samples {
		tr.Samples[i].Distance += shift
	}
	return tr
}
