package testutil

import (
	"errors"
	"testing"
)

func TestAssertNoError(t *testing.T) {
	t.Parallel()
	AssertNoError(t, nil)
}

func TestAssertError(t *testing.T) {
	t.Parallel()
	AssertError(t, errors.New("boom"))
}

func TestAssertFloatsNear(t *testing.T) {
	t.Parallel()
	AssertFloatsNear(t, []float64{1, 2.0000001}, []float64{1, 2}, 1e-6)
}

func TestSyntheticTrace(t *testing.T) {
	t.Parallel()

	tr := SyntheticTrace("ref", 100, 0, 10, 20, ConstantSpeed(50))
	if len(tr.Samples) != 100 {
		t.Fatalf("samples = %d, want 100", len(tr.Samples))
	}
	if got := tr.Samples[99].Distance; got != 990 {
		t.Errorf("last distance = %v, want 990", got)
	}
	if err := tr.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestShiftedTrace(t *testing.T) {
	t.Parallel()

	profile := WavySpeed(50, 5, 120)
	ref := SyntheticTrace("ref", 10, 0, 10, 20, profile)
	tgt := ShiftedTrace("tgt", 10, 0, 10, 7, 20, profile)
	for i := range ref.Samples {
		if tgt.Samples[i].Distance != ref.Samples[i].Distance+7 {
			t.Fatalf("[%d] distance = %v, want %v", i, tgt.Samples[i].Distance, ref.Samples[i].Distance+7)
		}
		if tgt.Samples[i].Speed != ref.Samples[i].Speed {
			t.Fatalf("[%d] speed differs", i)
		}
	}
}
