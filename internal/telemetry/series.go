package telemetry

// AlignmentWindow is one equal-width partition of the overlapping distance
// range of two traces.
type AlignmentWindow struct {
	Index int     `json:"index"`
	Start float64 `json:"start_m"`
	End   float64 `json:"end_m"`
}

// Width returns the window length in meters.
func (w AlignmentWindow) Width() float64 {
	return w.End - w.Start
}

// GridPoint is one row of the summary table. Field order is the export
// contract consumed by the report writers.
type GridPoint struct {
	Distance       float64 `json:"distance_m"`
	ReferenceSpeed float64 `json:"reference_speed_mps"`
	ReferenceTime  float64 `json:"reference_time_s"`
	TargetSpeed    float64 `json:"target_speed_mps"`
	TargetTime     float64 `json:"target_time_s"`
	Delta          float64 `json:"delta_s"`
}

// DeltaSeries is the distance-indexed delta curve. A positive delta means
// the target is ahead of the reference at that distance. The last value
// equals ReferenceLapTime - TargetLapTime.
type DeltaSeries struct {
	Distance         []float64 `json:"distance_m"`
	Delta            []float64 `json:"delta_s"`
	ReferenceLapTime float64   `json:"reference_lap_time_s"`
	TargetLapTime    float64   `json:"target_lap_time_s"`
}

// Len returns the number of grid points.
func (s *DeltaSeries) Len() int {
	return len(s.Distance)
}

// Final returns the delta at the last grid point.
func (s *DeltaSeries) Final() float64 {
	if len(s.Delta) == 0 {
		return 0
	}
	return s.Delta[len(s.Delta)-1]
}

// Gap returns the authoritative lap time gap the curve is anchored to.
func (s *DeltaSeries) Gap() float64 {
	return s.ReferenceLapTime - s.TargetLapTime
}
