package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/lapdelta/internal/telemetry"
)

// Leader names which lap is ahead at a point of the curve.
type Leader string

const (
	LeaderReference Leader = "reference"
	LeaderTarget    Leader = "target"
)

func leaderOf(delta float64) Leader {
	if delta > 0 {
		return LeaderTarget
	}
	return LeaderReference
}

// Marker samples the curve at a fixed distance.
type Marker struct {
	Distance float64 `json:"distance_m"`
	Delta    float64 `json:"delta_s"`
	Leader   Leader  `json:"position_advantage"`
}

// PositionMarkers places a marker every interval meters from the first grid
// distance up to, but excluding, the last. Each marker carries the delta of
// the nearest grid point.
func PositionMarkers(distance, delta []float64, interval float64) []Marker {
	if len(distance) == 0 || len(distance) != len(delta) || interval <= 0 {
		return nil
	}
	lo, hi := distance[0], distance[len(distance)-1]
	n := int(math.Ceil((hi - lo) / interval))
	markers := make([]Marker, 0, n)
	for k := 0; k < n; k++ {
		d := lo + float64(k)*interval
		i := nearest(distance, d)
		markers = append(markers, Marker{Distance: d, Delta: delta[i], Leader: leaderOf(delta[i])})
	}
	return markers
}

// SpeedClass buckets the mean speed of both laps.
type SpeedClass string

const (
	LowSpeed    SpeedClass = "low_speed"
	MediumSpeed SpeedClass = "medium_speed"
	HighSpeed   SpeedClass = "high_speed"
)

// SpeedZone is a run of consecutive grid points in the same speed class.
type SpeedZone struct {
	Class    SpeedClass `json:"type"`
	Start    float64    `json:"start_distance_m"`
	End      float64    `json:"end_distance_m"`
	AvgSpeed float64    `json:"avg_speed_mps"`
}

// SpeedZones classifies each grid point by the mean of the two lap speeds:
// above the 75th percentile is high, below the 25th is low and everything
// else is medium. Consecutive points of one class merge into a zone.
func SpeedZones(points []telemetry.GridPoint) []SpeedZone {
	if len(points) == 0 {
		return nil
	}
	avg := make([]float64, len(points))
	for i, p := range points {
		avg[i] = (p.ReferenceSpeed + p.TargetSpeed) / 2
	}
	sorted := make([]float64, len(avg))
	copy(sorted, avg)
	sort.Float64s(sorted)
	low := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	high := stat.Quantile(0.75, stat.LinInterp, sorted, nil)

	classify := func(v float64) SpeedClass {
		switch {
		case v > high:
			return HighSpeed
		case v < low:
			return LowSpeed
		default:
			return MediumSpeed
		}
	}

	var zones []SpeedZone
	start := 0
	for i := 1; i <= len(points); i++ {
		if i < len(points) && classify(avg[i]) == classify(avg[start]) {
			continue
		}
		zones = append(zones, SpeedZone{
			Class:    classify(avg[start]),
			Start:    points[start].Distance,
			End:      points[i-1].Distance,
			AvgSpeed: stat.Mean(avg[start:i], nil),
		})
		start = i
	}
	return zones
}

// OvertakingZone is a stretch where the delta changes faster than the
// threshold.
type OvertakingZone struct {
	Start       float64 `json:"start_distance_m"`
	End         float64 `json:"end_distance_m"`
	DeltaChange float64 `json:"delta_change_s"`
	Intensity   float64 `json:"intensity_s_per_m"`
}

// OvertakingZones finds stretches where |d(delta)/d(distance)| exceeds
// threshold seconds per kilometer. A zone ends at the first point back
// under the threshold; a zone still open at the end of the lap closes on
// the last point.
func OvertakingZones(distance, delta []float64, threshold float64) []OvertakingZone {
	if len(distance) < 2 || len(distance) != len(delta) {
		return nil
	}
	grad := gradient(distance, delta)
	abs := make([]float64, len(grad))
	for i, g := range grad {
		abs[i] = math.Abs(g)
	}
	perMeter := threshold / 1000

	var zones []OvertakingZone
	start := -1
	closeZone := func(end int) {
		zones = append(zones, OvertakingZone{
			Start:       distance[start],
			End:         distance[end],
			DeltaChange: delta[end] - delta[start],
			Intensity:   floats.Max(abs[start : end+1]),
		})
		start = -1
	}
	for i, g := range abs {
		significant := g > perMeter
		switch {
		case significant && start < 0:
			start = i
		case !significant && start >= 0:
			closeZone(i)
		}
	}
	if start >= 0 {
		closeZone(len(abs) - 1)
	}
	return zones
}

// Waypoint is a camera hint for animating the comparison.
type Waypoint struct {
	Distance       float64 `json:"distance_m"`
	Delta          float64 `json:"delta_s"`
	Style          string  `json:"camera_style"`
	CameraDistance float64 `json:"camera_distance_m"`
	Focus          Leader  `json:"focus"`
}

// CameraWaypoints picks n evenly spaced grid points. The camera closes in as
// the gap grows and focuses on the lap that is ahead.
func CameraWaypoints(distance, delta []float64, n int) []Waypoint {
	if len(distance) == 0 || len(distance) != len(delta) || n <= 0 {
		return nil
	}
	last := len(distance) - 1
	step := 0.0
	if n > 1 {
		step = float64(last) / float64(n-1)
	}

	out := make([]Waypoint, n)
	for k := range out {
		i := int(float64(k) * step)
		if k == n-1 && n > 1 {
			i = last
		}
		wp := Waypoint{Distance: distance[i], Delta: delta[i], Focus: leaderOf(delta[i])}
		switch gap := math.Abs(delta[i]); {
		case gap > 0.5:
			wp.Style, wp.CameraDistance = "close_comparison", 15
		case gap > 0.2:
			wp.Style, wp.CameraDistance = "medium_view", 25
		default:
			wp.Style, wp.CameraDistance = "wide_view", 40
		}
		out[k] = wp
	}
	return out
}

// Sectors is a rough three-sector split of the lap.
type Sectors struct {
	Sector1End float64 `json:"sector1_end_m"`
	Sector2End float64 `json:"sector2_end_m"`
	Sector3End float64 `json:"sector3_end_m"`
}

// SectorBoundaries splits the distance range at 30% and 65%.
func SectorBoundaries(distance []float64) Sectors {
	if len(distance) == 0 {
		return Sectors{}
	}
	lo, hi := distance[0], distance[len(distance)-1]
	span := hi - lo
	return Sectors{
		Sector1End: lo + 0.3*span,
		Sector2End: lo + 0.65*span,
		Sector3End: hi,
	}
}

// Animation bundles the derived outputs of one comparison.
type Animation struct {
	Markers         []Marker         `json:"position_markers"`
	SpeedZones      []SpeedZone      `json:"speed_zones"`
	OvertakingZones []OvertakingZone `json:"overtaking_zones"`
	Waypoints       []Waypoint       `json:"camera_waypoints"`
	Sectors         Sectors          `json:"sectors"`
	SmoothedDelta   []float64        `json:"smoothed_delta_s"`
}

// Animate derives every output from a summary table.
func Animate(points []telemetry.GridPoint, opts Options) Animation {
	opts = opts.withDefaults()
	distance := make([]float64, len(points))
	delta := make([]float64, len(points))
	for i, p := range points {
		distance[i] = p.Distance
		delta[i] = p.Delta
	}
	return Animation{
		Markers:         PositionMarkers(distance, delta, opts.MarkerInterval),
		SpeedZones:      SpeedZones(points),
		OvertakingZones: OvertakingZones(distance, delta, opts.OvertakingThreshold),
		Waypoints:       CameraWaypoints(distance, delta, opts.Waypoints),
		Sectors:         SectorBoundaries(distance),
		SmoothedDelta:   Smooth(delta, opts.SmoothWindow),
	}
}
