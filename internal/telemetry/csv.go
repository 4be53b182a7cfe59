package telemetry

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/lapdelta/internal/fsutil"
	"github.com/banshee-data/lapdelta/internal/security"
	"github.com/banshee-data/lapdelta/internal/units"
)

// Source provides raw traces by identifier. Retrieval happens strictly before
// the engine runs.
type Source interface {
	LoadTrace(ctx context.Context, id string) (Trace, error)
}

// Column aliases accepted in CSV headers (lowercased, trimmed).
var (
	distanceColumns = []string{"distance", "distance_m", "dist"}
	speedColumns    = []string{"speed", "speed_mps", "speed_kmh", "speed_kph", "speed_mph", "velocity"}
	timeColumns     = []string{"time", "raw_time", "time_s", "session_time"}
	lapTimeColumns  = []string{"lap_time", "laptime", "lap_time_s"}
)

// ReadCSV parses a headered CSV of samples. Speeds are converted from
// speedUnits to m/s. If a lap_time column is present its value must be
// constant and becomes the trace lap time; otherwise LapTime is left at zero
// for the caller to fill in.
func ReadCSV(r io.Reader, label, speedUnits string) (Trace, error) {
	speedUnits = units.Normalize(speedUnits)
	if speedUnits == "" {
		speedUnits = units.MPS
	}
	if !units.IsValid(speedUnits) {
		return Trace{}, fmt.Errorf("invalid speed units %q (valid: %s)", speedUnits, units.GetValidUnitsString())
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Trace{}, fmt.Errorf("trace %q: empty CSV", label)
		}
		return Trace{}, fmt.Errorf("trace %q: failed to read header: %w", label, err)
	}
	cols := indexHeader(header)
	distIdx := findColumn(cols, distanceColumns)
	speedIdx := findColumn(cols, speedColumns)
	if distIdx < 0 || speedIdx < 0 {
		return Trace{}, fmt.Errorf("trace %q: header must contain distance and speed columns, got %v", label, header)
	}
	timeIdx := findColumn(cols, timeColumns)
	lapIdx := findColumn(cols, lapTimeColumns)

	trace := Trace{Label: label}
	lapTimeSet := false
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return Trace{}, fmt.Errorf("trace %q line %d: %w", label, line, err)
		}

		dist, err := parseField(rec, distIdx)
		if err != nil {
			return Trace{}, fmt.Errorf("trace %q line %d: distance: %w", label, line, err)
		}
		speed, err := parseField(rec, speedIdx)
		if err != nil {
			return Trace{}, fmt.Errorf("trace %q line %d: speed: %w", label, line, err)
		}
		var rawTime float64
		if timeIdx >= 0 {
			if rawTime, err = parseField(rec, timeIdx); err != nil {
				return Trace{}, fmt.Errorf("trace %q line %d: time: %w", label, line, err)
			}
		}
		if lapIdx >= 0 && lapIdx < len(rec) && strings.TrimSpace(rec[lapIdx]) != "" {
			lt, err := parseField(rec, lapIdx)
			if err != nil {
				return Trace{}, fmt.Errorf("trace %q line %d: lap_time: %w", label, line, err)
			}
			if lapTimeSet && math.Abs(lt-trace.LapTime) > 1e-9 {
				return Trace{}, fmt.Errorf("trace %q line %d: lap_time %v differs from earlier value %v", label, line, lt, trace.LapTime)
			}
			trace.LapTime = lt
			lapTimeSet = true
		}

		trace.Samples = append(trace.Samples, RawSample{
			Distance: dist,
			Speed:    units.ConvertToMPS(speed, speedUnits),
			RawTime:  rawTime,
		})
	}
	return trace, nil
}

func indexHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.TrimPrefix(key, "\ufeff")
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return cols
}

func findColumn(cols map[string]int, aliases []string) int {
	for _, a := range aliases {
		if i, ok := cols[a]; ok {
			return i
		}
	}
	return -1
}

func parseField(rec []string, idx int) (float64, error) {
	if idx >= len(rec) {
		return 0, fmt.Errorf("missing field %d", idx+1)
	}
	s := strings.TrimSpace(rec[idx])
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float '%s': %w", s, err)
	}
	return v, nil
}

// CSVSource loads traces from <Dir>/<id>.csv. LapTimes overrides or supplies
// lap times per id when the files carry none. When Dir is set, ids that
// resolve outside it are rejected. A nil FS reads from the host filesystem.
type CSVSource struct {
	Dir      string
	Units    string
	LapTimes map[string]float64
	FS       fsutil.FileSystem
}

// LoadTrace implements Source.
func (s *CSVSource) LoadTrace(ctx context.Context, id string) (Trace, error) {
	if err := ctx.Err(); err != nil {
		return Trace{}, err
	}
	path := id
	if filepath.Ext(path) != ".csv" {
		path += ".csv"
	}
	if s.Dir != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.Dir, path)
		}
		if err := security.WithinDir(path, s.Dir); err != nil {
			return Trace{}, &ConfigurationError{Field: "trace", Reason: err.Error()}
		}
	}
	f, err := fsutil.Or(s.FS).Open(path)
	if err != nil {
		return Trace{}, fmt.Errorf("failed to open trace %q: %w", id, err)
	}
	defer f.Close()

	label := strings.TrimSuffix(filepath.Base(path), ".csv")
	trace, err := ReadCSV(f, label, s.Units)
	if err != nil {
		return Trace{}, err
	}
	if lt, ok := s.LapTimes[id]; ok {
		trace.LapTime = lt
	}
	if err := trace.Validate(); err != nil {
		return Trace{}, err
	}
	return trace, nil
}
