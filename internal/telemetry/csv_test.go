package telemetry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lapdelta/internal/fsutil"
)

func TestReadCSV(t *testing.T) {
	in := "Distance,Speed,Time,LapTime\n0,36,0.0,90.5\n10,72,0.7,90.5\n20,108,1.1,90.5\n"

	tr, err := ReadCSV(strings.NewReader(in), "VER", "km/h")
	require.NoError(t, err)
	assert.Equal(t, "VER", tr.Label)
	assert.Equal(t, 90.5, tr.LapTime)
	require.Len(t, tr.Samples, 3)
	assert.Equal(t, 10.0, tr.Samples[1].Distance)
	assert.Equal(t, 0.7, tr.Samples[1].RawTime)
	assert.InDelta(t, 20.0, tr.Samples[1].Speed, 1e-12)
	assert.InDelta(t, 30.0, tr.Samples[2].Speed, 1e-12)
}

func TestReadCSV_HeaderVariants(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"bom and spaces", "\ufeffdistance_m, speed_mps\n0, 10\n5, 11\n"},
		{"reordered with extras", "driver,speed,dist\nHAM,10,0\nHAM,11,5\n"},
		{"velocity alias", "dist,velocity,session_time\n0,10,100.0\n5,11,100.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := ReadCSV(strings.NewReader(tt.in), "lap", "")
			require.NoError(t, err)
			require.Len(t, tr.Samples, 2)
			assert.Equal(t, 5.0, tr.Samples[1].Distance)
			assert.Equal(t, 11.0, tr.Samples[1].Speed)
			assert.Zero(t, tr.LapTime)
		})
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		units   string
		wantErr string
	}{
		{"empty", "", "", "empty CSV"},
		{"missing speed", "distance,time\n0,0\n", "", "distance and speed"},
		{"bad float", "distance,speed\n0,10\nten,10\n", "", "line 3: distance"},
		{"short row", "distance,speed\n0\n", "", "missing field"},
		{"lap time changes", "distance,speed,lap_time\n0,10,90\n1,10,91\n", "", "differs"},
		{"bad units", "distance,speed\n0,10\n", "knots", "invalid speed units"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in), "lap", tt.units)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCSVSource_LoadTrace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lec.csv"),
		[]byte("distance,speed\n0,50\n10,50\n20,50\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nolap.csv"),
		[]byte("distance,speed\n0,50\n10,50\n"), 0644))

	src := &CSVSource{Dir: dir, LapTimes: map[string]float64{"lec": 0.4}}
	ctx := context.Background()

	tr, err := src.LoadTrace(ctx, "lec")
	require.NoError(t, err)
	assert.Equal(t, "lec", tr.Label)
	assert.Equal(t, 0.4, tr.LapTime)
	assert.Len(t, tr.Samples, 3)

	_, err = src.LoadTrace(ctx, "nolap")
	var dataErr *DataInsufficientError
	require.True(t, errors.As(err, &dataErr), "got %v", err)

	_, err = src.LoadTrace(ctx, "absent")
	assert.ErrorContains(t, err, "failed to open trace")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = src.LoadTrace(cancelled, "lec")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCSVSource_MemoryFS(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("laps/ver.csv", []byte("distance,speed_kmh,lap_time\n0,36,2\n10,36,2\n20,36,2\n"))
	mfs.WriteFile("secret.csv", []byte("distance,speed\n0,1\n1,1\n"))

	src := &CSVSource{Dir: "laps", Units: "kmph", FS: mfs}
	ctx := context.Background()

	tr, err := src.LoadTrace(ctx, "ver.csv")
	require.NoError(t, err)
	assert.Equal(t, "ver", tr.Label)
	assert.Equal(t, 2.0, tr.LapTime)
	assert.InDelta(t, 10.0, tr.Samples[1].Speed, 1e-9)

	_, err = src.LoadTrace(ctx, "../secret")
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Contains(t, err.Error(), "path traversal")
}
