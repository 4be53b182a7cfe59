package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/lapdelta/internal/analysis"
	"github.com/banshee-data/lapdelta/internal/delta"
	"github.com/banshee-data/lapdelta/internal/monitoring"
	"github.com/banshee-data/lapdelta/internal/telemetry"
	"github.com/banshee-data/lapdelta/internal/testutil"
	"github.com/banshee-data/lapdelta/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func computeResult(t *testing.T) *delta.Result {
	t.Helper()
	ref := testutil.SyntheticTrace("VER", 101, 0, 10, 20, testutil.WavySpeed(50, 5, 150))
	tgt := testutil.SyntheticTrace("LEC", 101, 0, 10, 20.25, testutil.WavySpeed(50, 5, 150))
	cfg := delta.DefaultConfig()
	cfg.GridStep = 10
	res, err := delta.Compute(ref, tgt, cfg)
	require.NoError(t, err)
	return res
}

func TestWriteSummaryCSV(t *testing.T) {
	points := []telemetry.GridPoint{
		{Distance: 0, ReferenceSpeed: 50, ReferenceTime: 0, TargetSpeed: 49.5, TargetTime: 0, Delta: 0},
		{Distance: 5, ReferenceSpeed: 50.25, ReferenceTime: 0.1, TargetSpeed: 50, TargetTime: 0.1005, Delta: -0.0005},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteSummaryCSV(&buf, points))

	want := "distance_m,reference_speed_mps,reference_time_s,target_speed_mps,target_time_s,delta_s\n" +
		"0.000,50.000000,0.000000,49.500000,0.000000,0.000000\n" +
		"5.000,50.250000,0.100000,50.000000,0.100500,-0.000500\n"
	assert.Equal(t, want, buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteSummaryCSV_WriteError(t *testing.T) {
	err := WriteSummaryCSV(failingWriter{}, []telemetry.GridPoint{{}})
	assert.ErrorContains(t, err, "disk full")
}

func TestBuildDocument(t *testing.T) {
	res := computeResult(t)
	clock := timeutil.NewMockClock(time.Date(2024, 5, 26, 14, 30, 0, 0, time.UTC))

	doc, err := BuildDocument(res, clock, analysis.DefaultOptions())
	require.NoError(t, err)

	md := doc.Metadata
	assert.Equal(t, "VER", md.Reference)
	assert.Equal(t, "LEC", md.Target)
	assert.Equal(t, 20.0, md.ReferenceLapTime)
	assert.Equal(t, 20.25, md.TargetLapTime)
	assert.Equal(t, "2024-05-26T14:30:00Z", md.GeneratedAt)
	assert.Contains(t, md.Generator, "lapdelta")
	assert.Equal(t, res.Config, md.Config)
	assert.Len(t, md.Windows, res.Config.NumWindows)
	assert.Equal(t, 101, md.Summary.Points)
	assert.InDelta(t, -0.25, md.Summary.FinalDelta, 1e-9)

	assert.Len(t, doc.Telemetry.Distance, 101)
	assert.Len(t, doc.Telemetry.Delta, 101)
	assert.Equal(t, res.Delta.Delta, doc.Telemetry.Delta)
	assert.Len(t, doc.Animation.Waypoints, 20)
	assert.Len(t, doc.Animation.Markers, 10)
	assert.Equal(t, 1000.0, doc.Animation.Sectors.Sector3End)
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	res := computeResult(t)
	clock := timeutil.NewMockClock(time.Date(2024, 5, 26, 14, 30, 0, 0, time.UTC))
	doc, err := BuildDocument(res, clock, analysis.Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, doc))
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \"metadata\""))

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Contains(t, raw, "metadata")
	assert.Contains(t, raw, "telemetry")
	assert.Contains(t, raw, "animation_data")

	var back Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, doc.Metadata.Windows, back.Metadata.Windows)
	assert.Equal(t, doc.Telemetry.Distance, back.Telemetry.Distance)
}

func TestBuildDocument_DegenerateWindowOmitsMSE(t *testing.T) {
	res := computeResult(t)
	res.Alignment.Windows[1].Degenerate = true
	res.Alignment.Windows[1].MSE = math.NaN()

	doc, err := BuildDocument(res, timeutil.RealClock{}, analysis.Options{})
	require.NoError(t, err)
	assert.Nil(t, doc.Metadata.Windows[1].MSE)
	assert.NotNil(t, doc.Metadata.Windows[0].MSE)

	var buf bytes.Buffer
	assert.NoError(t, WriteJSON(&buf, doc))
}

func TestBuildDocument_EmptyDelta(t *testing.T) {
	res := computeResult(t)
	res.Delta = &telemetry.DeltaSeries{}
	_, err := BuildDocument(res, timeutil.RealClock{}, analysis.Options{})
	assert.ErrorIs(t, err, analysis.ErrEmptySeries)
}

func TestRenderHTML(t *testing.T) {
	res := computeResult(t)
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, ChartFromResult(res)))

	out := buf.String()
	assert.Contains(t, out, "VER vs LEC")
	assert.Contains(t, out, "VER speed")
	assert.Contains(t, out, "LEC speed")
	assert.Contains(t, out, "echarts")

	assert.Error(t, RenderHTML(&buf, ChartData{}))
}

func TestRenderPNG(t *testing.T) {
	res := computeResult(t)
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, ChartFromResult(res), 6*vg.Inch, 3*vg.Inch))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")), "not a PNG")

	assert.Error(t, RenderPNG(&buf, ChartData{}, 6*vg.Inch, 3*vg.Inch))
}
