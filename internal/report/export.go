package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/banshee-data/lapdelta/internal/analysis"
	"github.com/banshee-data/lapdelta/internal/delta"
	"github.com/banshee-data/lapdelta/internal/timeutil"
	"github.com/banshee-data/lapdelta/internal/version"
)

// Window is the exported view of one alignment window. MSE is omitted for
// degenerate windows.
type Window struct {
	Index      int      `json:"index"`
	Start      float64  `json:"start_m"`
	End        float64  `json:"end_m"`
	Offset     float64  `json:"offset_m"`
	MSE        *float64 `json:"mse,omitempty"`
	Degenerate bool     `json:"degenerate,omitempty"`
}

// Metadata describes the comparison.
type Metadata struct {
	Reference        string           `json:"reference"`
	Target           string           `json:"target"`
	ReferenceLapTime float64          `json:"reference_lap_time_s"`
	TargetLapTime    float64          `json:"target_lap_time_s"`
	Summary          analysis.Summary `json:"summary"`
	Scale            float64          `json:"rescale_factor"`
	Windows          []Window         `json:"windows"`
	Config           delta.Config     `json:"config"`
	Diagnostics      []string         `json:"diagnostics,omitempty"`
	GeneratedAt      string           `json:"export_timestamp"`
	Generator        string           `json:"generator"`
}

// Telemetry is the grid-aligned data, one entry per grid point.
type Telemetry struct {
	Distance       []float64 `json:"distances"`
	Delta          []float64 `json:"delta"`
	ReferenceSpeed []float64 `json:"speed_reference"`
	TargetSpeed    []float64 `json:"speed_target"`
}

// Document is the full JSON export.
type Document struct {
	Metadata  Metadata           `json:"metadata"`
	Telemetry Telemetry          `json:"telemetry"`
	Animation analysis.Animation `json:"animation_data"`
}

// BuildDocument assembles the export for a finished computation, stamped
// with clock.
func BuildDocument(res *delta.Result, clock timeutil.Clock, opts analysis.Options) (*Document, error) {
	summary, err := analysis.Summarize(res.Delta)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise delta: %w", err)
	}

	doc := &Document{
		Metadata: Metadata{
			Reference:        res.Reference.Label,
			Target:           res.Target.Label,
			ReferenceLapTime: res.Delta.ReferenceLapTime,
			TargetLapTime:    res.Delta.TargetLapTime,
			Summary:          summary,
			Scale:            res.Scale,
			Config:           res.Config,
			GeneratedAt:      clock.Now().UTC().Format(time.RFC3339),
			Generator:        version.String(),
		},
		Animation: analysis.Animate(res.Summary, opts),
	}
	for _, w := range res.Alignment.Windows {
		ew := Window{
			Index:      w.Window.Index,
			Start:      w.Window.Start,
			End:        w.Window.End,
			Offset:     w.Offset,
			Degenerate: w.Degenerate,
		}
		if !math.IsNaN(w.MSE) && !math.IsInf(w.MSE, 0) {
			mse := w.MSE
			ew.MSE = &mse
		}
		doc.Metadata.Windows = append(doc.Metadata.Windows, ew)
	}
	for _, d := range res.Diagnostics {
		doc.Metadata.Diagnostics = append(doc.Metadata.Diagnostics, d.String())
	}

	n := len(res.Summary)
	doc.Telemetry = Telemetry{
		Distance:       make([]float64, n),
		Delta:          make([]float64, n),
		ReferenceSpeed: make([]float64, n),
		TargetSpeed:    make([]float64, n),
	}
	for i, p := range res.Summary {
		doc.Telemetry.Distance[i] = p.Distance
		doc.Telemetry.Delta[i] = p.Delta
		doc.Telemetry.ReferenceSpeed[i] = p.ReferenceSpeed
		doc.Telemetry.TargetSpeed[i] = p.TargetSpeed
	}
	return doc, nil
}

// WriteJSON encodes doc with two-space indentation.
func WriteJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}
