// Package report writes delta results: the summary CSV, the JSON export
// consumed by animation tooling and HTML/PNG charts.
package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/banshee-data/lapdelta/internal/telemetry"
)

// SummaryHeader is the column order of the summary CSV.
var SummaryHeader = []string{
	"distance_m",
	"reference_speed_mps",
	"reference_time_s",
	"target_speed_mps",
	"target_time_s",
	"delta_s",
}

// SummaryWriter wraps csv.Writer with methods for summary rows.
type SummaryWriter struct {
	w *csv.Writer
}

// NewSummaryWriter creates a SummaryWriter over w.
func NewSummaryWriter(w io.Writer) *SummaryWriter {
	return &SummaryWriter{w: csv.NewWriter(w)}
}

// WriteHeader writes the column names.
func (s *SummaryWriter) WriteHeader() error {
	return s.w.Write(SummaryHeader)
}

// WriteRow writes one grid point.
func (s *SummaryWriter) WriteRow(p telemetry.GridPoint) error {
	return s.w.Write([]string{
		fmt.Sprintf("%.3f", p.Distance),
		fmt.Sprintf("%.6f", p.ReferenceSpeed),
		fmt.Sprintf("%.6f", p.ReferenceTime),
		fmt.Sprintf("%.6f", p.TargetSpeed),
		fmt.Sprintf("%.6f", p.TargetTime),
		fmt.Sprintf("%.6f", p.Delta),
	})
}

// Flush writes any buffered rows and reports the first write error.
func (s *SummaryWriter) Flush() error {
	s.w.Flush()
	return s.w.Error()
}

// WriteSummaryCSV writes the header and every point.
func WriteSummaryCSV(w io.Writer, points []telemetry.GridPoint) error {
	sw := NewSummaryWriter(w)
	if err := sw.WriteHeader(); err != nil {
		return fmt.Errorf("failed to write summary header: %w", err)
	}
	for i, p := range points {
		if err := sw.WriteRow(p); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush summary: %w", err)
	}
	return nil
}
