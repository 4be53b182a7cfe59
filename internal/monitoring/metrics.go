package monitoring

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Registry holds the engine metrics. It is separate from the default
// registry so a dump only shows lapdelta series.
var Registry = prometheus.NewRegistry()

var (
	runsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "lapdelta_runs_total",
		Help: "Delta computations by result",
	}, []string{"result"})

	diagnosticsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "lapdelta_diagnostics_total",
		Help: "Recoverable conditions reported by the engine, by kind",
	}, []string{"kind"})

	windowOffset = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "lapdelta_window_offset_meters",
		Help:    "Chosen alignment offset per window",
		Buckets: prometheus.LinearBuckets(-20, 2.5, 17), // -20m to +20m
	})

	runDuration = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "lapdelta_run_duration_seconds",
		Help:    "Wall time of one delta computation",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	})
)

// Run results used as the lapdelta_runs_total label.
const (
	ResultOK           = "ok"
	ResultConfigError  = "config_error"
	ResultDataError    = "data_error"
	ResultGridError    = "grid_error"
	ResultOtherFailure = "error"
)

// ObserveRun records one engine run. diagnostics is a per-kind tally and
// offsets the chosen offset per window; both may be nil for failed runs.
func ObserveRun(result string, elapsed time.Duration, diagnostics map[string]int, offsets []float64) {
	runsTotal.WithLabelValues(result).Inc()
	runDuration.Observe(elapsed.Seconds())
	for kind, n := range diagnostics {
		diagnosticsTotal.WithLabelValues(kind).Add(float64(n))
	}
	for _, o := range offsets {
		windowOffset.Observe(o)
	}
}

// WriteMetrics writes the registry in the Prometheus text exposition format.
func WriteMetrics(w io.Writer) error {
	families, err := Registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// RunTotals returns lapdelta_runs_total keyed by result label.
func RunTotals() (map[string]float64, error) {
	families, err := Registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}
	totals := make(map[string]float64)
	for _, mf := range families {
		if mf.GetName() != "lapdelta_runs_total" || mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, m := range mf.GetMetric() {
			totals[resultLabel(m)] += m.GetCounter().GetValue()
		}
	}
	return totals, nil
}

func resultLabel(m *dto.Metric) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == "result" {
			return lp.GetValue()
		}
	}
	return ""
}
