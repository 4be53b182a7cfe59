package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/lapdelta/internal/analysis"
	"github.com/banshee-data/lapdelta/internal/config"
	"github.com/banshee-data/lapdelta/internal/db"
	"github.com/banshee-data/lapdelta/internal/delta"
	"github.com/banshee-data/lapdelta/internal/fsutil"
	"github.com/banshee-data/lapdelta/internal/monitoring"
	"github.com/banshee-data/lapdelta/internal/report"
	"github.com/banshee-data/lapdelta/internal/security"
	"github.com/banshee-data/lapdelta/internal/telemetry"
	"github.com/banshee-data/lapdelta/internal/timeutil"
)

type compareOptions struct {
	configPath  string
	windows     int
	offsets     string
	grid        float64
	workers     int
	integration string
	units       string
	refTime     float64
	tgtTime     float64
	dataDir     string
	dbPath      string
	record      bool
	outDir      string
	out         string
	jsonPath    string
	htmlPath    string
	pngPath     string
	metrics     bool
}

func handleCompare(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o compareOptions
	fs.StringVar(&o.configPath, "config", "", "Engine config JSON file (defaults apply when empty)")
	fs.IntVar(&o.windows, "windows", 0, "Number of alignment windows")
	fs.StringVar(&o.offsets, "offsets", "", "Offset search range min:max:step in meters")
	fs.Float64Var(&o.grid, "grid", 0, "Common grid step in meters")
	fs.IntVar(&o.workers, "workers", 0, "Concurrent window searches (0 = GOMAXPROCS)")
	fs.StringVar(&o.integration, "integration", "", "Delta integration method: time or speed")
	fs.StringVar(&o.units, "units", "", "Speed units of CSV input (mps, mph, kmph, kph)")
	fs.Float64Var(&o.refTime, "ref-time", 0, "Reference lap time in seconds when the CSV has none")
	fs.Float64Var(&o.tgtTime, "tgt-time", 0, "Target lap time in seconds when the CSV has none")
	fs.StringVar(&o.dataDir, "data-dir", "", "Directory holding <lap>.csv files; laps are then given by name")
	fs.StringVar(&o.dbPath, "db", "", "Lap store; laps are then given as ids or labels")
	fs.BoolVar(&o.record, "record", false, "Record the run in the lap store (requires -db)")
	fs.StringVar(&o.outDir, "outdir", "", "Write <ref>_vs_<tgt>.{csv,json,html,png} into this directory")
	fs.StringVar(&o.out, "out", "-", "Summary CSV path (- for stdout, empty to skip)")
	fs.StringVar(&o.jsonPath, "json", "", "Write the JSON export to this path")
	fs.StringVar(&o.htmlPath, "html", "", "Write an HTML chart to this path")
	fs.StringVar(&o.pngPath, "png", "", "Write a PNG delta plot to this path")
	fs.BoolVar(&o.metrics, "metrics", false, "Dump run metrics to stderr when done")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(stderr, "Error: compare needs exactly two laps: <reference> <target>")
		fs.Usage()
		return errUsage
	}
	if o.record && o.dbPath == "" {
		fmt.Fprintln(stderr, "Error: -record requires -db")
		return errUsage
	}

	cfg, err := o.deltaConfig(fs)
	if err != nil {
		return err
	}
	engine := cfg.EngineConfig()
	refID, tgtID := fs.Arg(0), fs.Arg(1)
	ctx := context.Background()

	var (
		res   *delta.Result
		store *db.DB
	)
	if o.dbPath != "" {
		store, err = db.NewDB(o.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		res, err = delta.ComputeFromSource(ctx, store, refID, tgtID, engine)
	} else {
		src := &telemetry.CSVSource{Dir: o.dataDir, Units: cfg.GetSpeedUnits(), LapTimes: map[string]float64{}}
		if o.refTime > 0 {
			src.LapTimes[refID] = o.refTime
		}
		if o.tgtTime > 0 {
			src.LapTimes[tgtID] = o.tgtTime
		}
		res, err = delta.ComputeFromSource(ctx, src, refID, tgtID, engine)
	}
	if o.metrics {
		defer func() {
			if totals, terr := monitoring.RunTotals(); terr == nil {
				log.Printf("runs this process: %v", totals)
			}
			monitoring.WriteMetrics(stderr)
		}()
	}
	if err != nil {
		return err
	}

	for _, d := range res.Diagnostics {
		log.Printf("diagnostic: %s", d)
	}
	log.Printf("%s vs %s: final delta %+.3fs over %d points (offsets %v)",
		res.Reference.Label, res.Target.Label, res.Delta.Final(), res.Delta.Len(), res.Alignment.Offsets())

	if o.outDir != "" {
		o.setArtifactPaths(res.Reference.Label, res.Target.Label)
	}
	if err := o.writeOutputs(fsutil.OSFileSystem{}, res, stdout); err != nil {
		return err
	}

	if o.record {
		refLap, err := store.GetLap(ctx, refID)
		if err != nil {
			return err
		}
		tgtLap, err := store.GetLap(ctx, tgtID)
		if err != nil {
			return err
		}
		runID, err := store.RecordRun(ctx, refLap.ID, tgtLap.ID, res)
		if err != nil {
			return err
		}
		log.Printf("recorded run %s", runID)
	}
	return nil
}

// deltaConfig loads the config file, if any, and applies the flags that
// were set explicitly.
func (o compareOptions) deltaConfig(fs *flag.FlagSet) (*config.DeltaConfig, error) {
	cfg := config.EmptyDeltaConfig()
	if o.configPath != "" {
		loaded, err := config.LoadDeltaConfig(o.configPath)
		if err != nil {
			return nil, &telemetry.ConfigurationError{Field: "config", Reason: err.Error()}
		}
		cfg = loaded
	}

	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "windows":
			cfg.NumWindows = &o.windows
		case "offsets":
			if rerr := cfg.ApplyOffsetRange(o.offsets); rerr != nil {
				err = &telemetry.ConfigurationError{Field: "offsets", Reason: rerr.Error()}
			}
		case "grid":
			cfg.GridStep = &o.grid
		case "workers":
			cfg.Workers = &o.workers
		case "integration":
			cfg.Integration = &o.integration
		case "units":
			cfg.SpeedUnits = &o.units
		}
	})
	if err != nil {
		return nil, err
	}
	if verr := cfg.Validate(); verr != nil {
		if exitCode(verr) == exitConfig {
			return nil, verr
		}
		return nil, &telemetry.ConfigurationError{Field: "config", Reason: verr.Error()}
	}
	return cfg, nil
}

// setArtifactPaths fills every artifact path left unset from the output
// directory and the lap labels.
func (o *compareOptions) setArtifactPaths(reference, target string) {
	base := filepath.Join(o.outDir, security.ComparisonName(reference, target))
	for _, a := range []struct {
		path *string
		ext  string
	}{
		{&o.out, ".csv"},
		{&o.jsonPath, ".json"},
		{&o.htmlPath, ".html"},
		{&o.pngPath, ".png"},
	} {
		if *a.path == "" || (a.ext == ".csv" && *a.path == "-") {
			*a.path = base + a.ext
		}
	}
}

func (o compareOptions) writeOutputs(fsys fsutil.FileSystem, res *delta.Result, stdout io.Writer) error {
	aw := artifactWriter{fs: fsys, stdout: stdout}
	if o.out != "" {
		if err := aw.write(o.out, func(w io.Writer) error {
			return report.WriteSummaryCSV(w, res.Summary)
		}); err != nil {
			return err
		}
	}
	if o.jsonPath != "" {
		doc, err := report.BuildDocument(res, timeutil.RealClock{}, analysis.DefaultOptions())
		if err != nil {
			return err
		}
		if err := aw.write(o.jsonPath, func(w io.Writer) error {
			return report.WriteJSON(w, doc)
		}); err != nil {
			return err
		}
	}
	chart := report.ChartFromResult(res)
	if o.htmlPath != "" {
		if err := aw.write(o.htmlPath, func(w io.Writer) error {
			return report.RenderHTML(w, chart)
		}); err != nil {
			return err
		}
	}
	if o.pngPath != "" {
		if err := aw.write(o.pngPath, func(w io.Writer) error {
			return report.RenderPNG(w, chart, 14*vg.Inch, 6*vg.Inch)
		}); err != nil {
			return err
		}
	}
	return nil
}

type artifactWriter struct {
	fs     fsutil.FileSystem
	stdout io.Writer
}

// write runs fn against stdout for "-" or a newly created file.
func (a artifactWriter) write(path string, fn func(io.Writer) error) error {
	if path == "-" {
		return fn(a.stdout)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := a.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	f, err := a.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	log.Printf("wrote %s", path)
	return nil
}
