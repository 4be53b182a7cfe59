package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/lapdelta/internal/db"
	"github.com/banshee-data/lapdelta/internal/fsutil"
	"github.com/banshee-data/lapdelta/internal/telemetry"
)

const defaultDBPath = "lapdelta.db"

func handleImport(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", defaultDBPath, "Lap store path")
	label := fs.String("label", "", "Lap label (defaults to the file name)")
	lapTime := fs.Float64("lap-time", 0, "Lap time in seconds when the CSV has none")
	speedUnits := fs.String("units", "mps", "Speed units of the CSV (mps, mph, kmph, kph)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: import needs exactly one CSV file")
		fs.Usage()
		return errUsage
	}

	path := fs.Arg(0)
	f, err := fsutil.OSFileSystem{}.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	name := *label
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	// Speeds are stored as recorded; LoadTrace converts them to m/s.
	trace, err := telemetry.ReadCSV(f, name, "mps")
	if err != nil {
		return err
	}
	if *lapTime > 0 {
		trace.LapTime = *lapTime
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	id, err := store.InsertLap(context.Background(), trace, *speedUnits, "import:"+filepath.Base(path))
	if err != nil {
		return err
	}
	log.Printf("imported %s (%d samples, lap time %.3fs)", name, len(trace.Samples), trace.LapTime)
	fmt.Fprintln(stdout, id)
	return nil
}

func handleLaps(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("laps", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", defaultDBPath, "Lap store path")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	laps, err := store.ListLaps(context.Background())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tLAP TIME\tSAMPLES\tUNITS\tSOURCE\tCREATED")
	for _, l := range laps {
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%d\t%s\t%s\t%s\n",
			l.ID, l.Label, l.LapTime, l.Samples, l.SpeedUnits, l.Source, formatUnix(l.CreatedAt))
	}
	return tw.Flush()
}

func handleDelete(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", defaultDBPath, "Lap store path")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "Error: delete needs at least one lap id or label")
		return errUsage
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := context.Background()
	for _, ref := range fs.Args() {
		lap, err := store.GetLap(ctx, ref)
		if err != nil {
			return err
		}
		if err := store.DeleteLap(ctx, lap.ID); err != nil {
			return err
		}
		fmt.Fprintln(stdout, lap.ID)
	}
	return nil
}

func handleRuns(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", defaultDBPath, "Lap store path")
	limit := fs.Int("limit", 20, "Maximum runs to list (0 = all)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	runs, err := store.ListRuns(context.Background(), *limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tREFERENCE\tTARGET\tFINAL\tMAX GAP\tPOINTS\tDIAGNOSTICS\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%+.3f\t%.3f\t%d\t%d\t%s\n",
			r.ID, r.ReferenceLapID, r.TargetLapID, r.FinalDelta, r.MaxGap, r.GridPoints, r.Diagnostics, formatUnix(r.CreatedAt))
	}
	return tw.Flush()
}

func handleMigrate(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", defaultDBPath, "Lap store path")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	action := "up"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}

	store, err := db.OpenDB(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	migrations := db.MigrationsFS()

	switch action {
	case "up":
		if err := store.MigrateUp(migrations); err != nil {
			return err
		}
	case "down":
		if err := store.MigrateDown(migrations); err != nil {
			return err
		}
	case "version":
	default:
		fmt.Fprintf(stderr, "Error: unknown migrate action %q (want up, down or version)\n", action)
		return errUsage
	}

	version, dirty, err := store.MigrateVersion(migrations)
	if err != nil {
		return err
	}
	latest, err := db.LatestMigrationVersion(migrations)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "schema version %d (latest %d, dirty=%v)\n", version, latest, dirty)
	return nil
}

func formatUnix(sec float64) string {
	return time.Unix(0, int64(sec*1e9)).UTC().Format(time.RFC3339)
}
