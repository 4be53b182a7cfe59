// Command lapdelta aligns two laps of telemetry and reports the time delta
// between them along the lap distance.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/lapdelta/internal/telemetry"
	"github.com/banshee-data/lapdelta/internal/version"
)

// Exit codes.
const (
	exitOK     = 0
	exitError  = 1
	exitConfig = 2
	exitData   = 3
	exitGrid   = 4
)

// errUsage marks argument errors that have already been reported.
var errUsage = errors.New("usage error")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitError
	}

	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "compare":
		err = handleCompare(rest, stdout, stderr)
	case "import":
		err = handleImport(rest, stdout, stderr)
	case "laps":
		err = handleLaps(rest, stdout, stderr)
	case "delete":
		err = handleDelete(rest, stdout, stderr)
	case "runs":
		err = handleRuns(rest, stdout, stderr)
	case "migrate":
		err = handleMigrate(rest, stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, version.String())
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return exitError
	}
	if err == nil {
		return exitOK
	}
	if !errors.Is(err, errUsage) {
		fmt.Fprintf(stderr, "%s failed: %v\n", command, err)
	}
	return exitCode(err)
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var cfgErr *telemetry.ConfigurationError
	var dataErr *telemetry.DataInsufficientError
	var gridErr *telemetry.GridDegenerateError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &dataErr):
		return exitData
	case errors.As(err, &gridErr):
		return exitGrid
	default:
		return exitError
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `lapdelta - lap telemetry alignment and delta engine

Usage: lapdelta <command> [options]

Commands:
  compare    Compare two laps (CSV files, or lap ids/labels with -db)
  import     Import a CSV lap into the lap store
  laps       List stored laps
  delete     Remove stored laps by id or label
  runs       List recorded delta runs
  migrate    Apply or roll back lap store migrations (up|down|version)
  version    Show lapdelta version
  help       Show this help message

Examples:
  # Compare two CSV laps recorded in km/h, writing the summary table
  lapdelta compare -units km/h -ref-time 90.0 -tgt-time 90.5 -out delta.csv ver.csv lec.csv

  # Import laps and compare them from the store, logging the run
  lapdelta import -db laps.db -label VER -lap-time 90.0 ver.csv
  lapdelta import -db laps.db -label LEC -lap-time 90.5 lec.csv
  lapdelta compare -db laps.db -record -json export.json -html delta.html VER LEC

  # Wider offset search on a finer grid
  lapdelta compare -offsets -25:25:0.25 -grid 1 ver.csv lec.csv`)
}
