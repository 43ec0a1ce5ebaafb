package testevents

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cosnor/winged/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends logs to stdout and, when logFile is set, to that file.
// The returned func releases the file.
func SetupLogging(logFile string, verbose bool) (func() error, error) {
	var out io.Writer = os.Stdout
	closer := func() error { return nil }
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
		closer = file.Close
	}
	if err := logger.Init(logger.WithOutput(out)); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	if logFile != "" {
		logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	}
	return closer, nil
}

// ShowHelp prints usage information for the load test tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Winged Event Test Tool
======================

Submits generated bird discoveries to a running service, waits for the
ingestion queue to drain, then checks that /rank and /leaderboard agree.

Usage:
  go run ./cmd/test-events [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -events int        Number of events to generate and submit (default 10000)
  -users int         Number of distinct birders (default 500)
  -top int           Number of leaderboard entries to fetch (default 50)
  -metric string     Leaderboard metric to verify (default "total_points")
  -seed uint         Generator seed (default 1)
  -workers int       Number of concurrent workers (default CPU cores * 2)
  -timeout duration  HTTP request timeout (default 30s)
  -settle duration   Max wait for the queue to drain (default 2m)
  -output string     Write generated events to this JSON file
  -log string        Also write logs to this file
  -verbose           Enable debug logging
  -help              Show this help message

Examples:
  go run ./cmd/test-events -events 50000 -users 2000 -workers 16
  go run ./cmd/test-events -metric unique_species_count -top 100
`)
}
