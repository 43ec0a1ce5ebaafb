package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/cosnor/winged/internal/testevents"
)

// Default configuration constants.
const (
	defaultNumEvents   = 10000
	defaultUsers       = 500
	defaultTopN        = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultSettle      = 2 * time.Minute
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numEvents  = flag.Int("events", defaultNumEvents, "Number of events to generate and submit")
		users      = flag.Int("users", defaultUsers, "Number of distinct birders")
		topN       = flag.Int("top", defaultTopN, "Number of leaderboard entries to fetch")
		metric     = flag.String("metric", "total_points", "Leaderboard metric to verify")
		seed       = flag.Uint64("seed", 1, "Generator seed")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", defaultSettle, "Max wait for the ingestion queue to drain")
		outputFile = flag.String("output", "", "Write generated events to this JSON file")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testevents.ShowHelp()
		return
	}

	closeLog, err := testevents.SetupLogging(*logFile, *verbose)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &testevents.Config{
		BaseURL:    *baseURL,
		Users:      *users,
		NumEvents:  *numEvents,
		TopN:       *topN,
		Workers:    *workers,
		Metric:     *metric,
		Seed:       *seed,
		Timeout:    *timeout,
		Settle:     *settle,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if _, err := testevents.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		cancel()
		_ = closeLog()
		os.Exit(1)
	}
}
