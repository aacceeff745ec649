// extract-run drives a single engine invocation from the command line:
// it reads a job spec JSON from a file (or stdin), runs the extraction
// engine once, and prints the decoded result. Useful for checking an
// engine setup without standing up the service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/langbridge/extractd/internal/engine"
	"github.com/langbridge/extractd/internal/job"
)

func main() {
	_ = godotenv.Load()

	specPath := flag.String("spec", "-", "path to a job spec JSON file, or - for stdin")
	python := flag.String("python", "python3", "python interpreter for the engine")
	script := flag.String("script", "scripts/langextract_runner.py", "engine bridge script")
	timeout := flag.Duration("timeout", 0, "engine timeout (0 = none)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var raw []byte
	var err error
	if *specPath == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(*specPath)
	}
	if err != nil {
		fail(logger, "read spec", err)
	}

	var spec job.Spec
	if err := json.Unmarshal(raw, &spec); err != nil {
		fail(logger, "parse spec", err)
	}
	if err := spec.Validate(); err != nil {
		fail(logger, "validate spec", err)
	}

	runner := engine.NewRunner(engine.RunnerConfig{
		Command: []string{*python, *script},
		Timeout: *timeout,
	}, logger)

	start := time.Now()
	res, err := runner.Extract(context.Background(), spec)
	if err != nil {
		fail(logger, "extract", err)
	}
	logger.Info("extraction finished",
		"extractions", res.TotalExtractions,
		"unique_classes", res.UniqueClasses,
		"elapsed", time.Since(start),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Extractions); err != nil {
		fail(logger, "print result", err)
	}
}

func fail(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
