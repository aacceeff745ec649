package engine

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"time"

	"github.com/langbridge/extractd/internal/job"
)

// RunnerConfig describes how to invoke the engine process.
type RunnerConfig struct {
	// Command is the full argv, e.g. ["python3", "scripts/langextract_runner.py"].
	Command []string

	// Timeout bounds a single invocation; 0 means no bound. A hung
	// interpreter otherwise blocks its job forever, so deployments that
	// care should set ENGINE_TIMEOUT.
	Timeout time.Duration
}

// Runner invokes the engine as a single-shot subprocess per extraction: the
// encoded request is written to stdin, stdout and stderr are fully consumed,
// and the process must exit before the result is decoded.
type Runner struct {
	cfg    RunnerConfig
	logger *slog.Logger
}

func NewRunner(cfg RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Command) == 0 {
		cfg.Command = []string{"python3", "scripts/langextract_runner.py"}
	}
	return &Runner{cfg: cfg, logger: logger}
}

func (r *Runner) Extract(ctx context.Context, spec job.Spec) (*Result, error) {
	payload, err := EncodeRequest(spec, ResolveAPIKey(spec.APIKey))
	if err != nil {
		return nil, err
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()

	cmd := exec.CommandContext(ctx, r.cfg.Command[0], r.cfg.Command[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	dur := time.Since(start)

	if runErr != nil {
		r.logger.Error("engine invocation failed",
			"cmd", r.cfg.Command[0],
			"duration_ms", dur.Milliseconds(),
			"error", runErr,
			"stderr", truncate(stderr.String(), 8<<10),
		)
		return nil, &ProcessError{Err: runErr, Stderr: truncate(stderr.String(), 8<<10)}
	}

	result, err := DecodeResponse(stdout.Bytes())
	if err != nil {
		r.logger.Error("engine output rejected",
			"cmd", r.cfg.Command[0],
			"duration_ms", dur.Milliseconds(),
			"stdout_bytes", stdout.Len(),
			"error", err,
		)
		return nil, err
	}
	result.ProcessingTime = dur

	r.logger.Debug("engine invocation ok",
		"cmd", r.cfg.Command[0],
		"duration_ms", dur.Milliseconds(),
		"extractions", result.TotalExtractions,
	)
	return result, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
