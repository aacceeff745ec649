// Package engine bridges extraction jobs to the out-of-process LangExtract
// engine: it encodes job configuration into the wire format, runs the engine
// as an isolated subprocess per invocation, and decodes its output into
// typed results.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/langbridge/extractd/internal/job"
)

// Result is a successful engine invocation.
type Result struct {
	Extractions       []job.Extraction
	TotalExtractions  int
	UniqueClasses     int
	AverageConfidence float64
	ProcessingTime    time.Duration
}

// Engine runs one extraction. Implementations must be safe for concurrent
// use; each call is independent and performs no caching.
type Engine interface {
	Extract(ctx context.Context, spec job.Spec) (*Result, error)
}

// ProcessError means the engine process could not be started or exited
// non-zero. Stderr carries the captured diagnostic output.
type ProcessError struct {
	Err    error
	Stderr string
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("extraction engine failed: %v: %s", e.Err, e.Stderr)
	}
	return fmt.Sprintf("extraction engine failed: %v", e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// DecodeError means the process exited cleanly but its output did not match
// the expected response shape.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode engine response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode engine response: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }
