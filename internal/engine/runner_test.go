package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/langbridge/extractd/internal/job"
)

func testSpec() job.Spec {
	return job.Spec{
		InputText:         "Dr. Chen works at MIT.",
		PromptDescription: "Extract people and organizations.",
		ModelID:           "gemini-2.5-flash",
	}
}

// shellEngine builds a runner whose "engine" is a shell one-liner, so the
// full request-in/response-out exchange is exercised without Python.
func shellEngine(script string) *Runner {
	return NewRunner(RunnerConfig{Command: []string{"sh", "-c", script}}, nil)
}

func TestRunnerExtractSuccess(t *testing.T) {
	r := shellEngine(`cat > /dev/null; echo '{"success": true, "extractions": [{"extraction_class": "person", "extraction_text": "Dr. Chen", "confidence": 0.5}]}'`)

	res, err := r.Extract(context.Background(), testSpec())
	if err != nil {
		t.Fatalf("extract returned error: %v", err)
	}
	if res.TotalExtractions != 1 || res.Extractions[0].ExtractionText != "Dr. Chen" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.AverageConfidence != 0.5 {
		t.Fatalf("average confidence: got %v", res.AverageConfidence)
	}
	if res.ProcessingTime <= 0 {
		t.Fatal("processing time not measured")
	}
}

func TestRunnerExtractReceivesRequest(t *testing.T) {
	// The engine echoes the request's model_id back as an error so the test
	// can confirm the request actually reached stdin.
	r := shellEngine(`req=$(cat); model=$(printf '%s' "$req" | sed 's/.*"model_id":"\([^"]*\)".*/\1/'); printf '{"success": false, "error": "saw %s"}' "$model"`)

	_, err := r.Extract(context.Background(), testSpec())
	if err == nil || !strings.Contains(err.Error(), "saw gemini-2.5-flash") {
		t.Fatalf("request did not reach the engine stdin: %v", err)
	}
}

func TestRunnerExtractProcessError(t *testing.T) {
	r := shellEngine(`cat > /dev/null; echo "quota exceeded" >&2; exit 1`)

	_, err := r.Extract(context.Background(), testSpec())
	var pe *ProcessError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProcessError, got %v", err)
	}
	if !strings.Contains(pe.Stderr, "quota exceeded") {
		t.Fatalf("stderr not captured: %q", pe.Stderr)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("diagnostic missing from message: %v", err)
	}
}

func TestRunnerExtractMissingBinary(t *testing.T) {
	r := NewRunner(RunnerConfig{Command: []string{"definitely-not-a-real-binary-xyz"}}, nil)

	_, err := r.Extract(context.Background(), testSpec())
	var pe *ProcessError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProcessError for missing binary, got %v", err)
	}
}

func TestRunnerExtractDecodeError(t *testing.T) {
	r := shellEngine(`cat > /dev/null; echo '{"extractions": []}'`)

	_, err := r.Extract(context.Background(), testSpec())
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestRunnerExtractTimeout(t *testing.T) {
	r := NewRunner(RunnerConfig{
		Command: []string{"sh", "-c", "cat > /dev/null; sleep 10"},
		Timeout: 50 * time.Millisecond,
	}, nil)

	start := time.Now()
	_, err := r.Extract(context.Background(), testSpec())
	if err == nil {
		t.Fatal("expected an error from a timed-out engine")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("timeout was not enforced")
	}
}

func TestResolveAPIKeyPrecedence(t *testing.T) {
	t.Setenv("LANGEXTRACT_API_KEY", "lx")
	t.Setenv("GEMINI_API_KEY", "gm")
	t.Setenv("OPENAI_API_KEY", "oa")

	if got := ResolveAPIKey("explicit"); got != "explicit" {
		t.Fatalf("explicit key must win, got %q", got)
	}
	if got := ResolveAPIKey(""); got != "lx" {
		t.Fatalf("LANGEXTRACT_API_KEY must win over the rest, got %q", got)
	}

	t.Setenv("LANGEXTRACT_API_KEY", "")
	if got := ResolveAPIKey(""); got != "gm" {
		t.Fatalf("GEMINI_API_KEY next, got %q", got)
	}
	t.Setenv("GEMINI_API_KEY", "")
	if got := ResolveAPIKey(""); got != "oa" {
		t.Fatalf("OPENAI_API_KEY last, got %q", got)
	}
	t.Setenv("OPENAI_API_KEY", "")
	if got := ResolveAPIKey(""); got != "" {
		t.Fatalf("no key anywhere must resolve empty, got %q", got)
	}
}
