package engine

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/langbridge/extractd/internal/job"
	"github.com/langbridge/extractd/pkg/schema"
)

// Defaults applied when the caller leaves the knobs unset. These match the
// engine-side defaults so both ends agree on what "unspecified" means.
const (
	DefaultExtractionPasses = 1
	DefaultMaxWorkers       = 5
)

// responseSchema is validated locally before the output is trusted. The
// success flag is the one required field; extraction records must carry a
// class and a text.
var responseSchema = jsonschema.MustCompileString("engine_response.json", `{
	"type": "object",
	"required": ["success"],
	"properties": {
		"success": {"type": "boolean"},
		"error": {"type": "string"},
		"extractions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["extraction_class", "extraction_text"],
				"properties": {
					"extraction_class": {"type": "string", "minLength": 1},
					"extraction_text": {"type": "string", "minLength": 1},
					"attributes": {"type": ["object", "null"]},
					"position_start": {"type": ["integer", "null"]},
					"position_end": {"type": ["integer", "null"]},
					"confidence": {"type": ["number", "null"]}
				}
			}
		},
		"metadata": {"type": ["object", "null"]}
	}
}`)

// EncodeRequest serializes a job spec into the engine's wire format. The
// apiKey is whatever the credential resolution produced; empty means the
// engine falls back to its own environment.
func EncodeRequest(spec job.Spec, apiKey string) ([]byte, error) {
	passes := spec.ExtractionPasses
	if passes == 0 {
		passes = DefaultExtractionPasses
	}
	workers := spec.MaxWorkers
	if workers == 0 {
		workers = DefaultMaxWorkers
	}

	examples := make([]schema.EngineExample, 0, len(spec.Examples))
	for _, ex := range spec.Examples {
		extractions := make([]schema.EngineExtraction, 0, len(ex.Extractions))
		for _, ext := range ex.Extractions {
			attrs := ext.Attributes
			if attrs == nil {
				attrs = map[string]any{}
			}
			extractions = append(extractions, schema.EngineExtraction{
				ExtractionClass: ext.ExtractionClass,
				ExtractionText:  ext.ExtractionText,
				Attributes:      attrs,
			})
		}
		examples = append(examples, schema.EngineExample{Text: ex.Text, Extractions: extractions})
	}

	return json.Marshal(schema.EngineRequest{
		Text:              spec.InputText,
		PromptDescription: spec.PromptDescription,
		Examples:          examples,
		ModelID:           spec.ModelID,
		ExtractionPasses:  passes,
		MaxWorkers:        workers,
		APIKey:            apiKey,
	})
}

// DecodeResponse parses and validates raw engine stdout. It returns a
// *DecodeError when the output is not the expected shape; an engine-reported
// failure (success=false) is returned as a plain error carrying the engine's
// message. The metadata block is always recomputed from the extraction list
// so a sloppy engine cannot make the two disagree.
func DecodeResponse(raw []byte) (*Result, error) {
	payload := extractPayload(raw)
	if len(payload) == 0 {
		return nil, &DecodeError{Reason: "empty output"}
	}

	var generic any
	if err := json.Unmarshal(payload, &generic); err != nil {
		return nil, &DecodeError{Reason: "output is not valid JSON", Err: err}
	}
	if err := responseSchema.Validate(generic); err != nil {
		return nil, &DecodeError{Reason: "output does not match the response contract", Err: err}
	}

	var resp schema.EngineResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, &DecodeError{Reason: "output does not match the response contract", Err: err}
	}
	if resp.Success == nil {
		// Unreachable after schema validation, kept as a guard.
		return nil, &DecodeError{Reason: "success flag missing"}
	}
	if !*resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "engine reported failure without a message"
		}
		return nil, fmt.Errorf("engine: %s", msg)
	}

	extractions := make([]job.Extraction, 0, len(resp.Extractions))
	for _, e := range resp.Extractions {
		extractions = append(extractions, job.Extraction{
			ExtractionClass: e.ExtractionClass,
			ExtractionText:  e.ExtractionText,
			Attributes:      e.Attributes,
			PositionStart:   e.PositionStart,
			PositionEnd:     e.PositionEnd,
			Confidence:      e.Confidence,
		})
	}

	total, unique, avg := DeriveMetadata(extractions)
	return &Result{
		Extractions:       extractions,
		TotalExtractions:  total,
		UniqueClasses:     unique,
		AverageConfidence: avg,
	}, nil
}

// DeriveMetadata computes the result metadata: total count, distinct class
// count, and the mean of reported confidences. Extractions without a
// confidence are excluded from the mean entirely; when none report one the
// average is 0.
func DeriveMetadata(extractions []job.Extraction) (total, unique int, avgConfidence float64) {
	classes := make(map[string]struct{}, len(extractions))
	var sum float64
	var n int
	for _, e := range extractions {
		classes[e.ExtractionClass] = struct{}{}
		if e.Confidence != nil {
			sum += *e.Confidence
			n++
		}
	}
	if n > 0 {
		avgConfidence = sum / float64(n)
	}
	return len(extractions), len(classes), avgConfidence
}

// extractPayload tolerates noise around the response: the engine is expected
// to emit exactly one JSON object, but interpreter warnings can precede it.
// The whole output is tried first, then the last line that looks like JSON.
func extractPayload(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if json.Valid(trimmed) {
		return trimmed
	}
	lines := bytes.Split(trimmed, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) > 0 && line[0] == '{' && json.Valid(line) {
			return line
		}
	}
	return trimmed
}
