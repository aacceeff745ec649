// Package job defines the extraction job model and its lifecycle rules.
package job

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of an extraction job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether the move from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Extraction is one structured fact pulled from text. PositionStart and
// PositionEnd are rune offsets into the source text when the engine reports
// them; Confidence is in [0,1] when reported.
type Extraction struct {
	ExtractionClass string         `json:"extraction_class"`
	ExtractionText  string         `json:"extraction_text"`
	Attributes      map[string]any `json:"attributes,omitempty"`
	PositionStart   *int           `json:"position_start,omitempty"`
	PositionEnd     *int           `json:"position_end,omitempty"`
	Confidence      *float64       `json:"confidence,omitempty"`
}

// Example is a few-shot sample steering the engine: text plus the
// extractions expected from it.
type Example struct {
	Text        string       `json:"text"`
	Extractions []Extraction `json:"extractions"`
}

// Result is attached to a job once it reaches a terminal state. Completed
// jobs carry extractions and metadata; failed jobs carry Error only.
type Result struct {
	Extractions       []Extraction `json:"extractions,omitempty"`
	TotalExtractions  int          `json:"total_extractions"`
	UniqueClasses     int          `json:"unique_classes"`
	AverageConfidence float64      `json:"average_confidence"`
	ProcessingTimeMs  int64        `json:"processing_time_ms"`
	Error             string       `json:"error,omitempty"`
}

// Spec is what a caller submits to create a job.
type Spec struct {
	UserID            string    `json:"user_id,omitempty"`
	InputText         string    `json:"input_text"`
	PromptDescription string    `json:"prompt_description"`
	Examples          []Example `json:"examples"`
	ModelID           string    `json:"model_id"`
	ExtractionPasses  int       `json:"extraction_passes,omitempty"`
	MaxWorkers        int       `json:"max_workers,omitempty"`
	APIKey            string    `json:"api_key,omitempty"`
}

// Job is one extraction job record. Result and CompletedAt are nil exactly
// until the job reaches a terminal status.
type Job struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id,omitempty"`
	InputText         string     `json:"input_text"`
	PromptDescription string     `json:"prompt_description"`
	Examples          []Example  `json:"examples"`
	ModelID           string     `json:"model_id"`
	ExtractionPasses  int        `json:"extraction_passes"`
	MaxWorkers        int        `json:"max_workers"`
	Status            Status     `json:"status"`
	Result            *Result    `json:"result,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// ErrInvalidSpec marks submission validation failures.
var ErrInvalidSpec = errors.New("invalid job spec")

// Validate checks a submission before any job record exists.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.InputText) == "" {
		return fmt.Errorf("%w: input_text is required", ErrInvalidSpec)
	}
	if strings.TrimSpace(s.PromptDescription) == "" {
		return fmt.Errorf("%w: prompt_description is required", ErrInvalidSpec)
	}
	if strings.TrimSpace(s.ModelID) == "" {
		return fmt.Errorf("%w: model_id is required", ErrInvalidSpec)
	}
	if s.ExtractionPasses < 0 {
		return fmt.Errorf("%w: extraction_passes must be >= 1", ErrInvalidSpec)
	}
	if s.MaxWorkers < 0 {
		return fmt.Errorf("%w: max_workers must be >= 1", ErrInvalidSpec)
	}
	for i, ex := range s.Examples {
		if strings.TrimSpace(ex.Text) == "" {
			return fmt.Errorf("%w: examples[%d].text is required", ErrInvalidSpec, i)
		}
		for j, ext := range ex.Extractions {
			if strings.TrimSpace(ext.ExtractionClass) == "" {
				return fmt.Errorf("%w: examples[%d].extractions[%d].extraction_class is required", ErrInvalidSpec, i, j)
			}
			if ext.ExtractionText == "" {
				return fmt.Errorf("%w: examples[%d].extractions[%d].extraction_text is required", ErrInvalidSpec, i, j)
			}
			if !strings.Contains(ex.Text, ext.ExtractionText) {
				return fmt.Errorf("%w: examples[%d].extractions[%d].extraction_text is not a substring of the example text", ErrInvalidSpec, i, j)
			}
		}
	}
	return nil
}
