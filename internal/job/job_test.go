package job

import (
	"errors"
	"testing"
)

func validSpec() Spec {
	return Spec{
		InputText:         "Dr. Chen works at MIT.",
		PromptDescription: "Extract people and organizations.",
		ModelID:           "gemini-2.5-flash",
		Examples: []Example{
			{
				Text: "Alice joined Acme.",
				Extractions: []Extraction{
					{ExtractionClass: "person", ExtractionText: "Alice"},
					{ExtractionClass: "organization", ExtractionText: "Acme"},
				},
			},
		},
	}
}

func TestSpecValidateAccepts(t *testing.T) {
	if err := validSpec().Validate(); err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}
}

func TestSpecValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Spec)
	}{
		{"empty text", func(s *Spec) { s.InputText = "  " }},
		{"empty prompt", func(s *Spec) { s.PromptDescription = "" }},
		{"empty model", func(s *Spec) { s.ModelID = "" }},
		{"negative passes", func(s *Spec) { s.ExtractionPasses = -1 }},
		{"negative workers", func(s *Spec) { s.MaxWorkers = -2 }},
		{"empty example text", func(s *Spec) { s.Examples[0].Text = "" }},
		{"empty extraction class", func(s *Spec) { s.Examples[0].Extractions[0].ExtractionClass = "" }},
		{"empty extraction text", func(s *Spec) { s.Examples[0].Extractions[0].ExtractionText = "" }},
		{"extraction not in example", func(s *Spec) { s.Examples[0].Extractions[0].ExtractionText = "Bob" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSpec()
			tc.mutate(&s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidSpec) {
				t.Fatalf("error not marked ErrInvalidSpec: %v", err)
			}
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	if !StatusPending.CanTransition(StatusProcessing) {
		t.Fatal("pending -> processing must be allowed")
	}
	if !StatusProcessing.CanTransition(StatusCompleted) || !StatusProcessing.CanTransition(StatusFailed) {
		t.Fatal("processing must reach both terminal states")
	}
	for _, terminal := range []Status{StatusCompleted, StatusFailed} {
		for _, next := range []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed} {
			if terminal.CanTransition(next) {
				t.Fatalf("terminal state %s must not transition to %s", terminal, next)
			}
		}
	}
	if StatusPending.CanTransition(StatusCompleted) {
		t.Fatal("pending must not skip processing")
	}
}

func TestTerminal(t *testing.T) {
	if StatusPending.Terminal() || StatusProcessing.Terminal() {
		t.Fatal("pending/processing are not terminal")
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Fatal("completed/failed are terminal")
	}
}
