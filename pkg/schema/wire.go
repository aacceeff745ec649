// Package schema defines the wire contract shared with the external
// extraction engine and the event payloads published by the service.
// Field names are fixed for engine compatibility and must not change.
package schema

// EngineRequest is the single JSON object written to the engine's stdin.
type EngineRequest struct {
	Text              string          `json:"text"`
	PromptDescription string          `json:"prompt_description"`
	Examples          []EngineExample `json:"examples"`
	ModelID           string          `json:"model_id"`
	ExtractionPasses  int             `json:"extraction_passes"`
	MaxWorkers        int             `json:"max_workers"`
	APIKey            string          `json:"api_key,omitempty"`
}

type EngineExample struct {
	Text        string             `json:"text"`
	Extractions []EngineExtraction `json:"extractions"`
}

type EngineExtraction struct {
	ExtractionClass string         `json:"extraction_class"`
	ExtractionText  string         `json:"extraction_text"`
	Attributes      map[string]any `json:"attributes"`
}

// EngineResponse is the single JSON object the engine emits on stdout.
// Success carries extractions plus metadata; failure carries an error string.
type EngineResponse struct {
	Success     *bool              `json:"success"`
	Extractions []ResultExtraction `json:"extractions"`
	Metadata    *ResultMetadata    `json:"metadata"`
	Error       string             `json:"error"`
}

type ResultExtraction struct {
	ExtractionClass string         `json:"extraction_class"`
	ExtractionText  string         `json:"extraction_text"`
	Attributes      map[string]any `json:"attributes,omitempty"`
	PositionStart   *int           `json:"position_start,omitempty"`
	PositionEnd     *int           `json:"position_end,omitempty"`
	Confidence      *float64       `json:"confidence,omitempty"`
}

type ResultMetadata struct {
	TotalExtractions  int     `json:"total_extractions"`
	UniqueClasses     int     `json:"unique_classes"`
	AverageConfidence float64 `json:"average_confidence"`
}
