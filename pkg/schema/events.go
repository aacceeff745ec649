package schema

type EventStage string

const (
	StageSubmitted  EventStage = "submitted"
	StageProcessing EventStage = "processing"
	StageCompleted  EventStage = "completed"
	StageFailed     EventStage = "failed"
)

// JobEvent is published on the event bus at every status transition so
// downstream consumers (report generators, dashboards) can react without
// polling the job API.
type JobEvent struct {
	JobID            string     `json:"job_id"`
	UserID           string     `json:"user_id,omitempty"`
	Stage            EventStage `json:"stage"`
	ModelID          string     `json:"model_id"`
	TotalExtractions int        `json:"total_extractions,omitempty"`
	ProcessingTimeMs int64      `json:"processing_time_ms,omitempty"`
	Error            string     `json:"error,omitempty"`
	HappenedAt       int64      `json:"happened_at"`
}

// JobUpdate is the payload broadcast to websocket clients.
type JobUpdate struct {
	Type   string `json:"type"`
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
