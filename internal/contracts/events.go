package contracts

import (
	"encoding/json"
	"time"
)

const (
	EventTypeExperimentStatusChanged = "experiment.status_changed"
	EventTypeExperimentEventRecorded = "experiment.event_recorded"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type ExperimentStatusChangedPayload struct {
	ExperimentID   string `json:"experiment_id"`
	CohortID       string `json:"cohort_id,omitempty"`
	PreviousStatus string `json:"previous_status"`
	Status         string `json:"status"`
}

// ExperimentEventPayload is the data of an experiment.event_recorded message
// consumed from the telemetry topic.
type ExperimentEventPayload struct {
	EventID            string    `json:"event_id,omitempty"`
	ExperimentID       string    `json:"experiment_id"`
	UserID             string    `json:"user_id"`
	VariantName        string    `json:"variant_name,omitempty"`
	EventType          string    `json:"event_type"`
	PostID             string    `json:"post_id,omitempty"`
	SessionDurationSec *int64    `json:"session_duration_s,omitempty"`
	OccurredAt         time.Time `json:"occurred_at,omitempty"`
}
