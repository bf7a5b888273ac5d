package domain

import (
	"strings"
	"time"
)

const (
	EventImpression   = "IMPRESSION"
	EventClick        = "CLICK"
	EventLike         = "LIKE"
	EventComment      = "COMMENT"
	EventShare        = "SHARE"
	EventSessionStart = "SESSION_START"
	EventSessionEnd   = "SESSION_END"
)

// ExperimentEvent is append-only. VariantName is always the server-side
// assignment, never trusted from the client.
type ExperimentEvent struct {
	EventID            string    `json:"event_id"`
	ExperimentID       string    `json:"experiment_id"`
	UserID             string    `json:"user_id"`
	VariantName        string    `json:"variant_name"`
	EventType          string    `json:"event_type"`
	PostID             string    `json:"post_id,omitempty"`
	SessionDurationSec *int64    `json:"session_duration_s,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// NormalizeEventType upper-cases and validates an event type.
func NormalizeEventType(raw string) (string, bool) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	switch v {
	case EventImpression, EventClick, EventLike, EventComment, EventShare, EventSessionStart, EventSessionEnd:
		return v, true
	default:
		return "", false
	}
}

// EventAck is returned once an event is durably appended.
type EventAck struct {
	EventID     string    `json:"event_id"`
	VariantName string    `json:"variant_name"`
	RecordedAt  time.Time `json:"recorded_at"`
}
