package models

import "time"

// LogEventType classifies a journey log row.
type LogEventType string

const (
	LogEventEntered      LogEventType = "entered"
	LogEventStepExecuted LogEventType = "step_executed"
	LogEventFailed       LogEventType = "failed"
)

// LogStatus is the outcome recorded on a journey log row.
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusFailed  LogStatus = "failed"
)

// JourneyLog is an append-only record of one enrollment event or one
// executed step. The engine never updates or deletes rows; the analytics UI
// consumes them read-only.
type JourneyLog struct {
	ID            string         `json:"id"`
	JourneyID     string         `json:"journey_id" validate:"required"`
	ParticipantID *string        `json:"participant_id,omitempty"`
	NodeID        *string        `json:"node_id,omitempty"`
	EventType     LogEventType   `json:"event_type"`
	Status        LogStatus      `json:"status"`
	Details       map[string]any `json:"details,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
