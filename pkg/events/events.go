// Package events defines the journey lifecycle events published for
// downstream analytics. The JourneyLog stays the engine's sole persisted
// observability write path; these events are fire-and-forget integration
// signals.
package events

import (
	"time"
)

type EventType string

// Topic is the single stream all journey events are published on; consumers
// dispatch on the event_type message metadata.
const Topic = "journeys.events"

const EventTypeMetadataKey = "event_type"

const (
	ParticipantEnrolledEvent EventType = "journey.participant.enrolled"
	StepExecutedEvent        EventType = "journey.step.executed"
	RunCompletedEvent        EventType = "journey.run.completed"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	TenantID  string    `json:"tenant_id,omitempty"`
	JourneyID string    `json:"journey_id,omitempty"`
}

// ParticipantEnrolled is published once per new participant row, including
// re-entries.
type ParticipantEnrolled struct {
	BaseEvent

	ParticipantID string `json:"participant_id"`
	UserID        string `json:"user_id"`
	ReEntry       bool   `json:"re_entry"`
}

func (e ParticipantEnrolled) GetType() EventType {
	return ParticipantEnrolledEvent
}

// StepExecuted mirrors one STEP_EXECUTED journey log row.
type StepExecuted struct {
	BaseEvent

	ParticipantID string         `json:"participant_id"`
	UserID        string         `json:"user_id"`
	NodeID        string         `json:"node_id"`
	NodeType      string         `json:"node_type"`
	Status        string         `json:"status"`
	Details       map[string]any `json:"details,omitempty"`
}

func (e StepExecuted) GetType() EventType {
	return StepExecutedEvent
}

// RunCompleted is published once per batch invocation with the aggregate
// counts the run endpoint returns.
type RunCompleted struct {
	BaseEvent

	Enrolled  int           `json:"enrolled"`
	Processed int           `json:"processed"`
	Errors    int           `json:"errors"`
	Swept     int           `json:"swept"`
	Duration  time.Duration `json:"duration"`
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}
