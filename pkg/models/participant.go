package models

import "time"

// ParticipantStatus is the lifecycle state of one enrollment. Active is the
// only non-terminal state; every other status ends the enrollment instance.
type ParticipantStatus string

const (
	ParticipantActive    ParticipantStatus = "active"
	ParticipantConverted ParticipantStatus = "converted"
	ParticipantExited    ParticipantStatus = "exited"
	ParticipantCompleted ParticipantStatus = "completed"
	ParticipantFailed    ParticipantStatus = "failed"
	ParticipantPaused    ParticipantStatus = "paused"
)

// JourneyParticipant is one enrollment of one user into one journey. A user
// may hold many historical rows per journey (one per re-entry) but never more
// than one active row.
type JourneyParticipant struct {
	ID            string            `json:"id"`
	JourneyID     string            `json:"journey_id" validate:"required"`
	TenantID      string            `json:"tenant_id"  validate:"required"`
	UserID        string            `json:"user_id"    validate:"required"`
	Status        ParticipantStatus `json:"status"`
	CurrentNodeID *string           `json:"current_node_id,omitempty"`
	EnteredAt     time.Time         `json:"entered_at"`
	NextStepAt    *time.Time        `json:"next_step_at,omitempty"` // scheduling key, nil once terminal
	ConvertedAt   *time.Time        `json:"converted_at,omitempty"`
	ExitedAt      *time.Time        `json:"exited_at,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Terminal reports whether the enrollment instance has reached a final state.
func (p *JourneyParticipant) Terminal() bool {
	return p.Status != ParticipantActive
}
