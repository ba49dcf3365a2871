// Package models defines the core domain models for journey graph execution.
package models

import (
	"strconv"
	"strings"
	"time"
)

// JourneyStatus represents the lifecycle state of a journey.
type JourneyStatus string

const (
	JourneyStatusDraft    JourneyStatus = "draft"    // Editable, not executable
	JourneyStatusActive   JourneyStatus = "active"   // Enrolling and executing
	JourneyStatusPaused   JourneyStatus = "paused"   // Kept, not selected for execution
	JourneyStatusArchived JourneyStatus = "archived" // Historical, not executable
)

// TriggerType selects how users enter a journey.
type TriggerType string

const (
	TriggerTypeEvent        TriggerType = "event"
	TriggerTypeSegmentEntry TriggerType = "segment_entry"
	TriggerTypeDateBased    TriggerType = "date_based"
)

// EventTypeUserInactive is the only event trigger the enrollment scanner
// resolves itself; other event types are delivered by external producers.
const EventTypeUserInactive = "user.inactive"

// TriggerConfig carries the trigger-type-specific settings of a journey.
type TriggerConfig struct {
	SegmentID string     `json:"segment_id,omitempty"` // segment_entry
	EventType string     `json:"event_type,omitempty"` // event
	Date      *time.Time `json:"date,omitempty"`       // date_based
}

// ReEntryPolicy governs whether a user who already holds a participant row
// may enroll again. Values are "never", "always" or "after_days:N".
type ReEntryPolicy string

const (
	ReEntryNever  ReEntryPolicy = "never"
	ReEntryAlways ReEntryPolicy = "always"

	reEntryAfterDaysPrefix = "after_days:"
)

// AfterDays reports the N of an "after_days:N" policy. The second return is
// false for the fixed policies and for malformed values.
func (p ReEntryPolicy) AfterDays() (int, bool) {
	raw, found := strings.CutPrefix(string(p), reEntryAfterDaysPrefix)
	if !found {
		return 0, false
	}

	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return 0, false
	}

	return days, true
}

// Valid reports whether the policy is one of the supported forms.
func (p ReEntryPolicy) Valid() bool {
	if p == ReEntryNever || p == ReEntryAlways {
		return true
	}

	_, ok := p.AfterDays()

	return ok
}

// GraphContent is the node/edge payload produced by the canvas editor.
type GraphContent struct {
	Nodes []*CanvasNode `json:"nodes"`
	Edges []*CanvasEdge `json:"edges"`
}

// Journey is a tenant-owned automation definition. It is authored by the
// canvas editor and consumed read-only by the execution engine.
type Journey struct {
	ID            string        `json:"id"`
	TenantID      string        `json:"tenant_id"      validate:"required"`
	Name          string        `json:"name"           validate:"required,min=3"`
	Status        JourneyStatus `json:"status"         validate:"required,oneof=draft active paused archived"`
	TriggerType   TriggerType   `json:"trigger_type"   validate:"required,oneof=event segment_entry date_based"`
	TriggerConfig TriggerConfig `json:"trigger_config"`
	Content       GraphContent  `json:"content"`
	ReEntryPolicy ReEntryPolicy `json:"re_entry_policy"`
	StartDate     *time.Time    `json:"start_date,omitempty"`
	EndDate       *time.Time    `json:"end_date,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	DeletedAt     *time.Time    `json:"deleted_at,omitempty"`
}

// Expired reports whether the journey's end date has passed at the given time.
func (j *Journey) Expired(now time.Time) bool {
	return j.EndDate != nil && j.EndDate.Before(now)
}

// Runnable reports whether the journey may enroll and execute participants at
// the given time.
func (j *Journey) Runnable(now time.Time) bool {
	if j.Status != JourneyStatusActive || j.Expired(now) {
		return false
	}

	if j.StartDate != nil && j.StartDate.After(now) {
		return false
	}

	return true
}
