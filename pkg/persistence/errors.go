// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types all implementations return.
var (
	// ErrJourneyNotFound indicates a journey was not found by the given id.
	ErrJourneyNotFound = errors.New("journey not found")

	// ErrParticipantNotFound indicates no participant row matched the lookup.
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrSegmentNotFound indicates a segment was not found by the given id.
	ErrSegmentNotFound = errors.New("segment not found")

	// ErrUserNotFound indicates a user was not found by the given id.
	ErrUserNotFound = errors.New("user not found")

	// ErrTemplateNotFound indicates a message template was not found.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrCouponNotFound indicates a coupon was not found by the given id.
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrInvalidAmount indicates a wallet mutation with a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// JourneyError wraps journey-related storage errors with operation context.
type JourneyError struct {
	Op        string
	JourneyID string
	Err       error
}

func (e *JourneyError) Error() string {
	return fmt.Sprintf("%s operation failed for journey %s: %v", e.Op, e.JourneyID, e.Err)
}

func (e *JourneyError) Unwrap() error {
	return e.Err
}

func (e *JourneyError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewJourneyError creates a new journey storage error with context.
func NewJourneyError(op, journeyID string, err error) *JourneyError {
	return &JourneyError{Op: op, JourneyID: journeyID, Err: err}
}

// ParticipantError wraps participant-related storage errors.
type ParticipantError struct {
	Op            string
	ParticipantID string
	Err           error
}

func (e *ParticipantError) Error() string {
	return fmt.Sprintf("%s operation failed for participant %s: %v", e.Op, e.ParticipantID, e.Err)
}

func (e *ParticipantError) Unwrap() error {
	return e.Err
}

func (e *ParticipantError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewParticipantError creates a new participant storage error with context.
func NewParticipantError(op, participantID string, err error) *ParticipantError {
	return &ParticipantError{Op: op, ParticipantID: participantID, Err: err}
}

// IsParticipantNotFound checks if an error indicates a missing participant.
func IsParticipantNotFound(err error) bool {
	return errors.Is(err, ErrParticipantNotFound)
}

// IsNotFound checks if an error indicates any missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJourneyNotFound) ||
		errors.Is(err, ErrParticipantNotFound) ||
		errors.Is(err, ErrSegmentNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrCouponNotFound)
}
