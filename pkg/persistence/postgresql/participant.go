package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
)

// ParticipantRepository handles journey participant database operations.
type ParticipantRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const participantColumns = `
	id
  , journey_id
  , tenant_id
  , user_id
  , status
  , current_node_id
  , entered_at
  , next_step_at
  , converted_at
  , exited_at
  , updated_at
`

func (r *ParticipantRepository) Create(ctx context.Context, participant *models.JourneyParticipant) error {
	now := time.Now().UTC()

	if participant.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate participant ID: %w", err)
		}

		participant.ID = id.String()
	}

	if participant.EnteredAt.IsZero() {
		participant.EnteredAt = now
	}

	participant.UpdatedAt = now

	query := `
		INSERT INTO journey_participants (
			id, journey_id, tenant_id, user_id, status, current_node_id,
			entered_at, next_step_at, converted_at, exited_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		participant.ID, participant.JourneyID, participant.TenantID,
		participant.UserID, participant.Status, participant.CurrentNodeID,
		participant.EnteredAt, participant.NextStepAt, participant.ConvertedAt,
		participant.ExitedAt, participant.UpdatedAt,
	)
	if err != nil {
		return persistence.NewParticipantError("Create", participant.ID, err)
	}

	return nil
}

func (r *ParticipantRepository) Update(ctx context.Context, participant *models.JourneyParticipant) error {
	participant.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE journey_participants SET
			status = $2
		  , current_node_id = $3
		  , next_step_at = $4
		  , converted_at = $5
		  , exited_at = $6
		  , updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		participant.ID, participant.Status, participant.CurrentNodeID,
		participant.NextStepAt, participant.ConvertedAt, participant.ExitedAt,
		participant.UpdatedAt,
	)
	if err != nil {
		return persistence.NewParticipantError("Update", participant.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewParticipantError("Update", participant.ID, err)
	}

	if affected == 0 {
		return persistence.ErrParticipantNotFound
	}

	return nil
}

func (r *ParticipantRepository) GetByID(ctx context.Context, id string) (*models.JourneyParticipant, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM journey_participants
		WHERE id = $1
	`

	participant, err := scanParticipant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrParticipantNotFound
		}

		return nil, persistence.NewParticipantError("GetByID", id, err)
	}

	return participant, nil
}

// LatestByJourneyAndUser returns the most recent enrollment of a user in a
// journey, or ErrParticipantNotFound when the user was never enrolled.
func (r *ParticipantRepository) LatestByJourneyAndUser(ctx context.Context, journeyID, userID string) (*models.JourneyParticipant, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM journey_participants
		WHERE journey_id = $1 AND user_id = $2
		ORDER BY entered_at DESC
		LIMIT 1
	`

	participant, err := scanParticipant(r.db.QueryRowContext(ctx, query, journeyID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrParticipantNotFound
		}

		return nil, persistence.NewParticipantError("LatestByJourneyAndUser", userID, err)
	}

	return participant, nil
}

// ClaimDue atomically claims up to limit due participants of runnable
// journeys. Claiming pushes next_step_at forward by the lease duration so
// that a concurrent run cannot pick up the same rows; the caller is expected
// to overwrite next_step_at with the real schedule when it finishes the step.
// Rows are returned ordered by their original due time, oldest first.
func (r *ParticipantRepository) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.JourneyParticipant, error) {
	query := `
		WITH due AS (
			SELECT jp.id, jp.next_step_at AS due_at
			FROM journey_participants jp
			JOIN journeys j ON j.id = jp.journey_id
			WHERE jp.status = 'active'
			  AND jp.next_step_at IS NOT NULL
			  AND jp.next_step_at <= $1
			  AND j.deleted_at IS NULL
			  AND j.status = 'active'
			  AND (j.start_date IS NULL OR j.start_date <= $1)
			  AND (j.end_date IS NULL OR j.end_date >= $1)
			ORDER BY jp.next_step_at ASC
			LIMIT $2
			FOR UPDATE OF jp SKIP LOCKED
		), claimed AS (
			UPDATE journey_participants jp
			SET next_step_at = $3, updated_at = $1
			FROM due
			WHERE jp.id = due.id
			RETURNING jp.id, jp.journey_id, jp.tenant_id, jp.user_id, jp.status,
				jp.current_node_id, jp.entered_at, jp.next_step_at,
				jp.converted_at, jp.exited_at, jp.updated_at, due.due_at
		)
		SELECT id, journey_id, tenant_id, user_id, status, current_node_id,
			entered_at, next_step_at, converted_at, exited_at, updated_at
		FROM claimed
		ORDER BY due_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, now, limit, now.Add(lease))
	if err != nil {
		return nil, fmt.Errorf("failed to claim due participants: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	participants := make([]*models.JourneyParticipant, 0)

	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}

		participants = append(participants, participant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}

	return participants, nil
}

// SweepExpired exits all active participants of journeys whose end date has
// passed. Returns the number of participants exited.
func (r *ParticipantRepository) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE journey_participants jp
		SET status = 'exited', exited_at = $1, next_step_at = NULL, updated_at = $1
		FROM journeys j
		WHERE j.id = jp.journey_id
		  AND jp.status = 'active'
		  AND j.end_date IS NOT NULL
		  AND j.end_date < $1
	`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired participants: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept participants: %w", err)
	}

	return int(affected), nil
}

func scanParticipant(row rowScanner) (*models.JourneyParticipant, error) {
	var participant models.JourneyParticipant

	err := row.Scan(
		&participant.ID, &participant.JourneyID, &participant.TenantID,
		&participant.UserID, &participant.Status, &participant.CurrentNodeID,
		&participant.EnteredAt, &participant.NextStepAt, &participant.ConvertedAt,
		&participant.ExitedAt, &participant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &participant, nil
}
