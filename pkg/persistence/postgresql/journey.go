package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
)

// JourneyRepository handles journey-related database operations.
type JourneyRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const journeyColumns = `
	id
  , tenant_id
  , name
  , status
  , trigger_type
  , trigger_config
  , content
  , re_entry_policy
  , start_date
  , end_date
  , created_at
  , updated_at
  , deleted_at
`

func (r *JourneyRepository) List(ctx context.Context) ([]*models.Journey, error) {
	query := `
		SELECT ` + journeyColumns + `
		FROM journeys
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`

	return r.queryJourneys(ctx, query)
}

func (r *JourneyRepository) ListRunnable(ctx context.Context, now time.Time) ([]*models.Journey, error) {
	query := `
		SELECT ` + journeyColumns + `
		FROM journeys
		WHERE deleted_at IS NULL
		  AND status = 'active'
		  AND (start_date IS NULL OR start_date <= $1)
		  AND (end_date IS NULL OR end_date >= $1)
		ORDER BY created_at ASC
	`

	return r.queryJourneys(ctx, query, now)
}

func (r *JourneyRepository) GetByID(ctx context.Context, id string) (*models.Journey, error) {
	query := `
		SELECT ` + journeyColumns + `
		FROM journeys
		WHERE id = $1 AND deleted_at IS NULL
	`

	journey, err := scanJourney(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrJourneyNotFound
		}

		return nil, persistence.NewJourneyError("GetByID", id, err)
	}

	return journey, nil
}

func (r *JourneyRepository) Save(ctx context.Context, journey *models.Journey) error {
	now := time.Now().UTC()

	if journey.CreatedAt.IsZero() {
		journey.CreatedAt = now
	}

	journey.UpdatedAt = now

	if journey.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate journey ID: %w", err)
		}

		journey.ID = id.String()
	}

	triggerConfig, err := json.Marshal(journey.TriggerConfig)
	if err != nil {
		return persistence.NewJourneyError("Save", journey.ID, err)
	}

	content, err := json.Marshal(journey.Content)
	if err != nil {
		return persistence.NewJourneyError("Save", journey.ID, err)
	}

	query := `
		INSERT INTO journeys (
			id, tenant_id, name, status, trigger_type, trigger_config,
			content, re_entry_policy, start_date, end_date, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id
		  , name = EXCLUDED.name
		  , status = EXCLUDED.status
		  , trigger_type = EXCLUDED.trigger_type
		  , trigger_config = EXCLUDED.trigger_config
		  , content = EXCLUDED.content
		  , re_entry_policy = EXCLUDED.re_entry_policy
		  , start_date = EXCLUDED.start_date
		  , end_date = EXCLUDED.end_date
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		journey.ID, journey.TenantID, journey.Name, journey.Status,
		journey.TriggerType, triggerConfig, content, journey.ReEntryPolicy,
		journey.StartDate, journey.EndDate, journey.CreatedAt, journey.UpdatedAt,
	)
	if err != nil {
		return persistence.NewJourneyError("Save", journey.ID, err)
	}

	return nil
}

// Delete soft deletes a journey by setting deleted_at.
func (r *JourneyRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE journeys SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return persistence.NewJourneyError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewJourneyError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.ErrJourneyNotFound
	}

	return nil
}

func (r *JourneyRepository) queryJourneys(ctx context.Context, query string, args ...any) ([]*models.Journey, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journeys: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	journeys := make([]*models.Journey, 0)

	for rows.Next() {
		journey, err := scanJourney(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journey: %w", err)
		}

		journeys = append(journeys, journey)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journeys: %w", err)
	}

	return journeys, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJourney(row rowScanner) (*models.Journey, error) {
	var (
		journey       models.Journey
		triggerConfig []byte
		content       []byte
	)

	err := row.Scan(
		&journey.ID, &journey.TenantID, &journey.Name, &journey.Status,
		&journey.TriggerType, &triggerConfig, &content, &journey.ReEntryPolicy,
		&journey.StartDate, &journey.EndDate, &journey.CreatedAt,
		&journey.UpdatedAt, &journey.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(triggerConfig, &journey.TriggerConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
	}

	if err := json.Unmarshal(content, &journey.Content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content: %w", err)
	}

	return &journey, nil
}
