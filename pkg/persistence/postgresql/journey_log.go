package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pumba68/qatering-sub001/pkg/models"
)

// JourneyLogRepository handles the append-only journey audit log.
type JourneyLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *JourneyLogRepository) Append(ctx context.Context, entry *models.JourneyLog) error {
	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate log ID: %w", err)
		}

		entry.ID = id.String()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal log details: %w", err)
	}

	query := `
		INSERT INTO journey_logs (
			id, journey_id, participant_id, node_id, event_type, status, details, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID, entry.JourneyID, entry.ParticipantID, entry.NodeID,
		entry.EventType, entry.Status, details, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append journey log: %w", err)
	}

	return nil
}

func (r *JourneyLogRepository) ListByJourney(ctx context.Context, journeyID string) ([]*models.JourneyLog, error) {
	query := `
		SELECT id, journey_id, participant_id, node_id, event_type, status, details, created_at
		FROM journey_logs
		WHERE journey_id = $1
		ORDER BY created_at ASC, id ASC
	`

	return r.queryLogs(ctx, query, journeyID)
}

func (r *JourneyLogRepository) ListByParticipant(ctx context.Context, participantID string) ([]*models.JourneyLog, error) {
	query := `
		SELECT id, journey_id, participant_id, node_id, event_type, status, details, created_at
		FROM journey_logs
		WHERE participant_id = $1
		ORDER BY created_at ASC, id ASC
	`

	return r.queryLogs(ctx, query, participantID)
}

func (r *JourneyLogRepository) queryLogs(ctx context.Context, query string, args ...any) ([]*models.JourneyLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journey logs: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	entries := make([]*models.JourneyLog, 0)

	for rows.Next() {
		var (
			entry   models.JourneyLog
			details []byte
		)

		err := rows.Scan(
			&entry.ID, &entry.JourneyID, &entry.ParticipantID, &entry.NodeID,
			&entry.EventType, &entry.Status, &details, &entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journey log: %w", err)
		}

		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal log details: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journey logs: %w", err)
	}

	return entries, nil
}
