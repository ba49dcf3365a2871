package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
)

const logKind = "journey_logs"

// JourneyLogRepository handles append-only journey log file operations.
type JourneyLogRepository struct {
	store *Persistence
}

func (r *JourneyLogRepository) Append(_ context.Context, entry *models.JourneyLog) error {
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

	return r.store.write(logKind, entry.ID, entry)
}

func (r *JourneyLogRepository) ListByJourney(ctx context.Context, journeyID string) ([]*models.JourneyLog, error) {
	return r.listWhere(ctx, func(entry *models.JourneyLog) bool {
		return entry.JourneyID == journeyID
	})
}

func (r *JourneyLogRepository) ListByParticipant(ctx context.Context, participantID string) ([]*models.JourneyLog, error) {
	return r.listWhere(ctx, func(entry *models.JourneyLog) bool {
		return entry.ParticipantID != nil && *entry.ParticipantID == participantID
	})
}

func (r *JourneyLogRepository) listWhere(_ context.Context, match func(*models.JourneyLog) bool) ([]*models.JourneyLog, error) {
	ids, err := r.store.ids(logKind)
	if err != nil {
		return nil, err
	}

	entries := make([]*models.JourneyLog, 0)

	for _, id := range ids {
		var entry models.JourneyLog
		if err := r.store.read(logKind, id, &entry, persistence.ErrParticipantNotFound); err != nil {
			return nil, fmt.Errorf("failed to load log entry %s: %w", id, err)
		}

		if match(&entry) {
			entries = append(entries, &entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			// UUIDv7 ids are time-ordered, which keeps same-timestamp rows stable.
			return entries[i].ID < entries[j].ID
		}

		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	return entries, nil
}
