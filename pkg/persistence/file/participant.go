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

const participantKind = "participants"

// ParticipantRepository handles participant file operations. Mutating calls
// hold the store mutex, which stands in for the SQL claim pattern.
type ParticipantRepository struct {
	store *Persistence
}

func (r *ParticipantRepository) Create(_ context.Context, participant *models.JourneyParticipant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if participant.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate participant ID: %w", err)
		}

		participant.ID = id.String()
	}

	participant.UpdatedAt = time.Now().UTC()

	return r.store.write(participantKind, participant.ID, participant)
}

func (r *ParticipantRepository) Update(_ context.Context, participant *models.JourneyParticipant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	participant.UpdatedAt = time.Now().UTC()

	return r.store.write(participantKind, participant.ID, participant)
}

func (r *ParticipantRepository) GetByID(_ context.Context, id string) (*models.JourneyParticipant, error) {
	var participant models.JourneyParticipant
	if err := r.store.read(participantKind, id, &participant, persistence.ErrParticipantNotFound); err != nil {
		return nil, err
	}

	return &participant, nil
}

func (r *ParticipantRepository) LatestByJourneyAndUser(ctx context.Context, journeyID, userID string) (*models.JourneyParticipant, error) {
	all, err := r.list(ctx)
	if err != nil {
		return nil, err
	}

	var latest *models.JourneyParticipant

	for _, participant := range all {
		if participant.JourneyID != journeyID || participant.UserID != userID {
			continue
		}

		if latest == nil || participant.EnteredAt.After(latest.EnteredAt) {
			latest = participant
		}
	}

	if latest == nil {
		return nil, persistence.ErrParticipantNotFound
	}

	return latest, nil
}

func (r *ParticipantRepository) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.JourneyParticipant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	all, err := r.list(ctx)
	if err != nil {
		return nil, err
	}

	runnable, err := r.runnableJourneyIDs(ctx, now)
	if err != nil {
		return nil, err
	}

	due := make([]*models.JourneyParticipant, 0)

	for _, participant := range all {
		if participant.Status != models.ParticipantActive {
			continue
		}

		if participant.NextStepAt == nil || participant.NextStepAt.After(now) {
			continue
		}

		if !runnable[participant.JourneyID] {
			continue
		}

		due = append(due, participant)
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].NextStepAt.Before(*due[j].NextStepAt)
	})

	if len(due) > limit {
		due = due[:limit]
	}

	for _, participant := range due {
		leased := now.Add(lease)
		participant.NextStepAt = &leased
		participant.UpdatedAt = now

		if err := r.store.write(participantKind, participant.ID, participant); err != nil {
			return nil, err
		}
	}

	return due, nil
}

func (r *ParticipantRepository) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	all, err := r.list(ctx)
	if err != nil {
		return 0, err
	}

	expired := make(map[string]bool)

	journeys, err := r.store.journeyRepo.List(ctx)
	if err != nil {
		return 0, err
	}

	for _, journey := range journeys {
		if journey.Expired(now) {
			expired[journey.ID] = true
		}
	}

	swept := 0

	for _, participant := range all {
		if participant.Status != models.ParticipantActive || !expired[participant.JourneyID] {
			continue
		}

		exitedAt := now
		participant.Status = models.ParticipantExited
		participant.ExitedAt = &exitedAt
		participant.NextStepAt = nil
		participant.UpdatedAt = now

		if err := r.store.write(participantKind, participant.ID, participant); err != nil {
			return swept, err
		}

		swept++
	}

	return swept, nil
}

func (r *ParticipantRepository) list(_ context.Context) ([]*models.JourneyParticipant, error) {
	ids, err := r.store.ids(participantKind)
	if err != nil {
		return nil, err
	}

	participants := make([]*models.JourneyParticipant, 0, len(ids))

	for _, id := range ids {
		var participant models.JourneyParticipant
		if err := r.store.read(participantKind, id, &participant, persistence.ErrParticipantNotFound); err != nil {
			return nil, fmt.Errorf("failed to load participant %s: %w", id, err)
		}

		participants = append(participants, &participant)
	}

	return participants, nil
}

func (r *ParticipantRepository) runnableJourneyIDs(ctx context.Context, now time.Time) (map[string]bool, error) {
	journeys, err := r.store.journeyRepo.ListRunnable(ctx, now)
	if err != nil {
		return nil, err
	}

	runnable := make(map[string]bool, len(journeys))
	for _, journey := range journeys {
		runnable[journey.ID] = true
	}

	return runnable, nil
}
