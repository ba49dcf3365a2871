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

const journeyKind = "journeys"

// JourneyRepository handles journey file operations.
type JourneyRepository struct {
	store *Persistence
}

func (r *JourneyRepository) List(ctx context.Context) ([]*models.Journey, error) {
	ids, err := r.store.ids(journeyKind)
	if err != nil {
		return nil, err
	}

	journeys := make([]*models.Journey, 0, len(ids))

	for _, id := range ids {
		journey, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load journey %s: %w", id, err)
		}

		if journey.DeletedAt == nil {
			journeys = append(journeys, journey)
		}
	}

	sort.Slice(journeys, func(i, j int) bool {
		return journeys[i].CreatedAt.After(journeys[j].CreatedAt)
	})

	return journeys, nil
}

func (r *JourneyRepository) ListRunnable(ctx context.Context, now time.Time) ([]*models.Journey, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	runnable := make([]*models.Journey, 0, len(all))

	for _, journey := range all {
		if journey.Runnable(now) {
			runnable = append(runnable, journey)
		}
	}

	return runnable, nil
}

func (r *JourneyRepository) GetByID(_ context.Context, id string) (*models.Journey, error) {
	var journey models.Journey
	if err := r.store.read(journeyKind, id, &journey, persistence.ErrJourneyNotFound); err != nil {
		return nil, err
	}

	if journey.DeletedAt != nil {
		return nil, persistence.NewJourneyError("get", id, persistence.ErrJourneyNotFound)
	}

	return &journey, nil
}

func (r *JourneyRepository) Save(_ context.Context, journey *models.Journey) error {
	now := time.Now().UTC()

	if journey.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate journey ID: %w", err)
		}

		journey.ID = id.String()
	}

	if journey.CreatedAt.IsZero() {
		journey.CreatedAt = now
	}

	journey.UpdatedAt = now

	return r.store.write(journeyKind, journey.ID, journey)
}

func (r *JourneyRepository) Delete(ctx context.Context, id string) error {
	journey, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	journey.DeletedAt = &now

	return r.store.write(journeyKind, id, journey)
}
