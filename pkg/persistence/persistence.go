// Package persistence provides the data storage abstraction for journeys,
// participants, the journey log, and the CRM records the engine reads.
package persistence

import (
	"context"
	"time"

	"github.com/pumba68/qatering-sub001/pkg/models"
)

type Persistence interface {
	JourneyRepository() JourneyRepository
	ParticipantRepository() ParticipantRepository
	JourneyLogRepository() JourneyLogRepository
	SegmentRepository() SegmentRepository
	UserRepository() UserRepository
	TemplateRepository() TemplateRepository
	CouponRepository() CouponRepository
	WalletRepository() WalletRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// JourneyRepository stores journey definitions. The engine reads them; the
// save path exists for the authoring API and validates before writing.
type JourneyRepository interface {
	List(ctx context.Context) ([]*models.Journey, error)
	// ListRunnable returns active journeys whose date window contains now.
	ListRunnable(ctx context.Context, now time.Time) ([]*models.Journey, error)
	GetByID(ctx context.Context, id string) (*models.Journey, error)
	Save(ctx context.Context, journey *models.Journey) error
	Delete(ctx context.Context, id string) error
}

// ParticipantRepository stores enrollment rows and implements the claim
// pattern that keeps concurrent runs from processing the same participant.
type ParticipantRepository interface {
	Create(ctx context.Context, participant *models.JourneyParticipant) error
	Update(ctx context.Context, participant *models.JourneyParticipant) error
	GetByID(ctx context.Context, id string) (*models.JourneyParticipant, error)
	// LatestByJourneyAndUser returns the most recent enrollment row of the
	// user in the journey, or ErrParticipantNotFound.
	LatestByJourneyAndUser(ctx context.Context, journeyID, userID string) (*models.JourneyParticipant, error)
	// ClaimDue atomically selects up to limit active participants of active
	// journeys whose next_step_at has passed, oldest-due first, and pushes
	// each claimed row's next_step_at forward by lease so that concurrent
	// invocations never pick the same row.
	ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.JourneyParticipant, error)
	// SweepExpired exits every active participant whose journey end date has
	// passed, regardless of graph position. Returns the number swept.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// JourneyLogRepository is append-only; the engine never updates or deletes.
type JourneyLogRepository interface {
	Append(ctx context.Context, entry *models.JourneyLog) error
	ListByJourney(ctx context.Context, journeyID string) ([]*models.JourneyLog, error)
	ListByParticipant(ctx context.Context, participantID string) ([]*models.JourneyLog, error)
}

type SegmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Segment, error)
	Save(ctx context.Context, segment *models.Segment) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
	// IDsByActivity returns the ids of tenant users in any of the given
	// precomputed activity classes.
	IDsByActivity(ctx context.Context, tenantID string, classes ...models.ActivityClass) ([]string, error)
	// HasOrderSince reports whether the user placed at least one order at or
	// after the given time.
	HasOrderSince(ctx context.Context, userID string, since time.Time) (bool, error)
}

type TemplateRepository interface {
	GetByID(ctx context.Context, id string) (*models.MessageTemplate, error)
	Save(ctx context.Context, template *models.MessageTemplate) error
}

type CouponRepository interface {
	ByID(ctx context.Context, id string) (*models.Coupon, error)
	Save(ctx context.Context, coupon *models.Coupon) error
}

// WalletRepository implements protocol.WalletLedger on top of the store.
type WalletRepository interface {
	Credit(ctx context.Context, userID string, amount float64, note string) (*models.WalletCredit, error)
	Balance(ctx context.Context, userID string) (float64, error)
}
