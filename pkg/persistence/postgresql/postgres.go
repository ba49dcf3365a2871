// Package postgresql provides the PostgreSQL persistence implementation for
// journeys, participants, the journey log and the CRM records.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver
	"github.com/pumba68/qatering-sub001/pkg/persistence"
	"github.com/pumba68/qatering-sub001/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	journeyRepo     *JourneyRepository
	participantRepo *ParticipantRepository
	logRepo         *JourneyLogRepository
	segmentRepo     *SegmentRepository
	userRepo        *UserRepository
	templateRepo    *TemplateRepository
	couponRepo      *CouponRepository
	walletRepo      *WalletRepository
}

// NewPersistence connects, migrates and returns a PostgreSQL persistence.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())
	if err := migrationManager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:              database,
		logger:          logger,
		journeyRepo:     &JourneyRepository{db: database, logger: logger},
		participantRepo: &ParticipantRepository{db: database, logger: logger},
		logRepo:         &JourneyLogRepository{db: database, logger: logger},
		segmentRepo:     &SegmentRepository{db: database},
		userRepo:        &UserRepository{db: database},
		templateRepo:    &TemplateRepository{db: database},
		couponRepo:      &CouponRepository{db: database},
		walletRepo:      &WalletRepository{db: database},
	}, nil
}

func (p *Persistence) JourneyRepository() persistence.JourneyRepository {
	return p.journeyRepo
}

func (p *Persistence) ParticipantRepository() persistence.ParticipantRepository {
	return p.participantRepo
}

func (p *Persistence) JourneyLogRepository() persistence.JourneyLogRepository {
	return p.logRepo
}

func (p *Persistence) SegmentRepository() persistence.SegmentRepository {
	return p.segmentRepo
}

func (p *Persistence) UserRepository() persistence.UserRepository {
	return p.userRepo
}

func (p *Persistence) TemplateRepository() persistence.TemplateRepository {
	return p.templateRepo
}

func (p *Persistence) CouponRepository() persistence.CouponRepository {
	return p.couponRepo
}

func (p *Persistence) WalletRepository() persistence.WalletRepository {
	return p.walletRepo
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
