package postgresql_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantRepository_Lifecycle(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	journey := activeTestJourney(t, "tenant-1")
	require.NoError(t, p.JourneyRepository().Save(ctx, journey))

	repo := p.ParticipantRepository()
	now := time.Now().UTC()

	startID := "start"
	participant := &models.JourneyParticipant{
		JourneyID:     journey.ID,
		TenantID:      "tenant-1",
		UserID:        "user-1",
		Status:        models.ParticipantActive,
		CurrentNodeID: &startID,
		EnteredAt:     now.Add(-time.Hour),
		NextStepAt:    &now,
	}

	err := repo.Create(ctx, participant)
	require.NoError(t, err)
	require.NotEmpty(t, participant.ID)

	retrieved, err := repo.GetByID(ctx, participant.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", retrieved.UserID)
	require.NotNil(t, retrieved.CurrentNodeID)
	assert.Equal(t, "start", *retrieved.CurrentNodeID)

	retrieved.Status = models.ParticipantCompleted
	retrieved.CurrentNodeID = nil
	retrieved.NextStepAt = nil
	require.NoError(t, repo.Update(ctx, retrieved))

	updated, err := repo.GetByID(ctx, participant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantCompleted, updated.Status)
	assert.Nil(t, updated.NextStepAt)
}

func TestParticipantRepository_Update_NotFound(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.ParticipantRepository().Update(ctx, &models.JourneyParticipant{
		ID:     "0198b4d2-0000-7000-8000-000000000001",
		Status: models.ParticipantActive,
	})
	assert.ErrorIs(t, err, persistence.ErrParticipantNotFound)
}

func TestParticipantRepository_ClaimDue(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	journey := activeTestJourney(t, "tenant-1")
	require.NoError(t, p.JourneyRepository().Save(ctx, journey))

	repo := p.ParticipantRepository()
	now := time.Now().UTC()

	enroll := func(userID string, due time.Time) *models.JourneyParticipant {
		participant := &models.JourneyParticipant{
			JourneyID:  journey.ID,
			TenantID:   "tenant-1",
			UserID:     userID,
			Status:     models.ParticipantActive,
			EnteredAt:  due.Add(-time.Hour),
			NextStepAt: &due,
		}
		require.NoError(t, repo.Create(ctx, participant))

		return participant
	}

	oldest := enroll("user-1", now.Add(-3*time.Hour))
	middle := enroll("user-2", now.Add(-2*time.Hour))
	enroll("user-3", now.Add(time.Hour)) // not yet due

	claimed, err := repo.ClaimDue(ctx, now, 10, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, oldest.ID, claimed[0].ID)
	assert.Equal(t, middle.ID, claimed[1].ID)

	// The lease pushed next_step_at forward, so a second claim at the same
	// instant finds nothing.
	again, err := repo.ClaimDue(ctx, now, 10, 5*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestParticipantRepository_ClaimDue_Limit(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	journey := activeTestJourney(t, "tenant-1")
	require.NoError(t, p.JourneyRepository().Save(ctx, journey))

	repo := p.ParticipantRepository()
	now := time.Now().UTC()

	for i := range 5 {
		due := now.Add(time.Duration(-i-1) * time.Minute)
		participant := &models.JourneyParticipant{
			JourneyID:  journey.ID,
			TenantID:   "tenant-1",
			UserID:     uuid.New().String(),
			Status:     models.ParticipantActive,
			EnteredAt:  due,
			NextStepAt: &due,
		}
		require.NoError(t, repo.Create(ctx, participant))
	}

	claimed, err := repo.ClaimDue(ctx, now, 3, 5*time.Minute)
	require.NoError(t, err)
	assert.Len(t, claimed, 3)

	rest, err := repo.ClaimDue(ctx, now, 3, 5*time.Minute)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}

func TestParticipantRepository_ClaimDue_SkipsPausedJourneys(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	journey := activeTestJourney(t, "tenant-1")
	journey.Status = models.JourneyStatusPaused
	require.NoError(t, p.JourneyRepository().Save(ctx, journey))

	repo := p.ParticipantRepository()
	now := time.Now().UTC()
	due := now.Add(-time.Hour)

	participant := &models.JourneyParticipant{
		JourneyID:  journey.ID,
		TenantID:   "tenant-1",
		UserID:     "user-1",
		Status:     models.ParticipantActive,
		EnteredAt:  due,
		NextStepAt: &due,
	}
	require.NoError(t, repo.Create(ctx, participant))

	claimed, err := repo.ClaimDue(ctx, now, 10, 5*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestParticipantRepository_LatestByJourneyAndUser(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	journey := activeTestJourney(t, "tenant-1")
	require.NoError(t, p.JourneyRepository().Save(ctx, journey))

	repo := p.ParticipantRepository()
	now := time.Now().UTC()

	first := &models.JourneyParticipant{
		JourneyID: journey.ID,
		TenantID:  "tenant-1",
		UserID:    "user-1",
		Status:    models.ParticipantCompleted,
		EnteredAt: now.Add(-48 * time.Hour),
	}
	require.NoError(t, repo.Create(ctx, first))

	second := &models.JourneyParticipant{
		JourneyID: journey.ID,
		TenantID:  "tenant-1",
		UserID:    "user-1",
		Status:    models.ParticipantActive,
		EnteredAt: now.Add(-time.Hour),
	}
	require.NoError(t, repo.Create(ctx, second))

	latest, err := repo.LatestByJourneyAndUser(ctx, journey.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	_, err = repo.LatestByJourneyAndUser(ctx, journey.ID, "never-enrolled")
	assert.ErrorIs(t, err, persistence.ErrParticipantNotFound)
}

func TestParticipantRepository_SweepExpired(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	now := time.Now().UTC()
	past := now.Add(-24 * time.Hour)

	expired := activeTestJourney(t, "tenant-1")
	expired.EndDate = &past
	require.NoError(t, p.JourneyRepository().Save(ctx, expired))

	running := activeTestJourney(t, "tenant-1")
	require.NoError(t, p.JourneyRepository().Save(ctx, running))

	repo := p.ParticipantRepository()
	due := now.Add(time.Hour)

	stranded := &models.JourneyParticipant{
		JourneyID:  expired.ID,
		TenantID:   "tenant-1",
		UserID:     "user-1",
		Status:     models.ParticipantActive,
		EnteredAt:  past,
		NextStepAt: &due,
	}
	require.NoError(t, repo.Create(ctx, stranded))

	healthy := &models.JourneyParticipant{
		JourneyID:  running.ID,
		TenantID:   "tenant-1",
		UserID:     "user-2",
		Status:     models.ParticipantActive,
		EnteredAt:  past,
		NextStepAt: &due,
	}
	require.NoError(t, repo.Create(ctx, healthy))

	swept, err := repo.SweepExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	exited, err := repo.GetByID(ctx, stranded.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantExited, exited.Status)
	assert.NotNil(t, exited.ExitedAt)
	assert.Nil(t, exited.NextStepAt)

	untouched, err := repo.GetByID(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantActive, untouched.Status)
}

func TestJourneyLogRepository_AppendAndList(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	journey := activeTestJourney(t, "tenant-1")
	require.NoError(t, p.JourneyRepository().Save(ctx, journey))

	repo := p.JourneyLogRepository()
	participantID := uuid.New().String()
	nodeID := "mail"
	base := time.Now().UTC().Add(-time.Minute)

	entries := []*models.JourneyLog{
		{
			JourneyID:     journey.ID,
			ParticipantID: &participantID,
			EventType:     models.LogEventEntered,
			Status:        models.LogStatusSuccess,
			CreatedAt:     base,
		},
		{
			JourneyID:     journey.ID,
			ParticipantID: &participantID,
			NodeID:        &nodeID,
			EventType:     models.LogEventStepExecuted,
			Status:        models.LogStatusSuccess,
			Details:       map[string]any{"message_id": "msg-1"},
			CreatedAt:     base.Add(time.Second),
		},
	}
	for _, entry := range entries {
		require.NoError(t, repo.Append(ctx, entry))
	}

	byJourney, err := repo.ListByJourney(ctx, journey.ID)
	require.NoError(t, err)
	require.Len(t, byJourney, 2)
	assert.Equal(t, models.LogEventEntered, byJourney[0].EventType)
	assert.Equal(t, models.LogEventStepExecuted, byJourney[1].EventType)
	assert.Equal(t, "msg-1", byJourney[1].Details["message_id"])

	byParticipant, err := repo.ListByParticipant(ctx, participantID)
	require.NoError(t, err)
	assert.Len(t, byParticipant, 2)
}

func TestUserRepository_IDsByActivityAndOrders(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)

	users := p.UserRepository()

	require.NoError(t, users.Save(ctx, &models.User{
		ID: "user-1", TenantID: "tenant-1", Activity: models.ActivityDormant,
	}))
	require.NoError(t, users.Save(ctx, &models.User{
		ID: "user-2", TenantID: "tenant-1", Activity: models.ActivityChurned,
	}))
	require.NoError(t, users.Save(ctx, &models.User{
		ID: "user-3", TenantID: "tenant-1", Activity: models.ActivityActive,
	}))
	require.NoError(t, users.Save(ctx, &models.User{
		ID: "user-4", TenantID: "tenant-2", Activity: models.ActivityDormant,
	}))

	ids, err := users.IDsByActivity(ctx, "tenant-1", models.ActivityDormant, models.ActivityChurned)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1", "user-2"}, ids)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() { require.NoError(t, db.Close()) }()

	insertOrder(ctx, t, db, "user-1", time.Now().UTC().Add(-2*time.Hour))

	recent, err := users.HasOrderSince(ctx, "user-1", time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.True(t, recent)

	old, err := users.HasOrderSince(ctx, "user-1", time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, old)

	none, err := users.HasOrderSince(ctx, "user-2", time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.False(t, none)
}

func insertOrder(ctx context.Context, t *testing.T, db *sql.DB, userID string, placedAt time.Time) {
	t.Helper()

	_, err := db.ExecContext(ctx,
		"INSERT INTO orders (id, user_id, placed_at) VALUES ($1, $2, $3)",
		uuid.New().String(), userID, placedAt)
	require.NoError(t, err)
}

func TestWalletRepository_Credit(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	wallet := p.WalletRepository()

	first, err := wallet.Credit(ctx, "user-1", 5, "welcome bonus")
	require.NoError(t, err)
	assert.InDelta(t, 0, first.BalanceBefore, 0.001)
	assert.InDelta(t, 5, first.BalanceAfter, 0.001)

	second, err := wallet.Credit(ctx, "user-1", 2.5, "loyalty reward")
	require.NoError(t, err)
	assert.InDelta(t, 5, second.BalanceBefore, 0.001)
	assert.InDelta(t, 7.5, second.BalanceAfter, 0.001)

	balance, err := wallet.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 7.5, balance, 0.001)
}

func TestWalletRepository_Credit_ConcurrentFirstCredits(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)

	wallet := p.WalletRepository()

	// Both credits race to create the wallet row; neither result may be
	// lost and the ledger rows must chain without overlapping.
	var wg sync.WaitGroup

	errs := make([]error, 2)

	for i := range errs {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, errs[i] = wallet.Credit(ctx, "user-fresh", 5, "welcome bonus")
		}()
	}

	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	balance, err := wallet.Balance(ctx, "user-fresh")
	require.NoError(t, err)
	assert.InDelta(t, 10, balance, 0.001)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() { require.NoError(t, db.Close()) }()

	befores := make(map[float64]bool)

	rows, err := db.QueryContext(ctx,
		"SELECT balance_before, balance_after FROM wallet_transactions WHERE user_id = $1", "user-fresh")
	require.NoError(t, err)

	defer func() { require.NoError(t, rows.Close()) }()

	for rows.Next() {
		var before, after float64

		require.NoError(t, rows.Scan(&before, &after))
		assert.InDelta(t, before+5, after, 0.001)
		befores[before] = true
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, map[float64]bool{0: true, 5: true}, befores)
}

func TestWalletRepository_Credit_RejectsNonPositiveAmount(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	_, err := p.WalletRepository().Credit(ctx, "user-1", 0, "")
	assert.ErrorIs(t, err, persistence.ErrInvalidAmount)

	_, err = p.WalletRepository().Credit(ctx, "user-1", -3, "")
	assert.ErrorIs(t, err, persistence.ErrInvalidAmount)
}

func TestSegmentRepository_SaveAndGet(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	repo := p.SegmentRepository()

	segment := &models.Segment{
		ID:       "seg-1",
		TenantID: "tenant-1",
		Name:     "Dormant 30d",
		Rules: []models.SegmentRule{
			{Field: "last_order_days", Operator: "gte", Value: float64(30)},
		},
		Combination: models.CombineAnd,
	}
	require.NoError(t, repo.Save(ctx, segment))

	retrieved, err := repo.GetByID(ctx, "seg-1")
	require.NoError(t, err)
	assert.Equal(t, "Dormant 30d", retrieved.Name)
	require.Len(t, retrieved.Rules, 1)
	assert.Equal(t, "last_order_days", retrieved.Rules[0].Field)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrSegmentNotFound)
}

func TestTemplateAndCouponRepositories(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	templates := p.TemplateRepository()
	require.NoError(t, templates.Save(ctx, &models.MessageTemplate{
		ID:       "tpl-1",
		TenantID: "tenant-1",
		Name:     "Welcome",
		Subject:  "Hi {{name}}",
		Content:  "<p>Welcome, {{name}}!</p>",
	}))

	template, err := templates.GetByID(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, "Hi {{name}}", template.Subject)

	_, err = templates.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrTemplateNotFound)

	coupons := p.CouponRepository()
	require.NoError(t, coupons.Save(ctx, &models.Coupon{
		ID:            "cpn-1",
		Code:          "COMEBACK10",
		Name:          "Comeback",
		Type:          "percentage",
		DiscountValue: 10,
	}))

	coupon, err := coupons.ByID(ctx, "cpn-1")
	require.NoError(t, err)
	assert.Equal(t, "COMEBACK10", coupon.Code)

	_, err = coupons.ByID(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrCouponNotFound)
}
