package file

import (
	"testing"
	"time"

	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func TestJourneyRepositorySaveAndGet(t *testing.T) {
	store := testStore(t)

	journey := &models.Journey{
		TenantID:      "tenant-1",
		Name:          "Welcome flow",
		Status:        models.JourneyStatusActive,
		TriggerType:   models.TriggerTypeSegmentEntry,
		TriggerConfig: models.TriggerConfig{SegmentID: "seg-1"},
		ReEntryPolicy: models.ReEntryNever,
	}

	require.NoError(t, store.JourneyRepository().Save(t.Context(), journey))
	assert.NotEmpty(t, journey.ID)
	assert.False(t, journey.CreatedAt.IsZero())

	loaded, err := store.JourneyRepository().GetByID(t.Context(), journey.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome flow", loaded.Name)
	assert.Equal(t, models.TriggerTypeSegmentEntry, loaded.TriggerType)

	_, err = store.JourneyRepository().GetByID(t.Context(), "missing")
	assert.ErrorIs(t, err, persistence.ErrJourneyNotFound)
}

func TestJourneyRepositoryListRunnable(t *testing.T) {
	store := testStore(t)
	now := time.Now().UTC()
	yesterday := now.Add(-24 * time.Hour)

	active := &models.Journey{TenantID: "t", Name: "active one", Status: models.JourneyStatusActive}
	paused := &models.Journey{TenantID: "t", Name: "paused one", Status: models.JourneyStatusPaused}
	ended := &models.Journey{TenantID: "t", Name: "ended one", Status: models.JourneyStatusActive, EndDate: &yesterday}

	for _, journey := range []*models.Journey{active, paused, ended} {
		require.NoError(t, store.JourneyRepository().Save(t.Context(), journey))
	}

	runnable, err := store.JourneyRepository().ListRunnable(t.Context(), now)
	require.NoError(t, err)
	require.Len(t, runnable, 1)
	assert.Equal(t, active.ID, runnable[0].ID)
}

func TestParticipantClaimDue(t *testing.T) {
	store := testStore(t)
	now := time.Now().UTC()

	journey := &models.Journey{TenantID: "t", Name: "claim test", Status: models.JourneyStatusActive}
	require.NoError(t, store.JourneyRepository().Save(t.Context(), journey))

	older := now.Add(-2 * time.Hour)
	newer := now.Add(-1 * time.Hour)
	future := now.Add(time.Hour)

	first := &models.JourneyParticipant{JourneyID: journey.ID, TenantID: "t", UserID: "u1", Status: models.ParticipantActive, EnteredAt: older, NextStepAt: &older}
	second := &models.JourneyParticipant{JourneyID: journey.ID, TenantID: "t", UserID: "u2", Status: models.ParticipantActive, EnteredAt: newer, NextStepAt: &newer}
	notDue := &models.JourneyParticipant{JourneyID: journey.ID, TenantID: "t", UserID: "u3", Status: models.ParticipantActive, EnteredAt: now, NextStepAt: &future}
	done := &models.JourneyParticipant{JourneyID: journey.ID, TenantID: "t", UserID: "u4", Status: models.ParticipantCompleted, EnteredAt: older}

	for _, participant := range []*models.JourneyParticipant{first, second, notDue, done} {
		require.NoError(t, store.ParticipantRepository().Create(t.Context(), participant))
	}

	claimed, err := store.ParticipantRepository().ClaimDue(t.Context(), now, 10, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, "u1", claimed[0].UserID, "oldest-due first")
	assert.Equal(t, "u2", claimed[1].UserID)

	// Claimed rows are leased into the future; a second claim finds nothing.
	again, err := store.ParticipantRepository().ClaimDue(t.Context(), now, 10, 10*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestParticipantClaimDueSkipsPausedJourneys(t *testing.T) {
	store := testStore(t)
	now := time.Now().UTC()

	journey := &models.Journey{TenantID: "t", Name: "paused test", Status: models.JourneyStatusPaused}
	require.NoError(t, store.JourneyRepository().Save(t.Context(), journey))

	due := now.Add(-time.Minute)
	participant := &models.JourneyParticipant{JourneyID: journey.ID, TenantID: "t", UserID: "u1", Status: models.ParticipantActive, EnteredAt: due, NextStepAt: &due}
	require.NoError(t, store.ParticipantRepository().Create(t.Context(), participant))

	claimed, err := store.ParticipantRepository().ClaimDue(t.Context(), now, 10, 10*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestParticipantLatestByJourneyAndUser(t *testing.T) {
	store := testStore(t)
	now := time.Now().UTC()

	journey := &models.Journey{TenantID: "t", Name: "latest test", Status: models.JourneyStatusActive}
	require.NoError(t, store.JourneyRepository().Save(t.Context(), journey))

	old := &models.JourneyParticipant{JourneyID: journey.ID, TenantID: "t", UserID: "u1", Status: models.ParticipantExited, EnteredAt: now.Add(-48 * time.Hour)}
	recent := &models.JourneyParticipant{JourneyID: journey.ID, TenantID: "t", UserID: "u1", Status: models.ParticipantActive, EnteredAt: now.Add(-time.Hour)}

	require.NoError(t, store.ParticipantRepository().Create(t.Context(), old))
	require.NoError(t, store.ParticipantRepository().Create(t.Context(), recent))

	latest, err := store.ParticipantRepository().LatestByJourneyAndUser(t.Context(), journey.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, recent.ID, latest.ID)

	_, err = store.ParticipantRepository().LatestByJourneyAndUser(t.Context(), journey.ID, "stranger")
	assert.ErrorIs(t, err, persistence.ErrParticipantNotFound)
}

func TestSweepExpired(t *testing.T) {
	store := testStore(t)
	now := time.Now().UTC()
	yesterday := now.Add(-24 * time.Hour)

	ended := &models.Journey{TenantID: "t", Name: "ended flow", Status: models.JourneyStatusActive, EndDate: &yesterday}
	require.NoError(t, store.JourneyRepository().Save(t.Context(), ended))

	due := now.Add(-time.Minute)
	participant := &models.JourneyParticipant{JourneyID: ended.ID, TenantID: "t", UserID: "u1", Status: models.ParticipantActive, EnteredAt: yesterday, NextStepAt: &due}
	require.NoError(t, store.ParticipantRepository().Create(t.Context(), participant))

	swept, err := store.ParticipantRepository().SweepExpired(t.Context(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	reloaded, err := store.ParticipantRepository().GetByID(t.Context(), participant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantExited, reloaded.Status)
	require.NotNil(t, reloaded.ExitedAt)
	assert.Nil(t, reloaded.NextStepAt)
}

func TestWalletCredit(t *testing.T) {
	store := testStore(t)

	credit, err := store.WalletRepository().Credit(t.Context(), "u1", 5, "journey reward")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, credit.BalanceBefore, 0)
	assert.InDelta(t, 5.0, credit.BalanceAfter, 0)

	credit, err = store.WalletRepository().Credit(t.Context(), "u1", 2.5, "second reward")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, credit.BalanceBefore, 0)
	assert.InDelta(t, 7.5, credit.BalanceAfter, 0)

	balance, err := store.WalletRepository().Balance(t.Context(), "u1")
	require.NoError(t, err)
	assert.InDelta(t, 7.5, balance, 0)

	_, err = store.WalletRepository().Credit(t.Context(), "u1", 0, "nope")
	assert.ErrorIs(t, err, persistence.ErrInvalidAmount)
}

func TestJourneyLogAppendAndList(t *testing.T) {
	store := testStore(t)

	participantID := "p1"
	nodeID := "n1"

	first := &models.JourneyLog{JourneyID: "j1", ParticipantID: &participantID, EventType: models.LogEventEntered, Status: models.LogStatusSuccess, CreatedAt: time.Now().UTC().Add(-time.Minute)}
	second := &models.JourneyLog{JourneyID: "j1", ParticipantID: &participantID, NodeID: &nodeID, EventType: models.LogEventStepExecuted, Status: models.LogStatusSuccess, CreatedAt: time.Now().UTC()}

	require.NoError(t, store.JourneyLogRepository().Append(t.Context(), first))
	require.NoError(t, store.JourneyLogRepository().Append(t.Context(), second))

	entries, err := store.JourneyLogRepository().ListByParticipant(t.Context(), participantID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.LogEventEntered, entries[0].EventType)
	assert.Equal(t, models.LogEventStepExecuted, entries[1].EventType)
}

func TestUserActivityAndOrders(t *testing.T) {
	store := testStore(t)
	now := time.Now().UTC()

	users := []*models.User{
		{ID: "u1", TenantID: "t", Name: "Ada", Activity: models.ActivityDormant},
		{ID: "u2", TenantID: "t", Name: "Grace", Activity: models.ActivityChurned},
		{ID: "u3", TenantID: "t", Name: "Alan", Activity: models.ActivityActive},
		{ID: "u4", TenantID: "other", Name: "Edsger", Activity: models.ActivityDormant},
	}
	for _, user := range users {
		require.NoError(t, store.UserRepository().Save(t.Context(), user))
	}

	ids, err := store.UserRepository().IDsByActivity(t.Context(), "t", models.ActivityDormant, models.ActivityChurned)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, ids)

	userRepo, ok := store.UserRepository().(*UserRepository)
	require.True(t, ok)
	require.NoError(t, userRepo.RecordOrder(t.Context(), "u1", now.Add(-48*time.Hour)))

	has, err := store.UserRepository().HasOrderSince(t.Context(), "u1", now.Add(-72*time.Hour))
	require.NoError(t, err)
	assert.True(t, has)

	has, err = store.UserRepository().HasOrderSince(t.Context(), "u1", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, has)

	has, err = store.UserRepository().HasOrderSince(t.Context(), "never-ordered", now)
	require.NoError(t, err)
	assert.False(t, has)
}
