package journey

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pumba68/qatering-sub001/pkg/eventbus"
	"github.com/pumba68/qatering-sub001/pkg/events"
	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
	"github.com/pumba68/qatering-sub001/pkg/protocol"
)

// EnrollmentScanner finds runnable journeys whose trigger currently fires and
// creates or re-enters participants, honoring each journey's re-entry policy.
// No journey's failure is fatal to the scan.
type EnrollmentScanner struct {
	persistence persistence.Persistence
	resolver    protocol.AudienceResolver
	bus         eventbus.EventBus
	logger      *slog.Logger
}

func NewEnrollmentScanner(
	p persistence.Persistence,
	resolver protocol.AudienceResolver,
	bus eventbus.EventBus,
	logger *slog.Logger,
) *EnrollmentScanner {
	return &EnrollmentScanner{persistence: p, resolver: resolver, bus: bus, logger: logger}
}

// Scan enrolls every newly eligible user into every runnable journey and
// returns the number of participant rows created.
func (s *EnrollmentScanner) Scan(ctx context.Context, now time.Time) (int, error) {
	journeys, err := s.persistence.JourneyRepository().ListRunnable(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list runnable journeys: %w", err)
	}

	enrolled := 0

	for _, journey := range journeys {
		count, err := s.scanJourney(ctx, journey, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "enrollment scan failed for journey, continuing",
				"journey_id", journey.ID,
				"journey_name", journey.Name,
				"error", err)

			continue
		}

		enrolled += count
	}

	return enrolled, nil
}

func (s *EnrollmentScanner) scanJourney(ctx context.Context, journey *models.Journey, now time.Time) (int, error) {
	graph, err := models.NewGraph(journey.Content)
	if err != nil {
		return 0, fmt.Errorf("invalid graph: %w", err)
	}

	candidates, err := s.audience(ctx, journey)
	if err != nil {
		return 0, err
	}

	enrolled := 0

	for _, userID := range candidates {
		created, err := s.enrollUser(ctx, journey, graph, userID, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to enroll user, continuing",
				"journey_id", journey.ID,
				"user_id", userID,
				"error", err)

			continue
		}

		if created {
			enrolled++
		}
	}

	return enrolled, nil
}

// audience resolves the set of users the journey's trigger currently selects.
func (s *EnrollmentScanner) audience(ctx context.Context, journey *models.Journey) ([]string, error) {
	switch journey.TriggerType {
	case models.TriggerTypeSegmentEntry:
		segment, err := s.persistence.SegmentRepository().GetByID(ctx, journey.TriggerConfig.SegmentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load trigger segment %q: %w", journey.TriggerConfig.SegmentID, err)
		}

		return s.resolver.MatchingUsers(ctx, journey.TenantID, segment.Rules, segment.Combination)
	case models.TriggerTypeEvent:
		if journey.TriggerConfig.EventType != models.EventTypeUserInactive {
			s.logger.DebugContext(ctx, "skipping journey with externally produced event trigger",
				"journey_id", journey.ID,
				"event_type", journey.TriggerConfig.EventType)

			return nil, nil
		}

		return s.persistence.UserRepository().IDsByActivity(ctx, journey.TenantID,
			models.ActivityDormant, models.ActivityChurned)
	case models.TriggerTypeDateBased:
		// Date-based journeys are armed by the scheduler surface, not the
		// recurring scan.
		s.logger.DebugContext(ctx, "skipping date-based journey in enrollment scan",
			"journey_id", journey.ID)

		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported trigger type %q", journey.TriggerType)
	}
}

// enrollUser applies the journey's re-entry policy to one candidate and
// reports whether a new participant row was created.
func (s *EnrollmentScanner) enrollUser(ctx context.Context, journey *models.Journey, graph *models.Graph, userID string, now time.Time) (bool, error) {
	participants := s.persistence.ParticipantRepository()

	prior, err := participants.LatestByJourneyAndUser(ctx, journey.ID, userID)
	if err != nil && !persistence.IsParticipantNotFound(err) {
		return false, fmt.Errorf("failed to load prior enrollment: %w", err)
	}

	reEntry := prior != nil

	if prior != nil {
		allowed, err := s.applyReEntryPolicy(ctx, journey, prior, now)
		if err != nil {
			return false, err
		}

		if !allowed {
			return false, nil
		}
	}

	startID := graph.Start().ID
	participant := &models.JourneyParticipant{
		JourneyID:     journey.ID,
		TenantID:      journey.TenantID,
		UserID:        userID,
		Status:        models.ParticipantActive,
		CurrentNodeID: &startID,
		EnteredAt:     now,
		NextStepAt:    &now,
	}

	if err := participants.Create(ctx, participant); err != nil {
		return false, fmt.Errorf("failed to create participant: %w", err)
	}

	entry := &models.JourneyLog{
		JourneyID:     journey.ID,
		ParticipantID: &participant.ID,
		EventType:     models.LogEventEntered,
		Status:        models.LogStatusSuccess,
		Details: map[string]any{
			"user_id":  userID,
			"re_entry": reEntry,
		},
		CreatedAt: now,
	}
	if err := s.persistence.JourneyLogRepository().Append(ctx, entry); err != nil {
		return false, fmt.Errorf("failed to log enrollment: %w", err)
	}

	s.publishEnrolled(ctx, journey, participant, reEntry, now)

	return true, nil
}

// applyReEntryPolicy decides whether a user with a prior row enrolls again.
// Policies never exit a row without also re-enrolling: a denied re-entry
// leaves the prior row untouched. Malformed policy values behave as never.
func (s *EnrollmentScanner) applyReEntryPolicy(ctx context.Context, journey *models.Journey, prior *models.JourneyParticipant, now time.Time) (bool, error) {
	policy := journey.ReEntryPolicy

	switch {
	case policy == models.ReEntryAlways:
	case policy == models.ReEntryNever:
		return false, nil
	default:
		days, ok := policy.AfterDays()
		if !ok {
			s.logger.WarnContext(ctx, "journey has malformed re-entry policy, treating as never",
				"journey_id", journey.ID,
				"re_entry_policy", string(policy))

			return false, nil
		}

		if now.Sub(prior.EnteredAt) < time.Duration(days)*24*time.Hour {
			return false, nil
		}
	}

	if !prior.Terminal() {
		prior.Status = models.ParticipantExited
		prior.ExitedAt = &now
		prior.NextStepAt = nil

		if err := s.persistence.ParticipantRepository().Update(ctx, prior); err != nil {
			return false, fmt.Errorf("failed to exit prior enrollment: %w", err)
		}
	}

	return true, nil
}

func (s *EnrollmentScanner) publishEnrolled(ctx context.Context, journey *models.Journey, participant *models.JourneyParticipant, reEntry bool, now time.Time) {
	if s.bus == nil {
		return
	}

	event := events.ParticipantEnrolled{
		BaseEvent: events.BaseEvent{
			ID:        s.bus.GenerateID(),
			Type:      events.ParticipantEnrolledEvent,
			Timestamp: now,
			TenantID:  journey.TenantID,
			JourneyID: journey.ID,
		},
		ParticipantID: participant.ID,
		UserID:        participant.UserID,
		ReEntry:       reEntry,
	}

	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish enrollment event", "error", err)
	}
}
