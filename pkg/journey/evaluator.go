// Package journey implements the execution engine: enrollment scanning,
// graph walking, condition evaluation, and batch coordination.
package journey

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
	"github.com/pumba68/qatering-sub001/pkg/protocol"
)

// ConditionEvaluator resolves branch outcomes. Every internal failure is
// absorbed into a false outcome: absence of certainty never grants a yes.
type ConditionEvaluator struct {
	segments persistence.SegmentRepository
	users    persistence.UserRepository
	resolver protocol.AudienceResolver
	logger   *slog.Logger
}

func NewConditionEvaluator(
	segments persistence.SegmentRepository,
	users persistence.UserRepository,
	resolver protocol.AudienceResolver,
	logger *slog.Logger,
) *ConditionEvaluator {
	return &ConditionEvaluator{segments: segments, users: users, resolver: resolver, logger: logger}
}

// Evaluate returns the branch outcome for one user at one instant.
func (e *ConditionEvaluator) Evaluate(ctx context.Context, condition models.Condition, userID string, now time.Time) bool {
	outcome, err := e.evaluate(ctx, condition, userID, now)
	if err != nil {
		e.logger.WarnContext(ctx, "condition evaluation failed, resolving to no",
			"condition_type", condition.Type,
			"user_id", userID,
			"error", err)

		return false
	}

	return outcome
}

func (e *ConditionEvaluator) evaluate(ctx context.Context, condition models.Condition, userID string, now time.Time) (bool, error) {
	switch condition.Type {
	case models.ConditionSegment:
		return e.evaluateSegment(ctx, condition.Segment, userID)
	case models.ConditionEvent:
		return e.evaluateEvent(ctx, condition.Event, userID, now)
	case models.ConditionAttribute:
		return e.evaluateAttribute(ctx, condition.Attribute, userID)
	default:
		return false, fmt.Errorf("unsupported condition type %q", condition.Type)
	}
}

func (e *ConditionEvaluator) evaluateSegment(ctx context.Context, condition *models.SegmentCondition, userID string) (bool, error) {
	if condition == nil {
		return false, fmt.Errorf("segment condition payload is missing")
	}

	segment, err := e.segments.GetByID(ctx, condition.SegmentID)
	if err != nil {
		return false, fmt.Errorf("failed to load segment %q: %w", condition.SegmentID, err)
	}

	return e.resolver.MatchesSingleUser(ctx, userID, segment.Rules, segment.Combination)
}

// evaluateEvent supports one historical event kind: at least one order within
// the trailing window.
func (e *ConditionEvaluator) evaluateEvent(ctx context.Context, condition *models.EventCondition, userID string, now time.Time) (bool, error) {
	if condition == nil {
		return false, fmt.Errorf("event condition payload is missing")
	}

	if condition.WindowDays <= 0 {
		return false, nil
	}

	since := now.Add(-time.Duration(condition.WindowDays) * 24 * time.Hour)

	return e.users.HasOrderSince(ctx, userID, since)
}

func (e *ConditionEvaluator) evaluateAttribute(ctx context.Context, condition *models.AttributeCondition, userID string) (bool, error) {
	if condition == nil {
		return false, fmt.Errorf("attribute condition payload is missing")
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load user %q: %w", userID, err)
	}

	var actual string

	switch condition.Field {
	case "name":
		actual = user.Name
	case "email":
		actual = user.Email
	case "activity":
		actual = string(user.Activity)
	default:
		return false, nil
	}

	switch condition.Operator {
	case models.OperatorEq:
		return actual == condition.Value, nil
	case models.OperatorNeq:
		return actual != condition.Value, nil
	default:
		return false, nil
	}
}
