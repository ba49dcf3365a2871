// Package audience resolves segment membership from the CRM records in the
// persistence layer, with an optional Redis snapshot cache in front for the
// per-tenant batching the enrollment scan depends on.
package audience

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
)

// StoreResolver implements protocol.AudienceResolver by evaluating segment
// rules against the stored customer records. Unknown fields and operators
// evaluate to false so a typo in a rule narrows the audience instead of
// widening it.
type StoreResolver struct {
	users  persistence.UserRepository
	logger *slog.Logger
}

func NewStoreResolver(users persistence.UserRepository, logger *slog.Logger) *StoreResolver {
	return &StoreResolver{users: users, logger: logger}
}

func (r *StoreResolver) MatchingUsers(ctx context.Context, tenantID string, rules []models.SegmentRule, mode models.CombinationMode) ([]string, error) {
	ids, err := r.users.IDsByActivity(ctx, tenantID,
		models.ActivityActive, models.ActivityDormant, models.ActivityChurned)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant users: %w", err)
	}

	matching := make([]string, 0)

	for _, id := range ids {
		matches, err := r.MatchesSingleUser(ctx, id, rules, mode)
		if err != nil {
			r.logger.WarnContext(ctx, "skipping user after rule evaluation error",
				"user_id", id, "error", err)

			continue
		}

		if matches {
			matching = append(matching, id)
		}
	}

	return matching, nil
}

func (r *StoreResolver) MatchesSingleUser(ctx context.Context, userID string, rules []models.SegmentRule, mode models.CombinationMode) (bool, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load user %q: %w", userID, err)
	}

	if len(rules) == 0 {
		return false, nil
	}

	for _, rule := range rules {
		matches := r.evaluateRule(ctx, user, rule)

		if mode == models.CombineOr && matches {
			return true, nil
		}

		if mode != models.CombineOr && !matches {
			return false, nil
		}
	}

	return mode != models.CombineOr, nil
}

func (r *StoreResolver) evaluateRule(ctx context.Context, user *models.User, rule models.SegmentRule) bool {
	switch rule.Field {
	case "activity":
		return compareString(string(user.Activity), rule)
	case "name":
		return compareString(user.Name, rule)
	case "email":
		return compareString(user.Email, rule)
	case "last_order_days":
		return r.evaluateLastOrder(ctx, user.ID, rule)
	default:
		return false
	}
}

// evaluateLastOrder answers recency predicates: gte means the user has been
// quiet for at least N days, lte means they ordered within the last N days.
func (r *StoreResolver) evaluateLastOrder(ctx context.Context, userID string, rule models.SegmentRule) bool {
	days, ok := numericValue(rule.Value)
	if !ok || days < 0 {
		return false
	}

	since := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

	ordered, err := r.users.HasOrderSince(ctx, userID, since)
	if err != nil {
		r.logger.WarnContext(ctx, "order lookup failed during rule evaluation",
			"user_id", userID, "error", err)

		return false
	}

	switch rule.Operator {
	case "gte", "gt":
		return !ordered
	case "lte", "lt":
		return ordered
	default:
		return false
	}
}

func compareString(actual string, rule models.SegmentRule) bool {
	expected, ok := rule.Value.(string)
	if !ok {
		return false
	}

	switch rule.Operator {
	case "eq":
		return actual == expected
	case "neq":
		return actual != expected
	case "contains":
		return strings.Contains(actual, expected)
	default:
		return false
	}
}

func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
