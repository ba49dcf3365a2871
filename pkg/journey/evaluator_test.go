package journey_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumba68/qatering-sub001/pkg/journey"
	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/persistence/file"
)

func newEvaluator(t *testing.T) (*engineFixture, *journey.ConditionEvaluator) {
	t.Helper()

	fx := newEngine(t)
	evaluator := journey.NewConditionEvaluator(
		fx.persistence.SegmentRepository(),
		fx.persistence.UserRepository(),
		fx.resolver,
		testLogger(),
	)

	return fx, evaluator
}

func TestConditionEvaluator_SegmentMembership(t *testing.T) {
	fx, evaluator := newEvaluator(t)
	saveDormantSegment(t, fx)
	saveUser(t, fx, "user-1", "Ada", models.ActivityDormant)
	saveUser(t, fx, "user-2", "Grace", models.ActivityActive)

	condition := models.Condition{
		Type:    models.ConditionSegment,
		Segment: &models.SegmentCondition{SegmentID: "seg-dormant"},
	}

	assert.True(t, evaluator.Evaluate(t.Context(), condition, "user-1", time.Now()))
	assert.False(t, evaluator.Evaluate(t.Context(), condition, "user-2", time.Now()))
}

func TestConditionEvaluator_MissingSegmentIsFalse(t *testing.T) {
	fx, evaluator := newEvaluator(t)
	saveUser(t, fx, "user-1", "Ada", models.ActivityDormant)

	condition := models.Condition{
		Type:    models.ConditionSegment,
		Segment: &models.SegmentCondition{SegmentID: "seg-missing"},
	}

	assert.False(t, evaluator.Evaluate(t.Context(), condition, "user-1", time.Now()))
}

func TestConditionEvaluator_EventOrderWindow(t *testing.T) {
	fx, evaluator := newEvaluator(t)
	saveUser(t, fx, "user-1", "Ada", models.ActivityActive)

	now := time.Now().UTC()
	users, ok := fx.persistence.UserRepository().(*file.UserRepository)
	require.True(t, ok)
	require.NoError(t, users.RecordOrder(t.Context(), "user-1", now.Add(-48*time.Hour)))

	within := models.Condition{
		Type:  models.ConditionEvent,
		Event: &models.EventCondition{EventType: "order.placed", WindowDays: 7},
	}
	outside := models.Condition{
		Type:  models.ConditionEvent,
		Event: &models.EventCondition{EventType: "order.placed", WindowDays: 1},
	}

	assert.True(t, evaluator.Evaluate(t.Context(), within, "user-1", now))
	assert.False(t, evaluator.Evaluate(t.Context(), outside, "user-1", now))
}

func TestConditionEvaluator_EventZeroWindowIsFalse(t *testing.T) {
	fx, evaluator := newEvaluator(t)
	saveUser(t, fx, "user-1", "Ada", models.ActivityActive)

	condition := models.Condition{
		Type:  models.ConditionEvent,
		Event: &models.EventCondition{EventType: "order.placed", WindowDays: 0},
	}

	assert.False(t, evaluator.Evaluate(t.Context(), condition, "user-1", time.Now()))
}

func TestConditionEvaluator_AttributeComparison(t *testing.T) {
	fx, evaluator := newEvaluator(t)
	saveUser(t, fx, "user-1", "Ada", models.ActivityDormant)

	cases := []struct {
		name      string
		condition models.AttributeCondition
		expected  bool
	}{
		{"name eq match", models.AttributeCondition{Field: "name", Operator: models.OperatorEq, Value: "Ada"}, true},
		{"name eq mismatch", models.AttributeCondition{Field: "name", Operator: models.OperatorEq, Value: "Zed"}, false},
		{"email neq", models.AttributeCondition{Field: "email", Operator: models.OperatorNeq, Value: "other@example.com"}, true},
		{"activity eq", models.AttributeCondition{Field: "activity", Operator: models.OperatorEq, Value: "dormant"}, true},
		{"unknown field", models.AttributeCondition{Field: "shoe_size", Operator: models.OperatorEq, Value: "44"}, false},
		{"unknown operator", models.AttributeCondition{Field: "name", Operator: "gt", Value: "Ada"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			condition := models.Condition{Type: models.ConditionAttribute, Attribute: &tc.condition}
			assert.Equal(t, tc.expected, evaluator.Evaluate(t.Context(), condition, "user-1", time.Now()))
		})
	}
}

func TestConditionEvaluator_UnknownUserIsFalse(t *testing.T) {
	_, evaluator := newEvaluator(t)

	condition := models.Condition{
		Type:      models.ConditionAttribute,
		Attribute: &models.AttributeCondition{Field: "name", Operator: models.OperatorEq, Value: "Ada"},
	}

	assert.False(t, evaluator.Evaluate(t.Context(), condition, "user-ghost", time.Now()))
}

func TestConditionEvaluator_UnsupportedTypeIsFalse(t *testing.T) {
	_, evaluator := newEvaluator(t)

	assert.False(t, evaluator.Evaluate(t.Context(), models.Condition{Type: "weather"}, "user-1", time.Now()))
}
