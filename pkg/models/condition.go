package models

import (
	"errors"
	"fmt"
)

// ConditionType enumerates the supported branch condition kinds. Each kind
// carries its own strongly-typed config; an unsupported kind is rejected at
// parse time instead of silently evaluating to false.
type ConditionType string

const (
	ConditionSegment   ConditionType = "segment"
	ConditionEvent     ConditionType = "event"
	ConditionAttribute ConditionType = "attribute"
)

// AttributeOperator is the comparison applied by an attribute condition.
type AttributeOperator string

const (
	OperatorEq  AttributeOperator = "eq"
	OperatorNeq AttributeOperator = "neq"
)

// SegmentCondition is true when the user currently matches the segment.
type SegmentCondition struct {
	SegmentID string `json:"segment_id"`
}

// EventCondition is true when the user placed at least one order within the
// trailing window.
type EventCondition struct {
	EventType  string `json:"event_type"`
	WindowDays int    `json:"window_days"`
}

// AttributeCondition compares a static user field against a literal.
type AttributeCondition struct {
	Field    string            `json:"field"`
	Operator AttributeOperator `json:"operator"`
	Value    string            `json:"value"`
}

// Condition is the tagged union of branch condition kinds. Exactly one of
// the pointers matching Type is non-nil.
type Condition struct {
	Type      ConditionType       `json:"type"`
	Segment   *SegmentCondition   `json:"segment,omitempty"`
	Event     *EventCondition     `json:"event,omitempty"`
	Attribute *AttributeCondition `json:"attribute,omitempty"`
}

// ParseCondition converts a raw branch condition payload into the typed
// union, rejecting unsupported kinds and structurally invalid payloads.
func ParseCondition(raw map[string]any) (Condition, error) {
	if raw == nil {
		return Condition{}, errors.New("condition payload is missing")
	}

	kind := ConditionType(stringField(raw, "type"))

	switch kind {
	case ConditionSegment:
		segmentID := stringField(raw, "segment_id")
		if segmentID == "" {
			return Condition{}, errors.New("segment condition requires a segment_id")
		}

		return Condition{Type: kind, Segment: &SegmentCondition{SegmentID: segmentID}}, nil
	case ConditionEvent:
		window, ok := numberField(raw, "window_days")
		if !ok || window <= 0 {
			return Condition{}, errors.New("event condition requires a positive window_days")
		}

		return Condition{Type: kind, Event: &EventCondition{
			EventType:  stringField(raw, "event_type"),
			WindowDays: int(window),
		}}, nil
	case ConditionAttribute:
		operator := AttributeOperator(stringField(raw, "operator"))
		if operator != OperatorEq && operator != OperatorNeq {
			return Condition{}, fmt.Errorf("attribute condition has unsupported operator %q", operator)
		}

		field := stringField(raw, "field")
		if field == "" {
			return Condition{}, errors.New("attribute condition requires a field")
		}

		return Condition{Type: kind, Attribute: &AttributeCondition{
			Field:    field,
			Operator: operator,
			Value:    stringField(raw, "value"),
		}}, nil
	default:
		return Condition{}, fmt.Errorf("unsupported condition type %q", kind)
	}
}
