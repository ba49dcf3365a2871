package models

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Node config JSON Schemas, enforced when a journey is saved. Execution
// trusts the parsed NodeConfig union and never re-validates raw payloads.
var nodeSchemas = map[NodeType]map[string]any{
	NodeTypeDelay: {
		"type": "object",
		"properties": map[string]any{
			"amount": map[string]any{"type": "number", "minimum": 1},
			"unit":   map[string]any{"type": "string", "enum": []string{"minutes", "hours", "days"}},
		},
		"required": []string{"amount", "unit"},
	},
	NodeTypeBranch: {
		"type": "object",
		"properties": map[string]any{
			"condition": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"type":        map[string]any{"type": "string", "enum": []string{"segment", "event", "attribute"}},
					"segment_id":  map[string]any{"type": "string"},
					"event_type":  map[string]any{"type": "string"},
					"window_days": map[string]any{"type": "number", "minimum": 1},
					"field":       map[string]any{"type": "string"},
					"operator":    map[string]any{"type": "string", "enum": []string{"eq", "neq"}},
					"value":       map[string]any{"type": "string"},
				},
				"required": []string{"type"},
			},
		},
		"required": []string{"condition"},
	},
	NodeTypeEmail: {
		"type": "object",
		"properties": map[string]any{
			"template_id": map[string]any{"type": "string", "minLength": 1},
			"subject":     map[string]any{"type": "string"},
			"from":        map[string]any{"type": "string"},
			"on_failure":  map[string]any{"type": "string", "enum": []string{"stop", "continue"}},
		},
		"required": []string{"template_id"},
	},
	NodeTypePush: {
		"type": "object",
		"properties": map[string]any{
			"template_id": map[string]any{"type": "string", "minLength": 1},
			"title":       map[string]any{"type": "string"},
			"on_failure":  map[string]any{"type": "string", "enum": []string{"stop", "continue"}},
		},
		"required": []string{"template_id"},
	},
	NodeTypeInApp: {
		"type": "object",
		"properties": map[string]any{
			"template_id": map[string]any{"type": "string"},
			"message":     map[string]any{"type": "string"},
		},
	},
	NodeTypeIncentive: {
		"type": "object",
		"properties": map[string]any{
			"kind":       map[string]any{"type": "string", "enum": []string{"wallet", "coupon"}},
			"amount":     map[string]any{"type": "number", "exclusiveMinimum": 0},
			"note":       map[string]any{"type": "string"},
			"coupon_id":  map[string]any{"type": "string"},
			"on_failure": map[string]any{"type": "string", "enum": []string{"stop", "continue"}},
		},
		"required": []string{"kind"},
	},
}

// ValidateNodeConfig checks a node's raw config against the JSON Schema for
// its type. Node types without a schema (start, end) accept any payload.
func ValidateNodeConfig(node *CanvasNode) error {
	schema, ok := nodeSchemas[node.Type]
	if !ok {
		return nil
	}

	config := node.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate config of node %q: %w", node.ID, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("node %q config is invalid: %s", node.ID, strings.Join(details, "; "))
	}

	return nil
}

// ValidateContent runs the full save-time validation of a journey graph:
// structural invariants, per-node schemas, and typed config parsing.
func ValidateContent(content GraphContent) error {
	if _, err := NewGraph(content); err != nil {
		return err
	}

	for _, node := range content.Nodes {
		if err := ValidateNodeConfig(node); err != nil {
			return err
		}

		if _, err := ParseNodeConfig(node); err != nil {
			return fmt.Errorf("node %q: %w", node.ID, err)
		}
	}

	return nil
}
