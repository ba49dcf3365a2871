package models

import (
	"errors"
	"fmt"
	"time"
)

// NodeType identifies the kind of a canvas node.
type NodeType string

const (
	NodeTypeStart     NodeType = "start"
	NodeTypeDelay     NodeType = "delay"
	NodeTypeBranch    NodeType = "branch"
	NodeTypeEmail     NodeType = "email"
	NodeTypePush      NodeType = "push"
	NodeTypeInApp     NodeType = "inapp"
	NodeTypeIncentive NodeType = "incentive"
	NodeTypeEnd       NodeType = "end"
)

// Edge handles. Multi-output nodes key their outgoing edges by handle.
const (
	HandleOutput = "output"
	HandleYes    = "yes"
	HandleNo     = "no"
)

// CanvasNode is a typed step in the journey graph. Config is the raw payload
// written by the canvas editor; it is schema-validated at save time and
// parsed into the NodeConfig union before execution.
type CanvasNode struct {
	ID     string         `json:"id"   validate:"required"`
	Type   NodeType       `json:"type" validate:"required"`
	Label  string         `json:"label,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

// CanvasEdge is a directed connection from a node's named output handle to a
// target node. At most one edge exists per (source, handle) pair.
type CanvasEdge struct {
	Source       string `json:"source"        validate:"required"`
	SourceHandle string `json:"source_handle"`
	Target       string `json:"target"        validate:"required"`
}

// Handle returns the edge's source handle, defaulting to "output" when the
// editor omitted it.
func (e *CanvasEdge) Handle() string {
	if e.SourceHandle == "" {
		return HandleOutput
	}

	return e.SourceHandle
}

// FailurePolicy decides what a send/grant node does when its side effect
// fails: abort the participant or log and keep walking.
type FailurePolicy string

const (
	FailureStop     FailurePolicy = "stop"
	FailureContinue FailurePolicy = "continue"
)

// DelayUnit is the time unit of a delay node.
type DelayUnit string

const (
	DelayMinutes DelayUnit = "minutes"
	DelayHours   DelayUnit = "hours"
	DelayDays    DelayUnit = "days"
)

// NodeConfig is the closed union of per-node-type configurations. Exactly one
// variant exists per executable node type; the walker type-switches over the
// concrete types instead of trusting raw payloads.
type NodeConfig interface {
	nodeConfig()
}

// DelayConfig pauses the participant for a fixed duration.
type DelayConfig struct {
	Amount int       `json:"amount"`
	Unit   DelayUnit `json:"unit"`
}

// Duration converts the configured amount and unit into a time.Duration.
func (c DelayConfig) Duration() time.Duration {
	switch c.Unit {
	case DelayMinutes:
		return time.Duration(c.Amount) * time.Minute
	case DelayHours:
		return time.Duration(c.Amount) * time.Hour
	case DelayDays:
		return time.Duration(c.Amount) * 24 * time.Hour
	default:
		return 0
	}
}

// BranchConfig selects the yes or no edge from a condition outcome.
type BranchConfig struct {
	Condition Condition `json:"condition"`
}

// EmailConfig sends a rendered template through the email channel.
type EmailConfig struct {
	TemplateID string        `json:"template_id"`
	Subject    string        `json:"subject"`
	From       string        `json:"from"`
	OnFailure  FailurePolicy `json:"on_failure"`
}

// PushConfig sends a rendered template through the web-push channel.
type PushConfig struct {
	TemplateID string        `json:"template_id"`
	Title      string        `json:"title"`
	OnFailure  FailurePolicy `json:"on_failure"`
}

// InAppConfig records an in-app message intent. There is no per-user in-app
// delivery store in the surrounding system, so execution only logs the
// intent; see the inapp node handler.
type InAppConfig struct {
	TemplateID string `json:"template_id"`
	Message    string `json:"message"`
}

// IncentiveKind selects the reward granted by an incentive node.
type IncentiveKind string

const (
	IncentiveWallet IncentiveKind = "wallet"
	IncentiveCoupon IncentiveKind = "coupon"
)

// IncentiveConfig grants a wallet credit or reports a coupon code.
type IncentiveConfig struct {
	Kind      IncentiveKind `json:"kind"`
	Amount    float64       `json:"amount,omitempty"`    // wallet
	Note      string        `json:"note,omitempty"`      // wallet
	CouponID  string        `json:"coupon_id,omitempty"` // coupon
	OnFailure FailurePolicy `json:"on_failure"`
}

func (DelayConfig) nodeConfig()     {}
func (BranchConfig) nodeConfig()    {}
func (EmailConfig) nodeConfig()     {}
func (PushConfig) nodeConfig()      {}
func (InAppConfig) nodeConfig()     {}
func (IncentiveConfig) nodeConfig() {}

// OnFailurePolicy returns the failure policy of a parsed config, defaulting
// to stop for the side-effecting variants that carry one.
func OnFailurePolicy(config NodeConfig) FailurePolicy {
	switch c := config.(type) {
	case EmailConfig:
		return normalizeFailurePolicy(c.OnFailure)
	case PushConfig:
		return normalizeFailurePolicy(c.OnFailure)
	case IncentiveConfig:
		return normalizeFailurePolicy(c.OnFailure)
	default:
		return FailureContinue
	}
}

func normalizeFailurePolicy(p FailurePolicy) FailurePolicy {
	if p == FailureContinue {
		return FailureContinue
	}

	return FailureStop
}

var errMissingConfig = errors.New("node config is missing")

// ParseNodeConfig converts a node's raw config payload into its typed
// variant. Start and end nodes carry no config and return nil.
func ParseNodeConfig(node *CanvasNode) (NodeConfig, error) {
	switch node.Type {
	case NodeTypeStart, NodeTypeEnd:
		return nil, nil
	case NodeTypeDelay:
		return parseDelayConfig(node.Config)
	case NodeTypeBranch:
		return parseBranchConfig(node.Config)
	case NodeTypeEmail:
		return EmailConfig{
			TemplateID: stringField(node.Config, "template_id"),
			Subject:    stringField(node.Config, "subject"),
			From:       stringField(node.Config, "from"),
			OnFailure:  FailurePolicy(stringField(node.Config, "on_failure")),
		}, nil
	case NodeTypePush:
		return PushConfig{
			TemplateID: stringField(node.Config, "template_id"),
			Title:      stringField(node.Config, "title"),
			OnFailure:  FailurePolicy(stringField(node.Config, "on_failure")),
		}, nil
	case NodeTypeInApp:
		return InAppConfig{
			TemplateID: stringField(node.Config, "template_id"),
			Message:    stringField(node.Config, "message"),
		}, nil
	case NodeTypeIncentive:
		return parseIncentiveConfig(node.Config)
	default:
		return nil, fmt.Errorf("unsupported node type %q", node.Type)
	}
}

func parseDelayConfig(config map[string]any) (NodeConfig, error) {
	if config == nil {
		return nil, errMissingConfig
	}

	amount, ok := numberField(config, "amount")
	if !ok || amount <= 0 {
		return nil, errors.New("delay node requires a positive amount")
	}

	unit := DelayUnit(stringField(config, "unit"))
	switch unit {
	case DelayMinutes, DelayHours, DelayDays:
	default:
		return nil, fmt.Errorf("delay node has unsupported unit %q", unit)
	}

	return DelayConfig{Amount: int(amount), Unit: unit}, nil
}

func parseBranchConfig(config map[string]any) (NodeConfig, error) {
	if config == nil {
		return nil, errMissingConfig
	}

	raw, _ := config["condition"].(map[string]any)

	condition, err := ParseCondition(raw)
	if err != nil {
		return nil, fmt.Errorf("branch node condition: %w", err)
	}

	return BranchConfig{Condition: condition}, nil
}

func parseIncentiveConfig(config map[string]any) (NodeConfig, error) {
	if config == nil {
		return nil, errMissingConfig
	}

	parsed := IncentiveConfig{
		Kind:      IncentiveKind(stringField(config, "kind")),
		Note:      stringField(config, "note"),
		CouponID:  stringField(config, "coupon_id"),
		OnFailure: FailurePolicy(stringField(config, "on_failure")),
	}

	switch parsed.Kind {
	case IncentiveWallet:
		amount, ok := numberField(config, "amount")
		if !ok || amount <= 0 {
			return nil, errors.New("wallet incentive requires a positive amount")
		}

		parsed.Amount = amount
	case IncentiveCoupon:
		if parsed.CouponID == "" {
			return nil, errors.New("coupon incentive requires a coupon_id")
		}
	default:
		return nil, fmt.Errorf("incentive node has unsupported kind %q", parsed.Kind)
	}

	return parsed, nil
}

func stringField(config map[string]any, key string) string {
	value, _ := config[key].(string)

	return value
}

// numberField tolerates both float64 (JSON decoding) and int (in-code
// construction) values.
func numberField(config map[string]any, key string) (float64, bool) {
	switch value := config[key].(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	default:
		return 0, false
	}
}
