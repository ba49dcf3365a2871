package models

import "time"

// CombinationMode joins a segment's rule predicates.
type CombinationMode string

const (
	CombineAnd CombinationMode = "and"
	CombineOr  CombinationMode = "or"
)

// SegmentRule is a single audience predicate. Rule evaluation is owned by
// the audience resolver; the engine only carries rules through.
type SegmentRule struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Segment is a named audience definition.
type Segment struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	Name        string          `json:"name"`
	Rules       []SegmentRule   `json:"rules"`
	Combination CombinationMode `json:"combination"`
}

// ActivityClass is the precomputed activity classification of a user.
type ActivityClass string

const (
	ActivityActive  ActivityClass = "active"
	ActivityDormant ActivityClass = "dormant"
	ActivityChurned ActivityClass = "churned"
)

// PushSubscription is one web-push endpoint registered by a user's browser.
type PushSubscription struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// User is the slice of the platform's customer record the engine reads.
type User struct {
	ID            string             `json:"id"`
	TenantID      string             `json:"tenant_id"`
	Name          string             `json:"name"`
	Email         string             `json:"email"`
	Activity      ActivityClass      `json:"activity"`
	Subscriptions []PushSubscription `json:"subscriptions,omitempty"`
}

// MessageTemplate is authored by the (out-of-scope) template editor; the
// engine only resolves its content for rendering.
type MessageTemplate struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Subject  string `json:"subject,omitempty"`
	Content  string `json:"content"`
}

// Coupon is looked up and reported by coupon incentive nodes. The engine
// never mutates coupon stock or claims.
type Coupon struct {
	ID            string  `json:"id"`
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	DiscountValue float64 `json:"discount_value"`
}

// WalletCredit is the result of one atomic wallet ledger mutation.
type WalletCredit struct {
	UserID        string    `json:"user_id"`
	Amount        float64   `json:"amount"`
	BalanceBefore float64   `json:"balance_before"`
	BalanceAfter  float64   `json:"balance_after"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
