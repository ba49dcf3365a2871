// Package protocol defines the contracts between the journey engine and the
// collaborators it consumes: audience resolution, channel delivery, wallet
// mutation, template rendering, and node handlers.
package protocol

import (
	"context"

	"github.com/pumba68/qatering-sub001/pkg/models"
)

// SendResult reports the outcome of one email delivery attempt.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PushResult reports per-subscription delivery counts of one push send.
type PushResult struct {
	SentCount   int `json:"sent_count"`
	FailedCount int `json:"failed_count"`
}

// PushPayload is the message handed to the web-push channel.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// EmailSender delivers one rendered message. Implementations live outside
// the engine; a failed delivery is reported in the result, a transport error
// in the error return.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html, from string) (SendResult, error)
}

// PushSender delivers a payload to a user's registered push subscriptions.
type PushSender interface {
	Send(ctx context.Context, subscriptions []models.PushSubscription, payload PushPayload) (PushResult, error)
}

// WalletLedger credits a user's wallet as a single atomic read-modify-write:
// balance read, balance write and transaction row insert commit together.
type WalletLedger interface {
	Credit(ctx context.Context, userID string, amount float64, note string) (*models.WalletCredit, error)
}

// CouponLookup resolves a coupon by id. No stock or claim mutation happens
// through this interface.
type CouponLookup interface {
	ByID(ctx context.Context, id string) (*models.Coupon, error)
}

// TemplateRenderer renders authored template content with per-user variables.
type TemplateRenderer interface {
	Render(templateContent string, variables map[string]any) (string, error)
}

// AudienceResolver answers segment membership questions. It is owned by the
// CRM module and consumed, not implemented, by the engine core.
type AudienceResolver interface {
	MatchingUsers(ctx context.Context, tenantID string, rules []models.SegmentRule, mode models.CombinationMode) ([]string, error)
	MatchesSingleUser(ctx context.Context, userID string, rules []models.SegmentRule, mode models.CombinationMode) (bool, error)
}
