// Package incentive implements the incentive node: credit the recipient's
// wallet or report a coupon through the journey log. Coupon grants never
// mutate coupon stock; the code is surfaced for downstream channels.
package incentive

import (
	"context"
	"fmt"

	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/protocol"
)

type Node struct {
	wallet  protocol.WalletLedger
	coupons protocol.CouponLookup
}

func NewNode(wallet protocol.WalletLedger, coupons protocol.CouponLookup) *Node {
	return &Node{wallet: wallet, coupons: coupons}
}

func (n *Node) Type() models.NodeType {
	return models.NodeTypeIncentive
}

func (n *Node) Execute(ctx context.Context, step protocol.StepContext) (map[string]any, error) {
	config, ok := step.Config.(models.IncentiveConfig)
	if !ok {
		return nil, fmt.Errorf("incentive node %q has no parsed config", step.Node.ID)
	}

	switch config.Kind {
	case models.IncentiveWallet:
		return n.creditWallet(ctx, step, config)
	case models.IncentiveCoupon:
		return n.reportCoupon(ctx, config)
	default:
		return nil, fmt.Errorf("incentive node %q has unsupported kind %q", step.Node.ID, config.Kind)
	}
}

func (n *Node) creditWallet(ctx context.Context, step protocol.StepContext, config models.IncentiveConfig) (map[string]any, error) {
	note := config.Note
	if note == "" {
		note = fmt.Sprintf("journey %s reward", step.Journey.Name)
	}

	credit, err := n.wallet.Credit(ctx, step.Participant.UserID, config.Amount, note)
	if err != nil {
		return nil, fmt.Errorf("wallet credit failed: %w", err)
	}

	return map[string]any{
		"incentive":      string(models.IncentiveWallet),
		"amount":         credit.Amount,
		"balance_before": credit.BalanceBefore,
		"balance_after":  credit.BalanceAfter,
	}, nil
}

func (n *Node) reportCoupon(ctx context.Context, config models.IncentiveConfig) (map[string]any, error) {
	coupon, err := n.coupons.ByID(ctx, config.CouponID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve coupon %q: %w", config.CouponID, err)
	}

	return map[string]any{
		"incentive":      string(models.IncentiveCoupon),
		"coupon_id":      coupon.ID,
		"coupon_code":    coupon.Code,
		"coupon_type":    coupon.Type,
		"discount_value": coupon.DiscountValue,
	}, nil
}
