package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
)

// SegmentRepository stores audience segment definitions.
type SegmentRepository struct {
	db *sql.DB
}

func (r *SegmentRepository) GetByID(ctx context.Context, id string) (*models.Segment, error) {
	var (
		segment models.Segment
		rules   []byte
	)

	query := "SELECT id, tenant_id, name, rules, combination FROM segments WHERE id = $1"

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&segment.ID, &segment.TenantID, &segment.Name, &rules, &segment.Combination)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrSegmentNotFound
		}

		return nil, fmt.Errorf("failed to get segment: %w", err)
	}

	if err := json.Unmarshal(rules, &segment.Rules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal segment rules: %w", err)
	}

	return &segment, nil
}

func (r *SegmentRepository) Save(ctx context.Context, segment *models.Segment) error {
	rules, err := json.Marshal(segment.Rules)
	if err != nil {
		return fmt.Errorf("failed to marshal segment rules: %w", err)
	}

	query := `
		INSERT INTO segments (id, tenant_id, name, rules, combination)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id
		  , name = EXCLUDED.name
		  , rules = EXCLUDED.rules
		  , combination = EXCLUDED.combination
	`

	_, err = r.db.ExecContext(ctx, query,
		segment.ID, segment.TenantID, segment.Name, rules, segment.Combination)
	if err != nil {
		return fmt.Errorf("failed to save segment: %w", err)
	}

	return nil
}

// UserRepository reads the customer records the engine targets.
type UserRepository struct {
	db *sql.DB
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var (
		user          models.User
		subscriptions []byte
	)

	query := "SELECT id, tenant_id, name, email, activity, subscriptions FROM users WHERE id = $1"

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.TenantID, &user.Name, &user.Email, &user.Activity, &subscriptions)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := json.Unmarshal(subscriptions, &user.Subscriptions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subscriptions: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	if user.Subscriptions == nil {
		user.Subscriptions = []models.PushSubscription{}
	}

	subscriptions, err := json.Marshal(user.Subscriptions)
	if err != nil {
		return fmt.Errorf("failed to marshal subscriptions: %w", err)
	}

	query := `
		INSERT INTO users (id, tenant_id, name, email, activity, subscriptions)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id
		  , name = EXCLUDED.name
		  , email = EXCLUDED.email
		  , activity = EXCLUDED.activity
		  , subscriptions = EXCLUDED.subscriptions
	`

	_, err = r.db.ExecContext(ctx, query,
		user.ID, user.TenantID, user.Name, user.Email, user.Activity, subscriptions)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

func (r *UserRepository) IDsByActivity(ctx context.Context, tenantID string, classes ...models.ActivityClass) ([]string, error) {
	if len(classes) == 0 {
		return nil, nil
	}

	query := "SELECT id FROM users WHERE tenant_id = $1 AND activity = ANY($2) ORDER BY id"

	values := make([]string, len(classes))
	for i, class := range classes {
		values[i] = string(class)
	}

	rows, err := r.db.QueryContext(ctx, query, tenantID, pq.Array(values))
	if err != nil {
		return nil, fmt.Errorf("failed to query users by activity: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return ids, nil
}

func (r *UserRepository) HasOrderSince(ctx context.Context, userID string, since time.Time) (bool, error) {
	var exists bool

	query := "SELECT EXISTS (SELECT 1 FROM orders WHERE user_id = $1 AND placed_at >= $2)"

	if err := r.db.QueryRowContext(ctx, query, userID, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check orders: %w", err)
	}

	return exists, nil
}

// TemplateRepository resolves message templates authored elsewhere.
type TemplateRepository struct {
	db *sql.DB
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.MessageTemplate, error) {
	var template models.MessageTemplate

	query := "SELECT id, tenant_id, name, subject, content FROM message_templates WHERE id = $1"

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&template.ID, &template.TenantID, &template.Name, &template.Subject, &template.Content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrTemplateNotFound
		}

		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return &template, nil
}

func (r *TemplateRepository) Save(ctx context.Context, template *models.MessageTemplate) error {
	query := `
		INSERT INTO message_templates (id, tenant_id, name, subject, content)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id
		  , name = EXCLUDED.name
		  , subject = EXCLUDED.subject
		  , content = EXCLUDED.content
	`

	_, err := r.db.ExecContext(ctx, query,
		template.ID, template.TenantID, template.Name, template.Subject, template.Content)
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}

	return nil
}

// CouponRepository looks up coupons referenced by incentive nodes.
type CouponRepository struct {
	db *sql.DB
}

func (r *CouponRepository) ByID(ctx context.Context, id string) (*models.Coupon, error) {
	var coupon models.Coupon

	query := "SELECT id, code, name, type, discount_value FROM coupons WHERE id = $1"

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&coupon.ID, &coupon.Code, &coupon.Name, &coupon.Type, &coupon.DiscountValue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrCouponNotFound
		}

		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}

	return &coupon, nil
}

func (r *CouponRepository) Save(ctx context.Context, coupon *models.Coupon) error {
	query := `
		INSERT INTO coupons (id, code, name, type, discount_value)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code
		  , name = EXCLUDED.name
		  , type = EXCLUDED.type
		  , discount_value = EXCLUDED.discount_value
	`

	_, err := r.db.ExecContext(ctx, query,
		coupon.ID, coupon.Code, coupon.Name, coupon.Type, coupon.DiscountValue)
	if err != nil {
		return fmt.Errorf("failed to save coupon: %w", err)
	}

	return nil
}
