package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
)

const (
	segmentKind  = "segments"
	userKind     = "users"
	templateKind = "templates"
	couponKind   = "coupons"
	orderKind    = "orders"
)

// SegmentRepository handles segment file operations.
type SegmentRepository struct {
	store *Persistence
}

func (r *SegmentRepository) GetByID(_ context.Context, id string) (*models.Segment, error) {
	var segment models.Segment
	if err := r.store.read(segmentKind, id, &segment, persistence.ErrSegmentNotFound); err != nil {
		return nil, err
	}

	return &segment, nil
}

func (r *SegmentRepository) Save(_ context.Context, segment *models.Segment) error {
	return r.store.write(segmentKind, segment.ID, segment)
}

// UserRepository handles user file operations. Orders are stored as a plain
// timestamp list per user, enough for the event-condition window check.
type UserRepository struct {
	store *Persistence
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.store.read(userKind, id, &user, persistence.ErrUserNotFound); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *UserRepository) Save(_ context.Context, user *models.User) error {
	return r.store.write(userKind, user.ID, user)
}

func (r *UserRepository) IDsByActivity(ctx context.Context, tenantID string, classes ...models.ActivityClass) ([]string, error) {
	ids, err := r.store.ids(userKind)
	if err != nil {
		return nil, err
	}

	matched := make([]string, 0)

	for _, id := range ids {
		user, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load user %s: %w", id, err)
		}

		if user.TenantID == tenantID && slices.Contains(classes, user.Activity) {
			matched = append(matched, user.ID)
		}
	}

	return matched, nil
}

func (r *UserRepository) HasOrderSince(_ context.Context, userID string, since time.Time) (bool, error) {
	data, err := os.ReadFile(r.store.entityPath(orderKind, userID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read orders of user %s: %w", userID, err)
	}

	var placedAt []time.Time
	if err := json.Unmarshal(data, &placedAt); err != nil {
		return false, fmt.Errorf("failed to unmarshal orders of user %s: %w", userID, err)
	}

	for _, at := range placedAt {
		if !at.Before(since) {
			return true, nil
		}
	}

	return false, nil
}

// RecordOrder appends an order timestamp for a user. Used by tests and seed
// tooling; the ordering platform owns the real write path.
func (r *UserRepository) RecordOrder(_ context.Context, userID string, placedAt time.Time) error {
	var existing []time.Time

	data, err := os.ReadFile(r.store.entityPath(orderKind, userID))
	if err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("failed to unmarshal orders of user %s: %w", userID, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	existing = append(existing, placedAt)

	return r.store.write(orderKind, userID, existing)
}

// TemplateRepository handles message template file operations.
type TemplateRepository struct {
	store *Persistence
}

func (r *TemplateRepository) GetByID(_ context.Context, id string) (*models.MessageTemplate, error) {
	var template models.MessageTemplate
	if err := r.store.read(templateKind, id, &template, persistence.ErrTemplateNotFound); err != nil {
		return nil, err
	}

	return &template, nil
}

func (r *TemplateRepository) Save(_ context.Context, template *models.MessageTemplate) error {
	return r.store.write(templateKind, template.ID, template)
}

// CouponRepository handles coupon file operations.
type CouponRepository struct {
	store *Persistence
}

func (r *CouponRepository) ByID(_ context.Context, id string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.store.read(couponKind, id, &coupon, persistence.ErrCouponNotFound); err != nil {
		return nil, err
	}

	return &coupon, nil
}

func (r *CouponRepository) Save(_ context.Context, coupon *models.Coupon) error {
	return r.store.write(couponKind, coupon.ID, coupon)
}
