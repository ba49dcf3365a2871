package audience

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/protocol"
	"github.com/redis/go-redis/v9"
)

// CachedResolver wraps an AudienceResolver with a Redis snapshot cache so
// that journeys in the same tenant resolving the same segment during one run
// window share a single audience computation. Cache failures degrade to the
// inner resolver, never to an error.
type CachedResolver struct {
	inner  protocol.AudienceResolver
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedResolver(inner protocol.AudienceResolver, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedResolver {
	return &CachedResolver{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (r *CachedResolver) MatchingUsers(ctx context.Context, tenantID string, rules []models.SegmentRule, mode models.CombinationMode) ([]string, error) {
	key, err := snapshotKey(tenantID, rules, mode)
	if err != nil {
		return r.inner.MatchingUsers(ctx, tenantID, rules, mode)
	}

	cached, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var ids []string
		if err := json.Unmarshal(cached, &ids); err == nil {
			return ids, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		r.logger.WarnContext(ctx, "audience cache read failed", "error", err)
	}

	ids, err := r.inner.MatchingUsers(ctx, tenantID, rules, mode)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(ids)
	if err == nil {
		if err := r.client.Set(ctx, key, encoded, r.ttl).Err(); err != nil {
			r.logger.WarnContext(ctx, "audience cache write failed", "error", err)
		}
	}

	return ids, nil
}

// MatchesSingleUser is not cached: single-user membership backs branch
// conditions, which must see current data.
func (r *CachedResolver) MatchesSingleUser(ctx context.Context, userID string, rules []models.SegmentRule, mode models.CombinationMode) (bool, error) {
	return r.inner.MatchesSingleUser(ctx, userID, rules, mode)
}

func snapshotKey(tenantID string, rules []models.SegmentRule, mode models.CombinationMode) (string, error) {
	payload, err := json.Marshal(struct {
		Rules []models.SegmentRule   `json:"rules"`
		Mode  models.CombinationMode `json:"mode"`
	}{Rules: rules, Mode: mode})
	if err != nil {
		return "", fmt.Errorf("failed to build snapshot key: %w", err)
	}

	digest := sha256.Sum256(payload)

	return "audience:" + tenantID + ":" + hex.EncodeToString(digest[:8]), nil
}
