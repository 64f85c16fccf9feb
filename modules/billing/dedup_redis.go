package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

const dedupKeyPrefix = "billing:webhook:"

// redisDedup implements subscription.DedupStore with SET NX: the first
// delivery of an event id claims the key, replays see it already taken.
type redisDedup struct {
	client redis.UniversalClient
}

// NewDedupStore creates a Redis-backed webhook dedup store.
func NewDedupStore(client redis.UniversalClient) subscription.DedupStore {
	if client == nil {
		panic("billing: redis client is required")
	}
	return &redisDedup{client: client}
}

func (d *redisDedup) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	fresh, err := d.client.SetNX(ctx, dedupKeyPrefix+eventID, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark webhook event processed: %w", err)
	}
	return fresh, nil
}
