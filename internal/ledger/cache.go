package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TreeCache keeps rendered account forests in Redis, keyed per tenant.
// All methods are nil-safe; a nil cache behaves as a permanent miss.
type TreeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTreeCache instantiates the cache helper.
func NewTreeCache(client *redis.Client, ttl time.Duration) *TreeCache {
	return &TreeCache{client: client, ttl: ttl}
}

func treeKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("ledger:tree:%s", tenantID)
}

// Get loads a cached forest. Cache errors degrade to a miss.
func (c *TreeCache) Get(ctx context.Context, tenantID uuid.UUID) ([]AccountNode, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, treeKey(tenantID)).Bytes()
	if err != nil {
		return nil, false
	}
	var forest []AccountNode
	if err := json.Unmarshal(payload, &forest); err != nil {
		return nil, false
	}
	return forest, true
}

// Set stores the forest with the configured TTL.
func (c *TreeCache) Set(ctx context.Context, tenantID uuid.UUID, forest []AccountNode) {
	if c == nil || c.client == nil {
		return
	}
	payload, err := json.Marshal(forest)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, treeKey(tenantID), payload, c.ttl).Err()
}

// Invalidate drops the tenant's cached forest after a chart mutation.
func (c *TreeCache) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, treeKey(tenantID)).Err()
}
