package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "querycache:"

// Cache stores list snapshots in Redis as JSON. Each collection keeps an index set of its
// keys so a whole collection can be dropped at once.
type Cache struct {
	client *redis.Client
	logger *zap.Logger
}

// New creates a Redis-backed query cache.
func New(client *redis.Client, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{client: client, logger: logger}
}

// Key returns the Redis key for one scoped snapshot: querycache:{collection}:{scope}.
func Key(collection, scope string) string {
	return keyPrefix + collection + ":" + scope
}

// dropCollection deletes every key listed in the index set and the set itself in one step, so a
// concurrent Set either lands before (and is dropped) or after (and is indexed afresh).
var dropCollection = redis.NewScript(`
local keys = redis.call('SMEMBERS', KEYS[1])
for i = 1, #keys, 500 do
	redis.call('DEL', unpack(keys, i, math.min(i + 499, #keys)))
end
redis.call('DEL', KEYS[1])
return #keys
`)

func indexKey(collection string) string {
	return keyPrefix + "idx:" + collection
}

// Get decodes the snapshot into dst. It reports false when nothing is cached.
func (c *Cache) Get(ctx context.Context, collection, scope string, dst any) (bool, error) {
	raw, err := c.client.Get(ctx, Key(collection, scope)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode snapshot: %w", err)
	}
	return true, nil
}

// Set stores v for ttl and records the key in the collection index.
func (c *Cache) Set(ctx context.Context, collection, scope string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	key := Key(collection, scope)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, raw, ttl)
	pipe.SAdd(ctx, indexKey(collection), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate deletes every cached scope of the given collections.
func (c *Cache) Invalidate(ctx context.Context, collections ...string) error {
	for _, collection := range collections {
		idx := indexKey(collection)
		n, err := dropCollection.Run(ctx, c.client, []string{idx}).Int()
		if err != nil {
			return fmt.Errorf("redis drop %s: %w", idx, err)
		}
		c.logger.Debug("query cache invalidated", zap.String("collection", collection), zap.Int("keys", n))
	}
	return nil
}
