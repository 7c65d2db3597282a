package relay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "novacode:relay:"

// Cache stores relayed bodies. A miss returns ok == false and a nil error.
type Cache interface {
	Get(ctx context.Context, url string) (c *Content, ok bool, err error)
	Set(ctx context.Context, url string, c *Content) error
}

// RedisCache keeps each relayed body in a hash with a TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (c *RedisCache) Get(ctx context.Context, url string) (*Content, bool, error) {
	vals, err := c.rdb.HMGet(ctx, cacheKey(url), "body", "contentType").Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	body, ok := vals[0].(string)
	if !ok {
		return nil, false, nil
	}
	ct, _ := vals[1].(string)
	return &Content{Body: []byte(body), ContentType: ct, Cached: true}, true, nil
}

func (c *RedisCache) Set(ctx context.Context, url string, content *Content) error {
	key := cacheKey(url)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "body", content.Body, "contentType", content.ContentType)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	return err
}

var _ Cache = (*RedisCache)(nil)
