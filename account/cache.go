package account

import (
	"context"
	"errors"
	"time"

	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/redis"
)

// TokenCache remembers which principal a token belongs to.
type TokenCache interface {
	Get(ctx context.Context, token string) (Principal, bool)
	Put(ctx context.Context, token string, p Principal)
}

// RedisTokenCache stores token lookups in Redis. Keys are the SHA-256 of
// the token so raw credentials never leave the database.
type RedisTokenCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

const tokenKeyPrefix = "scribe:token:"

// NewRedisTokenCache creates a cache with the given entry ttl.
func NewRedisTokenCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisTokenCache {
	return &RedisTokenCache{client: client, ttl: ttl, log: log.WithComponent("token-cache")}
}

// Get returns the cached principal. Cache failures are treated as misses.
func (c *RedisTokenCache) Get(ctx context.Context, token string) (Principal, bool) {
	var p Principal
	err := c.client.GetJSON(ctx, tokenKeyPrefix+hashHex(token), &p)
	if err != nil {
		if !errors.Is(err, redis.ErrNotFound) {
			c.log.Warn("Token cache read failed", logger.Fields(logger.FieldError, err.Error()))
		}
		return Principal{}, false
	}
	return p, true
}

// Put caches a principal. Failures are logged and ignored.
func (c *RedisTokenCache) Put(ctx context.Context, token string, p Principal) {
	if err := c.client.SetJSON(ctx, tokenKeyPrefix+hashHex(token), p, c.ttl); err != nil {
		c.log.Warn("Token cache write failed", logger.Fields(logger.FieldError, err.Error()))
	}
}
