package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "yescount:"

// Redis is a DerivedCache shared between processes. A session whose
// generation bump failed is bypassed until a later bump succeeds.
type Redis struct {
	client        *redis.Client
	ttl           time.Duration
	generationTTL time.Duration
	logger        *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		client:        client,
		ttl:           ttl,
		generationTTL: generationRetention(ttl),
		logger:        logger.With("component", "redis_cache"),
		pending:       make(map[string]struct{}),
	}
}

// DialRedis parses a redis:// or rediss:// URL, connects and pings the server.
func DialRedis(ctx context.Context, url string, ttl time.Duration, logger *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedis(client, ttl, logger), nil
}

// Close releases the client.
func (c *Redis) Close() error {
	return c.client.Close()
}

func generationKey(sessionID string) string {
	return redisPrefix + "gen:" + sessionID
}

func entryKey(key Key) string {
	return redisPrefix + "cache:" + key.String()
}

func (c *Redis) Generation(ctx context.Context, sessionID string) (uint64, error) {
	if c.isPending(sessionID) {
		if err := c.bump(ctx, sessionID); err != nil {
			return 0, fmt.Errorf("generation outdated after failed invalidation: %w", err)
		}
		c.setPending(sessionID, false)
	}
	gen, err := c.client.Get(ctx, generationKey(sessionID)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read generation: %w", err)
	}
	return gen, nil
}

func (c *Redis) Get(ctx context.Context, key Key) ([]byte, bool) {
	if c.isPending(key.SessionID) {
		return nil, false
	}
	data, err := c.client.Get(ctx, entryKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "cache read failed", "key", key.String(), "error", err)
		}
		return nil, false
	}
	return data, true
}

func (c *Redis) Store(ctx context.Context, key Key, value []byte) {
	if c.isPending(key.SessionID) {
		return
	}
	if err := c.client.Set(ctx, entryKey(key), value, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache write failed", "key", key.String(), "error", err)
	}
}

// Invalidate advances the session generation. On failure the session stays
// bypassed in this process and the bump is retried by the next Generation.
func (c *Redis) Invalidate(ctx context.Context, sessionID string) error {
	if err := c.bump(ctx, sessionID); err != nil {
		c.setPending(sessionID, true)
		return err
	}
	c.setPending(sessionID, false)
	return nil
}

func (c *Redis) bump(ctx context.Context, sessionID string) error {
	key := generationKey(sessionID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, c.generationTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("advance generation: %w", err)
	}
	return nil
}

func (c *Redis) isPending(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[sessionID]
	return ok
}

func (c *Redis) setPending(sessionID string, pending bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pending {
		c.pending[sessionID] = struct{}{}
	} else {
		delete(c.pending, sessionID)
	}
}
