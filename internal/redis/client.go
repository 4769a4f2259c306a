package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	lockPrefix      = "pos:lock:"
	availabilityKey = "pos:availability"
)

// releaseScript deletes the lock only if it still carries the caller's token,
// so a request whose lock already expired cannot free someone else's.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type Client struct {
	rdb *redis.Client
}

func Initialize(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// TryLock takes the named lock without waiting. ok is false when another
// holder owns it.
func (c *Client) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, lockPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (c *Client) Unlock(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, c.rdb, []string{lockPrefix + key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}

// Availability cache

func (c *Client) GetAvailability(ctx context.Context, menuItemID string) (int, bool, error) {
	val, err := c.rdb.HGet(ctx, availabilityKey, menuItemID).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get availability: %w", err)
	}
	return val, true, nil
}

func (c *Client) SetAvailability(ctx context.Context, menuItemID string, portions int, ttl time.Duration) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, availabilityKey, menuItemID, portions)
		pipe.Expire(ctx, availabilityKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set availability: %w", err)
	}
	return nil
}

// InvalidateAvailability drops every cached portion count. Any stock
// movement can change several menu items at once.
func (c *Client) InvalidateAvailability(ctx context.Context) error {
	return c.rdb.Del(ctx, availabilityKey).Err()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
