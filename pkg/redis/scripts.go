package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// KEYS[1] is the target key in every script.
var (
	// ARGV[1] is the window in milliseconds, applied only when the counter is new.
	incrWithTTLScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 and tonumber(ARGV[1]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`)

	// ARGV[1] is the owner token.
	compareAndDeleteScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	// ARGV[1] is the owner token, ARGV[2] the new TTL in milliseconds.
	compareAndExpireScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

var errNoScripting = errors.New("redis scripting not initialized")

func (c *Client) runInt(ctx context.Context, script *redis.Script, key string, args ...any) (int64, error) {
	if c.scripts == nil {
		return 0, errNoScripting
	}
	return script.Run(ctx, c.scripts, []string{key}, args...).Int64()
}

// IncrWithTTL increments key and starts its TTL on the first increment, in one
// round trip so a crash cannot leave a counter without expiry.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return c.runInt(ctx, incrWithTTLScript, key, ttl.Milliseconds())
}

// FixedWindowAllow counts a hit against scope and reports whether it is
// within limit for the current window.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	count, err := c.IncrWithTTL(ctx, c.RateLimitKey(scope), window)
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

// NextSequence returns the next value of a named counter that expires after ttl.
func (c *Client) NextSequence(ctx context.Context, name string, ttl time.Duration) (int64, error) {
	return c.IncrWithTTL(ctx, c.CounterKey(name), ttl)
}

// CompareAndDelete removes key only while it still holds value.
func (c *Client) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	n, err := c.runInt(ctx, compareAndDeleteScript, key, value)
	return n == 1, err
}

// CompareAndExpire resets the TTL of key only while it still holds value.
func (c *Client) CompareAndExpire(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, errors.New("ttl must be positive")
	}
	n, err := c.runInt(ctx, compareAndExpireScript, key, value, ttl.Milliseconds())
	return n == 1, err
}
