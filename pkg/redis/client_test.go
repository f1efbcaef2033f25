package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/resellr-backend/pkg/config"
)

// fakeRedis answers plain commands from a map and evaluates the known
// scripts by hash the way the Lua would.
type fakeRedis struct {
	values   map[string]string
	counters map[string]int64
	ttls     map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, counters: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func newFakeClient() (*Client, *fakeRedis) {
	f := newFakeRedis()
	return &Client{store: f, scripts: f}, f
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.values[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.Set(ctx, key, value, ttl)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.values, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeRedis) EvalSha(ctx context.Context, sha string, keys []string, args ...any) *redis.Cmd {
	cmd := redis.NewCmd(ctx)
	key := keys[0]
	switch sha {
	case incrWithTTLScript.Hash():
		f.counters[key]++
		if f.counters[key] == 1 && args[0].(int64) > 0 {
			f.ttls[key] = time.Duration(args[0].(int64)) * time.Millisecond
		}
		cmd.SetVal(f.counters[key])
	case compareAndDeleteScript.Hash(), compareAndExpireScript.Hash():
		if f.values[key] != args[0].(string) {
			cmd.SetVal(int64(0))
			return cmd
		}
		if sha == compareAndDeleteScript.Hash() {
			delete(f.values, key)
		} else {
			f.ttls[key] = time.Duration(args[1].(int64)) * time.Millisecond
		}
		cmd.SetVal(int64(1))
	default:
		cmd.SetErr(fmt.Errorf("unknown script %s", sha))
	}
	return cmd
}

func (f *fakeRedis) EvalShaRO(ctx context.Context, sha string, keys []string, args ...any) *redis.Cmd {
	return f.EvalSha(ctx, sha, keys, args...)
}

func (f *fakeRedis) Eval(ctx context.Context, _ string, _ []string, _ ...any) *redis.Cmd {
	cmd := redis.NewCmd(ctx)
	cmd.SetErr(fmt.Errorf("unexpected eval"))
	return cmd
}

func (f *fakeRedis) EvalRO(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return f.Eval(ctx, script, keys, args...)
}

func (f *fakeRedis) ScriptExists(ctx context.Context, _ ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceCmd(ctx)
}

func (f *fakeRedis) ScriptLoad(ctx context.Context, _ string) *redis.StringCmd {
	return redis.NewStringCmd(ctx)
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	client, fake := newFakeClient()

	for i, want := range []bool{true, true, false} {
		allowed, count, err := client.FixedWindowAllow(ctx, "ip:1.2.3.4", 2, time.Second)
		require.NoError(t, err)
		require.Equal(t, want, allowed, "hit %d", i+1)
		require.EqualValues(t, i+1, count)
	}
	require.Equal(t, time.Second, fake.ttls["rs:rate_limit:ip:1.2.3.4"])
}

func TestNextSequenceStartsExpiryOnce(t *testing.T) {
	ctx := context.Background()
	client, fake := newFakeClient()

	first, err := client.NextSequence(ctx, "sell_order_number:20261016", 48*time.Hour)
	require.NoError(t, err)
	fake.ttls["rs:counter:sell_order_number:20261016"] = time.Hour
	second, err := client.NextSequence(ctx, "sell_order_number:20261016", 48*time.Hour)
	require.NoError(t, err)

	require.EqualValues(t, 1, first)
	require.EqualValues(t, 2, second)
	require.Equal(t, time.Hour, fake.ttls["rs:counter:sell_order_number:20261016"])
}

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	client, _ := newFakeClient()

	require.NoError(t, client.Set(ctx, "k", "v", time.Minute))
	got, err := client.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", got)

	won, err := client.SetNX(ctx, "k", "other", time.Minute)
	require.NoError(t, err)
	require.False(t, won)

	require.NoError(t, client.Del(ctx, "k"))
	_, err = client.Get(ctx, "k")
	require.ErrorIs(t, err, redis.Nil)
}

func TestCompareAndDeleteAndExpire(t *testing.T) {
	ctx := context.Background()
	client, fake := newFakeClient()
	fake.values["rs:lock:cron"] = "owner-a"

	ok, err := client.CompareAndExpire(ctx, "rs:lock:cron", "owner-b", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = client.CompareAndExpire(ctx, "rs:lock:cron", "owner-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, time.Minute, fake.ttls["rs:lock:cron"])

	_, err = client.CompareAndExpire(ctx, "rs:lock:cron", "owner-a", 0)
	require.Error(t, err)

	ok, err = client.CompareAndDelete(ctx, "rs:lock:cron", "owner-b")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = client.CompareAndDelete(ctx, "rs:lock:cron", "owner-a")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotContains(t, fake.values, "rs:lock:cron")
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	ctx := context.Background()
	require.ErrorIs(t, client.Ping(ctx), errNotInitialized)
	_, err := client.CompareAndDelete(ctx, "k", "v")
	require.ErrorIs(t, err, errNoScripting)
	_, err = client.IncrWithTTL(ctx, "k", time.Second)
	require.ErrorIs(t, err, errNoScripting)
	require.NoError(t, client.Close())
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	require.Equal(t, "rs:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	require.Equal(t, "rs:rate_limit:scope", client.RateLimitKey("scope"))
	require.Equal(t, "rs:counter:hits", client.CounterKey(" hits "))
	require.Equal(t, "rs:pickup:order-1:code", client.PickupCodeKey("order-1"))
	require.Equal(t, "rs:pickup:order-1:attempts", client.PickupAttemptsKey("order-1"))
	require.Equal(t, "rs:idempotency", client.IdempotencyKey("", ""))
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://:pw@cache:6380/2", PoolSize: 20, DB: 5})
	require.NoError(t, err)
	require.Equal(t, "cache:6380", opts.Addr)
	require.Equal(t, 2, opts.DB)
	require.Equal(t, 20, opts.PoolSize)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 3, DialTimeout: time.Second})
	require.NoError(t, err)
	require.Equal(t, 3, opts.DB)
	require.Equal(t, time.Second, opts.DialTimeout)
}
