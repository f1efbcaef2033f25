package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryLockStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryLockStore) CompareAndExpire(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryLockStore) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockIsExclusiveAndOwnerScoped(t *testing.T) {
	store := newMemoryLockStore()
	ctx := context.Background()

	first, err := NewRedisLock(store, "rs:lock:cron", 0)
	require.NoError(t, err)
	require.Equal(t, defaultLockTTL, first.ttl)
	second, err := NewRedisLock(store, "rs:lock:cron", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// releasing a lock never held leaves the owner's key alone
	require.NoError(t, second.Release(ctx))
	require.Contains(t, store.values, "rs:lock:cron")

	require.NoError(t, first.Release(ctx))
	require.NotContains(t, store.values, "rs:lock:cron")

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisLockExtendDetectsLostOwnership(t *testing.T) {
	store := newMemoryLockStore()
	ctx := context.Background()
	lock, err := NewRedisLock(store, "rs:lock:cron", time.Minute)
	require.NoError(t, err)

	held, err := lock.Extend(ctx)
	require.NoError(t, err)
	require.False(t, held, "cannot extend before acquiring")

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	store.ttls["rs:lock:cron"] = time.Second
	held, err = lock.Extend(ctx)
	require.NoError(t, err)
	require.True(t, held)
	require.Equal(t, time.Minute, store.ttls["rs:lock:cron"])

	// the key expired and another worker took it
	store.values["rs:lock:cron"] = "someone-else"
	held, err = lock.Extend(ctx)
	require.NoError(t, err)
	require.False(t, held)

	require.NoError(t, lock.Release(ctx))
	require.Equal(t, "someone-else", store.values["rs:lock:cron"])
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "key", time.Minute)
	require.Error(t, err)
	_, err = NewRedisLock(newMemoryLockStore(), "", time.Minute)
	require.Error(t, err)
}
