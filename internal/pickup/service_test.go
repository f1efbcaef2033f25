package pickup

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/resellr-backend/internal/sellorders"
	"github.com/angelmondragon/resellr-backend/pkg/config"
	"github.com/angelmondragon/resellr-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/resellr-backend/pkg/errors"
	"github.com/angelmondragon/resellr-backend/pkg/logger"
)

type memoryStore struct {
	values map[string]string
	counts map[string]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.values[key] = value.(string)
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
		delete(m.counts, key)
	}
	return nil
}

func (m *memoryStore) PickupCodeKey(orderID string) string { return "pickup:" + orderID + ":code" }
func (m *memoryStore) PickupAttemptsKey(orderID string) string {
	return "pickup:" + orderID + ":attempts"
}

type fakeOrders struct {
	order    sellorders.OrderDTO
	agentID  uuid.UUID
	pickedUp int
}

func (f *fakeOrders) Get(_ context.Context, userID, orderID uuid.UUID) (*sellorders.OrderDTO, error) {
	if orderID != f.order.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if userID != f.order.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	out := f.order
	return &out, nil
}

func (f *fakeOrders) GetAssigned(_ context.Context, agentID, orderID uuid.UUID) (*sellorders.OrderDTO, error) {
	if orderID != f.order.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if agentID != f.agentID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this agent")
	}
	out := f.order
	return &out, nil
}

func (f *fakeOrders) MarkPickedUp(_ context.Context, _, _ uuid.UUID) (*sellorders.OrderDTO, error) {
	f.pickedUp++
	f.order.Status = enums.SellOrderStatusPickedUp
	out := f.order
	return &out, nil
}

func newTestService(t *testing.T) (*Service, *memoryStore, *fakeOrders) {
	t.Helper()
	store := newMemoryStore()
	orders := &fakeOrders{
		order:   sellorders.OrderDTO{ID: uuid.New(), UserID: uuid.New(), Status: enums.SellOrderStatusConfirmed},
		agentID: uuid.New(),
	}
	cfg := config.PickupConfig{
		CodeTTL:          15 * time.Minute,
		MaxAttempts:      3,
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
	svc, err := NewService(store, orders, cfg, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC) }
	svc.newKey = func() (string, error) { return "042917", nil }
	return svc, store, orders
}

func TestIssueAndVerifyPickupCode(t *testing.T) {
	svc, store, orders := newTestService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, orders.order.UserID, orders.order.ID)
	require.NoError(t, err)
	require.Equal(t, "042917", issued.Code)
	require.Equal(t, time.Date(2026, 10, 1, 9, 15, 0, 0, time.UTC), issued.ExpiresAt)

	stored := store.values[store.PickupCodeKey(orders.order.ID.String())]
	require.NotEqual(t, "042917", stored)
	require.Contains(t, stored, "$argon2id$")

	order, err := svc.Verify(ctx, orders.agentID, orders.order.ID, " 042917 ")
	require.NoError(t, err)
	require.Equal(t, enums.SellOrderStatusPickedUp, order.Status)
	require.Equal(t, 1, orders.pickedUp)

	_, err = svc.Verify(ctx, orders.agentID, orders.order.ID, "042917")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeExpired), "codes are single use")
}

func TestVerifyLimitsAttempts(t *testing.T) {
	svc, _, orders := newTestService(t)
	ctx := context.Background()
	_, err := svc.Issue(ctx, orders.order.UserID, orders.order.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.Verify(ctx, orders.agentID, orders.order.ID, "111111")
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	}
	_, err = svc.Verify(ctx, orders.agentID, orders.order.ID, "042917")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRateLimit))
	require.Zero(t, orders.pickedUp)

	// a fresh code resets the counter
	_, err = svc.Issue(ctx, orders.order.UserID, orders.order.ID)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, orders.agentID, orders.order.ID, "042917")
	require.NoError(t, err)
}

func TestPickupAccessChecks(t *testing.T) {
	svc, _, orders := newTestService(t)
	ctx := context.Background()

	_, err := svc.Issue(ctx, uuid.New(), orders.order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Verify(ctx, uuid.New(), orders.order.ID, "042917")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Verify(ctx, orders.agentID, orders.order.ID, "42")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	orders.order.Status = enums.SellOrderStatusEvaluated
	_, err = svc.Issue(ctx, orders.order.UserID, orders.order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}
