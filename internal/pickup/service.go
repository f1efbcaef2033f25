// Package pickup issues and checks the one-time code a seller hands to the
// agent collecting the device.
package pickup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/resellr-backend/internal/sellorders"
	"github.com/angelmondragon/resellr-backend/pkg/config"
	"github.com/angelmondragon/resellr-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/resellr-backend/pkg/errors"
	"github.com/angelmondragon/resellr-backend/pkg/logger"
	"github.com/angelmondragon/resellr-backend/pkg/security"
)

const codeDigits = 6

type codeStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Del(ctx context.Context, keys ...string) error
	PickupCodeKey(orderID string) string
	PickupAttemptsKey(orderID string) string
}

type orderAccess interface {
	Get(ctx context.Context, userID, orderID uuid.UUID) (*sellorders.OrderDTO, error)
	GetAssigned(ctx context.Context, agentID, orderID uuid.UUID) (*sellorders.OrderDTO, error)
	MarkPickedUp(ctx context.Context, agentID, orderID uuid.UUID) (*sellorders.OrderDTO, error)
}

// IssueResult carries the plaintext code. It is only ever returned here.
type IssueResult struct {
	OrderID   uuid.UUID `json:"orderId"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	store  codeStore
	orders orderAccess
	cfg    config.PickupConfig
	logg   *logger.Logger
	now    func() time.Time
	newKey func() (string, error)
}

func NewService(store codeStore, orders orderAccess, cfg config.PickupConfig, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("code store required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 15 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Service{
		store:  store,
		orders: orders,
		cfg:    cfg,
		logg:   logg,
		now:    time.Now,
		newKey: func() (string, error) { return security.GenerateNumericCode(codeDigits) },
	}, nil
}

// Issue replaces any outstanding code for the order and resets its attempts.
func (s *Service) Issue(ctx context.Context, userID, orderID uuid.UUID) (*IssueResult, error) {
	order, err := s.orders.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.SellOrderStatusConfirmed {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "pickup code unavailable for order in status %s", order.Status)
	}

	code, err := s.newKey()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate pickup code")
	}
	hash, err := security.HashSecret(code, s.cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash pickup code")
	}

	id := orderID.String()
	if err := s.store.Set(ctx, s.store.PickupCodeKey(id), hash, s.cfg.CodeTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store pickup code")
	}
	if err := s.store.Del(ctx, s.store.PickupAttemptsKey(id)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset pickup attempts")
	}

	s.logg.Info(s.logg.WithOrderID(ctx, id), "pickup.code_issued")
	return &IssueResult{OrderID: orderID, Code: code, ExpiresAt: s.now().UTC().Add(s.cfg.CodeTTL)}, nil
}

// Verify checks the code presented to the assigned agent and, on a match,
// marks the order picked up. Codes are single use.
func (s *Service) Verify(ctx context.Context, agentID, orderID uuid.UUID, code string) (*sellorders.OrderDTO, error) {
	code = strings.TrimSpace(code)
	if len(code) != codeDigits {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup code must be 6 digits")
	}
	if _, err := s.orders.GetAssigned(ctx, agentID, orderID); err != nil {
		return nil, err
	}

	id := orderID.String()
	hash, err := s.store.Get(ctx, s.store.PickupCodeKey(id))
	if errors.Is(err, goredis.Nil) {
		return nil, pkgerrors.New(pkgerrors.CodeExpired, "pickup code expired or not issued")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pickup code")
	}

	attempts, err := s.store.IncrWithTTL(ctx, s.store.PickupAttemptsKey(id), s.cfg.CodeTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pickup attempts")
	}
	if attempts > int64(s.cfg.MaxAttempts) {
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many pickup code attempts")
	}

	ok, err := security.VerifySecret(code, hash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify pickup code")
	}
	if !ok {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"order_id": id, "attempts": attempts}), "pickup.code_mismatch")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid pickup code").
			WithDetails(map[string]int64{"attemptsRemaining": max(int64(s.cfg.MaxAttempts)-attempts, 0)})
	}

	if err := s.store.Del(ctx, s.store.PickupCodeKey(id), s.store.PickupAttemptsKey(id)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume pickup code")
	}
	return s.orders.MarkPickedUp(ctx, agentID, orderID)
}
