package sellorders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellr-backend/internal/sessions"
	"github.com/angelmondragon/resellr-backend/pkg/db"
	"github.com/angelmondragon/resellr-backend/pkg/db/models"
	"github.com/angelmondragon/resellr-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/resellr-backend/pkg/errors"
	"github.com/angelmondragon/resellr-backend/pkg/logger"
	"github.com/angelmondragon/resellr-backend/pkg/metrics"
	"github.com/angelmondragon/resellr-backend/pkg/outbox"
	"github.com/angelmondragon/resellr-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/resellr-backend/pkg/pagination"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

const sessionUniqueConstraint = "ux_sell_orders_session_id"

// Service owns sell orders from conversion to settlement.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*OrderDTO, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	Cancel(ctx context.Context, input CancelInput) (*OrderDTO, error)
	Assign(ctx context.Context, orderID, agentID uuid.UUID) (*OrderDTO, error)
	Complete(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	ListAssigned(ctx context.Context, agentID uuid.UUID, params pagination.Params) (*OrderList, error)
	GetAssigned(ctx context.Context, agentID, orderID uuid.UUID) (*OrderDTO, error)
	MarkPickedUp(ctx context.Context, agentID, orderID uuid.UUID) (*OrderDTO, error)
	ReEvaluate(ctx context.Context, input ReEvaluateInput) (*ReEvaluateResult, error)
}

// CreateInput converts an offer session into an order.
type CreateInput struct {
	UserID       uuid.UUID
	SessionID    uuid.UUID
	SessionToken string
	Pickup       types.PickupDetails
	Payout       types.PayoutDetails
}

type CancelInput struct {
	UserID  uuid.UUID
	OrderID uuid.UUID
	Reason  string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionClaimer interface {
	Claim(ctx context.Context, access sessions.Access) (*models.OfferSession, error)
}

type variantFinder interface {
	FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.Variant, error)
}

type orderNumberer interface {
	Next(ctx context.Context, now time.Time) (string, error)
}

// Deps wires the collaborators of the order service.
type Deps struct {
	Tx            txRunner
	Repo          *Repository
	SessionRepo   *sessions.Repository
	Sessions      sessionClaimer
	Variants      variantFinder
	Numbers       orderNumberer
	Outbox        *outbox.Service
	Metrics       *metrics.SellMetrics
	Logger        *logger.Logger
	ProcessingFee int64
	Now           func() time.Time
}

type service struct {
	tx          txRunner
	repo        *Repository
	sessionRepo *sessions.Repository
	sessions    sessionClaimer
	variants    variantFinder
	numbers     orderNumberer
	outbox      *outbox.Service
	metrics     *metrics.SellMetrics
	logg        *logger.Logger
	fee         int64
	now         func() time.Time
}

func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Repo == nil:
		return nil, fmt.Errorf("order repository required")
	case deps.SessionRepo == nil:
		return nil, fmt.Errorf("session repository required")
	case deps.Sessions == nil:
		return nil, fmt.Errorf("session service required")
	case deps.Variants == nil:
		return nil, fmt.Errorf("variant finder required")
	case deps.Numbers == nil:
		return nil, fmt.Errorf("order number generator required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox service required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case deps.ProcessingFee < 0:
		return nil, fmt.Errorf("processing fee must not be negative")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:          deps.Tx,
		repo:        deps.Repo,
		sessionRepo: deps.SessionRepo,
		sessions:    deps.Sessions,
		variants:    deps.Variants,
		numbers:     deps.Numbers,
		outbox:      deps.Outbox,
		metrics:     deps.Metrics,
		logg:        deps.Logger,
		fee:         deps.ProcessingFee,
		now:         now,
	}, nil
}

func errOrderExists() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "an order already exists for this session")
}

func (s *service) Create(ctx context.Context, input CreateInput) (*OrderDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if input.SessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sessionId is required")
	}
	if !input.Payout.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payout method").
			WithDetails(map[string]string{"payout.method": "must be one of cash, bank_transfer, upi"})
	}

	session, err := s.sessions.Claim(ctx, sessions.Access{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Token:     input.SessionToken,
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			if exists, lookupErr := s.repo.ExistsForSession(ctx, input.SessionID); lookupErr == nil && exists {
				return nil, errOrderExists()
			}
		}
		return nil, err
	}

	exists, err := s.repo.ExistsForSession(ctx, session.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing order")
	}
	if exists {
		return nil, errOrderExists()
	}

	now := s.now().UTC()
	number, err := s.numbers.Next(ctx, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
	}

	order := &models.SellOrder{
		ID:             uuid.New(),
		UserID:         session.UserID,
		SessionID:      session.ID,
		ProductID:      session.ProductID,
		VariantID:      session.VariantID,
		OrderNumber:    number,
		Status:         enums.SellOrderStatusConfirmed,
		Pickup:         input.Pickup,
		Payout:         input.Payout,
		QuoteAmount:    session.FinalPrice,
		QuoteBreakdown: session.Breakdown,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		converted, err := s.sessionRepo.WithTx(tx).Deactivate(ctx, session.ID)
		if err != nil {
			return err
		}
		if !converted {
			return errOrderExists()
		}
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, sessionUniqueConstraint) {
				return errOrderExists()
			}
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSellOrderCreated,
			AggregateType: enums.AggregateSellOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: order.UserID, Role: string(enums.UserRoleCustomer)},
			OccurredAt:    now,
			Data: payloads.SellOrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				SessionID:   order.SessionID,
				ProductID:   order.ProductID,
				VariantID:   order.VariantID,
				QuoteAmount: order.QuoteAmount,
				CreatedAt:   now,
			},
		})
	})
	if err != nil {
		return nil, asServiceError(err, "create sell order")
	}

	s.metrics.IncOrderCreated()
	logCtx := s.logg.WithOrderID(s.logg.WithSessionID(ctx, session.ID.String()), order.ID.String())
	s.logg.Info(s.logg.WithField(logCtx, "order_number", order.OrderNumber), "sell_order.created")

	dto := toOrderDTO(order)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	dto := toOrderDTO(order)
	return &dto, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return s.list(ctx, listParams{UserID: &userID}, params)
}

func (s *service) ListAssigned(ctx context.Context, agentID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return s.list(ctx, listParams{
		AgentID:  &agentID,
		Statuses: []enums.SellOrderStatus{enums.SellOrderStatusConfirmed, enums.SellOrderStatusPickedUp},
	}, params)
}

func (s *service) list(ctx context.Context, filter listParams, params pagination.Params) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Limit = params.Limit
	filter.Cursor = cursor

	rows, next, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sell orders")
	}
	out := &OrderList{Orders: toOrderDTOs(rows)}
	if next != nil {
		out.NextCursor = pagination.EncodeCursor(*next)
	}
	return out, nil
}

func (s *service) GetAssigned(ctx context.Context, agentID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsAssignedTo(agentID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this agent")
	}
	dto := toOrderDTO(order)
	return &dto, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*OrderDTO, error) {
	reason := strings.TrimSpace(input.Reason)
	return s.transition(ctx, input.OrderID, enums.SellOrderStatusCancelled, enums.EventSellOrderCancelled,
		&outbox.ActorRef{UserID: input.UserID, Role: string(enums.UserRoleCustomer)},
		func(order *models.SellOrder, now time.Time) error {
			if order.UserID != input.UserID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
			}
			order.CancelledAt = &now
			if reason != "" {
				order.CancelReason = &reason
			}
			return nil
		}, reason)
}

func (s *service) Complete(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	return s.transition(ctx, orderID, enums.SellOrderStatusCompleted, enums.EventSellOrderCompleted, nil,
		func(order *models.SellOrder, now time.Time) error {
			order.CompletedAt = &now
			return nil
		}, "")
}

func (s *service) MarkPickedUp(ctx context.Context, agentID, orderID uuid.UUID) (*OrderDTO, error) {
	return s.transition(ctx, orderID, enums.SellOrderStatusPickedUp, enums.EventSellOrderPickedUp,
		&outbox.ActorRef{UserID: agentID, Role: string(enums.UserRoleAgent)},
		func(order *models.SellOrder, now time.Time) error {
			if !order.IsAssignedTo(agentID) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this agent")
			}
			order.PickedUpAt = &now
			return nil
		}, "")
}

// transition locks the order, applies a guarded status change and queues the
// matching event in the same transaction.
func (s *service) transition(
	ctx context.Context,
	orderID uuid.UUID,
	next enums.SellOrderStatus,
	eventType enums.OutboxEventType,
	actor *outbox.ActorRef,
	guard func(order *models.SellOrder, now time.Time) error,
	reason string,
) (*OrderDTO, error) {
	var updated *models.SellOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if err := guard(order, now); err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(next) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", order.Status, next)
		}
		order.Status = next
		if err := repo.Save(ctx, order); err != nil {
			return err
		}
		updated = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateSellOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			OccurredAt:    now,
			Data: payloads.SellOrderStatusEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				Status:      next,
				Reason:      reason,
				ChangedAt:   now,
			},
		})
	})
	if err != nil {
		return nil, asServiceError(err, "update sell order")
	}
	s.logg.Info(s.logg.WithField(s.logg.WithOrderID(ctx, updated.ID.String()), "status", next.String()), "sell_order.status_changed")
	dto := toOrderDTO(updated)
	return &dto, nil
}

func (s *service) Assign(ctx context.Context, orderID, agentID uuid.UUID) (*OrderDTO, error) {
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agentId is required")
	}
	var updated *models.SellOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.SellOrderStatusConfirmed && order.Status != enums.SellOrderStatusPickedUp {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot assign an order in status %s", order.Status)
		}
		now := s.now().UTC()
		order.AssignedTo = &agentID
		order.AssignedAt = &now
		if err := repo.Save(ctx, order); err != nil {
			return err
		}
		updated = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSellOrderAssigned,
			AggregateType: enums.AggregateSellOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{Role: string(enums.UserRoleAdmin)},
			OccurredAt:    now,
			Data: payloads.SellOrderAssignedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				AgentID:     agentID,
				AssignedAt:  now,
			},
		})
	})
	if err != nil {
		return nil, asServiceError(err, "assign sell order")
	}
	s.logg.Info(s.logg.WithField(s.logg.WithOrderID(ctx, updated.ID.String()), "agent_id", agentID.String()), "sell_order.assigned")
	dto := toOrderDTO(updated)
	return &dto, nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.SellOrder, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sell order")
	}
	return order, nil
}

func lockOrder(ctx context.Context, repo *Repository, orderID uuid.UUID) (*models.SellOrder, error) {
	order, err := repo.FindByIDForUpdate(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, err
}

// asServiceError keeps typed errors from inside a transaction and classifies
// anything else as a dependency failure.
func asServiceError(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
