package sellorders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellr-backend/internal/catalog"
	"github.com/angelmondragon/resellr-backend/internal/sellconfig"
	"github.com/angelmondragon/resellr-backend/internal/sessions"
	"github.com/angelmondragon/resellr-backend/pkg/db/dbtest"
	"github.com/angelmondragon/resellr-backend/pkg/db/models"
	"github.com/angelmondragon/resellr-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/resellr-backend/pkg/errors"
	"github.com/angelmondragon/resellr-backend/pkg/logger"
	"github.com/angelmondragon/resellr-backend/pkg/metrics"
	"github.com/angelmondragon/resellr-backend/pkg/outbox"
	"github.com/angelmondragon/resellr-backend/pkg/pagination"
	"github.com/angelmondragon/resellr-backend/pkg/security"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

type gormTx struct{ db *gorm.DB }

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type fakeSequence struct {
	n     int64
	names []string
}

func (f *fakeSequence) NextSequence(_ context.Context, name string, _ time.Duration) (int64, error) {
	f.n++
	f.names = append(f.names, name)
	return f.n, nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type harness struct {
	db       *gorm.DB
	svc      Service
	sessions sessions.Service
	catalog  dbtest.Catalog
	clock    *fakeClock
	seq      *fakeSequence
	userID   uuid.UUID
	agentID  uuid.UUID
}

func newHarness(t *testing.T, basePrice int64) *harness {
	t.Helper()
	db := dbtest.Open(t)
	fx := dbtest.SeedCatalog(t, db, basePrice)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	clock := &fakeClock{now: time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)}
	sellMetrics := metrics.NewSellMetrics(prometheus.NewRegistry())

	catalogRepo := catalog.NewRepository(db)
	catalogSvc, err := catalog.NewService(catalogRepo)
	require.NoError(t, err)
	resolver, err := catalog.NewResolver(catalogRepo, logg)
	require.NoError(t, err)
	configSvc, err := sellconfig.NewService(sellconfig.NewRepository(db))
	require.NoError(t, err)
	hasher, err := security.NewTokenHasher("test-session-secret-0123456789")
	require.NoError(t, err)

	sessionRepo := sessions.NewRepository(db)
	sessionSvc, err := sessions.NewService(sessions.Deps{
		Repo:     sessionRepo,
		Pricer:   catalogSvc,
		Resolver: resolver,
		Rules:    configSvc,
		Lookup:   catalogRepo,
		Tokens:   hasher,
		Metrics:  sellMetrics,
		Logger:   logg,
		TTL:      30 * time.Minute,
		Now:      clock.Now,
	})
	require.NoError(t, err)

	seq := &fakeSequence{}
	numbers, err := NewNumberGenerator(seq, "sell")
	require.NoError(t, err)

	svc, err := NewService(Deps{
		Tx:            gormTx{db: db},
		Repo:          NewRepository(db),
		SessionRepo:   sessionRepo,
		Sessions:      sessionSvc,
		Variants:      catalogRepo,
		Numbers:       numbers,
		Outbox:        outbox.NewService(outbox.NewRepository(db), logg),
		Metrics:       sellMetrics,
		Logger:        logg,
		ProcessingFee: 49,
		Now:           clock.Now,
	})
	require.NoError(t, err)

	return &harness{
		db:       db,
		svc:      svc,
		sessions: sessionSvc,
		catalog:  fx,
		clock:    clock,
		seq:      seq,
		userID:   uuid.New(),
		agentID:  uuid.New(),
	}
}

func (h *harness) session(t *testing.T) *sessions.CreateResult {
	t.Helper()
	res, err := h.sessions.Create(context.Background(), sessions.CreateInput{
		UserID:    h.userID,
		ProductID: h.catalog.Product.ID,
		VariantID: h.catalog.Variant.ID,
	})
	require.NoError(t, err)
	return res
}

func (h *harness) orderInput(res *sessions.CreateResult) CreateInput {
	return CreateInput{
		UserID:       h.userID,
		SessionID:    res.Session.ID,
		SessionToken: res.SessionToken,
		Pickup: types.PickupDetails{
			ContactName: "Ana Ruiz",
			Phone:       "5551234567",
			Line1:       "12 Elm St",
			City:        "Austin",
			PostalCode:  "78701",
		},
		Payout: types.PayoutDetails{Method: enums.PayoutMethodCash},
	}
}

func (h *harness) order(t *testing.T) *OrderDTO {
	t.Helper()
	order, err := h.svc.Create(context.Background(), h.orderInput(h.session(t)))
	require.NoError(t, err)
	return order
}

func (h *harness) assigned(t *testing.T) *OrderDTO {
	t.Helper()
	order := h.order(t)
	assigned, err := h.svc.Assign(context.Background(), order.ID, h.agentID)
	require.NoError(t, err)
	return assigned
}

func outboxTypes(t *testing.T, db *gorm.DB) []enums.OutboxEventType {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, db.Order("created_at ASC").Find(&rows).Error)
	out := make([]enums.OutboxEventType, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.EventType)
	}
	return out
}

func TestCreateConvertsSessionIntoOrder(t *testing.T) {
	h := newHarness(t, 15000)
	ctx := context.Background()
	res := h.session(t)

	order, err := h.svc.Create(ctx, h.orderInput(res))
	require.NoError(t, err)
	require.Equal(t, "SELL-20261001-000001", order.OrderNumber)
	require.Equal(t, []string{"sell_order_number:20261001"}, h.seq.names)
	require.Equal(t, enums.SellOrderStatusConfirmed, order.Status)
	require.Equal(t, res.Session.FinalPrice, order.QuoteAmount)
	require.Equal(t, res.Session.Breakdown, order.QuoteBreakdown)

	var session models.OfferSession
	require.NoError(t, h.db.First(&session, "id = ?", res.Session.ID).Error)
	require.False(t, session.IsActive)

	require.Equal(t, []enums.OutboxEventType{enums.EventSellOrderCreated}, outboxTypes(t, h.db))

	got, err := h.svc.Get(ctx, h.userID, order.ID)
	require.NoError(t, err)
	require.Equal(t, "Ana Ruiz", got.Pickup.ContactName)
	require.Equal(t, enums.PayoutMethodCash, got.Payout.Method)
}

func TestCreateRejectsSecondOrderForSession(t *testing.T) {
	h := newHarness(t, 15000)
	ctx := context.Background()
	res := h.session(t)

	_, err := h.svc.Create(ctx, h.orderInput(res))
	require.NoError(t, err)

	_, err = h.svc.Create(ctx, h.orderInput(res))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	var count int64
	require.NoError(t, h.db.Model(&models.SellOrder{}).Where("session_id = ?", res.Session.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestCreateValidatesSessionAccess(t *testing.T) {
	h := newHarness(t, 15000)
	ctx := context.Background()
	res := h.session(t)

	input := h.orderInput(res)
	input.SessionToken = "wrong"
	_, err := h.svc.Create(ctx, input)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	input = h.orderInput(res)
	input.UserID = uuid.New()
	_, err = h.svc.Create(ctx, input)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	input = h.orderInput(res)
	input.Payout.Method = "cheque"
	_, err = h.svc.Create(ctx, input)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	h.clock.now = h.clock.now.Add(31 * time.Minute)
	_, err = h.svc.Create(ctx, h.orderInput(res))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeExpired))

	require.Empty(t, outboxTypes(t, h.db))
}

func TestGetRejectsOtherUsers(t *testing.T) {
	h := newHarness(t, 15000)
	order := h.order(t)

	_, err := h.svc.Get(context.Background(), uuid.New(), order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.Get(context.Background(), h.userID, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListForUserPaginates(t *testing.T) {
	h := newHarness(t, 15000)
	ctx := context.Background()

	created := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		created = append(created, h.order(t).ID)
		h.clock.now = h.clock.now.Add(time.Minute)
	}

	first, err := h.svc.ListForUser(ctx, h.userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	require.Equal(t, created[2], first.Orders[0].ID)
	require.Equal(t, created[1], first.Orders[1].ID)
	require.NotEmpty(t, first.NextCursor)

	second, err := h.svc.ListForUser(ctx, h.userID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	require.Equal(t, created[0], second.Orders[0].ID)
	require.Empty(t, second.NextCursor)

	_, err = h.svc.ListForUser(ctx, h.userID, pagination.Params{Cursor: "%%%"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCancelOnlyFromOpenStatuses(t *testing.T) {
	h := newHarness(t, 15000)
	ctx := context.Background()
	order := h.order(t)

	_, err := h.svc.Cancel(ctx, CancelInput{UserID: uuid.New(), OrderID: order.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	cancelled, err := h.svc.Cancel(ctx, CancelInput{UserID: h.userID, OrderID: order.ID, Reason: " changed my mind "})
	require.NoError(t, err)
	require.Equal(t, enums.SellOrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	require.Equal(t, "changed my mind", *cancelled.CancelReason)

	_, err = h.svc.Cancel(ctx, CancelInput{UserID: h.userID, OrderID: order.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestAssignAndListAssigned(t *testing.T) {
	h := newHarness(t, 15000)
	ctx := context.Background()
	order := h.assigned(t)
	require.Equal(t, h.agentID, *order.AssignedTo)
	require.NotNil(t, order.AssignedAt)

	h.order(t)

	list, err := h.svc.ListAssigned(ctx, h.agentID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	require.Equal(t, order.ID, list.Orders[0].ID)

	_, err = h.svc.GetAssigned(ctx, uuid.New(), order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.Assign(ctx, uuid.New(), h.agentID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.Equal(t, []enums.OutboxEventType{
		enums.EventSellOrderCreated,
		enums.EventSellOrderAssigned,
		enums.EventSellOrderCreated,
	}, outboxTypes(t, h.db))
}

func TestMarkPickedUpRequiresAssignedAgent(t *testing.T) {
	h := newHarness(t, 15000)
	ctx := context.Background()
	order := h.assigned(t)

	_, err := h.svc.MarkPickedUp(ctx, uuid.New(), order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	picked, err := h.svc.MarkPickedUp(ctx, h.agentID, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SellOrderStatusPickedUp, picked.Status)
	require.NotNil(t, picked.PickedUpAt)

	_, err = h.svc.MarkPickedUp(ctx, h.agentID, order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestReEvaluateAppliesNegotiationAndFee(t *testing.T) {
	h := newHarness(t, 20000)
	ctx := context.Background()
	order := h.assigned(t)

	res, err := h.svc.ReEvaluate(ctx, ReEvaluateInput{
		OrderID:     order.ID,
		AgentID:     h.agentID,
		Negotiation: -500,
		AgentNotes:  "  minor scuffs  ",
	})
	require.NoError(t, err)

	require.Equal(t, enums.SellOrderStatusEvaluated, res.Order.Status)
	require.Equal(t, int64(20000), *res.Order.ActualAmount)
	require.Equal(t, int64(19451), *res.Order.FinalPrice)

	cmp := res.PriceComparison
	require.Equal(t, int64(20000), cmp.Original.Amount)
	require.Equal(t, int64(20000), cmp.ReEvaluated.Amount)
	require.Equal(t, int64(-500), cmp.Negotiation)
	require.Equal(t, int64(19500), cmp.Subtotal)
	require.Equal(t, int64(49), cmp.ProcessingFee)
	require.Equal(t, int64(19451), cmp.TotalAmount)
	require.Equal(t, int64(-500), cmp.Difference)
	require.Equal(t, types.BreakdownLine{Label: "Negotiation", Delta: -500, Type: enums.BreakdownNegotiation}, cmp.ReEvaluated.Breakdown[1])

	var stored models.SellOrder
	require.NoError(t, h.db.First(&stored, "id = ?", order.ID).Error)
	require.NotNil(t, stored.EvaluationData)
	require.Equal(t, "minor scuffs", stored.EvaluationData.AgentNotes)
	require.Equal(t, int64(19451), stored.EvaluationData.FinalPrice)
	require.Equal(t, h.agentID, stored.EvaluationData.EvaluatorID)

	var events []models.OutboxEvent
	require.NoError(t, h.db.Where("event_type = ?", enums.EventSellOrderEvaluated).Find(&events).Error)
	require.Len(t, events, 1)
	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	require.Contains(t, string(envelope.Data), `"finalPrice":19451`)
}

func TestReEvaluateUsesInlineDeltas(t *testing.T) {
	h := newHarness(t, 10000)
	order := h.assigned(t)

	res, err := h.svc.ReEvaluate(context.Background(), ReEvaluateInput{
		OrderID: order.ID,
		AgentID: h.agentID,
		Answers: types.AnswerSet{{
			Key:    "screen",
			Label:  "Screen condition",
			Values: []string{"cracked"},
			Delta:  &types.Delta{Type: enums.DeltaTypePercent, Sign: "-", Value: 10},
		}},
		Defects: []types.InlineItem{{
			Key:   "dent",
			Title: "Dented frame",
			Delta: types.Delta{Type: enums.DeltaTypeAbs, Sign: "-", Value: 250},
		}},
		Accessories: []types.InlineItem{{
			Key:   "box",
			Delta: types.Delta{Type: enums.DeltaTypeAbs, Sign: "+", Value: 100},
		}},
	})
	require.NoError(t, err)

	// 10000 * 0.9 - 250 + 100, no config rules applied.
	require.Equal(t, int64(8850), res.PriceComparison.ReEvaluated.Amount)
	require.Equal(t, int64(8850-49), res.PriceComparison.TotalAmount)
	require.Equal(t, int64(8850)-order.QuoteAmount, res.PriceComparison.Difference)
	require.Len(t, res.PriceComparison.ReEvaluated.Breakdown, 4)
	require.Equal(t, "box", res.PriceComparison.ReEvaluated.Breakdown[3].Label)
}

func TestReEvaluateGuards(t *testing.T) {
	h := newHarness(t, 15000)
	ctx := context.Background()

	unassigned := h.order(t)
	_, err := h.svc.ReEvaluate(ctx, ReEvaluateInput{OrderID: unassigned.ID, AgentID: h.agentID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.ReEvaluate(ctx, ReEvaluateInput{OrderID: uuid.New(), AgentID: h.agentID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = h.svc.ReEvaluate(ctx, ReEvaluateInput{
		OrderID: unassigned.ID,
		AgentID: h.agentID,
		Defects: []types.InlineItem{{Key: "dent", Delta: types.Delta{Type: "bogus", Sign: "-", Value: 1}}},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	order := h.assigned(t)
	_, err = h.svc.ReEvaluate(ctx, ReEvaluateInput{OrderID: order.ID, AgentID: h.agentID})
	require.NoError(t, err)
	_, err = h.svc.ReEvaluate(ctx, ReEvaluateInput{OrderID: order.ID, AgentID: h.agentID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	completed, err := h.svc.Complete(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SellOrderStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
}

func TestReEvaluateMissingVariant(t *testing.T) {
	h := newHarness(t, 15000)
	order := h.assigned(t)
	require.NoError(t, h.db.Delete(&models.Variant{}, "id = ?", h.catalog.Variant.ID).Error)

	_, err := h.svc.ReEvaluate(context.Background(), ReEvaluateInput{OrderID: order.ID, AgentID: h.agentID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	var stored models.SellOrder
	require.NoError(t, h.db.First(&stored, "id = ?", order.ID).Error)
	require.Equal(t, enums.SellOrderStatusConfirmed, stored.Status)
}

func TestSettleClampsAtZero(t *testing.T) {
	cases := []struct {
		subtotal, fee, want int64
	}{
		{19500, 49, 19451},
		{49, 49, 0},
		{10, 49, 0},
		{-100, 49, 0},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d-%d", tc.subtotal, tc.fee), func(t *testing.T) {
			if got := settle(tc.subtotal, tc.fee); got != tc.want {
				t.Fatalf("settle(%d, %d) = %d, want %d", tc.subtotal, tc.fee, got, tc.want)
			}
		})
	}
}
