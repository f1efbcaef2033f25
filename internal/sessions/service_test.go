package sessions

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellr-backend/internal/catalog"
	"github.com/angelmondragon/resellr-backend/internal/sellconfig"
	"github.com/angelmondragon/resellr-backend/pkg/db/dbtest"
	"github.com/angelmondragon/resellr-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/resellr-backend/pkg/errors"
	"github.com/angelmondragon/resellr-backend/pkg/logger"
	"github.com/angelmondragon/resellr-backend/pkg/metrics"
	"github.com/angelmondragon/resellr-backend/pkg/security"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type harness struct {
	db      *gorm.DB
	svc     Service
	clock   *fakeClock
	catalog dbtest.Catalog
	userID  uuid.UUID
}

func newHarness(t *testing.T, basePrice int64) *harness {
	t.Helper()
	db := dbtest.Open(t)
	fx := dbtest.SeedCatalog(t, db, basePrice)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	catalogRepo := catalog.NewRepository(db)
	catalogSvc, err := catalog.NewService(catalogRepo)
	require.NoError(t, err)
	resolver, err := catalog.NewResolver(catalogRepo, logg)
	require.NoError(t, err)
	configSvc, err := sellconfig.NewService(sellconfig.NewRepository(db))
	require.NoError(t, err)
	hasher, err := security.NewTokenHasher("test-session-secret-0123456789")
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewService(Deps{
		Repo:     NewRepository(db),
		Pricer:   catalogSvc,
		Resolver: resolver,
		Rules:    configSvc,
		Lookup:   catalogRepo,
		Tokens:   hasher,
		Metrics:  metrics.NewSellMetrics(prometheus.NewRegistry()),
		Logger:   logg,
		TTL:      30 * time.Minute,
		Now:      clock.Now,
	})
	require.NoError(t, err)

	return &harness{db: db, svc: svc, clock: clock, catalog: fx, userID: uuid.New()}
}

func (h *harness) create(t *testing.T) *CreateResult {
	t.Helper()
	res, err := h.svc.Create(context.Background(), CreateInput{
		UserID:    h.userID,
		ProductID: h.catalog.Product.ID,
		VariantID: h.catalog.Variant.ID,
	})
	require.NoError(t, err)
	return res
}

func (h *harness) access(res *CreateResult) Access {
	return Access{SessionID: res.Session.ID, UserID: h.userID, Token: res.SessionToken}
}

func TestSessionLifecycleEndToEnd(t *testing.T) {
	h := newHarness(t, 15000)
	ctx := context.Background()

	res := h.create(t)
	require.NotEmpty(t, res.SessionToken)
	require.Equal(t, int64(15000), res.Session.FinalPrice)
	require.Equal(t, types.BreakdownLine{Label: "Base Price", Delta: 15000, Type: "base"}, res.Session.Breakdown[0])
	require.Equal(t, h.clock.now.Add(30*time.Minute), res.Session.ExpiresAt)

	price, err := h.svc.UpdateDefects(ctx, h.access(res), []string{"dent"})
	require.NoError(t, err)
	require.Equal(t, int64(12000), price.FinalPrice)
	require.Equal(t, int64(-3000), price.Breakdown[1].Delta)

	price, err = h.svc.UpdateAccessories(ctx, h.access(res), []string{"charger"})
	require.NoError(t, err)
	require.Equal(t, int64(12300), price.FinalPrice)
	require.Len(t, price.Breakdown, 3)

	h.clock.now = h.clock.now.Add(10 * time.Minute)
	extended, err := h.svc.Extend(ctx, h.access(res))
	require.NoError(t, err)
	require.True(t, extended.ExpiresAt.After(res.Session.ExpiresAt))

	got, err := h.svc.Get(ctx, h.access(res))
	require.NoError(t, err)
	require.Equal(t, int64(12300), got.FinalPrice)
	require.Equal(t, []string{"dent"}, got.Defects)
}

func TestUpdateAnswersUsesCatalogDeltasOnly(t *testing.T) {
	h := newHarness(t, 10000)
	res := h.create(t)

	var answers types.AnswerSet
	require.NoError(t, answers.UnmarshalJSON([]byte(`{"screen": {"value": "cracked", "delta": {"type": "abs", "sign": "+", "value": 99999}}}`)))

	price, err := h.svc.UpdateAnswers(context.Background(), h.access(res), answers)
	require.NoError(t, err)
	// -15% from the catalog, rounded to the nearest 10 by the default rules.
	require.Equal(t, int64(8500), price.FinalPrice)
	require.Equal(t, "Screen condition", price.Breakdown[1].Label)
}

func TestMutationRequiresMatchingToken(t *testing.T) {
	h := newHarness(t, 15000)
	ctx := context.Background()
	res := h.create(t)

	for _, token := range []string{"", "not-the-token"} {
		access := h.access(res)
		access.Token = token
		_, err := h.svc.UpdateAnswers(ctx, access, types.AnswerSet{{Key: "screen", Values: []string{"cracked"}}})
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "token %q: %v", token, err)
	}

	got, err := h.svc.Get(ctx, h.access(res))
	require.NoError(t, err)
	require.Equal(t, int64(15000), got.FinalPrice)
	require.Len(t, got.Breakdown, 1)
}

func TestGetTokenIsOptionalButChecked(t *testing.T) {
	h := newHarness(t, 15000)
	ctx := context.Background()
	res := h.create(t)

	access := h.access(res)
	access.Token = ""
	_, err := h.svc.Get(ctx, access)
	require.NoError(t, err)

	access.Token = "wrong"
	_, err = h.svc.Get(ctx, access)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = h.svc.Price(ctx, Access{SessionID: res.Session.ID, UserID: h.userID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = h.svc.Get(ctx, Access{SessionID: uuid.New(), UserID: h.userID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestOtherUserIsForbidden(t *testing.T) {
	h := newHarness(t, 15000)
	res := h.create(t)

	access := h.access(res)
	access.UserID = uuid.New()
	_, err := h.svc.Get(context.Background(), access)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestExpiredSessionIsGoneButStillStored(t *testing.T) {
	h := newHarness(t, 15000)
	ctx := context.Background()
	res := h.create(t)

	h.clock.now = res.Session.ExpiresAt
	_, err := h.svc.Get(ctx, h.access(res))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeExpired))

	_, err = h.svc.Extend(ctx, h.access(res))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeExpired))

	var count int64
	require.NoError(t, h.db.Model(&models.OfferSession{}).Where("id = ?", res.Session.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)

	deleted, err := h.svc.CleanupExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	_, err = h.svc.Get(ctx, h.access(res))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteAllowsExpiredSessions(t *testing.T) {
	h := newHarness(t, 15000)
	ctx := context.Background()
	res := h.create(t)

	h.clock.now = h.clock.now.Add(time.Hour)
	require.NoError(t, h.svc.Delete(ctx, h.access(res)))

	_, err := h.svc.Get(ctx, h.access(res))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestConvertedSessionIsReadOnly(t *testing.T) {
	h := newHarness(t, 15000)
	ctx := context.Background()
	res := h.create(t)

	claimed, err := h.svc.Claim(ctx, h.access(res))
	require.NoError(t, err)
	ok, err := NewRepository(h.db).Deactivate(ctx, claimed.ID)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := h.svc.Get(ctx, h.access(res))
	require.NoError(t, err)
	require.False(t, got.IsActive)

	_, err = h.svc.UpdateDefects(ctx, h.access(res), []string{"dent"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	_, err = h.svc.Claim(ctx, h.access(res))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCreateRejectsInactiveOrMissingVariant(t *testing.T) {
	h := newHarness(t, 15000)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, CreateInput{UserID: h.userID, ProductID: h.catalog.Product.ID, VariantID: uuid.New()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, h.db.Model(&models.Variant{}).Where("id = ?", h.catalog.Variant.ID).Update("is_active", false).Error)
	_, err = h.svc.Create(ctx, CreateInput{UserID: h.userID, ProductID: h.catalog.Product.ID, VariantID: h.catalog.Variant.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListActiveEnrichesAtReadTime(t *testing.T) {
	h := newHarness(t, 15000)
	ctx := context.Background()

	first := h.create(t)
	h.clock.now = h.clock.now.Add(time.Minute)
	second := h.create(t)

	h.clock.now = h.clock.now.Add(time.Minute)
	_, err := h.svc.UpdateDefects(ctx, h.access(first), []string{"dent"})
	require.NoError(t, err)

	require.NoError(t, h.db.Model(&models.Variant{}).Where("id = ?", h.catalog.Variant.ID).Update("base_price", 16000).Error)

	list, err := h.svc.ListActive(ctx, h.userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []uuid.UUID{list[0].ID, list[1].ID}
	require.ElementsMatch(t, []uuid.UUID{first.Session.ID, second.Session.ID}, ids)
	for _, item := range list {
		require.Equal(t, "128GB", item.VariantLabel)
		require.Equal(t, "Pixel 8", item.ProductName)
		require.Equal(t, int64(16000), item.CurrentBasePrice)
	}

	others, err := h.svc.ListActive(ctx, uuid.New())
	require.NoError(t, err)
	require.Empty(t, others)
}
