package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellr-backend/internal/catalog"
	"github.com/angelmondragon/resellr-backend/internal/pricing"
	"github.com/angelmondragon/resellr-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/resellr-backend/pkg/errors"
	"github.com/angelmondragon/resellr-backend/pkg/logger"
	"github.com/angelmondragon/resellr-backend/pkg/metrics"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

// Service runs the offer session lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
	Get(ctx context.Context, access Access) (*SessionDTO, error)
	Price(ctx context.Context, access Access) (*PriceDTO, error)
	UpdateAnswers(ctx context.Context, access Access, answers types.AnswerSet) (*PriceDTO, error)
	UpdateDefects(ctx context.Context, access Access, defects []string) (*PriceDTO, error)
	UpdateAccessories(ctx context.Context, access Access, accessories []string) (*PriceDTO, error)
	Extend(ctx context.Context, access Access) (*ExtendResult, error)
	Delete(ctx context.Context, access Access) error
	ListActive(ctx context.Context, userID uuid.UUID) ([]ActiveSessionDTO, error)
	CleanupExpired(ctx context.Context) (int64, error)
	Claim(ctx context.Context, access Access) (*models.OfferSession, error)
}

// CreateInput starts a session for the authenticated user.
type CreateInput struct {
	UserID      uuid.UUID
	ProductID   uuid.UUID
	VariantID   uuid.UUID
	PartnerID   *uuid.UUID
	Answers     types.AnswerSet
	Defects     []string
	Accessories []string
}

// Access identifies a session together with the credentials presented for it.
type Access struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
	Token     string
}

type variantPricer interface {
	PricedVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.Product, *models.Variant, error)
}

type selectionResolver interface {
	Resolve(ctx context.Context, categoryID uuid.UUID, sel catalog.Selections) ([]pricing.Adjustment, error)
}

type rulesProvider interface {
	Rules(ctx context.Context, productID uuid.UUID) (types.PricingRules, error)
}

type catalogLookup interface {
	FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Variant, error)
	FindProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type tokenHasher interface {
	Issue() (token string, digest string, err error)
	Matches(token, digest string) bool
}

// Deps wires the collaborators of the session service.
type Deps struct {
	Repo     *Repository
	Pricer   variantPricer
	Resolver selectionResolver
	Rules    rulesProvider
	Lookup   catalogLookup
	Tokens   tokenHasher
	Metrics  *metrics.SellMetrics
	Logger   *logger.Logger
	TTL      time.Duration
	Now      func() time.Time
}

type service struct {
	repo     *Repository
	pricer   variantPricer
	resolver selectionResolver
	rules    rulesProvider
	lookup   catalogLookup
	tokens   tokenHasher
	metrics  *metrics.SellMetrics
	logg     *logger.Logger
	ttl      time.Duration
	now      func() time.Time
}

func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, fmt.Errorf("session repository required")
	case deps.Pricer == nil:
		return nil, fmt.Errorf("variant pricer required")
	case deps.Resolver == nil:
		return nil, fmt.Errorf("selection resolver required")
	case deps.Rules == nil:
		return nil, fmt.Errorf("rules provider required")
	case deps.Lookup == nil:
		return nil, fmt.Errorf("catalog lookup required")
	case deps.Tokens == nil:
		return nil, fmt.Errorf("token hasher required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case deps.TTL <= 0:
		return nil, fmt.Errorf("session ttl must be positive")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     deps.Repo,
		pricer:   deps.Pricer,
		resolver: deps.Resolver,
		rules:    deps.Rules,
		lookup:   deps.Lookup,
		tokens:   deps.Tokens,
		metrics:  deps.Metrics,
		logg:     deps.Logger,
		ttl:      deps.TTL,
		now:      now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if input.ProductID == uuid.Nil || input.VariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId and variantId are required")
	}

	product, variant, err := s.pricer.PricedVariant(ctx, input.ProductID, input.VariantID)
	if err != nil {
		return nil, err
	}

	sel := catalog.Selections{
		Answers:     stripDeltas(input.Answers),
		Defects:     normalizeKeys(input.Defects),
		Accessories: normalizeKeys(input.Accessories),
	}
	quote, err := s.quote(ctx, product, variant, sel)
	if err != nil {
		return nil, err
	}

	token, digest, err := s.tokens.Issue()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue session token")
	}

	now := s.now().UTC()
	session := &models.OfferSession{
		ID:          uuid.New(),
		UserID:      input.UserID,
		ProductID:   product.ID,
		VariantID:   variant.ID,
		PartnerID:   input.PartnerID,
		Answers:     sel.Answers,
		Defects:     sel.Defects,
		Accessories: sel.Accessories,
		BasePrice:   quote.BasePrice,
		FinalPrice:  quote.FinalPrice,
		Breakdown:   quote.Breakdown,
		TokenHash:   digest,
		IsActive:    true,
		ExpiresAt:   now.Add(s.ttl),
		ComputedAt:  now,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create offer session")
	}

	s.metrics.IncSessionCreated()
	logCtx := s.logg.WithSessionID(ctx, session.ID.String())
	s.logg.Info(logCtx, "sell_session.created")

	return &CreateResult{Session: toSessionDTO(session), SessionToken: token}, nil
}

func (s *service) Get(ctx context.Context, access Access) (*SessionDTO, error) {
	session, err := s.authorize(ctx, access, modeRead)
	if err != nil {
		return nil, err
	}
	dto := toSessionDTO(session)
	return &dto, nil
}

func (s *service) Price(ctx context.Context, access Access) (*PriceDTO, error) {
	if strings.TrimSpace(access.Token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session token required")
	}
	session, err := s.authorize(ctx, access, modeRead)
	if err != nil {
		return nil, err
	}
	dto := toPriceDTO(session)
	return &dto, nil
}

func (s *service) UpdateAnswers(ctx context.Context, access Access, answers types.AnswerSet) (*PriceDTO, error) {
	return s.recompute(ctx, access, "answers", func(session *models.OfferSession) {
		session.Answers = stripDeltas(answers)
	})
}

func (s *service) UpdateDefects(ctx context.Context, access Access, defects []string) (*PriceDTO, error) {
	return s.recompute(ctx, access, "defects", func(session *models.OfferSession) {
		session.Defects = normalizeKeys(defects)
	})
}

func (s *service) UpdateAccessories(ctx context.Context, access Access, accessories []string) (*PriceDTO, error) {
	return s.recompute(ctx, access, "accessories", func(session *models.OfferSession) {
		session.Accessories = normalizeKeys(accessories)
	})
}

// recompute applies one selection change and prices the whole session again
// from the current variant price and all three selection sets.
func (s *service) recompute(ctx context.Context, access Access, selection string, apply func(*models.OfferSession)) (*PriceDTO, error) {
	session, err := s.authorize(ctx, access, modeMutate)
	if err != nil {
		return nil, err
	}

	product, variant, err := s.pricer.PricedVariant(ctx, session.ProductID, session.VariantID)
	if err != nil {
		return nil, err
	}

	apply(session)
	quote, err := s.quote(ctx, product, variant, catalog.Selections{
		Answers:     session.Answers,
		Defects:     session.Defects,
		Accessories: session.Accessories,
	})
	if err != nil {
		return nil, err
	}

	session.BasePrice = quote.BasePrice
	session.FinalPrice = quote.FinalPrice
	session.Breakdown = quote.Breakdown
	session.ComputedAt = s.now().UTC()
	if err := s.repo.Save(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save offer session")
	}

	s.metrics.IncRecomputation(selection)
	dto := toPriceDTO(session)
	return &dto, nil
}

func (s *service) Extend(ctx context.Context, access Access) (*ExtendResult, error) {
	session, err := s.authorize(ctx, access, modeMutate)
	if err != nil {
		return nil, err
	}
	session.ExpiresAt = s.now().UTC().Add(s.ttl)
	if err := s.repo.Save(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "extend offer session")
	}
	return &ExtendResult{SessionID: session.ID, ExpiresAt: session.ExpiresAt}, nil
}

func (s *service) Delete(ctx context.Context, access Access) error {
	session, err := s.authorize(ctx, access, modeDiscard)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, session.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete offer session")
	}
	s.logg.Info(s.logg.WithSessionID(ctx, session.ID.String()), "sell_session.deleted")
	return nil
}

// Claim validates a session for conversion into an order with the same rules
// as a mutation.
func (s *service) Claim(ctx context.Context, access Access) (*models.OfferSession, error) {
	return s.authorize(ctx, access, modeMutate)
}

func (s *service) ListActive(ctx context.Context, userID uuid.UUID) ([]ActiveSessionDTO, error) {
	rows, err := s.repo.ListActiveByUser(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list offer sessions")
	}
	if len(rows) == 0 {
		return []ActiveSessionDTO{}, nil
	}

	variantIDs := make([]uuid.UUID, 0, len(rows))
	productIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		variantIDs = append(variantIDs, row.VariantID)
		productIDs = append(productIDs, row.ProductID)
	}
	variants, err := s.lookup.FindVariantsByIDs(ctx, variantIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variants")
	}
	products, err := s.lookup.FindProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	out := make([]ActiveSessionDTO, 0, len(rows))
	for i := range rows {
		item := ActiveSessionDTO{SessionDTO: toSessionDTO(&rows[i])}
		if v, ok := variants[rows[i].VariantID]; ok {
			item.VariantLabel = v.Label
			item.CurrentBasePrice = v.BasePrice
		}
		if p, ok := products[rows[i].ProductID]; ok {
			item.ProductName = p.Name
			item.Brand = p.Brand
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *service) CleanupExpired(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete expired sessions")
	}
	s.metrics.AddSessionsCleaned(deleted)
	if deleted > 0 {
		s.logg.Info(s.logg.WithField(ctx, "deleted", deleted), "sell_session.cleanup")
	}
	return deleted, nil
}

type accessMode int

const (
	modeRead accessMode = iota
	modeMutate
	// modeDiscard is a mutation that is still allowed after expiry.
	modeDiscard
)

// authorize checks, in order: existence, token, ownership, state, expiry.
func (s *service) authorize(ctx context.Context, access Access, mode accessMode) (*models.OfferSession, error) {
	session, err := s.repo.FindByID(ctx, access.SessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer session")
	}

	token := strings.TrimSpace(access.Token)
	if mode != modeRead && token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session token required")
	}
	if token != "" && !s.tokens.Matches(token, session.TokenHash) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid session token")
	}
	if session.UserID != access.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "session belongs to another user")
	}

	if !session.IsActive {
		if mode == modeRead {
			return session, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session already converted to an order")
	}
	if mode != modeDiscard && session.IsExpired(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeExpired, "session expired")
	}
	return session, nil
}

func (s *service) quote(ctx context.Context, product *models.Product, variant *models.Variant, sel catalog.Selections) (pricing.Quote, error) {
	adjustments, err := s.resolver.Resolve(ctx, product.CategoryID, sel)
	if err != nil {
		return pricing.Quote{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve selections")
	}
	rules, err := s.rules.Rules(ctx, product.ID)
	if err != nil {
		return pricing.Quote{}, err
	}
	quote, err := pricing.Evaluate(variant.BasePrice, adjustments, &rules)
	if err != nil {
		return pricing.Quote{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return quote, nil
}

// stripDeltas drops client-supplied deltas; online prices come from the catalog only.
func stripDeltas(answers types.AnswerSet) types.AnswerSet {
	out := make(types.AnswerSet, 0, len(answers))
	for _, a := range answers {
		a.Delta = nil
		out = append(out, a)
	}
	return out
}

func normalizeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
