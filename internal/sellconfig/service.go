package sellconfig

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellr-backend/internal/pricing"
	"github.com/angelmondragon/resellr-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/resellr-backend/pkg/errors"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

// Source says where an effective configuration came from.
type Source string

const (
	SourceProduct Source = "product"
	SourceGlobal  Source = "global"
	SourceBuiltin Source = "builtin"
)

// Config is the effective wizard and rules for a product.
type Config struct {
	ID        *uuid.UUID         `json:"id,omitempty"`
	ProductID *uuid.UUID         `json:"productId"`
	Source    Source             `json:"source"`
	Steps     types.SellSteps    `json:"steps"`
	Rules     types.PricingRules `json:"rules"`
	UpdatedAt *time.Time         `json:"updatedAt,omitempty"`
}

// UpdateInput carries a partial update. Nil fields keep the effective value.
type UpdateInput struct {
	Steps *types.SellSteps
	Rules *types.PricingRules
}

// TestPricingInput is a dry run against a product's rules. Rules overrides
// the stored rules when set.
type TestPricingInput struct {
	BasePrice   int64
	Adjustments []pricing.Adjustment
	Rules       *types.PricingRules
}

// Service reads and administers sell configuration.
type Service interface {
	Get(ctx context.Context, productID *uuid.UUID) (*Config, error)
	Rules(ctx context.Context, productID uuid.UUID) (types.PricingRules, error)
	Update(ctx context.Context, productID *uuid.UUID, input UpdateInput) (*Config, error)
	Reset(ctx context.Context, productID *uuid.UUID) (*Config, error)
	Delete(ctx context.Context, productID *uuid.UUID) error
	TestPricing(ctx context.Context, productID *uuid.UUID, input TestPricingInput) (*pricing.Quote, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sell config repository required")
	}
	return &service{repo: repo}, nil
}

// Get resolves product row, then global row, then the built-in default.
func (s *service) Get(ctx context.Context, productID *uuid.UUID) (*Config, error) {
	if productID != nil {
		row, err := s.find(ctx, productID)
		if err != nil {
			return nil, err
		}
		if row != nil {
			return toConfig(row, SourceProduct), nil
		}
	}

	row, err := s.find(ctx, nil)
	if err != nil {
		return nil, err
	}
	if row != nil {
		cfg := toConfig(row, SourceGlobal)
		cfg.ProductID = productID
		return cfg, nil
	}

	cfg := DefaultConfig()
	cfg.ProductID = productID
	return &cfg, nil
}

// Rules returns the effective pricing rules for a product.
func (s *service) Rules(ctx context.Context, productID uuid.UUID) (types.PricingRules, error) {
	cfg, err := s.Get(ctx, &productID)
	if err != nil {
		return types.PricingRules{}, err
	}
	return cfg.Rules, nil
}

func (s *service) Update(ctx context.Context, productID *uuid.UUID, input UpdateInput) (*Config, error) {
	if input.Steps == nil && input.Rules == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "steps or rules required")
	}

	row, err := s.find(ctx, productID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		effective, err := s.Get(ctx, productID)
		if err != nil {
			return nil, err
		}
		row = &models.SellConfig{ProductID: productID, Steps: effective.Steps, Rules: effective.Rules}
	}

	if input.Steps != nil {
		steps, err := normalizeSteps(*input.Steps)
		if err != nil {
			return nil, err
		}
		row.Steps = steps
	}
	if input.Rules != nil {
		if err := pricing.ValidateRules(*input.Rules); err != nil {
			return nil, err
		}
		row.Rules = *input.Rules
	}

	if err := s.repo.Save(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save sell config")
	}
	return toConfig(row, sourceFor(productID)), nil
}

// Reset writes the built-in default as an explicit row, reusing any existing
// row so repeated calls converge on the same document.
func (s *service) Reset(ctx context.Context, productID *uuid.UUID) (*Config, error) {
	row, err := s.find(ctx, productID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &models.SellConfig{ProductID: productID}
	}
	defaults := DefaultConfig()
	row.Steps = defaults.Steps
	row.Rules = defaults.Rules

	if err := s.repo.Save(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset sell config")
	}
	return toConfig(row, sourceFor(productID)), nil
}

func (s *service) Delete(ctx context.Context, productID *uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete sell config")
	}
	if deleted == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "sell config not found")
	}
	return nil
}

// TestPricing evaluates arbitrary adjustments without touching any session.
func (s *service) TestPricing(ctx context.Context, productID *uuid.UUID, input TestPricingInput) (*pricing.Quote, error) {
	rules := input.Rules
	if rules == nil {
		cfg, err := s.Get(ctx, productID)
		if err != nil {
			return nil, err
		}
		rules = &cfg.Rules
	} else if err := pricing.ValidateRules(*rules); err != nil {
		return nil, err
	}

	quote, err := pricing.Evaluate(input.BasePrice, input.Adjustments, rules)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return &quote, nil
}

func (s *service) find(ctx context.Context, productID *uuid.UUID) (*models.SellConfig, error) {
	row, err := s.repo.Find(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sell config")
	}
	return row, nil
}

func normalizeSteps(steps types.SellSteps) (types.SellSteps, error) {
	if len(steps) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one step is required")
	}
	seen := make(map[string]struct{}, len(steps))
	out := make(types.SellSteps, 0, len(steps))
	for _, step := range steps {
		step.Key = strings.TrimSpace(step.Key)
		step.Title = strings.TrimSpace(step.Title)
		if step.Key == "" || step.Title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "step key and title are required")
		}
		if _, dup := seen[step.Key]; dup {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "duplicate step key %q", step.Key)
		}
		seen[step.Key] = struct{}{}
		out = append(out, step)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func sourceFor(productID *uuid.UUID) Source {
	if productID == nil {
		return SourceGlobal
	}
	return SourceProduct
}

func toConfig(row *models.SellConfig, source Source) *Config {
	id := row.ID
	updated := row.UpdatedAt
	return &Config{
		ID:        &id,
		ProductID: row.ProductID,
		Source:    source,
		Steps:     row.Steps,
		Rules:     row.Rules,
		UpdatedAt: &updated,
	}
}
