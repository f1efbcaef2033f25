package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellr-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/resellr-backend/pkg/errors"
)

// Service exposes the catalog reads the sell flow depends on.
type Service interface {
	Wizard(ctx context.Context, productID uuid.UUID) (*WizardDTO, error)
	PricedVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.Product, *models.Variant, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

// Wizard returns the product with its active variants and the category's
// active questions, defects and accessories.
func (s *service) Wizard(ctx context.Context, productID uuid.UUID) (*WizardDTO, error) {
	product, err := s.repo.FindProductWithVariants(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	questions, err := s.repo.ListQuestions(ctx, product.CategoryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list questions")
	}
	defects, err := s.repo.ListDefects(ctx, product.CategoryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list defects")
	}
	accessories, err := s.repo.ListAccessories(ctx, product.CategoryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list accessories")
	}

	dto := toWizardDTO(*product, questions, defects, accessories)
	return &dto, nil
}

// PricedVariant loads the product and variant a quote is based on. A missing
// variant is NOT_FOUND, a disabled one is a validation failure.
func (s *service) PricedVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.Product, *models.Variant, error) {
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		return nil, nil, notFoundOr(err, "product not found", "load product")
	}
	variant, err := s.repo.FindVariant(ctx, productID, variantID)
	if err != nil {
		return nil, nil, notFoundOr(err, "variant not found", "load variant")
	}
	if !variant.IsActive {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "variant is not available for sale")
	}
	if variant.BasePrice <= 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "variant has no base price")
	}
	return product, variant, nil
}

func notFoundOr(err error, notFoundMsg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
