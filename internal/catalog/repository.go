package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellr-backend/pkg/db/models"
)

// Repository reads the sell catalog. Writes belong to the admin back-office.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindProduct loads the product without variants.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductWithVariants loads the product and its active variants in display order.
func (r *Repository) FindProductWithVariants(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("sort_order ASC").Order("label ASC")
		}).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindVariant loads a variant scoped to its product. Inactive variants are
// returned so callers can distinguish missing from disabled.
func (r *Repository) FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.Variant, error) {
	var variant models.Variant
	if err := r.db.WithContext(ctx).
		Where("id = ? AND product_id = ?", variantID, productID).
		First(&variant).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindVariantsByIDs returns the variants keyed by id. Missing ids are absent from the map.
func (r *Repository) FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Variant, error) {
	out := make(map[uuid.UUID]models.Variant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Variant
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// FindProductsByIDs returns the products keyed by id.
func (r *Repository) FindProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// ListQuestions returns the active questions of a category in wizard order.
func (r *Repository) ListQuestions(ctx context.Context, categoryID uuid.UUID) ([]models.SellQuestion, error) {
	var rows []models.SellQuestion
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND is_active = ?", categoryID, true).
		Order("sort_order ASC").
		Order("key ASC").
		Find(&rows).Error
	return rows, err
}

// ListDefects returns the active defects of a category.
func (r *Repository) ListDefects(ctx context.Context, categoryID uuid.UUID) ([]models.SellDefect, error) {
	var rows []models.SellDefect
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND is_active = ?", categoryID, true).
		Order("sort_order ASC").
		Order("key ASC").
		Find(&rows).Error
	return rows, err
}

// ListAccessories returns the active accessories of a category.
func (r *Repository) ListAccessories(ctx context.Context, categoryID uuid.UUID) ([]models.SellAccessory, error) {
	var rows []models.SellAccessory
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND is_active = ?", categoryID, true).
		Order("sort_order ASC").
		Order("key ASC").
		Find(&rows).Error
	return rows, err
}
