package sellconfig

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellr-backend/pkg/db/models"
)

// Repository persists sell configuration rows. A nil product id addresses the
// global default row.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func scope(db *gorm.DB, productID *uuid.UUID) *gorm.DB {
	if productID == nil {
		return db.Where("product_id IS NULL")
	}
	return db.Where("product_id = ?", *productID)
}

// Find returns the row for productID or gorm.ErrRecordNotFound.
func (r *Repository) Find(ctx context.Context, productID *uuid.UUID) (*models.SellConfig, error) {
	var row models.SellConfig
	if err := scope(r.db.WithContext(ctx), productID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Save inserts the row when it has no id yet, otherwise overwrites steps and rules.
func (r *Repository) Save(ctx context.Context, row *models.SellConfig) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
		return r.db.WithContext(ctx).Create(row).Error
	}
	return r.db.WithContext(ctx).Save(row).Error
}

// Delete removes the row for productID and reports how many rows went away.
func (r *Repository) Delete(ctx context.Context, productID *uuid.UUID) (int64, error) {
	res := scope(r.db.WithContext(ctx), productID).Delete(&models.SellConfig{})
	return res.RowsAffected, res.Error
}
