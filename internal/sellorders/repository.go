package sellorders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/resellr-backend/pkg/db/models"
	"github.com/angelmondragon/resellr-backend/pkg/enums"
	"github.com/angelmondragon/resellr-backend/pkg/pagination"
)

// Repository persists sell orders.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, order *models.SellOrder) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByID returns the order or gorm.ErrRecordNotFound.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SellOrder, error) {
	var order models.SellOrder
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate row-locks the order for the rest of the transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.SellOrder, error) {
	var order models.SellOrder
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ExistsForSession reports whether the session was already converted.
func (r *Repository) ExistsForSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	var order models.SellOrder
	err := r.db.WithContext(ctx).Select("id").First(&order, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *Repository) Save(ctx context.Context, order *models.SellOrder) error {
	return r.db.WithContext(ctx).Save(order).Error
}

type listParams struct {
	UserID   *uuid.UUID
	AgentID  *uuid.UUID
	Statuses []enums.SellOrderStatus
	Limit    int
	Cursor   *pagination.Cursor
}

// List returns one page ordered newest first plus the cursor of the last row
// when more rows follow.
func (r *Repository) List(ctx context.Context, params listParams) ([]models.SellOrder, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.SellOrder{})
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.AgentID != nil {
		query = query.Where("assigned_to = ?", *params.AgentID)
	}
	if len(params.Statuses) > 0 {
		query = query.Where("status IN ?", params.Statuses)
	}
	if c := params.Cursor; c != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
	}

	var orders []models.SellOrder
	err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&orders).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(orders, params.Limit, func(o models.SellOrder) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, next, nil
}
