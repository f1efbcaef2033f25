package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellr-backend/pkg/db/models"
)

// Repository persists offer sessions.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, session *models.OfferSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(session).Error
}

// FindByID returns the session or gorm.ErrRecordNotFound.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OfferSession, error) {
	var session models.OfferSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// Save writes every column of the session. Concurrent writers are last-write-wins.
func (r *Repository) Save(ctx context.Context, session *models.OfferSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

// Deactivate marks a session as converted. It reports false when the session
// was already inactive so callers can detect a lost race.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OfferSession{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()})
	return res.RowsAffected == 1, res.Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.OfferSession{}, "id = ?", id).Error
}

// ListActiveByUser returns usable sessions, most recently updated first.
func (r *Repository) ListActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.OfferSession, error) {
	var rows []models.OfferSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND expires_at > ?", userID, true, now).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// DeleteExpired removes active sessions whose expiry has passed. Converted
// sessions are kept because sell orders reference them.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ? AND is_active = ?", now, true).
		Delete(&models.OfferSession{})
	return res.RowsAffected, res.Error
}
