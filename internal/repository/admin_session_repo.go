package repository

import (
	"context"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AdminSessionRepository interface {
	Create(ctx context.Context, s *model.AdminSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.AdminSession, error)
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
}

type adminSessionRepo struct{ db *gorm.DB }

func NewAdminSessionRepository(db *gorm.DB) AdminSessionRepository {
	return &adminSessionRepo{db: db}
}

func (r *adminSessionRepo) Create(ctx context.Context, s *model.AdminSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *adminSessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.AdminSession, error) {
	var s model.AdminSession
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return &s, err
}

func (r *adminSessionRepo) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.AdminSession{}).
		Where("id = ? AND revoked_at IS NULL", id).Update("revoked_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
