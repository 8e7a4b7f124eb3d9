package repository

import (
	"context"

	"pharmacy/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshTokenRepository tracks issued refresh tokens so they can be rotated
// and bulk-revoked. Keyed by the refresh token's jti, not the raw token.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	GetByID(ctx context.Context, id string) (*model.RefreshToken, error)
	MarkRevoked(ctx context.Context, id string) error
	ActiveForUser(ctx context.Context, userID uuid.UUID) ([]model.RefreshToken, error)
	DeleteExpired(ctx context.Context) error
}

type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository returns a new instance of RefreshTokenRepository.
// Token records use the root DB: token lifecycle operations run outside any
// tenant session context.
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *refreshTokenRepository) GetByID(ctx context.Context, id string) (*model.RefreshToken, error) {
	var token model.RefreshToken
	if err := r.db.WithContext(ctx).First(&token, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *refreshTokenRepository) MarkRevoked(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("id = ?", id).Update("revoked", true).Error
}

// ActiveForUser returns all live (unrevoked, unexpired) refresh tokens for a
// user, the working set for logout-everywhere.
func (r *refreshTokenRepository) ActiveForUser(ctx context.Context, userID uuid.UUID) ([]model.RefreshToken, error) {
	var tokens []model.RefreshToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND revoked = false AND expires_at > NOW()", userID).
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *refreshTokenRepository) DeleteExpired(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("expires_at <= NOW()").Delete(&model.RefreshToken{}).Error
}
