package repository

import (
	"context"
	"time"

	"pharmacy/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// revocationRepository is the database-backed auth.RevocationStore. Lookups
// hit the primary-key index on token_id; inserts are idempotent via
// ON CONFLICT DO NOTHING.
type revocationRepository struct {
	db *gorm.DB
}

// NewRevocationRepository returns a RevocationStore backed by the
// revoked_tokens table. Uses the root DB: revocation checks run before any
// tenant session context exists, and revocations written during a request
// must survive it.
func NewRevocationRepository(db *gorm.DB) *revocationRepository {
	return &revocationRepository{db: db}
}

func (r *revocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.RevokedToken{}).
		Where("token_id = ? AND expires_at > NOW()", tokenID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *revocationRepository) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	record := model.RevokedToken{TokenID: tokenID, ExpiresAt: expiresAt}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record).Error
}

func (r *revocationRepository) PurgeExpired(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("expires_at <= NOW()").Delete(&model.RevokedToken{}).Error
}
