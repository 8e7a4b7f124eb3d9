package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents the central user entity for logic and database structure
type User struct {
	ID           uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID     uuid.UUID          `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Tenant       Tenant             `gorm:"foreignKey:TenantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	BranchID     *uuid.UUID         `gorm:"type:uuid;index" json:"branch_id"` // home branch, nil for tenant-wide accounts
	Branch       *Branch            `gorm:"foreignKey:BranchID" json:"-"`
	Username     string             `gorm:"type:varchar(255);not null;index" json:"username"`
	Email        string             `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone        string             `gorm:"type:varchar(20)" json:"phone"`
	Password     string             `gorm:"type:varchar(255);not null" json:"-"` // Omit password from JSON requests/responses
	Role         string             `gorm:"type:varchar(50);not null" json:"role"`
	BranchAccess []UserBranchAccess `gorm:"foreignKey:UserID" json:"branch_access,omitempty"`
	CreatedAt    time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt     `gorm:"index" json:"-"` // GORM soft delete
}

// UserBranchAccess grants a user access to a branch beyond their home branch.
type UserBranchAccess struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_branch" json:"user_id"`
	BranchID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_branch" json:"branch_id"`
	Branch    Branch    `gorm:"foreignKey:BranchID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// RefreshToken stores one record per issued refresh token, keyed by its jti.
// The raw token is never stored; only a hash is kept for comparison. The
// paired access token's jti is recorded so a bulk revocation can blacklist
// still-live access tokens too.
type RefreshToken struct {
	ID            string    `gorm:"type:varchar(64);primaryKey" json:"id"` // refresh token jti
	UserID        uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User          User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	TokenHash     string    `gorm:"type:varchar(128);not null" json:"-"`
	AccessTokenID string    `gorm:"type:varchar(64);not null" json:"-"` // jti of the access token issued alongside
	ExpiresAt     time.Time `gorm:"not null;index" json:"expires_at"`
	Revoked       bool      `gorm:"default:false" json:"revoked"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// RevokedToken blacklists a token id until the token's natural expiry, after
// which the record is swept.
type RevokedToken struct {
	TokenID   string    `gorm:"type:varchar(64);primaryKey" json:"token_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
