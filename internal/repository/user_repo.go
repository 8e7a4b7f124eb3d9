package repository

import (
	"context"

	"pharmacy/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository defines the interface for data access of User entities
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]model.User, int64, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	GrantBranchAccess(ctx context.Context, userID, branchID uuid.UUID) error
	RevokeBranchAccess(ctx context.Context, userID, branchID uuid.UUID) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := GetDB(ctx, r.db).Preload("BranchAccess").
		First(&user, "id = ? AND tenant_id = ?", id, tenantID).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail is unscoped by tenant: it backs login, which runs before tenant
// resolution. Emails are globally unique.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := GetDB(ctx, r.db).Preload("BranchAccess").
		First(&user, "email = ?", email).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	query := GetDB(ctx, r.db).Model(&model.User{}).Where("tenant_id = ?", tenantID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Preload("BranchAccess").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Save(user).Error
}

func (r *userRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&model.User{}).Error
}

func (r *userRepository) GrantBranchAccess(ctx context.Context, userID, branchID uuid.UUID) error {
	grant := model.UserBranchAccess{UserID: userID, BranchID: branchID}
	return GetDB(ctx, r.db).Where("user_id = ? AND branch_id = ?", userID, branchID).
		FirstOrCreate(&grant).Error
}

func (r *userRepository) RevokeBranchAccess(ctx context.Context, userID, branchID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("user_id = ? AND branch_id = ?", userID, branchID).
		Delete(&model.UserBranchAccess{}).Error
}
