package repository

import (
	"context"

	"pharmacy/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BranchRepository defines the interface for data access of Branch entities
type BranchRepository interface {
	Create(ctx context.Context, branch *model.Branch) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Branch, error)
	List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, page, limit int) ([]model.Branch, int64, error)
	Update(ctx context.Context, branch *model.Branch) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type branchRepository struct {
	db *gorm.DB
}

// NewBranchRepository returns a new instance of BranchRepository
func NewBranchRepository(db *gorm.DB) BranchRepository {
	return &branchRepository{db: db}
}

func (r *branchRepository) Create(ctx context.Context, branch *model.Branch) error {
	return GetDB(ctx, r.db).Create(branch).Error
}

func (r *branchRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Branch, error) {
	var branch model.Branch
	if err := GetDB(ctx, r.db).First(&branch, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

// List returns the tenant's branches. A non-nil branchIDs set restricts the
// result to accessible branches (principals without cross-branch access).
func (r *branchRepository) List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, page, limit int) ([]model.Branch, int64, error) {
	var branches []model.Branch
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Branch{}).Where("tenant_id = ?", tenantID)
	if branchIDs != nil {
		query = query.Where("id IN ?", branchIDs)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Offset(offset).Limit(limit).Find(&branches).Error; err != nil {
		return nil, 0, err
	}

	return branches, total, nil
}

func (r *branchRepository) Update(ctx context.Context, branch *model.Branch) error {
	return GetDB(ctx, r.db).Save(branch).Error
}

func (r *branchRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&model.Branch{}).Error
}
