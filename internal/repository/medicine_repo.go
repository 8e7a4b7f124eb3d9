package repository

import (
	"context"

	"pharmacy/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MedicineRepository defines the interface for data access of Medicine entities
type MedicineRepository interface {
	Create(ctx context.Context, medicine *model.Medicine) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Medicine, error)
	GetForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*model.Medicine, error)
	List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, search string, page, limit int) ([]model.Medicine, int64, error)
	ListLowStock(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID) ([]model.Medicine, error)
	ListNearExpiry(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, days int) ([]model.Medicine, error)
	Update(ctx context.Context, medicine *model.Medicine) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	RecordAdjustment(ctx context.Context, adj *model.StockAdjustment) error
}

type medicineRepository struct {
	db *gorm.DB
}

// NewMedicineRepository returns a new instance of MedicineRepository
func NewMedicineRepository(db *gorm.DB) MedicineRepository {
	return &medicineRepository{db: db}
}

func (r *medicineRepository) Create(ctx context.Context, medicine *model.Medicine) error {
	return GetDB(ctx, r.db).Create(medicine).Error
}

func (r *medicineRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Medicine, error) {
	var medicine model.Medicine
	if err := GetDB(ctx, r.db).First(&medicine, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		return nil, err
	}
	return &medicine, nil
}

// GetForUpdate locks the row for the duration of the surrounding transaction,
// serializing concurrent stock decrements on the same item.
func (r *medicineRepository) GetForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*model.Medicine, error) {
	var medicine model.Medicine
	err := GetDB(ctx, r.db).
		Raw("SELECT * FROM medicines WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL FOR UPDATE", id, tenantID).
		Scan(&medicine).Error
	if err != nil {
		return nil, err
	}
	if medicine.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &medicine, nil
}

func (r *medicineRepository) List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, search string, page, limit int) ([]model.Medicine, int64, error) {
	var medicines []model.Medicine
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Medicine{}).Where("tenant_id = ?", tenantID)
	if branchIDs != nil {
		query = query.Where("branch_id IN ?", branchIDs)
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("name ILIKE ? OR generic_name ILIKE ? OR barcode = ?", like, like, search)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("name").Offset(offset).Limit(limit).Find(&medicines).Error; err != nil {
		return nil, 0, err
	}

	return medicines, total, nil
}

func (r *medicineRepository) ListLowStock(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID) ([]model.Medicine, error) {
	var medicines []model.Medicine
	query := GetDB(ctx, r.db).
		Where("tenant_id = ? AND stock_qty <= reorder_level", tenantID)
	if branchIDs != nil {
		query = query.Where("branch_id IN ?", branchIDs)
	}
	if err := query.Order("stock_qty").Find(&medicines).Error; err != nil {
		return nil, err
	}
	return medicines, nil
}

func (r *medicineRepository) ListNearExpiry(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, days int) ([]model.Medicine, error) {
	var medicines []model.Medicine
	query := GetDB(ctx, r.db).
		Where("tenant_id = ? AND expiry_date IS NOT NULL AND expiry_date <= NOW() + make_interval(days => ?)", tenantID, days)
	if branchIDs != nil {
		query = query.Where("branch_id IN ?", branchIDs)
	}
	if err := query.Order("expiry_date").Find(&medicines).Error; err != nil {
		return nil, err
	}
	return medicines, nil
}

func (r *medicineRepository) Update(ctx context.Context, medicine *model.Medicine) error {
	return GetDB(ctx, r.db).Save(medicine).Error
}

func (r *medicineRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&model.Medicine{}).Error
}

func (r *medicineRepository) RecordAdjustment(ctx context.Context, adj *model.StockAdjustment) error {
	return GetDB(ctx, r.db).Create(adj).Error
}
