package repository

import (
	"context"

	"pharmacy/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PrescriptionRepository defines the interface for data access of Prescription entities
type PrescriptionRepository interface {
	Create(ctx context.Context, rx *model.Prescription) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Prescription, error)
	List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, status string, page, limit int) ([]model.Prescription, int64, error)
	Update(ctx context.Context, rx *model.Prescription) error
}

type prescriptionRepository struct {
	db *gorm.DB
}

// NewPrescriptionRepository returns a new instance of PrescriptionRepository
func NewPrescriptionRepository(db *gorm.DB) PrescriptionRepository {
	return &prescriptionRepository{db: db}
}

func (r *prescriptionRepository) Create(ctx context.Context, rx *model.Prescription) error {
	return GetDB(ctx, r.db).Create(rx).Error
}

func (r *prescriptionRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Prescription, error) {
	var rx model.Prescription
	err := GetDB(ctx, r.db).Preload("Items").Preload("Patient").
		First(&rx, "id = ? AND tenant_id = ?", id, tenantID).Error
	if err != nil {
		return nil, err
	}
	return &rx, nil
}

func (r *prescriptionRepository) List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, status string, page, limit int) ([]model.Prescription, int64, error) {
	var prescriptions []model.Prescription
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Prescription{}).Where("tenant_id = ?", tenantID)
	if branchIDs != nil {
		query = query.Where("branch_id IN ?", branchIDs)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Preload("Items").Preload("Patient").
		Order("created_at desc").Offset(offset).Limit(limit).Find(&prescriptions).Error
	if err != nil {
		return nil, 0, err
	}

	return prescriptions, total, nil
}

func (r *prescriptionRepository) Update(ctx context.Context, rx *model.Prescription) error {
	return GetDB(ctx, r.db).Save(rx).Error
}
