package repository

import (
	"context"

	"pharmacy/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PatientRepository defines the interface for data access of Patient entities.
// Every method is scoped by the pipeline-resolved tenant id; listing methods
// additionally take the accessible-branch filter set (nil = unrestricted).
type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Patient, error)
	List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, search string, page, limit int) ([]model.Patient, int64, error)
	Update(ctx context.Context, patient *model.Patient) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type patientRepository struct {
	db *gorm.DB
}

// NewPatientRepository returns a new instance of PatientRepository
func NewPatientRepository(db *gorm.DB) PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	return GetDB(ctx, r.db).Create(patient).Error
}

func (r *patientRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Patient, error) {
	var patient model.Patient
	if err := GetDB(ctx, r.db).First(&patient, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *patientRepository) List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, search string, page, limit int) ([]model.Patient, int64, error) {
	var patients []model.Patient
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Patient{}).Where("tenant_id = ?", tenantID)
	if branchIDs != nil {
		query = query.Where("branch_id IN ?", branchIDs)
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("full_name ILIKE ? OR phone ILIKE ? OR code ILIKE ?", like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("full_name").Offset(offset).Limit(limit).Find(&patients).Error; err != nil {
		return nil, 0, err
	}

	return patients, total, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	return GetDB(ctx, r.db).Save(patient).Error
}

func (r *patientRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&model.Patient{}).Error
}
