package service

import (
	"context"
	"errors"
	"time"

	"pharmacy/internal/model"
	"pharmacy/internal/repository"

	"github.com/google/uuid"
)

type CreatePatientRequest struct {
	Code        string     `json:"code"`
	FullName    string     `json:"full_name" binding:"required"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Gender      string     `json:"gender"`
	Phone       string     `json:"phone"`
	Email       string     `json:"email" binding:"omitempty,email"`
	Address     string     `json:"address"`
	Allergies   string     `json:"allergies"`
	Notes       string     `json:"notes"`
}

type UpdatePatientRequest struct {
	FullName  string `json:"full_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email" binding:"omitempty,email"`
	Address   string `json:"address"`
	Allergies string `json:"allergies"`
	Notes     string `json:"notes"`
}

// ErrBranchRequired is returned when a create operation has no branch to
// attach the record to (principal without a home branch and no explicit
// branch target).
var ErrBranchRequired = errors.New("service: branch required")

// PatientService defines the interface for business logic related to Patient.
// tenantID is always the pipeline-resolved value; branchIDs is the
// accessible-branch filter for listings (nil = unrestricted).
type PatientService interface {
	Create(ctx context.Context, tenantID, branchID uuid.UUID, req CreatePatientRequest) (*model.Patient, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Patient, error)
	List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, search string, page, limit int) ([]model.Patient, int64, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req UpdatePatientRequest) (*model.Patient, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type patientService struct {
	repo repository.PatientRepository
}

// NewPatientService returns a new instance of PatientService
func NewPatientService(repo repository.PatientRepository) PatientService {
	return &patientService{repo: repo}
}

func (s *patientService) Create(ctx context.Context, tenantID, branchID uuid.UUID, req CreatePatientRequest) (*model.Patient, error) {
	if branchID == uuid.Nil {
		return nil, ErrBranchRequired
	}
	patient := &model.Patient{
		TenantID:    tenantID,
		BranchID:    branchID,
		Code:        req.Code,
		FullName:    req.FullName,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
		Phone:       req.Phone,
		Email:       req.Email,
		Address:     req.Address,
		Allergies:   req.Allergies,
		Notes:       req.Notes,
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

func (s *patientService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Patient, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *patientService) List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, search string, page, limit int) ([]model.Patient, int64, error) {
	return s.repo.List(ctx, tenantID, branchIDs, search, page, limit)
}

func (s *patientService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if req.FullName != "" {
		patient.FullName = req.FullName
	}
	if req.Phone != "" {
		patient.Phone = req.Phone
	}
	if req.Email != "" {
		patient.Email = req.Email
	}
	if req.Address != "" {
		patient.Address = req.Address
	}
	if req.Allergies != "" {
		patient.Allergies = req.Allergies
	}
	if req.Notes != "" {
		patient.Notes = req.Notes
	}
	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

func (s *patientService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.repo.Delete(ctx, tenantID, id)
}
