package service

import (
	"context"
	"errors"
	"time"

	"pharmacy/internal/auth"
	"pharmacy/internal/model"
	"pharmacy/internal/repository"

	"github.com/google/uuid"
)

type PrescriptionItemRequest struct {
	MedicineID   uuid.UUID `json:"medicine_id" binding:"required"`
	Dosage       string    `json:"dosage"`
	Quantity     int       `json:"quantity" binding:"required,gt=0"`
	Instructions string    `json:"instructions"`
}

type CreatePrescriptionRequest struct {
	PatientID  uuid.UUID                 `json:"patient_id" binding:"required"`
	Prescriber string                    `json:"prescriber"`
	Notes      string                    `json:"notes"`
	Items      []PrescriptionItemRequest `json:"items" binding:"required,min=1,dive"`
}

var (
	ErrNotPending = errors.New("service: prescription is not pending")
)

// PrescriptionService defines the interface for business logic related to
// Prescription.
type PrescriptionService interface {
	Create(ctx context.Context, tenantID, branchID uuid.UUID, req CreatePrescriptionRequest) (*model.Prescription, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Prescription, error)
	List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, status string, page, limit int) ([]model.Prescription, int64, error)
	Dispense(ctx context.Context, tenantID, id uuid.UUID, pharmacist *auth.Principal) (*model.Prescription, error)
	Cancel(ctx context.Context, tenantID, id uuid.UUID) (*model.Prescription, error)
}

type prescriptionService struct {
	repo      repository.PrescriptionRepository
	patients  repository.PatientRepository
	medicines repository.MedicineRepository
	tx        repository.TransactionManager
	audit     AuditService
}

// NewPrescriptionService returns a new instance of PrescriptionService
func NewPrescriptionService(
	repo repository.PrescriptionRepository,
	patients repository.PatientRepository,
	medicines repository.MedicineRepository,
	tx repository.TransactionManager,
	audit AuditService,
) PrescriptionService {
	return &prescriptionService{repo: repo, patients: patients, medicines: medicines, tx: tx, audit: audit}
}

func (s *prescriptionService) Create(ctx context.Context, tenantID, branchID uuid.UUID, req CreatePrescriptionRequest) (*model.Prescription, error) {
	if branchID == uuid.Nil {
		return nil, ErrBranchRequired
	}
	// The patient reference must live in the same tenant.
	if _, err := s.patients.GetByID(ctx, tenantID, req.PatientID); err != nil {
		return nil, err
	}

	rx := &model.Prescription{
		TenantID:   tenantID,
		BranchID:   branchID,
		PatientID:  req.PatientID,
		Prescriber: req.Prescriber,
		Status:     model.PrescriptionStatusPending,
		Notes:      req.Notes,
	}
	for _, item := range req.Items {
		rx.Items = append(rx.Items, model.PrescriptionItem{
			MedicineID:   item.MedicineID,
			Dosage:       item.Dosage,
			Quantity:     item.Quantity,
			Instructions: item.Instructions,
		})
	}
	if err := s.repo.Create(ctx, rx); err != nil {
		return nil, err
	}
	return rx, nil
}

func (s *prescriptionService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Prescription, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *prescriptionService) List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, status string, page, limit int) ([]model.Prescription, int64, error) {
	return s.repo.List(ctx, tenantID, branchIDs, status, page, limit)
}

// Dispense hands the medicines over: every item's stock is locked, checked
// and decremented in one transaction, then the prescription is marked
// dispensed. A prescription can only be dispensed once.
func (s *prescriptionService) Dispense(ctx context.Context, tenantID, id uuid.UUID, pharmacist *auth.Principal) (*model.Prescription, error) {
	var rx *model.Prescription
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		rx, err = s.repo.GetByID(txCtx, tenantID, id)
		if err != nil {
			return err
		}
		if rx.Status != model.PrescriptionStatusPending {
			return ErrNotPending
		}

		pharmacistID := pharmacist.SubjectID
		for _, item := range rx.Items {
			medicine, err := s.medicines.GetForUpdate(txCtx, tenantID, item.MedicineID)
			if err != nil {
				return err
			}
			if medicine.StockQty < item.Quantity {
				return ErrInsufficientStock
			}
			medicine.StockQty -= item.Quantity
			if err := s.medicines.Update(txCtx, medicine); err != nil {
				return err
			}
			adj := &model.StockAdjustment{
				TenantID:   tenantID,
				BranchID:   medicine.BranchID,
				MedicineID: medicine.ID,
				UserID:     &pharmacistID,
				Type:       model.AdjustmentSale,
				Quantity:   -item.Quantity,
				Reason:     "dispense " + rx.ID.String(),
			}
			if err := s.medicines.RecordAdjustment(txCtx, adj); err != nil {
				return err
			}
		}

		now := time.Now()
		rx.Status = model.PrescriptionStatusDispensed
		rx.DispensedBy = &pharmacistID
		rx.DispensedAt = &now
		return s.repo.Update(txCtx, rx)
	})
	if err != nil {
		return nil, err
	}

	pharmacistID := pharmacist.SubjectID
	s.audit.RecordAction(&tenantID, &pharmacistID, model.ActionDispenseRx, rx.ID.String(), nil)
	return rx, nil
}

func (s *prescriptionService) Cancel(ctx context.Context, tenantID, id uuid.UUID) (*model.Prescription, error) {
	rx, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if rx.Status != model.PrescriptionStatusPending {
		return nil, ErrNotPending
	}
	rx.Status = model.PrescriptionStatusCancelled
	if err := s.repo.Update(ctx, rx); err != nil {
		return nil, err
	}
	return rx, nil
}
