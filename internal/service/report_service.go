package service

import (
	"context"
	"time"

	"pharmacy/internal/model"
	"pharmacy/internal/repository"

	"github.com/google/uuid"
)

// ReportService aggregates tenant data into operational reports. Reports
// honor the same tenant and branch filters as the listings they summarize.
type ReportService interface {
	SalesByDay(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, from, to time.Time) ([]repository.DailySalesTotal, error)
	LowStock(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID) ([]model.Medicine, error)
	NearExpiry(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, days int) ([]model.Medicine, error)
}

type reportService struct {
	sales     repository.SaleRepository
	medicines repository.MedicineRepository
}

// NewReportService returns a new instance of ReportService
func NewReportService(sales repository.SaleRepository, medicines repository.MedicineRepository) ReportService {
	return &reportService{sales: sales, medicines: medicines}
}

func (s *reportService) SalesByDay(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, from, to time.Time) ([]repository.DailySalesTotal, error) {
	return s.sales.TotalsByDay(ctx, tenantID, branchIDs, from, to)
}

func (s *reportService) LowStock(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID) ([]model.Medicine, error) {
	return s.medicines.ListLowStock(ctx, tenantID, branchIDs)
}

func (s *reportService) NearExpiry(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, days int) ([]model.Medicine, error) {
	return s.medicines.ListNearExpiry(ctx, tenantID, branchIDs, days)
}
