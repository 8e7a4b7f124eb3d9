package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pharmacy/internal/auth"
	"pharmacy/internal/model"
	"pharmacy/internal/repository"
	"pharmacy/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SaleItemRequest struct {
	MedicineID uuid.UUID `json:"medicine_id" binding:"required"`
	Quantity   int       `json:"quantity" binding:"required,gt=0"`
}

type CreateSaleRequest struct {
	PatientID      *uuid.UUID        `json:"patient_id"`
	PrescriptionID *uuid.UUID        `json:"prescription_id"`
	PaymentMethod  string            `json:"payment_method" binding:"required,oneof=CASH CARD TRANSFER"`
	TaxRate        decimal.Decimal   `json:"tax_rate"`
	Items          []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
}

var ErrRxRequired = errors.New("service: medicine requires a prescription")

// SaleService defines the interface for business logic related to Sale.
type SaleService interface {
	Create(ctx context.Context, tenantID, branchID uuid.UUID, cashier *auth.Principal, req CreateSaleRequest) (*model.Sale, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, from, to *time.Time, page, limit int) ([]model.Sale, int64, error)
}

type saleService struct {
	sales     repository.SaleRepository
	medicines repository.MedicineRepository
	tx        repository.TransactionManager
	hub       *websocket.Hub
	audit     AuditService
}

// NewSaleService returns a new instance of SaleService
func NewSaleService(
	sales repository.SaleRepository,
	medicines repository.MedicineRepository,
	tx repository.TransactionManager,
	hub *websocket.Hub,
	audit AuditService,
) SaleService {
	return &saleService{sales: sales, medicines: medicines, tx: tx, hub: hub, audit: audit}
}

// Create records a point-of-sale transaction. Each sold item's stock row is
// locked, checked and decremented in one transaction; prices are captured
// from the current catalog at sale time.
func (s *saleService) Create(ctx context.Context, tenantID, branchID uuid.UUID, cashier *auth.Principal, req CreateSaleRequest) (*model.Sale, error) {
	if branchID == uuid.Nil {
		return nil, ErrBranchRequired
	}

	sale := &model.Sale{
		TenantID:       tenantID,
		BranchID:       branchID,
		SaleCode:       newSaleCode(),
		CashierID:      cashier.SubjectID,
		PatientID:      req.PatientID,
		PrescriptionID: req.PrescriptionID,
		TaxRate:        req.TaxRate,
		PaymentMethod:  req.PaymentMethod,
	}

	var lowStock []*model.Medicine
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		subtotal := decimal.Zero
		for _, item := range req.Items {
			medicine, err := s.medicines.GetForUpdate(txCtx, tenantID, item.MedicineID)
			if err != nil {
				return err
			}
			if medicine.RequiresRx && req.PrescriptionID == nil {
				return ErrRxRequired
			}
			if medicine.StockQty < item.Quantity {
				return ErrInsufficientStock
			}

			lineTotal := medicine.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			sale.Items = append(sale.Items, model.SaleItem{
				MedicineID: medicine.ID,
				Quantity:   item.Quantity,
				UnitPrice:  medicine.UnitPrice,
				LineTotal:  lineTotal,
			})
			subtotal = subtotal.Add(lineTotal)

			medicine.StockQty -= item.Quantity
			if err := s.medicines.Update(txCtx, medicine); err != nil {
				return err
			}
			cashierID := cashier.SubjectID
			adj := &model.StockAdjustment{
				TenantID:   tenantID,
				BranchID:   branchID,
				MedicineID: medicine.ID,
				UserID:     &cashierID,
				Type:       model.AdjustmentSale,
				Quantity:   -item.Quantity,
			}
			if err := s.medicines.RecordAdjustment(txCtx, adj); err != nil {
				return err
			}
			if medicine.IsLowStock() {
				lowStock = append(lowStock, medicine)
			}
		}

		sale.Subtotal = subtotal
		sale.TaxAmount = subtotal.Mul(sale.TaxRate).Round(2)
		sale.Total = sale.Subtotal.Add(sale.TaxAmount)
		return s.sales.Create(txCtx, sale)
	})
	if err != nil {
		return nil, err
	}

	cashierID := cashier.SubjectID
	s.audit.RecordAction(&tenantID, &cashierID, model.ActionCreateSale, sale.ID.String(),
		map[string]any{"total": sale.Total, "items": len(sale.Items)})

	if s.hub != nil {
		s.hub.Notify(websocket.Event{
			Type:     websocket.EventSaleCreated,
			TenantID: tenantID.String(),
			BranchID: branchID.String(),
			Payload:  map[string]any{"sale_id": sale.ID, "total": sale.Total},
		})
	}
	for _, m := range lowStock {
		notifyLowStock(s.hub, m)
	}
	return sale, nil
}

func (s *saleService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Sale, error) {
	return s.sales.GetByID(ctx, tenantID, id)
}

func (s *saleService) List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, from, to *time.Time, page, limit int) ([]model.Sale, int64, error) {
	return s.sales.List(ctx, tenantID, branchIDs, from, to, page, limit)
}

// newSaleCode builds the human-facing receipt number.
func newSaleCode() string {
	return fmt.Sprintf("S-%s-%s", time.Now().Format("20060102"), uuid.NewString()[:8])
}
