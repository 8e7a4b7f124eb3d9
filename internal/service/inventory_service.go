package service

import (
	"context"
	"errors"
	"time"

	"pharmacy/internal/model"
	"pharmacy/internal/repository"
	"pharmacy/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateMedicineRequest struct {
	Barcode      string          `json:"barcode"`
	Name         string          `json:"name" binding:"required"`
	GenericName  string          `json:"generic_name"`
	Manufacturer string          `json:"manufacturer"`
	BatchNumber  string          `json:"batch_number"`
	ExpiryDate   *time.Time      `json:"expiry_date"`
	StockQty     int             `json:"stock_qty" binding:"gte=0"`
	ReorderLevel int             `json:"reorder_level" binding:"gte=0"`
	UnitPrice    decimal.Decimal `json:"unit_price" binding:"required"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	RequiresRx   bool            `json:"requires_rx"`
}

type UpdateMedicineRequest struct {
	Name         string          `json:"name"`
	GenericName  string          `json:"generic_name"`
	Manufacturer string          `json:"manufacturer"`
	ReorderLevel *int            `json:"reorder_level"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	RequiresRx   *bool           `json:"requires_rx"`
}

type AdjustStockRequest struct {
	Quantity int    `json:"quantity" binding:"required"` // signed delta
	Type     string `json:"type" binding:"required"`
	Reason   string `json:"reason"`
}

var (
	ErrInsufficientStock = errors.New("service: insufficient stock")
	ErrInvalidAdjustment = errors.New("service: invalid stock adjustment type")
)

// InventoryService defines the interface for business logic related to
// Medicine stock. Stock movements run inside a transaction with the row
// locked, so two concurrent sales cannot both take the last unit.
type InventoryService interface {
	Create(ctx context.Context, tenantID, branchID uuid.UUID, req CreateMedicineRequest) (*model.Medicine, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Medicine, error)
	List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, search string, page, limit int) ([]model.Medicine, int64, error)
	ListLowStock(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID) ([]model.Medicine, error)
	ListNearExpiry(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, days int) ([]model.Medicine, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateMedicineRequest) (*model.Medicine, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	AdjustStock(ctx context.Context, tenantID, id uuid.UUID, userID uuid.UUID, req AdjustStockRequest) (*model.Medicine, error)
}

type inventoryService struct {
	repo  repository.MedicineRepository
	tx    repository.TransactionManager
	hub   *websocket.Hub
	audit AuditService
}

// NewInventoryService returns a new instance of InventoryService
func NewInventoryService(repo repository.MedicineRepository, tx repository.TransactionManager, hub *websocket.Hub, audit AuditService) InventoryService {
	return &inventoryService{repo: repo, tx: tx, hub: hub, audit: audit}
}

func (s *inventoryService) Create(ctx context.Context, tenantID, branchID uuid.UUID, req CreateMedicineRequest) (*model.Medicine, error) {
	if branchID == uuid.Nil {
		return nil, ErrBranchRequired
	}
	medicine := &model.Medicine{
		TenantID:     tenantID,
		BranchID:     branchID,
		Barcode:      req.Barcode,
		Name:         req.Name,
		GenericName:  req.GenericName,
		Manufacturer: req.Manufacturer,
		BatchNumber:  req.BatchNumber,
		ExpiryDate:   req.ExpiryDate,
		StockQty:     req.StockQty,
		ReorderLevel: req.ReorderLevel,
		UnitPrice:    req.UnitPrice,
		CostPrice:    req.CostPrice,
		RequiresRx:   req.RequiresRx,
	}
	if err := s.repo.Create(ctx, medicine); err != nil {
		return nil, err
	}
	return medicine, nil
}

func (s *inventoryService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Medicine, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *inventoryService) List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, search string, page, limit int) ([]model.Medicine, int64, error) {
	return s.repo.List(ctx, tenantID, branchIDs, search, page, limit)
}

func (s *inventoryService) ListLowStock(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID) ([]model.Medicine, error) {
	return s.repo.ListLowStock(ctx, tenantID, branchIDs)
}

func (s *inventoryService) ListNearExpiry(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, days int) ([]model.Medicine, error) {
	return s.repo.ListNearExpiry(ctx, tenantID, branchIDs, days)
}

func (s *inventoryService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateMedicineRequest) (*model.Medicine, error) {
	medicine, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		medicine.Name = req.Name
	}
	if req.GenericName != "" {
		medicine.GenericName = req.GenericName
	}
	if req.Manufacturer != "" {
		medicine.Manufacturer = req.Manufacturer
	}
	if req.ReorderLevel != nil {
		medicine.ReorderLevel = *req.ReorderLevel
	}
	if !req.UnitPrice.IsZero() {
		medicine.UnitPrice = req.UnitPrice
	}
	if !req.CostPrice.IsZero() {
		medicine.CostPrice = req.CostPrice
	}
	if req.RequiresRx != nil {
		medicine.RequiresRx = *req.RequiresRx
	}
	if err := s.repo.Update(ctx, medicine); err != nil {
		return nil, err
	}
	return medicine, nil
}

func (s *inventoryService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.repo.Delete(ctx, tenantID, id)
}

// AdjustStock applies a signed stock delta inside a transaction, records the
// movement, and raises a low-stock alert when the item crosses its reorder
// level.
func (s *inventoryService) AdjustStock(ctx context.Context, tenantID, id uuid.UUID, userID uuid.UUID, req AdjustStockRequest) (*model.Medicine, error) {
	switch req.Type {
	case model.AdjustmentRestock, model.AdjustmentCorrection, model.AdjustmentExpiry:
	default:
		// SALE adjustments come from the sale flow, not this endpoint.
		return nil, ErrInvalidAdjustment
	}

	var updated *model.Medicine
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		medicine, err := s.repo.GetForUpdate(txCtx, tenantID, id)
		if err != nil {
			return err
		}
		if medicine.StockQty+req.Quantity < 0 {
			return ErrInsufficientStock
		}
		medicine.StockQty += req.Quantity
		if err := s.repo.Update(txCtx, medicine); err != nil {
			return err
		}
		adj := &model.StockAdjustment{
			TenantID:   tenantID,
			BranchID:   medicine.BranchID,
			MedicineID: medicine.ID,
			UserID:     &userID,
			Type:       req.Type,
			Quantity:   req.Quantity,
			Reason:     req.Reason,
		}
		if err := s.repo.RecordAdjustment(txCtx, adj); err != nil {
			return err
		}
		updated = medicine
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.RecordAction(&tenantID, &userID, model.ActionAdjustStock, id.String(),
		map[string]any{"type": req.Type, "quantity": req.Quantity})
	notifyLowStock(s.hub, updated)
	return updated, nil
}

// notifyLowStock pushes a tenant-scoped alert when the item is at or below
// its reorder level. Fire-and-forget.
func notifyLowStock(hub *websocket.Hub, medicine *model.Medicine) {
	if hub == nil || medicine == nil || !medicine.IsLowStock() {
		return
	}
	hub.Notify(websocket.Event{
		Type:     websocket.EventLowStock,
		TenantID: medicine.TenantID.String(),
		BranchID: medicine.BranchID.String(),
		Payload: map[string]any{
			"medicine_id":   medicine.ID,
			"name":          medicine.Name,
			"stock_qty":     medicine.StockQty,
			"reorder_level": medicine.ReorderLevel,
		},
	})
}
