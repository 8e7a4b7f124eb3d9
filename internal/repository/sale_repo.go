package repository

import (
	"context"
	"time"

	"pharmacy/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DailySalesTotal is one row of the sales-by-day report.
type DailySalesTotal struct {
	Day      time.Time       `json:"day"`
	BranchID uuid.UUID       `json:"branch_id"`
	Count    int64           `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

// SaleRepository defines the interface for data access of Sale entities
type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, from, to *time.Time, page, limit int) ([]model.Sale, int64, error)
	TotalsByDay(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, from, to time.Time) ([]DailySalesTotal, error)
}

type saleRepository struct {
	db *gorm.DB
}

// NewSaleRepository returns a new instance of SaleRepository
func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Create(sale).Error
}

func (r *saleRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := GetDB(ctx, r.db).Preload("Items").
		First(&sale, "id = ? AND tenant_id = ?", id, tenantID).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) List(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, from, to *time.Time, page, limit int) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Sale{}).Where("tenant_id = ?", tenantID)
	if branchIDs != nil {
		query = query.Where("branch_id IN ?", branchIDs)
	}
	if from != nil {
		query = query.Where("created_at >= ?", from)
	}
	if to != nil {
		query = query.Where("created_at < ?", to)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Preload("Items").Order("created_at desc").Offset(offset).Limit(limit).Find(&sales).Error; err != nil {
		return nil, 0, err
	}

	return sales, total, nil
}

func (r *saleRepository) TotalsByDay(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, from, to time.Time) ([]DailySalesTotal, error) {
	var rows []DailySalesTotal

	query := GetDB(ctx, r.db).Model(&model.Sale{}).
		Select("date_trunc('day', created_at) AS day, branch_id, COUNT(*) AS count, SUM(total) AS total").
		Where("tenant_id = ? AND created_at >= ? AND created_at < ?", tenantID, from, to)
	if branchIDs != nil {
		query = query.Where("branch_id IN ?", branchIDs)
	}

	err := query.Group("day, branch_id").Order("day").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
