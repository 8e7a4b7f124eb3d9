package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Medicine is a stocked inventory item at one branch. The same product at two
// branches is two rows with independent stock levels.
type Medicine struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	BranchID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"branch_id"`
	Branch       Branch          `gorm:"foreignKey:BranchID" json:"-"`
	Barcode      string          `gorm:"type:varchar(100);index" json:"barcode"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	GenericName  string          `gorm:"type:varchar(255)" json:"generic_name"`
	Manufacturer string          `gorm:"type:varchar(255)" json:"manufacturer"`
	BatchNumber  string          `gorm:"type:varchar(100)" json:"batch_number"`
	ExpiryDate   *time.Time      `gorm:"index" json:"expiry_date"`
	StockQty     int             `gorm:"type:int;default:0;not null" json:"stock_qty"`
	ReorderLevel int             `gorm:"type:int;default:10;not null" json:"reorder_level"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"cost_price"`
	RequiresRx   bool            `gorm:"default:false" json:"requires_rx"` // dispensable only against a prescription
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

// IsLowStock reports whether the item is at or below its reorder level.
func (m *Medicine) IsLowStock() bool {
	return m.StockQty <= m.ReorderLevel
}

// StockAdjustment types
const (
	AdjustmentRestock    = "RESTOCK"
	AdjustmentSale       = "SALE"
	AdjustmentCorrection = "CORRECTION"
	AdjustmentExpiry     = "EXPIRY_WRITE_OFF"
)

// StockAdjustment records every change to a medicine's stock quantity.
type StockAdjustment struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	BranchID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"branch_id"`
	MedicineID uuid.UUID  `gorm:"type:uuid;not null;index" json:"medicine_id"`
	Medicine   Medicine   `gorm:"foreignKey:MedicineID" json:"-"`
	UserID     *uuid.UUID `gorm:"type:uuid" json:"user_id"`
	Type       string     `gorm:"type:varchar(30);not null" json:"type"`
	Quantity   int        `gorm:"type:int;not null" json:"quantity"` // signed delta
	Reason     string     `gorm:"type:text" json:"reason"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}
