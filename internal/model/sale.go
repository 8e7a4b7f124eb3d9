package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment methods
const (
	PaymentCash     = "CASH"
	PaymentCard     = "CARD"
	PaymentTransfer = "TRANSFER"
)

// Sale is a completed point-of-sale transaction at one branch.
type Sale struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	BranchID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"branch_id"`
	Branch         Branch          `gorm:"foreignKey:BranchID" json:"-"`
	SaleCode       string          `gorm:"type:varchar(50);index" json:"sale_code"`
	CashierID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"cashier_id"`
	Cashier        User            `gorm:"foreignKey:CashierID" json:"-"`
	PatientID      *uuid.UUID      `gorm:"type:uuid;index" json:"patient_id"`
	PrescriptionID *uuid.UUID      `gorm:"type:uuid;index" json:"prescription_id"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	TaxRate        decimal.Decimal `gorm:"type:decimal(6,4);default:0" json:"tax_rate"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"tax_amount"`
	Total          decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total"`
	PaymentMethod  string          `gorm:"type:varchar(20);not null" json:"payment_method"`
	Items          []SaleItem      `gorm:"foreignKey:SaleID" json:"items"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

// SaleItem is a single medicine line on a sale. UnitPrice is captured at sale
// time; later price changes must not rewrite history.
type SaleItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SaleID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	MedicineID uuid.UUID       `gorm:"type:uuid;not null;index" json:"medicine_id"`
	Medicine   Medicine        `gorm:"foreignKey:MedicineID" json:"-"`
	Quantity   int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	LineTotal  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"line_total"`
}
