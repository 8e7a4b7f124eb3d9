package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Patient is a customer record scoped to a tenant and a branch.
type Patient struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	BranchID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"branch_id"`
	Branch      Branch         `gorm:"foreignKey:BranchID" json:"-"`
	Code        string         `gorm:"type:varchar(50);index" json:"code"` // human-facing patient number
	FullName    string         `gorm:"type:varchar(255);not null" json:"full_name"`
	DateOfBirth *time.Time     `json:"date_of_birth"`
	Gender      string         `gorm:"type:varchar(10)" json:"gender"`
	Phone       string         `gorm:"type:varchar(20);index" json:"phone"`
	Email       string         `gorm:"type:varchar(255)" json:"email"`
	Address     string         `gorm:"type:text" json:"address"`
	Allergies   string         `gorm:"type:text" json:"allergies"`
	Notes       string         `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
