package model

import (
	"time"

	"github.com/google/uuid"
)

// Prescription statuses
const (
	PrescriptionStatusPending   = "PENDING"
	PrescriptionStatusDispensed = "DISPENSED"
	PrescriptionStatusCancelled = "CANCELLED"
)

// Prescription records a prescriber's order for a patient, dispensed at a
// branch by a pharmacist.
type Prescription struct {
	ID           uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID     uuid.UUID          `gorm:"type:uuid;not null;index" json:"tenant_id"`
	BranchID     uuid.UUID          `gorm:"type:uuid;not null;index" json:"branch_id"`
	Branch       Branch             `gorm:"foreignKey:BranchID" json:"-"`
	PatientID    uuid.UUID          `gorm:"type:uuid;not null;index" json:"patient_id"`
	Patient      Patient            `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Prescriber   string             `gorm:"type:varchar(255)" json:"prescriber"`
	Status       string             `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	Notes        string             `gorm:"type:text" json:"notes"`
	DispensedBy  *uuid.UUID         `gorm:"type:uuid" json:"dispensed_by"`
	DispensedAt  *time.Time         `json:"dispensed_at"`
	Items        []PrescriptionItem `gorm:"foreignKey:PrescriptionID" json:"items"`
	CreatedAt    time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// PrescriptionItem is a single medicine line on a prescription.
type PrescriptionItem struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PrescriptionID uuid.UUID `gorm:"type:uuid;not null;index" json:"prescription_id"`
	MedicineID     uuid.UUID `gorm:"type:uuid;not null;index" json:"medicine_id"`
	Medicine       Medicine  `gorm:"foreignKey:MedicineID" json:"-"`
	Dosage         string    `gorm:"type:varchar(100)" json:"dosage"`
	Quantity       int       `gorm:"type:int;not null" json:"quantity"`
	Instructions   string    `gorm:"type:text" json:"instructions"`
}
