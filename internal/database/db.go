package database

import (
	"pharmacy/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.Tenant{},
		&model.Branch{},
		&model.User{},
		&model.UserBranchAccess{},
		&model.RefreshToken{},
		&model.RevokedToken{},
		&model.Patient{},
		&model.Medicine{},
		&model.StockAdjustment{},
		&model.Prescription{},
		&model.PrescriptionItem{},
		&model.Sale{},
		&model.SaleItem{},
		&model.AuditLog{},
	)
	if err != nil {
		logrus.WithError(err).Warn("auto-migrate failed")
	}

	return db, nil
}
