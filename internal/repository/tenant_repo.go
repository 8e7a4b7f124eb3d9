package repository

import (
	"context"
	"errors"

	"pharmacy/internal/model"
	"pharmacy/internal/tenant"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantRepository defines the interface for data access of Tenant entities.
// It satisfies tenant.Store for the resolver.
type TenantRepository interface {
	Create(ctx context.Context, t *model.Tenant) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	FindBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error)
	Update(ctx context.Context, t *model.Tenant) error
	List(ctx context.Context, page, limit int) ([]model.Tenant, int64, error)
}

type tenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository returns a new instance of TenantRepository.
// Tenant lookups intentionally use the root DB, never the request-scoped
// connection: tenant resolution runs before any tenant context exists.
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) Create(ctx context.Context, t *model.Tenant) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *tenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	var t model.Tenant
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tenant.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *tenantRepository) FindBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error) {
	var t model.Tenant
	if err := r.db.WithContext(ctx).First(&t, "subdomain = ?", subdomain).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tenant.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *tenantRepository) Update(ctx context.Context, t *model.Tenant) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *tenantRepository) List(ctx context.Context, page, limit int) ([]model.Tenant, int64, error) {
	var tenants []model.Tenant
	var total int64

	if err := r.db.WithContext(ctx).Model(&model.Tenant{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).Offset(offset).Limit(limit).Find(&tenants).Error; err != nil {
		return nil, 0, err
	}

	return tenants, total, nil
}
