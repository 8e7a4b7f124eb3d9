package service

import (
	"context"
	"errors"
	"regexp"

	"pharmacy/internal/model"
	"pharmacy/internal/repository"

	"github.com/google/uuid"
)

type CreateTenantRequest struct {
	Name      string `json:"name" binding:"required"`
	Subdomain string `json:"subdomain" binding:"required"`
}

type UpdateTenantRequest struct {
	Name   string `json:"name"`
	Status string `json:"status" binding:"omitempty,oneof=active suspended"`
}

type CreateBranchRequest struct {
	Name    string `json:"name" binding:"required"`
	Code    string `json:"code" binding:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type UpdateBranchRequest struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	IsActive *bool  `json:"is_active"`
}

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// TenantService manages tenants and their branches. Tenant creation and
// suspension are SuperAdmin operations; branch management is tenant-scoped.
type TenantService interface {
	Create(ctx context.Context, req CreateTenantRequest) (*model.Tenant, error)
	List(ctx context.Context, page, limit int) ([]model.Tenant, int64, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateTenantRequest, actorID uuid.UUID) (*model.Tenant, error)

	CreateBranch(ctx context.Context, tenantID uuid.UUID, req CreateBranchRequest) (*model.Branch, error)
	GetBranch(ctx context.Context, tenantID, id uuid.UUID) (*model.Branch, error)
	ListBranches(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, page, limit int) ([]model.Branch, int64, error)
	UpdateBranch(ctx context.Context, tenantID, id uuid.UUID, req UpdateBranchRequest) (*model.Branch, error)
	DeleteBranch(ctx context.Context, tenantID, id uuid.UUID) error
}

type tenantService struct {
	tenants  repository.TenantRepository
	branches repository.BranchRepository
	audit    AuditService
}

// NewTenantService returns a new instance of TenantService
func NewTenantService(tenants repository.TenantRepository, branches repository.BranchRepository, audit AuditService) TenantService {
	return &tenantService{tenants: tenants, branches: branches, audit: audit}
}

func (s *tenantService) Create(ctx context.Context, req CreateTenantRequest) (*model.Tenant, error) {
	if !subdomainPattern.MatchString(req.Subdomain) {
		return nil, errors.New("invalid subdomain")
	}
	if _, err := s.tenants.FindBySubdomain(ctx, req.Subdomain); err == nil {
		return nil, errors.New("subdomain already taken")
	}
	t := &model.Tenant{
		Name:      req.Name,
		Subdomain: req.Subdomain,
		Status:    model.TenantStatusActive,
	}
	if err := s.tenants.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *tenantService) List(ctx context.Context, page, limit int) ([]model.Tenant, int64, error) {
	return s.tenants.List(ctx, page, limit)
}

func (s *tenantService) Update(ctx context.Context, id uuid.UUID, req UpdateTenantRequest, actorID uuid.UUID) (*model.Tenant, error) {
	t, err := s.tenants.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		t.Name = req.Name
	}
	if req.Status != "" && req.Status != t.Status {
		t.Status = req.Status
		if req.Status == model.TenantStatusSuspended {
			tenantID := t.ID
			s.audit.RecordAction(&tenantID, &actorID, model.ActionSuspendTenant, t.ID.String(), nil)
		}
	}
	if err := s.tenants.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *tenantService) CreateBranch(ctx context.Context, tenantID uuid.UUID, req CreateBranchRequest) (*model.Branch, error) {
	branch := &model.Branch{
		TenantID: tenantID,
		Name:     req.Name,
		Code:     req.Code,
		Address:  req.Address,
		Phone:    req.Phone,
		IsActive: true,
	}
	if err := s.branches.Create(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

func (s *tenantService) GetBranch(ctx context.Context, tenantID, id uuid.UUID) (*model.Branch, error) {
	return s.branches.GetByID(ctx, tenantID, id)
}

func (s *tenantService) ListBranches(ctx context.Context, tenantID uuid.UUID, branchIDs []uuid.UUID, page, limit int) ([]model.Branch, int64, error) {
	return s.branches.List(ctx, tenantID, branchIDs, page, limit)
}

func (s *tenantService) UpdateBranch(ctx context.Context, tenantID, id uuid.UUID, req UpdateBranchRequest) (*model.Branch, error) {
	branch, err := s.branches.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		branch.Name = req.Name
	}
	if req.Address != "" {
		branch.Address = req.Address
	}
	if req.Phone != "" {
		branch.Phone = req.Phone
	}
	if req.IsActive != nil {
		branch.IsActive = *req.IsActive
	}
	if err := s.branches.Update(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

func (s *tenantService) DeleteBranch(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.branches.Delete(ctx, tenantID, id)
}
