package service

import (
	"context"
	"errors"

	"pharmacy/internal/auth"
	"pharmacy/internal/model"
	"pharmacy/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Username string     `json:"username" binding:"required"`
	Email    string     `json:"email" binding:"required,email"`
	Phone    string     `json:"phone"`
	Password string     `json:"password" binding:"required,min=8"`
	Role     string     `json:"role" binding:"required"`
	BranchID *uuid.UUID `json:"branch_id"`
}

type UpdateUserRequest struct {
	Username string     `json:"username"`
	Email    string     `json:"email" binding:"omitempty,email"`
	Phone    string     `json:"phone"`
	Role     string     `json:"role"`
	BranchID *uuid.UUID `json:"branch_id"`
}

var ErrInvalidRole = errors.New("service: invalid role")

// UserService defines the interface for business logic related to User.
// Every method takes the pipeline-resolved tenant id.
type UserService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req CreateUserRequest) (*model.User, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.User, error)
	List(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]model.User, int64, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateUserRequest) (*model.User, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID, actor *auth.Principal) error
	GrantBranchAccess(ctx context.Context, tenantID, userID, branchID uuid.UUID, actor *auth.Principal) error
	RevokeBranchAccess(ctx context.Context, tenantID, userID, branchID uuid.UUID, actor *auth.Principal) error
}

type userService struct {
	repo     repository.UserRepository
	branches repository.BranchRepository
	auth     AuthService
	audit    AuditService
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, branches repository.BranchRepository, authSvc AuthService, audit AuditService) UserService {
	return &userService{repo: repo, branches: branches, auth: authSvc, audit: audit}
}

func (s *userService) Create(ctx context.Context, tenantID uuid.UUID, req CreateUserRequest) (*model.User, error) {
	if !auth.ValidRole(req.Role) || req.Role == string(auth.RoleSuperAdmin) {
		// SuperAdmin accounts are provisioned out of band, never via the API.
		return nil, ErrInvalidRole
	}

	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, errors.New("email already exists")
	}

	if req.BranchID != nil {
		if _, err := s.branches.GetByID(ctx, tenantID, *req.BranchID); err != nil {
			return nil, errors.New("branch not found")
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		TenantID: tenantID,
		BranchID: req.BranchID,
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: string(hashed),
		Role:     req.Role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.audit.RecordAction(&tenantID, nil, model.ActionCreateUser, user.ID.String(), map[string]string{"role": user.Role})
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*model.User, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *userService) List(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]model.User, int64, error) {
	return s.repo.List(ctx, tenantID, page, limit)
}

func (s *userService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateUserRequest) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	roleChanged := false
	if req.Role != "" && req.Role != user.Role {
		if !auth.ValidRole(req.Role) || req.Role == string(auth.RoleSuperAdmin) {
			return nil, ErrInvalidRole
		}
		user.Role = req.Role
		roleChanged = true
	}
	if req.BranchID != nil {
		if _, err := s.branches.GetByID(ctx, tenantID, *req.BranchID); err != nil {
			return nil, errors.New("branch not found")
		}
		user.BranchID = req.BranchID
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	// Outstanding tokens still carry the old role; force re-issuance.
	if roleChanged {
		if err := s.auth.LogoutAll(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	s.audit.RecordAction(&tenantID, nil, model.ActionUpdateUser, user.ID.String(), nil)
	return user, nil
}

func (s *userService) Delete(ctx context.Context, tenantID, id uuid.UUID, actor *auth.Principal) error {
	if _, err := s.repo.GetByID(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.auth.LogoutAll(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	actorID := actor.SubjectID
	s.audit.RecordAction(&tenantID, &actorID, model.ActionDeleteUser, id.String(), nil)
	return nil
}

func (s *userService) GrantBranchAccess(ctx context.Context, tenantID, userID, branchID uuid.UUID, actor *auth.Principal) error {
	if _, err := s.repo.GetByID(ctx, tenantID, userID); err != nil {
		return err
	}
	if _, err := s.branches.GetByID(ctx, tenantID, branchID); err != nil {
		return err
	}
	if err := s.repo.GrantBranchAccess(ctx, userID, branchID); err != nil {
		return err
	}
	actorID := actor.SubjectID
	s.audit.RecordAction(&tenantID, &actorID, model.ActionGrantBranchAccess, userID.String(),
		map[string]string{"branch_id": branchID.String()})
	// Tokens issued before the grant lack the new branch in their access
	// list; the user picks it up at the next refresh.
	return nil
}

func (s *userService) RevokeBranchAccess(ctx context.Context, tenantID, userID, branchID uuid.UUID, actor *auth.Principal) error {
	if _, err := s.repo.GetByID(ctx, tenantID, userID); err != nil {
		return err
	}
	if err := s.repo.RevokeBranchAccess(ctx, userID, branchID); err != nil {
		return err
	}
	// A live access token still lists the branch for up to 15 minutes;
	// revoking the user's sessions closes that window immediately.
	if err := s.auth.LogoutAll(ctx, userID); err != nil {
		return err
	}
	actorID := actor.SubjectID
	s.audit.RecordAction(&tenantID, &actorID, model.ActionRevokeBranchAccess, userID.String(),
		map[string]string{"branch_id": branchID.String()})
	return nil
}
