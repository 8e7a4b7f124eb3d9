package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"pharmacy/internal/auth"
	"pharmacy/internal/model"
	"pharmacy/internal/repository"
	"pharmacy/pkg/metrics"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type RegisterRequest struct {
	TenantName string `json:"tenant_name" binding:"required"`
	Subdomain  string `json:"subdomain" binding:"required"`
	Username   string `json:"username" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // access token lifetime in seconds
}

type MeResponse struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	TenantID     uuid.UUID  `json:"tenant_id"`
	BranchID     *uuid.UUID `json:"branch_id,omitempty"`
	BranchAccess []string   `json:"branch_access,omitempty"`
	Permissions  []string   `json:"permissions"`
}

// AuthService owns the token lifecycle: login, refresh rotation, logout and
// bulk invalidation. Verification of inbound request tokens lives in the
// middleware pipeline, not here.
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*TokenPairResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenPairResponse, error)
	Logout(ctx context.Context, principal *auth.Principal, refreshToken string) error
	LogoutAll(ctx context.Context, userID uuid.UUID) error
	ChangePassword(ctx context.Context, principal *auth.Principal, req ChangePasswordRequest) error
	Me(ctx context.Context, principal *auth.Principal) (*MeResponse, error)
}

type authService struct {
	users       repository.UserRepository
	refreshes   repository.RefreshTokenRepository
	revocations auth.RevocationStore
	codec       *auth.TokenCodec
	matrix      *auth.PermissionMatrix
	audit       AuditService
}

// NewAuthService returns a new instance of AuthService
func NewAuthService(
	users repository.UserRepository,
	refreshes repository.RefreshTokenRepository,
	revocations auth.RevocationStore,
	codec *auth.TokenCodec,
	matrix *auth.PermissionMatrix,
	audit AuditService,
) AuthService {
	return &authService{
		users:       users,
		refreshes:   refreshes,
		revocations: revocations,
		codec:       codec,
		matrix:      matrix,
		audit:       audit,
	}
}

// principalFromUser rebuilds the authorization attributes from storage. Used
// at login and on every refresh so role or grant changes take effect at the
// next token issuance, not only at the next login.
func (s *authService) principalFromUser(user *model.User) *auth.Principal {
	p := &auth.Principal{
		SubjectID:   user.ID,
		Role:        auth.Role(user.Role),
		Permissions: s.matrix.GrantsFor(auth.Role(user.Role)),
	}
	tenantID := user.TenantID
	p.TenantID = &tenantID
	p.BranchID = user.BranchID
	for _, grant := range user.BranchAccess {
		p.BranchAccess = append(p.BranchAccess, grant.BranchID)
	}
	return p
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*TokenPairResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Same error as a wrong password: never reveal which emails exist.
			return nil, auth.ErrInvalidCredential
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		s.recordLogin(user, model.ActionLoginFailed, false, "wrong password")
		return nil, auth.ErrInvalidCredential
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}
	s.recordLogin(user, model.ActionLogin, true, "")
	return pair, nil
}

// Refresh rotates the presented refresh token: it is revoked on use and a
// fresh pair is issued, so a stolen refresh token works at most once. The
// principal is re-derived from storage, never from the stale claims.
func (s *authService) Refresh(ctx context.Context, req RefreshRequest) (*TokenPairResponse, error) {
	claims, err := s.codec.Verify(req.RefreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, auth.ErrTokenRevoked
	}

	record, err := s.refreshes.GetByID(ctx, claims.TokenID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrTokenRevoked
		}
		return nil, err
	}
	if record.Revoked || hashToken(req.RefreshToken) != record.TokenHash {
		return nil, auth.ErrTokenRevoked
	}

	// Refresh tokens always carry the tenant claim; one without it is not
	// one of ours.
	if claims.TenantID == nil {
		return nil, auth.ErrTokenRevoked
	}
	user, err := s.users.GetByID(ctx, *claims.TenantID, record.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.retireRefreshToken(ctx, record); err != nil {
		return nil, err
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}
	userID := user.ID
	tenantID := user.TenantID
	s.audit.RecordAction(&tenantID, &userID, model.ActionTokenRefresh, claims.TokenID, nil)
	return pair, nil
}

// Logout revokes the current access token and, when presented, the paired
// refresh token.
func (s *authService) Logout(ctx context.Context, principal *auth.Principal, refreshToken string) error {
	if err := s.revocations.Revoke(ctx, principal.TokenID, time.Now().Add(auth.AccessTokenTTL)); err != nil {
		return err
	}
	metrics.TokenRevoked()

	if refreshToken != "" {
		if claims, err := s.codec.Verify(refreshToken, auth.TokenTypeRefresh); err == nil {
			if record, err := s.refreshes.GetByID(ctx, claims.TokenID); err == nil {
				if err := s.retireRefreshToken(ctx, record); err != nil {
					return err
				}
			}
		}
	}

	userID := principal.SubjectID
	s.audit.RecordAction(principal.TenantID, &userID, model.ActionLogout, principal.TokenID, nil)
	return nil
}

// LogoutAll revokes every live refresh token for the user together with the
// access tokens issued alongside them. Backs "logout everywhere" and runs
// automatically on password change.
func (s *authService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	tokens, err := s.refreshes.ActiveForUser(ctx, userID)
	if err != nil {
		return err
	}
	for i := range tokens {
		if err := s.retireRefreshToken(ctx, &tokens[i]); err != nil {
			return err
		}
	}
	s.audit.RecordAction(nil, &userID, model.ActionLogoutAll, "", map[string]int{"revoked": len(tokens)})
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, principal *auth.Principal, req ChangePasswordRequest) error {
	if principal.TenantID == nil {
		return auth.ErrInvalidCredential
	}
	user, err := s.users.GetByID(ctx, *principal.TenantID, principal.SubjectID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return auth.ErrInvalidCredential
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashed)
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	userID := user.ID
	tenantID := user.TenantID
	s.audit.RecordAction(&tenantID, &userID, model.ActionPasswordChange, "", nil)

	// Every outstanding session is invalidated; the client must log in again.
	return s.LogoutAll(ctx, user.ID)
}

func (s *authService) Me(ctx context.Context, principal *auth.Principal) (*MeResponse, error) {
	if principal.TenantID == nil {
		return nil, gorm.ErrRecordNotFound
	}
	user, err := s.users.GetByID(ctx, *principal.TenantID, principal.SubjectID)
	if err != nil {
		return nil, err
	}
	resp := &MeResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Role:        user.Role,
		TenantID:    user.TenantID,
		BranchID:    user.BranchID,
		Permissions: s.matrix.GrantsFor(auth.Role(user.Role)),
	}
	for _, grant := range user.BranchAccess {
		resp.BranchAccess = append(resp.BranchAccess, grant.BranchID.String())
	}
	return resp, nil
}

// issuePair signs a new access/refresh pair and persists the refresh record
// (jti-keyed, with a hash of the signed token and the paired access jti).
func (s *authService) issuePair(ctx context.Context, user *model.User) (*TokenPairResponse, error) {
	principal := s.principalFromUser(user)

	access, accessID, err := s.codec.IssueAccessToken(principal)
	if err != nil {
		return nil, err
	}
	refresh, refreshID, err := s.codec.IssueRefreshToken(principal)
	if err != nil {
		return nil, err
	}

	record := &model.RefreshToken{
		ID:            refreshID,
		UserID:        user.ID,
		TokenHash:     hashToken(refresh),
		AccessTokenID: accessID,
		ExpiresAt:     time.Now().Add(auth.RefreshTokenTTL),
	}
	if err := s.refreshes.Create(ctx, record); err != nil {
		return nil, err
	}

	metrics.TokenIssued(auth.TokenTypeAccess)
	metrics.TokenIssued(auth.TokenTypeRefresh)
	return &TokenPairResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(auth.AccessTokenTTL.Seconds()),
	}, nil
}

// retireRefreshToken marks the record revoked and blacklists both the refresh
// jti and the paired access jti until their natural expiry.
func (s *authService) retireRefreshToken(ctx context.Context, record *model.RefreshToken) error {
	if err := s.refreshes.MarkRevoked(ctx, record.ID); err != nil {
		return err
	}
	if err := s.revocations.Revoke(ctx, record.ID, record.ExpiresAt); err != nil {
		return err
	}
	// The paired access token expires within AccessTokenTTL of issuance;
	// its record creation time bounds that.
	accessExpiry := record.CreatedAt.Add(auth.AccessTokenTTL)
	if accessExpiry.Before(time.Now()) {
		return nil
	}
	if err := s.revocations.Revoke(ctx, record.AccessTokenID, accessExpiry); err != nil {
		return err
	}
	metrics.TokenRevoked()
	return nil
}

func (s *authService) recordLogin(user *model.User, action string, allowed bool, reason string) {
	userID := user.ID
	tenantID := user.TenantID
	s.audit.Record(&model.AuditLog{
		TenantID: &tenantID,
		UserID:   &userID,
		Action:   action,
		Allowed:  allowed,
		Reason:   reason,
	})
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
