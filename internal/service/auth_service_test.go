package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pharmacy/internal/auth"
	"pharmacy/internal/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type memUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok || u.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) List(context.Context, uuid.UUID, int, int) ([]model.User, int64, error) {
	return nil, 0, nil
}

func (r *memUserRepo) Update(_ context.Context, user *model.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, _, id uuid.UUID) error {
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) GrantBranchAccess(context.Context, uuid.UUID, uuid.UUID) error  { return nil }
func (r *memUserRepo) RevokeBranchAccess(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type memRefreshRepo struct {
	records map[string]*model.RefreshToken
}

func (r *memRefreshRepo) Create(_ context.Context, token *model.RefreshToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	cp := *token
	r.records[token.ID] = &cp
	return nil
}

func (r *memRefreshRepo) GetByID(_ context.Context, id string) (*model.RefreshToken, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rec, nil
}

func (r *memRefreshRepo) MarkRevoked(_ context.Context, id string) error {
	rec, ok := r.records[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	rec.Revoked = true
	return nil
}

func (r *memRefreshRepo) ActiveForUser(_ context.Context, userID uuid.UUID) ([]model.RefreshToken, error) {
	var out []model.RefreshToken
	for _, rec := range r.records {
		if rec.UserID == userID && !rec.Revoked && rec.ExpiresAt.After(time.Now()) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *memRefreshRepo) DeleteExpired(context.Context) error {
	for id, rec := range r.records {
		if rec.ExpiresAt.Before(time.Now()) {
			delete(r.records, id)
		}
	}
	return nil
}

type noopAudit struct{}

func (noopAudit) Record(*model.AuditLog)                                  {}
func (noopAudit) RecordAction(*uuid.UUID, *uuid.UUID, string, string, any) {}
func (noopAudit) List(context.Context, uuid.UUID, string, int, int) ([]model.AuditLog, int64, error) {
	return nil, 0, nil
}

type authFixture struct {
	svc         AuthService
	codec       *auth.TokenCodec
	revocations *auth.MemoryRevocationStore
	refreshes   *memRefreshRepo
	users       *memUserRepo
	user        *model.User
}

const testPassword = "correct-horse-battery"

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	key, err := auth.GenerateDevKey()
	if err != nil {
		t.Fatalf("GenerateDevKey: %v", err)
	}
	codec, err := auth.NewTokenCodec("test-issuer", "k1", key)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	branchID := uuid.New()
	user := &model.User{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		BranchID: &branchID,
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Password: string(hash),
		Role:     string(auth.RoleCashier),
	}

	users := &memUserRepo{users: map[uuid.UUID]*model.User{user.ID: user}}
	refreshes := &memRefreshRepo{records: map[string]*model.RefreshToken{}}
	revocations := auth.NewMemoryRevocationStore()

	svc := NewAuthService(users, refreshes, revocations, codec, auth.NewPermissionMatrix(), noopAudit{})
	return &authFixture{
		svc:         svc,
		codec:       codec,
		revocations: revocations,
		refreshes:   refreshes,
		users:       users,
		user:        user,
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	cases := []LoginRequest{
		{Email: "nobody@example.com", Password: testPassword},
		{Email: f.user.Email, Password: "wrong"},
	}
	for _, req := range cases {
		if _, err := f.svc.Login(ctx, req); !errors.Is(err, auth.ErrInvalidCredential) {
			t.Fatalf("Login(%s) err = %v, want ErrInvalidCredential", req.Email, err)
		}
	}
}

func TestLoginIssuesVerifiablePair(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, LoginRequest{Email: f.user.Email, Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.ExpiresIn != int64(auth.AccessTokenTTL.Seconds()) {
		t.Errorf("ExpiresIn = %d", pair.ExpiresIn)
	}

	p, err := f.codec.Verify(pair.AccessToken, auth.TokenTypeAccess)
	if err != nil {
		t.Fatalf("Verify(access): %v", err)
	}
	if p.SubjectID != f.user.ID {
		t.Errorf("subject = %s, want %s", p.SubjectID, f.user.ID)
	}
	if p.TenantID == nil || *p.TenantID != f.user.TenantID {
		t.Errorf("tenant claim missing or wrong: %v", p.TenantID)
	}
	if p.Role != auth.RoleCashier {
		t.Errorf("role = %s", p.Role)
	}
	if !auth.MatchPatterns(p.Permissions, "sales:create") {
		t.Error("token permissions are missing the cashier grants")
	}

	// An access token must never be accepted where a refresh token is required.
	if _, err := f.codec.Verify(pair.AccessToken, auth.TokenTypeRefresh); !errors.Is(err, auth.ErrWrongTokenType) {
		t.Fatalf("access-as-refresh err = %v, want ErrWrongTokenType", err)
	}

	rp, err := f.codec.Verify(pair.RefreshToken, auth.TokenTypeRefresh)
	if err != nil {
		t.Fatalf("Verify(refresh): %v", err)
	}
	if _, ok := f.refreshes.records[rp.TokenID]; !ok {
		t.Error("refresh token record was not persisted")
	}
}

func TestRefreshRotatesTheToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, LoginRequest{Email: f.user.Email, Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	oldAccess, err := f.codec.Verify(pair.AccessToken, auth.TokenTypeAccess)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	next, err := f.svc.Refresh(ctx, RefreshRequest{RefreshToken: pair.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.AccessToken == pair.AccessToken || next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh returned the same tokens instead of a new pair")
	}
	if _, err := f.codec.Verify(next.AccessToken, auth.TokenTypeAccess); err != nil {
		t.Fatalf("new access token does not verify: %v", err)
	}

	// The used refresh token is single-use.
	if _, err := f.svc.Refresh(ctx, RefreshRequest{RefreshToken: pair.RefreshToken}); !errors.Is(err, auth.ErrTokenRevoked) {
		t.Fatalf("reuse err = %v, want ErrTokenRevoked", err)
	}

	// The access token issued alongside it is blacklisted too.
	revoked, err := f.revocations.IsRevoked(ctx, oldAccess.TokenID)
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if !revoked {
		t.Fatal("paired access token was not revoked on rotation")
	}

	// The rotated-in refresh token still works.
	if _, err := f.svc.Refresh(ctx, RefreshRequest{RefreshToken: next.RefreshToken}); err != nil {
		t.Fatalf("rotated refresh token was rejected: %v", err)
	}
}

func TestRefreshReflectsRoleChange(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, LoginRequest{Email: f.user.Email, Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	f.user.Role = string(auth.RolePharmacist)

	next, err := f.svc.Refresh(ctx, RefreshRequest{RefreshToken: pair.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	p, err := f.codec.Verify(next.AccessToken, auth.TokenTypeAccess)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Role != auth.RolePharmacist {
		t.Fatalf("role after refresh = %s, want pharmacist", p.Role)
	}
	if !auth.MatchPatterns(p.Permissions, "prescriptions:create") {
		t.Error("refreshed permissions were not re-derived from the new role")
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	first, err := f.svc.Login(ctx, LoginRequest{Email: f.user.Email, Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	second, err := f.svc.Login(ctx, LoginRequest{Email: f.user.Email, Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := f.svc.LogoutAll(ctx, f.user.ID); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}

	for i, token := range []string{first.RefreshToken, second.RefreshToken} {
		if _, err := f.svc.Refresh(ctx, RefreshRequest{RefreshToken: token}); !errors.Is(err, auth.ErrTokenRevoked) {
			t.Fatalf("session %d refresh err = %v, want ErrTokenRevoked", i, err)
		}
	}
	for i, token := range []string{first.AccessToken, second.AccessToken} {
		p, err := f.codec.Verify(token, auth.TokenTypeAccess)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		revoked, err := f.revocations.IsRevoked(ctx, p.TokenID)
		if err != nil {
			t.Fatalf("IsRevoked: %v", err)
		}
		if !revoked {
			t.Fatalf("session %d access token survived LogoutAll", i)
		}
	}

	// A new login after the purge starts a clean session.
	if _, err := f.svc.Login(ctx, LoginRequest{Email: f.user.Email, Password: testPassword}); err != nil {
		t.Fatalf("post-logout login: %v", err)
	}
}

func TestChangePasswordInvalidatesSessions(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, LoginRequest{Email: f.user.Email, Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	principal, err := f.codec.Verify(pair.AccessToken, auth.TokenTypeAccess)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	err = f.svc.ChangePassword(ctx, principal, ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "a-new-password",
	})
	if !errors.Is(err, auth.ErrInvalidCredential) {
		t.Fatalf("wrong current password err = %v, want ErrInvalidCredential", err)
	}

	err = f.svc.ChangePassword(ctx, principal, ChangePasswordRequest{
		CurrentPassword: testPassword,
		NewPassword:     "a-new-password",
	})
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := f.svc.Refresh(ctx, RefreshRequest{RefreshToken: pair.RefreshToken}); !errors.Is(err, auth.ErrTokenRevoked) {
		t.Fatalf("refresh after password change err = %v, want ErrTokenRevoked", err)
	}
	if _, err := f.svc.Login(ctx, LoginRequest{Email: f.user.Email, Password: testPassword}); !errors.Is(err, auth.ErrInvalidCredential) {
		t.Fatal("old password still logs in after the change")
	}
	if _, err := f.svc.Login(ctx, LoginRequest{Email: f.user.Email, Password: "a-new-password"}); err != nil {
		t.Fatalf("new password login: %v", err)
	}
}

func TestLogoutRevokesPresentedTokens(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Login(ctx, LoginRequest{Email: f.user.Email, Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	principal, err := f.codec.Verify(pair.AccessToken, auth.TokenTypeAccess)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if err := f.svc.Logout(ctx, principal, pair.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	revoked, err := f.revocations.IsRevoked(ctx, principal.TokenID)
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if !revoked {
		t.Fatal("access token not revoked by logout")
	}
	if _, err := f.svc.Refresh(ctx, RefreshRequest{RefreshToken: pair.RefreshToken}); !errors.Is(err, auth.ErrTokenRevoked) {
		t.Fatalf("refresh after logout err = %v, want ErrTokenRevoked", err)
	}
}
