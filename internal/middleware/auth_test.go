package middleware

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pharmacy/internal/auth"
	"pharmacy/internal/model"
	"pharmacy/internal/tenant"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type fakeTenantStore struct {
	tenants map[uuid.UUID]*model.Tenant
}

func (f *fakeTenantStore) FindByID(_ context.Context, id uuid.UUID) (*model.Tenant, error) {
	if t, ok := f.tenants[id]; ok {
		return t, nil
	}
	return nil, tenant.ErrNotFound
}

func (f *fakeTenantStore) FindBySubdomain(context.Context, string) (*model.Tenant, error) {
	return nil, tenant.ErrNotFound
}

type pipelineFixture struct {
	key         *rsa.PrivateKey
	codec       *auth.TokenCodec
	revocations *auth.MemoryRevocationStore
	pipeline    *Pipeline
	router      *gin.Engine
	mock        sqlmock.Sqlmock
	store       *fakeTenantStore
	tenantID    uuid.UUID
	handlerHits int
}

func newFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := auth.GenerateDevKey()
	if err != nil {
		t.Fatalf("GenerateDevKey: %v", err)
	}
	codec, err := auth.NewTokenCodec("test-issuer", "k1", key)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}

	tenantID := uuid.New()
	store := &fakeTenantStore{tenants: map[uuid.UUID]*model.Tenant{
		tenantID: {ID: tenantID, Name: "acme", Subdomain: "acme", Status: model.TenantStatusActive},
	}}

	matrix := auth.NewPermissionMatrix()
	revocations := auth.NewMemoryRevocationStore()

	f := &pipelineFixture{
		key:         key,
		codec:       codec,
		revocations: revocations,
		mock:        mock,
		store:       store,
		tenantID:    tenantID,
	}
	f.pipeline = NewPipeline(
		codec, revocations, tenant.NewResolver(store, false),
		auth.NewBranchEvaluator(matrix), matrix, gdb, nil, false,
	)

	router := gin.New()
	router.Use(RequestID())
	router.GET("/api/v1/sales", f.pipeline.Authorize("sales:read"), func(c *gin.Context) {
		f.handlerHits++
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/api/v1/users", f.pipeline.Authorize("users:read"), func(c *gin.Context) {
		f.handlerHits++
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/api/v1/tenants", f.pipeline.Authorize("system:tenants"), func(c *gin.Context) {
		f.handlerHits++
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	f.router = router
	return f
}

func (f *pipelineFixture) cashier(t *testing.T, branchID uuid.UUID) (*auth.Principal, string) {
	t.Helper()
	p := &auth.Principal{
		SubjectID: uuid.New(),
		Role:      auth.RoleCashier,
		TenantID:  &f.tenantID,
		BranchID:  &branchID,
	}
	token, jti, err := f.codec.IssueAccessToken(p)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	p.TokenID = jti
	return p, token
}

func (f *pipelineFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *pipelineFixture) expectRLSBracket() {
	f.mock.ExpectExec("set_config").WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectExec("set_config").WillReturnResult(sqlmock.NewResult(0, 0))
}

func decodeCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code          string `json:"code"`
		CorrelationID string `json:"correlation_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.CorrelationID == "" {
		t.Error("error response is missing the correlation id")
	}
	return body.Code
}

func TestMissingTokenIsRejected(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales", nil)
	w := f.do(req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if code := decodeCode(t, w); code != "AUTHENTICATION_REQUIRED" {
		t.Fatalf("code = %q", code)
	}
	if f.handlerHits != 0 {
		t.Fatal("handler ran without a credential")
	}
}

func TestExpiredTokenIsDistinguished(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	p := &auth.Principal{SubjectID: uuid.New(), Role: auth.RoleCashier, TenantID: &f.tenantID, BranchID: &branch}

	// Same signing key, but issuance back-dated past the access TTL.
	past := time.Now().Add(-auth.AccessTokenTTL - time.Minute)
	backdated, err := auth.NewTokenCodec("test-issuer", "k1", f.key, auth.WithClock(func() time.Time { return past }))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	token, _, err := backdated.IssueAccessToken(p)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := f.do(req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if code := decodeCode(t, w); code != "TOKEN_EXPIRED" {
		t.Fatalf("code = %q, want TOKEN_EXPIRED", code)
	}
}

func TestTamperedSignatureIsRejected(t *testing.T) {
	f := newFixture(t)
	_, token := f.cashier(t, uuid.New())

	// Flip one character of the signature segment.
	i := strings.LastIndex(token, ".") + 1
	flipped := byte('A')
	if token[i] == 'A' {
		flipped = 'B'
	}
	tampered := token[:i] + string(flipped) + token[i+1:]

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales", nil)
	req.Header.Set("Authorization", "Bearer "+tampered)
	w := f.do(req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if code := decodeCode(t, w); code != "INVALID_SIGNATURE" {
		t.Fatalf("code = %q, want INVALID_SIGNATURE", code)
	}
}

func TestRevokedTokenIsRejected(t *testing.T) {
	f := newFixture(t)
	p, token := f.cashier(t, uuid.New())

	if err := f.revocations.Revoke(context.Background(), p.TokenID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := f.do(req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if code := decodeCode(t, w); code != "TOKEN_REVOKED" {
		t.Fatalf("code = %q, want TOKEN_REVOKED", code)
	}
}

func TestCashierCannotTargetAnotherBranch(t *testing.T) {
	f := newFixture(t)
	homeBranch := uuid.New()
	otherBranch := uuid.New()
	_, token := f.cashier(t, homeBranch)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales?branch_id="+otherBranch.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := f.do(req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if code := decodeCode(t, w); code != "BRANCH_ACCESS_DENIED" {
		t.Fatalf("code = %q, want BRANCH_ACCESS_DENIED", code)
	}
	if f.handlerHits != 0 {
		t.Fatal("handler ran despite the branch denial")
	}
	// Denied before context propagation: no queries were issued.
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database traffic: %v", err)
	}
}

func TestMalformedBranchIDIsClientError(t *testing.T) {
	f := newFixture(t)
	_, token := f.cashier(t, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales?branch_id=not-a-uuid", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := f.do(req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code := decodeCode(t, w); code != "BRANCH_INVALID" {
		t.Fatalf("code = %q, want BRANCH_INVALID", code)
	}
	if f.handlerHits != 0 {
		t.Fatal("handler ran despite the malformed branch id")
	}
}

func TestTokenTenantMustMatchResolvedTenant(t *testing.T) {
	f := newFixture(t)
	_, token := f.cashier(t, uuid.New())

	// A lookup that yields a different tenant than the one asked for must
	// never be trusted for a tenant-scoped role.
	other := uuid.New()
	f.store.tenants[f.tenantID] = &model.Tenant{
		ID: other, Name: "mallory", Subdomain: "mallory", Status: model.TenantStatusActive,
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := f.do(req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if code := decodeCode(t, w); code != "TENANT_MISMATCH" {
		t.Fatalf("code = %q, want TENANT_MISMATCH", code)
	}
	if f.handlerHits != 0 {
		t.Fatal("handler ran despite the tenant mismatch")
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database traffic: %v", err)
	}
}

func TestCashierLacksUsersPermission(t *testing.T) {
	f := newFixture(t)
	_, token := f.cashier(t, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := f.do(req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if code := decodeCode(t, w); code != "PERMISSION_DENIED" {
		t.Fatalf("code = %q, want PERMISSION_DENIED", code)
	}
}

func TestSuperAdminResolvesTenantFromHeader(t *testing.T) {
	f := newFixture(t)

	// SuperAdmin tokens carry no tenant claim before tenant selection.
	p := &auth.Principal{SubjectID: uuid.New(), Role: auth.RoleSuperAdmin}
	token, _, err := f.codec.IssueAccessToken(p)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	f.expectRLSBracket()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Tenant-ID", f.tenantID.String())
	w := f.do(req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	if f.handlerHits != 1 {
		t.Fatalf("handler hits = %d, want 1", f.handlerHits)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("tenant context was not set and cleared: %v", err)
	}
}

func TestHappyPathBracketsSessionContext(t *testing.T) {
	f := newFixture(t)
	_, token := f.cashier(t, uuid.New())

	f.expectRLSBracket()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := f.do(req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("tenant context was not set and cleared: %v", err)
	}
}

func TestSystemRouteNeedsNoTenant(t *testing.T) {
	f := newFixture(t)
	p := &auth.Principal{SubjectID: uuid.New(), Role: auth.RoleSuperAdmin}
	token, _, err := f.codec.IssueAccessToken(p)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := f.do(req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	// Tenant-scoped roles never reach a system route, with or without a
	// tenant to resolve.
	_, cashierToken := f.cashier(t, uuid.New())
	req = httptest.NewRequest(http.MethodGet, "/api/v1/tenants", nil)
	req.Header.Set("Authorization", "Bearer "+cashierToken)
	w = f.do(req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("cashier status = %d, want 403", w.Code)
	}
}

func TestUnknownTenantHeaderIs404(t *testing.T) {
	f := newFixture(t)
	p := &auth.Principal{SubjectID: uuid.New(), Role: auth.RoleSuperAdmin}
	token, _, err := f.codec.IssueAccessToken(p)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Tenant-ID", uuid.NewString())
	w := f.do(req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if code := decodeCode(t, w); code != "TENANT_NOT_FOUND" {
		t.Fatalf("code = %q, want TENANT_NOT_FOUND", code)
	}
}
