package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func testPrincipal() *Principal {
	tenantID := uuid.New()
	branchID := uuid.New()
	return &Principal{
		SubjectID:    uuid.New(),
		Role:         RolePharmacist,
		TenantID:     &tenantID,
		BranchID:     &branchID,
		BranchAccess: []uuid.UUID{uuid.New()},
		Permissions:  []string{"patients:read", "prescriptions:*"},
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	codec, err := NewTokenCodec("pharmacy", "k1", testKey(t))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	p := testPrincipal()

	token, jti, err := codec.IssueAccessToken(p)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if jti == "" {
		t.Fatal("expected non-empty jti")
	}

	got, err := codec.Verify(token, TokenTypeAccess)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.SubjectID != p.SubjectID {
		t.Fatalf("subject = %s, want %s", got.SubjectID, p.SubjectID)
	}
	if got.Role != p.Role {
		t.Fatalf("role = %s, want %s", got.Role, p.Role)
	}
	if got.TenantID == nil || *got.TenantID != *p.TenantID {
		t.Fatalf("tenant = %v, want %v", got.TenantID, p.TenantID)
	}
	if got.BranchID == nil || *got.BranchID != *p.BranchID {
		t.Fatalf("branch = %v, want %v", got.BranchID, p.BranchID)
	}
	if len(got.BranchAccess) != 1 || got.BranchAccess[0] != p.BranchAccess[0] {
		t.Fatalf("branch access = %v, want %v", got.BranchAccess, p.BranchAccess)
	}
	if got.TokenID != jti {
		t.Fatalf("token id = %s, want %s", got.TokenID, jti)
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	codec, err := NewTokenCodec("pharmacy", "k1", testKey(t))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	p := testPrincipal()

	access, _, err := codec.IssueAccessToken(p)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := codec.Verify(access, TokenTypeRefresh); err != ErrWrongTokenType {
		t.Fatalf("access-as-refresh err = %v, want ErrWrongTokenType", err)
	}

	refresh, _, err := codec.IssueRefreshToken(p)
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	if _, err := codec.Verify(refresh, TokenTypeAccess); err != ErrWrongTokenType {
		t.Fatalf("refresh-as-access err = %v, want ErrWrongTokenType", err)
	}
}

func TestRefreshTokenCarriesMinimalClaims(t *testing.T) {
	codec, err := NewTokenCodec("pharmacy", "k1", testKey(t))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	p := testPrincipal()

	refresh, _, err := codec.IssueRefreshToken(p)
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	got, err := codec.Verify(refresh, TokenTypeRefresh)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Role != "" || len(got.Permissions) != 0 || len(got.BranchAccess) != 0 {
		t.Fatalf("refresh token leaked authorization claims: %+v", got)
	}
	if got.TenantID == nil || *got.TenantID != *p.TenantID {
		t.Fatalf("tenant = %v, want %v", got.TenantID, p.TenantID)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	now := time.Now()
	codec, err := NewTokenCodec("pharmacy", "k1", testKey(t), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	token, _, err := codec.IssueAccessToken(testPrincipal())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	now = now.Add(AccessTokenTTL + time.Second)
	if _, err := codec.Verify(token, TokenTypeAccess); err != ErrTokenExpired {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	codec, err := NewTokenCodec("pharmacy", "k1", testKey(t))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	token, _, err := codec.IssueAccessToken(testPrincipal())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d segments", len(parts))
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := codec.Verify(tampered, TokenTypeAccess); err != ErrInvalidSignature {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyMalformedToken(t *testing.T) {
	codec, err := NewTokenCodec("pharmacy", "k1", testKey(t))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	for _, bad := range []string{"", "garbage", "a.b", "a.b.c"} {
		if _, err := codec.Verify(bad, TokenTypeAccess); err != ErrTokenMalformed {
			t.Fatalf("Verify(%q) err = %v, want ErrTokenMalformed", bad, err)
		}
	}
}

func TestVerifyWithRetiredKey(t *testing.T) {
	oldKey := testKey(t)
	oldCodec, err := NewTokenCodec("pharmacy", "old-kid", oldKey)
	if err != nil {
		t.Fatalf("NewTokenCodec(old): %v", err)
	}
	token, _, err := oldCodec.IssueAccessToken(testPrincipal())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	// Rotate: new signing key, old public key kept in the history.
	newCodec, err := NewTokenCodec("pharmacy", "new-kid", testKey(t),
		WithRetiredKey("old-kid", &oldKey.PublicKey))
	if err != nil {
		t.Fatalf("NewTokenCodec(new): %v", err)
	}
	if _, err := newCodec.Verify(token, TokenTypeAccess); err != nil {
		t.Fatalf("Verify with retired key: %v", err)
	}

	// Without the history the old token must fail.
	bareCodec, err := NewTokenCodec("pharmacy", "new-kid", testKey(t))
	if err != nil {
		t.Fatalf("NewTokenCodec(bare): %v", err)
	}
	if _, err := bareCodec.Verify(token, TokenTypeAccess); err != ErrInvalidSignature {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyRejectsForeignAudience(t *testing.T) {
	key := testKey(t)
	codec, err := NewTokenCodec("pharmacy", "k1", key, WithAudience("pharmacy"))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}

	token, _, err := codec.IssueAccessToken(testPrincipal())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := codec.Verify(token, TokenTypeAccess); err != nil {
		t.Fatalf("Verify own audience: %v", err)
	}

	// Same issuer and key but a different audience must not be accepted.
	other, err := NewTokenCodec("pharmacy", "k1", key, WithAudience("billing"))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	foreign, _, err := other.IssueAccessToken(testPrincipal())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := codec.Verify(foreign, TokenTypeAccess); err != ErrTokenMalformed {
		t.Fatalf("err = %v, want ErrTokenMalformed", err)
	}

	// A token with no aud claim at all is rejected by an audience-pinned codec.
	bare, err := NewTokenCodec("pharmacy", "k1", key)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	unaudienced, _, err := bare.IssueAccessToken(testPrincipal())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := codec.Verify(unaudienced, TokenTypeAccess); err != ErrTokenMalformed {
		t.Fatalf("err = %v, want ErrTokenMalformed", err)
	}
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	key := testKey(t)
	other, err := NewTokenCodec("someone-else", "k1", key)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	token, _, err := other.IssueAccessToken(testPrincipal())
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	codec, err := NewTokenCodec("pharmacy", "k1", key)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	if _, err := codec.Verify(token, TokenTypeAccess); err != ErrTokenMalformed {
		t.Fatalf("err = %v, want ErrTokenMalformed", err)
	}
}
