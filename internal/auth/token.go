package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims is the closed claim set embedded in every token. Tokens are signed,
// not encrypted: claims are readable by anyone holding the token.
type Claims struct {
	TokenType    string   `json:"token_type"`
	TenantID     string   `json:"tenant_id,omitempty"`
	BranchID     string   `json:"branch_id,omitempty"`
	Role         string   `json:"role,omitempty"`
	Permissions  []string `json:"permissions,omitempty"`
	BranchAccess []string `json:"branch_access,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies access/refresh tokens with RS256. The private
// key belongs to the issuing service only; public keys (the active one plus a
// short history of retired keys, keyed by kid) are enough to verify. Retired
// keys stay verifiable for at least the refresh-token lifetime so a rotation
// never mass-invalidates outstanding tokens.
type TokenCodec struct {
	issuer     string
	audience   string
	signingKey *rsa.PrivateKey
	signingKid string
	publicKeys map[string]*rsa.PublicKey // kid -> key, includes the active key
	now        func() time.Time
}

// CodecOption configures a TokenCodec.
type CodecOption func(*TokenCodec)

// WithRetiredKey registers a recently-retired public key so tokens signed
// before a rotation still verify.
func WithRetiredKey(kid string, key *rsa.PublicKey) CodecOption {
	return func(c *TokenCodec) {
		c.publicKeys[kid] = key
	}
}

// WithAudience pins the codec to an audience. Issued tokens carry the aud
// claim and Verify rejects tokens minted for a different audience.
func WithAudience(aud string) CodecOption {
	return func(c *TokenCodec) {
		c.audience = aud
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// NewTokenCodec builds a codec signing with the given key under the given kid.
func NewTokenCodec(issuer string, kid string, key *rsa.PrivateKey, opts ...CodecOption) (*TokenCodec, error) {
	if key == nil {
		return nil, ErrNoSigningKey
	}
	if kid == "" {
		kid = uuid.NewString()
	}
	c := &TokenCodec{
		issuer:     issuer,
		signingKey: key,
		signingKid: kid,
		publicKeys: map[string]*rsa.PublicKey{kid: &key.PublicKey},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// IssueAccessToken embeds the full principal into a short-lived access token.
// Returns the signed token and its jti.
func (c *TokenCodec) IssueAccessToken(p *Principal) (string, string, error) {
	now := c.now().UTC()
	branchAccess := make([]string, 0, len(p.BranchAccess))
	for _, b := range p.BranchAccess {
		branchAccess = append(branchAccess, b.String())
	}
	claims := Claims{
		TokenType:    TokenTypeAccess,
		Role:         string(p.Role),
		Permissions:  p.Permissions,
		BranchAccess: branchAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   p.SubjectID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
		},
	}
	if p.TenantID != nil {
		claims.TenantID = p.TenantID.String()
	}
	if p.BranchID != nil {
		claims.BranchID = p.BranchID.String()
	}
	signed, err := c.sign(claims)
	if err != nil {
		return "", "", err
	}
	return signed, claims.ID, nil
}

// IssueRefreshToken carries deliberately few claims: role and permissions may
// change between issuance and use, so a refresh re-derives them from storage.
func (c *TokenCodec) IssueRefreshToken(p *Principal) (string, string, error) {
	now := c.now().UTC()
	claims := Claims{
		TokenType: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   p.SubjectID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTokenTTL)),
		},
	}
	if p.TenantID != nil {
		claims.TenantID = p.TenantID.String()
	}
	signed, err := c.sign(claims)
	if err != nil {
		return "", "", err
	}
	return signed, claims.ID, nil
}

func (c *TokenCodec) sign(claims Claims) (string, error) {
	if c.signingKey == nil {
		return "", ErrNoSigningKey
	}
	if c.audience != "" {
		claims.Audience = jwt.ClaimStrings{c.audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = c.signingKid
	return token.SignedString(c.signingKey)
}

// Verify validates signature, issuer, audience (when the codec carries one),
// expiry (no clock-skew leeway) and the token-type claim, then reconstructs
// the Principal from the claims.
func (c *TokenCodec) Verify(tokenString, expectedType string) (*Principal, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, c.keyFor, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrTokenMalformed
		}
	}
	if !token.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.TokenType != expectedType {
		return nil, ErrWrongTokenType
	}
	return principalFromClaims(claims)
}

// keyFor selects the verification key by the token's kid header, falling back
// to the active signing key for tokens issued before kid headers existed.
func (c *TokenCodec) keyFor(token *jwt.Token) (any, error) {
	if kid, ok := token.Header["kid"].(string); ok {
		if key, ok := c.publicKeys[kid]; ok {
			return key, nil
		}
	}
	return &c.signingKey.PublicKey, nil
}

func principalFromClaims(claims *Claims) (*Principal, error) {
	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrTokenMalformed
	}
	p := &Principal{
		SubjectID:   subject,
		TokenID:     claims.ID,
		Role:        Role(claims.Role),
		Permissions: claims.Permissions,
	}
	if claims.TenantID != "" {
		id, err := uuid.Parse(claims.TenantID)
		if err != nil {
			return nil, ErrTokenMalformed
		}
		p.TenantID = &id
	}
	if claims.BranchID != "" {
		id, err := uuid.Parse(claims.BranchID)
		if err != nil {
			return nil, ErrTokenMalformed
		}
		p.BranchID = &id
	}
	for _, b := range claims.BranchAccess {
		id, err := uuid.Parse(b)
		if err != nil {
			return nil, ErrTokenMalformed
		}
		p.BranchAccess = append(p.BranchAccess, id)
	}
	return p, nil
}

// ParseRSAPrivateKeyPEM parses a PKCS#1 or PKCS#8 encoded RSA private key.
func ParseRSAPrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("auth: no PEM block in private key")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("auth: parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("auth: private key is not RSA")
	}
	return key, nil
}

// ParseRSAPublicKeyPEM parses a PKIX or PKCS#1 encoded RSA public key.
func ParseRSAPublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("auth: no PEM block in public key")
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("auth: parse public key: %w", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("auth: public key is not RSA")
	}
	return key, nil
}

// GenerateDevKey creates an ephemeral signing key for development setups
// where no key material is configured. Tokens do not survive a restart.
func GenerateDevKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, 2048)
}
