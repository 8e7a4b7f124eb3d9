package auth

import "errors"

// Verification failures are distinct so callers can tell the client whether
// a refresh is worth attempting (expired) or a full re-login is required
// (tampered/malformed).
var (
	ErrTokenExpired      = errors.New("auth: token expired")
	ErrInvalidSignature  = errors.New("auth: invalid token signature")
	ErrWrongTokenType    = errors.New("auth: wrong token type")
	ErrTokenMalformed    = errors.New("auth: malformed token")
	ErrTokenRevoked      = errors.New("auth: token revoked")
	ErrNoSigningKey      = errors.New("auth: no signing key configured")
	ErrInvalidCredential = errors.New("auth: invalid email or password")
)
