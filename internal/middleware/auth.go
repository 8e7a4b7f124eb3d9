package middleware

import (
	"errors"
	"net/http"
	"strings"

	"pharmacy/internal/auth"
	"pharmacy/internal/database"
	"pharmacy/internal/model"
	"pharmacy/internal/repository"
	"pharmacy/internal/tenant"
	"pharmacy/pkg/metrics"
	"pharmacy/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Gin context keys set by the pipeline for downstream handlers.
const (
	ctxPrincipal = "principal"
	ctxTenantID  = "tenantID"
	ctxBranchID  = "branchID"
)

// Auditor records security decisions. Implementations must never block or
// fail the request being recorded.
type Auditor interface {
	Record(entry *model.AuditLog)
}

// Paths that never require a credential. The pipeline also checks these
// itself so applying it at the group level stays safe.
var publicPaths = []string{
	"/health",
	"/metrics",
	"/swagger/",
	"/ws",
	"/api/v1/auth/login",
	"/api/v1/auth/refresh",
	"/api/v1/auth/register",
}

// Pipeline is the per-request authorization sequence: extract bearer token,
// verify signature and expiry, check revocation, resolve tenant, resolve the
// target branch, evaluate the route permission, then propagate tenant context
// to the data layer for the rest of the request. Every step short-circuits
// with a structured error; any unexpected failure denies the request rather
// than letting it through.
type Pipeline struct {
	codec       *auth.TokenCodec
	revocations auth.RevocationStore
	resolver    *tenant.Resolver
	branches    *auth.BranchEvaluator
	matrix      *auth.PermissionMatrix
	db          *gorm.DB
	auditor     Auditor

	// Bearer token via ?access_token= is only for non-production tooling.
	allowQueryToken bool
}

func NewPipeline(
	codec *auth.TokenCodec,
	revocations auth.RevocationStore,
	resolver *tenant.Resolver,
	branches *auth.BranchEvaluator,
	matrix *auth.PermissionMatrix,
	db *gorm.DB,
	auditor Auditor,
	allowQueryToken bool,
) *Pipeline {
	return &Pipeline{
		codec:           codec,
		revocations:     revocations,
		resolver:        resolver,
		branches:        branches,
		matrix:          matrix,
		db:              db,
		auditor:         auditor,
		allowQueryToken: allowQueryToken,
	}
}

// Authorize returns the middleware enforcing the pipeline for one route,
// with the route's required "resource:action" permission. An empty permission
// means the route needs authentication and tenant context but no specific
// grant (self-service routes like logout).
func (p *Pipeline) Authorize(requiredPerm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		tokenString, ok := p.extractToken(c)
		if !ok {
			p.deny(c, http.StatusUnauthorized, response.CodeAuthRequired, "authentication required")
			return
		}

		principal, err := p.codec.Verify(tokenString, auth.TokenTypeAccess)
		if err != nil {
			status, code, msg := verifyFailure(err)
			p.deny(c, status, code, msg)
			return
		}

		revoked, err := p.revocations.IsRevoked(c.Request.Context(), principal.TokenID)
		if err != nil {
			// Fail closed: a false allow exposes another tenant's data, a
			// false deny costs one request.
			logrus.WithError(err).WithField("correlation_id", CorrelationID(c)).
				Error("revocation lookup failed")
			p.deny(c, http.StatusServiceUnavailable, response.CodeInternal, "authorization unavailable")
			return
		}
		if revoked {
			p.audit(principal, nil, model.ActionTokenRevoked, "revoked token presented")
			p.deny(c, http.StatusUnauthorized, response.CodeTokenRevoked, "token revoked")
			return
		}

		var claimTenant string
		if principal.TenantID != nil {
			claimTenant = principal.TenantID.String()
		}
		resolved, err := p.resolver.Resolve(c.Request.Context(), tenant.Request{
			ClaimTenantID:  claimTenant,
			Host:           c.Request.Host,
			HeaderTenantID: c.GetHeader("X-Tenant-ID"),
			QueryTenantID:  c.Query("tenant_id"),
		})
		if err != nil {
			// System-level routes (tenant provisioning) are the one place a
			// request legitimately has no tenant: a SuperAdmin managing the
			// tenant list itself. Everything else fails here.
			if !(errors.Is(err, tenant.ErrNotResolved) &&
				principal.Role == auth.RoleSuperAdmin &&
				strings.HasPrefix(requiredPerm, "system:")) {
				status, code, msg := tenantFailure(err)
				p.audit(principal, nil, model.ActionTenantRejected, msg)
				p.deny(c, status, code, msg)
				return
			}
			resolved = nil
		}
		var resolvedID *uuid.UUID
		if resolved != nil {
			resolvedID = &resolved.ID
		}
		// Only SuperAdmin may operate outside the tenant baked into the token.
		if resolved != nil && principal.TenantID != nil && *principal.TenantID != resolved.ID && principal.Role != auth.RoleSuperAdmin {
			p.audit(principal, resolvedID, model.ActionTenantRejected, "token tenant does not match resolved tenant")
			p.deny(c, http.StatusForbidden, response.CodeTenantMismatch, "tenant access denied")
			return
		}

		targetBranch, err := p.resolveBranch(c, principal)
		if err != nil {
			if errors.Is(err, errBranchMalformed) {
				p.deny(c, http.StatusBadRequest, response.CodeBranchInvalid, "malformed branch id")
				return
			}
			p.audit(principal, resolvedID, model.ActionBranchDenied, "branch access denied")
			p.deny(c, http.StatusForbidden, response.CodeBranchDenied, "branch access denied")
			return
		}

		if requiredPerm != "" &&
			!p.matrix.RoleSatisfies(principal.Role, requiredPerm) &&
			!auth.MatchPatterns(principal.Permissions, requiredPerm) {
			p.audit(principal, resolvedID, model.ActionPermissionDenied, "missing permission "+requiredPerm)
			p.deny(c, http.StatusForbidden, response.CodePermissionDenied, "permission denied")
			return
		}

		metrics.AuthAllowed()

		if resolved == nil {
			c.Set(ctxPrincipal, principal)
			c.Next()
			return
		}

		var branchStr string
		if targetBranch != nil {
			branchStr = targetBranch.String()
		}
		err = database.WithTenantContext(c.Request.Context(), p.db, resolved.ID.String(), branchStr, func(tx *gorm.DB) error {
			c.Set(ctxPrincipal, principal)
			c.Set(ctxTenantID, resolved.ID)
			if targetBranch != nil {
				c.Set(ctxBranchID, *targetBranch)
			}
			c.Request = c.Request.WithContext(repository.WithDB(c.Request.Context(), tx))
			c.Next()
			return nil
		})
		if err != nil && !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.ErrorCode(
				http.StatusInternalServerError, response.CodeInternal, "internal error", CorrelationID(c)))
		}
	}
}

func (p *Pipeline) extractToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			return parts[1], true
		}
		return "", false
	}
	if p.allowQueryToken {
		if t := c.Query("access_token"); t != "" {
			return t, true
		}
	}
	return "", false
}

// Branch resolution failures. A malformed identifier is a client error, not
// an authorization denial, and maps to 400 rather than 403.
var (
	errBranchMalformed = errors.New("malformed branch id")
	errBranchDenied    = errors.New("branch access denied")
)

// resolveBranch determines the branch targeted by the request (path param,
// header, query, falling back to the principal's home branch) and checks the
// principal may act on it. Requests with no branch target at all are allowed
// through; listing queries then apply the accessible-branch filter instead.
func (p *Pipeline) resolveBranch(c *gin.Context, principal *auth.Principal) (*uuid.UUID, error) {
	raw := c.Param("branchId")
	if raw == "" {
		raw = c.GetHeader("X-Branch-ID")
	}
	if raw == "" {
		raw = c.Query("branch_id")
	}
	if raw == "" {
		return principal.BranchID, nil
	}
	target, err := uuid.Parse(raw)
	if err != nil {
		return nil, errBranchMalformed
	}
	if !p.branches.CanAccessBranch(principal, target) {
		return nil, errBranchDenied
	}
	return &target, nil
}

func (p *Pipeline) deny(c *gin.Context, status int, code, msg string) {
	metrics.AuthDenied(code)
	c.AbortWithStatusJSON(status, response.ErrorCode(status, code, msg, CorrelationID(c)))
}

func (p *Pipeline) audit(principal *auth.Principal, tenantID *uuid.UUID, action, reason string) {
	if p.auditor == nil {
		return
	}
	entry := &model.AuditLog{
		Action:  action,
		Allowed: false,
		Reason:  reason,
	}
	if principal != nil {
		id := principal.SubjectID
		entry.UserID = &id
		if tenantID == nil {
			tenantID = principal.TenantID
		}
	}
	entry.TenantID = tenantID
	p.auditor.Record(entry)
}

func verifyFailure(err error) (int, string, string) {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, response.CodeTokenExpired, "token expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return http.StatusUnauthorized, response.CodeInvalidSignature, "invalid token signature"
	case errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized, response.CodeWrongTokenType, "wrong token type"
	default:
		return http.StatusUnauthorized, response.CodeTokenMalformed, "malformed token"
	}
}

func tenantFailure(err error) (int, string, string) {
	switch {
	case errors.Is(err, tenant.ErrNotFound):
		return http.StatusNotFound, response.CodeTenantNotFound, "tenant not found"
	case errors.Is(err, tenant.ErrInactive):
		return http.StatusForbidden, response.CodeTenantInactive, "tenant inactive"
	case errors.Is(err, tenant.ErrNotResolved):
		return http.StatusBadRequest, response.CodeTenantNotResolved, "tenant not resolved"
	default:
		return http.StatusInternalServerError, response.CodeInternal, "tenant resolution failed"
	}
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return true
			}
		} else if path == p {
			return true
		}
	}
	return false
}

// GetPrincipal returns the pipeline-attached principal for the request.
func GetPrincipal(c *gin.Context) (*auth.Principal, bool) {
	v, ok := c.Get(ctxPrincipal)
	if !ok {
		return nil, false
	}
	p, ok := v.(*auth.Principal)
	return p, ok
}

// GetTenantID returns the pipeline-resolved tenant id. CRUD handlers must use
// this value, never a tenant id from the request body or query.
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ctxTenantID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// GetBranchID returns the effective branch for the request, if one resolved.
func GetBranchID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ctxBranchID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
