package handler

import (
	"errors"
	"net/http"

	"pharmacy/internal/auth"
	"pharmacy/internal/middleware"
	"pharmacy/internal/service"
	"pharmacy/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// requestScope bundles the pipeline-resolved authorization context every
// CRUD handler needs: the trusted tenant id, the principal, and the branch
// filter for listing queries (nil when the principal may see all branches).
type requestScope struct {
	TenantID     uuid.UUID
	BranchID     uuid.UUID // effective branch, uuid.Nil when none resolved
	Principal    *auth.Principal
	BranchFilter []uuid.UUID
}

// getScope reads the pipeline-attached context. A missing principal means a
// route was registered without the authorization middleware, which is a
// wiring bug, not a client error.
func getScope(c *gin.Context, branches *auth.BranchEvaluator) (*requestScope, bool) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.ErrorCode(
			http.StatusInternalServerError, response.CodeInternal,
			"authorization context missing", middleware.CorrelationID(c)))
		return nil, false
	}
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.ErrorCode(
			http.StatusInternalServerError, response.CodeInternal,
			"tenant context missing", middleware.CorrelationID(c)))
		return nil, false
	}
	scope := &requestScope{
		TenantID:     tenantID,
		Principal:    principal,
		BranchFilter: branches.AccessibleBranches(principal),
	}
	if branchID, ok := middleware.GetBranchID(c); ok {
		scope.BranchID = branchID
	}
	return scope, true
}

// fail maps service-layer errors onto HTTP statuses.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "not found"))
	case errors.Is(err, service.ErrBranchRequired):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "a branch must be targeted for this operation"))
	case errors.Is(err, service.ErrInsufficientStock):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, "insufficient stock"))
	case errors.Is(err, service.ErrRxRequired):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, "medicine requires a prescription"))
	case errors.Is(err, service.ErrNotPending):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, "prescription is not pending"))
	case errors.Is(err, service.ErrInvalidRole), errors.Is(err, service.ErrInvalidAdjustment):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.ErrorCode(
			http.StatusInternalServerError, response.CodeInternal, "internal error", middleware.CorrelationID(c)))
	}
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid id"))
		return uuid.Nil, false
	}
	return id, true
}
