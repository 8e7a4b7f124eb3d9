package handler

import (
	"net/http"

	"pharmacy/internal/auth"
	"pharmacy/internal/middleware"
	"pharmacy/internal/service"
	"pharmacy/pkg/pagination"
	"pharmacy/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	branches     *auth.BranchEvaluator
	pipeline     *middleware.Pipeline
}

func NewAuditHandler(auditService service.AuditService, branches *auth.BranchEvaluator, pipeline *middleware.Pipeline) *AuditHandler {
	return &AuditHandler{auditService: auditService, branches: branches, pipeline: pipeline}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	audit := router.Group("/api/v1/audit")
	{
		audit.GET("", h.pipeline.Authorize("audit:read"), h.List)
	}
}

// List returns the tenant's audit trail
// @Summary      List audit entries
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action  query  string  false  "Filter by action code"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/v1/audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	params := pagination.Parse(c)
	entries, total, err := h.auditService.List(c.Request.Context(), scope.TenantID, c.Query("action"), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(entries, total, params)))
}
