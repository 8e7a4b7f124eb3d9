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

type TenantHandler struct {
	tenantService service.TenantService
	branches      *auth.BranchEvaluator
	pipeline      *middleware.Pipeline
}

func NewTenantHandler(tenantService service.TenantService, branches *auth.BranchEvaluator, pipeline *middleware.Pipeline) *TenantHandler {
	return &TenantHandler{tenantService: tenantService, branches: branches, pipeline: pipeline}
}

func (h *TenantHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Tenant provisioning is SuperAdmin-only via system:*.
	tenants := router.Group("/api/v1/tenants")
	{
		tenants.GET("", h.pipeline.Authorize("system:tenants"), h.List)
		tenants.POST("", h.pipeline.Authorize("system:tenants"), h.Create)
		tenants.PUT("/:id", h.pipeline.Authorize("system:tenants"), h.Update)
	}

	branches := router.Group("/api/v1/branches")
	{
		branches.GET("", h.pipeline.Authorize("branches:read"), h.ListBranches)
		branches.POST("", h.pipeline.Authorize("branches:create"), h.CreateBranch)
		branches.GET("/:branchId", h.pipeline.Authorize("branches:read"), h.GetBranch)
		branches.PUT("/:branchId", h.pipeline.Authorize("branches:update"), h.UpdateBranch)
		branches.DELETE("/:branchId", h.pipeline.Authorize("branches:delete"), h.DeleteBranch)
	}
}

func (h *TenantHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	tenants, total, err := h.tenantService.List(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(tenants, total, params)))
}

// Create provisions a new tenant organization
// @Summary      Create tenant
// @Tags         tenants
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTenantRequest  true  "Tenant"
// @Success      201      {object}  response.Response{data=model.Tenant}
// @Router       /api/v1/tenants [post]
func (h *TenantHandler) Create(c *gin.Context) {
	var req service.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	t, err := h.tenantService.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, t))
}

func (h *TenantHandler) Update(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "not authenticated"))
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	t, err := h.tenantService.Update(c.Request.Context(), id, req, principal.SubjectID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, t))
}

// ListBranches returns the tenant's branches, restricted to accessible ones
// for principals without cross-branch access
func (h *TenantHandler) ListBranches(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	params := pagination.Parse(c)
	branches, total, err := h.tenantService.ListBranches(c.Request.Context(), scope.TenantID, scope.BranchFilter, params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(branches, total, params)))
}

func (h *TenantHandler) CreateBranch(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	var req service.CreateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	branch, err := h.tenantService.CreateBranch(c.Request.Context(), scope.TenantID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, branch))
}

func (h *TenantHandler) GetBranch(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	id, ok := parseID(c, "branchId")
	if !ok {
		return
	}
	branch, err := h.tenantService.GetBranch(c.Request.Context(), scope.TenantID, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, branch))
}

func (h *TenantHandler) UpdateBranch(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	id, ok := parseID(c, "branchId")
	if !ok {
		return
	}
	var req service.UpdateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	branch, err := h.tenantService.UpdateBranch(c.Request.Context(), scope.TenantID, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, branch))
}

func (h *TenantHandler) DeleteBranch(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	id, ok := parseID(c, "branchId")
	if !ok {
		return
	}
	if err := h.tenantService.DeleteBranch(c.Request.Context(), scope.TenantID, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "branch deleted"}))
}
