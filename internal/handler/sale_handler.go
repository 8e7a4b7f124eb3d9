package handler

import (
	"net/http"
	"time"

	"pharmacy/internal/auth"
	"pharmacy/internal/middleware"
	"pharmacy/internal/service"
	"pharmacy/pkg/pagination"
	"pharmacy/pkg/response"

	"github.com/gin-gonic/gin"
)

type SaleHandler struct {
	saleService service.SaleService
	branches    *auth.BranchEvaluator
	pipeline    *middleware.Pipeline
}

func NewSaleHandler(saleService service.SaleService, branches *auth.BranchEvaluator, pipeline *middleware.Pipeline) *SaleHandler {
	return &SaleHandler{saleService: saleService, branches: branches, pipeline: pipeline}
}

func (h *SaleHandler) RegisterRoutes(router *gin.RouterGroup) {
	sales := router.Group("/api/v1/sales")
	{
		sales.GET("", h.pipeline.Authorize("sales:read"), h.List)
		sales.POST("", h.pipeline.Authorize("sales:create"), h.Create)
		sales.GET("/:id", h.pipeline.Authorize("sales:read"), h.Get)
	}
}

// Create records a point-of-sale transaction at the effective branch
// @Summary      Create sale
// @Description  Decrements stock for each sold item and computes totals server-side
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateSaleRequest  true  "Sale"
// @Success      201      {object}  response.Response{data=model.Sale}
// @Failure      409      {object}  response.Response  "Insufficient stock or prescription required"
// @Router       /api/v1/sales [post]
func (h *SaleHandler) Create(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	var req service.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	sale, err := h.saleService.Create(c.Request.Context(), scope.TenantID, scope.BranchID, scope.Principal, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, sale))
}

// List returns the tenant's sales, filtered to accessible branches
// @Summary      List sales
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        from  query  string  false  "RFC 3339 start of range"
// @Param        to    query  string  false  "RFC 3339 end of range"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/v1/sales [get]
func (h *SaleHandler) List(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	params := pagination.Parse(c)
	from, to := parseTimeRange(c)

	sales, total, err := h.saleService.List(c.Request.Context(), scope.TenantID, scope.BranchFilter, from, to, params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(sales, total, params)))
}

func (h *SaleHandler) Get(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sale, err := h.saleService.GetByID(c.Request.Context(), scope.TenantID, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

func parseTimeRange(c *gin.Context) (*time.Time, *time.Time) {
	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			from = &t
		}
	}
	if raw := c.Query("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			to = &t
		}
	}
	return from, to
}
