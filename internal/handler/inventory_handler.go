package handler

import (
	"net/http"
	"strconv"

	"pharmacy/internal/auth"
	"pharmacy/internal/middleware"
	"pharmacy/internal/service"
	"pharmacy/pkg/pagination"
	"pharmacy/pkg/response"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
	branches         *auth.BranchEvaluator
	pipeline         *middleware.Pipeline
}

func NewInventoryHandler(inventoryService service.InventoryService, branches *auth.BranchEvaluator, pipeline *middleware.Pipeline) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService, branches: branches, pipeline: pipeline}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	medicines := router.Group("/api/v1/medicines")
	{
		medicines.GET("", h.pipeline.Authorize("medicines:read"), h.List)
		medicines.POST("", h.pipeline.Authorize("medicines:create"), h.Create)
		medicines.GET("/low-stock", h.pipeline.Authorize("medicines:read"), h.ListLowStock)
		medicines.GET("/near-expiry", h.pipeline.Authorize("medicines:read"), h.ListNearExpiry)
		medicines.GET("/:id", h.pipeline.Authorize("medicines:read"), h.Get)
		medicines.PUT("/:id", h.pipeline.Authorize("medicines:update"), h.Update)
		medicines.DELETE("/:id", h.pipeline.Authorize("medicines:delete"), h.Delete)
		medicines.POST("/:id/adjust", h.pipeline.Authorize("medicines:adjust"), h.AdjustStock)
	}
}

// List returns the tenant's medicines, filtered to accessible branches
// @Summary      List medicines
// @Description  Retrieves a paginated, branch-filtered list of the tenant's stock
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        page    query  int     false  "Page number (default 1)"
// @Param        limit   query  int     false  "Items per page (default 20)"
// @Param        search  query  string  false  "Search by name or barcode"
// @Success      200  {object}  response.Response{data=object}
// @Failure      403  {object}  response.Response
// @Router       /api/v1/medicines [get]
func (h *InventoryHandler) List(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	params := pagination.Parse(c)

	medicines, total, err := h.inventoryService.List(c.Request.Context(), scope.TenantID, scope.BranchFilter, c.Query("search"), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(medicines, total, params)))
}

// Create adds a medicine to the effective branch's stock
// @Summary      Create medicine
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateMedicineRequest  true  "Medicine"
// @Success      201      {object}  response.Response{data=model.Medicine}
// @Failure      400      {object}  response.Response
// @Router       /api/v1/medicines [post]
func (h *InventoryHandler) Create(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	var req service.CreateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	medicine, err := h.inventoryService.Create(c.Request.Context(), scope.TenantID, scope.BranchID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, medicine))
}

// ListLowStock returns items at or below their reorder level
// @Summary      Low stock report
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Medicine}
// @Router       /api/v1/medicines/low-stock [get]
func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	medicines, err := h.inventoryService.ListLowStock(c.Request.Context(), scope.TenantID, scope.BranchFilter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, medicines))
}

// ListNearExpiry returns items expiring within the given window
// @Summary      Near-expiry report
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        days  query  int  false  "Window in days (default 30)"
// @Success      200  {object}  response.Response{data=[]model.Medicine}
// @Router       /api/v1/medicines/near-expiry [get]
func (h *InventoryHandler) ListNearExpiry(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days < 1 {
		days = 30
	}
	medicines, err := h.inventoryService.ListNearExpiry(c.Request.Context(), scope.TenantID, scope.BranchFilter, days)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, medicines))
}

func (h *InventoryHandler) Get(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	medicine, err := h.inventoryService.GetByID(c.Request.Context(), scope.TenantID, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, medicine))
}

func (h *InventoryHandler) Update(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	medicine, err := h.inventoryService.Update(c.Request.Context(), scope.TenantID, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, medicine))
}

func (h *InventoryHandler) Delete(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.inventoryService.Delete(c.Request.Context(), scope.TenantID, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "medicine deleted"}))
}

// AdjustStock applies a manual stock movement (restock, correction, write-off)
// @Summary      Adjust stock
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Medicine id"
// @Param        payload  body      service.AdjustStockRequest  true  "Adjustment"
// @Success      200      {object}  response.Response{data=model.Medicine}
// @Failure      409      {object}  response.Response
// @Router       /api/v1/medicines/{id}/adjust [post]
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	medicine, err := h.inventoryService.AdjustStock(c.Request.Context(), scope.TenantID, id, scope.Principal.SubjectID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, medicine))
}
