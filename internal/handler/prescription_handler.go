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

type PrescriptionHandler struct {
	prescriptionService service.PrescriptionService
	branches            *auth.BranchEvaluator
	pipeline            *middleware.Pipeline
}

func NewPrescriptionHandler(prescriptionService service.PrescriptionService, branches *auth.BranchEvaluator, pipeline *middleware.Pipeline) *PrescriptionHandler {
	return &PrescriptionHandler{prescriptionService: prescriptionService, branches: branches, pipeline: pipeline}
}

func (h *PrescriptionHandler) RegisterRoutes(router *gin.RouterGroup) {
	prescriptions := router.Group("/api/v1/prescriptions")
	{
		prescriptions.GET("", h.pipeline.Authorize("prescriptions:read"), h.List)
		prescriptions.POST("", h.pipeline.Authorize("prescriptions:create"), h.Create)
		prescriptions.GET("/:id", h.pipeline.Authorize("prescriptions:read"), h.Get)
		prescriptions.POST("/:id/dispense", h.pipeline.Authorize("prescriptions:dispense"), h.Dispense)
		prescriptions.POST("/:id/cancel", h.pipeline.Authorize("prescriptions:update"), h.Cancel)
	}
}

// List returns the tenant's prescriptions, filtered to accessible branches
// @Summary      List prescriptions
// @Tags         prescriptions
// @Security     BearerAuth
// @Produce      json
// @Param        status  query  string  false  "Filter by status (PENDING, DISPENSED, CANCELLED)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/v1/prescriptions [get]
func (h *PrescriptionHandler) List(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	params := pagination.Parse(c)

	prescriptions, total, err := h.prescriptionService.List(c.Request.Context(), scope.TenantID, scope.BranchFilter, c.Query("status"), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(prescriptions, total, params)))
}

func (h *PrescriptionHandler) Create(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	var req service.CreatePrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	rx, err := h.prescriptionService.Create(c.Request.Context(), scope.TenantID, scope.BranchID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rx))
}

func (h *PrescriptionHandler) Get(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	rx, err := h.prescriptionService.GetByID(c.Request.Context(), scope.TenantID, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rx))
}

// Dispense hands over the prescribed medicines and decrements stock
// @Summary      Dispense prescription
// @Tags         prescriptions
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Prescription id"
// @Success      200  {object}  response.Response{data=model.Prescription}
// @Failure      409  {object}  response.Response  "Already dispensed or insufficient stock"
// @Router       /api/v1/prescriptions/{id}/dispense [post]
func (h *PrescriptionHandler) Dispense(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	rx, err := h.prescriptionService.Dispense(c.Request.Context(), scope.TenantID, id, scope.Principal)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rx))
}

func (h *PrescriptionHandler) Cancel(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	rx, err := h.prescriptionService.Cancel(c.Request.Context(), scope.TenantID, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rx))
}
