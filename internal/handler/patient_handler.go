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

type PatientHandler struct {
	patientService service.PatientService
	branches       *auth.BranchEvaluator
	pipeline       *middleware.Pipeline
}

func NewPatientHandler(patientService service.PatientService, branches *auth.BranchEvaluator, pipeline *middleware.Pipeline) *PatientHandler {
	return &PatientHandler{patientService: patientService, branches: branches, pipeline: pipeline}
}

func (h *PatientHandler) RegisterRoutes(router *gin.RouterGroup) {
	patients := router.Group("/api/v1/patients")
	{
		patients.GET("", h.pipeline.Authorize("patients:read"), h.List)
		patients.POST("", h.pipeline.Authorize("patients:create"), h.Create)
		patients.GET("/:id", h.pipeline.Authorize("patients:read"), h.Get)
		patients.PUT("/:id", h.pipeline.Authorize("patients:update"), h.Update)
		patients.DELETE("/:id", h.pipeline.Authorize("patients:delete"), h.Delete)
	}
}

// List returns the tenant's patients, filtered to accessible branches
// @Summary      List patients
// @Tags         patients
// @Security     BearerAuth
// @Produce      json
// @Param        page    query  int     false  "Page number (default 1)"
// @Param        limit   query  int     false  "Items per page (default 20)"
// @Param        search  query  string  false  "Search by name, phone or code"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/v1/patients [get]
func (h *PatientHandler) List(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	params := pagination.Parse(c)

	patients, total, err := h.patientService.List(c.Request.Context(), scope.TenantID, scope.BranchFilter, c.Query("search"), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(patients, total, params)))
}

// Create registers a new patient at the effective branch
// @Summary      Create patient
// @Tags         patients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreatePatientRequest  true  "Patient"
// @Success      201      {object}  response.Response{data=model.Patient}
// @Router       /api/v1/patients [post]
func (h *PatientHandler) Create(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	var req service.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	patient, err := h.patientService.Create(c.Request.Context(), scope.TenantID, scope.BranchID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, patient))
}

func (h *PatientHandler) Get(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	patient, err := h.patientService.GetByID(c.Request.Context(), scope.TenantID, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, patient))
}

func (h *PatientHandler) Update(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	patient, err := h.patientService.Update(c.Request.Context(), scope.TenantID, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, patient))
}

func (h *PatientHandler) Delete(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.patientService.Delete(c.Request.Context(), scope.TenantID, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "patient deleted"}))
}
