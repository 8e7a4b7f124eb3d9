package handler

import (
	"net/http"
	"strconv"
	"time"

	"pharmacy/internal/auth"
	"pharmacy/internal/middleware"
	"pharmacy/internal/service"
	"pharmacy/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
	branches      *auth.BranchEvaluator
	pipeline      *middleware.Pipeline
}

func NewReportHandler(reportService service.ReportService, branches *auth.BranchEvaluator, pipeline *middleware.Pipeline) *ReportHandler {
	return &ReportHandler{reportService: reportService, branches: branches, pipeline: pipeline}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/api/v1/reports")
	{
		reports.GET("/sales-by-day", h.pipeline.Authorize("reports:read"), h.SalesByDay)
		reports.GET("/low-stock", h.pipeline.Authorize("reports:read"), h.LowStock)
		reports.GET("/near-expiry", h.pipeline.Authorize("reports:read"), h.NearExpiry)
	}
}

// SalesByDay returns daily sales totals per branch for a date range
// @Summary      Sales by day
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        from  query  string  false  "RFC 3339 start (default 30 days ago)"
// @Param        to    query  string  false  "RFC 3339 end (default now)"
// @Success      200  {object}  response.Response{data=[]repository.DailySalesTotal}
// @Router       /api/v1/reports/sales-by-day [get]
func (h *ReportHandler) SalesByDay(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}

	to := time.Now()
	from := to.AddDate(0, 0, -30)
	if raw := c.Query("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			from = t
		}
	}
	if raw := c.Query("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			to = t
		}
	}

	rows, err := h.reportService.SalesByDay(c.Request.Context(), scope.TenantID, scope.BranchFilter, from, to)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

func (h *ReportHandler) LowStock(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	medicines, err := h.reportService.LowStock(c.Request.Context(), scope.TenantID, scope.BranchFilter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, medicines))
}

func (h *ReportHandler) NearExpiry(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days < 1 {
		days = 30
	}
	medicines, err := h.reportService.NearExpiry(c.Request.Context(), scope.TenantID, scope.BranchFilter, days)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, medicines))
}
