package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/tillpoint-api/internal/application/service"
	"github.com/sangkips/tillpoint-api/internal/presentation/http/dto/request"
	"github.com/sangkips/tillpoint-api/internal/presentation/http/dto/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves the reports page, the export and the dashboard
type ReportHandler struct {
	reportService    *service.ReportService
	dashboardService *service.DashboardService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *service.ReportService, dashboardService *service.DashboardService) *ReportHandler {
	return &ReportHandler{reportService: reportService, dashboardService: dashboardService}
}

func bindDateRange(c *gin.Context) (*request.DateRangeRequest, bool) {
	var req request.DateRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return nil, false
	}
	return &req, true
}

// Sales returns the sales report with stock alerts
func (h *ReportHandler) Sales(c *gin.Context) {
	req, ok := bindDateRange(c)
	if !ok {
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		response.Error(c, err)
		return
	}

	report, err := h.reportService.SalesReport(c.Request.Context(), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Sales report generated", report)
}

// ExportSales downloads the sales report as an Excel workbook
func (h *ReportHandler) ExportSales(c *gin.Context) {
	req, ok := bindDateRange(c)
	if !ok {
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		response.Error(c, err)
		return
	}

	data, err := h.reportService.ExportSales(c.Request.Context(), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+service.SalesReportFilename)
	c.Data(200, xlsxContentType, data)
}

// Dashboard handles getting dashboard statistics
func (h *ReportHandler) Dashboard(c *gin.Context) {
	stats, err := h.dashboardService.GetDashboardStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Dashboard stats retrieved successfully", stats)
}
