package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/internal/application/service"
	"github.com/sangkips/tillpoint-api/internal/presentation/http/dto/request"
	"github.com/sangkips/tillpoint-api/internal/presentation/http/dto/response"
	"github.com/sangkips/tillpoint-api/pkg/apperror"
)

// SaleHandler serves sale history, invoices and receipts
type SaleHandler struct {
	saleService    *service.SaleService
	printerService *service.PrinterService
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(saleService *service.SaleService, printerService *service.PrinterService) *SaleHandler {
	return &SaleHandler{saleService: saleService, printerService: printerService}
}

// List handles listing sales, newest first
func (h *SaleHandler) List(c *gin.Context) {
	var req request.ListSalesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
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

	input := &service.ListSalesInput{
		Pagination: pageParams(req.Page, req.PerPage),
		StartDate:  start,
		EndDate:    end,
	}
	if req.CashierID != "" {
		cashierID, err := uuid.Parse(req.CashierID)
		if err != nil {
			response.Error(c, apperror.NewBadRequestError("Invalid cashier_id format"))
			return
		}
		input.CashierID = &cashierID
	}

	result, err := h.saleService.ListSales(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Sales retrieved successfully", result)
}

// Get returns the invoice view of a sale
func (h *SaleHandler) Get(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	sale, err := h.saleService.GetSale(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Sale retrieved successfully", sale)
}

// GetByInvoice looks a sale up by its printed invoice number
func (h *SaleHandler) GetByInvoice(c *gin.Context) {
	sale, err := h.saleService.GetSaleByInvoice(c.Request.Context(), c.Param("invoice_no"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Sale retrieved successfully", sale)
}

// Receipt renders the receipt without printing it
func (h *SaleHandler) Receipt(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	view, err := h.printerService.Preview(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt generated", view)
}

// Print sends the receipt to the configured printer
func (h *SaleHandler) Print(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	view, err := h.printerService.PrintSale(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	if !view.Printed {
		response.OK(c, "No printer configured, receipt not sent", view)
		return
	}
	response.OK(c, "Receipt printed successfully", view)
}

// PrinterStatus reports whether the receipt printer is reachable
func (h *SaleHandler) PrinterStatus(c *gin.Context) {
	response.OK(c, "Printer status retrieved", h.printerService.GetStatus(c.Request.Context()))
}
