package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	"github.com/sangkips/tillpoint-api/internal/domain/enum"
	"github.com/sangkips/tillpoint-api/internal/domain/repository"
	"github.com/xuri/excelize/v2"
)

const (
	// SalesReportFilename is the download name of the sales export
	SalesReportFilename = "sales_report.xlsx"
	salesReportSheet    = "Sales Report"
	exportDateLayout    = "2006-01-02 15:04"
)

var salesReportHeaders = []string{"Invoice No", "Date", "Cashier", "Customer", "Total Amount", "Payment Method"}

// ReportService builds sales and stock reports
type ReportService struct {
	reportRepo        repository.ReportRepository
	productRepo       repository.ProductRepository
	lowStockThreshold int
}

// NewReportService creates a new report service
func NewReportService(reportRepo repository.ReportRepository, productRepo repository.ProductRepository, lowStockThreshold int) *ReportService {
	return &ReportService{
		reportRepo:        reportRepo,
		productRepo:       productRepo,
		lowStockThreshold: lowStockThreshold,
	}
}

// SalesReportRow is one sale in the report response
type SalesReportRow struct {
	SaleID        string  `json:"sale_id"`
	InvoiceNo     string  `json:"invoice_no"`
	Date          string  `json:"date"`
	Cashier       string  `json:"cashier"`
	Customer      string  `json:"customer"`
	TotalAmount   float64 `json:"total_amount"`
	PaymentMethod string  `json:"payment_method"`
	ItemCount     int64   `json:"item_count"`
}

// SalesReport is the reports page payload
type SalesReport struct {
	StartDate       string           `json:"start_date,omitempty"`
	EndDate         string           `json:"end_date,omitempty"`
	TotalSales      float64          `json:"total_sales"`
	SalesCount      int              `json:"sales_count"`
	Sales           []SalesReportRow `json:"sales"`
	LowStock        []entity.Product `json:"low_stock_products"`
	OutOfStock      []entity.Product `json:"out_of_stock_products"`
	LowStockTrigger int              `json:"low_stock_threshold"`
}

// SalesReport lists sales in the optional date range with stock alerts.
// The range applies only when both dates are given.
func (s *ReportService) SalesReport(ctx context.Context, start, end *time.Time) (*SalesReport, error) {
	rows, err := s.salesRows(ctx, start, end)
	if err != nil {
		return nil, err
	}

	report := &SalesReport{
		Sales:           make([]SalesReportRow, 0, len(rows)),
		LowStockTrigger: s.lowStockThreshold,
	}
	if start != nil && end != nil {
		report.StartDate = start.Format("2006-01-02")
		report.EndDate = end.Format("2006-01-02")
	}

	var total int64
	for _, r := range rows {
		total += int64(r.Total)
		report.Sales = append(report.Sales, SalesReportRow{
			SaleID:        r.SaleID.String(),
			InvoiceNo:     r.InvoiceNo,
			Date:          r.Date.UTC().Format(exportDateLayout),
			Cashier:       r.Cashier,
			Customer:      r.Customer,
			TotalAmount:   r.Total.Float64(),
			PaymentMethod: paymentLabel(r.PaymentMethod),
			ItemCount:     r.ItemCount,
		})
	}
	report.SalesCount = len(rows)
	report.TotalSales = float64(total) / 100

	if report.LowStock, err = s.productRepo.ListLowStock(ctx, s.lowStockThreshold); err != nil {
		return nil, err
	}
	if report.OutOfStock, err = s.productRepo.ListOutOfStock(ctx); err != nil {
		return nil, err
	}
	return report, nil
}

// ExportSales renders the sales in range as an xlsx workbook
func (s *ReportService) ExportSales(ctx context.Context, start, end *time.Time) ([]byte, error) {
	rows, err := s.salesRows(ctx, start, end)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", salesReportSheet); err != nil {
		return nil, err
	}
	for i, h := range salesReportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(salesReportSheet, cell, h); err != nil {
			return nil, err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(salesReportSheet, 1, 1, bold); err != nil {
		return nil, err
	}

	for i, r := range rows {
		row := i + 2
		values := []interface{}{
			r.InvoiceNo,
			r.Date.UTC().Format(exportDateLayout),
			r.Cashier,
			r.Customer,
			r.Total.Float64(),
			paymentLabel(r.PaymentMethod),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(salesReportSheet, cell, v); err != nil {
				return nil, fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}
	_ = f.SetColWidth(salesReportSheet, "A", "F", 18)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *ReportService) salesRows(ctx context.Context, start, end *time.Time) ([]repository.SalesReportRow, error) {
	if start == nil || end == nil {
		return s.reportRepo.SalesReport(ctx, nil, nil)
	}
	from, to, err := dayRange(start, end)
	if err != nil {
		return nil, err
	}
	return s.reportRepo.SalesReport(ctx, from, to)
}

func paymentLabel(method string) string {
	m, err := enum.ParsePaymentMethod(method)
	if err != nil {
		return method
	}
	return m.Label()
}
