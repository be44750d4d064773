package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	"github.com/sangkips/tillpoint-api/internal/domain/repository"
	"github.com/sangkips/tillpoint-api/pkg/apperror"
	"github.com/sangkips/tillpoint-api/pkg/logger"
	"github.com/sangkips/tillpoint-api/pkg/printer"
	"go.uber.org/zap"
)

// receiptDateLayout matches the date format of the sales export
const receiptDateLayout = "2006-01-02 15:04"

// PrinterService handles receipt formatting and thermal printing.
type PrinterService struct {
	printer  printer.Printer
	saleRepo repository.SaleRepository
	header   entity.ReceiptHeader
	width    int
	log      *zap.Logger
}

// NewPrinterService creates a new printer service.
func NewPrinterService(p printer.Printer, saleRepo repository.SaleRepository, header entity.ReceiptHeader, width int, log *zap.Logger) *PrinterService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PrinterService{
		printer:  p,
		saleRepo: saleRepo,
		header:   header,
		width:    width,
		log:      log,
	}
}

// PrinterStatus returns the current printer status information.
type PrinterStatus struct {
	Configured bool   `json:"configured"`
	Connected  bool   `json:"connected"`
	Type       string `json:"type"`
}

// ReceiptView is a receipt plus its plain-text rendering
type ReceiptView struct {
	Receipt *entity.Receipt `json:"receipt"`
	Text    string          `json:"text"`
	Printed bool            `json:"printed"`
}

// GetStatus returns printer connection status.
func (s *PrinterService) GetStatus(ctx context.Context) *PrinterStatus {
	kind := s.printer.Kind()
	return &PrinterStatus{
		Configured: kind != "none",
		Connected:  s.printer.Ready(ctx),
		Type:       kind,
	}
}

// BuildReceipt composes the receipt of a stored sale
func (s *PrinterService) BuildReceipt(ctx context.Context, saleID uuid.UUID) (*entity.Receipt, error) {
	sale, err := s.saleRepo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, apperror.NewNotFoundError("Sale")
	}
	return ReceiptFromSale(s.header, sale), nil
}

// Preview renders the receipt without printing it
func (s *PrinterService) Preview(ctx context.Context, saleID uuid.UUID) (*ReceiptView, error) {
	receipt, err := s.BuildReceipt(ctx, saleID)
	if err != nil {
		return nil, err
	}
	doc := FormatReceipt(receipt, s.width)
	return &ReceiptView{Receipt: receipt, Text: doc.Plain()}, nil
}

// PrintSale sends the sale's receipt to the configured printer. With no
// printer configured the preview is returned and nothing is sent.
func (s *PrinterService) PrintSale(ctx context.Context, saleID uuid.UUID) (*ReceiptView, error) {
	receipt, err := s.BuildReceipt(ctx, saleID)
	if err != nil {
		return nil, err
	}
	doc := FormatReceipt(receipt, s.width)
	view := &ReceiptView{Receipt: receipt, Text: doc.Plain()}

	if s.printer.Kind() == "none" {
		return view, nil
	}
	if err := s.printer.Print(ctx, doc.Bytes()); err != nil {
		logger.FromContext(ctx, s.log).Error("receipt print failed",
			zap.String("invoice_no", receipt.InvoiceNo),
			zap.String("printer", s.printer.Kind()),
			zap.Error(err),
		)
		return view, apperror.NewAppError(502, fmt.Sprintf("Printer error: %v", err))
	}
	view.Printed = true
	return view, nil
}

// ReceiptFromSale snapshots a loaded sale into printable strings
func ReceiptFromSale(header entity.ReceiptHeader, sale *entity.Sale) *entity.Receipt {
	r := &entity.Receipt{
		Header:        header,
		InvoiceNo:     sale.InvoiceNo,
		Date:          sale.CreatedAt.Format(receiptDateLayout),
		Cashier:       sale.CashierName(),
		Customer:      sale.CustomerName(),
		PaymentMethod: sale.PaymentMethod.Label(),
		Total:         sale.TotalAmount.String(),
		Lines:         make([]entity.ReceiptLine, 0, len(sale.Items)),
	}
	for _, it := range sale.Items {
		name := "Product"
		if it.Product != nil && it.Product.Name != "" {
			name = it.Product.Name
		}
		r.Lines = append(r.Lines, entity.ReceiptLine{
			Name:      name,
			Quantity:  it.QuantitySold,
			UnitPrice: it.UnitPrice.String(),
			Subtotal:  it.Subtotal.String(),
		})
	}
	return r
}

// FormatReceipt lays a receipt out as an ESC/POS document
func FormatReceipt(r *entity.Receipt, width int) *printer.Document {
	doc := printer.NewDocument(width)

	doc.Align(printer.AlignCenter).
		Bold(true).
		Size(printer.SizeDouble).
		Line(r.Header.StoreName).
		Size(printer.SizeNormal).
		Bold(false)
	if r.Header.Address != "" {
		doc.Line(r.Header.Address)
	}
	if r.Header.Phone != "" {
		doc.Line(r.Header.Phone)
	}

	doc.Align(printer.AlignLeft).Rule('-')
	doc.Columns("Invoice:", r.InvoiceNo).
		Columns("Date:", r.Date).
		Columns("Cashier:", r.Cashier).
		Columns("Customer:", r.Customer).
		Columns("Payment:", r.PaymentMethod).
		Rule('-')

	for _, l := range r.Lines {
		doc.Columns(fmt.Sprintf("%dx %s", l.Quantity, l.Name), l.Subtotal)
		if l.Quantity > 1 {
			doc.Linef("  @ %s each", l.UnitPrice)
		}
	}

	doc.Rule('-').
		Bold(true).
		Columns("TOTAL:", r.Total).
		Bold(false).
		Rule('-')

	doc.Align(printer.AlignCenter).
		Feed(1).
		Line("Thank you for shopping with us!").
		Align(printer.AlignLeft).
		Feed(3).
		Cut()

	return doc
}
