package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	"github.com/sangkips/tillpoint-api/internal/domain/repository"
	"github.com/sangkips/tillpoint-api/pkg/apperror"
	"github.com/sangkips/tillpoint-api/pkg/pagination"
)

// SaleService reads recorded sales
type SaleService struct {
	saleRepo repository.SaleRepository
}

// NewSaleService creates a new sale service
func NewSaleService(saleRepo repository.SaleRepository) *SaleService {
	return &SaleService{saleRepo: saleRepo}
}

// ListSalesInput filters the sales list. Dates are whole days, inclusive.
type ListSalesInput struct {
	Pagination *pagination.PaginationParams
	StartDate  *time.Time
	EndDate    *time.Time
	CashierID  *uuid.UUID
}

// ListSales lists sales newest first
func (s *SaleService) ListSales(ctx context.Context, input *ListSalesInput) (*pagination.PaginatedResult[entity.Sale], error) {
	if input.Pagination == nil {
		input.Pagination = pagination.DefaultPagination()
	}
	input.Pagination.Validate()

	from, to, err := dayRange(input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}

	sales, total, err := s.saleRepo.List(ctx, &repository.SaleFilterParams{
		Pagination: input.Pagination,
		CashierID:  input.CashierID,
		From:       from,
		To:         to,
	})
	if err != nil {
		return nil, err
	}
	pag := pagination.NewPagination(input.Pagination.Page, input.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(sales, pag), nil
}

// GetSale loads the invoice view of a sale
func (s *SaleService) GetSale(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
	sale, err := s.saleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, apperror.NewNotFoundError("Sale")
	}
	return sale, nil
}

// GetSaleByInvoice loads the invoice view by invoice number
func (s *SaleService) GetSaleByInvoice(ctx context.Context, invoiceNo string) (*entity.Sale, error) {
	invoiceNo = strings.ToUpper(strings.TrimSpace(invoiceNo))
	if invoiceNo == "" {
		return nil, apperror.NewBadRequestError("Invoice number is required")
	}
	sale, err := s.saleRepo.GetByInvoiceNo(ctx, invoiceNo)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, apperror.NewNotFoundError("Sale")
	}
	return sale, nil
}

// dayRange turns optional start/end dates into [start 00:00, end 23:59:59.999]
// in UTC. Either bound may be nil.
func dayRange(start, end *time.Time) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if start != nil {
		f := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		from = &f
	}
	if end != nil {
		t := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, 1).Add(-time.Nanosecond)
		to = &t
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, apperror.NewBadRequestError("end_date must not be before start_date")
	}
	return from, to, nil
}
