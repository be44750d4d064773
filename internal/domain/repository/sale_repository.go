package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	"github.com/sangkips/tillpoint-api/pkg/pagination"
)

// SaleRepository defines the interface for sale data operations.
// Sales are append-only: there is no update or delete.
type SaleRepository interface {
	// Create inserts the sale and its items
	Create(ctx context.Context, sale *entity.Sale) error
	// GetByID loads the sale with items, products, cashier and customer
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Sale, error)
	GetByInvoiceNo(ctx context.Context, invoiceNo string) (*entity.Sale, error)
	List(ctx context.Context, params *SaleFilterParams) ([]entity.Sale, int64, error)
}

// SaleFilterParams narrows sale listings. From and To are inclusive bounds
// on the sale timestamp.
type SaleFilterParams struct {
	Pagination *pagination.PaginationParams
	CustomerID *uuid.UUID
	CashierID  *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// InvoiceSequenceRepository hands out invoice sequence values
type InvoiceSequenceRepository interface {
	// Next increments the named counter and returns the new value. It must be
	// called inside a transaction; the counter row stays locked until commit.
	Next(ctx context.Context, name string) (int64, error)
}
