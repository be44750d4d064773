package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	"github.com/sangkips/tillpoint-api/pkg/pagination"
)

// ProductRepository defines the interface for product data operations
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
	// LockByIDs loads the products with row locks held until the surrounding
	// transaction ends. Rows are locked in id order.
	LockByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params *ProductFilterParams) ([]entity.Product, int64, error)
	// Search matches name or SKU, capped at limit rows.
	Search(ctx context.Context, query string, limit int) ([]entity.Product, error)
	ListInStock(ctx context.Context) ([]entity.Product, error)
	ListLowStock(ctx context.Context, threshold int) ([]entity.Product, error)
	ListOutOfStock(ctx context.Context) ([]entity.Product, error)
	// DecrementStock subtracts amount only when enough stock is on hand.
	// Returns (false, nil) when stock is insufficient.
	DecrementStock(ctx context.Context, id uuid.UUID, amount int) (bool, error)
	TotalStock(ctx context.Context) (int64, error)
}

// ProductFilterParams contains filtering parameters for product queries
type ProductFilterParams struct {
	Pagination *pagination.PaginationParams
	// Search matches name, SKU or category
	Search    string
	Category  string
	LowStock  int
	SortBy    string
	SortOrder string
}
