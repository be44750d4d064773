package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	"github.com/sangkips/tillpoint-api/internal/domain/repository"
	infraRepo "github.com/sangkips/tillpoint-api/internal/infrastructure/repository"
	"github.com/sangkips/tillpoint-api/pkg/apperror"
	"github.com/sangkips/tillpoint-api/pkg/money"
	"github.com/sangkips/tillpoint-api/pkg/pagination"
	"github.com/shopspring/decimal"
)

const productSearchLimit = 10

// ProductService handles product-related operations
type ProductService struct {
	productRepo repository.ProductRepository
}

// NewProductService creates a new product service
func NewProductService(productRepo repository.ProductRepository) *ProductService {
	return &ProductService{productRepo: productRepo}
}

// CreateProductInput represents the create product input
type CreateProductInput struct {
	Name         string
	SKU          string
	Category     string
	Supplier     *string
	Quantity     int
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
}

// UpdateProductInput represents the update product input. Nil fields are
// left unchanged.
type UpdateProductInput struct {
	Name         *string
	SKU          *string
	Category     *string
	Supplier     *string
	Quantity     *int
	CostPrice    *decimal.Decimal
	SellingPrice *decimal.Decimal
}

// ProductSuggestion is the compact form used by the billing search box
type ProductSuggestion struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	SKU   string    `json:"sku"`
	Price float64   `json:"price"`
}

func priceField(field string, d decimal.Decimal) (money.Cents, error) {
	c, err := money.ToCents(d)
	if err != nil {
		return 0, apperror.NewValidationError([]apperror.FieldError{{Field: field, Message: err.Error()}})
	}
	return c, nil
}

// CreateProduct creates a new product
func (s *ProductService) CreateProduct(ctx context.Context, input *CreateProductInput) (*entity.Product, error) {
	sku := strings.TrimSpace(input.SKU)
	if input.Quantity < 0 {
		return nil, apperror.NewValidationError([]apperror.FieldError{{Field: "quantity", Message: "must not be negative"}})
	}
	cost, err := priceField("cost_price", input.CostPrice)
	if err != nil {
		return nil, err
	}
	price, err := priceField("selling_price", input.SellingPrice)
	if err != nil {
		return nil, err
	}

	existing, err := s.productRepo.GetBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.NewConflictError("Product SKU already exists")
	}

	product := &entity.Product{
		Name:         strings.TrimSpace(input.Name),
		SKU:          sku,
		Category:     strings.TrimSpace(input.Category),
		Supplier:     trimmedOrNil(input.Supplier),
		Quantity:     input.Quantity,
		CostPrice:    cost,
		SellingPrice: price,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		if infraRepo.IsUniqueViolation(err) {
			return nil, apperror.NewConflictError("Product SKU already exists")
		}
		return nil, err
	}
	return product, nil
}

// GetProduct retrieves a product by ID
func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperror.NewNotFoundError("Product")
	}
	return product, nil
}

// ListProducts lists products with filtering
func (s *ProductService) ListProducts(ctx context.Context, params *repository.ProductFilterParams) (*pagination.PaginatedResult[entity.Product], error) {
	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}
	params.Pagination.Validate()

	products, total, err := s.productRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(products, pag), nil
}

// SearchProducts returns up to ten name or SKU matches
func (s *ProductService) SearchProducts(ctx context.Context, q string) ([]ProductSuggestion, error) {
	out := []ProductSuggestion{}
	if strings.TrimSpace(q) == "" {
		return out, nil
	}
	products, err := s.productRepo.Search(ctx, q, productSearchLimit)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out = append(out, ProductSuggestion{ID: p.ID, Name: p.Name, SKU: p.SKU, Price: p.SellingPrice.Float64()})
	}
	return out, nil
}

// AvailableProducts lists products that can be sold right now
func (s *ProductService) AvailableProducts(ctx context.Context) ([]entity.Product, error) {
	return s.productRepo.ListInStock(ctx)
}

// UpdateProduct updates an existing product
func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, input *UpdateProductInput) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperror.NewNotFoundError("Product")
	}

	if input.SKU != nil {
		sku := strings.TrimSpace(*input.SKU)
		if sku != product.SKU {
			existing, err := s.productRepo.GetBySKU(ctx, sku)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, apperror.NewConflictError("Product SKU already exists")
			}
			product.SKU = sku
		}
	}
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Category != nil {
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.Supplier != nil {
		product.Supplier = trimmedOrNil(input.Supplier)
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, apperror.NewValidationError([]apperror.FieldError{{Field: "quantity", Message: "must not be negative"}})
		}
		product.Quantity = *input.Quantity
	}
	if input.CostPrice != nil {
		if product.CostPrice, err = priceField("cost_price", *input.CostPrice); err != nil {
			return nil, err
		}
	}
	if input.SellingPrice != nil {
		if product.SellingPrice, err = priceField("selling_price", *input.SellingPrice); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		if infraRepo.IsUniqueViolation(err) {
			return nil, apperror.NewConflictError("Product SKU already exists")
		}
		return nil, err
	}
	return product, nil
}

// DeleteProduct soft-deletes a product. Past sale items keep pointing at it.
func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if product == nil {
		return apperror.NewNotFoundError("Product")
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product %s: %w", product.SKU, err)
	}
	return nil
}
