package request

import "github.com/shopspring/decimal"

// CreateProductRequest represents a product creation request
type CreateProductRequest struct {
	Name         string          `json:"name" binding:"required,min=1,max=200"`
	SKU          string          `json:"sku" binding:"required,max=100"`
	Category     string          `json:"category" binding:"required,max=100"`
	Supplier     *string         `json:"supplier" binding:"omitempty,max=200"`
	Quantity     int             `json:"quantity" binding:"min=0"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

// UpdateProductRequest represents a product update request
type UpdateProductRequest struct {
	Name         *string          `json:"name" binding:"omitempty,min=1,max=200"`
	SKU          *string          `json:"sku" binding:"omitempty,min=1,max=100"`
	Category     *string          `json:"category" binding:"omitempty,min=1,max=100"`
	Supplier     *string          `json:"supplier" binding:"omitempty,max=200"`
	Quantity     *int             `json:"quantity" binding:"omitempty,min=0"`
	CostPrice    *decimal.Decimal `json:"cost_price"`
	SellingPrice *decimal.Decimal `json:"selling_price"`
}

// ProductFilterRequest represents product filter parameters
type ProductFilterRequest struct {
	Search    string `form:"q"`
	Category  string `form:"category"`
	LowStock  int    `form:"low_stock" binding:"min=0"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
	Page      int    `form:"page"`
	PerPage   int    `form:"per_page"`
}
