package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/pkg/money"
	"gorm.io/gorm"
)

// Product is a stock-keeping unit on the shop floor
type Product struct {
	ID           uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	Name         string         `gorm:"size:200;not null" json:"name"`
	SKU          string         `gorm:"column:sku;size:100;uniqueIndex;not null" json:"sku"`
	Category     string         `gorm:"size:100;not null;index" json:"category"`
	Supplier     *string        `gorm:"size:200" json:"supplier,omitempty"`
	Quantity     int            `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	CostPrice    money.Cents    `gorm:"not null;default:0" json:"cost_price"`
	SellingPrice money.Cents    `gorm:"not null;default:0" json:"selling_price"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate generates a UUID before creating a new product
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// IsLowStock reports whether quantity is under the alert threshold
func (p *Product) IsLowStock(threshold int) bool {
	return p.Quantity < threshold
}

// ProductJSON is the wire form of Product with decimal prices
type ProductJSON struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	SKU          string    `json:"sku"`
	Category     string    `json:"category"`
	Supplier     *string   `json:"supplier,omitempty"`
	Quantity     int       `json:"quantity"`
	CostPrice    float64   `json:"cost_price"`
	SellingPrice float64   `json:"selling_price"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MarshalJSON converts Product to JSON with decimal prices
func (p Product) MarshalJSON() ([]byte, error) {
	return json.Marshal(ProductJSON{
		ID:           p.ID,
		Name:         p.Name,
		SKU:          p.SKU,
		Category:     p.Category,
		Supplier:     p.Supplier,
		Quantity:     p.Quantity,
		CostPrice:    p.CostPrice.Float64(),
		SellingPrice: p.SellingPrice.Float64(),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	})
}
