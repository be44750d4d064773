package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/internal/domain/enum"
	"github.com/sangkips/tillpoint-api/pkg/money"
	"gorm.io/gorm"
)

// Sale is a completed checkout. Sales and their items are never updated.
type Sale struct {
	ID            uuid.UUID          `gorm:"type:char(36);primaryKey" json:"id"`
	InvoiceNo     string             `gorm:"size:50;uniqueIndex;not null" json:"invoice_no"`
	CashierID     uuid.UUID          `gorm:"type:char(36);not null;index" json:"cashier_id"`
	CustomerID    *uuid.UUID         `gorm:"type:char(36);index" json:"customer_id,omitempty"`
	TotalAmount   money.Cents        `gorm:"not null" json:"total_amount"`
	PaymentMethod enum.PaymentMethod `gorm:"size:10;not null;default:'cash'" json:"payment_method"`
	CreatedAt     time.Time          `gorm:"index" json:"date"`

	Cashier  *User      `gorm:"foreignKey:CashierID" json:"cashier,omitempty"`
	Customer *Customer  `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Items    []SaleItem `gorm:"foreignKey:SaleID" json:"items,omitempty"`
}

// BeforeCreate generates a UUID before creating a new sale
func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Sale model
func (Sale) TableName() string {
	return "sales"
}

// CustomerName returns the customer's name or "Walk-in"
func (s *Sale) CustomerName() string {
	if s.Customer == nil {
		return "Walk-in"
	}
	return s.Customer.Name
}

// CashierName returns the cashier's username when loaded
func (s *Sale) CashierName() string {
	if s.Cashier == nil {
		return ""
	}
	return s.Cashier.Username
}

// ItemsTotal sums the line subtotals
func (s *Sale) ItemsTotal() money.Cents {
	var sum money.Cents
	for _, it := range s.Items {
		sum += it.Subtotal
	}
	return sum
}

type saleJSON struct {
	ID            uuid.UUID          `json:"id"`
	InvoiceNo     string             `json:"invoice_no"`
	Date          time.Time          `json:"date"`
	CashierID     uuid.UUID          `json:"cashier_id"`
	Cashier       string             `json:"cashier,omitempty"`
	CustomerID    *uuid.UUID         `json:"customer_id,omitempty"`
	Customer      *Customer          `json:"customer,omitempty"`
	CustomerName  string             `json:"customer_name"`
	TotalAmount   float64            `json:"total_amount"`
	PaymentMethod enum.PaymentMethod `json:"payment_method"`
	PaymentLabel  string             `json:"payment_method_display"`
	Items         []SaleItem         `json:"items,omitempty"`
}

// MarshalJSON renders amounts as decimals
func (s Sale) MarshalJSON() ([]byte, error) {
	return json.Marshal(saleJSON{
		ID:            s.ID,
		InvoiceNo:     s.InvoiceNo,
		Date:          s.CreatedAt,
		CashierID:     s.CashierID,
		Cashier:       s.CashierName(),
		CustomerID:    s.CustomerID,
		Customer:      s.Customer,
		CustomerName:  s.CustomerName(),
		TotalAmount:   s.TotalAmount.Float64(),
		PaymentMethod: s.PaymentMethod,
		PaymentLabel:  s.PaymentMethod.Label(),
		Items:         s.Items,
	})
}

// SaleItem is one line of a sale. Price fields are snapshots taken at
// checkout and do not follow later product price changes.
type SaleItem struct {
	ID           uuid.UUID   `gorm:"type:char(36);primaryKey" json:"id"`
	SaleID       uuid.UUID   `gorm:"type:char(36);not null;index" json:"sale_id"`
	ProductID    uuid.UUID   `gorm:"type:char(36);not null;index" json:"product_id"`
	QuantitySold int         `gorm:"not null;check:quantity_sold > 0" json:"quantity_sold"`
	UnitPrice    money.Cents `gorm:"not null" json:"unit_price"`
	Subtotal     money.Cents `gorm:"not null" json:"subtotal"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// BeforeCreate generates a UUID before creating a new sale item
func (i *SaleItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the SaleItem model
func (SaleItem) TableName() string {
	return "sale_items"
}

type saleItemJSON struct {
	ID           uuid.UUID `json:"id"`
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name,omitempty"`
	SKU          string    `json:"sku,omitempty"`
	QuantitySold int       `json:"quantity_sold"`
	UnitPrice    float64   `json:"unit_price"`
	Subtotal     float64   `json:"subtotal"`
}

// MarshalJSON renders amounts as decimals
func (i SaleItem) MarshalJSON() ([]byte, error) {
	out := saleItemJSON{
		ID:           i.ID,
		ProductID:    i.ProductID,
		QuantitySold: i.QuantitySold,
		UnitPrice:    i.UnitPrice.Float64(),
		Subtotal:     i.Subtotal.Float64(),
	}
	if i.Product != nil {
		out.ProductName = i.Product.Name
		out.SKU = i.Product.SKU
	}
	return json.Marshal(out)
}
