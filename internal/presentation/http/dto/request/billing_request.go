package request

import "github.com/shopspring/decimal"

// BillCustomerRequest is the optional shopper block of a checkout
type BillCustomerRequest struct {
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
}

// BillItemRequest is one cart line. Amounts may be sent as JSON numbers or
// strings.
type BillItemRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// BillRequest is the checkout body submitted by the till
type BillRequest struct {
	Customer      *BillCustomerRequest `json:"customer"`
	PaymentMethod string               `json:"payment_method"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	Items         []BillItemRequest    `json:"items"`
}
