package entity

// ReceiptHeader holds the store details printed at the top of a receipt.
type ReceiptHeader struct {
	StoreName string `json:"store_name"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// ReceiptLine is a single printed line item.
type ReceiptLine struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

// Receipt is composed from a persisted sale at print time; it is not stored.
type Receipt struct {
	Header        ReceiptHeader `json:"header"`
	InvoiceNo     string        `json:"invoice_no"`
	Date          string        `json:"date"`
	Cashier       string        `json:"cashier"`
	Customer      string        `json:"customer"`
	PaymentMethod string        `json:"payment_method"`
	Lines         []ReceiptLine `json:"lines"`
	Total         string        `json:"total"`
}
