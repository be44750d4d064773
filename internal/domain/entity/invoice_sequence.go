package entity

// InvoiceSequence is a named monotonically increasing counter. The billing
// transaction locks and increments the row, so each committed sale gets the
// next value.
type InvoiceSequence struct {
	Name  string `gorm:"size:50;primaryKey"`
	Value int64  `gorm:"not null;default:0"`
}

// SalesInvoiceSequence names the counter used for sale invoice numbers
const SalesInvoiceSequence = "sales"

// TableName returns the table name for the InvoiceSequence model
func (InvoiceSequence) TableName() string {
	return "invoice_sequences"
}
