package utils

import (
	"fmt"
	"strings"
)

// DefaultInvoicePrefix is prepended to every invoice number
const DefaultInvoicePrefix = "INV-"

// FormatInvoiceNumber renders a sequence value as an invoice number.
// The number is zero-padded to four digits and grows past that naturally:
// 1 -> INV-0001, 42 -> INV-0042, 10000 -> INV-10000.
func FormatInvoiceNumber(prefix string, seq int64) string {
	if prefix == "" {
		prefix = DefaultInvoicePrefix
	}
	return fmt.Sprintf("%s%04d", prefix, seq)
}

// NormalizePhone strips formatting characters so that "0712 345-678" and
// "0712345678" resolve to the same customer.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
