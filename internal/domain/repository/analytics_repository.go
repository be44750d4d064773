package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/pkg/money"
)

// TopProductResult is a product ranked by units sold
type TopProductResult struct {
	ProductID   uuid.UUID
	ProductName string
	SKU         string
	TotalSold   int64
	Revenue     money.Cents
}

// DailySalesResult is the sales total for one calendar day
type DailySalesResult struct {
	Date  time.Time
	Total money.Cents
	Count int64
}

// SalesSummary aggregates the sales in a time window
type SalesSummary struct {
	Total money.Cents
	Count int64
}

// AnalyticsRepository runs the dashboard aggregate queries
type AnalyticsRepository interface {
	// SalesBetween sums sales with from <= created_at < to
	SalesBetween(ctx context.Context, from, to time.Time) (SalesSummary, error)
	// TopProducts ranks products by units sold since the given time
	TopProducts(ctx context.Context, since time.Time, limit int) ([]TopProductResult, error)
	// DailySales returns one entry per day in [from, to), zero-filled
	DailySales(ctx context.Context, from, to time.Time) ([]DailySalesResult, error)
}

// SalesReportRow is one sale as exported in the sales report
type SalesReportRow struct {
	SaleID        uuid.UUID
	InvoiceNo     string
	Date          time.Time
	Cashier       string
	Customer      string
	Total         money.Cents
	PaymentMethod string
	ItemCount     int64
}

// ReportRepository reads sale history for reports and exports
type ReportRepository interface {
	// SalesReport lists sales newest first; nil bounds mean unbounded
	SalesReport(ctx context.Context, from, to *time.Time) ([]SalesReportRow, error)
}
