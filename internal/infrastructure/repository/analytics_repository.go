package repository

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	domainRepo "github.com/sangkips/tillpoint-api/internal/domain/repository"
	"github.com/sangkips/tillpoint-api/pkg/money"
	"gorm.io/gorm"
)

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *gorm.DB) domainRepo.AnalyticsRepository {
	return &analyticsRepository{db: db}
}

// SUM comes back as NUMERIC on PostgreSQL and DECIMAL on MySQL, so
// aggregates are scanned as float64 and rounded back to cents.
func toCents(f float64) money.Cents {
	return money.Cents(math.Round(f))
}

func (r *analyticsRepository) SalesBetween(ctx context.Context, from, to time.Time) (domainRepo.SalesSummary, error) {
	var row struct {
		Total float64
		Count int64
	}
	err := dbFrom(ctx, r.db).Raw(`
		SELECT COALESCE(SUM(total_amount), 0) AS total, COUNT(*) AS count
		FROM sales
		WHERE created_at >= ? AND created_at < ?
	`, from.UTC(), to.UTC()).Scan(&row).Error
	if err != nil {
		return domainRepo.SalesSummary{}, err
	}
	return domainRepo.SalesSummary{Total: toCents(row.Total), Count: row.Count}, nil
}

func (r *analyticsRepository) TopProducts(ctx context.Context, since time.Time, limit int) ([]domainRepo.TopProductResult, error) {
	var rows []struct {
		ProductID   uuid.UUID
		ProductName string
		SKU         string `gorm:"column:sku"`
		TotalSold   int64
		Revenue     float64
	}

	err := dbFrom(ctx, r.db).Raw(`
		SELECT
			p.id AS product_id,
			p.name AS product_name,
			p.sku AS sku,
			SUM(si.quantity_sold) AS total_sold,
			SUM(si.subtotal) AS revenue
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		JOIN products p ON p.id = si.product_id
		WHERE s.created_at >= ?
		GROUP BY p.id, p.name, p.sku
		ORDER BY total_sold DESC, p.name ASC
		LIMIT ?
	`, since.UTC(), limit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	results := make([]domainRepo.TopProductResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, domainRepo.TopProductResult{
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			SKU:         row.SKU,
			TotalSold:   row.TotalSold,
			Revenue:     toCents(row.Revenue),
		})
	}
	return results, nil
}

// DailySales issues one SalesBetween per UTC day. Grouping by date needs
// dialect-specific SQL, and the window is a week.
func (r *analyticsRepository) DailySales(ctx context.Context, from, to time.Time) ([]domainRepo.DailySalesResult, error) {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	var results []domainRepo.DailySalesResult
	for day := start; day.Before(to); day = day.AddDate(0, 0, 1) {
		summary, err := r.SalesBetween(ctx, day, day.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		results = append(results, domainRepo.DailySalesResult{
			Date:  day,
			Total: summary.Total,
			Count: summary.Count,
		})
	}
	return results, nil
}
