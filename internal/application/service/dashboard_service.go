package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	"github.com/sangkips/tillpoint-api/internal/domain/repository"
)

const (
	topProductsLimit  = 5
	topProductsWindow = 30
	dailySeriesDays   = 7
)

// DashboardService provides dashboard statistics
type DashboardService struct {
	analyticsRepo     repository.AnalyticsRepository
	productRepo       repository.ProductRepository
	lowStockThreshold int
	now               func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	analyticsRepo repository.AnalyticsRepository,
	productRepo repository.ProductRepository,
	lowStockThreshold int,
) *DashboardService {
	return &DashboardService{
		analyticsRepo:     analyticsRepo,
		productRepo:       productRepo,
		lowStockThreshold: lowStockThreshold,
		now:               time.Now,
	}
}

// DashboardStats represents dashboard statistics
type DashboardStats struct {
	TodaySales      float64           `json:"today_sales"`
	TodaySalesCount int64             `json:"today_sales_count"`
	TotalStock      int64             `json:"total_stock"`
	TopProducts     []TopProductPoint `json:"top_products"`
	LowStock        []entity.Product  `json:"low_stock_products"`
	DailySalesData  []DailySalesPoint `json:"daily_sales_data"`
}

// TopProductPoint is a best seller over the last 30 days
type TopProductPoint struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku"`
	TotalSold int64     `json:"total_sold"`
	Revenue   float64   `json:"revenue"`
}

// DailySalesPoint represents a daily sales data point
type DailySalesPoint struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

// GetDashboardStats returns dashboard statistics. Days are UTC days.
func (s *DashboardService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	stats := &DashboardStats{}

	summary, err := s.analyticsRepo.SalesBetween(ctx, today, tomorrow)
	if err != nil {
		return nil, err
	}
	stats.TodaySales = summary.Total.Float64()
	stats.TodaySalesCount = summary.Count

	if stats.TotalStock, err = s.productRepo.TotalStock(ctx); err != nil {
		return nil, err
	}

	top, err := s.analyticsRepo.TopProducts(ctx, today.AddDate(0, 0, -topProductsWindow), topProductsLimit)
	if err != nil {
		return nil, err
	}
	stats.TopProducts = make([]TopProductPoint, 0, len(top))
	for _, t := range top {
		stats.TopProducts = append(stats.TopProducts, TopProductPoint{
			ProductID: t.ProductID,
			Name:      t.ProductName,
			SKU:       t.SKU,
			TotalSold: t.TotalSold,
			Revenue:   t.Revenue.Float64(),
		})
	}

	if stats.LowStock, err = s.productRepo.ListLowStock(ctx, s.lowStockThreshold); err != nil {
		return nil, err
	}

	daily, err := s.analyticsRepo.DailySales(ctx, today.AddDate(0, 0, -(dailySeriesDays-1)), tomorrow)
	if err != nil {
		return nil, err
	}
	stats.DailySalesData = make([]DailySalesPoint, 0, len(daily))
	for _, d := range daily {
		stats.DailySalesData = append(stats.DailySalesData, DailySalesPoint{
			Date:  d.Date.Format("2006-01-02"),
			Total: d.Total.Float64(),
			Count: d.Count,
		})
	}

	return stats, nil
}
