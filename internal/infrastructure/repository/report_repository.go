package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	domainRepo "github.com/sangkips/tillpoint-api/internal/domain/repository"
	"github.com/sangkips/tillpoint-api/pkg/money"
	"gorm.io/gorm"
)

// reportRepository reads report data with hand-written SQL through sqlx,
// sharing the connection pool opened by gorm.
type reportRepository struct {
	db *sqlx.DB
}

// NewReportRepository wraps the gorm connection pool in sqlx
func NewReportRepository(db *gorm.DB) (domainRepo.ReportRepository, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("report repository: %w", err)
	}
	return &reportRepository{db: sqlx.NewDb(sqlDB, bindDriverName(db.Dialector.Name()))}, nil
}

// bindDriverName maps a gorm dialect to the driver name sqlx uses to pick
// its placeholder style.
func bindDriverName(dialect string) string {
	switch dialect {
	case "postgres":
		return "pgx"
	case "mysql":
		return "mysql"
	default:
		return "sqlite3"
	}
}

type reportSaleRow struct {
	SaleID        string         `db:"sale_id"`
	InvoiceNo     string         `db:"invoice_no"`
	CreatedAt     time.Time      `db:"created_at"`
	Cashier       sql.NullString `db:"cashier"`
	Customer      sql.NullString `db:"customer"`
	TotalAmount   int64          `db:"total_amount"`
	PaymentMethod string         `db:"payment_method"`
}

type reportItemCount struct {
	SaleID string `db:"sale_id"`
	Items  int64  `db:"items"`
}

func (r *reportRepository) SalesReport(ctx context.Context, from, to *time.Time) ([]domainRepo.SalesReportRow, error) {
	var conds []string
	var args []interface{}
	if from != nil {
		conds = append(conds, "s.created_at >= ?")
		args = append(args, from.UTC())
	}
	if to != nil {
		conds = append(conds, "s.created_at <= ?")
		args = append(args, to.UTC())
	}

	query := `SELECT s.id AS sale_id, s.invoice_no, s.created_at, u.username AS cashier,
		c.name AS customer, s.total_amount, s.payment_method
		FROM sales s
		LEFT JOIN users u ON u.id = s.cashier_id
		LEFT JOIN customers c ON c.id = s.customer_id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY s.created_at DESC, s.invoice_no DESC"

	var sales []reportSaleRow
	if err := r.db.SelectContext(ctx, &sales, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return []domainRepo.SalesReportRow{}, nil
	}

	ids := make([]string, len(sales))
	for i, s := range sales {
		ids[i] = s.SaleID
	}
	countQuery, countArgs, err := sqlx.In(`SELECT sale_id, SUM(quantity_sold) AS items
		FROM sale_items WHERE sale_id IN (?) GROUP BY sale_id`, ids)
	if err != nil {
		return nil, err
	}
	var counts []reportItemCount
	if err := r.db.SelectContext(ctx, &counts, r.db.Rebind(countQuery), countArgs...); err != nil {
		return nil, err
	}
	itemsBySale := make(map[string]int64, len(counts))
	for _, c := range counts {
		itemsBySale[c.SaleID] = c.Items
	}

	rows := make([]domainRepo.SalesReportRow, 0, len(sales))
	for _, s := range sales {
		id, err := uuid.Parse(s.SaleID)
		if err != nil {
			return nil, fmt.Errorf("sale %q: %w", s.SaleID, err)
		}
		customer := "Walk-in"
		if s.Customer.Valid {
			customer = s.Customer.String
		}
		rows = append(rows, domainRepo.SalesReportRow{
			SaleID:        id,
			InvoiceNo:     s.InvoiceNo,
			Date:          s.CreatedAt,
			Cashier:       s.Cashier.String,
			Customer:      customer,
			Total:         money.Cents(s.TotalAmount),
			PaymentMethod: s.PaymentMethod,
			ItemCount:     itemsBySale[s.SaleID],
		})
	}
	return rows, nil
}
