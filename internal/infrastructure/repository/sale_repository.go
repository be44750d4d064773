package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	domainRepo "github.com/sangkips/tillpoint-api/internal/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type saleRepository struct {
	db *gorm.DB
}

// NewSaleRepository creates a new sale repository
func NewSaleRepository(db *gorm.DB) domainRepo.SaleRepository {
	return &saleRepository{db: db}
}

// Create inserts the sale row, then its items in slice order.
func (r *saleRepository) Create(ctx context.Context, sale *entity.Sale) error {
	db := dbFrom(ctx, r.db)
	items := sale.Items
	if err := db.Omit(clause.Associations).Create(sale).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].SaleID = sale.ID
	}
	if err := db.Omit(clause.Associations).Create(&items).Error; err != nil {
		return err
	}
	sale.Items = items
	return nil
}

// withDetails preloads everything an invoice view needs. Products are loaded
// unscoped so items of since-deleted products still show their name.
func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Cashier", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sale_items.id") }).
		Preload("Items.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
}

func (r *saleRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
	var sale entity.Sale
	err := dbFrom(ctx, r.db).Scopes(withDetails).First(&sale, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &sale, err
}

func (r *saleRepository) GetByInvoiceNo(ctx context.Context, invoiceNo string) (*entity.Sale, error) {
	var sale entity.Sale
	err := dbFrom(ctx, r.db).Scopes(withDetails).First(&sale, "invoice_no = ?", invoiceNo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &sale, err
}

func (r *saleRepository) List(ctx context.Context, params *domainRepo.SaleFilterParams) ([]entity.Sale, int64, error) {
	var sales []entity.Sale
	var total int64

	query := dbFrom(ctx, r.db).Model(&entity.Sale{})
	if params.CustomerID != nil {
		query = query.Where("customer_id = ?", *params.CustomerID)
	}
	if params.CashierID != nil {
		query = query.Where("cashier_id = ?", *params.CashierID)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", params.From.UTC())
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", params.To.UTC())
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Scopes(Paginate(params.Pagination)).
		Preload("Cashier", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Customer").
		Order("created_at DESC, invoice_no DESC").
		Find(&sales).Error

	return sales, total, err
}

type invoiceSequenceRepository struct {
	db *gorm.DB
}

// NewInvoiceSequenceRepository creates a new invoice sequence repository
func NewInvoiceSequenceRepository(db *gorm.DB) domainRepo.InvoiceSequenceRepository {
	return &invoiceSequenceRepository{db: db}
}

// Next increments the counter with a single UPDATE, which takes the row lock,
// then reads the value back within the same transaction.
func (r *invoiceSequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	if !InTransaction(ctx) {
		return 0, errors.New("invoice sequence: Next requires a transaction")
	}
	db := dbFrom(ctx, r.db)

	result := db.Model(&entity.InvoiceSequence{}).
		Where("name = ?", name).
		Update("value", gorm.Expr("value + 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		seq := entity.InvoiceSequence{Name: name, Value: 1}
		if err := db.Create(&seq).Error; err != nil {
			return 0, err
		}
		return seq.Value, nil
	}

	var seq entity.InvoiceSequence
	if err := db.First(&seq, "name = ?", name).Error; err != nil {
		return 0, fmt.Errorf("read invoice sequence %s: %w", name, err)
	}
	return seq.Value, nil
}
