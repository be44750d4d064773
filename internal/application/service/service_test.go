package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	"github.com/sangkips/tillpoint-api/internal/domain/enum"
	"github.com/sangkips/tillpoint-api/internal/domain/repository"
	"github.com/sangkips/tillpoint-api/internal/infrastructure/database"
	infraRepo "github.com/sangkips/tillpoint-api/internal/infrastructure/repository"
	"github.com/sangkips/tillpoint-api/pkg/metrics"
	"github.com/sangkips/tillpoint-api/pkg/money"
	"github.com/sangkips/tillpoint-api/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEnv wires every service over one isolated in-memory database
type testEnv struct {
	db        *gorm.DB
	metrics   *metrics.Registry
	products  repository.ProductRepository
	customers repository.CustomerRepository
	sales     repository.SaleRepository
	sequences repository.InvoiceSequenceRepository
	tx        repository.Transactor
	billing   *BillingService
	cashier   *entity.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	env := &testEnv{
		db:        db,
		metrics:   metrics.New(prometheus.NewRegistry()),
		products:  infraRepo.NewProductRepository(db),
		customers: infraRepo.NewCustomerRepository(db),
		sales:     infraRepo.NewSaleRepository(db),
		sequences: infraRepo.NewInvoiceSequenceRepository(db),
		tx:        infraRepo.NewTransactor(db),
	}
	env.billing = env.newBilling(env.sequences, 3)

	hashed, err := utils.HashPassword("secret123")
	require.NoError(t, err)
	env.cashier = &entity.User{Username: "till1", Password: hashed, Role: enum.RoleCashier, IsStaff: true, IsActive: true}
	require.NoError(t, db.Create(env.cashier).Error)
	return env
}

func (e *testEnv) newBilling(seq repository.InvoiceSequenceRepository, retries int) *BillingService {
	return NewBillingService(e.tx, e.products, e.customers, e.sales, seq,
		BillingOptions{MaxRetries: retries, InvoicePrefix: "INV-"}, nil, e.metrics)
}

func (e *testEnv) product(t *testing.T, sku string, qty int, price string) *entity.Product {
	t.Helper()
	cents, err := money.ParseCents(price)
	require.NoError(t, err)
	p := &entity.Product{Name: "Product " + sku, SKU: sku, Category: "General", Quantity: qty, SellingPrice: cents}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func (e *testEnv) quantity(t *testing.T, p *entity.Product) int {
	t.Helper()
	got, err := e.products.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got.Quantity
}

func (e *testEnv) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// line builds a cart line with a consistent subtotal
func line(p *entity.Product, qty int, unit string) BillItemInput {
	u := dec(unit)
	return BillItemInput{
		ProductID: p.ID,
		Quantity:  qty,
		UnitPrice: u,
		Subtotal:  u.Mul(decimal.NewFromInt(int64(qty))),
	}
}

func cart(e *testEnv, method string, items ...BillItemInput) *BillInput {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	return &BillInput{
		CashierID:     e.cashier.ID,
		PaymentMethod: method,
		TotalAmount:   total,
		Items:         items,
	}
}
