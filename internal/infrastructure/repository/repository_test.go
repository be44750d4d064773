package repository

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	"github.com/sangkips/tillpoint-api/internal/domain/enum"
	domainRepo "github.com/sangkips/tillpoint-api/internal/domain/repository"
	"github.com/sangkips/tillpoint-api/internal/infrastructure/database"
	"github.com/sangkips/tillpoint-api/pkg/apperror"
	"github.com/sangkips/tillpoint-api/pkg/money"
	"github.com/sangkips/tillpoint-api/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *entity.User {
	t.Helper()
	u := &entity.User{Username: username, Password: "x", Role: enum.RoleCashier, IsStaff: true, IsActive: true}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedProduct(t *testing.T, db *gorm.DB, sku string, qty int, price money.Cents) *entity.Product {
	t.Helper()
	p := &entity.Product{Name: "Product " + sku, SKU: sku, Category: "General", Quantity: qty, SellingPrice: price, CostPrice: price / 2}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedSale(t *testing.T, db *gorm.DB, invoice string, cashier *entity.User, customer *entity.Customer, at time.Time, lines ...entity.SaleItem) *entity.Sale {
	t.Helper()
	sale := &entity.Sale{InvoiceNo: invoice, CashierID: cashier.ID, PaymentMethod: enum.PaymentMethodCash, CreatedAt: at, Items: lines}
	if customer != nil {
		sale.CustomerID = &customer.ID
	}
	for _, l := range lines {
		sale.TotalAmount += l.Subtotal
	}
	require.NoError(t, NewSaleRepository(db).Create(context.Background(), sale))
	return sale
}

func TestProductRepository_DecrementStock(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	p := seedProduct(t, db, "SKU-1", 5, 1000)

	ok, err := repo.DecrementStock(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementStock(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok, "must not oversell")

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)
}

func TestProductRepository_LockByIDsDedupesAndSkipsMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	tx := NewTransactor(db)
	a := seedProduct(t, db, "A", 1, 100)
	b := seedProduct(t, db, "B", 1, 100)

	err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		products, err := repo.LockByIDs(ctx, []uuid.UUID{b.ID, a.ID, b.ID, uuid.New()})
		require.NoError(t, err)
		assert.Len(t, products, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestProductRepository_ListAndSearch(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	seedProduct(t, db, "MILK-1", 0, 120)
	seedProduct(t, db, "BREAD-1", 3, 250)
	seedProduct(t, db, "EGGS-12", 40, 300)

	products, total, err := repo.List(ctx, &domainRepo.ProductFilterParams{
		Pagination: &pagination.PaginationParams{Page: 1, PerPage: 2},
		Search:     "1",
		SortBy:     "quantity",
		SortOrder:  "desc",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, products, 2)
	assert.Equal(t, "EGGS-12", products[0].SKU)

	found, err := repo.Search(ctx, "bread", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "BREAD-1", found[0].SKU)

	inStock, err := repo.ListInStock(ctx)
	require.NoError(t, err)
	assert.Len(t, inStock, 2)

	low, err := repo.ListLowStock(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, low, 2)

	out, err := repo.ListOutOfStock(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "MILK-1", out[0].SKU)

	stock, err := repo.TotalStock(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 43, stock)
}

func TestProductRepository_DuplicateSKU(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	seedProduct(t, db, "DUP", 1, 100)

	err := repo.Create(context.Background(), &entity.Product{Name: "Other", SKU: "DUP", Category: "X"})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestCustomerRepository_GetByPhoneAndCountSales(t *testing.T) {
	db := newTestDB(t)
	repo := NewCustomerRepository(db)
	ctx := context.Background()
	cashier := seedUser(t, db, "till1")
	p := seedProduct(t, db, "P", 10, 500)

	c := &entity.Customer{Name: "Amina", Phone: "0711000000"}
	require.NoError(t, repo.Create(ctx, c))

	err := repo.Create(ctx, &entity.Customer{Name: "Someone", Phone: "0711000000"})
	assert.True(t, IsUniqueViolation(err))

	got, err := repo.GetByPhone(ctx, "0711000000")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Amina", got.Name)

	missing, err := repo.GetByPhone(ctx, "0000")
	require.NoError(t, err)
	assert.Nil(t, missing)

	seedSale(t, db, "INV-0001", cashier, c, time.Now().UTC(),
		entity.SaleItem{ProductID: p.ID, QuantitySold: 1, UnitPrice: 500, Subtotal: 500})
	n, err := repo.CountSales(ctx, c.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	list, total, err := repo.List(ctx, &pagination.PaginationParams{Page: 1, PerPage: 10}, "ami")
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)
}

func TestSaleRepository_CreateAndLoad(t *testing.T) {
	db := newTestDB(t)
	repo := NewSaleRepository(db)
	ctx := context.Background()
	cashier := seedUser(t, db, "till1")
	a := seedProduct(t, db, "A", 10, 100)
	b := seedProduct(t, db, "B", 10, 250)

	sale := seedSale(t, db, "INV-0001", cashier, nil, time.Now().UTC(),
		entity.SaleItem{ProductID: b.ID, QuantitySold: 2, UnitPrice: 250, Subtotal: 500},
		entity.SaleItem{ProductID: a.ID, QuantitySold: 1, UnitPrice: 100, Subtotal: 100},
	)

	// soft-deleted products still appear on old invoices
	require.NoError(t, NewProductRepository(db).Delete(ctx, a.ID))

	got, err := repo.GetByID(ctx, sale.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "INV-0001", got.InvoiceNo)
	assert.Equal(t, money.Cents(600), got.TotalAmount)
	assert.Equal(t, "till1", got.CashierName())
	assert.Equal(t, "Walk-in", got.CustomerName())
	require.Len(t, got.Items, 2)
	for _, it := range got.Items {
		require.NotNil(t, it.Product)
	}
	assert.Equal(t, got.TotalAmount, got.ItemsTotal())

	byInvoice, err := repo.GetByInvoiceNo(ctx, "INV-0001")
	require.NoError(t, err)
	assert.Equal(t, sale.ID, byInvoice.ID)

	err = repo.Create(ctx, &entity.Sale{InvoiceNo: "INV-0001", CashierID: cashier.ID, PaymentMethod: enum.PaymentMethodCash})
	assert.True(t, IsUniqueViolation(err))
}

func TestSaleRepository_ListFiltersByDate(t *testing.T) {
	db := newTestDB(t)
	repo := NewSaleRepository(db)
	cashier := seedUser(t, db, "till1")
	p := seedProduct(t, db, "P", 10, 100)
	line := func() entity.SaleItem {
		return entity.SaleItem{ProductID: p.ID, QuantitySold: 1, UnitPrice: 100, Subtotal: 100}
	}

	now := time.Now().UTC()
	seedSale(t, db, "INV-0001", cashier, nil, now.AddDate(0, 0, -10), line())
	seedSale(t, db, "INV-0002", cashier, nil, now.AddDate(0, 0, -1), line())
	seedSale(t, db, "INV-0003", cashier, nil, now, line())

	from := now.AddDate(0, 0, -2)
	sales, total, err := repo.List(context.Background(), &domainRepo.SaleFilterParams{
		Pagination: pagination.DefaultPagination(),
		From:       &from,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, sales, 2)
	assert.Equal(t, "INV-0003", sales[0].InvoiceNo)
}

func TestInvoiceSequenceRepository_Next(t *testing.T) {
	db := newTestDB(t)
	seq := NewInvoiceSequenceRepository(db)
	tx := NewTransactor(db)

	_, err := seq.Next(context.Background(), entity.SalesInvoiceSequence)
	require.Error(t, err, "Next outside a transaction")

	var got []int64
	for i := 0; i < 3; i++ {
		err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
			v, err := seq.Next(ctx, entity.SalesInvoiceSequence)
			got = append(got, v)
			return err
		})
		require.NoError(t, err)
	}
	assert.Equal(t, []int64{1, 2, 3}, got)

	// a rolled back transaction does not consume a number
	rollback := errors.New("rollback")
	err = tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		_, err := seq.Next(ctx, entity.SalesInvoiceSequence)
		require.NoError(t, err)
		return rollback
	})
	assert.ErrorIs(t, err, rollback)

	err = tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		v, err := seq.Next(ctx, entity.SalesInvoiceSequence)
		assert.EqualValues(t, 4, v)
		return err
	})
	require.NoError(t, err)
}

func TestTransactor_Nested(t *testing.T) {
	db := newTestDB(t)
	tx := NewTransactor(db)
	products := NewProductRepository(db)

	boom := errors.New("boom")
	err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		assert.True(t, InTransaction(ctx))
		require.NoError(t, products.Create(ctx, &entity.Product{Name: "X", SKU: "X", Category: "C"}))
		return tx.WithinTransaction(ctx, func(inner context.Context) error {
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	got, err := products.GetBySKU(context.Background(), "X")
	require.NoError(t, err)
	assert.Nil(t, got, "outer transaction must roll back")
}

func TestUserRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	u := seedUser(t, db, "jane")

	got, err := repo.GetByUsername(ctx, "jane")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.LastLoginAt)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.TouchLastLogin(ctx, u.ID, at))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, at.Equal(got.LastLoginAt.UTC()))

	users, total, err := repo.List(ctx, pagination.DefaultPagination(), "ja")
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, users, 1)
}

func TestIdempotencyRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewIdempotencyRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	key := &entity.IdempotencyKey{Key: "k1", UserID: userID, Endpoint: "/api/v1/billing", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, key))

	dup := &entity.IdempotencyKey{Key: "k1", UserID: userID, Endpoint: "/api/v1/billing", ExpiresAt: time.Now().Add(time.Hour)}
	assert.True(t, apperror.HasCode(repo.Create(ctx, dup), http.StatusConflict))

	got, err := repo.GetByKey(ctx, "k1", userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsPending())

	require.NoError(t, repo.Complete(ctx, key.ID, 201, `{"success":true}`))
	got, err = repo.GetByKey(ctx, "k1", userID)
	require.NoError(t, err)
	assert.False(t, got.IsPending())
	assert.Equal(t, 201, got.ResponseCode)

	other, err := repo.GetByKey(ctx, "k1", uuid.New())
	require.NoError(t, err)
	assert.Nil(t, other, "keys are scoped per user")

	expired := &entity.IdempotencyKey{Key: "old", UserID: userID, Endpoint: "/x", ExpiresAt: time.Now().Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, expired))
	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, repo.Delete(ctx, key.ID))
	got, err = repo.GetByKey(ctx, "k1", userID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAnalyticsRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewAnalyticsRepository(db)
	ctx := context.Background()
	cashier := seedUser(t, db, "till1")
	a := seedProduct(t, db, "A", 100, 100)
	b := seedProduct(t, db, "B", 100, 1000)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	seedSale(t, db, "INV-0001", cashier, nil, today.Add(time.Hour),
		entity.SaleItem{ProductID: a.ID, QuantitySold: 5, UnitPrice: 100, Subtotal: 500})
	seedSale(t, db, "INV-0002", cashier, nil, today.AddDate(0, 0, -1).Add(time.Hour),
		entity.SaleItem{ProductID: b.ID, QuantitySold: 1, UnitPrice: 1000, Subtotal: 1000},
		entity.SaleItem{ProductID: a.ID, QuantitySold: 1, UnitPrice: 100, Subtotal: 100})

	summary, err := repo.SalesBetween(ctx, today, today.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, money.Cents(500), summary.Total)
	assert.EqualValues(t, 1, summary.Count)

	top, err := repo.TopProducts(ctx, today.AddDate(0, 0, -30), 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "A", top[0].SKU)
	assert.EqualValues(t, 6, top[0].TotalSold)
	assert.Equal(t, money.Cents(600), top[0].Revenue)

	daily, err := repo.DailySales(ctx, today.AddDate(0, 0, -6), today.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, daily, 7)
	assert.Equal(t, money.Cents(1100), daily[5].Total)
	assert.Equal(t, money.Cents(500), daily[6].Total)
	assert.Equal(t, money.Cents(0), daily[0].Total)
}

func TestReportRepository_SalesReport(t *testing.T) {
	db := newTestDB(t)
	repo, err := NewReportRepository(db)
	require.NoError(t, err)
	ctx := context.Background()
	cashier := seedUser(t, db, "till1")
	p := seedProduct(t, db, "A", 100, 100)
	customer := &entity.Customer{Name: "Amina", Phone: "0711"}
	require.NoError(t, db.Create(customer).Error)

	now := time.Now().UTC()
	seedSale(t, db, "INV-0001", cashier, customer, now.Add(-2*time.Hour),
		entity.SaleItem{ProductID: p.ID, QuantitySold: 3, UnitPrice: 100, Subtotal: 300})
	seedSale(t, db, "INV-0002", cashier, nil, now.Add(-time.Hour),
		entity.SaleItem{ProductID: p.ID, QuantitySold: 1, UnitPrice: 100, Subtotal: 100})

	rows, err := repo.SalesReport(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "INV-0002", rows[0].InvoiceNo)
	assert.Equal(t, "Walk-in", rows[0].Customer)
	assert.Equal(t, "Amina", rows[1].Customer)
	assert.Equal(t, "till1", rows[1].Cashier)
	assert.EqualValues(t, 3, rows[1].ItemCount)
	assert.Equal(t, money.Cents(300), rows[1].Total)

	from := now.Add(-90 * time.Minute)
	rows, err = repo.SalesReport(ctx, &from, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	future := now.Add(time.Hour)
	rows, err = repo.SalesReport(ctx, &future, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
