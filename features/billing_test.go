package features

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sangkips/tillpoint-api/internal/application/service"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	"github.com/sangkips/tillpoint-api/internal/domain/enum"
	"github.com/sangkips/tillpoint-api/internal/infrastructure/database"
	"github.com/sangkips/tillpoint-api/internal/infrastructure/repository"
	"github.com/sangkips/tillpoint-api/pkg/apperror"
	"github.com/sangkips/tillpoint-api/pkg/metrics"
	"github.com/sangkips/tillpoint-api/pkg/money"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type billingTestContext struct {
	db       *gorm.DB
	billing  *service.BillingService
	cashier  *entity.User
	products map[string]*entity.Product
	result   *service.BillResult
	err      error
}

func (b *billingTestContext) reset() error {
	b.close()
	db, err := database.OpenInMemory()
	if err != nil {
		return err
	}
	b.db = db
	b.billing = service.NewBillingService(
		repository.NewTransactor(db),
		repository.NewProductRepository(db),
		repository.NewCustomerRepository(db),
		repository.NewSaleRepository(db),
		repository.NewInvoiceSequenceRepository(db),
		service.BillingOptions{MaxRetries: 3, InvoicePrefix: "INV-"},
		nil,
		metrics.New(prometheus.NewRegistry()),
	)
	b.cashier = nil
	b.products = map[string]*entity.Product{}
	b.result = nil
	b.err = nil
	return nil
}

func (b *billingTestContext) close() {
	if b.db == nil {
		return
	}
	if sqlDB, err := b.db.DB(); err == nil {
		sqlDB.Close()
	}
	b.db = nil
}

func (b *billingTestContext) aCashier(username string) error {
	b.cashier = &entity.User{Username: username, Password: "x", Role: enum.RoleCashier, IsStaff: true, IsActive: true}
	return b.db.Create(b.cashier).Error
}

func (b *billingTestContext) aProductPricedWithInStock(sku, price string, qty int) error {
	cents, err := money.ParseCents(price)
	if err != nil {
		return err
	}
	p := &entity.Product{Name: "Product " + sku, SKU: sku, Category: "General", Quantity: qty, SellingPrice: cents}
	if err := b.db.Create(p).Error; err != nil {
		return err
	}
	b.products[sku] = p
	return nil
}

func (b *billingTestContext) bill(customer *service.BillCustomerInput, method, total string, items ...service.BillItemInput) error {
	b.result, b.err = b.billing.Bill(context.Background(), &service.BillInput{
		CashierID:     b.cashier.ID,
		Customer:      customer,
		PaymentMethod: method,
		TotalAmount:   decimal.RequireFromString(total),
		Items:         items,
	})
	return nil
}

func (b *billingTestContext) line(sku string, qty int, unit string) (service.BillItemInput, error) {
	p, ok := b.products[sku]
	if !ok {
		return service.BillItemInput{}, fmt.Errorf("unknown product %s", sku)
	}
	price := decimal.RequireFromString(unit)
	return service.BillItemInput{
		ProductID: p.ID,
		Quantity:  qty,
		UnitPrice: price,
		Subtotal:  price.Mul(decimal.NewFromInt(int64(qty))),
	}, nil
}

func (b *billingTestContext) theCashierBills(qty int, sku, unit, total, method string) error {
	item, err := b.line(sku, qty, unit)
	if err != nil {
		return err
	}
	return b.bill(nil, method, total, item)
}

func (b *billingTestContext) customerBuys(name, phone string, qty int, sku, unit string) error {
	item, err := b.line(sku, qty, unit)
	if err != nil {
		return err
	}
	if err := b.bill(&service.BillCustomerInput{Name: name, Phone: phone}, "cash", item.Subtotal.String(), item); err != nil {
		return err
	}
	return b.err
}

func (b *billingTestContext) theCashierBillsAndAnUnknownProduct(sku string) error {
	item, err := b.line(sku, 1, "50.00")
	if err != nil {
		return err
	}
	ghost := service.BillItemInput{
		ProductID: uuid.New(),
		Quantity:  1,
		UnitPrice: decimal.RequireFromString("1.00"),
		Subtotal:  decimal.RequireFromString("1.00"),
	}
	return b.bill(nil, "cash", "51.00", item, ghost)
}

func (b *billingTestContext) theBillSucceedsWithInvoice(invoice string) error {
	if b.err != nil {
		return fmt.Errorf("expected success, got %v", b.err)
	}
	if b.result.InvoiceNo != invoice {
		return fmt.Errorf("expected invoice %s, got %s", invoice, b.result.InvoiceNo)
	}
	return nil
}

func (b *billingTestContext) theBillFailsWithStatus(code int) error {
	if b.err == nil {
		return errors.New("expected the bill to fail")
	}
	if !apperror.HasCode(b.err, code) {
		return fmt.Errorf("expected status %d, got %v", code, b.err)
	}
	return nil
}

func (b *billingTestContext) hasInStock(sku string, qty int) error {
	var p entity.Product
	if err := b.db.Where("sku = ?", sku).First(&p).Error; err != nil {
		return err
	}
	if p.Quantity != qty {
		return fmt.Errorf("expected %d of %s in stock, got %d", qty, sku, p.Quantity)
	}
	return nil
}

func (b *billingTestContext) count(model any) (int64, error) {
	var n int64
	err := b.db.Model(model).Count(&n).Error
	return n, err
}

func (b *billingTestContext) thereIsSaleWithItem(sales, items int) error {
	gotSales, err := b.count(&entity.Sale{})
	if err != nil {
		return err
	}
	gotItems, err := b.count(&entity.SaleItem{})
	if err != nil {
		return err
	}
	if gotSales != int64(sales) || gotItems != int64(items) {
		return fmt.Errorf("expected %d sales and %d items, got %d and %d", sales, items, gotSales, gotItems)
	}
	return nil
}

func (b *billingTestContext) thereAreNoSales() error {
	return b.thereIsSaleWithItem(0, 0)
}

func (b *billingTestContext) thereIsCustomerNamed(n int, name string) error {
	var customers []entity.Customer
	if err := b.db.Find(&customers).Error; err != nil {
		return err
	}
	if len(customers) != n {
		return fmt.Errorf("expected %d customers, got %d", n, len(customers))
	}
	if customers[0].Name != name {
		return fmt.Errorf("expected customer %q, got %q", name, customers[0].Name)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &billingTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, tc.reset()
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		tc.close()
		return ctx, nil
	})

	ctx.Step(`^a cashier "([^"]*)"$`, tc.aCashier)
	ctx.Step(`^a product "([^"]*)" priced ([\d.]+) with (\d+) in stock$`, tc.aProductPricedWithInStock)

	ctx.Step(`^the cashier bills (\d+) of "([^"]*)" at ([\d.]+) for a total of ([\d.]+) paid by "([^"]*)"$`, tc.theCashierBills)
	ctx.Step(`^customer "([^"]*)" with phone "([^"]*)" buys (\d+) of "([^"]*)" at ([\d.]+)$`, tc.customerBuys)
	ctx.Step(`^the cashier bills "([^"]*)" and an unknown product$`, tc.theCashierBillsAndAnUnknownProduct)

	ctx.Step(`^the bill succeeds with invoice "([^"]*)"$`, tc.theBillSucceedsWithInvoice)
	ctx.Step(`^the bill fails with status (\d+)$`, tc.theBillFailsWithStatus)
	ctx.Step(`^"([^"]*)" has (\d+) in stock$`, tc.hasInStock)
	ctx.Step(`^there is (\d+) sale with (\d+) items?$`, tc.thereIsSaleWithItem)
	ctx.Step(`^there are no sales$`, tc.thereAreNoSales)
	ctx.Step(`^there is (\d+) customer named "([^"]*)"$`, tc.thereIsCustomerNamed)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"billing.feature"},
			Output:   os.Stdout,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
