package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	"github.com/sangkips/tillpoint-api/internal/domain/enum"
	"github.com/sangkips/tillpoint-api/internal/domain/repository"
	infraRepo "github.com/sangkips/tillpoint-api/internal/infrastructure/repository"
	"github.com/sangkips/tillpoint-api/pkg/apperror"
	"github.com/sangkips/tillpoint-api/pkg/logger"
	"github.com/sangkips/tillpoint-api/pkg/metrics"
	"github.com/sangkips/tillpoint-api/pkg/money"
	"github.com/sangkips/tillpoint-api/pkg/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	useCaseBill      = "billing.create"
	tracerName       = "github.com/sangkips/tillpoint-api/billing"
	defaultMaxRetry  = 3
	maxPhoneLength   = 20
	maxBillLineCount = 500
	maxLineQuantity  = 1_000_000
)

// BillingOptions tunes the billing processor
type BillingOptions struct {
	MaxRetries    int
	InvoicePrefix string
}

// BillingService turns a cart into a persisted sale
type BillingService struct {
	tx           repository.Transactor
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	saleRepo     repository.SaleRepository
	sequenceRepo repository.InvoiceSequenceRepository
	opts         BillingOptions
	log          *zap.Logger
	metrics      *metrics.Registry
	tracer       trace.Tracer
}

// NewBillingService creates a new billing service
func NewBillingService(
	tx repository.Transactor,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	saleRepo repository.SaleRepository,
	sequenceRepo repository.InvoiceSequenceRepository,
	opts BillingOptions,
	log *zap.Logger,
	m *metrics.Registry,
) *BillingService {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = defaultMaxRetry
	}
	if opts.InvoicePrefix == "" {
		opts.InvoicePrefix = utils.DefaultInvoicePrefix
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BillingService{
		tx:           tx,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		saleRepo:     saleRepo,
		sequenceRepo: sequenceRepo,
		opts:         opts,
		log:          log,
		metrics:      m,
		tracer:       otel.Tracer(tracerName),
	}
}

// BillCustomerInput identifies the shopper. Phone is the lookup key.
type BillCustomerInput struct {
	Name    string
	Phone   string
	Email   *string
	Address *string
}

// BillItemInput is one cart line as submitted by the till
type BillItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// BillInput is a checkout request
type BillInput struct {
	CashierID     uuid.UUID
	Customer      *BillCustomerInput
	PaymentMethod string
	TotalAmount   decimal.Decimal
	Items         []BillItemInput
}

// BillResult identifies the created sale
type BillResult struct {
	SaleID    uuid.UUID
	InvoiceNo string
	Total     money.Cents
	Attempts  int
}

// billLine is a validated cart line in cents
type billLine struct {
	productID uuid.UUID
	quantity  int
	unitPrice money.Cents
	subtotal  money.Cents
}

type billPlan struct {
	cashierID uuid.UUID
	customer  *BillCustomerInput
	method    enum.PaymentMethod
	total     money.Cents
	lines     []billLine
}

// Bill records a sale in a single transaction: customer find-or-create,
// product locks, invoice number, sale and items, stock decrement.
// Unique violations roll the attempt back and the whole transaction is
// retried up to MaxRetries times.
func (s *BillingService) Bill(ctx context.Context, input *BillInput) (_ *BillResult, err error) {
	log := logger.FromContext(ctx, s.log).With(zap.String("use_case", useCaseBill))

	ctx, span := s.tracer.Start(ctx, "UC.Bill",
		trace.WithAttributes(attribute.String("use_case", useCaseBill)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var result *BillResult
	attempts := 0

	defer func() {
		lat := time.Since(start).Seconds()
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		s.metrics.ObserveUseCase(useCaseBill, outcome, lat)

		fields := []zap.Field{
			zap.String("outcome", outcome),
			zap.String("status", statusText),
			zap.Float64("latency_seconds", lat),
			zap.Int("attempts", attempts),
		}
		if result != nil {
			fields = append(fields, zap.String("invoice_no", result.InvoiceNo), zap.String("sale_id", result.SaleID.String()))
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		log.Info("use_case_done", fields...)
	}()

	if input == nil || input.CashierID == uuid.Nil {
		statusText = "UNAUTHENTICATED"
		return nil, apperror.NewUnauthorizedError("Authentication required")
	}

	plan, verr := validateBill(input)
	if verr != nil {
		statusText = "INVALID_INPUT"
		return nil, verr
	}
	span.SetAttributes(
		attribute.String("billing.payment_method", plan.method.String()),
		attribute.Int("billing.item_count", len(plan.lines)),
		attribute.Int64("billing.total_cents", int64(plan.total)),
	)

	for attempts = 1; ; attempts++ {
		result, err = s.billOnce(ctx, plan)
		if err == nil {
			break
		}
		if !infraRepo.IsUniqueViolation(err) {
			break
		}
		if attempts >= s.opts.MaxRetries {
			statusText = "CONFLICT"
			return nil, &apperror.AppError{
				Code:    http.StatusConflict,
				Message: "Could not complete the sale because of a concurrent update, please retry",
				Err:     err,
			}
		}
		if s.metrics != nil {
			s.metrics.BillingRetries.Inc()
		}
		span.AddEvent("billing.retry", trace.WithAttributes(attribute.Int("billing.attempt", attempts)))
		log.Warn("billing retry after unique violation", zap.Int("attempt", attempts), zap.Error(err))
	}

	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			statusText = fmt.Sprintf("HTTP_%d", appErr.Code)
			return nil, appErr
		}
		statusText = "INTERNAL"
		return nil, apperror.NewInternalError("Failed to record sale", err)
	}

	result.Attempts = attempts
	span.SetAttributes(attribute.String("billing.invoice_no", result.InvoiceNo))
	return result, nil
}

func (s *BillingService) billOnce(ctx context.Context, plan *billPlan) (*BillResult, error) {
	var result *BillResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		customerID, err := s.resolveCustomer(ctx, plan.customer)
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(plan.lines))
		for i, l := range plan.lines {
			ids[i] = l.productID
		}
		products, err := s.productRepo.LockByIDs(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*entity.Product, len(products))
		for i := range products {
			byID[products[i].ID] = &products[i]
		}
		for _, l := range plan.lines {
			if _, ok := byID[l.productID]; !ok {
				return apperror.NewNotFoundError("product")
			}
		}

		seq, err := s.sequenceRepo.Next(ctx, entity.SalesInvoiceSequence)
		if err != nil {
			return err
		}

		sale := &entity.Sale{
			InvoiceNo:     utils.FormatInvoiceNumber(s.opts.InvoicePrefix, seq),
			CashierID:     plan.cashierID,
			CustomerID:    customerID,
			TotalAmount:   plan.total,
			PaymentMethod: plan.method,
			Items:         make([]entity.SaleItem, 0, len(plan.lines)),
		}
		for _, l := range plan.lines {
			sale.Items = append(sale.Items, entity.SaleItem{
				ProductID:    l.productID,
				QuantitySold: l.quantity,
				UnitPrice:    l.unitPrice,
				Subtotal:     l.subtotal,
			})
		}
		if err := s.saleRepo.Create(ctx, sale); err != nil {
			return err
		}

		for _, l := range plan.lines {
			ok, err := s.productRepo.DecrementStock(ctx, l.productID, l.quantity)
			if err != nil {
				return err
			}
			if !ok {
				if s.metrics != nil {
					s.metrics.StockRejections.Inc()
				}
				return apperror.NewConflictError(fmt.Sprintf("insufficient stock for %s", byID[l.productID].SKU))
			}
		}

		result = &BillResult{
			SaleID:    sale.ID,
			InvoiceNo: sale.InvoiceNo,
			Total:     sale.TotalAmount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolveCustomer finds the customer by phone or creates one. An existing
// record is reused as is; the request's name and email do not overwrite it.
func (s *BillingService) resolveCustomer(ctx context.Context, in *BillCustomerInput) (*uuid.UUID, error) {
	if in == nil {
		return nil, nil
	}
	existing, err := s.customerRepo.GetByPhone(ctx, in.Phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &existing.ID, nil
	}

	customer := &entity.Customer{
		Name:    in.Name,
		Phone:   in.Phone,
		Email:   in.Email,
		Address: in.Address,
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return &customer.ID, nil
}

// validateBill checks the request and converts every amount to cents.
// Subtotals and the total are recomputed and must match what was sent.
func validateBill(in *BillInput) (*billPlan, error) {
	var fieldErrors []apperror.FieldError
	add := func(field, msg string) {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: field, Message: msg})
	}

	method, err := enum.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		add("payment_method", "must be one of cash, card, upi")
	}

	plan := &billPlan{cashierID: in.CashierID, method: method}

	if c := in.Customer; c != nil && strings.TrimSpace(c.Name) != "" {
		phone := utils.NormalizePhone(c.Phone)
		switch {
		case phone == "":
			add("customer.phone", "is required when a customer name is given")
		case len(phone) > maxPhoneLength:
			add("customer.phone", fmt.Sprintf("must be at most %d characters", maxPhoneLength))
		}
		plan.customer = &BillCustomerInput{
			Name:    strings.TrimSpace(c.Name),
			Phone:   phone,
			Email:   trimmedOrNil(c.Email),
			Address: trimmedOrNil(c.Address),
		}
	}

	switch {
	case len(in.Items) == 0:
		add("items", "at least one item is required")
	case len(in.Items) > maxBillLineCount:
		add("items", fmt.Sprintf("at most %d items per sale", maxBillLineCount))
	}

	var sum money.Cents
	for i, item := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		if item.ProductID == uuid.Nil {
			add(field+".product_id", "is required")
		}
		if item.Quantity <= 0 {
			add(field+".quantity", "must be greater than zero")
			continue
		}
		if item.Quantity > maxLineQuantity {
			add(field+".quantity", fmt.Sprintf("must be at most %d", maxLineQuantity))
			continue
		}
		unit, err := money.ToCents(item.UnitPrice)
		if err != nil {
			add(field+".unit_price", err.Error())
			continue
		}
		subtotal, err := money.ToCents(item.Subtotal)
		if err != nil {
			add(field+".subtotal", err.Error())
			continue
		}
		// unit <= MaxCents and quantity <= maxLineQuantity, so want cannot wrap
		want := unit.Mul(item.Quantity)
		if want > money.MaxCents {
			add(field+".subtotal", fmt.Sprintf("line amount exceeds the maximum of %s", money.MaxCents))
			continue
		}
		if subtotal != want {
			add(field+".subtotal", fmt.Sprintf("must equal quantity x unit_price (%s)", want))
			continue
		}
		sum += subtotal
		if sum > money.MaxCents {
			add("total_amount", fmt.Sprintf("exceeds the maximum of %s", money.MaxCents))
			break
		}
		plan.lines = append(plan.lines, billLine{
			productID: item.ProductID,
			quantity:  item.Quantity,
			unitPrice: unit,
			subtotal:  subtotal,
		})
	}

	total, err := money.ToCents(in.TotalAmount)
	if err != nil {
		add("total_amount", err.Error())
	} else if len(fieldErrors) == 0 && total != sum {
		add("total_amount", fmt.Sprintf("must equal the sum of item subtotals (%s)", sum))
	}
	plan.total = total

	if len(fieldErrors) > 0 {
		return nil, apperror.NewValidationError(fieldErrors)
	}
	return plan, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
