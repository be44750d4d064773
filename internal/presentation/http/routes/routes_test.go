package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sangkips/tillpoint-api/internal/application/service"
	"github.com/sangkips/tillpoint-api/internal/config"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	"github.com/sangkips/tillpoint-api/internal/infrastructure/database"
	"github.com/sangkips/tillpoint-api/internal/infrastructure/repository"
	"github.com/sangkips/tillpoint-api/internal/presentation/http/handler"
	"github.com/sangkips/tillpoint-api/pkg/metrics"
	"github.com/sangkips/tillpoint-api/pkg/printer"
	"github.com/sangkips/tillpoint-api/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type apiServer struct {
	router *gin.Engine
	db     *gorm.DB
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, database.SeedDefaultData(db, config.SeedConfig{
		AdminUsername:   "admin",
		AdminPassword:   "admin12345",
		CashierUsername: "cashier",
		CashierPassword: "cashier12345",
	}, nil))

	cfg := &config.Config{
		App:       config.AppConfig{Name: "tillpoint-api", Env: "test"},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}
	log := zap.NewNop()
	reg := metrics.New(prometheus.NewRegistry())
	jwtManager := utils.NewJWTManager("test-secret", "tillpoint-test", time.Hour, 24*time.Hour)

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	reportRepo, err := repository.NewReportRepository(db)
	require.NoError(t, err)
	nullPrinter, err := printer.New(printer.Config{Type: "none"})
	require.NoError(t, err)

	billing := service.NewBillingService(repository.NewTransactor(db), productRepo, customerRepo, saleRepo,
		repository.NewInvoiceSequenceRepository(db), service.BillingOptions{MaxRetries: 3, InvoicePrefix: "INV-"}, log, reg)
	printerService := service.NewPrinterService(nullPrinter, saleRepo, entity.ReceiptHeader{StoreName: "Corner Shop"}, 32, log)

	handlers := &Handlers{
		Auth:     handler.NewAuthHandler(service.NewAuthService(userRepo, jwtManager, log)),
		Billing:  handler.NewBillingHandler(billing),
		Product:  handler.NewProductHandler(service.NewProductService(productRepo)),
		Customer: handler.NewCustomerHandler(service.NewCustomerService(customerRepo, saleRepo)),
		Sale:     handler.NewSaleHandler(service.NewSaleService(saleRepo), printerService),
		Report: handler.NewReportHandler(
			service.NewReportService(reportRepo, productRepo, 5),
			service.NewDashboardService(repository.NewAnalyticsRepository(db), productRepo, 5),
		),
		User: handler.NewUserHandler(service.NewUserService(userRepo)),
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	router := Setup(ctx, handlers, &Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: repository.NewIdempotencyRepository(db),
		Log:             log,
		Metrics:         reg,
	})
	return &apiServer{router: router, db: db}
}

func (s *apiServer) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *apiServer) login(t *testing.T, username, password string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.AccessToken)
	return resp.Data.AccessToken
}

func (s *apiServer) createProduct(t *testing.T, adminToken, sku string, qty int, price string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/products", adminToken, map[string]any{
		"name": "Product " + sku, "sku": sku, "category": "General",
		"quantity": qty, "cost_price": "1.00", "selling_price": price,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data.ID
}

func billBody(productID string, qty int, unit, subtotal, total string) string {
	return fmt.Sprintf(`{"payment_method":"cash","total_amount":%q,"items":[{"product_id":%q,"quantity":%d,"unit_price":%q,"subtotal":%q}]}`,
		total, productID, qty, unit, subtotal)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newAPIServer(t)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s := newAPIServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "cashier", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newAPIServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/billing", "", billBody("x", 1, "1", "1", "1"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/products", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newAPIServer(t)

	w := s.do(t, http.MethodGet, "/health", "", nil, "X-Request-ID", "req-123")
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w = s.do(t, http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCashierCannotManageCatalogOrUsers(t *testing.T) {
	s := newAPIServer(t)
	cashier := s.login(t, "cashier", "cashier12345")

	w := s.do(t, http.MethodPost, "/api/v1/products", cashier, map[string]any{
		"name": "Tea", "sku": "TEA", "category": "Drinks", "selling_price": "2.00",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/users", cashier, map[string]any{"username": "bob", "password": "password123"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBillingEndToEnd(t *testing.T) {
	s := newAPIServer(t)
	admin := s.login(t, "admin", "admin12345")
	cashier := s.login(t, "cashier", "cashier12345")
	productID := s.createProduct(t, admin, "SKU-1", 10, "50.00")

	w := s.do(t, http.MethodPost, "/api/v1/billing", cashier, billBody(productID, 2, "50.00", "100.00", "100.00"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var bill struct {
		Success   bool   `json:"success"`
		SaleID    string `json:"sale_id"`
		InvoiceNo string `json:"invoice_no"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bill))
	assert.True(t, bill.Success)
	assert.Equal(t, "INV-0001", bill.InvoiceNo)
	assert.NotEmpty(t, bill.SaleID)

	w = s.do(t, http.MethodGet, "/api/v1/products/"+productID, cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"quantity":8`)

	w = s.do(t, http.MethodGet, "/api/v1/sales/"+bill.SaleID, cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"customer_name":"Walk-in"`)
	assert.Contains(t, w.Body.String(), `"sku":"SKU-1"`)

	w = s.do(t, http.MethodGet, "/api/v1/sales/invoice/inv-0001", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), bill.SaleID)

	w = s.do(t, http.MethodGet, "/api/v1/sales/invoice/INV-9999", cashier, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/sales/"+bill.SaleID+"/receipt", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "INV-0001")

	w = s.do(t, http.MethodPost, "/api/v1/sales/"+bill.SaleID+"/print", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"printed":false`)
}

func TestBillingErrorsUseEnvelope(t *testing.T) {
	s := newAPIServer(t)
	admin := s.login(t, "admin", "admin12345")
	cashier := s.login(t, "cashier", "cashier12345")
	productID := s.createProduct(t, admin, "SKU-1", 1, "5.00")

	tests := []struct {
		name string
		body string
		code int
		want string
	}{
		{"malformed json", `{"items":`, http.StatusBadRequest, "Invalid request body"},
		{"malformed decimal", `{"payment_method":"cash","total_amount":"abc","items":[]}`, http.StatusBadRequest, "Invalid request body"},
		{"bad payment method", strings.Replace(billBody(productID, 1, "5", "5", "5"), "cash", "cheque", 1), http.StatusUnprocessableEntity, "payment_method"},
		{"total mismatch", billBody(productID, 1, "5.00", "5.00", "6.00"), http.StatusUnprocessableEntity, "total_amount"},
		{"bad product id", billBody("not-a-uuid", 1, "5.00", "5.00", "5.00"), http.StatusUnprocessableEntity, `"field":"items[0].product_id","message":"must be a valid id"`},
		{"blank product id", billBody("", 1, "5.00", "5.00", "5.00"), http.StatusUnprocessableEntity, `"field":"items[0].product_id","message":"is required"`},
		{"unknown product", billBody("7d0cbd36-4cf1-4a2b-9b69-2f7a3d8f5f10", 1, "5.00", "5.00", "5.00"), http.StatusNotFound, "product not found"},
		{"insufficient stock", billBody(productID, 2, "5.00", "10.00", "10.00"), http.StatusConflict, "insufficient stock for SKU-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/billing", cashier, tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tt.want)
			assert.Contains(t, w.Body.String(), `"success":false`)
		})
	}

	var sales int64
	require.NoError(t, s.db.Model(&entity.Sale{}).Count(&sales).Error)
	assert.Zero(t, sales)
}

func TestBillingIdempotencyKey(t *testing.T) {
	s := newAPIServer(t)
	admin := s.login(t, "admin", "admin12345")
	cashier := s.login(t, "cashier", "cashier12345")
	productID := s.createProduct(t, admin, "SKU-1", 10, "5.00")
	body := billBody(productID, 1, "5.00", "5.00", "5.00")

	first := s.do(t, http.MethodPost, "/api/v1/billing", cashier, body, "Idempotency-Key", "cart-1")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	replay := s.do(t, http.MethodPost, "/api/v1/billing", cashier, body, "Idempotency-Key", "cart-1")
	require.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, "true", replay.Header().Get("X-Idempotency-Replayed"))

	other := s.do(t, http.MethodPost, "/api/v1/billing", cashier, billBody(productID, 2, "5.00", "10.00", "10.00"), "Idempotency-Key", "cart-1")
	assert.Equal(t, http.StatusUnprocessableEntity, other.Code)

	var sales int64
	require.NoError(t, s.db.Model(&entity.Sale{}).Count(&sales).Error)
	assert.Equal(t, int64(1), sales)
}

func TestFailedBillReleasesIdempotencyKey(t *testing.T) {
	s := newAPIServer(t)
	admin := s.login(t, "admin", "admin12345")
	cashier := s.login(t, "cashier", "cashier12345")
	productID := s.createProduct(t, admin, "SKU-1", 1, "5.00")

	w := s.do(t, http.MethodPost, "/api/v1/billing", cashier, billBody(productID, 2, "5.00", "10.00", "10.00"), "Idempotency-Key", "k")
	require.Equal(t, http.StatusConflict, w.Code)

	var keys int64
	require.NoError(t, s.db.Model(&entity.IdempotencyKey{}).Count(&keys).Error)
	assert.Zero(t, keys)
}

func TestProductSearchAndReports(t *testing.T) {
	s := newAPIServer(t)
	admin := s.login(t, "admin", "admin12345")
	productID := s.createProduct(t, admin, "MILK-1", 3, "1.20")
	s.createProduct(t, admin, "BREAD-1", 0, "2.00")

	w := s.do(t, http.MethodGet, "/api/v1/products/search?q=milk", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), productID)
	assert.NotContains(t, w.Body.String(), "BREAD-1")

	w = s.do(t, http.MethodGet, "/api/v1/products/available", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "BREAD-1")

	w = s.do(t, http.MethodPost, "/api/v1/billing", admin, billBody(productID, 1, "1.20", "1.20", "1.20"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/reports/sales", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sales_count":1`)
	assert.Contains(t, w.Body.String(), "BREAD-1")

	w = s.do(t, http.MethodGet, "/api/v1/reports/sales?start_date=2024-13-01", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/reports/sales/export", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "sales_report.xlsx")
	assert.NotZero(t, w.Body.Len())

	w = s.do(t, http.MethodGet, "/api/v1/dashboard", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"today_sales_count":1`)
}

func TestAdminCreatesCashier(t *testing.T) {
	s := newAPIServer(t)
	admin := s.login(t, "admin", "admin12345")

	w := s.do(t, http.MethodPost, "/api/v1/users", admin, map[string]any{"username": "till2", "password": "password123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"role":"cashier"`)

	s.login(t, "till2", "password123")

	w = s.do(t, http.MethodPost, "/api/v1/users", admin, map[string]any{"username": "till2", "password": "password123"})
	assert.Equal(t, http.StatusConflict, w.Code)
}
