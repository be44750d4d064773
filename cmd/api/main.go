package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/tillpoint-api/internal/application/service"
	"github.com/sangkips/tillpoint-api/internal/config"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	domainRepo "github.com/sangkips/tillpoint-api/internal/domain/repository"
	"github.com/sangkips/tillpoint-api/internal/infrastructure/database"
	"github.com/sangkips/tillpoint-api/internal/infrastructure/repository"
	"github.com/sangkips/tillpoint-api/internal/presentation/http/handler"
	"github.com/sangkips/tillpoint-api/internal/presentation/http/routes"
	"github.com/sangkips/tillpoint-api/pkg/logger"
	"github.com/sangkips/tillpoint-api/pkg/metrics"
	"github.com/sangkips/tillpoint-api/pkg/printer"
	"github.com/sangkips/tillpoint-api/pkg/utils"
	"go.uber.org/zap"
)

const (
	shutdownTimeout        = 15 * time.Second
	idempotencySweepPeriod = time.Hour
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(logger.Options{
		Service: cfg.App.Name,
		Env:     cfg.App.Env,
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(&cfg.Database, cfg.App.Debug, zl)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	if err := database.SeedDefaultData(db, cfg.Seed, zl); err != nil {
		zl.Warn("failed to seed default data", zap.Error(err))
	}

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry, cfg.JWT.RefreshExpiry)
	reg := metrics.Default()

	// Repositories
	transactor := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	sequenceRepo := repository.NewInvoiceSequenceRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	reportRepo, err := repository.NewReportRepository(db)
	if err != nil {
		return err
	}

	receiptPrinter, err := printer.New(printer.Config{
		Type:      cfg.Printer.Type,
		USBPath:   cfg.Printer.USBPath,
		Address:   cfg.Printer.Address,
		CharWidth: cfg.Printer.CharWidth,
	})
	if err != nil {
		zl.Warn("failed to initialize printer, receipts will not be sent", zap.Error(err))
		receiptPrinter, _ = printer.New(printer.Config{Type: "none"})
	}

	// Services
	authService := service.NewAuthService(userRepo, jwtManager, zl)
	billingService := service.NewBillingService(transactor, productRepo, customerRepo, saleRepo, sequenceRepo,
		service.BillingOptions{
			MaxRetries:    cfg.Billing.MaxRetries,
			InvoicePrefix: cfg.Billing.InvoicePrefix,
		}, zl, reg)
	productService := service.NewProductService(productRepo)
	customerService := service.NewCustomerService(customerRepo, saleRepo)
	saleService := service.NewSaleService(saleRepo)
	printerService := service.NewPrinterService(receiptPrinter, saleRepo, entity.ReceiptHeader{
		StoreName: cfg.Store.Name,
		Address:   cfg.Store.Address,
		Phone:     cfg.Store.Phone,
	}, cfg.Printer.CharWidth, zl)
	dashboardService := service.NewDashboardService(analyticsRepo, productRepo, cfg.Billing.LowStockThreshold)
	reportService := service.NewReportService(reportRepo, productRepo, cfg.Billing.LowStockThreshold)
	userService := service.NewUserService(userRepo)

	handlers := &routes.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Billing:  handler.NewBillingHandler(billingService),
		Product:  handler.NewProductHandler(productService),
		Customer: handler.NewCustomerHandler(customerService),
		Sale:     handler.NewSaleHandler(saleService, printerService),
		Report:   handler.NewReportHandler(reportService, dashboardService),
		User:     handler.NewUserHandler(userService),
	}

	router := routes.Setup(ctx, handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: idempotencyRepo,
		Log:             zl,
		Metrics:         reg,
	})

	go sweepIdempotencyKeys(ctx, idempotencyRepo, zl)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Env),
			zap.String("db_driver", cfg.Database.Driver),
			zap.String("printer", receiptPrinter.Kind()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func sweepIdempotencyKeys(ctx context.Context, repo domainRepo.IdempotencyRepository, zl *zap.Logger) {
	ticker := time.NewTicker(idempotencySweepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx)
			if err != nil {
				zl.Warn("idempotency sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				zl.Info("expired idempotency keys removed", zap.Int64("count", n))
			}
		}
	}
}
