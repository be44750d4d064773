package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sangkips/tillpoint-api/internal/config"
	"github.com/sangkips/tillpoint-api/internal/domain/enum"
	domainRepo "github.com/sangkips/tillpoint-api/internal/domain/repository"
	"github.com/sangkips/tillpoint-api/internal/presentation/http/handler"
	"github.com/sangkips/tillpoint-api/internal/presentation/http/middleware"
	"github.com/sangkips/tillpoint-api/pkg/metrics"
	"github.com/sangkips/tillpoint-api/pkg/utils"
	"go.uber.org/zap"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Auth     *handler.AuthHandler
	Billing  *handler.BillingHandler
	Product  *handler.ProductHandler
	Customer *handler.CustomerHandler
	Sale     *handler.SaleHandler
	Report   *handler.ReportHandler
	User     *handler.UserHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	IdempotencyRepo domainRepo.IdempotencyRepository
	Log             *zap.Logger
	Metrics         *metrics.Registry
}

// Setup creates the Gin router and registers all routes. ctx bounds the
// rate limiter's background sweep.
func Setup(ctx context.Context, h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(middleware.LoggerMiddleware(deps.Log, deps.Metrics))
	router.Use(middleware.Recovery(deps.Log))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
			"version": deps.Cfg.App.Version,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rateLimiter := middleware.NewClientRateLimiter(ctx, middleware.RateLimiterConfig{
		RequestsPerSecond: deps.Cfg.RateLimit.RequestsPerSecond,
		BurstSize:         deps.Cfg.RateLimit.Burst,
	})

	v1 := router.Group("/api/v1")
	{
		public := v1.Group("")
		public.Use(rateLimiter.Middleware())
		registerAuthRoutes(public, h)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager))
		protected.Use(rateLimiter.Middleware())

		registerProtectedRoutes(protected, h, deps)
	}

	return router
}

func registerAuthRoutes(v1 *gin.RouterGroup, h *Handlers) {
	auth := v1.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
	}
}

func registerProtectedRoutes(protected *gin.RouterGroup, h *Handlers, deps *Deps) {
	adminOnly := middleware.RequireRole(enum.RoleAdmin.String())

	protected.POST("/auth/logout", h.Auth.Logout)
	protected.GET("/auth/me", h.Auth.Me)
	protected.PUT("/auth/password", h.Auth.ChangePassword)

	protected.POST("/billing",
		middleware.Idempotency(middleware.IdempotencyConfig{Repo: deps.IdempotencyRepo, Log: deps.Log}),
		h.Billing.Create,
	)

	products := protected.Group("/products")
	{
		products.GET("", h.Product.List)
		products.GET("/search", h.Product.Search)
		products.GET("/available", h.Product.Available)
		products.GET("/:id", h.Product.Get)
		products.POST("", adminOnly, h.Product.Create)
		products.PUT("/:id", adminOnly, h.Product.Update)
		products.DELETE("/:id", adminOnly, h.Product.Delete)
	}

	customers := protected.Group("/customers")
	{
		customers.GET("", h.Customer.List)
		customers.POST("", h.Customer.Create)
		customers.GET("/:id", h.Customer.Get)
		customers.GET("/:id/history", h.Customer.History)
		customers.PUT("/:id", h.Customer.Update)
		customers.DELETE("/:id", adminOnly, h.Customer.Delete)
	}

	sales := protected.Group("/sales")
	{
		sales.GET("", h.Sale.List)
		sales.GET("/invoice/:invoice_no", h.Sale.GetByInvoice)
		sales.GET("/:id", h.Sale.Get)
		sales.GET("/:id/receipt", h.Sale.Receipt)
		sales.POST("/:id/print", h.Sale.Print)
	}
	protected.GET("/printer/status", h.Sale.PrinterStatus)

	protected.GET("/dashboard", h.Report.Dashboard)
	reports := protected.Group("/reports")
	{
		reports.GET("/sales", h.Report.Sales)
		reports.GET("/sales/export", h.Report.ExportSales)
	}

	users := protected.Group("/users", adminOnly)
	{
		users.GET("", h.User.List)
		users.POST("", h.User.Create)
		users.PATCH("/:id/active", h.User.SetActive)
	}
}
