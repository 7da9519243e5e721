// Package server assembles the Gin engine of the Tabung API.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"tabung/internal/config"
	_ "tabung/internal/docs" // registers the swagger document
	apperrors "tabung/internal/errors"
	"tabung/internal/handlers"
	"tabung/internal/middleware"
	"tabung/internal/models"
	"tabung/internal/services"
)

// Services bundles the business services behind the HTTP surface.
type Services struct {
	Users          services.UserServicer
	Transactions   services.TransactionServicer
	Allocation     services.AllocationConfigServicer
	Reports        services.ReportServicer
	Approvals      services.ApprovalServicer
	Reconciliation services.ReconciliationServicer
	Audit          services.AuditServicer
}

// NewServices wires every service over db.
func NewServices(db *gorm.DB) *Services {
	audit := services.NewAuditService(db)
	resolver := services.NewOrganizerResolver(db)
	plans := services.NewPlanResolver(db)
	transactions := services.NewTransactionService(db, resolver)
	reconciliation := services.NewReconciliationService(db, resolver, audit)

	return &Services{
		Users:          services.NewUserService(db),
		Transactions:   transactions,
		Allocation:     services.NewAllocationService(db, plans),
		Reports:        services.NewReportService(db, transactions, plans, reconciliation),
		Approvals:      services.NewApprovalService(db, resolver, audit),
		Reconciliation: reconciliation,
		Audit:          audit,
	}
}

// cors allows browser clients from any origin.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// NewRouter builds the Gin engine with every route of the API.
func NewRouter(cfg *config.Config, svc *Services) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Users)
	categoryHandler := handlers.NewCategoryHandler()
	transactionHandler := handlers.NewTransactionHandler(svc.Transactions, svc.Audit)
	allocationHandler := handlers.NewAllocationHandler(svc.Allocation, svc.Audit)
	reportHandler := handlers.NewReportHandler(svc.Reports)
	approvalHandler := handlers.NewApprovalHandler(svc.Approvals)
	reconcileHandler := handlers.NewReconcileHandler(svc.Reconciliation)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	router.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperrors.ErrNotFound)
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	internal := v1.Group("/internal")
	internal.Use(middleware.InternalAPIKeyMiddleware(cfg.InternalAPIKey))
	internal.POST("/reconcile", reconcileHandler.Reconcile)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	ledgerOwners := middleware.RequireRole(models.RoleTenant, models.RoleOrganizer)
	reviewers := middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin)
	tenants := middleware.RequireRole(models.RoleTenant)

	protected.GET("/profile", authHandler.GetProfile)
	protected.GET("/categories", categoryHandler.GetCategories)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)
	transactions.POST("/:id/status", reviewers, transactionHandler.SetTransactionStatus)

	allocation := protected.Group("/allocation", ledgerOwners)
	allocation.GET("", allocationHandler.GetAllocation)
	allocation.PUT("", allocationHandler.SaveAllocation)
	allocation.POST("/auto-adjust", allocationHandler.AutoAdjust)

	reports := protected.Group("/reports")
	reports.GET("/allocation", reportHandler.GetAllocationReport)
	reports.GET("/allocation/export", reportHandler.ExportAllocationReport)

	requests := protected.Group("/requests")
	requests.POST("/:kind", tenants, approvalHandler.CreateRequest)
	requests.GET("/:kind", approvalHandler.ListRequests)
	requests.POST("/:kind/:id/approve", reviewers, approvalHandler.Approve)
	requests.POST("/:kind/:id/reject", reviewers, approvalHandler.Reject)
	requests.POST("/:kind/:id/activate", tenants, approvalHandler.ActivateLocation)

	protected.GET("/payments/unreconciled", reviewers, reconcileHandler.ListUnreconciled)

	return router
}
