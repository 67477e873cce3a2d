package router

import (
	"context"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/config"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/handler"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/middleware"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the services and clients the composition root hands to the router.
type Deps struct {
	DB   *gorm.DB
	RDB  *redis.Client
	Jobs handler.Jobs

	Catalog    service.CatalogService
	Importer   service.ImportService
	Migrations service.MigrationService
	Loyalty    service.LoyaltyService
	Admin      service.AdminService
	Counters   service.CounterService
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis/Firestore
func New(ctx context.Context, cfg *config.Config, d Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	apiLimiter := middleware.NewRateLimiter(1000, time.Minute, "Demasiadas solicitudes. Intente nuevamente en un momento.")
	loginLimiter := middleware.NewRateLimiter(20, time.Minute, "Demasiados intentos de acceso. Intente en 1 minuto.")
	apiLimiter.StartPurge(ctx)
	loginLimiter.StartPurge(ctx)

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOriginList()))
	r.Use(middleware.ErrorHandler())
	r.Use(apiLimiter.Middleware())

	// ── Handlers ─────────────────────────────────────────────────────────────
	catalogH := handler.NewCatalogHandler(d.Catalog)
	adminCatalogH := handler.NewAdminCatalogHandler(d.Catalog, d.Importer, d.Migrations, d.Jobs)
	loyaltyH := handler.NewLoyaltyHandler(d.Loyalty)
	counterH := handler.NewCounterHandler(d.Counters)
	sessionH := handler.NewAdminSessionHandler(d.Admin)
	requireAdmin := middleware.RequireAdmin(d.Admin)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(d.DB, d.RDB, cfg.CatalogStore))

	v1 := r.Group("/v1")
	{
		v1.GET("/prendas", catalogH.Search)
		v1.GET("/prendas/:code", catalogH.GetPublic)

		v1.GET("/loyalty/card/:token", loyaltyH.GetCard)
		// staff scans the card at the counter
		v1.POST("/loyalty/card/:token/visit", requireAdmin, loyaltyH.AddVisit)

		v1.POST("/admin/session", loginLimiter.Middleware(), sessionH.Create)
		v1.DELETE("/admin/session", sessionH.Revoke)
	}

	admin := v1.Group("/admin", requireAdmin)
	{
		admin.POST("/import", adminCatalogH.Import)

		mig := admin.Group("/migrations")
		{
			mig.POST("/projection", adminCatalogH.MigrateProjection)
			mig.POST("/search-tokens", adminCatalogH.BackfillSearchTokens)
			mig.POST("/canonical", adminCatalogH.Canonicalize)
			mig.POST("/:kind/enqueue", adminCatalogH.EnqueueMigration)
			mig.GET("/:kind/checkpoint", adminCatalogH.Checkpoint)
		}
		admin.POST("/jobs/dlq/replay", adminCatalogH.ReplayDLQ)

		admin.GET("/prendas/:code", adminCatalogH.GetPrenda)
		admin.PUT("/prendas/:code", adminCatalogH.UpsertPrenda)
		admin.GET("/prendas/:code/label", adminCatalogH.Label)

		admin.GET("/counters", counterH.List)
		admin.POST("/counters/seed", counterH.Seed)

		loy := admin.Group("/loyalty")
		{
			loy.POST("/clients", loyaltyH.Register)
			loy.GET("/clients", loyaltyH.List)
			loy.GET("/clients/search", loyaltyH.Search)
			loy.GET("/clients/:id", loyaltyH.Get)
			loy.POST("/clients/:id/purchases", loyaltyH.AddPurchase)
			loy.POST("/clients/:id/redemptions", loyaltyH.Redeem)
			loy.GET("/clients/:id/movements", loyaltyH.Movements)
			loy.GET("/clients/:id/reconcile", loyaltyH.Reconcile)
			loy.GET("/clients/:id/card.pdf", loyaltyH.CardPDF)
			loy.POST("/qr-links/backfill", loyaltyH.BackfillQRLinks)
		}
	}

	// Swagger UI, only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
