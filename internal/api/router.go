package api

import (
	"github.com/gin-gonic/gin"

	"github.com/timmy/mediahub/internal/api/handler"
	"github.com/timmy/mediahub/internal/api/middleware"
	"github.com/timmy/mediahub/internal/repository"
	"github.com/timmy/mediahub/internal/scheduler"
	"github.com/timmy/mediahub/internal/service"
)

// RouterConfig carries router-level settings.
type RouterConfig struct {
	Mode    string
	CORS    middleware.CORSConfig
	TempDir string
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	ledger *repository.JobRepository,
	catalog *service.CatalogService,
	sched *scheduler.Scheduler,
	cfg RouterConfig,
) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler()
	catalogHandler := handler.NewCatalogHandler(catalog)
	adminHandler := handler.NewAdminHandler(ledger, catalog, sched, cfg.TempDir)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Catalog
		v1.GET("/posts", catalogHandler.ListPosts)
		v1.GET("/posts/latest", catalogHandler.ListLatest)
		v1.GET("/posts/url", catalogHandler.GetURL)
		v1.POST("/posts/view", catalogHandler.IncrementView)
		v1.GET("/categories", catalogHandler.ListCategories)

		// Admin (authenticated upstream)
		admin := v1.Group("/admin")
		{
			admin.POST("/upload", adminHandler.Upload)
			admin.GET("/jobs", adminHandler.ListJobs)
			admin.GET("/jobs/:id", adminHandler.GetJob)
			admin.DELETE("/posts", adminHandler.DeletePost)
		}
	}

	return r
}
