package api

import (
	"github.com/gin-gonic/gin"

	"github.com/timmy/amtracker/internal/api/handler"
	"github.com/timmy/amtracker/internal/api/middleware"
	"github.com/timmy/amtracker/internal/config"
	"github.com/timmy/amtracker/internal/logger"
	"github.com/timmy/amtracker/internal/service"
)

// Services groups what the router serves. Snapshots may be nil, in which
// case the snapshot routes are not registered.
type Services struct {
	Catalog   *service.CatalogService
	Sync      *service.SyncService
	Snapshots *service.SnapshotService
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(svcs *Services, cfg *config.ServerConfig, log *logger.Logger) *gin.Engine {
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
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(svcs.Sync.IsRunning)
	catalogHandler := handler.NewCatalogHandler(svcs.Catalog)
	syncHandler := handler.NewSyncHandler(svcs.Sync)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Merged catalog
		v1.GET("/catalog", catalogHandler.ListCatalog)
		v1.GET("/catalog/genres", catalogHandler.GetGenres)
		v1.GET("/catalog/:id", catalogHandler.GetItem)

		// Live views
		v1.GET("/airing", catalogHandler.GetAiring)
		v1.GET("/recent", catalogHandler.GetRecent)

		// Sync core
		v1.POST("/sync", syncHandler.TriggerSync)
		v1.GET("/sync/status", syncHandler.GetStatus)
		v1.PUT("/sync/mode", syncHandler.ChangeMode)
		v1.POST("/sync/reset", syncHandler.ResetCursor)
		v1.DELETE("/sync/remote", syncHandler.ClearRemote)

		if svcs.Snapshots != nil {
			snapshotHandler := handler.NewSnapshotHandler(svcs.Snapshots)
			v1.GET("/snapshots", snapshotHandler.ListSnapshots)
			v1.POST("/snapshots", snapshotHandler.ExportSnapshot)
			v1.POST("/snapshots/restore", snapshotHandler.RestoreSnapshot)
		}
	}

	return r
}
