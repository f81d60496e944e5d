package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ppdb-map-api/api/swagger"
	"github.com/noah-isme/ppdb-map-api/internal/dto"
	"github.com/noah-isme/ppdb-map-api/internal/handler"
	internalmiddleware "github.com/noah-isme/ppdb-map-api/internal/middleware"
	"github.com/noah-isme/ppdb-map-api/internal/models"
	"github.com/noah-isme/ppdb-map-api/internal/repository"
	"github.com/noah-isme/ppdb-map-api/internal/service"
	"github.com/noah-isme/ppdb-map-api/pkg/cache"
	"github.com/noah-isme/ppdb-map-api/pkg/config"
	"github.com/noah-isme/ppdb-map-api/pkg/database"
	"github.com/noah-isme/ppdb-map-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ppdb-map-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ppdb-map-api/pkg/middleware/requestid"
)

// @title PPDB Map API
// @version 1.0.0
// @description Admission (PPDB) map dashboard: filter options, table and map views, exports and filter sessions.
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()

	dataset, loadErr := loadDataset(ctx, cfg, metrics, logr)
	if loadErr != nil {
		if cfg.Dataset.StrictStartup {
			logr.Fatal("admission dataset unavailable", zap.Error(loadErr))
		}
		logr.Error("serving without admission dataset", zap.Error(loadErr))
	}

	store, closeStore := cacheStore(ctx, cfg, logr)
	defer closeStore()

	cacheSvc := service.NewCacheService(store, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)
	dashboard := service.NewDashboardService(service.DashboardServiceParams{
		Dataset: dataset,
		LoadErr: loadErr,
		Cache:   cacheSvc,
		Metrics: metrics,
		Logger:  logr,
		Config: service.DashboardServiceConfig{
			DefaultSelection: cfg.Dashboard.DefaultSelection,
			CacheTTL:         cfg.Dashboard.CacheTTL,
			Map: dto.MapSettings{
				CenterLat: cfg.Dashboard.MapCenterLat,
				CenterLon: cfg.Dashboard.MapCenterLon,
				Zoom:      cfg.Dashboard.MapZoom,
			},
		},
	})
	if _, err := dashboard.PurgeStaleViews(ctx); err != nil {
		logr.Warn("stale view purge failed", zap.Error(err))
	}
	validate := validator.New()
	sessions := service.NewSessionService(store, dashboard, validate, metrics, logr, cfg.Sessions.TTL)
	exports := service.NewExportService(dashboard, nil, nil, validate, logr, cfg.Exports.Title, cfg.Exports.Enabled)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Metrics:   handler.NewMetricsHandler(metrics, dashboard),
		Dashboard: handler.NewDashboardHandler(dashboard, exports),
		Sessions:  handler.NewSessionHandler(sessions, dashboard),
	}, dashboard)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "dataset_ready", loadErr == nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

// loadDataset reads the configured admission source once.
func loadDataset(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*models.Dataset, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Dataset.LoadTimeout)
	defer cancel()

	var source service.AdmissionSource
	switch cfg.Dataset.Source {
	case config.SourcePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect admission database: %w", err)
		}
		defer db.Close()
		source = repository.NewAdmissionRepository(db, cfg.Dataset.Table)
	default:
		source = repository.NewAdmissionFileRepository(cfg.Dataset.Path)
	}

	return service.NewDatasetLoader(source, cfg.Dataset.InvalidCoordinates, metrics, logr).Load(ctx)
}

// sessionCacheStore is satisfied by both the redis and memory cache repositories.
type sessionCacheStore interface {
	service.CacheRepository
	service.SessionStore
}

// cacheStore returns Redis when enabled and reachable, otherwise process memory. Sessions
// need a store either way.
func cacheStore(ctx context.Context, cfg *config.Config, logr *zap.Logger) (sessionCacheStore, func()) {
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err == nil {
			repo := repository.NewCacheRepository(client, logr)
			return repo, func() { _ = repo.Close() }
		}
		logr.Warn("redis unavailable, using in-memory cache", zap.Error(err))
	}
	repo := repository.NewMemoryCacheRepository()
	go repo.RunJanitor(ctx, time.Minute)
	return repo, func() {}
}
