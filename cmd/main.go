package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ontoroute/ontoroute/internal/clients/redis"
	"github.com/ontoroute/ontoroute/internal/clients/resource"
	"github.com/ontoroute/ontoroute/internal/config"
	"github.com/ontoroute/ontoroute/internal/data/db"
	"github.com/ontoroute/ontoroute/internal/data/repos"
	"github.com/ontoroute/ontoroute/internal/http/handlers"
	"github.com/ontoroute/ontoroute/internal/observability"
	"github.com/ontoroute/ontoroute/internal/platform/dbctx"
	"github.com/ontoroute/ontoroute/internal/platform/envutil"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
	"github.com/ontoroute/ontoroute/internal/server"
	"github.com/ontoroute/ontoroute/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Tracing
	if shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "ontoroute",
		Environment: envutil.String("ENVIRONMENT", "development"),
		Version:     envutil.String("SERVICE_VERSION", "dev"),
	}); shutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	// Engine config
	engineCfg, err := config.Load(envutil.String("ENGINE_CONFIG_PATH", "engine.yaml"))
	if err != nil {
		log.Error("Could not load engine config", "error", err)
		os.Exit(1)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrateAll(postgresService.DB()); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	resourceRepo := repos.NewMappingResourceRepo(thePG, log)
	pathRepo := repos.NewMappingPathRepo(thePG, log)
	preferenceRepo := repos.NewOntologyPreferenceRepo(thePG, log)
	patternRepo := repos.NewCompositePatternRepo(thePG, log)
	endpointRepo := repos.NewEndpointPropertyRepo(thePG, log)
	cacheRepo := repos.NewCacheEntryRepo(thePG, log)

	// Cache backend
	var cacheStore services.CacheStore = cacheRepo
	if engineCfg.CacheBackend == "redis" {
		redisStore, err := redis.NewCacheStore(log)
		if err != nil {
			log.Error("Could not init Redis cache store", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		cacheStore = redisStore
	}

	// Resource registry
	resources, err := resourceRepo.ListActive(dbctx.Context{Ctx: ctx})
	if err != nil {
		log.Error("Could not list mapping resources", "error", err)
		os.Exit(1)
	}
	registry, err := resource.NewRegistry(log, resources)
	if err != nil {
		log.Error("Could not build resource registry", "error", err)
		os.Exit(1)
	}

	// Composite patterns are session configuration: load once.
	patterns, err := patternRepo.ListActive(dbctx.Context{Ctx: ctx})
	if err != nil {
		log.Error("Could not load composite patterns", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up Services from main...")
	cacheManager := services.NewCacheManager(log, cacheStore, engineCfg.CacheTTL, engineCfg.CacheNoMatchTTL)
	pathFinder := services.NewPathFinder(log, pathRepo)
	pathExecutor := services.NewPathExecutor(log, registry, cacheManager, engineCfg.RetryCeiling, engineCfg.BackoffBase)
	compositeHandler, err := services.NewCompositeHandler(log, patterns)
	if err != nil {
		log.Error("Could not init CompositeHandler", "error", err)
		os.Exit(1)
	}
	iterativeService := services.NewIterativeMappingService(log, endpointRepo, preferenceRepo, pathFinder, pathExecutor, cacheManager)
	resolutionService := services.NewResolutionService(log, pathFinder, pathExecutor, iterativeService, compositeHandler)

	// Cache janitor
	go runCacheJanitor(ctx, log, cacheManager)

	// Router
	router := server.NewRouter(server.RouterConfig{
		HealthHandler:  handlers.NewHealthHandler(),
		ResolveHandler: handlers.NewResolveHandler(log, resolutionService, engineCfg),
	})

	addr := ":" + envutil.String("PORT", "8080")
	log.Info("Starting server", "addr", addr)
	if err := router.Run(addr); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}

func runCacheJanitor(ctx context.Context, log *logger.Logger, cache services.CacheManager) {
	interval := envutil.Duration("CACHE_JANITOR_INTERVAL", time.Hour)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := cache.DeleteExpired(ctx)
			if err != nil {
				log.Warn("cache janitor sweep failed", "error", err)
				continue
			}
			if n > 0 {
				log.Info("cache janitor removed expired entries", "deleted", n)
			}
		}
	}
}
