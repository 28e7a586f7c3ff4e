package app

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/internal/catalog"
	"github.com/kapu/profile-lab-go/internal/config"
	"github.com/kapu/profile-lab-go/internal/profilestore"
	"github.com/kapu/profile-lab-go/internal/server"
	"github.com/kapu/profile-lab-go/internal/service"
	"github.com/kapu/profile-lab-go/internal/service/cache"
	"github.com/kapu/profile-lab-go/internal/storage"
)

// PromptMetadataFile holds the imported gallery prompt corpus, relative
// to the data directory.
const PromptMetadataFile = "prompt_metadata.json"

// Container bundles assembled services for constructing runtime
// components like the HTTP server.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Catalog  *catalog.Service
	Profiles *profilestore.Store
	Importer *service.ImporterService
	Postgres *storage.PostgresService

	routerDeps *server.Container
	closers    []func()
}

// NewServer instantiates the HTTP server over the pre-built dependency
// graph.
func (c *Container) NewServer() (*server.Server, error) {
	if c == nil || c.routerDeps == nil {
		return nil, fmt.Errorf("server dependencies not initialized")
	}
	router := server.NewRouter(c.routerDeps)
	return server.NewServer(c.Config.Server.Host, c.Config.Server.Port, router, c.Logger), nil
}

// Close releases held connections in reverse construction order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// Build assembles all infrastructure services. All heavy-weight
// initialization (providers, cache, database) happens here so the
// entrypoints stay focused on lifecycle.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	// Storage. Config paths already carry the data directory, so the
	// store resolves against the working directory.
	jsonStore := storage.NewJSONStore(".", logger)
	catalogSvc := catalog.NewService(jsonStore, cfg.Storage.CatalogFile, logger)
	profiles := profilestore.NewStore(jsonStore, cfg.Storage.ProfilesDir, logger)
	importer := service.NewImporterService(jsonStore,
		filepath.Join(cfg.Storage.DataDir, PromptMetadataFile), logger)

	// Cache is optional; reports recompute without it.
	var cacheSvc *cache.CacheService
	if cfg.Redis.Enabled {
		cacheSvc, err = cache.NewCacheService(cache.CacheConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache service: %w", err)
		}
		closers = append(closers, func() {
			_ = cacheSvc.Close()
		})
	}

	// Postgres mirror is optional; JSON files stay authoritative.
	var postgresSvc *storage.PostgresService
	if cfg.Postgres.Enabled {
		postgresSvc, err = storage.NewPostgresService(cfg.Postgres.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres service: %w", err)
		}
		closers = append(closers, func() {
			_ = postgresSvc.Close()
		})
		if err := postgresSvc.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure postgres schema: %w", err)
		}
	}

	// Model stack
	models, err := service.NewModelManager(ctx, service.ModelManagerConfig{
		OpenAIAPIKey:       cfg.OpenAI.APIKey,
		GeminiAPIKey:       cfg.Gemini.APIKey,
		DefaultOpenAIModel: cfg.OpenAI.Model,
		DefaultGeminiModel: cfg.Gemini.Model,
		EnableFallback:     cfg.Gemini.EnableFallback,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create model manager: %w", err)
	}

	rater := service.NewRaterService(models, logger)
	finalizer := service.NewFinalizeService(models, logger)
	describer := service.NewDescribeService(models, logger)

	hub := server.NewHub(logger)

	deps := &server.Container{
		Catalog:   catalogSvc,
		Profiles:  profiles,
		Rater:     rater,
		Finalizer: finalizer,
		Describer: describer,
		Importer:  importer,
		Models:    models,
		Cache:     cacheSvc,
		Hub:       hub,
		Logger:    logger,
	}

	return &Container{
		Config:     cfg,
		Logger:     logger,
		Catalog:    catalogSvc,
		Profiles:   profiles,
		Importer:   importer,
		Postgres:   postgresSvc,
		routerDeps: deps,
		closers:    closers,
	}, nil
}
