package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/zola/internal/common"
	"github.com/ternarybob/zola/internal/handlers"
	"github.com/ternarybob/zola/internal/interfaces"
	"github.com/ternarybob/zola/internal/services/export"
	"github.com/ternarybob/zola/internal/services/itinerary"
	"github.com/ternarybob/zola/internal/services/llm"
	"github.com/ternarybob/zola/internal/services/planner"
	"github.com/ternarybob/zola/internal/services/pool"
	"github.com/ternarybob/zola/internal/services/sessions"
	"github.com/ternarybob/zola/internal/services/tripadvisor"
	"github.com/ternarybob/zola/internal/services/unsplash"
	"github.com/ternarybob/zola/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config    *common.Config
	Logger    arbor.ILogger
	ctx       context.Context
	cancelCtx context.CancelFunc

	// Storage
	DB               *badger.BadgerDB
	KVStorage        interfaces.KeyValueStorage
	ImagePoolStorage interfaces.ImagePoolStorage

	// Upstream clients
	ImageService    interfaces.ImageService
	LocationService interfaces.LocationService // nil without a TripAdvisor key
	LLMFactory      *llm.ProviderFactory

	// Domain services
	ItineraryService interfaces.ItineraryService
	ExportService    *export.Service
	PoolService      *pool.Service // nil when the image pool is disabled
	Sessions         *sessions.Manager

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	ServiceHandler   *handlers.ServiceHandler
	PlanHandler      *handlers.PlanHandler
	GalleryHandler   *handlers.GalleryHandler
	ItineraryHandler *handlers.ItineraryHandler
	WSHandler        *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	if err := app.initDatabase(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if app.PoolService != nil {
		if err := app.PoolService.Start(app.ctx); err != nil {
			logger.Warn().Err(err).Msg("Image pool not started, default images will be fetched live")
			app.PoolService = nil
		}
	}

	logger.Info().
		Bool("image_pool", app.PoolService != nil).
		Bool("place_lookups", app.LocationService != nil).
		Bool("fence_stale_responses", cfg.Generation.FenceStaleResponses).
		Str("llm_provider", string(cfg.LLM.DefaultProvider)).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase opens Badger and the stores built on it
func (a *App) initDatabase() error {
	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}

	a.DB = db
	a.KVStorage = badger.NewKVStorage(db, a.Logger)
	a.ImagePoolStorage = badger.NewImagePoolStorage(db, a.Logger)

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")
	return nil
}

// initServices builds upstream clients and domain services in dependency order
func (a *App) initServices() error {
	unsplashKey, err := common.ResolveAPIKey(a.ctx, a.KVStorage, "unsplash_access_key", a.Config.Unsplash.AccessKey)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Unsplash access key not configured, image requests will fail")
	}
	a.ImageService = unsplash.NewClientFromConfig(unsplashKey, a.Config.Unsplash, a.Logger)

	if tripKey, err := common.ResolveAPIKey(a.ctx, a.KVStorage, "tripadvisor_key", a.Config.TripAdvisor.APIKey); err == nil {
		a.LocationService = tripadvisor.NewClientFromConfig(tripKey, a.Config.TripAdvisor, a.Logger)
	} else {
		a.Logger.Warn().Msg("TripAdvisor key not configured, itineraries will have no place recommendations")
	}

	a.LLMFactory = llm.NewProviderFactory(&a.Config.Gemini, &a.Config.Claude, &a.Config.LLM, a.KVStorage, a.Logger)
	a.ItineraryService = itinerary.NewService(
		a.LLMFactory,
		a.LocationService,
		a.Config.Generation.RecommendPlaces,
		a.Logger,
	)

	a.ExportService = export.NewService(a.Config.Export, &http.Client{}, a.Logger)

	if a.Config.ImagePool.Enabled {
		a.PoolService = pool.NewService(a.ImagePoolStorage, a.ImageService, a.Config.ImagePool, a.Logger)
	}

	a.Sessions = sessions.NewManager(a.Config.Sessions, a.Config.IsProduction(), a.newWorkspace, a.Logger)
	return nil
}

func (a *App) newWorkspace(id string) *planner.Workspace {
	deps := planner.Dependencies{
		Images:              a.ImageService,
		Itinerary:           a.ItineraryService,
		Logger:              a.Logger,
		FenceStaleResponses: a.Config.Generation.FenceStaleResponses,
		DefaultImageCount:   a.Config.Unsplash.RandomCount,
		TagTimeout:          5 * time.Second,
		BaseContext:         a.ctx,
	}
	if a.PoolService != nil {
		deps.Pool = a.PoolService
	}
	return planner.NewWorkspace(id, deps)
}

// initHandlers creates the HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Sessions, a.Logger)
	a.ServiceHandler = handlers.NewServiceHandler(a.ImageService, a.LocationService, a.ItineraryService, a.Sessions, a.Logger)
	a.PlanHandler = handlers.NewPlanHandler(a.Sessions, a.Logger)
	a.GalleryHandler = handlers.NewGalleryHandler(a.Sessions, a.Logger)
	a.ItineraryHandler = handlers.NewItineraryHandler(a.Sessions, a.ExportService, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.Sessions, a.Config.Server.AllowedOrigins, a.Logger)
}

// Close releases background work and storage
func (a *App) Close() error {
	a.Logger.Info().Msg("Closing application")

	a.cancelCtx()

	if a.PoolService != nil {
		a.PoolService.Stop()
	}
	if a.WSHandler != nil {
		a.WSHandler.CloseAll()
	}
	if a.Sessions != nil {
		a.Sessions.Purge()
	}
	if a.LLMFactory != nil {
		_ = a.LLMFactory.Close()
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
