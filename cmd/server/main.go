package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/api"
	"github.com/andresuchdata/restock-advisor/internal/app"
	"github.com/andresuchdata/restock-advisor/internal/config"
	"github.com/andresuchdata/restock-advisor/internal/inference"
	"github.com/andresuchdata/restock-advisor/internal/service"
	"github.com/andresuchdata/restock-advisor/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Configure(os.Stdout, cfg.Server.Mode == gin.ReleaseMode)
	logger.SetLevel(logger.LevelForMode(cfg.Server.Mode))
	if cfg.Server.Mode == gin.DebugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	source, closeSource, err := app.CatalogSource(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to open catalog source")
	}
	defer closeSource()

	catalog, err := service.NewCatalogService(ctx, source, cfg.Catalog.FacilityLimit)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load inventory catalog")
	}

	provider, err := app.ArtifactProvider(cfg.Model, source)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid model configuration")
	}
	// Startup continues without artifacts; predictions then report model_unavailable.
	if cached, ok := provider.(*inference.CachedProvider); ok {
		if _, err := cached.Artifacts(ctx); err != nil {
			logger.Log.Error().Err(err).Str("dir", cfg.Model.ArtifactDir).Msg("Model artifacts not loaded")
		}
	}

	predictions := service.NewPredictionService(inference.NewPredictor(provider))

	router := api.NewRouter(&api.Services{
		Catalog:    catalog,
		Prediction: predictions,
		Artifacts:  provider,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Str("cache_mode", cfg.Model.CacheMode).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
