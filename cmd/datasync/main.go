package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/app"
	"github.com/andresuchdata/restock-advisor/internal/config"
	"github.com/andresuchdata/restock-advisor/internal/drive"
	"github.com/andresuchdata/restock-advisor/internal/repository/postgres"
	"github.com/andresuchdata/restock-advisor/internal/storage"
	"github.com/andresuchdata/restock-advisor/pkg/logger"
	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()
	logger.Configure(os.Stdout, cfg.Server.Mode == "release")
	logger.SetLevel(logger.LevelForMode(cfg.Server.Mode))

	ctx := context.Background()
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	if cfg.Drive.CredentialsJSON != "" {
		driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
		}

		var ingest *drive.IngestService
		if cfg.Catalog.Source == config.CatalogSourcePostgres {
			db, err := postgres.NewDB(&cfg.Database)
			if err != nil {
				logger.Log.Fatal().Err(err).Msg("Failed to initialize database")
			}
			defer db.Close()
			repo := postgres.NewCatalogRepository(db)
			if err := repo.EnsureSchema(ctx); err != nil {
				logger.Log.Fatal().Err(err).Msg("Failed to prepare catalog schema")
			}
			ingest = drive.NewIngestService(drive.NewCatalogSync(driveService), repo)
		}

		defaults := drive.SyncOptions{
			FolderID:             cfg.Drive.FolderID,
			InventoryPath:        localPath(cfg.Drive.DownloadDir, cfg.Catalog.InventoryPath),
			FacilityFeaturesPath: localPath(cfg.Drive.DownloadDir, cfg.Catalog.FacilityFeaturesPath),
		}
		if defaults.FolderID == "" && cfg.Drive.FolderPath != "" {
			id, err := driveService.FindFolderByPath(ctx, cfg.Drive.FolderPath)
			if err != nil {
				logger.Log.Fatal().Err(err).Str("path", cfg.Drive.FolderPath).Msg("Failed to resolve Drive folder")
			}
			defaults.FolderID = id
		}
		drive.NewHandler(driveService, driveService, ingest, defaults).RegisterRoutes(r)
		logger.Log.Info().Str("folder_id", defaults.FolderID).Bool("ingest", ingest != nil).Msg("Drive routes enabled")
	}

	if cfg.Storage.Bucket != "" {
		client, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
		}
		paths := app.ArtifactPaths(cfg.Model)
		sync := storage.NewArtifactSync(client, cfg.Storage.Prefix)
		storage.NewHandler(sync, paths.Dir, paths.Files()).RegisterRoutes(r)
		logger.Log.Info().Str("bucket", cfg.Storage.Bucket).Str("prefix", cfg.Storage.Prefix).Msg("Artifact routes enabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("addr", srv.Addr).Msg("Data sync server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}
}

// localPath places the catalog file under dir unless it is already absolute.
func localPath(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, filepath.Base(path))
}
