// Package app assembles the shared components used by the command binaries.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/restock-advisor/internal/config"
	"github.com/andresuchdata/restock-advisor/internal/inference"
	"github.com/andresuchdata/restock-advisor/internal/repository"
	"github.com/andresuchdata/restock-advisor/internal/repository/postgres"
	"github.com/rs/zerolog/log"
)

// ArtifactPaths resolves the configured model artifact locations.
func ArtifactPaths(cfg config.ModelConfig) inference.ArtifactPaths {
	paths := inference.DefaultArtifactPaths(cfg.ArtifactDir)
	if cfg.ClassifierFile != "" {
		paths.Classifier = cfg.ClassifierFile
	}
	if cfg.RegressorFile != "" {
		paths.Regressor = cfg.RegressorFile
	}
	if cfg.LabelEncoderFile != "" {
		paths.LabelEncoder = cfg.LabelEncoderFile
	}
	if cfg.FeatureColumnsFile != "" {
		paths.FeatureColumns = cfg.FeatureColumnsFile
	}
	return paths
}

// CatalogSource opens the configured catalog backend. The returned close
// function is never nil.
func CatalogSource(ctx context.Context, cfg *config.Config) (repository.CatalogSource, func(), error) {
	switch strings.ToLower(cfg.Catalog.Source) {
	case "", config.CatalogSourceCSV:
		log.Info().
			Str("inventory", cfg.Catalog.InventoryPath).
			Str("facility_features", cfg.Catalog.FacilityFeaturesPath).
			Msg("using csv catalog")
		return repository.NewCSVSource(cfg.Catalog.InventoryPath, cfg.Catalog.FacilityFeaturesPath), func() {}, nil
	case config.CatalogSourcePostgres:
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, func() {}, err
		}
		repo := postgres.NewCatalogRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, func() {}, err
		}
		log.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.DBName).Msg("using postgres catalog")
		return repo, func() { db.Close() }, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}
}

// ArtifactProvider builds the provider selected by the cache mode.
func ArtifactProvider(cfg config.ModelConfig, facilities inference.FacilityFeatureLoader) (inference.ArtifactProvider, error) {
	loader := inference.NewArtifactLoader(ArtifactPaths(cfg), facilities)
	switch strings.ToLower(cfg.CacheMode) {
	case "", config.CacheModeCached:
		return inference.NewCachedProvider(loader), nil
	case config.CacheModeReload:
		return inference.NewReloadingProvider(loader), nil
	default:
		return nil, fmt.Errorf("unknown model cache mode %q", cfg.CacheMode)
	}
}
