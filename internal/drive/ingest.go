package drive

import (
	"context"
	"fmt"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/repository"
	"github.com/rs/zerolog/log"
)

// CatalogWriter replaces the stored catalog.
type CatalogWriter interface {
	ReplaceCatalog(ctx context.Context, records []domain.InventoryRecord, features *domain.FacilityFeatureTable) error
}

// IngestService syncs the catalog from Drive and loads it into the database.
type IngestService struct {
	sync *CatalogSync
	repo CatalogWriter
}

func NewIngestService(sync *CatalogSync, repo CatalogWriter) *IngestService {
	return &IngestService{sync: sync, repo: repo}
}

func (s *IngestService) Ingest(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	result, err := s.sync.Sync(ctx, opts)
	if err != nil {
		return nil, err
	}

	src := repository.NewCSVSource(result.InventoryPath, result.FacilityFeaturesPath)
	records, err := src.LoadInventory(ctx)
	if err != nil {
		return nil, err
	}
	features, err := src.LoadFacilityFeatures(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceCatalog(ctx, records, features); err != nil {
		return nil, fmt.Errorf("ingest catalog: %w", err)
	}

	log.Info().Int("inventory_records", len(records)).Msg("drive catalog ingested")
	return result, nil
}
