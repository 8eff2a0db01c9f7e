package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/repository"
	"github.com/rs/zerolog/log"
)

// SyncOptions controls which Drive files are pulled and where they land.
type SyncOptions struct {
	FolderID string
	// InventoryPath and FacilityFeaturesPath are the local catalog files to
	// replace. The Drive file is matched on base name, as .csv or .xlsx.
	InventoryPath        string
	FacilityFeaturesPath string
}

// SyncResult lists the catalog files written by a sync.
type SyncResult struct {
	InventoryPath        string `json:"inventory_path"`
	FacilityFeaturesPath string `json:"facility_features_path"`
	InventoryRecords     int    `json:"inventory_records"`
	Facilities           int    `json:"facilities"`
}

// CatalogSync downloads the catalog tables from a Drive folder.
type CatalogSync struct {
	files FileStore
}

func NewCatalogSync(files FileStore) *CatalogSync {
	return &CatalogSync{files: files}
}

// Sync downloads both catalog tables, converting XLSX sheets to CSV, and only
// replaces the local files once both parse.
func (s *CatalogSync) Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	if opts.InventoryPath == "" || opts.FacilityFeaturesPath == "" {
		return nil, fmt.Errorf("inventory and facility features paths are required")
	}

	files, err := s.files.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	inventoryFile, err := findCatalogFile(files, opts.InventoryPath)
	if err != nil {
		return nil, err
	}
	featuresFile, err := findCatalogFile(files, opts.FacilityFeaturesPath)
	if err != nil {
		return nil, err
	}

	stagedInventory, err := s.stage(ctx, inventoryFile, opts.InventoryPath)
	if err != nil {
		return nil, err
	}
	defer os.Remove(stagedInventory)

	stagedFeatures, err := s.stage(ctx, featuresFile, opts.FacilityFeaturesPath)
	if err != nil {
		return nil, err
	}
	defer os.Remove(stagedFeatures)

	records, features, err := readCatalog(ctx, stagedInventory, stagedFeatures)
	if err != nil {
		return nil, err
	}

	if err := os.Rename(stagedInventory, opts.InventoryPath); err != nil {
		return nil, fmt.Errorf("failed to replace %s: %w", opts.InventoryPath, err)
	}
	if err := os.Rename(stagedFeatures, opts.FacilityFeaturesPath); err != nil {
		return nil, fmt.Errorf("failed to replace %s: %w", opts.FacilityFeaturesPath, err)
	}

	log.Info().
		Str("folder_id", opts.FolderID).
		Int("inventory_records", len(records)).
		Int("facilities", features.Len()).
		Msg("catalog synced from drive")

	return &SyncResult{
		InventoryPath:        opts.InventoryPath,
		FacilityFeaturesPath: opts.FacilityFeaturesPath,
		InventoryRecords:     len(records),
		Facilities:           features.Len(),
	}, nil
}

// findCatalogFile picks the Drive file whose base name matches target, preferring CSV over XLSX.
func findCatalogFile(files []*File, target string) (*File, error) {
	want := strings.TrimSuffix(filepath.Base(target), filepath.Ext(target))

	var xlsx *File
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Name))
		if strings.TrimSuffix(f.Name, filepath.Ext(f.Name)) != want {
			continue
		}
		switch ext {
		case ".csv":
			return f, nil
		case ".xlsx":
			if xlsx == nil {
				xlsx = f
			}
		}
	}
	if xlsx != nil {
		return xlsx, nil
	}
	return nil, fmt.Errorf("no %s.csv or %s.xlsx in drive folder", want, want)
}

// stage downloads f next to dest and returns the path of a CSV ready to be renamed over dest.
func (s *CatalogSync) stage(ctx context.Context, f *File, dest string) (string, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}

	suffix := fmt.Sprintf(".%d", time.Now().UnixNano())
	raw := filepath.Join(dir, f.Name+suffix)
	out, err := os.Create(raw)
	if err != nil {
		return "", fmt.Errorf("failed to create local file %s: %w", raw, err)
	}
	if err := s.files.DownloadFile(ctx, f.ID, out); err != nil {
		out.Close()
		os.Remove(raw)
		return "", fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(raw)
		return "", fmt.Errorf("failed to write %s: %w", raw, err)
	}

	if strings.ToLower(filepath.Ext(f.Name)) != ".xlsx" {
		return raw, nil
	}

	csvPath := dest + suffix
	defer os.Remove(raw)
	if err := convertXLSXToCSV(raw, csvPath); err != nil {
		os.Remove(csvPath)
		return "", fmt.Errorf("failed to convert %s to csv: %w", f.Name, err)
	}
	return csvPath, nil
}

func readCatalog(ctx context.Context, inventoryPath, featuresPath string) ([]domain.InventoryRecord, *domain.FacilityFeatureTable, error) {
	src := repository.NewCSVSource(inventoryPath, featuresPath)
	records, err := src.LoadInventory(ctx)
	if err != nil {
		return nil, nil, err
	}
	features, err := src.LoadFacilityFeatures(ctx)
	if err != nil {
		return nil, nil, err
	}
	return records, features, nil
}
