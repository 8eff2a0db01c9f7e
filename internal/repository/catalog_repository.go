package repository

import (
	"context"

	"github.com/andresuchdata/restock-advisor/internal/domain"
)

// InventorySource provides the static inventory catalog.
type InventorySource interface {
	LoadInventory(ctx context.Context) ([]domain.InventoryRecord, error)
}

// FacilityFeatureSource provides the precomputed facility feature table.
type FacilityFeatureSource interface {
	LoadFacilityFeatures(ctx context.Context) (*domain.FacilityFeatureTable, error)
}

// CatalogSource is a source of both catalog tables.
type CatalogSource interface {
	InventorySource
	FacilityFeatureSource
}

// Column names shared by the CSV files and the postgres tables.
const (
	ColFacilityID      = "facility_id"
	ColItemName        = "item_name"
	ColStockLevel      = "stock_level"
	ColReorderLevel    = "reorder_level"
	ColLastRestockDate = "last_restock_date"
)
