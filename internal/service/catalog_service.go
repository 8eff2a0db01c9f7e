package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/repository"
	"github.com/rs/zerolog/log"
)

// DefaultFacilityLimit is how many facilities the dashboard lists.
const DefaultFacilityLimit = 50

// CatalogService serves read-only lookups over the inventory catalog.
// It is built once at startup and never mutated afterwards.
type CatalogService struct {
	records    []domain.InventoryRecord
	byFacility map[string][]int
	facilities []string
	limit      int
}

// NewCatalogService loads the inventory from source.
func NewCatalogService(ctx context.Context, source repository.InventorySource, facilityLimit int) (*CatalogService, error) {
	records, err := source.LoadInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load inventory catalog: %w", err)
	}
	svc := NewCatalogServiceFromRecords(records, facilityLimit)
	log.Info().
		Int("records", len(records)).
		Int("facilities", len(svc.facilities)).
		Msg("inventory catalog loaded")
	return svc, nil
}

// NewCatalogServiceFromRecords indexes an already loaded inventory.
func NewCatalogServiceFromRecords(records []domain.InventoryRecord, facilityLimit int) *CatalogService {
	if facilityLimit <= 0 {
		facilityLimit = DefaultFacilityLimit
	}

	byFacility := make(map[string][]int)
	for i, rec := range records {
		byFacility[rec.FacilityID] = append(byFacility[rec.FacilityID], i)
	}

	facilities := make([]string, 0, len(byFacility))
	for id := range byFacility {
		if id == "" {
			continue
		}
		facilities = append(facilities, id)
	}
	sort.Strings(facilities)

	return &CatalogService{
		records:    records,
		byFacility: byFacility,
		facilities: facilities,
		limit:      facilityLimit,
	}
}

// TopFacilities returns the first facilities in sorted identifier order.
func (s *CatalogService) TopFacilities() []string {
	n := s.limit
	if n > len(s.facilities) {
		n = len(s.facilities)
	}
	return append([]string(nil), s.facilities[:n]...)
}

// AllFacilities returns every facility identifier, sorted.
func (s *CatalogService) AllFacilities() []string {
	return append([]string(nil), s.facilities...)
}

// Records returns every catalog record in source order.
func (s *CatalogService) Records() []domain.InventoryRecord {
	return append([]domain.InventoryRecord(nil), s.records...)
}

// ItemsByFacility lists the facility's items in catalog order.
func (s *CatalogService) ItemsByFacility(facilityID string) ([]domain.ItemSummary, error) {
	idxs := s.byFacility[facilityID]
	if len(idxs) == 0 {
		return nil, fmt.Errorf("%w for %s", domain.ErrNoItems, facilityID)
	}

	items := make([]domain.ItemSummary, 0, len(idxs))
	for _, i := range idxs {
		rec := s.records[i]
		items = append(items, domain.ItemSummary{
			ItemName:        rec.ItemName,
			StockLevel:      rec.StockLevel,
			ReorderLevel:    rec.ReorderLevel,
			LastRestockDate: rec.RestockDateString(),
		})
	}
	return items, nil
}

// ItemDetail returns the first catalog row for (facilityID, itemName).
// A missing restock date is reported as domain.PlaceholderRestockDate.
func (s *CatalogService) ItemDetail(facilityID, itemName string) (*domain.ItemDetail, error) {
	for _, i := range s.byFacility[facilityID] {
		rec := s.records[i]
		if rec.ItemName != itemName {
			continue
		}
		date := rec.RestockDateString()
		if date == "" {
			date = domain.PlaceholderRestockDate
		}
		return &domain.ItemDetail{
			StockLevel:      rec.StockLevel,
			ReorderLevel:    rec.ReorderLevel,
			LastRestockDate: date,
		}, nil
	}
	return nil, domain.ErrItemNotFound
}
