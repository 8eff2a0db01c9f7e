package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/rs/zerolog/log"
)

// CSVSource reads the catalog tables from CSV files on disk.
type CSVSource struct {
	inventoryPath string
	featuresPath  string
	loc           *time.Location
}

// NewCSVSource creates a CSV-backed catalog source.
func NewCSVSource(inventoryPath, featuresPath string) *CSVSource {
	return &CSVSource{
		inventoryPath: inventoryPath,
		featuresPath:  featuresPath,
		loc:           time.Local,
	}
}

func (s *CSVSource) LoadInventory(ctx context.Context) ([]domain.InventoryRecord, error) {
	file, err := os.Open(s.inventoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory file %s: %w", s.inventoryPath, err)
	}
	defer file.Close()

	records, err := ReadInventoryCSV(file, s.loc)
	if err != nil {
		return nil, fmt.Errorf("inventory file %s: %w", s.inventoryPath, err)
	}
	return records, nil
}

func (s *CSVSource) LoadFacilityFeatures(ctx context.Context) (*domain.FacilityFeatureTable, error) {
	file, err := os.Open(s.featuresPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open facility features file %s: %w", s.featuresPath, err)
	}
	defer file.Close()

	table, err := ReadFacilityFeaturesCSV(file)
	if err != nil {
		return nil, fmt.Errorf("facility features file %s: %w", s.featuresPath, err)
	}
	return table, nil
}

// ReadInventoryCSV parses inventory rows. Unparseable numbers read as 0 and
// unparseable dates as absent.
func ReadInventoryCSV(r io.Reader, loc *time.Location) ([]domain.InventoryRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	colMap := headerIndex(header)

	for _, col := range []string{ColFacilityID, ColItemName, ColStockLevel, ColReorderLevel} {
		if _, ok := colMap[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	var (
		records  []domain.InventoryRecord
		badDates int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		getValue := func(col string) string {
			if idx, ok := colMap[col]; ok && idx < len(record) {
				return strings.TrimSpace(record[idx])
			}
			return ""
		}

		facilityID := getValue(ColFacilityID)
		if facilityID == "" {
			continue
		}

		row := domain.InventoryRecord{
			FacilityID:   facilityID,
			ItemName:     getValue(ColItemName),
			StockLevel:   parseFloatOrZero(getValue(ColStockLevel)),
			ReorderLevel: parseFloatOrZero(getValue(ColReorderLevel)),
		}
		if raw := getValue(ColLastRestockDate); raw != "" {
			if t, err := domain.ParseRestockDate(raw, loc); err == nil {
				row.LastRestockDate = &t
			} else {
				badDates++
			}
		}
		records = append(records, row)
	}

	if badDates > 0 {
		log.Warn().Int("rows", badDates).Msg("inventory rows with unparseable restock dates")
	}
	return records, nil
}

// ReadFacilityFeaturesCSV parses a wide facility feature table keyed by facility_id.
// Every other column is numeric; empty or unparseable cells read as NaN.
// The first row for a facility wins.
func ReadFacilityFeaturesCSV(r io.Reader) (*domain.FacilityFeatureTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	idIdx := -1
	var (
		columns    []string
		columnIdxs []int
	)
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if col == ColFacilityID {
			idIdx = i
			continue
		}
		if col == "" {
			continue
		}
		columns = append(columns, col)
		columnIdxs = append(columnIdxs, i)
	}
	if idIdx < 0 {
		return nil, fmt.Errorf("missing required column: %s", ColFacilityID)
	}

	table := domain.NewFacilityFeatureTable(columns)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		if idIdx >= len(record) {
			continue
		}
		facilityID := strings.TrimSpace(record[idIdx])
		if facilityID == "" {
			continue
		}
		if _, seen := table.Rows[facilityID]; seen {
			continue
		}

		values := make([]float64, len(columns))
		for i, idx := range columnIdxs {
			values[i] = math.NaN()
			if idx < len(record) {
				if f, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64); err == nil {
					values[i] = f
				}
			}
		}
		table.Rows[facilityID] = values
	}

	return table, nil
}

func headerIndex(header []string) map[string]int {
	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))] = i
	}
	return colMap
}

func parseFloatOrZero(val string) float64 {
	if val == "" {
		return 0
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return f
}

var _ CatalogSource = (*CSVSource)(nil)
