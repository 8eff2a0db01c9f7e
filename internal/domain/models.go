package domain

import (
	"math"
	"time"
)

// DateLayout is the ISO date format used for restock dates on the wire.
const DateLayout = "2006-01-02"

// PlaceholderRestockDate is served by the item-detail lookup when a catalog row has no usable date.
const PlaceholderRestockDate = "2024-01-01"

// InventoryRecord is one catalog row, keyed by (FacilityID, ItemName).
type InventoryRecord struct {
	FacilityID      string     `json:"facility_id" db:"facility_id"`
	ItemName        string     `json:"item_name" db:"item_name"`
	StockLevel      float64    `json:"stock_level" db:"stock_level"`
	ReorderLevel    float64    `json:"reorder_level" db:"reorder_level"`
	LastRestockDate *time.Time `json:"last_restock_date" db:"last_restock_date"`
}

// RestockDateString returns the restock date as YYYY-MM-DD, or "" when absent.
func (r InventoryRecord) RestockDateString() string {
	if r.LastRestockDate == nil {
		return ""
	}
	return r.LastRestockDate.Format(DateLayout)
}

// ItemSummary is the per-item payload of the items listing endpoint.
type ItemSummary struct {
	ItemName        string  `json:"item_name"`
	StockLevel      float64 `json:"stock_level"`
	ReorderLevel    float64 `json:"reorder_level"`
	LastRestockDate string  `json:"last_restock_date"`
}

// ItemDetail is the payload of the item-detail endpoint.
type ItemDetail struct {
	StockLevel      float64 `json:"stock_level"`
	ReorderLevel    float64 `json:"reorder_level"`
	LastRestockDate string  `json:"last_restock_date"`
}

// FacilityFeatureTable holds precomputed per-facility numeric columns.
// Columns keeps the source column order; Rows maps facility_id to values aligned with Columns.
type FacilityFeatureTable struct {
	Columns []string
	Rows    map[string][]float64
}

// NewFacilityFeatureTable creates an empty table with the given columns.
func NewFacilityFeatureTable(columns []string) *FacilityFeatureTable {
	return &FacilityFeatureTable{
		Columns: columns,
		Rows:    make(map[string][]float64),
	}
}

// Lookup returns the facility's features keyed by column name.
func (t *FacilityFeatureTable) Lookup(facilityID string) (map[string]float64, bool) {
	if t == nil {
		return nil, false
	}
	values, ok := t.Rows[facilityID]
	if !ok {
		return nil, false
	}
	out := make(map[string]float64, len(t.Columns))
	for i, col := range t.Columns {
		v := math.NaN()
		if i < len(values) {
			v = values[i]
		}
		out[col] = v
	}
	return out, true
}

// Len returns the number of facilities in the table.
func (t *FacilityFeatureTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// PredictionInput is the per-request input of the prediction pipeline.
type PredictionInput struct {
	FacilityID      string  `form:"facility_id" json:"facility_id"`
	ItemName        string  `form:"item_name" json:"item_name"`
	StockLevel      float64 `form:"current_stock_level" json:"current_stock_level"`
	ReorderLevel    float64 `form:"reorder_level" json:"reorder_level"`
	LastRestockDate string  `form:"last_restock_date" json:"last_restock_date"`
}

// DerivedFeatures are computed from a PredictionInput before the facility join.
type DerivedFeatures struct {
	DaysSinceRestock    int
	RestockFrequency    float64
	StockStatus         float64
	ItemCategory        Category
	ItemCategoryEncoded int
}

// Prediction is the result of a single prediction call.
type Prediction struct {
	Probability       float64  `json:"-"`
	DaysUntilStockout float64  `json:"-"`
	ProbabilityText   string   `json:"probability"`
	DaysText          string   `json:"days_until_stockout"`
	RiskLevel         RiskTier `json:"risk_level"`
}
