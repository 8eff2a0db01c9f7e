package inference

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
)

// Feature column names produced by DeriveFeatures.
const (
	ColStockLevel          = "stock_level"
	ColReorderLevel        = "reorder_level"
	ColDaysSinceRestock    = "days_since_restock"
	ColRestockFrequency    = "restock_frequency"
	ColStockStatus         = "stock_status"
	ColItemCategoryEncoded = "item_category_encoded"
)

// DaysBetween returns the whole days from since to now, floored. Both times are
// compared by their wall-clock fields, so a DST change in between does not shift the count.
func DaysBetween(since, now time.Time) int {
	return int(math.Floor(wallClock(now).Sub(wallClock(since)).Hours() / 24))
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// RestockFrequency is restocks per year implied by the days since last restock.
// Non-positive day counts yield 0.
func RestockFrequency(daysSinceRestock int) float64 {
	if daysSinceRestock <= 0 {
		return 0
	}
	return 365 / float64(daysSinceRestock)
}

// DeriveFeatures computes the request-level features as of now.
func DeriveFeatures(input domain.PredictionInput, now time.Time, encoder *LabelEncoder) (domain.DerivedFeatures, error) {
	if !isFinite(input.StockLevel) || !isFinite(input.ReorderLevel) {
		return domain.DerivedFeatures{}, domain.NewPredictionError(domain.ReasonInvalidInput,
			fmt.Errorf("stock level %v / reorder level %v", input.StockLevel, input.ReorderLevel))
	}

	restocked, err := domain.ParseRestockDate(input.LastRestockDate, now.Location())
	if err != nil {
		return domain.DerivedFeatures{}, domain.NewPredictionError(domain.ReasonInvalidDate, err)
	}

	days := DaysBetween(restocked, now)
	category := Categorize(input.ItemName)

	encoded, err := encoder.Transform(string(category))
	if err != nil {
		return domain.DerivedFeatures{}, domain.NewPredictionError(domain.ReasonUnknownCategory, err)
	}

	return domain.DerivedFeatures{
		DaysSinceRestock:    days,
		RestockFrequency:    RestockFrequency(days),
		StockStatus:         input.StockLevel - input.ReorderLevel,
		ItemCategory:        category,
		ItemCategoryEncoded: encoded,
	}, nil
}

// FeatureRow is a single joined row of named numeric features.
type FeatureRow map[string]float64

// JoinFacility attaches the facility's precomputed columns to the derived row.
// It fails with ReasonFacilityNotFound when the facility has no entry in table.
func JoinFacility(input domain.PredictionInput, derived domain.DerivedFeatures, table *domain.FacilityFeatureTable) (FeatureRow, error) {
	facility, ok := table.Lookup(input.FacilityID)
	if !ok {
		return nil, domain.NewPredictionError(domain.ReasonFacilityNotFound,
			fmt.Errorf("%w: %q", domain.ErrFacilityNotFound, input.FacilityID))
	}

	row := make(FeatureRow, len(facility)+6)
	for col, v := range facility {
		row[col] = v
	}
	// Request-derived columns take precedence over same-named facility columns.
	row[ColStockLevel] = input.StockLevel
	row[ColReorderLevel] = input.ReorderLevel
	row[ColDaysSinceRestock] = float64(derived.DaysSinceRestock)
	row[ColRestockFrequency] = derived.RestockFrequency
	row[ColStockStatus] = derived.StockStatus
	row[ColItemCategoryEncoded] = float64(derived.ItemCategoryEncoded)
	return row, nil
}

// Vector lays the row out in the given column order. Absent and NaN values become 0.
func (r FeatureRow) Vector(columns []string) []float64 {
	out := make([]float64, len(columns))
	for i, col := range columns {
		v, ok := r[col]
		if !ok || math.IsNaN(v) {
			continue
		}
		out[i] = v
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
