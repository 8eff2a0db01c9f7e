package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Schema creates the catalog tables. Facility features are stored long-form so
// the column set can change without migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS inventory_records (
	id                BIGSERIAL PRIMARY KEY,
	facility_id       TEXT NOT NULL,
	item_name         TEXT NOT NULL,
	stock_level       DOUBLE PRECISION NOT NULL DEFAULT 0,
	reorder_level     DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_restock_date DATE NULL
);
CREATE INDEX IF NOT EXISTS idx_inventory_records_facility ON inventory_records (facility_id);

CREATE TABLE IF NOT EXISTS facility_features (
	facility_id TEXT NOT NULL,
	feature     TEXT NOT NULL,
	position    INT NOT NULL,
	value       DOUBLE PRECISION NULL,
	PRIMARY KEY (facility_id, feature)
);
`

type CatalogRepository struct {
	db *DB
}

func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

type inventoryRow struct {
	FacilityID      string       `db:"facility_id"`
	ItemName        string       `db:"item_name"`
	StockLevel      float64      `db:"stock_level"`
	ReorderLevel    float64      `db:"reorder_level"`
	LastRestockDate sql.NullTime `db:"last_restock_date"`
}

type featureRow struct {
	FacilityID string          `db:"facility_id"`
	Feature    string          `db:"feature"`
	Position   int             `db:"position"`
	Value      sql.NullFloat64 `db:"value"`
}

// EnsureSchema creates the catalog tables if they do not exist.
func (r *CatalogRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create catalog schema: %w", err)
	}
	return nil
}

func (r *CatalogRepository) LoadInventory(ctx context.Context) ([]domain.InventoryRecord, error) {
	release, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	query := `
		SELECT facility_id, item_name, stock_level, reorder_level, last_restock_date
		FROM inventory_records
		ORDER BY id
	`

	var rows []inventoryRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load inventory records: %w", err)
	}

	records := make([]domain.InventoryRecord, 0, len(rows))
	for _, row := range rows {
		rec := domain.InventoryRecord{
			FacilityID:   row.FacilityID,
			ItemName:     row.ItemName,
			StockLevel:   row.StockLevel,
			ReorderLevel: row.ReorderLevel,
		}
		if row.LastRestockDate.Valid {
			d := row.LastRestockDate.Time
			local := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.Local)
			rec.LastRestockDate = &local
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *CatalogRepository) LoadFacilityFeatures(ctx context.Context) (*domain.FacilityFeatureTable, error) {
	release, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	query := `
		SELECT facility_id, feature, position, value
		FROM facility_features
		ORDER BY facility_id, position
	`

	var rows []featureRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load facility features: %w", err)
	}

	return buildFeatureTable(rows), nil
}

func buildFeatureTable(rows []featureRow) *domain.FacilityFeatureTable {
	positions := make(map[string]int)
	for _, row := range rows {
		if p, ok := positions[row.Feature]; !ok || row.Position < p {
			positions[row.Feature] = row.Position
		}
	}
	columns := make([]string, 0, len(positions))
	for feature := range positions {
		columns = append(columns, feature)
	}
	sort.Slice(columns, func(i, j int) bool {
		pi, pj := positions[columns[i]], positions[columns[j]]
		if pi != pj {
			return pi < pj
		}
		return columns[i] < columns[j]
	})
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}

	table := domain.NewFacilityFeatureTable(columns)
	for _, row := range rows {
		values, ok := table.Rows[row.FacilityID]
		if !ok {
			values = make([]float64, len(columns))
			for i := range values {
				values[i] = math.NaN()
			}
			table.Rows[row.FacilityID] = values
		}
		if row.Value.Valid {
			values[index[row.Feature]] = row.Value.Float64
		}
	}
	return table
}

// ReplaceCatalog swaps the stored catalog for the given tables in one transaction.
func (r *CatalogRepository) ReplaceCatalog(ctx context.Context, records []domain.InventoryRecord, features *domain.FacilityFeatureTable) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `TRUNCATE inventory_records, facility_features`); err != nil {
			return fmt.Errorf("failed to truncate catalog: %w", err)
		}

		invStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO inventory_records (facility_id, item_name, stock_level, reorder_level, last_restock_date)
			VALUES ($1, $2, $3, $4, $5)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer invStmt.Close()

		for _, rec := range records {
			var restock sql.NullTime
			if rec.LastRestockDate != nil {
				restock = sql.NullTime{Time: *rec.LastRestockDate, Valid: true}
			}
			if _, err := invStmt.ExecContext(ctx, rec.FacilityID, rec.ItemName, rec.StockLevel, rec.ReorderLevel, restock); err != nil {
				return fmt.Errorf("failed to insert inventory record %s/%s: %w", rec.FacilityID, rec.ItemName, err)
			}
		}

		if features == nil {
			return nil
		}

		featStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO facility_features (facility_id, feature, position, value)
			VALUES ($1, $2, $3, $4)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer featStmt.Close()

		for facilityID, values := range features.Rows {
			for i, col := range features.Columns {
				var value sql.NullFloat64
				if i < len(values) && !math.IsNaN(values[i]) {
					value = sql.NullFloat64{Float64: values[i], Valid: true}
				}
				if _, err := featStmt.ExecContext(ctx, facilityID, col, i, value); err != nil {
					return fmt.Errorf("failed to insert feature %s/%s: %w", facilityID, col, err)
				}
			}
		}

		log.Info().
			Int("inventory_records", len(records)).
			Int("facilities", features.Len()).
			Msg("catalog replaced")
		return nil
	})
}

var _ repository.CatalogSource = (*CatalogRepository)(nil)
