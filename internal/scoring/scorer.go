package scoring

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the scoring pool size when none is configured.
const DefaultWorkers = 4

// Predictor scores a single input.
type Predictor interface {
	Predict(ctx context.Context, input domain.PredictionInput) (*domain.Prediction, error)
}

// Row is the scoring outcome for one catalog record. Reason is set when the
// record could not be scored.
type Row struct {
	FacilityID      string
	ItemName        string
	LastRestockDate string
	Prediction      *domain.Prediction
	Reason          domain.FailureReason
}

// Scorer runs the predictor over many catalog records.
type Scorer struct {
	predictor Predictor
	workers   int
}

func NewScorer(predictor Predictor, workers int) *Scorer {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Scorer{predictor: predictor, workers: workers}
}

// ScoreCatalog scores every record and returns rows ordered by probability,
// highest first. Failed records sort last, in catalog order. Per-record
// failures are reported in Row.Reason; only cancellation aborts the run.
func (s *Scorer) ScoreCatalog(ctx context.Context, records []domain.InventoryRecord) ([]Row, error) {
	rows := make([]Row, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows[i] = s.score(gctx, rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Prediction, rows[j].Prediction
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Probability > b.Probability
		}
	})

	failed := 0
	for _, r := range rows {
		if r.Prediction == nil {
			failed++
		}
	}
	log.Info().
		Int("records", len(records)).
		Int("failed", failed).
		Int("workers", s.workers).
		Msg("catalog scored")

	return rows, nil
}

func (s *Scorer) score(ctx context.Context, rec domain.InventoryRecord) Row {
	date := rec.RestockDateString()
	if date == "" {
		date = domain.PlaceholderRestockDate
	}
	row := Row{
		FacilityID:      rec.FacilityID,
		ItemName:        rec.ItemName,
		LastRestockDate: date,
	}

	result, err := s.predictor.Predict(ctx, domain.PredictionInput{
		FacilityID:      rec.FacilityID,
		ItemName:        rec.ItemName,
		StockLevel:      rec.StockLevel,
		ReorderLevel:    rec.ReorderLevel,
		LastRestockDate: date,
	})
	if err != nil {
		row.Reason = domain.ReasonOf(err)
		log.Debug().Err(err).
			Str("facility_id", rec.FacilityID).
			Str("item_name", rec.ItemName).
			Msg("record not scored")
		return row
	}
	row.Prediction = result
	return row
}

// Filter keeps rows whose tier is at least minTier. Failed rows are dropped.
func Filter(rows []Row, minTier domain.RiskTier) []Row {
	rank := map[domain.RiskTier]int{domain.RiskLow: 0, domain.RiskMedium: 1, domain.RiskHigh: 2}
	floor := rank[minTier]

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Prediction == nil || rank[r.Prediction.RiskLevel] < floor {
			continue
		}
		out = append(out, r)
	}
	return out
}

var csvHeader = []string{
	"facility_id", "item_name", "last_restock_date",
	"probability", "days_until_stockout", "risk_level", "error",
}

// WriteCSV writes rows with the formatted prediction fields.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		record := []string{r.FacilityID, r.ItemName, r.LastRestockDate, "", "", "", ""}
		if r.Prediction != nil {
			record[3] = strconv.FormatFloat(r.Prediction.Probability, 'f', 4, 64)
			record[4] = r.Prediction.DaysText
			record[5] = string(r.Prediction.RiskLevel)
		} else {
			record[6] = string(r.Reason)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
