package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/rs/zerolog/log"
)

// Predictor runs the two-stage stockout pipeline for a single input.
type Predictor struct {
	provider ArtifactProvider
	now      func() time.Time
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithClock overrides the wall clock used for days-since-restock.
func WithClock(now func() time.Time) Option {
	return func(p *Predictor) {
		p.now = now
	}
}

// NewPredictor creates a predictor backed by provider.
func NewPredictor(provider ArtifactProvider, opts ...Option) *Predictor {
	p := &Predictor{
		provider: provider,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Predict derives features, joins facility statistics and scores both models.
// Every failure is a *domain.PredictionError.
func (p *Predictor) Predict(ctx context.Context, input domain.PredictionInput) (*domain.Prediction, error) {
	artifacts, err := p.provider.Artifacts(ctx)
	if err != nil {
		return nil, asPredictionError(domain.ReasonModelUnavailable, err)
	}

	derived, err := DeriveFeatures(input, p.now(), artifacts.Encoder)
	if err != nil {
		return nil, err
	}

	row, err := JoinFacility(input, derived, artifacts.Facilities)
	if err != nil {
		return nil, err
	}
	x := row.Vector(artifacts.FeatureColumns)

	prob, err := artifacts.Classifier.PredictProba(x)
	if err != nil {
		return nil, domain.NewPredictionError(domain.ReasonModelUnavailable, fmt.Errorf("classifier: %w", err))
	}
	days, err := artifacts.Regressor.Predict(x)
	if err != nil {
		return nil, domain.NewPredictionError(domain.ReasonModelUnavailable, fmt.Errorf("regressor: %w", err))
	}

	result := NewPrediction(prob, days)
	log.Debug().
		Str("facility_id", input.FacilityID).
		Str("item_name", input.ItemName).
		Str("category", string(derived.ItemCategory)).
		Int("days_since_restock", derived.DaysSinceRestock).
		Float64("probability", prob).
		Float64("days_until_stockout", days).
		Str("artifact_version", artifacts.Version).
		Msg("prediction computed")

	return result, nil
}

// NewPrediction formats raw model outputs into a Prediction.
func NewPrediction(probability, days float64) *domain.Prediction {
	return &domain.Prediction{
		Probability:       probability,
		DaysUntilStockout: days,
		ProbabilityText:   fmt.Sprintf("%.2f%%", probability*100),
		DaysText:          fmt.Sprintf("%.1f", days),
		RiskLevel:         domain.TierForProbability(probability),
	}
}

func asPredictionError(fallback domain.FailureReason, err error) error {
	if domain.ReasonOf(err) != domain.ReasonInternal {
		return err
	}
	return domain.NewPredictionError(fallback, err)
}
