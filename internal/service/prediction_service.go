package service

import (
	"context"
	"errors"
	"strings"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/rs/zerolog/log"
)

// Predictor is the stockout prediction pipeline.
type Predictor interface {
	Predict(ctx context.Context, input domain.PredictionInput) (*domain.Prediction, error)
}

type PredictionService struct {
	predictor Predictor
}

func NewPredictionService(predictor Predictor) *PredictionService {
	return &PredictionService{predictor: predictor}
}

// Predict runs the pipeline. Errors are always *domain.PredictionError; the
// underlying cause is logged here and never returned to callers for display.
func (s *PredictionService) Predict(ctx context.Context, input domain.PredictionInput) (*domain.Prediction, *domain.PredictionError) {
	input.FacilityID = strings.TrimSpace(input.FacilityID)
	input.LastRestockDate = strings.TrimSpace(input.LastRestockDate)

	result, err := s.predictor.Predict(ctx, input)
	if err == nil {
		return result, nil
	}

	reason := domain.ReasonOf(err)
	event := log.Warn()
	if reason == domain.ReasonModelUnavailable || reason == domain.ReasonInternal {
		event = log.Error()
	}
	event.Err(err).
		Str("reason", string(reason)).
		Str("facility_id", input.FacilityID).
		Str("item_name", input.ItemName).
		Msg("prediction failed")

	var perr *domain.PredictionError
	if errors.As(err, &perr) {
		return nil, perr
	}
	return nil, domain.NewPredictionError(reason, err)
}
