package inference

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type countingFacilities struct {
	source repository.FacilityFeatureSource
	calls  atomic.Int32
}

func (c *countingFacilities) LoadFacilityFeatures(ctx context.Context) (*domain.FacilityFeatureTable, error) {
	c.calls.Add(1)
	return c.source.LoadFacilityFeatures(ctx)
}

func fixtureLoader(t *testing.T) (*ArtifactLoader, *countingFacilities) {
	t.Helper()
	facilities := &countingFacilities{source: repository.NewCSVSource("", "testdata/facility_features.csv")}
	return NewArtifactLoader(DefaultArtifactPaths("testdata"), facilities), facilities
}

// countingModel records invocations and returns fixed outputs.
type countingModel struct {
	calls int
	value float64
}

func (m *countingModel) PredictProba([]float64) (float64, error) {
	m.calls++
	return m.value, nil
}

func (m *countingModel) Predict([]float64) (float64, error) {
	m.calls++
	return m.value, nil
}

type staticProvider struct {
	artifacts *Artifacts
	err       error
}

func (p staticProvider) Artifacts(context.Context) (*Artifacts, error) {
	return p.artifacts, p.err
}

func stubArtifacts(t *testing.T, classifier, regressor *countingModel) *Artifacts {
	t.Helper()
	table := domain.NewFacilityFeatureTable([]string{"avg_daily_consumption"})
	table.Rows["F01"] = []float64{4.5}
	return &Artifacts{
		Classifier:     classifier,
		Regressor:      regressor,
		Encoder:        testEncoder(t),
		FeatureColumns: []string{ColStockLevel, ColStockStatus, "avg_daily_consumption"},
		Facilities:     table,
		Version:        "test",
	}
}

func TestPredictRoundTripWithFixtureArtifacts(t *testing.T) {
	loader, _ := fixtureLoader(t)
	predictor := NewPredictor(NewReloadingProvider(loader), WithClock(fixedClock))

	got, err := predictor.Predict(context.Background(), domain.PredictionInput{
		FacilityID:      "F01",
		ItemName:        "Measles vaccine",
		StockLevel:      12,
		ReorderLevel:    20,
		LastRestockDate: "2024-01-15",
	})
	require.NoError(t, err)
	assert.Equal(t, "73.11%", got.ProbabilityText)
	assert.Equal(t, "13.0", got.DaysText)
	assert.Equal(t, domain.RiskHigh, got.RiskLevel)

	got, err = predictor.Predict(context.Background(), domain.PredictionInput{
		FacilityID:      "F02",
		ItemName:        "Surgical gloves",
		StockLevel:      300,
		ReorderLevel:    100,
		LastRestockDate: "2024-02-20",
	})
	require.NoError(t, err)
	assert.Equal(t, "26.89%", got.ProbabilityText)
	assert.Equal(t, "5.5", got.DaysText)
	assert.Equal(t, domain.RiskLow, got.RiskLevel)
}

func TestPredictUnknownFacilityInvokesNoModel(t *testing.T) {
	classifier := &countingModel{value: 0.9}
	regressor := &countingModel{value: 3}
	predictor := NewPredictor(staticProvider{artifacts: stubArtifacts(t, classifier, regressor)}, WithClock(fixedClock))

	_, err := predictor.Predict(context.Background(), domain.PredictionInput{
		FacilityID:      "F99",
		ItemName:        "Gloves",
		LastRestockDate: "2024-01-01",
	})
	require.Error(t, err)
	assert.Equal(t, domain.ReasonFacilityNotFound, domain.ReasonOf(err))
	assert.Zero(t, classifier.calls)
	assert.Zero(t, regressor.calls)
}

func TestPredictTiers(t *testing.T) {
	tests := []struct {
		prob float64
		want domain.RiskTier
		text string
	}{
		{0.71, domain.RiskHigh, "71.00%"},
		{0.41, domain.RiskMedium, "41.00%"},
		{0.40, domain.RiskLow, "40.00%"},
	}
	for _, tt := range tests {
		classifier := &countingModel{value: tt.prob}
		regressor := &countingModel{value: 7.3}
		predictor := NewPredictor(staticProvider{artifacts: stubArtifacts(t, classifier, regressor)}, WithClock(fixedClock))

		got, err := predictor.Predict(context.Background(), domain.PredictionInput{
			FacilityID:      "F01",
			ItemName:        "Gloves",
			StockLevel:      5,
			ReorderLevel:    10,
			LastRestockDate: "2024-02-01",
		})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.RiskLevel)
		assert.Equal(t, tt.text, got.ProbabilityText)
		assert.Equal(t, "7.3", got.DaysText)
		assert.Equal(t, 1, classifier.calls)
		assert.Equal(t, 1, regressor.calls)
	}
}

func TestPredictArtifactFailureIsModelUnavailable(t *testing.T) {
	loader := NewArtifactLoader(DefaultArtifactPaths(t.TempDir()), repository.NewCSVSource("", "testdata/facility_features.csv"))
	predictor := NewPredictor(NewReloadingProvider(loader), WithClock(fixedClock))

	_, err := predictor.Predict(context.Background(), domain.PredictionInput{FacilityID: "F01", ItemName: "Gloves", LastRestockDate: "2024-01-01"})
	require.Error(t, err)
	assert.Equal(t, domain.ReasonModelUnavailable, domain.ReasonOf(err))
}

func TestCachedAndReloadingProvidersAgree(t *testing.T) {
	reloadLoader, reloadCount := fixtureLoader(t)
	cachedLoader, cachedCount := fixtureLoader(t)

	cold := NewPredictor(NewReloadingProvider(reloadLoader), WithClock(fixedClock))
	warm := NewPredictor(NewCachedProvider(cachedLoader), WithClock(fixedClock))

	inputs := []domain.PredictionInput{
		{FacilityID: "F01", ItemName: "Measles vaccine", StockLevel: 12, ReorderLevel: 20, LastRestockDate: "2024-01-15"},
		{FacilityID: "F02", ItemName: "ORS sachets", StockLevel: 40, ReorderLevel: 25, LastRestockDate: "2024-02-10"},
		{FacilityID: "F03", ItemName: "Paracetamol 500mg", StockLevel: 10, ReorderLevel: 50, LastRestockDate: "2023-11-30"},
	}
	for _, in := range inputs {
		a, err := cold.Predict(context.Background(), in)
		require.NoError(t, err)
		b, err := warm.Predict(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, a, b, in.ItemName)
	}

	assert.EqualValues(t, len(inputs), reloadCount.calls.Load())
	assert.EqualValues(t, 1, cachedCount.calls.Load())
}
