package inference

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vector(stockStatus, daysSinceRestock float64) []float64 {
	return []float64{0, 0, daysSinceRestock, 0, stockStatus, 0, 0, 0}
}

func TestTreeEnsembleClassifierFixture(t *testing.T) {
	m, err := LoadTreeEnsemble("testdata/xgb_classifier.json")
	require.NoError(t, err)
	assert.Equal(t, "binary:logistic", m.Objective())
	assert.Equal(t, 1, m.NumTrees())

	p, err := m.PredictProba(vector(-8, 46))
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(-1)), p, 1e-6)

	p, err = m.PredictProba(vector(0, 46))
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(1)), p, 1e-6)
}

func TestTreeEnsembleRegressorFixture(t *testing.T) {
	m, err := LoadTreeEnsemble("testdata/xgb_regressor.json")
	require.NoError(t, err)

	days, err := m.Predict(vector(0, 46))
	require.NoError(t, err)
	assert.InDelta(t, 13.0, days, 1e-12)

	days, err = m.Predict(vector(0, 29))
	require.NoError(t, err)
	assert.InDelta(t, 5.5, days, 1e-12)

	// Root node routes missing values left.
	days, err = m.Predict(vector(0, math.NaN()))
	require.NoError(t, err)
	assert.InDelta(t, 5.5, days, 1e-12)

	_, err = m.PredictProba(vector(0, 29))
	assert.Error(t, err)
}

func TestTreeEnsembleFeatureCountMismatch(t *testing.T) {
	m, err := LoadTreeEnsemble("testdata/xgb_regressor.json")
	require.NoError(t, err)

	_, err = m.Predict([]float64{1, 2, 3})
	assert.Error(t, err)
}

const twoTreePoisson = `{
  "learner": {
    "gradient_booster": {
      "name": "gbtree",
      "model": {"trees": [
        {"left_children": [1, -1, -1], "right_children": [2, -1, -1], "split_indices": [0, 0, 0],
         "split_conditions": [1.5, 0.2, 0.4], "default_left": [true, false, false]},
        {"left_children": [-1], "right_children": [-1], "split_indices": [0],
         "split_conditions": [0.1], "default_left": [false]}
      ]}
    },
    "learner_model_param": {"base_score": "2E0", "num_class": "0", "num_feature": "0"},
    "objective": {"name": "count:poisson"}
  }
}`

func TestParseTreeEnsembleExpObjective(t *testing.T) {
	m, err := ParseTreeEnsemble([]byte(twoTreePoisson))
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumTrees())

	assert.InDelta(t, math.Log(2)+0.2+0.1, m.Margin([]float64{1}), 1e-6)

	y, err := m.Predict([]float64{3})
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Exp(0.5), y, 1e-5)

	y, err = m.Predict([]float64{math.NaN()})
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Exp(0.3), y, 1e-5)
}

func TestParseTreeEnsembleRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"linear booster", `{"learner":{"gradient_booster":{"name":"gblinear"},"objective":{"name":"reg:squarederror"}}}`},
		{"multi class", `{"learner":{"gradient_booster":{"name":"gbtree"},"learner_model_param":{"num_class":"3"},"objective":{"name":"multi:softprob"}}}`},
		{"unknown objective", `{"learner":{"gradient_booster":{"name":"gbtree"},"objective":{"name":"rank:pairwise"}}}`},
		{"no trees", `{"learner":{"gradient_booster":{"name":"gbtree","model":{"trees":[]}},"objective":{"name":"reg:squarederror"}}}`},
		{"bad base score", `{"learner":{"gradient_booster":{"name":"gbtree"},"learner_model_param":{"base_score":"abc"},"objective":{"name":"reg:squarederror"}}}`},
		{"logistic base score out of range", `{"learner":{"gradient_booster":{"name":"gbtree"},"learner_model_param":{"base_score":"1E0"},"objective":{"name":"binary:logistic"}}}`},
		{"child before parent", `{"learner":{"gradient_booster":{"name":"gbtree","model":{"trees":[
			{"left_children":[0,-1,-1],"right_children":[2,-1,-1],"split_indices":[0,0,0],"split_conditions":[1,1,1],"default_left":[0,0,0]}]}},
			"objective":{"name":"reg:squarederror"}}}`},
		{"categorical split", `{"learner":{"gradient_booster":{"name":"gbtree","model":{"trees":[
			{"left_children":[1,-1,-1],"right_children":[2,-1,-1],"split_indices":[0,0,0],"split_conditions":[0,1,-1],
			 "default_left":[0,0,0],"split_type":[1,0,0],"categories":[2],"categories_nodes":[0],"categories_segments":[0],"categories_sizes":[1]}]}},
			"objective":{"name":"reg:squarederror"}}}`},
		{"bad default_left", `{"learner":{"gradient_booster":{"name":"gbtree","model":{"trees":[
			{"left_children":[-1],"right_children":[-1],"split_indices":[0],"split_conditions":[1],"default_left":["yes"]}]}},
			"objective":{"name":"reg:squarederror"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTreeEnsemble([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

// Cut values in exported models are float32. Inputs are narrowed to float32 before
// comparing, so 365/30 lands on the 12.166667 cut and goes right.
func TestExportedClassifierFloat32Splits(t *testing.T) {
	m, err := LoadTreeEnsemble("testdata/xgb_exported_classifier.json")
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumTrees())

	tests := []struct {
		name      string
		x         []float64
		margin    float64
		probability float64
	}{
		{"frequency on the cut", []float64{30, RestockFrequency(30), -5}, -0.017682060599327087, 0.4955796003341675},
		{"frequency below the cut", []float64{31, RestockFrequency(31), -5}, -0.7676820158958435, 0.3169807493686676},
		{"missing values take default branches", []float64{math.NaN(), math.NaN(), -5}, -0.7676820158958435, 0.3169807493686676},
		{"frequency above the cut", []float64{29, RestockFrequency(29), 0}, -0.31768205761909485, 0.42124074697494507},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.margin, m.Margin(tt.x), 1e-7)
			p, err := m.PredictProba(tt.x)
			require.NoError(t, err)
			assert.InDelta(t, tt.probability, p, 1e-6)
		})
	}
}

func TestExportedRegressorFloat32Splits(t *testing.T) {
	m, err := LoadTreeEnsemble("testdata/xgb_exported_regressor.json")
	require.NoError(t, err)

	tests := []struct {
		x    []float64
		want float64
	}{
		{[]float64{30, RestockFrequency(30), 3}, 8.5},
		{[]float64{31, RestockFrequency(31), -1}, 13.25},
		{[]float64{math.NaN(), math.NaN(), math.NaN()}, 9.25},
	}
	for _, tt := range tests {
		got, err := m.Predict(tt.x)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseBaseScore(t *testing.T) {
	for in, want := range map[string]float64{"5E-1": 0.5, "[5E-1]": 0.5, " [1.25E1] ": 12.5, "": 0.5} {
		got, err := parseBaseScore(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestLabelEncoder(t *testing.T) {
	enc, err := NewLabelEncoder([]string{"ppe_consumables", "antimalarial", "other"})
	require.NoError(t, err)
	assert.Equal(t, []string{"antimalarial", "other", "ppe_consumables"}, enc.Classes())

	code, err := enc.Transform("other")
	require.NoError(t, err)
	assert.Equal(t, 1, code)

	_, err = enc.Transform("iv_fluid")
	assert.Error(t, err)

	_, err = NewLabelEncoder(nil)
	assert.Error(t, err)
	_, err = NewLabelEncoder([]string{"a", "b", "a"})
	assert.Error(t, err)
}
