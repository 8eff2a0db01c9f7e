package inference

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Classifier returns the probability of the positive class for one feature vector.
type Classifier interface {
	PredictProba(features []float64) (float64, error)
}

// Regressor returns a point estimate for one feature vector.
type Regressor interface {
	Predict(features []float64) (float64, error)
}

type transform int

const (
	transformIdentity transform = iota
	transformSigmoid
	transformExp
)

// objectiveTransforms maps XGBoost objectives to their output transform.
var objectiveTransforms = map[string]transform{
	"binary:logistic":      transformSigmoid,
	"reg:logistic":         transformSigmoid,
	"binary:logitraw":      transformIdentity,
	"reg:squarederror":     transformIdentity,
	"reg:linear":           transformIdentity,
	"reg:absoluteerror":    transformIdentity,
	"reg:pseudohubererror": transformIdentity,
	"reg:squaredlogerror":  transformIdentity,
	"count:poisson":        transformExp,
	"reg:gamma":            transformExp,
	"reg:tweedie":          transformExp,
}

// TreeEnsemble is a gradient boosted tree model decoded from an XGBoost JSON model document.
// Evaluation follows XGBoost's float32 arithmetic: inputs are narrowed before each split
// comparison and leaf values are summed in float32.
type TreeEnsemble struct {
	objective  string
	transform  transform
	baseMargin float32
	numFeature int
	trees      []regTree
}

type regTree struct {
	left        []int
	right       []int
	splitIndex  []int
	splitCond   []float32
	defaultLeft []bool
}

// JSON layout of an XGBoost model saved with save_model("*.json").
type xgbModelFile struct {
	Learner struct {
		LearnerModelParam struct {
			BaseScore  string `json:"base_score"`
			NumClass   string `json:"num_class"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Trees []xgbTree `json:"trees"`
			} `json:"model"`
		} `json:"gradient_booster"`
	} `json:"learner"`
}

type xgbTree struct {
	LeftChildren    []int     `json:"left_children"`
	RightChildren   []int     `json:"right_children"`
	SplitIndices    []int     `json:"split_indices"`
	SplitConditions []float64 `json:"split_conditions"`
	DefaultLeft     flagList  `json:"default_left"`
	SplitType       []int     `json:"split_type"`
}

// flagList accepts default_left encoded either as 0/1 numbers or as booleans.
type flagList []bool

func (f *flagList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]bool, len(raw))
	for i, r := range raw {
		s := strings.TrimSpace(string(r))
		switch s {
		case "true", "1":
			out[i] = true
		case "false", "0":
			out[i] = false
		default:
			return fmt.Errorf("default_left[%d]: unexpected value %s", i, s)
		}
	}
	*f = out
	return nil
}

// LoadTreeEnsemble reads an XGBoost JSON model from path.
func LoadTreeEnsemble(path string) (*TreeEnsemble, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	model, err := ParseTreeEnsemble(raw)
	if err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	return model, nil
}

// ParseTreeEnsemble decodes an XGBoost JSON model document.
func ParseTreeEnsemble(raw []byte) (*TreeEnsemble, error) {
	var f xgbModelFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode xgboost json: %w", err)
	}

	learner := f.Learner
	if name := learner.GradientBooster.Name; name != "gbtree" {
		return nil, fmt.Errorf("unsupported booster %q", name)
	}
	if nc := parseParamInt(learner.LearnerModelParam.NumClass); nc > 1 {
		return nil, fmt.Errorf("multi-class models are not supported (num_class=%d)", nc)
	}

	objective := learner.Objective.Name
	tf, ok := objectiveTransforms[objective]
	if !ok {
		return nil, fmt.Errorf("unsupported objective %q", objective)
	}

	baseScore, err := parseBaseScore(learner.LearnerModelParam.BaseScore)
	if err != nil {
		return nil, err
	}
	baseMargin, err := baseScoreToMargin(baseScore, tf)
	if err != nil {
		return nil, err
	}

	trees := make([]regTree, 0, len(learner.GradientBooster.Model.Trees))
	for i, t := range learner.GradientBooster.Model.Trees {
		tree, err := t.toRegTree()
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		trees = append(trees, tree)
	}
	if len(trees) == 0 {
		return nil, fmt.Errorf("model has no trees")
	}

	return &TreeEnsemble{
		objective:  objective,
		transform:  tf,
		baseMargin: baseMargin,
		numFeature: parseParamInt(learner.LearnerModelParam.NumFeature),
		trees:      trees,
	}, nil
}

func (t xgbTree) toRegTree() (regTree, error) {
	n := len(t.LeftChildren)
	if n == 0 {
		return regTree{}, fmt.Errorf("empty tree")
	}
	if len(t.RightChildren) != n || len(t.SplitIndices) != n || len(t.SplitConditions) != n {
		return regTree{}, fmt.Errorf("inconsistent node arrays")
	}
	defaultLeft := []bool(t.DefaultLeft)
	if len(defaultLeft) != n {
		return regTree{}, fmt.Errorf("default_left has %d entries, want %d", len(defaultLeft), n)
	}
	for i, st := range t.SplitType {
		if st != 0 {
			return regTree{}, fmt.Errorf("node %d uses a categorical split, which is not supported", i)
		}
	}
	conds := make([]float32, n)
	for i, c := range t.SplitConditions {
		conds[i] = float32(c)
	}
	for i := 0; i < n; i++ {
		l, r := t.LeftChildren[i], t.RightChildren[i]
		if l == -1 {
			continue
		}
		if l <= i || l >= n || r <= i || r >= n {
			return regTree{}, fmt.Errorf("node %d has invalid children (%d, %d)", i, l, r)
		}
	}
	return regTree{
		left:        t.LeftChildren,
		right:       t.RightChildren,
		splitIndex:  t.SplitIndices,
		splitCond:   conds,
		defaultLeft: defaultLeft,
	}, nil
}

// leaf walks the tree for x. Leaf values live in split_conditions.
func (t regTree) leaf(x []float64) float32 {
	node := 0
	for t.left[node] != -1 {
		idx := t.splitIndex[node]
		v := float32(math.NaN())
		if idx < len(x) {
			v = float32(x[idx])
		}
		switch {
		case v != v:
			if t.defaultLeft[node] {
				node = t.left[node]
			} else {
				node = t.right[node]
			}
		case v < t.splitCond[node]:
			node = t.left[node]
		default:
			node = t.right[node]
		}
	}
	return t.splitCond[node]
}

// Margin returns the raw ensemble output before the objective transform.
func (m *TreeEnsemble) Margin(x []float64) float64 {
	return float64(m.margin(x))
}

func (m *TreeEnsemble) margin(x []float64) float32 {
	sum := m.baseMargin
	for _, t := range m.trees {
		sum += t.leaf(x)
	}
	return sum
}

func (m *TreeEnsemble) output(x []float64) (float64, error) {
	if m.numFeature > 0 && len(x) != m.numFeature {
		return 0, fmt.Errorf("model expects %d features, got %d", m.numFeature, len(x))
	}
	margin := float64(m.margin(x))
	switch m.transform {
	case transformSigmoid:
		return float64(float32(1 / (1 + math.Exp(-margin)))), nil
	case transformExp:
		return float64(float32(math.Exp(margin))), nil
	default:
		return margin, nil
	}
}

// PredictProba returns the class-1 probability. Only valid for logistic objectives.
func (m *TreeEnsemble) PredictProba(x []float64) (float64, error) {
	if m.transform != transformSigmoid {
		return 0, fmt.Errorf("objective %q does not produce probabilities", m.objective)
	}
	return m.output(x)
}

// Predict returns the transformed model output.
func (m *TreeEnsemble) Predict(x []float64) (float64, error) {
	return m.output(x)
}

// Objective returns the XGBoost objective name.
func (m *TreeEnsemble) Objective() string { return m.objective }

// NumTrees returns the number of boosted trees.
func (m *TreeEnsemble) NumTrees() int { return len(m.trees) }

// parseBaseScore accepts "5E-1" and the bracketed "[5E-1]" written by newer XGBoost releases.
func parseBaseScore(s string) (float64, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return 0.5, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid base_score %q: %w", s, err)
	}
	return v, nil
}

func baseScoreToMargin(base float64, tf transform) (float32, error) {
	base = float64(float32(base))
	switch tf {
	case transformSigmoid:
		if base <= 0 || base >= 1 {
			return 0, fmt.Errorf("base_score %v must be in (0, 1) for logistic objectives", base)
		}
		return float32(-math.Log(1/base - 1)), nil
	case transformExp:
		if base <= 0 {
			return 0, fmt.Errorf("base_score %v must be positive", base)
		}
		return float32(math.Log(base)), nil
	default:
		return float32(base), nil
	}
}

func parseParamInt(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}

var (
	_ Classifier = (*TreeEnsemble)(nil)
	_ Regressor  = (*TreeEnsemble)(nil)
)
