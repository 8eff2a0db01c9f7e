package inference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Default artifact file names inside the artifact directory.
const (
	DefaultClassifierFile     = "xgb_classifier.json"
	DefaultRegressorFile      = "xgb_regressor.json"
	DefaultLabelEncoderFile   = "le_category.json"
	DefaultFeatureColumnsFile = "feature_columns.json"
)

// ArtifactPaths locates the serialized model artifacts.
type ArtifactPaths struct {
	Dir            string
	Classifier     string
	Regressor      string
	LabelEncoder   string
	FeatureColumns string
}

// DefaultArtifactPaths returns the default file names under dir.
func DefaultArtifactPaths(dir string) ArtifactPaths {
	return ArtifactPaths{
		Dir:            dir,
		Classifier:     DefaultClassifierFile,
		Regressor:      DefaultRegressorFile,
		LabelEncoder:   DefaultLabelEncoderFile,
		FeatureColumns: DefaultFeatureColumnsFile,
	}
}

// Files returns the artifact file names in a stable order.
func (p ArtifactPaths) Files() []string {
	return []string{p.Classifier, p.Regressor, p.LabelEncoder, p.FeatureColumns}
}

func (p ArtifactPaths) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.Dir, name)
}

// FacilityFeatureLoader provides the precomputed facility feature table.
type FacilityFeatureLoader interface {
	LoadFacilityFeatures(ctx context.Context) (*domain.FacilityFeatureTable, error)
}

// Artifacts is one consistent set of everything the predictor needs.
type Artifacts struct {
	Classifier     Classifier
	Regressor      Regressor
	Encoder        *LabelEncoder
	FeatureColumns []string
	Facilities     *domain.FacilityFeatureTable
	Version        string
	LoadedAt       time.Time
}

// ArtifactLoader reads artifacts from disk.
type ArtifactLoader struct {
	paths      ArtifactPaths
	facilities FacilityFeatureLoader
}

// NewArtifactLoader creates a loader for the given paths and facility feature source.
func NewArtifactLoader(paths ArtifactPaths, facilities FacilityFeatureLoader) *ArtifactLoader {
	return &ArtifactLoader{paths: paths, facilities: facilities}
}

// Load reads all artifacts concurrently. Any failure is reported as ReasonModelUnavailable.
func (l *ArtifactLoader) Load(ctx context.Context) (*Artifacts, error) {
	var (
		classifierRaw, regressorRaw, encoderRaw, columnsRaw []byte
		classifier, regressor                               *TreeEnsemble
		encoder                                             *LabelEncoder
		columns                                             []string
		facilities                                          *domain.FacilityFeatureTable
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		classifierRaw, classifier, err = l.loadModel(l.paths.Classifier)
		return err
	})
	g.Go(func() error {
		var err error
		regressorRaw, regressor, err = l.loadModel(l.paths.Regressor)
		return err
	})
	g.Go(func() error {
		path := l.paths.resolve(l.paths.LabelEncoder)
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read label encoder %s: %w", path, err)
		}
		encoder, err = ParseLabelEncoder(raw)
		if err != nil {
			return fmt.Errorf("label encoder %s: %w", path, err)
		}
		encoderRaw = raw
		return nil
	})
	g.Go(func() error {
		path := l.paths.resolve(l.paths.FeatureColumns)
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read feature columns %s: %w", path, err)
		}
		if err := json.Unmarshal(raw, &columns); err != nil {
			return fmt.Errorf("decode feature columns %s: %w", path, err)
		}
		columnsRaw = raw
		return nil
	})
	g.Go(func() error {
		var err error
		facilities, err = l.facilities.LoadFacilityFeatures(gctx)
		if err != nil {
			return fmt.Errorf("load facility features: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, domain.NewPredictionError(domain.ReasonModelUnavailable, err)
	}

	if len(columns) == 0 {
		return nil, domain.NewPredictionError(domain.ReasonModelUnavailable, fmt.Errorf("feature column list is empty"))
	}
	for name, m := range map[string]*TreeEnsemble{"classifier": classifier, "regressor": regressor} {
		if m.numFeature > 0 && m.numFeature != len(columns) {
			return nil, domain.NewPredictionError(domain.ReasonModelUnavailable,
				fmt.Errorf("%s expects %d features but %d columns are listed", name, m.numFeature, len(columns)))
		}
	}
	if classifier.transform != transformSigmoid {
		return nil, domain.NewPredictionError(domain.ReasonModelUnavailable,
			fmt.Errorf("classifier objective %q is not probabilistic", classifier.objective))
	}

	h := sha256.New()
	for _, raw := range [][]byte{classifierRaw, regressorRaw, encoderRaw, columnsRaw} {
		h.Write(raw)
	}

	return &Artifacts{
		Classifier:     classifier,
		Regressor:      regressor,
		Encoder:        encoder,
		FeatureColumns: columns,
		Facilities:     facilities,
		Version:        hex.EncodeToString(h.Sum(nil))[:12],
		LoadedAt:       time.Now(),
	}, nil
}

func (l *ArtifactLoader) loadModel(name string) ([]byte, *TreeEnsemble, error) {
	path := l.paths.resolve(name)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read model %s: %w", path, err)
	}
	model, err := ParseTreeEnsemble(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	return raw, model, nil
}

// ArtifactProvider hands out the artifacts used for one prediction.
type ArtifactProvider interface {
	Artifacts(ctx context.Context) (*Artifacts, error)
}

// ReloadingProvider reads every artifact from disk on each call.
type ReloadingProvider struct {
	loader *ArtifactLoader
}

// NewReloadingProvider creates a provider without cross-request reuse.
func NewReloadingProvider(loader *ArtifactLoader) *ReloadingProvider {
	return &ReloadingProvider{loader: loader}
}

func (p *ReloadingProvider) Artifacts(ctx context.Context) (*Artifacts, error) {
	return p.loader.Load(ctx)
}

// CachedProvider loads artifacts once and reuses them until Reload is called.
// A failed load is not cached; the next call tries again.
type CachedProvider struct {
	loader  *ArtifactLoader
	mu      sync.RWMutex
	current *Artifacts
}

// NewCachedProvider creates a load-once provider.
func NewCachedProvider(loader *ArtifactLoader) *CachedProvider {
	return &CachedProvider{loader: loader}
}

func (p *CachedProvider) Artifacts(ctx context.Context) (*Artifacts, error) {
	p.mu.RLock()
	current := p.current
	p.mu.RUnlock()
	if current != nil {
		return current, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		return p.current, nil
	}
	loaded, err := p.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	p.current = loaded
	log.Info().Str("version", loaded.Version).Int("facilities", loaded.Facilities.Len()).Msg("model artifacts loaded")
	return loaded, nil
}

// Reload loads a fresh artifact set and swaps it in. The old set stays active on failure.
func (p *CachedProvider) Reload(ctx context.Context) error {
	loaded, err := p.loader.Load(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.current = loaded
	p.mu.Unlock()
	log.Info().Str("version", loaded.Version).Msg("model artifacts reloaded")
	return nil
}

var (
	_ ArtifactProvider = (*ReloadingProvider)(nil)
	_ ArtifactProvider = (*CachedProvider)(nil)
)
