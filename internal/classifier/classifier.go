// Package classifier runs images through pre-trained models hosted on an
// external inference server. Preprocessing and the decision rule that turns
// raw scores into a label live here; the weights do not.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	apperrors "github.com/ZanzyTHEbar/campus-mcp/internal/errors"
	"github.com/ZanzyTHEbar/campus-mcp/internal/resilience"
)

// ErrNotConfigured is reported by models that have no backend.
var ErrNotConfigured = errors.New("no model backend configured")

// ErrMalformedOutput is returned when the backend answers with scores the
// decision rule cannot interpret.
var ErrMalformedOutput = errors.New("malformed model output")

// Prediction is a label with its confidence in [0,1].
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Index      int     `json:"index"`
}

// Service classifies a decoded image.
type Service interface {
	Classify(ctx context.Context, img image.Image) (Prediction, error)
}

// Backend executes a model hosted elsewhere.
type Backend interface {
	// Predict sends one preprocessed instance and returns the model's scores.
	Predict(ctx context.Context, model string, instance any) ([]float64, error)
	// Probe reports whether model is ready to serve.
	Probe(ctx context.Context, model string) error
	Name() string
}

// ModelConfig describes one classifier.
type ModelConfig struct {
	// Name is the public name used in routes and tool calls.
	Name string
	// ServingName is the name known to the backend; defaults to Name.
	ServingName string
	Labels      []string
	Input       InputSpec
	Decide      Decision
}

// ModelStatus is the externally visible state of a model.
type ModelStatus struct {
	Name       string   `json:"name"`
	Loaded     bool     `json:"model_loaded"`
	ModelType  string   `json:"model_type,omitempty"`
	ClassNames []string `json:"class_names"`
	InputShape []int    `json:"input_shape"`
	Error      string   `json:"error,omitempty"`
}

// Model binds a config to a backend. It implements Service.
type Model struct {
	cfg     ModelConfig
	backend Backend

	mu      sync.RWMutex
	loaded  bool
	loadErr error
}

var _ Service = (*Model)(nil)

// NewModel creates an unloaded model. backend may be nil, in which case
// Load always fails with ErrNotConfigured.
func NewModel(cfg ModelConfig, backend Backend) *Model {
	if cfg.ServingName == "" {
		cfg.ServingName = cfg.Name
	}
	return &Model{cfg: cfg, backend: backend, loadErr: ErrNotConfigured}
}

// Name returns the public model name.
func (m *Model) Name() string { return m.cfg.Name }

// Labels returns a copy of the class names.
func (m *Model) Labels() []string { return append([]string(nil), m.cfg.Labels...) }

// Load probes the backend and records whether the model can serve.
func (m *Model) Load(ctx context.Context) error {
	var err error
	if m.backend == nil {
		err = ErrNotConfigured
	} else {
		err = m.backend.Probe(ctx, m.cfg.ServingName)
	}

	m.mu.Lock()
	m.loaded = err == nil
	m.loadErr = err
	m.mu.Unlock()
	return err
}

// Loaded reports whether the last Load succeeded.
func (m *Model) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// Status snapshots the model state.
func (m *Model) Status() ModelStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := ModelStatus{
		Name:       m.cfg.Name,
		Loaded:     m.loaded,
		ClassNames: m.Labels(),
		InputShape: []int{m.cfg.Input.Height, m.cfg.Input.Width, 3},
	}
	if m.backend != nil {
		st.ModelType = m.backend.Name()
	}
	if m.loadErr != nil {
		st.Error = m.loadErr.Error()
	}
	return st
}

// Classify preprocesses img, runs it on the backend and applies the
// model's decision rule.
func (m *Model) Classify(ctx context.Context, img image.Image) (Prediction, error) {
	if !m.Loaded() {
		return Prediction{}, fmt.Errorf("%w: %s model is not loaded", apperrors.ErrModelUnavailable, m.cfg.Name)
	}

	instance := m.cfg.Input.Tensor(img)

	scores, err := m.backend.Predict(ctx, m.cfg.ServingName, instance)
	if err != nil {
		return Prediction{}, m.backendError(err)
	}

	pred, err := m.cfg.Decide(scores, m.cfg.Labels)
	if err != nil {
		return Prediction{}, apperrors.NewExternalAPIError(m.backend.Name(), err)
	}
	return pred, nil
}

func (m *Model) backendError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var httpErr *resilience.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == 404 {
		return fmt.Errorf("%w: %s is not served by %s", apperrors.ErrModelUnavailable, m.cfg.ServingName, m.backend.Name())
	}

	return apperrors.NewExternalAPIError(m.backend.Name(), err)
}
