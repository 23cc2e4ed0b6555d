package classifier

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/campus-mcp/internal/cache"
	apperrors "github.com/ZanzyTHEbar/campus-mcp/internal/errors"
	"golang.org/x/sync/errgroup"
)

// Registry holds the models constructed at startup. Lookups are safe for
// concurrent use; models are registered before serving starts.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*Model
	order  []string

	cache    *cache.Cache[Prediction]
	logger   *slog.Logger
	observer Observer
}

// Observer is notified after every ClassifyBytes call.
type Observer func(model string, pred Prediction, duration time.Duration, cached bool, err error)

// Observe registers fn. Call before serving starts.
func (r *Registry) Observe(fn Observer) {
	r.observer = fn
}

// NewRegistry creates an empty registry. predictions may be nil to disable caching.
func NewRegistry(logger *slog.Logger, predictions *cache.Cache[Prediction]) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		models: make(map[string]*Model),
		cache:  predictions,
		logger: logger,
	}
}

// Register adds m, replacing a model of the same name.
func (r *Registry) Register(m *Model) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[m.Name()]; !exists {
		r.order = append(r.order, m.Name())
	}
	r.models[m.Name()] = m
}

// Names lists registered models in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Model looks up a model by name.
func (r *Registry) Model(name string) (*Model, error) {
	r.mu.RLock()
	m, ok := r.models[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown model %q", apperrors.ErrModelUnavailable, name)
	}
	return m, nil
}

// LoadAll probes every model. Failures leave the model unavailable and are
// logged; they never abort startup. It returns the number of loaded models.
func (r *Registry) LoadAll(ctx context.Context) int {
	loaded := 0
	for _, name := range r.Names() {
		m, _ := r.Model(name)
		if err := m.Load(ctx); err != nil {
			r.logger.Warn("Model not available", "model", name, "error", err)
			continue
		}
		r.logger.Info("Model loaded", "model", name, "labels", m.Labels())
		loaded++
	}
	return loaded
}

// Statuses snapshots every model in registration order.
func (r *Registry) Statuses() []ModelStatus {
	names := r.Names()
	out := make([]ModelStatus, 0, len(names))
	for _, name := range names {
		m, _ := r.Model(name)
		out = append(out, m.Status())
	}
	return out
}

// Classify runs a decoded image through the named model.
func (r *Registry) Classify(ctx context.Context, name string, img image.Image) (Prediction, error) {
	m, err := r.Model(name)
	if err != nil {
		return Prediction{}, err
	}
	return m.Classify(ctx, img)
}

// ClassifyBytes decodes data and classifies it, consulting the prediction
// cache by model name and image digest.
func (r *Registry) ClassifyBytes(ctx context.Context, name string, data []byte) (pred Prediction, err error) {
	cached := false
	if r.observer != nil {
		defer func(start time.Time) {
			r.observer(name, pred, time.Since(start), cached, err)
		}(time.Now())
	}

	m, err := r.Model(name)
	if err != nil {
		return Prediction{}, err
	}
	if !m.Loaded() {
		return Prediction{}, fmt.Errorf("%w: %s model is not loaded", apperrors.ErrModelUnavailable, name)
	}

	key := cache.Key(name, data)
	if r.cache != nil {
		if hit, ok := r.cache.Get(key); ok {
			cached = true
			return hit, nil
		}
	}

	img, _, err := Decode(data)
	if err != nil {
		return Prediction{}, err
	}

	pred, err = m.Classify(ctx, img)
	if err != nil {
		return Prediction{}, err
	}

	if r.cache != nil {
		r.cache.Set(key, pred)
	}
	return pred, nil
}

// BatchItem is one uploaded file. A non-nil Err marks a file rejected
// before classification.
type BatchItem struct {
	Filename string
	Data     []byte
	Err      error
}

// BatchResult pairs a file with its prediction or error.
type BatchResult struct {
	Filename   string
	Prediction Prediction
	Err        error
}

// ClassifyBatch classifies items concurrently, at most limit at a time.
// Per-file failures are reported in the result; results keep input order.
func (r *Registry) ClassifyBatch(ctx context.Context, name string, items []BatchItem, limit int) []BatchResult {
	results := make([]BatchResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, item := range items {
		results[i].Filename = item.Filename
		if item.Err != nil {
			results[i].Err = item.Err
			continue
		}
		g.Go(func() error {
			pred, err := r.ClassifyBytes(gctx, name, item.Data)
			results[i].Prediction = pred
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	return results
}
