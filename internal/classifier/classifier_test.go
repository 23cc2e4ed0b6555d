package classifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/campus-mcp/internal/cache"
	apperrors "github.com/ZanzyTHEbar/campus-mcp/internal/errors"
	"github.com/ZanzyTHEbar/campus-mcp/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu       sync.Mutex
	scores   []float64
	err      error
	probeErr error
	calls    int32
	lastSize [2]int
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Probe(ctx context.Context, model string) error { return f.probeErr }

func (f *fakeBackend) Predict(ctx context.Context, model string, instance any) ([]float64, error) {
	atomic.AddInt32(&f.calls, 1)
	if t, ok := instance.([][][]float32); ok {
		f.mu.Lock()
		f.lastSize = [2]int{len(t), len(t[0])}
		f.mu.Unlock()
	}
	return f.scores, f.err
}

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestThreshold(t *testing.T) {
	decide := Threshold(0.95)
	labels := []string{"NORMAL", "PNEUMONIA"}

	tests := []struct {
		name       string
		scores     []float64
		expected   string
		confidence float64
	}{
		{"confident normal", []float64{0.97, 0.03}, "NORMAL", 0.97},
		{"at threshold falls to class 1", []float64{0.95, 0.05}, "PNEUMONIA", 0.05},
		{"pneumonia", []float64{0.2, 0.8}, "PNEUMONIA", 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := decide(tt.scores, labels)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, pred.Label)
			assert.InDelta(t, tt.confidence, pred.Confidence, 1e-12)
		})
	}

	_, err := decide([]float64{0.99}, labels)
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestSoftmaxArgmax(t *testing.T) {
	pred, err := SoftmaxArgmax([]float64{1, 3, 2}, FruitsLabels)
	require.NoError(t, err)
	assert.Equal(t, "banana", pred.Label)
	assert.Equal(t, 1, pred.Index)
	assert.InDelta(t, 0.6652, pred.Confidence, 1e-4)

	_, err = SoftmaxArgmax([]float64{1, 2}, FruitsLabels)
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestSoftmax_StableForLargeLogits(t *testing.T) {
	probs := Softmax([]float64{1000, 1000})
	assert.InDelta(t, 0.5, probs[0], 1e-12)
	assert.InDelta(t, 0.5, probs[1], 1e-12)
	assert.Nil(t, Softmax(nil))
}

func TestParseLabels(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
		hasError bool
	}{
		{name: "indexed lines", input: "0 NORMAL\n1 PNEUMONIA\n", expected: []string{"NORMAL", "PNEUMONIA"}},
		{name: "bare labels", input: "apple\nbanana\n", expected: []string{"apple", "banana"}},
		{name: "multi word label and blank lines", input: "0 Red Apple\n\n1 Banana\r\n", expected: []string{"Red Apple", "Banana"}},
		{name: "empty", input: "\n\n", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels, err := ParseLabels(strings.NewReader(tt.input))
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, labels)
		})
	}
}

func TestPneumoniaLabels_Default(t *testing.T) {
	labels, err := PneumoniaLabels("")
	require.NoError(t, err)
	assert.Equal(t, []string{"NORMAL", "PNEUMONIA"}, labels)

	_, err = PneumoniaLabels("/does/not/exist.txt")
	assert.Error(t, err)
}

func TestInputSpec_Tensor(t *testing.T) {
	white := solidImage(300, 200, color.White)
	black := solidImage(10, 40, color.Black)

	signed := InputSpec{Width: 224, Height: 224, Scale: SignedUnit}.Tensor(white)
	require.Len(t, signed, 224)
	require.Len(t, signed[0], 224)
	assert.InDelta(t, 1.0, signed[100][100][0], 0.02)

	raw := InputSpec{Width: 32, Height: 32, Scale: Raw}.Tensor(black)
	require.Len(t, raw, 32)
	assert.Equal(t, []float32{0, 0, 0}, raw[5][7])

	signedBlack := InputSpec{Width: 8, Height: 8, Scale: SignedUnit}.Tensor(black)
	assert.InDelta(t, -1.0, signedBlack[0][0][2], 1e-6)
}

func TestFit_CropsToAspect(t *testing.T) {
	// left half red, right half blue; a square crop keeps the center
	img := image.NewRGBA(image.Rect(0, 0, 300, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 300; x++ {
			c := color.RGBA{R: 255, A: 255}
			if x >= 150 {
				c = color.RGBA{B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}

	out := Fit(img, 10, 10)
	assert.Equal(t, image.Rect(0, 0, 10, 10), out.Bounds())
	left := out.NRGBAAt(0, 5)
	right := out.NRGBAAt(9, 5)
	assert.Greater(t, left.R, uint8(250))
	assert.Less(t, left.B, uint8(5))
	assert.Greater(t, right.B, uint8(250))
	assert.Less(t, right.R, uint8(5))
	assert.Equal(t, uint8(255), left.A)
}

func TestDecode(t *testing.T) {
	img, format, err := Decode(pngBytes(t, solidImage(4, 4, color.White)))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, _, err = Decode([]byte("definitely not an image"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, _, err = Decode(nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestModel_Classify(t *testing.T) {
	backend := &fakeBackend{scores: []float64{0.99, 0.01}}
	m := NewModel(PneumoniaConfig("pneumonia_v2", []string{"NORMAL", "PNEUMONIA"}), backend)

	_, err := m.Classify(context.Background(), solidImage(50, 50, color.White))
	assert.ErrorIs(t, err, apperrors.ErrModelUnavailable)

	require.NoError(t, m.Load(context.Background()))
	pred, err := m.Classify(context.Background(), solidImage(50, 50, color.White))
	require.NoError(t, err)
	assert.Equal(t, "NORMAL", pred.Label)
	assert.Equal(t, [2]int{224, 224}, backend.lastSize)

	st := m.Status()
	assert.True(t, st.Loaded)
	assert.Equal(t, "fake", st.ModelType)
	assert.Equal(t, []int{224, 224, 3}, st.InputShape)
	assert.Empty(t, st.Error)
}

func TestModel_BackendErrors(t *testing.T) {
	tests := []struct {
		name             string
		err              error
		expectedCategory apperrors.ErrorCategory
	}{
		{
			name:             "transport failure is an external api error",
			err:              fmt.Errorf("dial tcp: connection refused"),
			expectedCategory: apperrors.CategoryExternalAPI,
		},
		{
			name:             "open circuit is an external api error",
			err:              &resilience.CircuitBreakerError{Message: "circuit breaker is open"},
			expectedCategory: apperrors.CategoryExternalAPI,
		},
		{
			name:             "missing model on the server is unavailable",
			err:              resilience.NewHTTPError(http.StatusNotFound, "404 Not Found", "no versions"),
			expectedCategory: apperrors.CategoryUnavailable,
		},
		{
			name:             "deadline is a timeout",
			err:              fmt.Errorf("predict: %w", context.DeadlineExceeded),
			expectedCategory: apperrors.CategoryTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(FruitsConfig("fruits"), &fakeBackend{err: tt.err})
			require.NoError(t, m.Load(context.Background()))

			_, err := m.Classify(context.Background(), solidImage(8, 8, color.White))
			require.Error(t, err)
			assert.Equal(t, tt.expectedCategory, apperrors.ToAppError(err).Category)
		})
	}
}

func TestModel_NoBackend(t *testing.T) {
	m := NewModel(FruitsConfig(""), nil)
	assert.ErrorIs(t, m.Load(context.Background()), ErrNotConfigured)
	assert.False(t, m.Loaded())
	assert.Equal(t, "fruits", m.Status().Name)
	assert.Equal(t, ErrNotConfigured.Error(), m.Status().Error)
}

func newTestRegistry(t *testing.T, backend *fakeBackend) *Registry {
	t.Helper()
	predictions := cache.New[Prediction](time.Minute)
	t.Cleanup(func() { _ = predictions.Close() })

	r := NewRegistry(nil, predictions)
	r.Register(NewModel(FruitsConfig("fruits"), backend))
	r.Register(NewModel(PneumoniaConfig("pneumonia", []string{"NORMAL", "PNEUMONIA"}), &fakeBackend{probeErr: errors.New("model missing")}))
	return r
}

func TestRegistry_LoadAllAndStatuses(t *testing.T) {
	r := newTestRegistry(t, &fakeBackend{scores: []float64{0, 0, 5}})

	assert.Equal(t, 1, r.LoadAll(context.Background()))
	assert.Equal(t, []string{"fruits", "pneumonia"}, r.Names())

	statuses := r.Statuses()
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Loaded)
	assert.False(t, statuses[1].Loaded)
	assert.Equal(t, "model missing", statuses[1].Error)
}

func TestRegistry_ClassifyBytes(t *testing.T) {
	backend := &fakeBackend{scores: []float64{0, 0, 5}}
	r := newTestRegistry(t, backend)
	r.LoadAll(context.Background())

	data := pngBytes(t, solidImage(40, 40, color.RGBA{R: 255, G: 128, A: 255}))

	pred, err := r.ClassifyBytes(context.Background(), "fruits", data)
	require.NoError(t, err)
	assert.Equal(t, "orange", pred.Label)

	// second call is served from the cache
	_, err = r.ClassifyBytes(context.Background(), "fruits", data)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.calls))

	_, err = r.ClassifyBytes(context.Background(), "pneumonia", data)
	assert.ErrorIs(t, err, apperrors.ErrModelUnavailable)

	_, err = r.ClassifyBytes(context.Background(), "dogs", data)
	assert.ErrorIs(t, err, apperrors.ErrModelUnavailable)

	_, err = r.ClassifyBytes(context.Background(), "fruits", []byte("nope"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRegistry_ClassifyBatch(t *testing.T) {
	r := newTestRegistry(t, &fakeBackend{scores: []float64{4, 0, 0}})
	r.LoadAll(context.Background())

	good := pngBytes(t, solidImage(16, 16, color.White))
	items := []BatchItem{
		{Filename: "a.png", Data: good},
		{Filename: "notes.txt", Err: fmt.Errorf("%w: file must be an image", apperrors.ErrInvalidInput)},
		{Filename: "broken.png", Data: []byte("garbage")},
		{Filename: "b.png", Data: pngBytes(t, solidImage(20, 10, color.Black))},
	}

	results := r.ClassifyBatch(context.Background(), "fruits", items, 2)
	require.Len(t, results, 4)

	assert.Equal(t, "a.png", results[0].Filename)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "apple", results[0].Prediction.Label)

	assert.Equal(t, "notes.txt", results[1].Filename)
	assert.ErrorIs(t, results[1].Err, apperrors.ErrInvalidInput)

	assert.ErrorIs(t, results[2].Err, apperrors.ErrInvalidInput)

	assert.NoError(t, results[3].Err)
	assert.Equal(t, "b.png", results[3].Filename)
}

func TestRegistry_Observe(t *testing.T) {
	r := newTestRegistry(t, &fakeBackend{scores: []float64{0, 3, 0}})
	r.LoadAll(context.Background())

	type event struct {
		model  string
		label  string
		cached bool
		failed bool
	}
	var events []event
	r.Observe(func(model string, pred Prediction, _ time.Duration, cached bool, err error) {
		events = append(events, event{model: model, label: pred.Label, cached: cached, failed: err != nil})
	})

	data := pngBytes(t, solidImage(8, 8, color.White))
	_, _ = r.ClassifyBytes(context.Background(), "fruits", data)
	_, _ = r.ClassifyBytes(context.Background(), "fruits", data)
	_, _ = r.ClassifyBytes(context.Background(), "pneumonia", data)

	assert.Equal(t, []event{
		{model: "fruits", label: "banana"},
		{model: "fruits", label: "banana", cached: true},
		{model: "pneumonia", failed: true},
	}, events)
}
