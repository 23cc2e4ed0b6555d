package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/campus-mcp/internal/resilience"
)

// maxResponseBytes caps how much of a backend answer is read.
const maxResponseBytes = 8 << 20

// CallObserver is notified after every backend operation
type CallObserver func(operation string, duration time.Duration, err error)

// TFServingAdapter talks to a TensorFlow Serving REST endpoint
type TFServingAdapter struct {
	baseURL  string
	client   *http.Client
	guard    *resilience.Guard
	observer CallObserver
}

type predictRequest struct {
	Instances []any `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error"`
}

type modelStatusResponse struct {
	ModelVersionStatus []struct {
		Version string `json:"version"`
		State   string `json:"state"`
		Status  struct {
			ErrorCode    string `json:"error_code"`
			ErrorMessage string `json:"error_message"`
		} `json:"status"`
	} `json:"model_version_status"`
}

// NewTFServingAdapter creates an adapter for baseURL. guard may be nil to
// call the server without breaker or retries.
func NewTFServingAdapter(baseURL string, client *http.Client, guard *resilience.Guard) (*TFServingAdapter, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid TF Serving URL %q", baseURL)
	}
	if client == nil {
		client = resilience.NewHTTPClient(resilience.DefaultTransportConfig())
	}
	return &TFServingAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		guard:   guard,
	}, nil
}

// Observe registers fn to be called after each Predict and Probe
func (a *TFServingAdapter) Observe(fn CallObserver) {
	a.observer = fn
}

func (a *TFServingAdapter) observe(operation string, start time.Time, err error) {
	if a.observer != nil {
		a.observer(operation, time.Since(start), err)
	}
}

// Name identifies the backend in logs and error details
func (a *TFServingAdapter) Name() string { return "tf-serving" }

// Predict posts one instance to /v1/models/{model}:predict and returns the
// first row of predictions.
func (a *TFServingAdapter) Predict(ctx context.Context, model string, instance any) (scores []float64, err error) {
	defer func(start time.Time) { a.observe("predict:"+model, start, err) }(time.Now())

	body, err := json.Marshal(predictRequest{Instances: []any{instance}})
	if err != nil {
		return nil, fmt.Errorf("encode instances: %w", err)
	}

	endpoint := a.modelURL(model) + ":predict"

	err = a.do(ctx, func(ctx context.Context) error {
		raw, err := a.makeRequest(ctx, http.MethodPost, endpoint, body)
		if err != nil {
			return err
		}

		var resp predictResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return fmt.Errorf("decode predictions: %w", err)
		}
		if resp.Error != "" {
			return fmt.Errorf("tf serving: %s", resp.Error)
		}
		if len(resp.Predictions) == 0 {
			return fmt.Errorf("tf serving returned no predictions")
		}
		scores = resp.Predictions[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// Probe checks GET /v1/models/{model} for an AVAILABLE version
func (a *TFServingAdapter) Probe(ctx context.Context, model string) (err error) {
	defer func(start time.Time) { a.observe("probe:"+model, start, err) }(time.Now())

	raw, err := a.makeRequest(ctx, http.MethodGet, a.modelURL(model), nil)
	if err != nil {
		return fmt.Errorf("probe %s: %w", model, err)
	}

	var status modelStatusResponse
	if err := json.Unmarshal(raw, &status); err != nil {
		return fmt.Errorf("decode model status: %w", err)
	}
	for _, v := range status.ModelVersionStatus {
		if v.State == "AVAILABLE" {
			return nil
		}
	}
	if n := len(status.ModelVersionStatus); n > 0 {
		last := status.ModelVersionStatus[n-1]
		return fmt.Errorf("model %s version %s is %s", model, last.Version, last.State)
	}
	return fmt.Errorf("model %s has no versions", model)
}

func (a *TFServingAdapter) modelURL(model string) string {
	return a.baseURL + "/v1/models/" + url.PathEscape(model)
}

func (a *TFServingAdapter) do(ctx context.Context, fn func(ctx context.Context) error) error {
	if a.guard == nil {
		return fn(ctx)
	}
	return a.guard.Do(ctx, fn)
}

// makeRequest performs one HTTP round trip and returns the body of a 2xx answer
func (a *TFServingAdapter) makeRequest(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return nil, resilience.NewHTTPError(resp.StatusCode, resp.Status, msg)
	}

	return raw, nil
}
