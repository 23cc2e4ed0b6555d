// Package tools exposes the scoring functions as named tools callable with
// JSON parameters.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/campus-mcp/internal/analysis"
	"github.com/ZanzyTHEbar/campus-mcp/internal/classifier"
	apperrors "github.com/ZanzyTHEbar/campus-mcp/internal/errors"
)

const (
	AnalyzeConcentration = "analyze_concentration"
	PredictSuccess       = "predict_success"
)

// Tool describes a callable tool.
type Tool struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Parameters  map[string]string `json:"parameters" yaml:"parameters"`

	run func(params json.RawMessage) (any, error)
}

// Result tags a tool output with the tool name and execution time.
type Result struct {
	ToolName  string    `json:"tool_name" yaml:"tool_name"`
	Result    any       `json:"result" yaml:"result"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Classifier is the subset of the classifier registry the dispatcher needs.
type Classifier interface {
	Classify(ctx context.Context, model string, img image.Image) (classifier.Prediction, error)
}

// Dispatcher routes tool calls by name. It holds no mutable state after
// construction and is safe for concurrent use.
type Dispatcher struct {
	tools      []Tool
	byName     map[string]int
	classifier Classifier
	now        func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithClassifier injects the image classifier.
func WithClassifier(c Classifier) Option {
	return func(d *Dispatcher) { d.classifier = c }
}

// NewDispatcher registers the built-in tools.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		byName: make(map[string]int),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.register(Tool{
		Name:        AnalyzeConcentration,
		Description: "Analyze the concentration level of a class session",
		Parameters: map[string]string{
			"total_students":             "int (required, > 0)",
			"present_students":           "int (required)",
			"active_participants":        "int",
			"average_quiz_score":         "float (0-100)",
			"attention_duration_minutes": "int (minutes)",
		},
		run: decodeAndRun(analysis.AnalyzeConcentration),
	})
	d.register(Tool{
		Name:        PredictSuccess,
		Description: "Predict academic success for a student",
		Parameters: map[string]string{
			"absences":        "int (required)",
			"total_sessions":  "int (required, > 0)",
			"grades":          "list[float] (most recent first)",
			"current_average": "float (0-20)",
		},
		run: decodeAndRun(analysis.PredictSuccess),
	})

	return d
}

func (d *Dispatcher) register(t Tool) {
	d.byName[t.Name] = len(d.tools)
	d.tools = append(d.tools, t)
}

// decodeAndRun adapts a typed scoring function to raw JSON parameters.
func decodeAndRun[In, Out any](fn func(In) (Out, error)) func(json.RawMessage) (any, error) {
	return func(params json.RawMessage) (any, error) {
		var in In
		if len(bytes.TrimSpace(params)) > 0 && !bytes.Equal(bytes.TrimSpace(params), []byte("null")) {
			if err := json.Unmarshal(params, &in); err != nil {
				return nil, fmt.Errorf("%w: invalid parameters: %v", apperrors.ErrInvalidInput, err)
			}
		}
		return fn(in)
	}
}

// Tools lists the registered tools in registration order.
func (d *Dispatcher) Tools() []Tool {
	return append([]Tool(nil), d.tools...)
}

// Names lists the registered tool names.
func (d *Dispatcher) Names() []string {
	names := make([]string, len(d.tools))
	for i, t := range d.tools {
		names[i] = t.Name
	}
	return names
}

// Execute runs the named tool with JSON parameters.
func (d *Dispatcher) Execute(name string, params json.RawMessage) (*Result, error) {
	idx, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: tool '%s' is not recognized; available tools: %s",
			apperrors.ErrUnknownTool, name, strings.Join(d.Names(), ", "))
	}

	out, err := d.tools[idx].run(params)
	if err != nil {
		return nil, err
	}

	return &Result{
		ToolName:  name,
		Result:    out,
		Timestamp: d.now(),
	}, nil
}

// Classify delegates to the injected classifier.
func (d *Dispatcher) Classify(ctx context.Context, model string, img image.Image) (classifier.Prediction, error) {
	if d.classifier == nil {
		return classifier.Prediction{}, fmt.Errorf("%w: %v", apperrors.ErrModelUnavailable, classifier.ErrNotConfigured)
	}
	return d.classifier.Classify(ctx, model, img)
}
