package main

import (
	"io"
	"testing"

	"github.com/ZanzyTHEbar/campus-mcp/internal/adapters"
	"github.com/ZanzyTHEbar/campus-mcp/internal/config"
	"github.com/ZanzyTHEbar/campus-mcp/internal/monitoring"
	"github.com/ZanzyTHEbar/campus-mcp/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelBackend(t *testing.T) {
	logger := monitoring.NewLoggerWithWriter(io.Discard, "error")

	tests := []struct {
		name        string
		url         string
		expectNil   bool
		expectError bool
	}{
		{name: "not configured", url: "", expectNil: true},
		{name: "invalid url", url: "not a url", expectNil: true, expectError: true},
		{name: "tf serving", url: "http://localhost:8501"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breakers := resilience.NewCircuitBreakerRegistry()
			backend, err := newModelBackend(&config.Config{TFServingURL: tt.url}, breakers, monitoring.NewMetrics(), logger)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			if tt.expectNil {
				assert.Nil(t, backend)
				return
			}

			_, ok := backend.(*adapters.TFServingAdapter)
			assert.True(t, ok)
			assert.Equal(t, []string{"tf-serving"}, breakers.Names())
		})
	}
}
