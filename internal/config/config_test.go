package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, ":8000", cfg.Addr())
	assert.Equal(t, "release", cfg.GinMode)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"127.0.0.1", "::1"}, cfg.TrustedProxies)
	assert.False(t, cfg.EnableHSTS)
	assert.Equal(t, "pneumonia", cfg.PneumoniaModelName)
	assert.Equal(t, "fruits", cfg.FruitsModelName)
	assert.False(t, cfg.ClassifiersEnabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("REQUEST_TIMEOUT", "45")
	t.Setenv("PREDICTION_CACHE_TTL", "2m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://campus.example")
	t.Setenv("TF_SERVING_URL", "http://tf:8501")
	t.Setenv("CLASSIFY_CONCURRENCY", "8")
	t.Setenv("ENABLE_HSTS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2*time.Minute, cfg.PredictionCacheTTL)
	assert.Equal(t, []string{"http://localhost:3000", "https://campus.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.ClassifiersEnabled())
	assert.Equal(t, 8, cfg.ClassifyConcurrency)
	assert.True(t, cfg.EnableHSTS)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		field string
	}{
		{"bad port", "PORT", "http", "PORT"},
		{"port out of range", "PORT", "70000", "PORT"},
		{"bad gin mode", "GIN_MODE", "turbo", "GIN_MODE"},
		{"bad log level", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"zero concurrency", "CLASSIFY_CONCURRENCY", "0", "CLASSIFY_CONCURRENCY"},
		{"negative rate limit", "RATE_LIMIT_PER_MIN", "-1", "RATE_LIMIT_PER_MIN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestGetEnvOrDefaultDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "nonsense")
	assert.Equal(t, time.Second, getEnvOrDefaultDuration("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "1500ms")
	assert.Equal(t, 1500*time.Millisecond, getEnvOrDefaultDuration("TEST_DURATION", time.Second))
}

func TestParseStringSlice(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", []string{}},
		{"a", []string{"a"}},
		{"a,b,c", []string{"a", "b", "c"}},
		{"a, b , c ", []string{"a", "b", "c"}},
		{"a,,b", []string{"a", "b"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseStringSlice(tt.input), "input %q", tt.input)
	}
}
