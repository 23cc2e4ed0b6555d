package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the server
type Config struct {
	// Server settings
	Port           string        `json:"port"`
	GinMode        string        `json:"gin_mode"`
	LogLevel       string        `json:"log_level"`
	RequestTimeout time.Duration `json:"request_timeout"`
	MaxUploadBytes int64         `json:"max_upload_bytes"`
	AllowedOrigins []string      `json:"allowed_origins"`
	TrustedProxies []string      `json:"trusted_proxies"`
	EnableHSTS     bool          `json:"enable_hsts"`

	// Rate limiting
	RateLimitPerMin         int    `json:"rate_limit_per_min"`
	ClassifyRateLimitPerMin int    `json:"classify_rate_limit_per_min"`
	RedisAddr               string `json:"redis_addr"`
	RedisPassword           string `json:"-"`
	RedisDB                 int    `json:"redis_db"`

	// Classifiers
	TFServingURL        string        `json:"tf_serving_url"`
	PneumoniaModelName  string        `json:"pneumonia_model_name"`
	PneumoniaLabelsPath string        `json:"pneumonia_labels_path"`
	FruitsModelName     string        `json:"fruits_model_name"`
	PredictionCacheTTL  time.Duration `json:"prediction_cache_ttl"`
	ClassifyConcurrency int           `json:"classify_concurrency"`
}

// Load reads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                    getEnvOrDefault("PORT", "8000"),
		GinMode:                 getEnvOrDefault("GIN_MODE", "release"),
		LogLevel:                strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		RequestTimeout:          getEnvOrDefaultDuration("REQUEST_TIMEOUT", 30*time.Second),
		MaxUploadBytes:          int64(getEnvOrDefaultInt("MAX_UPLOAD_BYTES", 10<<20)),
		AllowedOrigins:          parseStringSlice(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		TrustedProxies:          parseStringSlice(getEnvOrDefault("TRUSTED_PROXIES", "127.0.0.1,::1")),
		EnableHSTS:              getEnvOrDefault("ENABLE_HSTS", "false") == "true",
		RateLimitPerMin:         getEnvOrDefaultInt("RATE_LIMIT_PER_MIN", 120),
		ClassifyRateLimitPerMin: getEnvOrDefaultInt("CLASSIFY_RATE_LIMIT_PER_MIN", 30),
		RedisAddr:               getEnvOrDefault("REDIS_ADDR", ""),
		RedisPassword:           getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:                 getEnvOrDefaultInt("REDIS_DB", 0),
		TFServingURL:            getEnvOrDefault("TF_SERVING_URL", ""),
		PneumoniaModelName:      getEnvOrDefault("PNEUMONIA_MODEL_NAME", "pneumonia"),
		PneumoniaLabelsPath:     getEnvOrDefault("PNEUMONIA_LABELS_PATH", ""),
		FruitsModelName:         getEnvOrDefault("FRUITS_MODEL_NAME", "fruits"),
		PredictionCacheTTL:      getEnvOrDefaultDuration("PREDICTION_CACHE_TTL", 10*time.Minute),
		ClassifyConcurrency:     getEnvOrDefaultInt("CLASSIFY_CONCURRENCY", 4),
	}

	return cfg, cfg.validate()
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.Port
}

// ClassifiersEnabled reports whether a model backend is configured
func (c *Config) ClassifiersEnabled() bool {
	return c.TFServingURL != ""
}

// validate checks value ranges
func (c *Config) validate() error {
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		return &ConfigError{Field: "PORT", Message: fmt.Sprintf("invalid port %q", c.Port)}
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return &ConfigError{Field: "GIN_MODE", Message: fmt.Sprintf("unknown mode %q", c.GinMode)}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "LOG_LEVEL", Message: fmt.Sprintf("unknown level %q", c.LogLevel)}
	}
	if c.RequestTimeout <= 0 {
		return &ConfigError{Field: "REQUEST_TIMEOUT", Message: "must be positive"}
	}
	if c.MaxUploadBytes <= 0 {
		return &ConfigError{Field: "MAX_UPLOAD_BYTES", Message: "must be positive"}
	}
	if c.RateLimitPerMin <= 0 || c.ClassifyRateLimitPerMin <= 0 {
		return &ConfigError{Field: "RATE_LIMIT_PER_MIN", Message: "rate limits must be positive"}
	}
	if c.ClassifyConcurrency <= 0 {
		return &ConfigError{Field: "CLASSIFY_CONCURRENCY", Message: "must be positive"}
	}
	if len(c.AllowedOrigins) == 0 {
		return &ConfigError{Field: "CORS_ALLOWED_ORIGINS", Message: "at least one origin is required"}
	}
	return nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default if not set
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvOrDefaultDuration accepts Go durations ("30s") or plain seconds ("30")
func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// parseStringSlice parses comma-separated string into slice
func parseStringSlice(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
