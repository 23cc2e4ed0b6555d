package monitoring

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger provides structured logging with request and domain helpers
type Logger struct {
	*slog.Logger
}

// NewLogger creates a JSON logger writing to stdout at the given level
func NewLogger(level string) *Logger {
	return NewLoggerWithWriter(os.Stdout, level)
}

// NewLoggerWithWriter creates a JSON logger writing to w
func NewLoggerWithWriter(w io.Writer, level string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// ParseLevel maps a LOG_LEVEL value onto a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RequestLogger logs HTTP request details
func (l *Logger) RequestLogger(requestID, method, path, ip string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"request_id", requestID,
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// ToolLogger logs a scoring tool invocation
func (l *Logger) ToolLogger(tool string, score float64, bucket string, duration time.Duration) {
	l.Info("Tool Executed",
		"tool", tool,
		"score", score,
		"bucket", bucket,
		"duration_us", duration.Microseconds(),
	)
}

// SearchLogger logs a knowledge base lookup
func (l *Logger) SearchLogger(query string, results int) {
	l.Debug("Knowledge Search",
		"query_length", len(query),
		"results", results,
	)
}

// ClassificationLogger logs an image classification
func (l *Logger) ClassificationLogger(model, label string, confidence float64, duration time.Duration, cacheHit bool) {
	l.Info("Classification Completed",
		"model", model,
		"label", label,
		"confidence", confidence,
		"duration_ms", duration.Milliseconds(),
		"cache_hit", cacheHit,
	)
}

// ExternalAPILogger logs calls to the model backend
func (l *Logger) ExternalAPILogger(apiName, operation string, duration time.Duration, err error) {
	if err != nil {
		l.Warn("External API Call",
			"api_name", apiName,
			"operation", operation,
			"duration_ms", duration.Milliseconds(),
			"success", false,
			"error", err.Error(),
		)
		return
	}
	l.Debug("External API Call",
		"api_name", apiName,
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
		"success", true,
	)
}

// SystemLogger logs system-level events
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).Round(time.Second).String(),
	)
}

// SecurityLogger logs security-related events
func (l *Logger) SecurityLogger(event, ip, userAgent string, details map[string]any) {
	attrs := []any{
		"event", event,
		"ip", ip,
		"user_agent", userAgent,
	}
	for key, value := range details {
		attrs = append(attrs, key, value)
	}

	l.Log(context.Background(), slog.LevelWarn, "Security Event", attrs...)
}

// PerformanceLogger logs performance metrics
func (l *Logger) PerformanceLogger(metric string, value float64, unit string) {
	l.Warn("Performance Metric",
		"metric", metric,
		"value", value,
		"unit", unit,
	)
}

var startTime = time.Now()
