package monitoring

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/ZanzyTHEbar/campus-mcp/internal/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

const slowRequestThreshold = 5 * time.Second

// RequestIDMiddleware propagates X-Request-ID or generates one
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(apperrors.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// MonitoringMiddleware records request metrics and writes the access log
func MonitoringMiddleware(metrics *Metrics, logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.IncrementRequest()

		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		metrics.RecordResponseTime(duration)
		metrics.RecordRequestByStatus(statusCode)
		if statusCode >= 400 {
			metrics.IncrementError()
		}

		logger.RequestLogger(c.GetString(apperrors.RequestIDKey), method, path, c.ClientIP(), statusCode, duration)

		if duration > slowRequestThreshold {
			logger.PerformanceLogger("slow_request", duration.Seconds(), "seconds")
		}
		if statusCode >= 500 {
			logger.SystemLogger("server_error", fmt.Sprintf("Status %d for %s %s", statusCode, method, path))
		}
	}
}

// SecurityMonitoringMiddleware logs requests that look like scanner traffic
func SecurityMonitoringMiddleware(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userAgent := c.GetHeader("User-Agent")
		details := make(map[string]any)

		if containsInjectionPattern(c.Request.URL.RawQuery) {
			details["type"] = "potential_injection"
			details["query"] = c.Request.URL.RawQuery
		}
		if isScannerUserAgent(userAgent) {
			details["type"] = "suspicious_user_agent"
		}

		if len(details) > 0 {
			details["path"] = c.Request.URL.Path
			logger.SecurityLogger("suspicious_activity_detected", c.ClientIP(), userAgent, details)
		}

		c.Next()
	}
}

var injectionPatterns = []string{
	"union select",
	"union all",
	"select * from",
	"drop table",
	"delete from",
	"';--",
	"/*",
	"<script",
	"../",
}

func containsInjectionPattern(rawQuery string) bool {
	query, err := url.QueryUnescape(rawQuery)
	if err != nil {
		query = rawQuery
	}
	query = strings.ToLower(query)
	for _, pattern := range injectionPatterns {
		if strings.Contains(query, pattern) {
			return true
		}
	}
	return false
}

var scannerAgents = []string{
	"sqlmap",
	"nmap",
	"masscan",
	"zgrab",
	"dirbuster",
	"gobuster",
	"nikto",
	"nuclei",
}

func isScannerUserAgent(userAgent string) bool {
	userAgent = strings.ToLower(userAgent)
	for _, agent := range scannerAgents {
		if strings.Contains(userAgent, agent) {
			return true
		}
	}
	return false
}
