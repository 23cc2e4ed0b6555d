package security

import (
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/ZanzyTHEbar/campus-mcp/internal/errors"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	MaxBodyBytes   int64         `json:"max_body_bytes"`
	AllowedOrigins []string      `json:"allowed_origins"`
	TrustedProxies []string      `json:"trusted_proxies"`
	RequestTimeout time.Duration `json:"request_timeout"`
	EnableHSTS     bool          `json:"enable_hsts"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxBodyBytes:   10 << 20,
		AllowedOrigins: []string{"*"},
		TrustedProxies: []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		RequestTimeout: 30 * time.Second,
	}
}

// SecurityMiddleware groups the request hardening handlers
type SecurityMiddleware struct {
	config SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{config: config}
}

// Config returns the active configuration
func (sm *SecurityMiddleware) Config() SecurityConfig {
	return sm.config
}

// ValidateQuery rejects NUL bytes and invalid UTF-8. The query is otherwise
// searched as given.
func (sm *SecurityMiddleware) ValidateQuery(input string) error {
	if strings.Contains(input, "\x00") {
		return fmt.Errorf("%w: query contains invalid characters", apperrors.ErrInvalidInput)
	}
	if !utf8.ValidString(input) {
		return fmt.Errorf("%w: query contains invalid UTF-8 encoding", apperrors.ErrInvalidInput)
	}
	return nil
}

// ValidateImageUpload accepts only image/* uploads
func ValidateImageUpload(file *multipart.FileHeader) error {
	if file == nil {
		return fmt.Errorf("%w: no file uploaded", apperrors.ErrInvalidInput)
	}
	if file.Size == 0 {
		return fmt.Errorf("%w: %s is empty", apperrors.ErrInvalidInput, file.Filename)
	}
	mediaType, _, err := mime.ParseMediaType(file.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return fmt.Errorf("%w: file must be an image", apperrors.ErrInvalidInput)
	}
	return nil
}

var allowedContentTypes = []string{
	"application/json",
	"application/x-www-form-urlencoded",
	"multipart/form-data",
	"application/octet-stream",
	"image/",
}

// ValidateContentType rejects request bodies of unexpected types
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	contentType := strings.ToLower(c.GetHeader("Content-Type"))

	if contentType != "" {
		found := false
		for _, allowed := range allowedContentTypes {
			if strings.HasPrefix(contentType, allowed) {
				found = true
				break
			}
		}

		if !found {
			appErr := apperrors.NewValidationError("unsupported content type", nil)
			appErr.HTTPStatus = http.StatusUnsupportedMediaType
			apperrors.Abort(c, appErr)
			return
		}
	}

	c.Next()
}

// BodyLimit caps the request body size
func (sm *SecurityMiddleware) BodyLimit(c *gin.Context) {
	if c.Request.ContentLength > sm.config.MaxBodyBytes {
		appErr := apperrors.NewValidationError(
			fmt.Sprintf("request body exceeds %d bytes", sm.config.MaxBodyBytes), nil)
		appErr.HTTPStatus = http.StatusRequestEntityTooLarge
		apperrors.Abort(c, appErr)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sm.config.MaxBodyBytes)
	c.Next()
}

// RequestTimeout bounds the request context
func (sm *SecurityMiddleware) RequestTimeout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

	c.Next()
}

// CORSConfig builds the CORS handler. A "*" origin allows every origin
// without credentials; an explicit list allows credentials.
func (sm *SecurityMiddleware) CORSConfig() gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	if allowsAll(sm.config.AllowedOrigins) {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = sm.config.AllowedOrigins
		config.AllowCredentials = true
	}

	return cors.New(config)
}

func allowsAll(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return len(origins) == 0
}
