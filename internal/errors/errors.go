package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
)

// Sentinel errors raised by the domain packages. Wrap them with fmt.Errorf
// and %w so ToAppError can classify the failure.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnknownTool      = errors.New("unknown tool")
	ErrModelUnavailable = errors.New("model unavailable")
)

// ErrorCategory defines the type of error for proper handling
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryUnknownTool   ErrorCategory = "unknown_tool"
	CategoryUnavailable   ErrorCategory = "unavailable"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryRateLimit     ErrorCategory = "rate_limit"
	CategoryInternal      ErrorCategory = "internal"
	CategoryExternalAPI   ErrorCategory = "external_api"
	CategoryConfiguration ErrorCategory = "configuration"
)

// AppError wraps an errbuilder error with the HTTP context needed to answer a request
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory     `json:"category"`
	HTTPStatus int               `json:"http_status"`
	Timestamp  time.Time         `json:"timestamp"`
	RequestID  string            `json:"request_id,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	StackTrace string            `json:"stack_trace,omitempty"`
}

// ErrorResponse is the JSON body written for every failed request
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Category  ErrorCategory     `json:"category"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// Code returns the stable, client-facing code for the error
func (e *AppError) Code() string {
	switch e.Category {
	case CategoryValidation:
		return "INVALID_INPUT"
	case CategoryUnknownTool:
		return "UNKNOWN_TOOL"
	case CategoryUnavailable:
		return "MODEL_UNAVAILABLE"
	case CategoryTimeout:
		return "TIMEOUT_ERROR"
	case CategoryRateLimit:
		return "RATE_LIMIT_EXCEEDED"
	case CategoryExternalAPI:
		return "EXTERNAL_API_ERROR"
	case CategoryConfiguration:
		return "CONFIGURATION_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code(), e.ErrBuilder.Msg)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// Response builds the JSON body for the error
func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{
		Error:     e.Code(),
		Message:   e.ErrBuilder.Msg,
		Category:  e.Category,
		Details:   e.Details,
		RequestID: e.RequestID,
		Timestamp: e.Timestamp.Format(time.RFC3339),
	}
}

// NewAppError creates an AppError from errbuilder with additional context
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

func withDetails(builder *errbuilder.ErrBuilder, details map[string]string) *errbuilder.ErrBuilder {
	if len(details) == 0 {
		return builder
	}
	errorMap := errbuilder.ErrorMap{}
	for key, value := range details {
		errorMap.Set(key, errors.New(value))
	}
	return builder.WithDetails(errbuilder.NewErrDetails(errorMap))
}

// NewValidationError creates a validation error using errbuilder
func NewValidationError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryValidation, http.StatusBadRequest)
}

// NewUnknownToolError reports a tool name the dispatcher does not know
func NewUnknownToolError(message string, available []string, cause error) *AppError {
	details := map[string]string{"available_tools": strings.Join(available, ", ")}

	builder := withDetails(errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message), details)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryUnknownTool, http.StatusBadRequest)
	appErr.Details = details
	return appErr
}

// NewUnavailableError reports a classifier that is not loaded or not configured
func NewUnavailableError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryUnavailable, http.StatusServiceUnavailable)
}

// NewTimeoutError creates a timeout error using errbuilder
func NewTimeoutError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeDeadlineExceeded).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryTimeout, http.StatusGatewayTimeout)
}

// NewRateLimitError creates a rate limit error using errbuilder
func NewRateLimitError(retryAfter time.Duration) *AppError {
	details := map[string]string{"retry_after": fmt.Sprintf("%d", int(retryAfter.Seconds()))}

	builder := withDetails(errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg("Rate limit exceeded"), details)

	appErr := NewAppError(builder, CategoryRateLimit, http.StatusTooManyRequests)
	appErr.Details = details
	return appErr
}

// NewExternalAPIError creates an error for a failing model backend
func NewExternalAPIError(apiName string, cause error) *AppError {
	details := map[string]string{"api_name": apiName}

	builder := withDetails(errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(fmt.Sprintf("%s backend error", apiName)), details)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryExternalAPI, http.StatusBadGateway)
	appErr.Details = details
	return appErr
}

// NewInternalError creates an internal server error using errbuilder
func NewInternalError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("Internal server error")

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryInternal, http.StatusInternalServerError)

	// The internal message never reaches the client outside debug mode
	if gin.Mode() == gin.DebugMode {
		appErr.Details = map[string]string{"internal_details": message}
		appErr.StackTrace = captureStackTrace()
	}

	return appErr
}

// NewConfigurationError creates a configuration error using errbuilder
func NewConfigurationError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryConfiguration, http.StatusInternalServerError)
}

// captureStackTrace captures a stack trace for debugging
func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// ErrorHandler is a Gin middleware that renders errors attached with c.Error
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		Abort(c, c.Errors.Last().Err)
	}
}

// RecoveryHandler provides panic recovery with structured error responses
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		appErr := NewInternalError(
			fmt.Sprintf("panic recovered: %v", recovered),
			fmt.Errorf("%v", recovered),
		)
		appErr.StackTrace = captureStackTrace()

		respond(c, appErr)
	})
}

// Abort converts err, logs it and writes the error response
func Abort(c *gin.Context, err error) {
	respond(c, ToAppError(err))
}

func respond(c *gin.Context, appErr *AppError) {
	if appErr.RequestID == "" {
		appErr.RequestID = c.GetString(RequestIDKey)
	}
	LogError(c, appErr)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Response())
}

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "request_id"

// ToAppError converts any error to an AppError
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return NewValidationError(err.Error(), err)
	case errors.Is(err, ErrUnknownTool):
		return NewUnknownToolError(err.Error(), nil, err)
	case errors.Is(err, ErrModelUnavailable):
		return NewUnavailableError(err.Error(), err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError("Request deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return NewTimeoutError("Request cancelled", err)
	}

	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	return NewInternalError(err.Error(), err)
}

// LogError logs an error with appropriate level and context
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.Code(),
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", err.RequestID,
	)

	errorMsg := err.ErrBuilder.Msg
	cause := err.ErrBuilder.Unwrap()

	switch err.Category {
	case CategoryValidation, CategoryUnknownTool, CategoryRateLimit:
		if len(err.Details) > 0 {
			logEntry.Warn(errorMsg, "details", err.Details)
		} else {
			logEntry.Warn(errorMsg)
		}
	case CategoryUnavailable, CategoryTimeout, CategoryExternalAPI:
		if cause != nil {
			logEntry.Info(errorMsg, "cause", cause)
		} else {
			logEntry.Info(errorMsg)
		}
	default:
		if cause != nil {
			logEntry.Error(errorMsg, "cause", cause)
		} else {
			logEntry.Error(errorMsg)
		}
	}

	if err.StackTrace != "" && gin.Mode() == gin.DebugMode {
		logEntry.Debug("stack_trace", "trace", err.StackTrace)
	}
}

// IsRetryableError checks if an error should trigger a retry
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Scoring failures are deterministic
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrUnknownTool) || errors.Is(err, context.Canceled) {
		return false
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category == CategoryExternalAPI || appErr.Category == CategoryTimeout
	}

	var retryable interface{ Temporary() bool }
	if errors.As(err, &retryable) {
		return retryable.Temporary()
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "no such host") ||
		strings.Contains(errMsg, "timeout") ||
		errors.Is(err, context.DeadlineExceeded)
}

// SafeClose safely closes a resource and logs any errors
func SafeClose(closer interface{ Close() error }, resourceName string) {
	if closer == nil {
		return
	}

	if err := closer.Close(); err != nil {
		slog.Warn("Failed to close resource",
			"resource", resourceName,
			"error", err)
	}
}
