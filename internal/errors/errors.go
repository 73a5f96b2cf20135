package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
)

// ErrorCategory defines the type of error for proper handling
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryUpstream      ErrorCategory = "upstream"
	CategoryRateLimit     ErrorCategory = "rate_limit"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryTarget        ErrorCategory = "target"
	CategoryInternal      ErrorCategory = "internal"
	CategoryConfiguration ErrorCategory = "configuration"
)

var categoryCodes = map[ErrorCategory]string{
	CategoryValidation:    "VALIDATION_ERROR",
	CategoryUpstream:      "UPSTREAM_ERROR",
	CategoryRateLimit:     "RATE_LIMIT_EXCEEDED",
	CategoryTimeout:       "TIMEOUT_ERROR",
	CategoryTarget:        "TARGET_ERROR",
	CategoryInternal:      "INTERNAL_ERROR",
	CategoryConfiguration: "CONFIGURATION_ERROR",
}

// AppError wraps an errbuilder error with the grader's category and the
// HTTP status it maps to when it reaches the transport layer.
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory     `json:"category"`
	HTTPStatus int               `json:"http_status"`
	Fields     map[string]string `json:"details,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	StackTrace string            `json:"-"`
}

// Error renders "[CODE] message".
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code(), e.ErrBuilder.Msg)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// Code returns the machine-readable error code for the category.
func (e *AppError) Code() string {
	if code, ok := categoryCodes[e.Category]; ok {
		return code
	}
	return "UNKNOWN_ERROR"
}

// Message returns the human-readable message without the code prefix.
func (e *AppError) Message() string {
	return e.ErrBuilder.Msg
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

func withFields(builder *errbuilder.ErrBuilder, fields map[string]string) *errbuilder.ErrBuilder {
	if len(fields) == 0 {
		return builder
	}
	errorMap := errbuilder.ErrorMap{}
	for k, v := range fields {
		errorMap.Set(k, errors.New(v))
	}
	return builder.WithDetails(errbuilder.NewErrDetails(errorMap))
}

// NewValidationError creates a validation error. Field-level problems go in
// fields and are echoed back to the client as details.
func NewValidationError(message string, fields map[string]string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	appErr := NewAppError(withFields(builder, fields), CategoryValidation, http.StatusBadRequest)
	appErr.Fields = fields
	return appErr
}

// NewUpstreamError reports a failure of a third-party metrics API.
func NewUpstreamError(apiName string, message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	fields := map[string]string{"api_name": apiName}
	appErr := NewAppError(withFields(builder, fields), CategoryUpstream, http.StatusBadGateway)
	appErr.Fields = fields
	return appErr
}

// NewRateLimitError reports an HTTP 429 from an upstream API.
func NewRateLimitError(apiName string, retryAfter string) *AppError {
	fields := map[string]string{"api_name": apiName}
	if retryAfter != "" {
		fields["retry_after"] = retryAfter
	}

	builder := errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg("Rate limit exceeded")

	appErr := NewAppError(withFields(builder, fields), CategoryRateLimit, http.StatusTooManyRequests)
	appErr.Fields = fields
	return appErr
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

// NewTargetError reports that the analysed website itself could not be
// fetched or returned an unusable response.
func NewTargetError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryTarget, http.StatusBadGateway)
}

// NewInternalError creates an internal server error using errbuilder
func NewInternalError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryInternal, http.StatusInternalServerError)

	if gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode {
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

func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Response is the JSON body returned for every failed request.
type Response struct {
	ErrorCode string            `json:"error_code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// ToResponse renders the error for a client.
func (e *AppError) ToResponse(requestID string) Response {
	return Response{
		ErrorCode: e.Code(),
		Message:   e.Message(),
		Details:   e.Fields,
		RequestID: requestID,
	}
}

// HTTPStatusResponse renders a bare status code failure, e.g. unknown routes.
func HTTPStatusResponse(status int, requestID string) Response {
	return Response{
		ErrorCode: fmt.Sprintf("HTTP_%d", status),
		Message:   http.StatusText(status),
		RequestID: requestID,
	}
}

// ErrorHandler is a Gin middleware that provides centralized error handling
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := ToAppError(c.Errors.Last().Err)
		LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr.ToResponse(c.GetHeader("X-Request-ID")))
	}
}

// RecoveryHandler provides panic recovery with structured error responses
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		appErr := NewInternalError("Failed to analyze website. Please try again.", fmt.Errorf("panic: %v", recovered))
		appErr.StackTrace = captureStackTrace()

		LogError(c, appErr)
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse(c.GetHeader("X-Request-ID")))
	})
}

// ToAppError converts any error to an AppError
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("Request deadline exceeded", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewTimeoutError("Request cancelled", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError("Request timeout", err)
	}

	errMsg := err.Error()
	if strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no such host") ||
		strings.Contains(errMsg, "network is unreachable") {
		return NewTargetError("Network connection failed", err)
	}

	return NewInternalError("An unexpected error occurred", err)
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	return ToAppError(err).Category == CategoryTimeout
}

// IsRateLimited reports whether err came from an upstream 429.
func IsRateLimited(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Category == CategoryRateLimit
}

// IsRetryable reports whether a failed upstream call may be retried.
// Rate limits are excluded because the adapters fall back immediately.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	switch ToAppError(err).Category {
	case CategoryUpstream, CategoryTimeout, CategoryTarget:
		return true
	default:
		return false
	}
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
		"request_id", c.GetHeader("X-Request-ID"),
	)

	cause := err.ErrBuilder.Unwrap()
	switch err.Category {
	case CategoryValidation, CategoryRateLimit:
		logEntry.Warn(err.Message(), "details", err.Fields)
	case CategoryUpstream, CategoryTimeout, CategoryTarget:
		logEntry.Info(err.Message(), "cause", cause)
	default:
		logEntry.Error(err.Message(), "cause", cause)
	}

	if err.StackTrace != "" && gin.Mode() == gin.DebugMode {
		logEntry.Debug("stack_trace", "trace", err.StackTrace)
	}
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
