package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/ratelimit"
)

// HTTPError is a non-2xx response from an upstream API.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, status string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Status: status}
}

// StatusError converts a non-2xx response into an error. 429 becomes a
// rate-limit error carrying Retry-After; everything else an upstream error
// wrapping the HTTPError.
func StatusError(api string, resp *http.Response) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return apperrors.NewRateLimitError(api, resp.Header.Get("Retry-After"))
	}
	httpErr := NewHTTPError(resp.StatusCode, resp.Status)
	return apperrors.NewUpstreamError(api, "API error: "+httpErr.Error(), httpErr)
}

// isRetryableHTTPStatus checks if an HTTP status code should trigger a retry.
// 429 is absent: rate-limited callers fall back instead of retrying.
func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout:
		return true
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// ShouldRetry classifies an error from a single upstream attempt.
func ShouldRetry(err error) bool {
	if err == nil || apperrors.IsRateLimited(err) || IsCircuitOpen(err) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTPStatus(httpErr.StatusCode)
	}
	return apperrors.IsRetryable(err)
}

// Fetch runs fn under the origin's pacing, retrying retryable failures while
// the limiter grants retries. The limiter's backoff window is waited out by
// the next Acquire.
//
// A rate-limit error returns at once and does not count against the origin.
func Fetch[T any](ctx context.Context, limiter *ratelimit.OriginLimiter, origin string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	for {
		if err := limiter.Acquire(ctx, origin); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			limiter.ReportSuccess(origin)
			return result, nil
		}

		if apperrors.IsRateLimited(err) || IsCircuitOpen(err) {
			return zero, err
		}

		canRetry := limiter.ReportFailure(origin)
		if !canRetry || !ShouldRetry(err) || ctx.Err() != nil {
			return zero, err
		}
	}
}
