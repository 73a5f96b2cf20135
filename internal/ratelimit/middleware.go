package ratelimit

import (
	"log/slog"
	"strconv"

	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
	"github.com/gin-gonic/gin"
)

// SubmitRateLimitMiddleware limits grade submissions per client IP.
func (rl *RequestLimiter) SubmitRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		result, err := rl.AllowIP(c.Request.Context(), ip)
		if err != nil {
			// a broken limiter must not take grading down with it
			slog.Error("Rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitIPBlock()
			}

			retryAfter := strconv.Itoa(max(1, int(result.RetryAfter.Seconds())))
			c.Header("Retry-After", retryAfter)

			appErr := apperrors.NewRateLimitError("submit", retryAfter)
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse(c.GetHeader("X-Request-ID")))
			return
		}

		c.Next()
	}
}
