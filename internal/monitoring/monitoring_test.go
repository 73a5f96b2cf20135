package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerRedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelDebug)

	logger.ExternalAPILogger("pagespeed", "GET",
		"https://www.googleapis.com/pagespeedonline/v5/runPagespeed?url=x&key=SECRET123&strategy=mobile",
		200, 120*time.Millisecond, true)
	logger.Info("moz configured", "secret", "hunter2", "api_key", "abc")

	out := buf.String()
	assert.NotContains(t, out, "SECRET123")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "key="+MaskValue)
	assert.Contains(t, out, `"timestamp"`)
}

func TestRedactString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no params", "https://example.com/", "https://example.com/"},
		{"serpapi", "q=seo&api_key=abc&num=30", "q=seo&api_key=" + MaskValue + "&num=30"},
		{"whoisxml", "?apiKey=zzz&domainName=example.com", "?apiKey=" + MaskValue + "&domainName=example.com"},
		{"moz", "AccessID=id&Expires=1&Signature=sig", "AccessID=" + MaskValue + "&Expires=1&Signature=" + MaskValue},
		{"unrelated param kept", "monkey=1", "monkey=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactString(tt.in))
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestMetricsStats(t *testing.T) {
	m := NewMetrics()

	m.IncrementCacheHit()
	m.IncrementCacheMiss()
	m.IncrementCacheMiss()
	m.IncrementBackoff()
	m.IncrementGrade()
	m.RecordExternalAPIRequest("pagespeed", true)
	m.RecordExternalAPIRequest("pagespeed", false)
	m.RecordFallback("serp")
	m.RecordResponseTime(100 * time.Millisecond)
	m.RecordResponseTime(300 * time.Millisecond)

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats["cache_hits"])
	assert.Equal(t, int64(2), stats["cache_misses"])
	assert.Equal(t, int64(1), stats["limiter_backoffs"])
	assert.Equal(t, int64(1), stats["grades_completed"])
	assert.InDelta(t, 33.33, stats["cache_hit_rate_percent"], 0.01)

	api := m.GetExternalAPIStats()
	ps, ok := api["pagespeed"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(2), ps["requests"])
	assert.Equal(t, int64(1), ps["errors"])
	assert.Equal(t, map[string]int64{"serp": 1}, api["fallbacks"])

	assert.Equal(t, 300*time.Millisecond, m.GetPercentileResponseTime(99))
	assert.Equal(t, 200*time.Millisecond, m.AverageResponseTime())
	assert.InDelta(t, 200.0, stats["avg_response_time_ms"], 0.001)

	m.Reset()
	assert.Equal(t, int64(0), m.GetStats()["cache_hits"])
	assert.Equal(t, time.Duration(0), m.GetPercentileResponseTime(50))
}

func TestResponseTimePercentiles(t *testing.T) {
	m := NewMetrics()
	for i := 1; i <= 10; i++ {
		m.RecordResponseTime(time.Duration(i) * 10 * time.Millisecond)
	}

	tests := []struct {
		percentile float64
		want       time.Duration
	}{
		{0, 10 * time.Millisecond},
		{10, 10 * time.Millisecond},
		{50, 50 * time.Millisecond},
		{95, 100 * time.Millisecond},
		{99, 100 * time.Millisecond},
		{100, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("p%v", tt.percentile), func(t *testing.T) {
			assert.Equal(t, tt.want, m.GetPercentileResponseTime(tt.percentile))
		})
	}

	assert.Equal(t, 55*time.Millisecond, m.AverageResponseTime())
}

func TestMonitoringMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	metrics := NewMetrics()
	logger := NewLoggerWithWriter(&buf, slog.LevelInfo)

	r := gin.New()
	r.Use(MonitoringMiddleware(metrics, logger))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	for _, path := range []string{"/ok", "/bad"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats["total_requests"])
	assert.Equal(t, int64(1), stats["error_count"])

	var first map[string]any
	line, _, _ := bytes.Cut(buf.Bytes(), []byte("\n"))
	require.NoError(t, json.Unmarshal(line, &first))
	assert.Equal(t, "HTTP Request", first["msg"])
}
