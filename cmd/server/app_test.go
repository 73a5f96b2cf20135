package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/config"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/database"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/monitoring"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewAppWithoutDataDir(t *testing.T) {
	a, err := newApp(config.DefaultSettings(), monitoring.Discard())
	require.NoError(t, err)
	t.Cleanup(a.close)

	assert.Nil(t, a.db)
	assert.False(t, a.redis.IsEnabled())

	w := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/seo/grader/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var health types.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, types.SourceFallback, health.Services.SERP)

	w = httptest.NewRecorder()
	a.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/seo/grader/reports/abc", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewAppWithReportStore(t *testing.T) {
	settings := config.DefaultSettings()
	settings.DataDir = t.TempDir()

	a, err := newApp(settings, monitoring.Discard())
	require.NoError(t, err)
	t.Cleanup(a.close)

	require.NotNil(t, a.db)
	_, err = os.Stat(filepath.Join(settings.DataDir, database.FileName))
	assert.NoError(t, err)

	_, registered := a.health.Get("database")
	assert.True(t, registered)
}
