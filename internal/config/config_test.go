package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 21600, s.CacheTTLSeconds)
	assert.Equal(t, 1000, s.CacheMaxSize)
	assert.Equal(t, 1.0, s.RateLimitPerSecond)
	assert.Equal(t, 3, s.MaxRetries)
	assert.Equal(t, 45*time.Second, s.RequestTimeout())
	assert.Equal(t, 6*time.Hour, s.CacheTTL())
	assert.False(t, s.ExcludeUnverifiedSERP)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grader.yaml")
	content := `
api_keys:
  pagespeed_api_key: from-file
  serpapi_key: serp-file
cache_max_size: 50
exclude_unverified_serp: true
cors_origins:
  - https://app.example.com
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("PAGESPEED_API_KEY", "from-env")
	t.Setenv("RATE_LIMIT_PER_SECOND", "2.5")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", s.Keys.PageSpeed)
	assert.Equal(t, "serp-file", s.Keys.SerpAPI)
	assert.Equal(t, 50, s.CacheMaxSize)
	assert.Equal(t, 2.5, s.RateLimitPerSecond)
	assert.True(t, s.ExcludeUnverifiedSERP)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.CORSOrigins)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache_max_size: [oops"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadInvalidSettings(t *testing.T) {
	t.Setenv("CACHE_TTL_SECONDS", "")
	path := filepath.Join(t.TempDir(), "grader.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache_ttl_seconds: -5\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCacheTTL)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CategoryConfiguration, appErr.Category)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Settings)
		want   error
	}{
		{"defaults valid", func(s *Settings) {}, nil},
		{"zero ttl", func(s *Settings) { s.CacheTTLSeconds = 0 }, ErrInvalidCacheTTL},
		{"zero size", func(s *Settings) { s.CacheMaxSize = 0 }, ErrInvalidCacheSize},
		{"zero rate", func(s *Settings) { s.RateLimitPerSecond = 0 }, ErrInvalidRate},
		{"negative retries", func(s *Settings) { s.MaxRetries = -1 }, ErrInvalidRetries},
		{"zero timeout", func(s *Settings) { s.RequestTimeoutSeconds = 0 }, ErrInvalidTimeout},
		{"zero concurrency", func(s *Settings) { s.MaxConcurrentRequests = 0 }, ErrInvalidConcurrency},
		{"gcs without cx", func(s *Settings) { s.Keys.GCSKey = "k" }, ErrIncompleteGCS},
		{"moz without secret", func(s *Settings) { s.Keys.MozID = "id" }, ErrIncompleteMoz},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(s)
			assert.ErrorIs(t, s.Validate(), tt.want)
		})
	}
}
