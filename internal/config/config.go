// Package config loads grader settings from an optional YAML file and the
// environment. Environment variables always win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
	"gopkg.in/yaml.v3"
)

// AppVersion is reported by the health endpoint and the CLI.
const AppVersion = "1.0.0"

// DefaultConfigPath is read when GRADER_CONFIG is unset.
const DefaultConfigPath = ".grader.yaml"

var (
	ErrInvalidCacheTTL        = errors.New("cache_ttl_seconds must be positive")
	ErrInvalidCacheSize       = errors.New("cache_max_size must be positive")
	ErrInvalidRate            = errors.New("rate_limit_per_second must be positive")
	ErrInvalidRetries         = errors.New("max_retries must not be negative")
	ErrInvalidTimeout         = errors.New("request_timeout_seconds must be positive")
	ErrInvalidConcurrency     = errors.New("max_concurrent_requests must be positive")
	ErrInvalidSubmitRateLimit = errors.New("submit_limit_per_min must be positive")
	ErrIncompleteGCS          = errors.New("gcs_api_key and gcs_cx must be set together")
	ErrIncompleteMoz          = errors.New("moz_access_id and moz_secret_key must be set together")
)

// APIKeys holds credentials for the optional metrics backends.
type APIKeys struct {
	PageSpeed string `yaml:"pagespeed_api_key"`
	SerpAPI   string `yaml:"serpapi_key"`
	GCSKey    string `yaml:"gcs_api_key"`
	GCSCX     string `yaml:"gcs_cx"`
	WhoisXML  string `yaml:"whoisxml_api_key"`
	MozID     string `yaml:"moz_access_id"`
	MozSecret string `yaml:"moz_secret_key"`
	Ahrefs    string `yaml:"ahrefs_api_key"`
	Majestic  string `yaml:"majestic_api_key"`
}

// Settings is the full runtime configuration.
type Settings struct {
	Keys APIKeys `yaml:"api_keys"`

	CacheTTLSeconds       int     `yaml:"cache_ttl_seconds"`
	CacheMaxSize          int     `yaml:"cache_max_size"`
	RateLimitPerSecond    float64 `yaml:"rate_limit_per_second"`
	MaxRetries            int     `yaml:"max_retries"`
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
	MaxConcurrentRequests int     `yaml:"max_concurrent_requests"`

	// ExcludeUnverifiedSERP treats SERP as unknown instead of zero when no
	// SERP backend is configured.
	ExcludeUnverifiedSERP bool `yaml:"exclude_unverified_serp"`

	Port              string   `yaml:"port"`
	CORSOrigins       []string `yaml:"cors_origins"`
	SubmitLimitPerMin int      `yaml:"submit_limit_per_min"`
	RedisAddr         string   `yaml:"redis_addr"`
	RedisPassword     string   `yaml:"redis_password"`
	RedisDB           int      `yaml:"redis_db"`
	DataDir           string   `yaml:"data_dir"`
	LogLevel          string   `yaml:"log_level"`

	// EnableHSTS should only be set when TLS terminates in front of the service.
	EnableHSTS bool `yaml:"enable_hsts"`
}

// DefaultSettings returns Settings with every tunable at its default.
func DefaultSettings() *Settings {
	return &Settings{
		CacheTTLSeconds:       21600,
		CacheMaxSize:          1000,
		RateLimitPerSecond:    1.0,
		MaxRetries:            3,
		RequestTimeoutSeconds: 45,
		MaxConcurrentRequests: 5,
		Port:                  "8080",
		CORSOrigins:           []string{"http://localhost:5173", "http://localhost:3000"},
		SubmitLimitPerMin:     10,
		LogLevel:              "info",
	}
}

// Load reads the YAML file at path, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Settings, error) {
	s := DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, s); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	s.applyEnv()

	if err := s.Validate(); err != nil {
		return nil, apperrors.NewConfigurationError("invalid configuration", err)
	}
	return s, nil
}

// LoadFromEnv loads the file named by GRADER_CONFIG (or the default path).
func LoadFromEnv() (*Settings, error) {
	return Load(getEnvOrDefault("GRADER_CONFIG", DefaultConfigPath))
}

func (s *Settings) applyEnv() {
	s.Keys.PageSpeed = getEnvOrDefault("PAGESPEED_API_KEY", s.Keys.PageSpeed)
	s.Keys.SerpAPI = getEnvOrDefault("SERPAPI_KEY", s.Keys.SerpAPI)
	s.Keys.GCSKey = getEnvOrDefault("GCS_API_KEY", s.Keys.GCSKey)
	s.Keys.GCSCX = getEnvOrDefault("GCS_CX", s.Keys.GCSCX)
	s.Keys.WhoisXML = getEnvOrDefault("WHOISXML_API_KEY", s.Keys.WhoisXML)
	s.Keys.MozID = getEnvOrDefault("MOZ_ACCESS_ID", s.Keys.MozID)
	s.Keys.MozSecret = getEnvOrDefault("MOZ_SECRET_KEY", s.Keys.MozSecret)
	s.Keys.Ahrefs = getEnvOrDefault("AHREFS_API_KEY", s.Keys.Ahrefs)
	s.Keys.Majestic = getEnvOrDefault("MAJESTIC_API_KEY", s.Keys.Majestic)

	s.CacheTTLSeconds = getEnvInt("CACHE_TTL_SECONDS", s.CacheTTLSeconds)
	s.CacheMaxSize = getEnvInt("CACHE_MAX_SIZE", s.CacheMaxSize)
	s.RateLimitPerSecond = getEnvFloat("RATE_LIMIT_PER_SECOND", s.RateLimitPerSecond)
	s.MaxRetries = getEnvInt("MAX_RETRIES", s.MaxRetries)
	s.RequestTimeoutSeconds = getEnvInt("REQUEST_TIMEOUT_SECONDS", s.RequestTimeoutSeconds)
	s.MaxConcurrentRequests = getEnvInt("MAX_CONCURRENT_REQUESTS", s.MaxConcurrentRequests)
	s.ExcludeUnverifiedSERP = getEnvBool("GRADER_EXCLUDE_UNVERIFIED_SERP", s.ExcludeUnverifiedSERP)

	s.Port = getEnvOrDefault("PORT", s.Port)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		s.CORSOrigins = splitList(origins)
	}
	s.SubmitLimitPerMin = getEnvInt("SUBMIT_LIMIT_PER_MIN", s.SubmitLimitPerMin)
	s.RedisAddr = getEnvOrDefault("REDIS_ADDR", s.RedisAddr)
	s.RedisPassword = getEnvOrDefault("REDIS_PASSWORD", s.RedisPassword)
	s.RedisDB = getEnvInt("REDIS_DB", s.RedisDB)
	s.DataDir = getEnvOrDefault("DATA_DIR", s.DataDir)
	s.LogLevel = getEnvOrDefault("LOG_LEVEL", s.LogLevel)
	s.EnableHSTS = getEnvBool("ENABLE_HSTS", s.EnableHSTS)
}

// Validate returns the first invalid setting found.
func (s *Settings) Validate() error {
	switch {
	case s.CacheTTLSeconds <= 0:
		return ErrInvalidCacheTTL
	case s.CacheMaxSize <= 0:
		return ErrInvalidCacheSize
	case s.RateLimitPerSecond <= 0:
		return ErrInvalidRate
	case s.MaxRetries < 0:
		return ErrInvalidRetries
	case s.RequestTimeoutSeconds <= 0:
		return ErrInvalidTimeout
	case s.MaxConcurrentRequests <= 0:
		return ErrInvalidConcurrency
	case s.SubmitLimitPerMin <= 0:
		return ErrInvalidSubmitRateLimit
	case (s.Keys.GCSKey == "") != (s.Keys.GCSCX == ""):
		return ErrIncompleteGCS
	case (s.Keys.MozID == "") != (s.Keys.MozSecret == ""):
		return ErrIncompleteMoz
	}
	return nil
}

// CacheTTL returns the cache entry lifetime.
func (s *Settings) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// RequestTimeout returns the per-call upstream timeout.
func (s *Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
