package main

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/config"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/database"
	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/grader"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/monitoring"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/ratelimit"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/resilience"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/server"
)

// app holds the long-lived components so they can be shut down in order.
type app struct {
	grader  *grader.Grader
	server  *server.Server
	limiter *ratelimit.RequestLimiter
	health  *resilience.HealthTracker
	redis   *ratelimit.RedisClient
	db      *database.DB
}

func newApp(settings *config.Settings, logger *monitoring.Logger) (*app, error) {
	metrics := monitoring.NewMetrics()
	health := resilience.NewHealthTracker(resilience.DefaultHealthConfig())

	redisClient, err := ratelimit.NewRedisClient(settings.RedisAddr, settings.RedisPassword, settings.RedisDB)
	if err != nil {
		// Limits still apply per instance when Redis is down.
		logger.Warn("Redis unavailable, rate limits are per instance", "error", err)
	}
	if redisClient.IsEnabled() {
		health.Register("redis", redisClient.HealthCheck)
	}

	a := &app{health: health, redis: redisClient}

	var reports server.ReportStore
	if settings.DataDir != "" {
		db, err := database.NewDB(settings.DataDir)
		if err != nil {
			apperrors.SafeClose(redisClient, "redis")
			return nil, fmt.Errorf("opening report store: %w", err)
		}
		a.db = db
		reports = database.NewRepository(db)
		health.Register("database", db.PingContext)
		logger.Info("Report store enabled", "data_dir", settings.DataDir)
	}

	a.grader = grader.New(settings, grader.Options{
		Logger:  logger,
		Metrics: metrics,
		Health:  health,
		Gate:    ratelimit.NewDistributedGate(redisClient, settings.RateLimitPerSecond),
	})

	a.limiter = ratelimit.NewRequestLimiter(redisClient, ratelimit.Config{SubmitLimitPerMin: settings.SubmitLimitPerMin}, metrics)

	a.server = server.New(settings, server.Deps{
		Grader:  a.grader,
		Reports: reports,
		Limiter: a.limiter,
		Metrics: metrics,
		Logger:  logger,
	})

	status := a.grader.Status()
	logger.SystemLogger("startup", fmt.Sprintf("services pagespeed=%s serp=%s whois=%s authority=%s",
		status.PageSpeed, status.SERP, status.WHOIS, status.Authority))

	return a, nil
}

// start launches the background loops. They stop when ctx ends.
func (a *app) start(ctx context.Context) {
	go a.health.StartHealthChecks(ctx)
	a.limiter.StartCleanup(ctx)
}

func (a *app) close() {
	a.grader.Close()
	if a.db != nil {
		apperrors.SafeClose(a.db, "database")
	}
	apperrors.SafeClose(a.redis, "redis")
}
