// Package grader is the single entry point that turns a website, its target
// keywords and a questionnaire into a maturity report.
package grader

import (
	"context"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/adapters"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/cache"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/config"
	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/evaluator"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/monitoring"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/ratelimit"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/resilience"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/scoring"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
)

// Options supplies the shared infrastructure. Every field is optional.
type Options struct {
	Logger    *monitoring.Logger
	Metrics   *monitoring.Metrics
	Health    *resilience.HealthTracker
	Gate      *ratelimit.DistributedGate
	Whois     adapters.WhoisLookup
	Endpoints adapters.Endpoints
	Brand     evaluator.BrandChecker
	Chooser   scoring.Chooser
	Now       func() time.Time
}

// Grader owns the adapters, their cache and their rate limiter for the
// lifetime of the process.
type Grader struct {
	adapters *adapters.Set
	observed *evaluator.ObservedEvaluator
	client   *resilience.Client
	limiter  *ratelimit.OriginLimiter
	caches   *cache.Registry
	health   *resilience.HealthTracker
	metrics  *monitoring.Metrics
	logger   *monitoring.Logger
	chooser  scoring.Chooser
	now      func() time.Time
}

// New wires a Grader from settings.
func New(settings *config.Settings, opts Options) *Grader {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	if opts.Logger == nil {
		opts.Logger = monitoring.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = monitoring.NewMetrics()
	}
	if opts.Health == nil {
		opts.Health = resilience.NewHealthTracker(resilience.DefaultHealthConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	clientCfg := resilience.DefaultClientConfig()
	clientCfg.MaxConcurrent = settings.MaxConcurrentRequests
	clientCfg.Timeout = settings.RequestTimeout()
	client := resilience.NewClient(clientCfg, opts.Health, opts.Metrics, opts.Logger)

	originCfg := ratelimit.DefaultOriginConfig()
	originCfg.RequestsPerSecond = settings.RateLimitPerSecond
	originCfg.MaxRetries = settings.MaxRetries
	limiter := ratelimit.NewOriginLimiter(originCfg, opts.Metrics).WithLogger(opts.Logger.WithComponent("ratelimit"))
	if opts.Gate != nil {
		limiter.WithGate(opts.Gate)
	}

	caches := cache.NewRegistry(settings.CacheMaxSize, settings.CacheTTL(), opts.Metrics, opts.Logger)

	set := adapters.NewSet(adapters.Deps{
		Client:    client,
		Limiter:   limiter,
		Caches:    caches,
		Metrics:   opts.Metrics,
		Logger:    opts.Logger,
		Keys:      settings.Keys,
		Endpoints: opts.Endpoints,
		Timeout:   settings.RequestTimeout(),
		Now:       opts.Now,
	}, opts.Whois)

	page := evaluator.NewPageAnalyzer(client, settings.RequestTimeout(), opts.Logger)
	observed := evaluator.NewObservedEvaluator(set, page, evaluator.ObservedConfig{
		ExcludeUnverifiedSERP: settings.ExcludeUnverifiedSERP,
		Brand:                 opts.Brand,
	}, opts.Logger)

	g := &Grader{
		adapters: set,
		observed: observed,
		client:   client,
		limiter:  limiter,
		caches:   caches,
		health:   opts.Health,
		metrics:  opts.Metrics,
		logger:   opts.Logger.WithComponent("grader"),
		chooser:  opts.Chooser,
		now:      opts.Now,
	}
	g.registerBackends()
	return g
}

// registerBackends makes every live backend visible on the health report
// before its first request.
func (g *Grader) registerBackends() {
	status := g.adapters.Status()
	live := map[string]string{
		adapters.BackendPageSpeed: status.PageSpeed,
		adapters.BackendWhoisXML:  status.WHOIS,
	}
	for name, s := range live {
		if s == adapters.StatusConfigured {
			g.health.Register(name, nil)
		}
	}
	for _, name := range []string{status.SERP, status.Authority} {
		if name != types.SourceFallback {
			g.health.Register(name, nil)
		}
	}
}

// Evaluate grades pageURL. The URL must already be validated and
// normalised. Backend failures degrade the report instead of failing it;
// errors are returned only for invalid input.
func (g *Grader) Evaluate(ctx context.Context, pageURL string, keywords []string, brandCategory string, answers types.QuestionnaireAnswers) (*types.GraderResponse, error) {
	if ctx == nil {
		return nil, apperrors.NewValidationError("context is required", nil)
	}
	if pageURL == "" {
		return nil, apperrors.NewValidationError("website_url is required", map[string]string{"website_url": "is required"})
	}
	if err := answers.Validate(); err != nil {
		return nil, err
	}

	keywords = types.NormalizeKeywords(keywords)
	if len(keywords) > types.MaxKeywords {
		msg := fmt.Sprintf("Maximum %d keywords allowed", types.MaxKeywords)
		return nil, apperrors.NewValidationError(msg, map[string]string{"target_keywords": msg})
	}

	start := time.Now()
	declared := evaluator.EvaluateDeclared(answers)
	observed := g.observed.Evaluate(ctx, pageURL, keywords, brandCategory)

	resp := scoring.BuildResponse(declared, observed, scoring.Options{Chooser: g.chooser, Now: g.now})

	g.metrics.IncrementGrade()
	g.logger.Debug("Grade computed",
		"url", pageURL,
		"declared", declared.Total,
		"observed", observed.Total,
		"total", resp.TotalScore,
		"duration_ms", time.Since(start).Milliseconds())

	return resp, nil
}

// Status reports which backend each adapter uses.
func (g *Grader) Status() types.ServiceStatus {
	return g.adapters.Status()
}

// Backends reports backend health, breaker state, outbound pacing and cache
// usage for the health endpoint.
func (g *Grader) Backends() map[string]any {
	return map[string]any{
		"overall":  g.health.Overall(),
		"health":   g.health.All(),
		"breakers": g.client.BreakerStats(),
		"origins":  g.limiter.Stats(),
		"caches":   g.caches.AllStats(),
	}
}

// Caches exposes the response caches, mainly for administration and tests.
func (g *Grader) Caches() *cache.Registry {
	return g.caches
}

// Close releases pooled connections.
func (g *Grader) Close() {
	g.client.Close()
}
