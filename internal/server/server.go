// Package server exposes the grader over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	_ "github.com/ZanzyTHEbar/seo-maturity-grader/docs"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/config"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/database"
	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/middleware"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/monitoring"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/ratelimit"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/security"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	// BasePath prefixes every grader route.
	BasePath = "/seo/grader"

	requestIDHeader = "X-Request-ID"
)

// Grader is the grading engine the server fronts.
type Grader interface {
	Evaluate(ctx context.Context, pageURL string, keywords []string, brandCategory string, answers types.QuestionnaireAnswers) (*types.GraderResponse, error)
	Status() types.ServiceStatus
	Backends() map[string]any
}

// ReportStore persists grading reports. A nil store disables persistence.
type ReportStore interface {
	SaveReport(ctx context.Context, report *database.Report) error
	GetReport(ctx context.Context, id string) (*database.Report, error)
	RecentReports(ctx context.Context, limit int) ([]database.ReportSummary, error)
}

// Deps carries everything the router needs.
type Deps struct {
	Grader  Grader
	Reports ReportStore
	Limiter *ratelimit.RequestLimiter
	Metrics *monitoring.Metrics
	Logger  *monitoring.Logger
}

// Server owns the gin engine and the handlers' collaborators.
type Server struct {
	engine       *gin.Engine
	handler      http.Handler
	grader       Grader
	reports      ReportStore
	limiter      *ratelimit.RequestLimiter
	metrics      *monitoring.Metrics
	logger       *monitoring.Logger
	gradeTimeout time.Duration
}

// New builds the router. Limiter, Metrics and Logger are optional.
func New(settings *config.Settings, deps Deps) *Server {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	if deps.Metrics == nil {
		deps.Metrics = monitoring.NewMetrics()
	}
	if deps.Logger == nil {
		deps.Logger = monitoring.Discard()
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.NewRequestLimiter(nil, ratelimit.Config{SubmitLimitPerMin: settings.SubmitLimitPerMin}, deps.Metrics)
	}

	// Adapters bound each upstream call; gradeTimeout bounds the whole fan-out.
	s := &Server{
		engine:       gin.New(),
		grader:       deps.Grader,
		reports:      deps.Reports,
		limiter:      deps.Limiter,
		metrics:      deps.Metrics,
		logger:       deps.Logger.WithComponent("server"),
		gradeTimeout: 2 * settings.RequestTimeout(),
	}

	s.engine.Use(requestID())
	s.engine.Use(monitoring.MonitoringMiddleware(deps.Metrics, deps.Logger))
	s.engine.Use(apperrors.ErrorHandler())
	s.engine.Use(apperrors.RecoveryHandler())
	s.engine.Use(security.SecurityHeadersMiddleware(security.HeadersConfig{HSTS: settings.EnableHSTS}))
	s.engine.Use(cors.New(corsConfig(settings.CORSOrigins)))

	s.routes()

	s.handler = s.engine
	if compressed, err := middleware.Compress(s.engine, middleware.DefaultCompressionConfig()); err != nil {
		s.logger.Warn("Response compression disabled", "error", err)
	} else {
		s.handler = compressed
	}
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) routes() {
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/metrics", s.handleMetrics)
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := s.engine.Group(BasePath)
	api.GET("/health", s.handleHealth)
	api.GET("/questions", s.handleQuestions)
	api.POST("/submit", s.limiter.SubmitRateLimitMiddleware(), s.handleSubmit)
	api.GET("/reports", s.handleRecentReports)
	api.GET("/reports/:id", s.handleGetReport)

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, apperrors.HTTPStatusResponse(http.StatusNotFound, c.GetHeader(requestIDHeader)))
	})
}

// Handler returns the router wrapped with response compression.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// requestID makes sure every request carries an ID, reusing the caller's
// when it sent one. Error responses and reports use the same ID.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > types.MaxClientRequestID {
			id = uuid.New().String()
			c.Request.Header.Set(requestIDHeader, id)
		}
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
