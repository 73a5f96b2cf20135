package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/config"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/database"
	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/security"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
	"github.com/gin-gonic/gin"
)

// MsgAnalyzeFailed is returned for any failure that is not the caller's fault.
const MsgAnalyzeFailed = "Failed to analyze website. Please try again."

const defaultRecentReports = 20

// QuestionsResponse describes the questionnaire for clients building a form.
type QuestionsResponse struct {
	Questions       map[string]string     `json:"questions"`
	Technical       []string              `json:"technical"`
	Content         []string              `json:"content"`
	Measurement     []string              `json:"measurement"`
	AnswerScale     map[int]string        `json:"answer_scale"`
	BrandCategories []types.BrandCategory `json:"brand_categories"`
	MaxKeywords     int                   `json:"max_keywords"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "SEO Maturity Grader API",
		"docs":    "/swagger/index.html",
		"health":  BasePath + "/health",
	})
}

func (s *Server) handleMetrics(c *gin.Context) {
	stats := s.metrics.GetStats()
	stats["external_apis"] = s.metrics.GetExternalAPIStats()
	stats["rate_limiter"] = s.limiter.GetStats()
	c.JSON(http.StatusOK, stats)
}

// handleHealth godoc
// @Summary      Service health and resolved metric backends
// @Tags         grader
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Router       /health [get]
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{
		Status:   "healthy",
		Version:  config.AppVersion,
		Services: s.grader.Status(),
		Backends: s.grader.Backends(),
	})
}

// handleQuestions godoc
// @Summary      Questionnaire, answer scale and brand categories
// @Tags         grader
// @Produce      json
// @Success      200  {object}  QuestionsResponse
// @Router       /questions [get]
func (s *Server) handleQuestions(c *gin.Context) {
	c.JSON(http.StatusOK, QuestionsResponse{
		Questions:       types.Questions,
		Technical:       types.TechnicalQuestions,
		Content:         types.ContentQuestions,
		Measurement:     types.MeasurementQuestions,
		AnswerScale:     types.AnswerScale,
		BrandCategories: types.BrandCategories,
		MaxKeywords:     types.MaxKeywords,
	})
}

// handleSubmit godoc
// @Summary      Grade a website
// @Tags         grader
// @Accept       json
// @Produce      json
// @Param        request  body      types.GraderRequest  true  "Website, keywords and questionnaire answers"
// @Success      200      {object}  types.GraderResponse
// @Failure      400      {object}  errors.Response
// @Failure      429      {object}  errors.Response
// @Failure      500      {object}  errors.Response
// @Router       /submit [post]
func (s *Server) handleSubmit(c *gin.Context) {
	start := time.Now()
	requestID := c.GetHeader(requestIDHeader)

	var req types.GraderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperrors.NewValidationError("Invalid request body", map[string]string{"body": err.Error()}))
		return
	}
	if err := req.Normalize(); err != nil {
		s.fail(c, err)
		return
	}

	target, err := security.ValidateURL(req.WebsiteURL)
	if err != nil {
		s.logger.SecurityLogger("url_rejected", c.ClientIP(), c.GetHeader("User-Agent"), map[string]any{
			"url":    req.WebsiteURL,
			"reason": apperrors.ToAppError(err).Message(),
		})
		s.fail(c, err)
		return
	}
	if target.Warning != "" {
		s.logger.Warn(target.Warning, "url", target.URL, "request_id", requestID)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.gradeTimeout)
	defer cancel()

	resp, err := s.grader.Evaluate(ctx, target.URL, req.TargetKeywords, req.BrandCategory, req.QuestionnaireAnswers)
	if err != nil {
		if appErr := apperrors.ToAppError(err); appErr.Category == apperrors.CategoryValidation {
			s.fail(c, appErr)
			return
		}
		s.fail(c, apperrors.NewInternalError(MsgAnalyzeFailed, err))
		return
	}
	resp.RequestID = requestID

	if s.reports != nil {
		// A grade that was computed is still returned when storing it fails.
		if err := s.reports.SaveReport(c.Request.Context(), database.NewReport(target.URL, req.ClientRequestID, resp)); err != nil {
			s.logger.Error("Failed to store report", "request_id", requestID, "error", err)
		}
	}

	s.logger.GradeLogger(requestID, target.URL, resp.TotalScore, resp.Stage, time.Since(start))
	c.JSON(http.StatusOK, resp)
}

// handleGetReport godoc
// @Summary      A stored report by request ID
// @Tags         reports
// @Produce      json
// @Param        id   path      string  true  "Report ID"
// @Success      200  {object}  database.Report
// @Failure      404  {object}  errors.Response
// @Router       /reports/{id} [get]
func (s *Server) handleGetReport(c *gin.Context) {
	if s.reports == nil {
		s.notFound(c)
		return
	}

	report, err := s.reports.GetReport(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, database.ErrReportNotFound):
		s.notFound(c)
	case err != nil:
		s.fail(c, apperrors.NewInternalError("Failed to load report", err))
	default:
		c.JSON(http.StatusOK, report)
	}
}

// handleRecentReports godoc
// @Summary      Most recent stored reports
// @Tags         reports
// @Produce      json
// @Param        limit  query     int  false  "Number of reports, 1 to 100"
// @Failure      400    {object}  errors.Response
// @Router       /reports [get]
func (s *Server) handleRecentReports(c *gin.Context) {
	if s.reports == nil {
		s.notFound(c)
		return
	}

	limit := defaultRecentReports
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > database.MaxRecentReports {
			s.fail(c, apperrors.NewValidationError("Invalid limit", map[string]string{
				"limit": "must be between 1 and " + strconv.Itoa(database.MaxRecentReports),
			}))
			return
		}
		limit = n
	}

	reports, err := s.reports.RecentReports(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, apperrors.NewInternalError("Failed to list reports", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

func (s *Server) fail(c *gin.Context, err error) {
	appErr := apperrors.ToAppError(err)
	apperrors.LogError(c, appErr)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse(c.GetHeader(requestIDHeader)))
}

func (s *Server) notFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, apperrors.HTTPStatusResponse(http.StatusNotFound, c.GetHeader(requestIDHeader)))
}
