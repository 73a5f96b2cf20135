package server

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/config"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/database"
	apperrors "github.com/ZanzyTHEbar/seo-maturity-grader/internal/errors"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type gradeCall struct {
	url      string
	keywords []string
	brand    string
}

type fakeGrader struct {
	mu    sync.Mutex
	calls []gradeCall
	err   error
}

func (f *fakeGrader) Evaluate(_ context.Context, pageURL string, keywords []string, brand string, _ types.QuestionnaireAnswers) (*types.GraderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, gradeCall{url: pageURL, keywords: keywords, brand: brand})
	if f.err != nil {
		return nil, f.err
	}
	return &types.GraderResponse{
		TotalScore: 65,
		Stage:      "Structured",
		TopRisks:   []string{"Poor SERP visibility"},
	}, nil
}

func (f *fakeGrader) Status() types.ServiceStatus {
	return types.ServiceStatus{PageSpeed: "fallback", SERP: "fallback", WHOIS: "fallback", Authority: "fallback"}
}

func (f *fakeGrader) Backends() map[string]any {
	return map[string]any{"overall": "normal"}
}

type memoryStore struct {
	mu      sync.Mutex
	reports map[string]*database.Report
	order   []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{reports: map[string]*database.Report{}}
}

func (m *memoryStore) SaveReport(_ context.Context, r *database.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[r.ID]; ok {
		return errors.New("duplicate report")
	}
	m.reports[r.ID] = r
	m.order = append(m.order, r.ID)
	return nil
}

func (m *memoryStore) GetReport(_ context.Context, id string) (*database.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, database.ErrReportNotFound
	}
	return r, nil
}

func (m *memoryStore) RecentReports(_ context.Context, limit int) ([]database.ReportSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.ReportSummary
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		r := m.reports[m.order[i]]
		out = append(out, database.ReportSummary{ID: r.ID, WebsiteURL: r.WebsiteURL, TotalScore: r.TotalScore, Stage: r.Stage})
	}
	return out, nil
}

func newTestServer(t *testing.T, g Grader, store ReportStore) *Server {
	t.Helper()
	settings := config.DefaultSettings()
	settings.SubmitLimitPerMin = 100
	return New(settings, Deps{Grader: g, Reports: store})
}

func validBody(url string, keywords ...string) map[string]any {
	return map[string]any{
		"website_url":     url,
		"brand_category":  "SaaS",
		"target_keywords": keywords,
		"questionnaire_answers": map[string]int{
			"T1": 4, "T2": 3, "T3": 5, "T4": 3, "C1": 4, "C2": 3, "C3": 2, "C4": 3, "M1": 2, "M2": 3,
		},
	}
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.10:4000"
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperrors.Response {
	t.Helper()
	var body apperrors.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t, &fakeGrader{}, nil)

	w := do(t, s, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"health":"/seo/grader/health"`)

	w = do(t, s, http.MethodGet, "/seo/grader/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var health types.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, config.AppVersion, health.Version)
	assert.Equal(t, "fallback", health.Services.SERP)
	assert.Equal(t, "normal", health.Backends["overall"])
}

func TestQuestions(t *testing.T) {
	s := newTestServer(t, &fakeGrader{}, nil)

	w := do(t, s, http.MethodGet, "/seo/grader/questions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body QuestionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Questions, 10)
	assert.Equal(t, []string{"M1", "M2"}, body.Measurement)
	assert.Len(t, body.AnswerScale, 5)
	assert.Equal(t, types.MaxKeywords, body.MaxKeywords)
}

func TestSubmit(t *testing.T) {
	g := &fakeGrader{}
	store := newMemoryStore()
	s := newTestServer(t, g, store)

	w := do(t, s, http.MethodPost, "/seo/grader/submit", validBody("example.com/pricing/", " seo tools ", "SEO Tools", ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp types.GraderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 65, resp.TotalScore)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, resp.RequestID, w.Header().Get("X-Request-ID"))

	require.Len(t, g.calls, 1)
	assert.Equal(t, "https://example.com/pricing", g.calls[0].url)
	assert.Equal(t, []string{"seo tools"}, g.calls[0].keywords)
	assert.Equal(t, "SaaS", g.calls[0].brand)

	stored, err := store.GetReport(context.Background(), resp.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/pricing", stored.WebsiteURL)
	assert.Equal(t, "Structured", stored.Stage)
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	tooMany := validBody("https://example.com", "a", "b", "c", "d", "e", "f")
	badAnswers := validBody("https://example.com")
	badAnswers["questionnaire_answers"] = map[string]int{"T1": 0}

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"malformed json", `{"website_url":`, "body"},
		{"localhost", validBody("http://localhost:8080"), "website_url"},
		{"private ip", validBody("http://192.168.1.10/admin"), "website_url"},
		{"ftp scheme", validBody("ftp://example.com/file"), "website_url"},
		{"too many keywords", tooMany, "target_keywords"},
		{"answer out of range", badAnswers, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &fakeGrader{}
			s := newTestServer(t, g, nil)

			w := do(t, s, http.MethodPost, "/seo/grader/submit", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			body := decodeError(t, w)
			assert.Equal(t, "VALIDATION_ERROR", body.ErrorCode)
			assert.NotEmpty(t, body.RequestID)
			if tt.field != "" {
				assert.Contains(t, body.Details, tt.field)
			}
			assert.Empty(t, g.calls)
		})
	}
}

func TestSubmitInternalFailure(t *testing.T) {
	g := &fakeGrader{err: errors.New("boom")}
	s := newTestServer(t, g, nil)

	w := do(t, s, http.MethodPost, "/seo/grader/submit", validBody("https://example.com"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	body := decodeError(t, w)
	assert.Equal(t, "INTERNAL_ERROR", body.ErrorCode)
	assert.Equal(t, MsgAnalyzeFailed, body.Message)
}

func TestSubmitRateLimited(t *testing.T) {
	settings := config.DefaultSettings()
	settings.SubmitLimitPerMin = 1
	s := New(settings, Deps{Grader: &fakeGrader{}})

	w := do(t, s, http.MethodPost, "/seo/grader/submit", validBody("https://example.com"))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodPost, "/seo/grader/submit", validBody("https://example.com"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decodeError(t, w).ErrorCode)
}

func TestReports(t *testing.T) {
	store := newMemoryStore()
	s := newTestServer(t, &fakeGrader{}, store)

	var ids []string
	for range 3 {
		w := do(t, s, http.MethodPost, "/seo/grader/submit", validBody("https://example.com"))
		require.Equal(t, http.StatusOK, w.Code)
		ids = append(ids, w.Header().Get("X-Request-ID"))
	}

	w := do(t, s, http.MethodGet, "/seo/grader/reports/"+ids[1], nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report database.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, ids[1], report.ID)
	require.NotNil(t, report.Response)
	assert.Equal(t, 65, report.Response.TotalScore)

	w = do(t, s, http.MethodGet, "/seo/grader/reports/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodGet, "/seo/grader/reports?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Reports []database.ReportSummary `json:"reports"`
		Count   int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Equal(t, 2, listing.Count)
	assert.Equal(t, ids[2], listing.Reports[0].ID)

	w = do(t, s, http.MethodGet, "/seo/grader/reports?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportsDisabledWithoutStore(t *testing.T) {
	s := newTestServer(t, &fakeGrader{}, nil)

	for _, path := range []string{"/seo/grader/reports/abc", "/seo/grader/reports"} {
		w := do(t, s, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestMiddleware(t *testing.T) {
	s := newTestServer(t, &fakeGrader{}, nil)

	t.Run("security headers and request id", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/seo/grader/health", nil)
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Len(t, w.Header().Get("X-Request-ID"), 36)
	})

	t.Run("caller request id is kept", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/seo/grader/health", nil)
		req.Header.Set("X-Request-ID", "trace-123")
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		assert.Equal(t, "trace-123", w.Header().Get("X-Request-ID"))
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/seo/grader/submit", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown route", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "HTTP_404", decodeError(t, w).ErrorCode)
	})

	t.Run("large responses are gzipped", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/seo/grader/questions", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

		zr, err := gzip.NewReader(w.Body)
		require.NoError(t, err)
		var body QuestionsResponse
		require.NoError(t, json.NewDecoder(zr).Decode(&body))
		assert.Len(t, body.Questions, 10)
	})

	t.Run("metrics", func(t *testing.T) {
		w := do(t, s, http.MethodGet, "/metrics", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "rate_limiter")
	})
}

func TestSwaggerDocs(t *testing.T) {
	s := newTestServer(t, &fakeGrader{}, nil)

	w := do(t, s, http.MethodGet, "/swagger/doc.json", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		BasePath string                    `json:"basePath"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "SEO Maturity Grader API", doc.Info.Title)
	assert.Equal(t, BasePath, doc.BasePath)
	for _, path := range []string{"/health", "/questions", "/submit", "/reports", "/reports/{id}"} {
		assert.Contains(t, doc.Paths, path)
	}
	assert.Contains(t, doc.Paths["/submit"], "post")
}
