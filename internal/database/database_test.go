package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db)
}

func sampleResponse(id string, total int) *types.GraderResponse {
	return &types.GraderResponse{
		TotalScore:         total,
		Stage:              "Structured",
		QuestionnaireScore: 32,
		ObservedScore:      total - 32,
		TopRisks:           []string{"a", "b", "c"},
		RawSignalsSummary:  types.RawSignalsSummary{LCPMs: types.Ptr(1800), TitlePresent: types.Ptr(true)},
		Notes:              "Core Web Vitals from PageSpeed Insights API.",
		GeneratedAt:        "2025-06-01T12:00:00Z",
		RequestID:          id,
	}
}

func TestNewDBCreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	db, err := NewDB(dir)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(filepath.Join(dir, FileName))
	assert.NoError(t, err)
	assert.Contains(t, db.GetPoolStats(), "open_connections")

	_, err = db.GetPreparedStatement("missing")
	assert.Error(t, err)
}

func TestSaveAndGetReport(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	resp := sampleResponse("req-123", 65)
	report := NewReport("https://example.com/", "client-1", resp)
	assert.Equal(t, "req-123", report.ID)
	require.NoError(t, repo.SaveReport(ctx, report))

	got, err := repo.GetReport(ctx, "req-123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", got.WebsiteURL)
	assert.Equal(t, "client-1", got.ClientRequestID)
	assert.Equal(t, 65, got.TotalScore)
	assert.Equal(t, "Structured", got.Stage)
	assert.Equal(t, resp, got.Response)
	assert.WithinDuration(t, report.CreatedAt, got.CreatedAt, time.Second)

	assert.Error(t, repo.SaveReport(ctx, report), "duplicate IDs are rejected")
}

func TestGetReportNotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetReport(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestNewReportGeneratesID(t *testing.T) {
	report := NewReport("https://example.com/", "", sampleResponse("", 40))
	assert.Len(t, report.ID, 36)
}

func TestRecentReports(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r := NewReport(fmt.Sprintf("https://site%d.com/", i), "", sampleResponse(fmt.Sprintf("id-%d", i), 50+i))
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.SaveReport(ctx, r))
	}

	tests := []struct {
		name    string
		limit   int
		wantIDs []string
	}{
		{"newest first", 3, []string{"id-4", "id-3", "id-2"}},
		{"limit clamped up", 0, []string{"id-4"}},
		{"more than stored", 50, []string{"id-4", "id-3", "id-2", "id-1", "id-0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.RecentReports(ctx, tt.limit)
			require.NoError(t, err)

			ids := make([]string, 0, len(got))
			for _, s := range got {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}
