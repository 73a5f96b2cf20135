package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
)

const (
	stmtInsertReport  = "insert_report"
	stmtGetReport     = "get_report"
	stmtRecentReports = "recent_reports"
)

// MaxRecentReports caps RecentReports.
const MaxRecentReports = 100

// ErrReportNotFound is returned by GetReport for unknown IDs.
var ErrReportNotFound = errors.New("report not found")

// Repository handles report persistence.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveReport stores r.
func (r *Repository) SaveReport(ctx context.Context, report *Report) error {
	payload, err := json.Marshal(report.Response)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	stmt, err := r.db.GetPreparedStatement(stmtInsertReport)
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		report.ID, report.ClientRequestID, report.WebsiteURL,
		report.TotalScore, report.Stage, string(payload), report.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport loads the report with the given ID.
func (r *Repository) GetReport(ctx context.Context, id string) (*Report, error) {
	stmt, err := r.db.GetPreparedStatement(stmtGetReport)
	if err != nil {
		return nil, err
	}

	var (
		report   Report
		clientID sql.NullString
		payload  string
	)
	err = stmt.QueryRowContext(ctx, id).Scan(
		&report.ID, &clientID, &report.WebsiteURL,
		&report.TotalScore, &report.Stage, &payload, &report.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}

	report.ClientRequestID = clientID.String
	report.Response = &types.GraderResponse{}
	if err := json.Unmarshal([]byte(payload), report.Response); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", id, err)
	}
	return &report, nil
}

// RecentReports lists the newest reports first. limit is clamped to
// 1..MaxRecentReports.
func (r *Repository) RecentReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	limit = max(1, min(limit, MaxRecentReports))

	stmt, err := r.db.GetPreparedStatement(stmtRecentReports)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	out := make([]ReportSummary, 0, limit)
	for rows.Next() {
		var s ReportSummary
		if err := rows.Scan(&s.ID, &s.WebsiteURL, &s.TotalScore, &s.Stage, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
