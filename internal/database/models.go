package database

import (
	"time"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
	"github.com/google/uuid"
)

// Report is a stored grading result.
type Report struct {
	ID              string                `json:"id" db:"id"`
	ClientRequestID string                `json:"client_request_id,omitempty" db:"client_request_id"`
	WebsiteURL      string                `json:"website_url" db:"website_url"`
	TotalScore      int                   `json:"total_score" db:"total_score"`
	Stage           string                `json:"stage" db:"stage"`
	Response        *types.GraderResponse `json:"response" db:"payload"`
	CreatedAt       time.Time             `json:"created_at" db:"created_at"`
}

// ReportSummary is a Report without its payload, used for listings.
type ReportSummary struct {
	ID         string    `json:"id"`
	WebsiteURL string    `json:"website_url"`
	TotalScore int       `json:"total_score"`
	Stage      string    `json:"stage"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewReport wraps resp for storage. The report shares the response's
// request ID so clients can fetch it later; a new ID is generated otherwise.
func NewReport(websiteURL, clientRequestID string, resp *types.GraderResponse) *Report {
	id := resp.RequestID
	if id == "" {
		id = uuid.New().String()
	}
	return &Report{
		ID:              id,
		ClientRequestID: clientRequestID,
		WebsiteURL:      websiteURL,
		TotalScore:      resp.TotalScore,
		Stage:           resp.Stage,
		Response:        resp,
		CreatedAt:       time.Now().UTC(),
	}
}
