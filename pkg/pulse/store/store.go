package store

import (
	"context"
	"time"
)

// ReportStore archives finished analytics reports. Stored reports are only
// read back by history endpoints, never by the analytics computation.
type ReportStore interface {
	Close() error

	SaveReport(ctx context.Context, r Report) error
	// GetReport returns internalerr.ErrNotFound for unknown IDs.
	GetReport(ctx context.Context, id string) (Report, error)
	// ListReports returns the newest reports first.
	ListReports(ctx context.Context, limit int) ([]ReportSummary, error)
}

// Report is one archived analytics result.
type Report struct {
	ID         string
	CreatedAt  time.Time
	Total      int
	ResultJSON []byte // encoded analytics.Result
}

// ReportSummary is a Report without its payload.
type ReportSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Total     int       `json:"total"`
}

// Summary drops the payload.
func (r Report) Summary() ReportSummary {
	return ReportSummary{ID: r.ID, CreatedAt: r.CreatedAt, Total: r.Total}
}

// DefaultListLimit applies when ListReports gets a non-positive limit.
const DefaultListLimit = 20
