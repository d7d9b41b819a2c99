package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/commentpulse/pkg/pulse/internalerr"
	"github.com/cognicore/commentpulse/pkg/pulse/store"
)

// timeLayout is fixed-width so created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// sqliteStore implements store.ReportStore using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.ReportStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL lets history reads run while a report is being written
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	total INTEGER NOT NULL,
	result_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at DESC);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveReport inserts or replaces a report
func (s *sqliteStore) SaveReport(ctx context.Context, r store.Report) error {
	if r.ID == "" {
		return fmt.Errorf("save report: empty id")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO reports(id, created_at, total, result_json)
VALUES(?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	created_at=excluded.created_at,
	total=excluded.total,
	result_json=excluded.result_json;
`, r.ID, r.CreatedAt.UTC().Format(timeLayout), r.Total, string(r.ResultJSON))
	if err != nil {
		return fmt.Errorf("save report %s: %w", r.ID, err)
	}
	return nil
}

// GetReport retrieves one report by ID
func (s *sqliteStore) GetReport(ctx context.Context, id string) (store.Report, error) {
	var r store.Report
	var created, payload string
	err := s.db.QueryRowContext(ctx, `
SELECT id, created_at, total, result_json FROM reports WHERE id = ?;
`, id).Scan(&r.ID, &created, &r.Total, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Report{}, fmt.Errorf("report %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Report{}, err
	}
	if r.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return store.Report{}, fmt.Errorf("report %s: bad created_at: %w", id, err)
	}
	r.ResultJSON = []byte(payload)
	return r, nil
}

// ListReports returns report summaries, newest first
func (s *sqliteStore) ListReports(ctx context.Context, limit int) ([]store.ReportSummary, error) {
	if limit <= 0 {
		limit = store.DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, created_at, total
FROM reports
ORDER BY created_at DESC, id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []store.ReportSummary{}
	for rows.Next() {
		var r store.ReportSummary
		var created string
		if err := rows.Scan(&r.ID, &created, &r.Total); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
