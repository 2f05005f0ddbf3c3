package store

import (
	"context"
	"fmt"
	"time"
)

// LogEntry is one terminal search outcome, kept for auditing long after the
// job snapshot itself has been purged.
type LogEntry struct {
	ID             int64  `json:"id"`
	SearchID       string `json:"search_id"`
	ProfileType    string `json:"profile_type"`
	DateFrom       string `json:"date_from"`
	DateTo         string `json:"date_to"`
	DocumentNumber string `json:"document_number"`
	Status         string `json:"status"`
	TotalRecords   int    `json:"total_records"`
	DurationMs     int64  `json:"duration_ms"`
	FinishedAt     string `json:"finished_at"`
}

func (d *DB) AppendSearchLog(ctx context.Context, e LogEntry) error {
	if e.FinishedAt == "" {
		e.FinishedAt = time.Now().UTC().Format(timeLayout)
	}
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO search_log (search_id, profile_type, date_from, date_to, document_number,
  status, total_records, duration_ms, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		e.SearchID, e.ProfileType, e.DateFrom, e.DateTo, e.DocumentNumber,
		e.Status, e.TotalRecords, e.DurationMs, e.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("append search log: %w", err)
	}
	return nil
}

func (d *DB) ListSearchLog(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, search_id, profile_type, date_from, date_to, document_number,
  status, total_records, duration_ms, finished_at
FROM search_log
ORDER BY finished_at DESC, id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("list search log: %w", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.SearchID, &e.ProfileType, &e.DateFrom, &e.DateTo,
			&e.DocumentNumber, &e.Status, &e.TotalRecords, &e.DurationMs, &e.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *DB) PurgeSearchLogOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age).Format(timeLayout)
	res, err := d.Pool.ExecContext(ctx, `DELETE FROM search_log WHERE finished_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge search log: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
