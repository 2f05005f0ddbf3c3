package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"contractsearch-engine/internal/domain"
)

var (
	ErrDuplicateID = errors.New("search id already exists")
	ErrNotFound    = errors.New("search not found")
)

const timeLayout = time.RFC3339

// CreateSearch inserts a new job row. The generation scheme makes duplicate
// ids practically impossible, but the constraint is still surfaced.
func (d *DB) CreateSearch(ctx context.Context, job *domain.SearchJob) error {
	activeJSON, err := json.Marshal(job.ActiveSources)
	if err != nil {
		return fmt.Errorf("marshal active_sources: %w", err)
	}
	completedJSON, err := json.Marshal(emptyIfNil(job.CompletedSources))
	if err != nil {
		return fmt.Errorf("marshal completed_sources: %w", err)
	}
	resultsJSON, err := marshalResults(job.Results)
	if err != nil {
		return err
	}

	_, err = d.Pool.ExecContext(ctx, `
INSERT INTO searches (search_id, profile_type, date_from, date_to, document_number,
  active_sources, status, progress_percent, current_source, completed_sources,
  total_records, results, error_message, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		job.SearchID,
		string(job.Profile),
		job.DateFrom.Format(domain.DateLayout),
		job.DateTo.Format(domain.DateLayout),
		job.DocumentNumber,
		string(activeJSON),
		string(job.Status),
		job.ProgressPercent,
		job.CurrentSource,
		string(completedJSON),
		job.TotalRecords,
		resultsJSON,
		job.ErrorMessage,
		job.CreatedAt.UTC().Format(timeLayout),
		job.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert search: %w", err)
	}
	return nil
}

// SearchUpdate is a partial update; nil fields are left untouched.
// updated_at is always bumped.
type SearchUpdate struct {
	Status           *domain.Status
	ProgressPercent  *int
	CurrentSource    *string
	CompletedSources []string
	TotalRecords     *int
	Results          map[string][]domain.Record
	ErrorMessage     *string
}

func (d *DB) UpdateSearch(ctx context.Context, searchID string, upd SearchUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Format(timeLayout)}

	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*upd.Status))
	}
	if upd.ProgressPercent != nil {
		sets = append(sets, "progress_percent = ?")
		args = append(args, *upd.ProgressPercent)
	}
	if upd.CurrentSource != nil {
		sets = append(sets, "current_source = ?")
		args = append(args, *upd.CurrentSource)
	}
	if upd.CompletedSources != nil {
		b, err := json.Marshal(upd.CompletedSources)
		if err != nil {
			return fmt.Errorf("marshal completed_sources: %w", err)
		}
		sets = append(sets, "completed_sources = ?")
		args = append(args, string(b))
	}
	if upd.TotalRecords != nil {
		sets = append(sets, "total_records = ?")
		args = append(args, *upd.TotalRecords)
	}
	if upd.Results != nil {
		b, err := marshalResults(upd.Results)
		if err != nil {
			return err
		}
		sets = append(sets, "results = ?")
		args = append(args, b)
	}
	if upd.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *upd.ErrorMessage)
	}

	args = append(args, searchID)
	res, err := d.Pool.ExecContext(ctx,
		`UPDATE searches SET `+strings.Join(sets, ", ")+` WHERE search_id = ?;`, args...)
	if err != nil {
		return fmt.Errorf("update search: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update search: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) GetSearch(ctx context.Context, searchID string) (*domain.SearchJob, error) {
	row := d.Pool.QueryRowContext(ctx, `
SELECT search_id, profile_type, date_from, date_to, document_number,
  active_sources, status, progress_percent, current_source, completed_sources,
  total_records, results, error_message, created_at, updated_at
FROM searches WHERE search_id = ?;`, searchID)

	var job domain.SearchJob
	var profile, dateFrom, dateTo, activeJSON, status, completedJSON, resultsJSON, createdAt, updatedAt string
	err := row.Scan(
		&job.SearchID, &profile, &dateFrom, &dateTo, &job.DocumentNumber,
		&activeJSON, &status, &job.ProgressPercent, &job.CurrentSource, &completedJSON,
		&job.TotalRecords, &resultsJSON, &job.ErrorMessage, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get search: %w", err)
	}

	job.Profile = domain.ProfileType(profile)
	job.Status = domain.Status(status)
	if job.DateFrom, err = time.Parse(domain.DateLayout, dateFrom); err != nil {
		return nil, fmt.Errorf("parse date_from: %w", err)
	}
	if job.DateTo, err = time.Parse(domain.DateLayout, dateTo); err != nil {
		return nil, fmt.Errorf("parse date_to: %w", err)
	}
	if err := json.Unmarshal([]byte(activeJSON), &job.ActiveSources); err != nil {
		return nil, fmt.Errorf("parse active_sources: %w", err)
	}
	if err := json.Unmarshal([]byte(completedJSON), &job.CompletedSources); err != nil {
		return nil, fmt.Errorf("parse completed_sources: %w", err)
	}
	if err := json.Unmarshal([]byte(resultsJSON), &job.Results); err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	if job.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &job, nil
}

// DeleteSearchesOlderThan removes job snapshots past their retention window.
func (d *DB) DeleteSearchesOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age).Format(timeLayout)
	res, err := d.Pool.ExecContext(ctx, `DELETE FROM searches WHERE created_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old searches: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func marshalResults(results map[string][]domain.Record) (string, error) {
	if results == nil {
		results = map[string][]domain.Record{}
	}
	b, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	return string(b), nil
}

func emptyIfNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
