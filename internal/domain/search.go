package domain

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// MaxRangeDays caps how wide a search window may be.
const MaxRangeDays = 365

type ProfileType string

const (
	ProfileEntity   ProfileType = "entity"
	ProfileSupplier ProfileType = "supplier"
)

type Status string

const (
	StatusStarted    Status = "started"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusNoResults  Status = "no_results"
	StatusError      Status = "error"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusNoResults || s == StatusError
}

type Method string

const (
	MethodDatabase Method = "database"
	MethodAPI      Method = "api"
)

// Source is one legacy contracting system as snapshotted at job creation.
type Source struct {
	Name   string `json:"name"`
	Method Method `json:"method"`
}

// SearchJob is one user query fanned out across all active sources.
// Exactly one runner goroutine owns a job for its whole lifetime; after a
// terminal status nothing but the retention sweep touches it.
type SearchJob struct {
	SearchID         string              `json:"search_id"`
	Profile          ProfileType         `json:"profile_type"`
	DateFrom         time.Time           `json:"date_from"`
	DateTo           time.Time           `json:"date_to"`
	DocumentNumber   string              `json:"document_number"` // digits only
	ActiveSources    []Source            `json:"active_sources"`
	Status           Status              `json:"status"`
	ProgressPercent  int                 `json:"progress_percent"`
	CurrentSource    string              `json:"current_source"`
	CompletedSources []string            `json:"completed_sources"`
	TotalRecords     int                 `json:"total_records"`
	Results          map[string][]Record `json:"results"`
	ErrorMessage     string              `json:"error_message,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// SourceNames returns the active source names in job order.
func (j *SearchJob) SourceNames() []string {
	out := make([]string, 0, len(j.ActiveSources))
	for _, s := range j.ActiveSources {
		out = append(out, s.Name)
	}
	return out
}

// ProgressView is the poll contract: safe to serve repeatedly, never exposes
// raw technical errors.
type ProgressView struct {
	SearchID         string   `json:"search_id"`
	Status           Status   `json:"status"`
	ProgressPercent  int      `json:"progress_percent"`
	CurrentSource    string   `json:"current_source"`
	ActiveSources    []string `json:"active_sources"`
	CompletedSources []string `json:"completed_sources"`
	TotalRecords     int      `json:"total_records"`
	ErrorMessage     string   `json:"error_message,omitempty"`
}

type ResultView struct {
	SearchID     string              `json:"search_id"`
	HasResults   bool                `json:"has_results"`
	Results      map[string][]Record `json:"results"`
	TotalRecords int                 `json:"total_records"`
}

// SearchRequest is the wire shape of StartSearch before validation.
type SearchRequest struct {
	ProfileType    string `json:"profile_type"`
	DateFrom       string `json:"date_from"`
	DateTo         string `json:"date_to"`
	DocumentNumber string `json:"document_number"`
}

// SearchParams is a validated request.
type SearchParams struct {
	Profile        ProfileType
	DateFrom       time.Time
	DateTo         time.Time
	DocumentNumber string // normalized, digits only
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks a request synchronously, before any job exists. now is
// injected so tests can pin the "not in the future" rule.
func (r SearchRequest) Validate(now time.Time) (SearchParams, error) {
	var p SearchParams

	switch ProfileType(r.ProfileType) {
	case ProfileEntity, ProfileSupplier:
		p.Profile = ProfileType(r.ProfileType)
	case "":
		return p, &ValidationError{Field: "profile_type", Reason: "required"}
	default:
		return p, &ValidationError{Field: "profile_type", Reason: "must be entity or supplier"}
	}

	if r.DateFrom == "" {
		return p, &ValidationError{Field: "date_from", Reason: "required"}
	}
	if r.DateTo == "" {
		return p, &ValidationError{Field: "date_to", Reason: "required"}
	}
	from, err := time.Parse(DateLayout, r.DateFrom)
	if err != nil {
		return p, &ValidationError{Field: "date_from", Reason: "must be YYYY-MM-DD"}
	}
	to, err := time.Parse(DateLayout, r.DateTo)
	if err != nil {
		return p, &ValidationError{Field: "date_to", Reason: "must be YYYY-MM-DD"}
	}
	if from.After(to) {
		return p, &ValidationError{Field: "date_from", Reason: "must not be after date_to"}
	}
	today, _ := time.Parse(DateLayout, now.UTC().Format(DateLayout))
	if to.After(today) {
		return p, &ValidationError{Field: "date_to", Reason: "must not be in the future"}
	}
	if to.Sub(from) > MaxRangeDays*24*time.Hour {
		return p, &ValidationError{Field: "date_to", Reason: fmt.Sprintf("range must not exceed %d days", MaxRangeDays)}
	}
	p.DateFrom = from
	p.DateTo = to

	doc := NormalizeDocument(r.DocumentNumber)
	if doc == "" {
		return p, &ValidationError{Field: "document_number", Reason: "must contain at least one digit"}
	}
	p.DocumentNumber = doc

	return p, nil
}

// NormalizeDocument strips everything but digits, so "900.123.456" and
// "900123456" filter identically.
func NormalizeDocument(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
