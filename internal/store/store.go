// Package store persists an audit trail of elicitation attempts to Postgres.
// It is the durable half of the diagnostic channel — every attempt is also
// logged via slog, but operators debugging model behaviour want the raw
// output and the validated record side by side, queryable after the fact.
//
// The store is optional: when DATABASE_URL is unset the server holds a nil
// *Store, and every method is a no-op. Nothing else in the system depends on
// a row being written.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// Status classifies how an elicitation attempt ended. Values match the
// elicitation error kinds plus "ok".
type Status string

const (
	StatusOK                 Status = "ok"
	StatusServiceFailure     Status = "service_failure"
	StatusInvalidFormat      Status = "invalid_format"
	StatusIncompleteResponse Status = "incomplete_response"
)

// Elicitation is one audit row. RawResponse holds the fence-stripped model
// text (possibly non-JSON — it's a text column); Record holds the validated
// probability record JSON when the attempt succeeded.
type Elicitation struct {
	ID           uuid.UUID
	Op           string // "elicit" or "derive_tree"
	Mode         string // "aggressive" / "conservative"; empty for derive_tree
	CaseCount    int
	Model        string
	Status       Status
	RawResponse  sql.NullString
	Record       pqtype.NullRawMessage
	ErrorMessage sql.NullString
	DurationMs   int64
	CreatedAt    time.Time
}

// Store holds the connection pool. A nil *Store is valid and records nothing.
type Store struct {
	pool *sql.DB
}

// New creates a Store from a live connection pool. The pool must already be
// open and verified (via PingContext) before calling New.
func New(pool *sql.DB) *Store {
	return &Store{pool: pool}
}

// RecordElicitation inserts one audit row. Failures here must never fail the
// request that produced them — callers log the returned error and move on.
func (s *Store) RecordElicitation(ctx context.Context, e Elicitation) error {
	if s == nil {
		return nil
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	_, err := s.pool.ExecContext(ctx, `
		INSERT INTO elicitations
			(id, op, mode, case_count, model, status, raw_response, record, error_message, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.Op, e.Mode, e.CaseCount, e.Model, string(e.Status),
		e.RawResponse, e.Record, e.ErrorMessage, e.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("store: record elicitation: %w", err)
	}
	return nil
}

// RecentElicitations returns up to limit audit rows, newest first. A nil
// store returns an empty slice.
func (s *Store) RecentElicitations(ctx context.Context, limit int) ([]Elicitation, error) {
	if s == nil {
		return nil, nil
	}
	if limit < 1 {
		limit = 20
	}

	rows, err := s.pool.QueryContext(ctx, `
		SELECT id, op, mode, case_count, model, status, raw_response, record, error_message, duration_ms, created_at
		FROM elicitations
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent elicitations: %w", err)
	}
	defer rows.Close()

	var out []Elicitation
	for rows.Next() {
		var e Elicitation
		var status string
		if err := rows.Scan(
			&e.ID, &e.Op, &e.Mode, &e.CaseCount, &e.Model, &status,
			&e.RawResponse, &e.Record, &e.ErrorMessage, &e.DurationMs, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan elicitation row: %w", err)
		}
		e.Status = Status(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate elicitation rows: %w", err)
	}
	return out, nil
}
