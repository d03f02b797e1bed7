package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/orderbookcore/internal/audit"
)

// Store implements audit.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Log appends an audit entry, storing detail as JSONB.
func (s *Store) Log(ctx context.Context, event string, detail map[string]any) error {
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("postgres: marshal audit detail: %w", err)
	}

	const query = `INSERT INTO audit_log (event, detail) VALUES ($1, $2)`
	if _, err := s.pool.Exec(ctx, query, event, detailJSON); err != nil {
		return fmt.Errorf("postgres: log audit event %s: %w", event, err)
	}
	return nil
}

// List returns audit entries with pagination and optional time filtering.
// Filter clauses are collected into a slice and joined once, with values
// bound through pgx.NamedArgs rather than a hand-tracked positional
// argument index — adding or reordering a filter never shifts a $N the
// others depend on.
func (s *Store) List(ctx context.Context, opts audit.ListOpts) ([]audit.Entry, error) {
	var clauses []string
	args := pgx.NamedArgs{}

	if opts.Since != nil {
		clauses = append(clauses, "created_at >= @since")
		args["since"] = *opts.Since
	}
	if opts.Until != nil {
		clauses = append(clauses, "created_at <= @until")
		args["until"] = *opts.Until
	}

	var query strings.Builder
	query.WriteString("SELECT id, event, detail, created_at FROM audit_log")
	if len(clauses) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(clauses, " AND "))
	}
	query.WriteString(" ORDER BY created_at DESC")

	if opts.Limit > 0 {
		query.WriteString(" LIMIT @limit")
		args["limit"] = opts.Limit
	}
	if opts.Offset > 0 {
		query.WriteString(" OFFSET @offset")
		args["offset"] = opts.Offset
	}

	rows, err := s.pool.Query(ctx, query.String(), args)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]audit.Entry, 0)
	var id int64
	var event string
	var detailJSON []byte
	var createdAt time.Time

	_, err = pgx.ForEachRow(rows, []any{&id, &event, &detailJSON, &createdAt}, func() error {
		entry := audit.Entry{ID: id, Event: event, CreatedAt: createdAt}
		if detailJSON != nil {
			if err := json.Unmarshal(detailJSON, &entry.Detail); err != nil {
				return fmt.Errorf("postgres: unmarshal audit detail: %w", err)
			}
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit entries rows: %w", err)
	}
	return entries, nil
}

var _ audit.Store = (*Store)(nil)
