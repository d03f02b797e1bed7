// Package audit defines the optional durable audit trail port. An audit
// store is never authoritative for order book state — it supplements
// structured logging with a queryable record of ingestion milestones
// (snapshots stored, shutdowns). Grounded on the teacher's
// internal/store/postgres/audit_store.go, generalized from arbitrage/trade
// auditing to order book lifecycle auditing.
package audit

import (
	"context"
	"time"
)

// Entry is one recorded audit event.
type Entry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// ListOpts filters and paginates Store.List.
type ListOpts struct {
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}

// Store is the audit trail port. Implementations must treat write failures
// as non-fatal to the caller's primary operation; callers log and continue.
type Store interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]Entry, error)
}
