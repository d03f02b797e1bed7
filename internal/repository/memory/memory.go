// Package memory implements the repository port with an in-process slice
// and map, for tests and for small deployments that don't need durability.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/alanyoungcy/orderbookcore/internal/domain"
)

// Repository is the trivial reference implementation of
// repository.Repository: a slice of events for the append log and a map of
// snapshots keyed by asset.
type Repository struct {
	mu        sync.Mutex
	events    []domain.Event
	snapshots map[domain.MarketAsset]domain.OrderBook
}

// New creates an empty in-memory Repository.
func New() *Repository {
	return &Repository{
		snapshots: make(map[domain.MarketAsset]domain.OrderBook),
	}
}

// Append appends event to the in-process log.
func (r *Repository) Append(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// EventsSince returns all events for asset with sequence strictly greater
// than sequence, sorted ascending by sequence number.
func (r *Repository) EventsSince(_ context.Context, asset domain.MarketAsset, sequence uint64) ([]domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Event
	for _, e := range r.events {
		h := e.Header()
		if h.Asset != asset {
			continue
		}
		if h.SequenceNumber <= sequence {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Header().SequenceNumber < out[j].Header().SequenceNumber
	})
	return out, nil
}

// StoreSnapshot overwrites the latest snapshot for book's asset.
func (r *Repository) StoreSnapshot(_ context.Context, book domain.OrderBook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[book.Asset()] = book
	return nil
}

// LatestSnapshot returns the stored snapshot for asset, if any.
func (r *Repository) LatestSnapshot(_ context.Context, asset domain.MarketAsset) (domain.OrderBook, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	book, ok := r.snapshots[asset]
	return book, ok, nil
}

// Close is a no-op: every Append above is already durable in-process, so
// there is nothing buffered to flush.
func (r *Repository) Close(_ context.Context) error {
	return nil
}
