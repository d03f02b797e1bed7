// Package repository defines the storage port consumed by the order book
// service: durable event append/read and per-asset snapshot storage. See
// internal/repository/memory for the trivial reference implementation and
// internal/storage/columnar for the partitioned Parquet implementation.
package repository

import (
	"context"

	"github.com/alanyoungcy/orderbookcore/internal/domain"
)

// Repository is the storage port the order book service depends on.
//
// Append records the event; an implementation may hold it in a buffer and
// write it to durable storage on a later flush or on Close. EventsSince must
// return all events for asset strictly newer than sequence, sorted
// ascending by sequence number, merging any buffered-but-unflushed events
// with durable ones. StoreSnapshot overwrites the single latest snapshot
// for the book's asset. LatestSnapshot returns ok=false if no snapshot was
// ever stored for asset. Close flushes any buffered-but-unwritten events
// synchronously and releases underlying resources; it must be called
// exactly once, after the feed has stopped delivering events.
type Repository interface {
	Append(ctx context.Context, event domain.Event) error
	EventsSince(ctx context.Context, asset domain.MarketAsset, sequence uint64) ([]domain.Event, error)
	StoreSnapshot(ctx context.Context, book domain.OrderBook) error
	LatestSnapshot(ctx context.Context, asset domain.MarketAsset) (domain.OrderBook, bool, error)
	Close(ctx context.Context) error
}
