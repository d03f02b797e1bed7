package columnar

import (
	"context"
	"testing"

	"github.com/alanyoungcy/orderbookcore/internal/domain"
	"github.com/alanyoungcy/orderbookcore/internal/storage/fs/localfs"
)

func mustAsset(t *testing.T) domain.MarketAsset {
	t.Helper()
	asset, err := domain.NewMarketAsset("cond-1", "token-aaaaaaaaaaaaaaaaaaaa")
	if err != nil {
		t.Fatalf("NewMarketAsset: %v", err)
	}
	return asset
}

func tradeEvent(t *testing.T, asset domain.MarketAsset, seq uint64) domain.TradeEvent {
	t.Helper()
	price, err := domain.NewPrice(0.5)
	if err != nil {
		t.Fatalf("NewPrice: %v", err)
	}
	size, err := domain.NewQuantity(10)
	if err != nil {
		t.Fatalf("NewQuantity: %v", err)
	}
	ts, err := domain.NewTimestamp(1_700_000_000_000 + int64(seq))
	if err != nil {
		t.Fatalf("NewTimestamp: %v", err)
	}
	return domain.TradeEvent{
		Head:  domain.Header{Asset: asset, Timestamp: ts, SequenceNumber: seq},
		Price: price,
		Size:  size,
		Side:  domain.SideBuy,
	}
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	lfs, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	return New(lfs, 3, nil)
}

// TestRepository_SkipScan writes two batches of three trades each (forcing
// a flush between them via writeBufferSize=3) and verifies that
// EventsSince(asset, 3) returns only the sequences from the second file.
func TestRepository_SkipScan(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	asset := mustAsset(t)

	for seq := uint64(1); seq <= 3; seq++ {
		if err := repo.Append(ctx, tradeEvent(t, asset, seq)); err != nil {
			t.Fatalf("Append(%d): %v", seq, err)
		}
	}
	for seq := uint64(4); seq <= 6; seq++ {
		if err := repo.Append(ctx, tradeEvent(t, asset, seq)); err != nil {
			t.Fatalf("Append(%d): %v", seq, err)
		}
	}

	events, err := repo.EventsSince(ctx, asset, 3)
	if err != nil {
		t.Fatalf("EventsSince: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, e := range events {
		want := uint64(4 + i)
		if got := e.Header().SequenceNumber; got != want {
			t.Errorf("event %d: sequence = %d, want %d", i, got, want)
		}
	}
}

// TestRepository_UnflushedBufferIncluded verifies that events still sitting
// in the in-memory buffer (not yet flushed to a file) are merged into
// EventsSince results.
func TestRepository_UnflushedBufferIncluded(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	asset := mustAsset(t)

	if err := repo.Append(ctx, tradeEvent(t, asset, 1)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	events, err := repo.EventsSince(ctx, asset, 0)
	if err != nil {
		t.Fatalf("EventsSince: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 unflushed event, got %d", len(events))
	}
}

// TestRepository_SnapshotRoundTrip writes a snapshot and reads it back,
// verifying the book reconstructs with matching bids/asks/trade state.
func TestRepository_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	asset := mustAsset(t)

	book := domain.EmptyOrderBook(asset)
	bidPrice, _ := domain.NewPrice(0.4)
	bidSize, _ := domain.NewQuantity(100)
	book = book.Apply(domain.BookSnapshot{
		Head: domain.Header{Asset: asset, SequenceNumber: 5},
		Bids: []domain.PriceLevel{domain.NewPriceLevel(bidPrice, bidSize)},
		Asks: nil,
		Hash: "abc123",
	})

	if err := repo.StoreSnapshot(ctx, book); err != nil {
		t.Fatalf("StoreSnapshot: %v", err)
	}

	got, found, err := repo.LatestSnapshot(ctx, asset)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if !found {
		t.Fatal("expected snapshot to be found")
	}
	if got.LastSequenceNumber() != 5 {
		t.Errorf("sequence = %d, want 5", got.LastSequenceNumber())
	}
	if len(got.Bids()) != 1 || !got.Bids()[0].Price.Equal(bidPrice) {
		t.Errorf("bids mismatch: %+v", got.Bids())
	}
}

// TestRepository_SnapshotRoundTrip_TradeTimestampSurvivesLaterTickChange
// builds a book where a TradeEvent is applied, then a TickSizeChange with a
// later timestamp moves the book's overall timestamp forward, mirroring
// how the trade_timestamp_ms and timestamp_ms snapshot columns can
// legitimately diverge. The reconstructed trade must keep its own
// timestamp rather than picking up the book's post-tick timestamp.
func TestRepository_SnapshotRoundTrip_TradeTimestampSurvivesLaterTickChange(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	asset := mustAsset(t)

	tradePrice, _ := domain.NewPrice(0.41)
	tradeSize, _ := domain.NewQuantity(1)
	tradeTs, err := domain.NewTimestamp(1_700_000_000_000)
	if err != nil {
		t.Fatalf("NewTimestamp(trade): %v", err)
	}
	tickTs, err := domain.NewTimestamp(1_700_000_005_000)
	if err != nil {
		t.Fatalf("NewTimestamp(tick): %v", err)
	}

	book := domain.EmptyOrderBook(asset)
	book = book.Apply(domain.TradeEvent{
		Head:  domain.Header{Asset: asset, Timestamp: tradeTs, SequenceNumber: 6},
		Price: tradePrice,
		Size:  tradeSize,
		Side:  domain.SideBuy,
	})
	newTick, err := domain.NewPrice(0.02)
	if err != nil {
		t.Fatalf("NewPrice(tick): %v", err)
	}
	book = book.Apply(domain.TickSizeChange{
		Head:        domain.Header{Asset: asset, Timestamp: tickTs, SequenceNumber: 7},
		OldTickSize: domain.DefaultTickSize(),
		NewTickSize: newTick,
	})

	if err := repo.StoreSnapshot(ctx, book); err != nil {
		t.Fatalf("StoreSnapshot: %v", err)
	}

	got, found, err := repo.LatestSnapshot(ctx, asset)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if !found {
		t.Fatal("expected snapshot to be found")
	}

	if got.Timestamp().Milliseconds() != tickTs.Milliseconds() {
		t.Fatalf("book timestamp = %d, want the tick change's %d", got.Timestamp().Milliseconds(), tickTs.Milliseconds())
	}

	trade, ok := got.LatestTrade()
	if !ok {
		t.Fatal("expected trade to survive the round trip")
	}
	if trade.Head.Timestamp.Milliseconds() != tradeTs.Milliseconds() {
		t.Errorf("trade timestamp = %d, want its own %d (not the book's post-tick %d)",
			trade.Head.Timestamp.Milliseconds(), tradeTs.Milliseconds(), tickTs.Milliseconds())
	}
}

// TestRepository_MissingSnapshot verifies a never-written asset yields
// found=false, not an error.
func TestRepository_MissingSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	asset := mustAsset(t)

	_, found, err := repo.LatestSnapshot(ctx, asset)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if found {
		t.Fatal("expected found=false for missing snapshot")
	}
}

// TestRepository_Close_FlushesOutstandingBuffer verifies that Close writes
// out buffered-but-unflushed events unconditionally, even though the
// buffer is far below writeBufferSize and flushInterval has not elapsed.
// A fresh Repository instance pointed at the same root (with an empty,
// freshly-constructed in-memory buffer) must still see the event via
// EventsSince, proving it reached disk rather than just staying buffered.
func TestRepository_Close_FlushesOutstandingBuffer(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	asset := mustAsset(t)

	lfs, err := localfs.New(dir)
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	repo := New(lfs, 500, nil)

	if err := repo.Append(ctx, tradeEvent(t, asset, 1)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := repo.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lfs2, err := localfs.New(dir)
	if err != nil {
		t.Fatalf("localfs.New (reopen): %v", err)
	}
	reopened := New(lfs2, 500, nil)

	events, err := reopened.EventsSince(ctx, asset, 0)
	if err != nil {
		t.Fatalf("EventsSince: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected the buffered event to have been flushed to disk by Close, got %d events", len(events))
	}
	if events[0].Header().SequenceNumber != 1 {
		t.Errorf("sequence = %d, want 1", events[0].Header().SequenceNumber)
	}
}

func TestParseEventFilename(t *testing.T) {
	parsed, ok := parseEventFilename("book_snapshot_14_100_200.parquet")
	if !ok {
		t.Fatal("expected parse success")
	}
	if parsed.kind != eventTypeBookSnapshot || parsed.hour != 14 || parsed.seqStart != 100 || parsed.seqEnd != 200 {
		t.Errorf("unexpected parse result: %+v", parsed)
	}

	if _, ok := parseEventFilename("garbage.parquet"); ok {
		t.Error("expected parse failure for malformed filename")
	}
}
