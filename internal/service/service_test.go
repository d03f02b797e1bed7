package service

import (
	"context"
	"testing"

	"github.com/alanyoungcy/orderbookcore/internal/domain"
	"github.com/alanyoungcy/orderbookcore/internal/feed"
	"github.com/alanyoungcy/orderbookcore/internal/repository/memory"
	"github.com/alanyoungcy/orderbookcore/internal/storage/columnar"
	"github.com/alanyoungcy/orderbookcore/internal/storage/fs/localfs"
)

type fakeFeed struct {
	onEvent      feed.OnEvent
	subscribed   []string
	subscribeErr error
}

func (f *fakeFeed) SetOnEvent(cb feed.OnEvent) { f.onEvent = cb }
func (f *fakeFeed) Subscribe(tokenID string) error {
	f.subscribed = append(f.subscribed, tokenID)
	return f.subscribeErr
}
func (f *fakeFeed) Start() error { return nil }
func (f *fakeFeed) Stop() error  { return nil }

func (f *fakeFeed) deliver(e domain.Event) {
	f.onEvent(e)
}

func testAsset(t *testing.T) domain.MarketAsset {
	t.Helper()
	a, err := domain.NewMarketAsset("cond-1", "tok-1")
	if err != nil {
		t.Fatalf("NewMarketAsset: %v", err)
	}
	return a
}

func snapshotEvent(t *testing.T, asset domain.MarketAsset) domain.Event {
	t.Helper()
	price, err := domain.NewPrice(0.4)
	if err != nil {
		t.Fatalf("NewPrice: %v", err)
	}
	size, err := domain.NewQuantity(10)
	if err != nil {
		t.Fatalf("NewQuantity: %v", err)
	}
	ts, err := domain.NewTimestamp(1700000000000)
	if err != nil {
		t.Fatalf("NewTimestamp: %v", err)
	}
	return domain.BookSnapshot{
		Head: domain.Header{Asset: asset, Timestamp: ts},
		Bids: []domain.PriceLevel{domain.NewPriceLevel(price, size)},
		Asks: []domain.PriceLevel{domain.NewPriceLevel(price, size)},
		Hash: "h",
	}
}

func TestService_OnEvent_AssignsSequenceAndUpdatesProjection(t *testing.T) {
	f := &fakeFeed{}
	svc := New(memory.New(), f, WithSnapshotInterval(0))
	asset := testAsset(t)

	f.deliver(snapshotEvent(t, asset))
	f.deliver(snapshotEvent(t, asset))

	book, err := svc.GetCurrentBook(asset)
	if err != nil {
		t.Fatalf("GetCurrentBook: %v", err)
	}
	if book.LastSequenceNumber() != 2 {
		t.Errorf("sequence = %d, want 2", book.LastSequenceNumber())
	}
	if svc.EventCount() != 2 {
		t.Errorf("event count = %d", svc.EventCount())
	}
	if svc.BookCount() != 1 {
		t.Errorf("book count = %d", svc.BookCount())
	}
}

func TestService_GetCurrentBook_UnknownAssetReturnsErrLookup(t *testing.T) {
	f := &fakeFeed{}
	svc := New(memory.New(), f)
	asset := testAsset(t)

	if _, err := svc.GetCurrentBook(asset); err == nil {
		t.Fatal("expected error for unknown asset")
	}
}

func TestService_SnapshotInterval_StoresSnapshotOnMultiple(t *testing.T) {
	repo := memory.New()
	f := &fakeFeed{}
	_ = New(repo, f, WithSnapshotInterval(2))
	asset := testAsset(t)

	f.deliver(snapshotEvent(t, asset))
	if _, ok, _ := repo.LatestSnapshot(context.Background(), asset); ok {
		t.Fatal("snapshot stored before interval reached")
	}

	f.deliver(snapshotEvent(t, asset))
	_, ok, err := repo.LatestSnapshot(context.Background(), asset)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if !ok {
		t.Fatal("expected snapshot stored at sequence 2")
	}
}

func TestService_Subscribe_ConcurrentCallsForSameTokenSucceed(t *testing.T) {
	f := &fakeFeed{}
	svc := New(memory.New(), f)

	var firstErr, secondErr error
	done := make(chan struct{}, 2)
	go func() { firstErr = svc.Subscribe("tok-1"); done <- struct{}{} }()
	go func() { secondErr = svc.Subscribe("tok-1"); done <- struct{}{} }()
	<-done
	<-done

	if firstErr != nil || secondErr != nil {
		t.Fatalf("unexpected errors: %v, %v", firstErr, secondErr)
	}
}

type auditSpy struct {
	events []string
}

func (a *auditSpy) Log(_ context.Context, event string, _ map[string]any) error {
	a.events = append(a.events, event)
	return nil
}

func TestService_Stop_LogsAuditEntry(t *testing.T) {
	f := &fakeFeed{}
	spy := &auditSpy{}
	svc := New(memory.New(), f, WithAuditLogger(spy))

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(spy.events) != 1 || spy.events[0] != "service_stopped" {
		t.Fatalf("expected service_stopped audit entry, got %v", spy.events)
	}
}

type closeSpyRepo struct {
	*memory.Repository
	closed int
}

func (r *closeSpyRepo) Close(ctx context.Context) error {
	r.closed++
	return r.Repository.Close(ctx)
}

func TestService_Stop_ClosesRepository(t *testing.T) {
	f := &fakeFeed{}
	repo := &closeSpyRepo{Repository: memory.New()}
	svc := New(repo, f)

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if repo.closed != 1 {
		t.Fatalf("expected repository Close to be called once, got %d", repo.closed)
	}
}

// TestService_Stop_FlushesBufferedEventsToDurableStorage exercises the
// full shutdown path (spec: "Shutdown is cooperative: the feed stops
// delivering events, then the repository destructor flushes outstanding
// buffers synchronously") against the real columnar repository, whose
// write-buffer threshold is deliberately set far above the number of
// events delivered here. Without Stop calling repo.Close, none of these
// events would ever reach disk.
func TestService_Stop_FlushesBufferedEventsToDurableStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	asset := testAsset(t)

	lfs, err := localfs.New(dir)
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	repo := columnar.New(lfs, 500, nil)

	f := &fakeFeed{}
	svc := New(repo, f, WithSnapshotInterval(0))

	f.deliver(snapshotEvent(t, asset))
	f.deliver(snapshotEvent(t, asset))

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	lfs2, err := localfs.New(dir)
	if err != nil {
		t.Fatalf("localfs.New (reopen): %v", err)
	}
	reopened := columnar.New(lfs2, 500, nil)

	events, err := reopened.EventsSince(ctx, asset, 0)
	if err != nil {
		t.Fatalf("EventsSince: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected both buffered events to be durably flushed on Stop, got %d", len(events))
	}
}
