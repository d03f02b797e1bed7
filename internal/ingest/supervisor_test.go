package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/orderbookcore/internal/domain"
)

type fakeSubscriber struct {
	mu          sync.Mutex
	subscribed  []string
	startCalled chan struct{}
	stopped     bool
	blockStart  chan struct{}
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{
		startCalled: make(chan struct{}),
		blockStart:  make(chan struct{}),
	}
}

func (f *fakeSubscriber) Subscribe(tokenID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, tokenID)
	return nil
}

func (f *fakeSubscriber) Start() error {
	close(f.startCalled)
	<-f.blockStart
	return nil
}

func (f *fakeSubscriber) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	close(f.blockStart)
	return nil
}

type fakePoller struct {
	assets []domain.MarketAsset
}

func (f *fakePoller) Poll(ctx context.Context) ([]domain.MarketAsset, error) {
	return f.assets, nil
}

func mustAsset(t *testing.T, conditionID, tokenID string) domain.MarketAsset {
	t.Helper()
	a, err := domain.NewMarketAsset(conditionID, tokenID)
	if err != nil {
		t.Fatalf("NewMarketAsset: %v", err)
	}
	return a
}

func TestSupervisor_SubscribesDiscoveredAssetsAndShutsDownCleanly(t *testing.T) {
	sub := newFakeSubscriber()
	poller := &fakePoller{assets: []domain.MarketAsset{
		mustAsset(t, "cond-1", "tok-1"),
		mustAsset(t, "cond-2", "tok-2"),
	}}

	sup := New(sub, poller, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	select {
	case <-sub.startCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("Start was never called")
	}

	// give the discovery loop time to run its initial poll
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on clean shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.stopped {
		t.Error("expected Stop to be called")
	}
	if len(sub.subscribed) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d: %v", len(sub.subscribed), sub.subscribed)
	}
}

func TestSupervisor_NoPollerRunsFeedOnly(t *testing.T) {
	sub := newFakeSubscriber()
	sup := New(sub, nil, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	select {
	case <-sub.startCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("Start was never called")
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
