// Package service implements the single owner of per-asset order book
// projections: it assigns a monotonic global sequence number to every
// inbound event, persists it, folds it into the projection, and decides
// when to checkpoint.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/alanyoungcy/orderbookcore/internal/domain"
	"github.com/alanyoungcy/orderbookcore/internal/feed"
	"github.com/alanyoungcy/orderbookcore/internal/repository"
)

// DefaultSnapshotInterval matches the C++ original's default of 1000.
const DefaultSnapshotInterval = 1000

// ProjectionCache is an optional read-through mirror of the projection map,
// used to fan out queries to other processes. A nil cache is a no-op; the
// projection map remains the single source of truth either way.
type ProjectionCache interface {
	Set(ctx context.Context, book domain.OrderBook)
}

// AuditLogger is an optional durable audit trail hook. A nil logger is a
// no-op; a failing write is logged and swallowed, never propagated into
// the ingestion path (spec §7 shutdown-error semantics apply to audit
// writes the same way they apply to repository writes).
type AuditLogger interface {
	Log(ctx context.Context, event string, detail map[string]any) error
}

// Service is the OrderBookService: it owns the projection map, the
// repository, and the feed it is wired to.
//
// Scheduling model: the feed drives OnEvent from a single logical thread,
// per spec §5. The mutex below exists to make concurrent *queries* from a
// thread other than the ingestion thread safe (spec §5 explicitly allows
// this for the columnar repository and leaves it to callers for the
// projection map) — it does not change the single-writer ordering
// guarantee, which already follows from the feed's own callback contract.
type Service struct {
	repo             repository.Repository
	feed             feed.Feed
	snapshotInterval uint64
	cache            ProjectionCache
	audit            AuditLogger
	logger           *slog.Logger

	mu                 sync.RWMutex
	books              map[domain.MarketAsset]domain.OrderBook
	nextSequenceNumber uint64

	subscribeGroup singleflight.Group
}

// Option configures a Service at construction time.
type Option func(*Service)

// WithSnapshotInterval overrides DefaultSnapshotInterval. 0 disables
// snapshotting entirely.
func WithSnapshotInterval(n uint64) Option {
	return func(s *Service) { s.snapshotInterval = n }
}

// WithProjectionCache installs an optional read-through cache.
func WithProjectionCache(c ProjectionCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithLogger installs a *slog.Logger; defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithAuditLogger installs an optional durable audit trail.
func WithAuditLogger(a AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

// New constructs a Service bound to repo and f, and installs its ingestion
// callback on f. The feed thereafter drives the service by invoking the
// callback for every parsed event.
func New(repo repository.Repository, f feed.Feed, opts ...Option) *Service {
	s := &Service{
		repo:             repo,
		feed:             f,
		snapshotInterval: DefaultSnapshotInterval,
		books:            make(map[domain.MarketAsset]domain.OrderBook),
		nextSequenceNumber: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With(slog.String("component", "order_book_service"))

	f.SetOnEvent(s.OnEvent)
	return s
}

// Subscribe delegates to the underlying feed. Concurrent Subscribe calls
// for the same tokenID (e.g. overlapping reconnect/retry attempts from
// discovery and a caller-initiated resubscribe) collapse onto a single
// underlying feed.Subscribe call via singleflight, so a flaky feed never
// sees duplicate subscribe traffic for one token.
func (s *Service) Subscribe(tokenID string) error {
	_, err, _ := s.subscribeGroup.Do(tokenID, func() (any, error) {
		return nil, s.feed.Subscribe(tokenID)
	})
	return err
}

// Start delegates to the underlying feed.
func (s *Service) Start() error {
	return s.feed.Start()
}

// Stop ends feed delivery, then flushes the repository's outstanding
// buffers synchronously before recording a best-effort shutdown audit
// entry. This ordering matters: the feed must stop calling OnEvent before
// Close runs, or the flush could race a concurrent Append.
func (s *Service) Stop() error {
	stopErr := s.feed.Stop()
	closeErr := s.repo.Close(context.Background())
	if closeErr != nil {
		s.logger.Error("repository close failed", slog.String("error", closeErr.Error()))
	}

	s.logAudit(context.Background(), "service_stopped", map[string]any{
		"event_count": s.EventCount(),
		"book_count":  s.BookCount(),
	})
	return errors.Join(stopErr, closeErr)
}

func (s *Service) logAudit(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.Warn("audit log failed", slog.String("event", event), slog.String("error", err.Error()))
	}
}

// OnEvent is the feed's installed callback. It assigns the next sequence
// number, persists the event, folds it into the asset's projection, and
// applies the snapshot policy. Repository and projection-update failures
// are logged and swallowed here only in the sense that OnEvent has no
// caller to return an error to (the feed's delivery loop is not able to
// undo a delivered event) — per spec §4.3/§7 these are fatal for that
// event and are surfaced via the logger at error level.
func (s *Service) OnEvent(event domain.Event) {
	ctx := context.Background()

	s.mu.Lock()
	seq := s.nextSequenceNumber
	s.nextSequenceNumber++
	numbered := domain.WithSequenceNumber(event, seq)
	s.mu.Unlock()

	if err := s.repo.Append(ctx, numbered); err != nil {
		s.logger.Error("append event failed", slog.Uint64("sequence", seq), slog.String("error", err.Error()))
		return
	}

	asset := numbered.Header().Asset

	s.mu.Lock()
	current, ok := s.books[asset]
	if !ok {
		current = domain.EmptyOrderBook(asset)
	}
	updated := current.Apply(numbered)
	s.books[asset] = updated
	s.mu.Unlock()

	if s.cache != nil {
		s.cache.Set(ctx, updated)
	}

	s.maybeSnapshot(ctx, asset, updated, seq)
}

func (s *Service) maybeSnapshot(ctx context.Context, asset domain.MarketAsset, book domain.OrderBook, sequenceNumber uint64) {
	if s.snapshotInterval == 0 {
		return
	}
	if sequenceNumber%s.snapshotInterval != 0 {
		return
	}
	if err := s.repo.StoreSnapshot(ctx, book); err != nil {
		s.logger.Error("store snapshot failed",
			slog.String("asset", asset.TokenID),
			slog.Uint64("sequence", sequenceNumber),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logAudit(ctx, "snapshot_stored", map[string]any{
		"condition_id": asset.ConditionID,
		"token_id":     asset.TokenID,
		"sequence":     sequenceNumber,
	})
}

// GetCurrentBook returns the current projection for asset.
func (s *Service) GetCurrentBook(asset domain.MarketAsset) (domain.OrderBook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	book, ok := s.books[asset]
	if !ok {
		return domain.OrderBook{}, fmt.Errorf("service: unknown asset %s/%s: %w", asset.ConditionID, asset.TokenID, domain.ErrLookup)
	}
	return book, nil
}

// GetCurrentSpread delegates through GetCurrentBook.
func (s *Service) GetCurrentSpread(asset domain.MarketAsset) (domain.Spread, error) {
	book, err := s.GetCurrentBook(asset)
	if err != nil {
		return domain.Spread{}, err
	}
	return book.SpreadOf()
}

// GetMidpoint delegates through GetCurrentBook.
func (s *Service) GetMidpoint(asset domain.MarketAsset) (domain.Price, error) {
	book, err := s.GetCurrentBook(asset)
	if err != nil {
		return domain.Price{}, err
	}
	return book.Midpoint()
}

// ResolveAsset performs a linear scan of the projection map for the first
// asset whose token ID matches. Acceptable because it is called once at
// startup per asset (spec §9); add a secondary index if hot-path resolution
// is ever needed.
func (s *Service) ResolveAsset(tokenID string) (domain.MarketAsset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for asset := range s.books {
		if asset.TokenID == tokenID {
			return asset, true
		}
	}
	return domain.MarketAsset{}, false
}

// EventCount returns the number of events ingested so far.
func (s *Service) EventCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextSequenceNumber - 1
}

// BookCount returns the number of assets with a projection entry.
func (s *Service) BookCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}
