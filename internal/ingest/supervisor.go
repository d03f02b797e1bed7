// Package ingest supervises the long-running goroutines that feed
// OrderBookService: the feed's reconnect loop and the discovery poller. It
// is adapted from the teacher's internal/pipeline/orchestrator.go, which
// coordinates multiple long-running pipeline goroutines with an errgroup
// the same way.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/orderbookcore/internal/discovery"
)

// Subscriber is the subset of Service the supervisor needs to seed
// subscriptions discovered at startup and periodically thereafter.
type Subscriber interface {
	Subscribe(tokenID string) error
	Start() error
	Stop() error
}

// Supervisor runs the feed's connection loop and, optionally, a discovery
// poller that seeds new Subscribe calls as new markets appear.
type Supervisor struct {
	service  Subscriber
	poller   discovery.CatalogPoller
	interval time.Duration
	logger   *slog.Logger
}

// New creates a Supervisor. poller may be nil, in which case only the
// feed's connection loop is run.
func New(service Subscriber, poller discovery.CatalogPoller, interval time.Duration, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		service:  service,
		poller:   poller,
		interval: interval,
		logger:   logger.With(slog.String("component", "ingest_supervisor")),
	}
}

// Run starts the feed's connection loop and, if a poller is configured, the
// discovery polling loop, as concurrent goroutines under an errgroup. If
// either goroutine returns a non-context error, the errgroup cancels the
// shared context and Run returns that error. On ctx cancellation both
// goroutines are stopped and Run returns nil.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info("ingest supervisor starting", slog.Bool("discovery_enabled", s.poller != nil))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.service.Start()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("feed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return s.service.Stop()
	})

	if s.poller != nil {
		g.Go(func() error {
			err := s.runDiscoveryLoop(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("discovery: %w", err)
		})
	}

	err := g.Wait()
	if err != nil {
		s.logger.Error("ingest supervisor stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("ingest supervisor stopped cleanly")
	return nil
}

// runDiscoveryLoop polls the catalog on s.interval, subscribing to every
// discovered asset's token ID. Subscribe is idempotent from the feed's
// perspective (re-subscribing an already-subscribed token is harmless), so
// no attempt is made to track which tokens were already seen.
func (s *Supervisor) runDiscoveryLoop(ctx context.Context) error {
	if err := s.pollOnce(ctx); err != nil {
		s.logger.Error("initial discovery poll failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.pollOnce(ctx); err != nil {
				s.logger.Error("discovery poll failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *Supervisor) pollOnce(ctx context.Context) error {
	assets, err := s.poller.Poll(ctx)
	if err != nil {
		return err
	}
	for _, asset := range assets {
		if err := s.service.Subscribe(asset.TokenID); err != nil {
			s.logger.Warn("subscribe failed",
				slog.String("token_id", asset.TokenID),
				slog.String("error", err.Error()),
			)
		}
	}
	s.logger.Debug("discovery poll complete", slog.Int("assets", len(assets)))
	return nil
}
