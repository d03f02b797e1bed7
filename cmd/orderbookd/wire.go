package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alanyoungcy/orderbookcore/internal/audit"
	auditpg "github.com/alanyoungcy/orderbookcore/internal/audit/postgres"
	"github.com/alanyoungcy/orderbookcore/internal/cache/redis"
	"github.com/alanyoungcy/orderbookcore/internal/config"
	"github.com/alanyoungcy/orderbookcore/internal/discovery"
	"github.com/alanyoungcy/orderbookcore/internal/feed/polymarket"
	"github.com/alanyoungcy/orderbookcore/internal/ingest"
	"github.com/alanyoungcy/orderbookcore/internal/service"
	corefs "github.com/alanyoungcy/orderbookcore/internal/storage/fs"
	"github.com/alanyoungcy/orderbookcore/internal/storage/fs/localfs"
	"github.com/alanyoungcy/orderbookcore/internal/storage/fs/s3fs"
	"github.com/alanyoungcy/orderbookcore/internal/storage/columnar"
)

// Dependencies bundles every concrete dependency the supervisor and the
// service need to run. Constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	Service    *service.Service
	Supervisor *ingest.Supervisor
	RunID      string
}

// Wire constructs all concrete dependency implementations from cfg and
// returns them bundled as Dependencies, together with a cleanup function
// that should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	fsys, err := wireFileSystem(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: filesystem: %w", err)
	}

	repo := columnar.New(fsys, cfg.Service.WriteBufferSize, logger)

	f := polymarket.New(cfg.Feed.WsURL, logger)

	var opts []service.Option
	opts = append(opts, service.WithSnapshotInterval(cfg.Service.SnapshotInterval), service.WithLogger(logger))

	if cfg.Cache.Redis.Addr != "" {
		cacheClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Cache.Redis.Addr,
			Password:   cfg.Cache.Redis.Password,
			DB:         cfg.Cache.Redis.DB,
			PoolSize:   cfg.Cache.Redis.PoolSize,
			MaxRetries: cfg.Cache.Redis.MaxRetries,
			TLSEnabled: cfg.Cache.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = cacheClient.Close() })
		opts = append(opts, service.WithProjectionCache(redis.NewProjectionCache(cacheClient, logger)))
	}

	if cfg.Audit.Postgres.DSN != "" || cfg.Audit.Postgres.Host != "" {
		auditLogger, auditCleanup, err := wireAudit(ctx, cfg, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: audit: %w", err)
		}
		closers = append(closers, auditCleanup)
		opts = append(opts, service.WithAuditLogger(auditLogger))
	}

	svc := service.New(repo, f, opts...)

	var poller discovery.CatalogPoller
	if cfg.Discovery.Enabled {
		poller = discovery.NewGammaPoller(cfg.Discovery.GammaHost)
	}
	supervisor := ingest.New(svc, poller, cfg.Discovery.Interval.Duration, logger)

	return &Dependencies{
		Service:    svc,
		Supervisor: supervisor,
		RunID:      uuid.NewString(),
	}, cleanup, nil
}

func wireFileSystem(ctx context.Context, cfg *config.Config) (corefs.FileSystem, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return s3fs.New(ctx, s3fs.ClientConfig{
			Endpoint:       cfg.Storage.S3.Endpoint,
			Region:         cfg.Storage.S3.Region,
			Bucket:         cfg.Storage.S3.Bucket,
			AccessKey:      cfg.Storage.S3.AccessKey,
			SecretKey:      cfg.Storage.S3.SecretKey,
			UseSSL:         cfg.Storage.S3.UseSSL,
			ForcePathStyle: cfg.Storage.S3.ForcePathStyle,
		})
	default:
		return localfs.New(cfg.Storage.RootDir)
	}
}

func wireAudit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (audit.Store, func(), error) {
	client, err := auditpg.New(ctx, auditpg.ClientConfig{
		DSN:      cfg.Audit.Postgres.DSN,
		Host:     cfg.Audit.Postgres.Host,
		Port:     cfg.Audit.Postgres.Port,
		Database: cfg.Audit.Postgres.Database,
		User:     cfg.Audit.Postgres.User,
		Password: cfg.Audit.Postgres.Password,
		SSLMode:  cfg.Audit.Postgres.SSLMode,
		MaxConns: cfg.Audit.Postgres.PoolMaxConns,
		MinConns: cfg.Audit.Postgres.PoolMinConns,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := client.Close

	if cfg.Audit.Postgres.RunMigrations {
		if err := client.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	return auditpg.NewStore(client.Pool()), cleanup, nil
}
