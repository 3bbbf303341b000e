// Package backend assembles the candidate provider chain for the configured driver:
// store -> optional candidate cache -> instrumentation.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/laudos/internal/config"
	dbRedis "github.com/kailas-cloud/laudos/internal/db/redis"
	domreport "github.com/kailas-cloud/laudos/internal/domain/report"
	"github.com/kailas-cloud/laudos/internal/metrics"
	"github.com/kailas-cloud/laudos/internal/repository/candcache"
	reportrepo "github.com/kailas-cloud/laudos/internal/repository/report"
	"github.com/kailas-cloud/laudos/internal/transport/supabase"
	archiveuc "github.com/kailas-cloud/laudos/internal/usecase/archive"
	searchuc "github.com/kailas-cloud/laudos/internal/usecase/search"
)

// Backend holds the assembled provider chain and the resources behind it.
type Backend struct {
	// Provider is the instrumented (and optionally cached) candidate source.
	Provider *searchuc.InstrumentedProvider
	// Writer is nil for read-only drivers.
	Writer archiveuc.Writer
	// Cache is nil when the candidate cache is disabled.
	Cache *candcache.CachedProvider
	// Supabase is set only for the supabase driver; it also serves the DB proxy.
	Supabase *supabase.Client
	// Postgres is set only for the postgres driver.
	Postgres *sql.DB

	closers []func()
}

// Invalidator returns the cache as an archive invalidator, or nil when disabled.
func (b *Backend) Invalidator() archiveuc.Invalidator {
	if b.Cache == nil {
		return nil
	}
	return b.Cache
}

// Close releases every opened resource in reverse order.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

type fetcher interface {
	Fetch(ctx context.Context, exam string) ([]domreport.Report, error)
}

// Open connects to the configured driver and builds the provider chain.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	b := &Backend{}
	pc := cfg.Provider

	var (
		base  fetcher
		store *dbRedis.Store
	)

	openRedis := func() (*dbRedis.Store, error) {
		if store != nil {
			return store, nil
		}
		s, err := dbRedis.NewStore(dbRedis.Config{Addrs: pc.Redis.Addrs, Password: pc.Redis.Password})
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		b.closers = append(b.closers, s.Close)
		if err := s.WaitForReady(ctx, time.Duration(pc.Redis.ReadinessTimeout)*time.Second); err != nil {
			return nil, fmt.Errorf("redis not ready: %w", err)
		}
		store = s
		return s, nil
	}

	switch pc.Driver {
	case config.DriverSupabase:
		c := supabase.New(supabase.Config{URL: pc.Supabase.URL, Key: pc.Supabase.Key, Cap: pc.Cap, Timeout: pc.Timeout()})
		b.Supabase = c
		base = c
	case config.DriverPostgres:
		repo, err := reportrepo.OpenPostgres(pc.Postgres.DSN, pc.Postgres.MaxOpenConns, pc.Cap)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = repo.Close() })
		b.Postgres = repo.DB()
		base, b.Writer = repo, repo
	case config.DriverRedis, config.DriverValkey:
		s, err := openRedis()
		if err != nil {
			b.Close()
			return nil, err
		}
		repo := reportrepo.NewRedis(s, pc.Redis.KeyPrefix, pc.Cap)
		base, b.Writer = repo, repo
	case config.DriverBolt:
		repo, err := reportrepo.OpenBolt(pc.Bolt.Path, pc.Cap)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = repo.Close() })
		base, b.Writer = repo, repo
	default:
		return nil, fmt.Errorf("unknown provider driver %q", pc.Driver)
	}

	var provider fetcher = withTimeout(base, pc.Timeout())

	if cfg.Cache.Enabled {
		s, err := openRedis()
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Cache = candcache.New(provider, s, pc.Redis.KeyPrefix,
			time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.CandidateCacheTotal, logger)
		provider = b.Cache
	}

	b.Provider = searchuc.NewInstrumentedProvider(provider, pc.Driver, logger)

	logger.Info("Candidate provider ready",
		zap.String("driver", pc.Driver),
		zap.Int("cap", pc.Cap),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.Bool("writable", b.Writer != nil),
	)
	return b, nil
}

// timeoutProvider bounds each fetch by the configured provider timeout.
type timeoutProvider struct {
	inner   fetcher
	timeout time.Duration
}

func withTimeout(inner fetcher, timeout time.Duration) fetcher {
	if timeout <= 0 {
		return inner
	}
	return &timeoutProvider{inner: inner, timeout: timeout}
}

func (p *timeoutProvider) Fetch(ctx context.Context, exam string) ([]domreport.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.inner.Fetch(ctx, exam) //nolint:wrapcheck // provider status must survive
}

func (p *timeoutProvider) Ping(ctx context.Context) error {
	if pinger, ok := p.inner.(searchuc.Pinger); ok {
		return pinger.Ping(ctx) //nolint:wrapcheck // health status only
	}
	return nil
}
