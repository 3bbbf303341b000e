package laudos

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/laudos/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	provider     config.ProviderConfig
	defaultLimit int
	maxBatchSize int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithSupabase reads candidates from a Supabase project's REST API (read-only).
func WithSupabase(url, key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider.Driver = config.DriverSupabase
		c.provider.Supabase = config.SupabaseConfig{URL: url, Key: key}
	})
}

// WithPostgres reads and writes the laudos table directly.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider.Driver = config.DriverPostgres
		c.provider.Postgres.DSN = dsn
	})
}

// WithRedis stores reports in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider.Driver = config.DriverRedis
		c.provider.Redis.Addrs = []string{addr}
		c.provider.Redis.Password = password
	})
}

// WithValkey stores reports in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider.Driver = config.DriverValkey
		c.provider.Redis.Addrs = []string{addr}
		c.provider.Redis.Password = password
	})
}

// WithBolt stores reports in an embedded bbolt file.
func WithBolt(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider.Driver = config.DriverBolt
		c.provider.Bolt.Path = path
	})
}

// WithCap bounds how many recent reports are scored per search. Default: 150.
func WithCap(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider.Cap = n
	})
}

// WithTimeout bounds each candidate fetch. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider.TimeoutSec = int(d / time.Second)
	})
}

// WithDefaultLimit sets the result count used when Search gets a non-positive limit.
// Default: 5.
func WithDefaultLimit(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultLimit = n
	})
}

// WithMaxBatchSize sets the maximum number of reports per Import call.
// Default: 100.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxBatchSize = size
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
