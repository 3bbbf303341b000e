package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider drivers.
const (
	DriverSupabase = "supabase"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverValkey   = "valkey"
	DriverBolt     = "bolt"
)

// Config holds the laudos API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	CORS       CORSConfig       `yaml:"cors"`
	Provider   ProviderConfig   `yaml:"provider"`
	Cache      CacheConfig      `yaml:"cache"`
	Search     SearchConfig     `yaml:"search"`
	Generation GenerationConfig `yaml:"generation"`
	Import     ImportConfig     `yaml:"import"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CORSConfig holds the headers answered to browsers.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// ProviderConfig selects and configures the candidate provider.
type ProviderConfig struct {
	Driver     string         `yaml:"driver"` // supabase, postgres, redis, valkey, bolt
	Cap        int            `yaml:"cap"`    // max candidates per fetch
	TimeoutSec int            `yaml:"timeout_sec"`
	Supabase   SupabaseConfig `yaml:"supabase"`
	Postgres   PostgresConfig `yaml:"postgres"`
	Redis      RedisConfig    `yaml:"redis"`
	Bolt       BoltConfig     `yaml:"bolt"`
}

// Timeout returns the per-fetch timeout.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSec) * time.Second
}

// SupabaseConfig holds the hosted PostgREST endpoint.
type SupabaseConfig struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

// PostgresConfig holds the direct database connection.
type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// RedisConfig holds Redis/Valkey connection settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// BoltConfig holds the embedded store file.
type BoltConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig holds candidate cache settings. The cache lives in Redis and
// reuses provider.redis connection settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"`
}

// SearchConfig holds ranking defaults.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
}

// GenerationConfig holds the text-generation relay settings.
type GenerationConfig struct {
	Enabled    bool   `yaml:"enabled"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	MaxTokens  int    `yaml:"max_tokens"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// ImportConfig holds archive import limits.
type ImportConfig struct {
	MaxBatchSize int `yaml:"max_batch_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// generation calls routinely take tens of seconds
		c.HTTP.WriteTimeoutSec = 90
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Content-Type"}
	}
	if c.Provider.Driver == "" {
		c.Provider.Driver = DriverSupabase
	}
	if c.Provider.Cap <= 0 {
		c.Provider.Cap = 150
	}
	if c.Provider.TimeoutSec <= 0 {
		c.Provider.TimeoutSec = 10
	}
	if c.Provider.Postgres.MaxOpenConns <= 0 {
		c.Provider.Postgres.MaxOpenConns = 10
	}
	if c.Provider.Redis.KeyPrefix == "" {
		c.Provider.Redis.KeyPrefix = "laudos:"
	}
	if c.Provider.Redis.ReadinessTimeout <= 0 {
		c.Provider.Redis.ReadinessTimeout = 10
	}
	if c.Provider.Bolt.Path == "" {
		c.Provider.Bolt.Path = "laudos.db"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 60
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 5
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "gpt-4o"
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 2048
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 60
	}
	if c.Import.MaxBatchSize <= 0 {
		c.Import.MaxBatchSize = 100
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Provider.Driver {
	case DriverSupabase:
		if c.Provider.Supabase.URL == "" || c.Provider.Supabase.Key == "" {
			return errors.New("provider.supabase.url and provider.supabase.key are required")
		}
	case DriverPostgres:
		if c.Provider.Postgres.DSN == "" {
			return errors.New("provider.postgres.dsn is required")
		}
	case DriverRedis, DriverValkey:
		if len(c.Provider.Redis.Addrs) == 0 {
			return errors.New("provider.redis.addrs is required")
		}
	case DriverBolt:
		// path has a default
	default:
		return fmt.Errorf(
			"provider.driver must be one of supabase, postgres, redis, valkey, bolt, got %q",
			c.Provider.Driver,
		)
	}

	if c.Cache.Enabled && len(c.Provider.Redis.Addrs) == 0 {
		return errors.New("cache.enabled requires provider.redis.addrs")
	}
	if c.Generation.Enabled && c.Generation.APIKey == "" {
		return errors.New("generation.api_key is required when generation is enabled")
	}
	if slices.Contains(c.CORS.AllowedOrigins, "") {
		return errors.New("cors.allowed_origins must not contain empty values")
	}
	return nil
}

// Writable reports whether the configured driver accepts imported reports.
func (c *Config) Writable() bool {
	return c.Provider.Driver != DriverSupabase
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to the source file, for tests and `go run` from subdirectories
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
