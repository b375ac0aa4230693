package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration of the solver service.
type Config struct {
	App       AppConfig       `koanf:"app"`
	GRPC      GRPCConfig      `koanf:"grpc"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Tracing   TracingConfig   `koanf:"tracing"`
	Solver    SolverConfig    `koanf:"solver"`
	Cache     CacheConfig     `koanf:"cache"`
	Database  DatabaseConfig  `koanf:"database"`
	Client    ClientConfig    `koanf:"client"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
}

// GRPCConfig configures the serve mode listener.
type GRPCConfig struct {
	Port            int             `koanf:"port"`
	MaxRecvMsgSize  int             `koanf:"max_recv_msg_size"` // bytes
	MaxSendMsgSize  int             `koanf:"max_send_msg_size"` // bytes
	ShutdownTimeout time.Duration   `koanf:"shutdown_timeout"`
	KeepAlive       KeepAliveConfig `koanf:"keepalive"`
}

type KeepAliveConfig struct {
	MaxConnectionIdle     time.Duration `koanf:"max_connection_idle"`
	MaxConnectionAge      time.Duration `koanf:"max_connection_age"`
	MaxConnectionAgeGrace time.Duration `koanf:"max_connection_age_grace"`
	Time                  time.Duration `koanf:"time"`
	Timeout               time.Duration `koanf:"timeout"`
}

type LogConfig struct {
	Level      string `koanf:"level"`  // debug, info, warn, error
	Format     string `koanf:"format"` // json, text
	Output     string `koanf:"output"` // stdout, stderr, file, discard
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"` // MB
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"` // days
	Compress   bool   `koanf:"compress"`
}

type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
	Insecure    bool    `koanf:"insecure"`
}

// SolverConfig bounds what a single request may ask of the solver.
type SolverConfig struct {
	MaxIslands       int           `koanf:"max_islands"`
	MaxBridges       int           `koanf:"max_bridges"`
	MaxSoldiers      int           `koanf:"max_soldiers"`
	VerifyInvariants bool          `koanf:"verify_invariants"`
	Timeout          time.Duration `koanf:"timeout"`
}

// CacheConfig selects the answer cache backend.
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // memory only
}

func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig points at the Postgres instance holding solve history.
type DatabaseConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN returns a libpq keyword/value connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode,
	)
}

// ClientConfig is used by the remote mode to reach a serving instance.
type ClientConfig struct {
	Address      string        `koanf:"address"`
	Timeout      time.Duration `koanf:"timeout"`
	MaxRetries   uint          `koanf:"max_retries"`
	RetryBackoff time.Duration `koanf:"retry_backoff"`
}

// RateLimitConfig throttles serve mode per calling host. The redis backend
// shares the cache's Redis address.
type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Backend  string        `koanf:"backend"` // memory, redis
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

// Validate checks the whole configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.GRPC.Port <= 0 || c.GRPC.Port > 65535 {
		errs = append(errs, fmt.Sprintf("grpc.port must be between 1 and 65535, got %d", c.GRPC.Port))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %s", c.Log.Format))
	}

	if c.Solver.MaxIslands <= 0 {
		errs = append(errs, "solver.max_islands must be positive")
	}
	if c.Solver.MaxBridges < 0 {
		errs = append(errs, "solver.max_bridges must be non-negative")
	}
	if c.Solver.MaxSoldiers < 0 {
		errs = append(errs, "solver.max_soldiers must be non-negative")
	}

	if c.Cache.Enabled && c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		errs = append(errs, fmt.Sprintf("cache.driver must be memory or redis, got %s", c.Cache.Driver))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Sprintf("tracing.sample_rate must be in [0, 1], got %g", c.Tracing.SampleRate))
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Backend != "memory" && c.RateLimit.Backend != "redis" {
			errs = append(errs, fmt.Sprintf("ratelimit.backend must be memory or redis, got %s", c.RateLimit.Backend))
		}
		if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
			errs = append(errs, "ratelimit.requests and ratelimit.window must be positive")
		}
	}

	if c.Database.Enabled && c.Database.Host == "" {
		errs = append(errs, "database.host is required when database.enabled is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}
