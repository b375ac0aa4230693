package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "ISLANDFLOW_"
	configEnvVar = "CONFIG_PATH"

	defaultAppName  = "islandflow-solver"
	defaultGRPCPort = 50051
)

// Loader merges defaults, a YAML file and environment variables, in that order.
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
	source      string
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"config.yaml",
			"config/config.yaml",
			"/etc/islandflow/config.yaml",
		},
		envPrefix: envPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

type LoaderOption func(*Loader)

// WithConfigPaths replaces the file search paths.
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.configPaths = paths
	}
}

// WithEnvPrefix replaces the ISLANDFLOW_ prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// Load builds and validates the configuration. A missing file is not an
// error; Source reports which file, if any, was read.
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := l.loadConfigFile(); err != nil {
		return nil, err
	}

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Source is the config file used by the last Load, or "" when none was found.
func (l *Loader) Source() string {
	return l.source
}

func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		"app.name":        defaultAppName,
		"app.version":     "1.0.0",
		"app.environment": "development",

		"grpc.port":                               defaultGRPCPort,
		"grpc.max_recv_msg_size":                  64 * 1024 * 1024,
		"grpc.max_send_msg_size":                  64 * 1024 * 1024,
		"grpc.shutdown_timeout":                   10 * time.Second,
		"grpc.keepalive.max_connection_idle":      15 * time.Minute,
		"grpc.keepalive.max_connection_age":       30 * time.Minute,
		"grpc.keepalive.max_connection_age_grace": 5 * time.Minute,
		"grpc.keepalive.time":                     5 * time.Minute,
		"grpc.keepalive.timeout":                  20 * time.Second,

		// stdout carries the answer in solve mode
		"log.level":       "info",
		"log.format":      "text",
		"log.output":      "stderr",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     28,
		"log.compress":    true,

		"metrics.enabled":   false,
		"metrics.port":      9090,
		"metrics.path":      "/metrics",
		"metrics.namespace": "islandflow",
		"metrics.subsystem": "solver",

		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": defaultAppName,
		"tracing.sample_rate":  1.0,
		"tracing.insecure":     true,

		"solver.max_islands":       100_000,
		"solver.max_bridges":       1_000_000,
		"solver.max_soldiers":      100_000,
		"solver.verify_invariants": false,
		"solver.timeout":           30 * time.Second,

		"cache.enabled":     false,
		"cache.driver":      "memory",
		"cache.host":        "localhost",
		"cache.port":        6379,
		"cache.db":          0,
		"cache.default_ttl": 10 * time.Minute,
		"cache.max_entries": 10_000,

		"database.enabled":            false,
		"database.host":               "localhost",
		"database.port":               5432,
		"database.database":           "islandflow",
		"database.username":           "postgres",
		"database.password":           "",
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     10,
		"database.max_idle_conns":     2,
		"database.conn_max_lifetime":  30 * time.Minute,
		"database.conn_max_idle_time": 5 * time.Minute,
		"database.auto_migrate":       true,

		"ratelimit.enabled":  false,
		"ratelimit.backend":  "memory",
		"ratelimit.requests": 600,
		"ratelimit.window":   time.Minute,
		"ratelimit.burst":    50,

		"client.address":       fmt.Sprintf("localhost:%d", defaultGRPCPort),
		"client.timeout":       30 * time.Second,
		"client.max_retries":   3,
		"client.retry_backoff": 100 * time.Millisecond,
	}

	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

func (l *Loader) loadConfigFile() error {
	l.source = ""

	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("%s points at %s: %w", configEnvVar, configPath, err)
		}
		return l.loadFile(configPath)
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absPath); err == nil {
			return l.loadFile(absPath)
		}
	}

	return nil
}

func (l *Loader) loadFile(path string) error {
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	l.source = path
	return nil
}

// loadEnv maps ISLANDFLOW_SOLVER_MAX_ISLANDS onto solver.max_islands. Keys
// already known from defaults or the file win over the naive "_" -> "."
// replacement, which would split max_islands into max.islands.
func (l *Loader) loadEnv() error {
	known := make(map[string]string)
	for _, key := range l.k.Keys() {
		known[strings.ReplaceAll(key, ".", "_")] = key
	}

	return l.k.Load(env.ProviderWithValue(l.envPrefix, ".", func(envKey string, value string) (string, interface{}) {
		key := strings.ToLower(strings.TrimPrefix(envKey, l.envPrefix))

		if mapped, ok := known[key]; ok {
			return mapped, value
		}
		return strings.ReplaceAll(key, "_", "."), value
	}), nil)
}
