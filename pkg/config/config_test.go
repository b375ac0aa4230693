package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		App:    AppConfig{Name: "solver"},
		GRPC:   GRPCConfig{Port: 50051},
		Log:    LogConfig{Level: "info", Format: "json"},
		Solver: SolverConfig{MaxIslands: 10, MaxBridges: 10, MaxSoldiers: 10},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing app name", mutate: func(c *Config) { c.App.Name = "" }, wantErr: "app.name"},
		{name: "port zero", mutate: func(c *Config) { c.GRPC.Port = 0 }, wantErr: "grpc.port"},
		{name: "port too high", mutate: func(c *Config) { c.GRPC.Port = 70000 }, wantErr: "grpc.port"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "log.level"},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
		{name: "no islands allowed", mutate: func(c *Config) { c.Solver.MaxIslands = 0 }, wantErr: "solver.max_islands"},
		{name: "negative bridges", mutate: func(c *Config) { c.Solver.MaxBridges = -1 }, wantErr: "solver.max_bridges"},
		{name: "negative soldiers", mutate: func(c *Config) { c.Solver.MaxSoldiers = -1 }, wantErr: "solver.max_soldiers"},
		{
			name:    "unknown cache driver",
			mutate:  func(c *Config) { c.Cache.Enabled = true; c.Cache.Driver = "memcached" },
			wantErr: "cache.driver",
		},
		{
			name:   "unknown cache driver ignored when disabled",
			mutate: func(c *Config) { c.Cache.Driver = "memcached" },
		},
		{name: "sample rate", mutate: func(c *Config) { c.Tracing.SampleRate = 1.5 }, wantErr: "tracing.sample_rate"},
		{
			name: "unknown rate limit backend",
			mutate: func(c *Config) {
				c.RateLimit = RateLimitConfig{Enabled: true, Backend: "etcd", Requests: 1, Window: time.Second}
			},
			wantErr: "ratelimit.backend",
		},
		{
			name:    "rate limit without budget",
			mutate:  func(c *Config) { c.RateLimit = RateLimitConfig{Enabled: true, Backend: "memory"} },
			wantErr: "ratelimit.requests",
		},
		{
			name:    "database without host",
			mutate:  func(c *Config) { c.Database.Enabled = true },
			wantErr: "database.host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_Validate_DefaultsEmptyLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = ""

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestConfig_Validate_CollectsAllErrors(t *testing.T) {
	cfg := Config{}
	err := cfg.Validate()

	assert.ErrorContains(t, err, "app.name")
	assert.ErrorContains(t, err, "grpc.port")
	assert.ErrorContains(t, err, "solver.max_islands")
}

func TestConfig_Environment(t *testing.T) {
	tests := []struct {
		env         string
		development bool
	}{
		{"development", true},
		{"dev", true},
		{"production", false},
		{"staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := Config{App: AppConfig{Environment: tt.env}}
			assert.Equal(t, tt.development, cfg.IsDevelopment())
		})
	}
}

func TestCacheConfig_Address(t *testing.T) {
	c := CacheConfig{Host: "redis", Port: 6380}
	assert.Equal(t, "redis:6380", c.Address())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		Username: "solver",
		Password: "secret",
		Database: "islandflow",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=solver password=secret dbname=islandflow sslmode=disable",
		d.DSN(),
	)
}
