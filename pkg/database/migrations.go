package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"islandflow/pkg/config"
	"islandflow/pkg/logger"
)

// Migrator applies goose SQL migrations read from an fs.FS.
type Migrator struct {
	db       *sql.DB
	provider *goose.Provider
}

// NewMigrator opens a database/sql handle over pool. Close releases it
// without closing the pool.
func NewMigrator(pool *pgxpool.Pool, migrations fs.FS) (*Migrator, error) {
	return newMigrator(stdlib.OpenDBFromPool(pool), migrations)
}

func newMigrator(db *sql.DB, migrations fs.FS) (*Migrator, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	return &Migrator{db: db, provider: provider}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	for _, r := range results {
		logger.Log.Info("migration applied",
			"version", r.Source.Version,
			"path", r.Source.Path,
			"duration", r.Duration,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Down rolls back the latest migration.
func (m *Migrator) Down(ctx context.Context) error {
	r, err := m.provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	logger.Log.Info("migration rolled back", "version", r.Source.Version)
	return nil
}

func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	return m.provider.Status(ctx)
}

// Versions lists the versions found in the migration files, ascending.
func (m *Migrator) Versions() []int64 {
	sources := m.provider.ListSources()
	versions := make([]int64, 0, len(sources))
	for _, s := range sources {
		versions = append(versions, s.Version)
	}
	return versions
}

func (m *Migrator) Close() error {
	return m.db.Close()
}

// RunMigrations applies migrations when cfg.AutoMigrate is set.
func RunMigrations(ctx context.Context, db *PostgresDB, cfg *config.DatabaseConfig, migrations fs.FS) error {
	if !cfg.AutoMigrate {
		logger.Log.Info("auto-migration is disabled")
		return nil
	}

	m, err := NewMigrator(db.Pool(), migrations)
	if err != nil {
		return err
	}
	defer m.Close()

	return m.Up(ctx)
}
