package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"islandflow/migrations"
	"islandflow/pkg/config"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestWithTransaction_Commit(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM solves").WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectCommit()

	err := WithTransaction(context.Background(), mock, func(tx pgx.Tx) error {
		_, err := tx.Exec(context.Background(), "DELETE FROM solves")
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := WithTransaction(context.Background(), mock, func(tx pgx.Tx) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_RollbackOnPanic(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "bad state", func() {
		_ = WithTransaction(context.Background(), mock, func(tx pgx.Tx) error {
			panic("bad state")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_BeginFails(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	called := false
	err := WithTransaction(context.Background(), mock, func(tx pgx.Tx) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
	assert.False(t, called)
}

func TestWithTransactionResult(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))
	mock.ExpectCommit()

	count, err := WithTransactionResult(context.Background(), mock, func(tx pgx.Tx) (int64, error) {
		var n int64
		err := tx.QueryRow(context.Background(), "SELECT count(*) FROM solves").Scan(&n)
		return n, err
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionResult_CommitFails(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	_, err := WithTransactionResult(context.Background(), mock, func(tx pgx.Tx) (string, error) {
		return "ok", nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
}

func TestPoolConfig(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:         "db.internal",
		Port:         6432,
		Database:     "islandflow",
		Username:     "solver",
		Password:     "secret",
		SSLMode:      "disable",
		MaxOpenConns: 20,
		MaxIdleConns: 4,
	}

	pc, err := PoolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", pc.ConnConfig.Host)
	assert.Equal(t, uint16(6432), pc.ConnConfig.Port)
	assert.Equal(t, "islandflow", pc.ConnConfig.Database)
	assert.Equal(t, "solver", pc.ConnConfig.User)
	assert.Equal(t, int32(20), pc.MaxConns)
	assert.Equal(t, int32(4), pc.MinConns)
}

// sql.Open does not dial, so the provider can be built without a server.
func openLazyDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("pgx", "postgres://nobody@127.0.0.1:1/none?sslmode=disable")
	require.NoError(t, err)
	return db
}

func TestMigrator_EmbeddedVersions(t *testing.T) {
	m, err := newMigrator(openLazyDB(t), migrations.FS)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, []int64{1, 2}, m.Versions())
}

func TestMigrator_NoMigrations(t *testing.T) {
	_, err := newMigrator(openLazyDB(t), fstest.MapFS{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load migrations")
}

func TestRunMigrations_Disabled(t *testing.T) {
	err := RunMigrations(context.Background(), nil, &config.DatabaseConfig{AutoMigrate: false}, migrations.FS)
	assert.NoError(t, err)
}
