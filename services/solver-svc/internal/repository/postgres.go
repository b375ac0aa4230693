package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"islandflow/pkg/apperror"
	"islandflow/pkg/database"
	"islandflow/pkg/telemetry"
)

// PostgresSolveRepository keeps records in the solves and solve_paths tables.
type PostgresSolveRepository struct {
	db database.DB
}

var _ SolveRepository = (*PostgresSolveRepository)(nil)

func NewPostgresSolveRepository(db database.DB) *PostgresSolveRepository {
	return &PostgresSolveRepository{db: db}
}

func (r *PostgresSolveRepository) Save(ctx context.Context, record *SolveRecord) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresSolveRepository.Save")
	defer span.End()

	if record == nil {
		return apperror.New(apperror.CodeNilInput, "solve record is nil")
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	err := database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO solves (
				id, problem_hash, islands, bridges, soldiers, feasible,
				total_cost, mean_cost, duration_ms, cache_hit
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at
		`
		err := tx.QueryRow(ctx, query,
			record.ID,
			record.ProblemHash,
			record.Islands,
			record.Bridges,
			record.Soldiers,
			record.Feasible,
			record.TotalCost,
			record.MeanCost,
			record.DurationMs,
			record.CacheHit,
		).Scan(&record.CreatedAt)
		if err != nil {
			return err
		}

		if len(record.Paths) == 0 {
			return nil
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"solve_paths"},
			[]string{"solve_id", "unit", "bridges"},
			pgx.CopyFromSlice(len(record.Paths), func(i int) ([]any, error) {
				return []any{record.ID, i + 1, toInt64s(record.Paths[i])}, nil
			}),
		)
		return err
	})
	if err != nil {
		telemetry.SetError(ctx, err)
		return apperror.Wrap(err, apperror.CodeStorage, "failed to save solve").
			WithDetails("id", record.ID.String())
	}

	return nil
}

func (r *PostgresSolveRepository) Get(ctx context.Context, id uuid.UUID) (*SolveRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresSolveRepository.Get")
	defer span.End()

	query := `
		SELECT
			id, problem_hash, islands, bridges, soldiers, feasible,
			total_cost, mean_cost, duration_ms, cache_hit, created_at
		FROM solves
		WHERE id = $1
	`

	record := &SolveRecord{}
	err := scanRecord(r.db.QueryRow(ctx, query, id), record)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.New(apperror.CodeNotFound, "solve not found").
				WithDetails("id", id.String())
		}
		return nil, apperror.Wrap(err, apperror.CodeStorage, "failed to get solve")
	}

	rows, err := r.db.Query(ctx, `SELECT bridges FROM solve_paths WHERE solve_id = $1 ORDER BY unit`, id)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeStorage, "failed to get solve paths")
	}
	defer rows.Close()

	for rows.Next() {
		var bridges []int64
		if err := rows.Scan(&bridges); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeStorage, "failed to scan solve path")
		}
		record.Paths = append(record.Paths, toInts(bridges))
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeStorage, "rows iteration error")
	}

	return record, nil
}

func (r *PostgresSolveRepository) ListRecent(ctx context.Context, limit int) ([]*SolveRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresSolveRepository.ListRecent")
	defer span.End()

	query := `
		SELECT
			id, problem_hash, islands, bridges, soldiers, feasible,
			total_cost, mean_cost, duration_ms, cache_hit, created_at
		FROM solves
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeStorage, "failed to list solves")
	}
	defer rows.Close()

	var records []*SolveRecord
	for rows.Next() {
		record := &SolveRecord{}
		if err := scanRecord(rows, record); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeStorage, "failed to scan solve")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeStorage, "rows iteration error")
	}

	return records, nil
}

func (r *PostgresSolveRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresSolveRepository.DeleteOlderThan")
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM solves WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.CodeStorage, "failed to delete old solves")
	}
	return tag.RowsAffected(), nil
}

func scanRecord(row pgx.Row, record *SolveRecord) error {
	return row.Scan(
		&record.ID,
		&record.ProblemHash,
		&record.Islands,
		&record.Bridges,
		&record.Soldiers,
		&record.Feasible,
		&record.TotalCost,
		&record.MeanCost,
		&record.DurationMs,
		&record.CacheHit,
		&record.CreatedAt,
	)
}

func toInt64s(path []int) []int64 {
	out := make([]int64, len(path))
	for i, b := range path {
		out[i] = int64(b)
	}
	return out
}

func toInts(path []int64) []int {
	out := make([]int, len(path))
	for i, b := range path {
		out[i] = int(b)
	}
	return out
}
