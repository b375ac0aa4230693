package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"islandflow/pkg/apperror"
	"islandflow/pkg/cache"
	"islandflow/pkg/config"
	"islandflow/pkg/domain"
	"islandflow/pkg/logger"
	"islandflow/pkg/metrics"
	"islandflow/services/solver-svc/internal/repository"
)

func TestMain(m *testing.M) {
	logger.Init("error")

	os.Exit(m.Run())
}

type mockHistory struct {
	mock.Mock
}

var _ repository.SolveRepository = (*mockHistory)(nil)

func (m *mockHistory) Save(ctx context.Context, record *repository.SolveRecord) error {
	args := m.Called(ctx, record)
	if args.Error(0) == nil {
		record.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockHistory) Get(ctx context.Context, id uuid.UUID) (*repository.SolveRecord, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*repository.SolveRecord)
	return rec, args.Error(1)
}

func (m *mockHistory) ListRecent(ctx context.Context, limit int) ([]*repository.SolveRecord, error) {
	args := m.Called(ctx, limit)
	recs, _ := args.Get(0).([]*repository.SolveRecord)
	return recs, args.Error(1)
}

func (m *mockHistory) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func detourProblem() *domain.Problem {
	return &domain.Problem{
		Islands:  3,
		Soldiers: 2,
		Bridges: []domain.Bridge{
			{From: 1, To: 2, Cost: 1},
			{From: 2, To: 3, Cost: 1},
			{From: 1, To: 3, Cost: 10},
		},
	}
}

func newAnswerCache(t *testing.T) *cache.AnswerCache {
	t.Helper()
	c := cache.NewMemoryCache(cache.DefaultOptions())
	t.Cleanup(func() { _ = c.Close() })
	return cache.NewAnswerCache(c, time.Minute)
}

func TestConfigFromSolver(t *testing.T) {
	cfg := ConfigFromSolver(config.SolverConfig{
		MaxIslands:       10,
		MaxBridges:       20,
		MaxSoldiers:      30,
		VerifyInvariants: true,
		Timeout:          time.Second,
	})

	assert.Equal(t, Limits{MaxIslands: 10, MaxBridges: 20, MaxSoldiers: 30}, cfg.Limits)
	assert.True(t, cfg.VerifyInvariants)
	assert.Equal(t, time.Second, cfg.Timeout)
}

func TestSolverService_Solve(t *testing.T) {
	svc := NewSolverService(Config{VerifyInvariants: true})

	result, err := svc.Solve(context.Background(), detourProblem(), SolveOptions{})
	require.NoError(t, err)

	assert.False(t, result.CacheHit)
	assert.Equal(t, uuid.Nil, result.HistoryID)
	assert.Equal(t, cache.HashProblem(detourProblem()), result.Hash)
	assert.Equal(t, &domain.Answer{
		Feasible:  true,
		Soldiers:  2,
		TotalCost: 12,
		Paths:     [][]int{{1, 2}, {3}},
	}, result.Answer)
}

func TestSolverService_Solve_Infeasible(t *testing.T) {
	m := metrics.New("test", "solver")
	svc := NewSolverService(Config{}, WithMetrics(m))

	p := &domain.Problem{Islands: 3, Soldiers: 1, Bridges: []domain.Bridge{{From: 1, To: 2, Cost: 1}}}
	result, err := svc.Solve(context.Background(), p, SolveOptions{})
	require.NoError(t, err)

	assert.False(t, result.Answer.Feasible)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SolvesTotal.WithLabelValues(metrics.OutcomeInfeasible)))
}

func TestSolverService_Solve_Errors(t *testing.T) {
	svc := NewSolverService(Config{Limits: Limits{MaxIslands: 5, MaxBridges: 2, MaxSoldiers: 3}})

	tests := []struct {
		name    string
		problem *domain.Problem
		code    apperror.ErrorCode
		field   string
	}{
		{
			name:    "nil problem",
			problem: nil,
			code:    apperror.CodeNilInput,
		},
		{
			name:    "too many islands",
			problem: &domain.Problem{Islands: 6, Soldiers: 1},
			code:    apperror.CodeLimitExceeded,
			field:   "islands",
		},
		{
			name: "too many bridges",
			problem: &domain.Problem{Islands: 2, Soldiers: 1, Bridges: []domain.Bridge{
				{From: 1, To: 2}, {From: 1, To: 2}, {From: 1, To: 2},
			}},
			code:  apperror.CodeLimitExceeded,
			field: "bridges",
		},
		{
			name:    "too many soldiers",
			problem: &domain.Problem{Islands: 2, Soldiers: 4},
			code:    apperror.CodeLimitExceeded,
			field:   "soldiers",
		},
		{
			name:    "invalid problem",
			problem: &domain.Problem{Islands: 2, Soldiers: 1, Bridges: []domain.Bridge{{From: 1, To: 3}}},
			code:    apperror.CodeInvalidIsland,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Solve(context.Background(), tt.problem, SolveOptions{})

			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.code, apperror.Code(err))

			if tt.field != "" {
				var appErr *apperror.Error
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, tt.field, appErr.Field)
			}
		})
	}
}

func TestSolverService_Solve_CacheHit(t *testing.T) {
	m := metrics.New("test", "solver")
	svc := NewSolverService(Config{}, WithAnswerCache(newAnswerCache(t)), WithMetrics(m))
	ctx := context.Background()

	first, err := svc.Solve(ctx, detourProblem(), SolveOptions{})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := svc.Solve(ctx, detourProblem(), SolveOptions{})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Answer, second.Answer)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues(metrics.CacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues(metrics.CacheHit)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SolvesTotal.WithLabelValues(metrics.OutcomeFeasible)))
}

func TestSolverService_Solve_SkipCache(t *testing.T) {
	svc := NewSolverService(Config{}, WithAnswerCache(newAnswerCache(t)))
	ctx := context.Background()

	_, err := svc.Solve(ctx, detourProblem(), SolveOptions{})
	require.NoError(t, err)

	result, err := svc.Solve(ctx, detourProblem(), SolveOptions{SkipCache: true})
	require.NoError(t, err)
	assert.False(t, result.CacheHit)
}

func TestSolverService_Solve_SavesHistory(t *testing.T) {
	history := &mockHistory{}
	history.On("Save", mock.Anything, mock.MatchedBy(func(r *repository.SolveRecord) bool {
		return r.Islands == 3 &&
			r.Bridges == 3 &&
			r.Soldiers == 2 &&
			r.Feasible &&
			r.TotalCost == 12 &&
			r.MeanCost == 6 &&
			!r.CacheHit &&
			len(r.Paths) == 2
	})).Return(nil).Once()

	m := metrics.New("test", "solver")
	svc := NewSolverService(Config{}, WithHistory(history), WithMetrics(m))

	result, err := svc.Solve(context.Background(), detourProblem(), SolveOptions{})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, result.HistoryID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HistoryWrites.WithLabelValues("ok")))
	history.AssertExpectations(t)
}

func TestSolverService_Solve_HistoryFailureIsNotAnError(t *testing.T) {
	history := &mockHistory{}
	history.On("Save", mock.Anything, mock.Anything).
		Return(apperror.New(apperror.CodeStorage, "database is down"))

	m := metrics.New("test", "solver")
	svc := NewSolverService(Config{}, WithHistory(history), WithMetrics(m))

	result, err := svc.Solve(context.Background(), detourProblem(), SolveOptions{})
	require.NoError(t, err)

	assert.True(t, result.Answer.Feasible)
	assert.Equal(t, uuid.Nil, result.HistoryID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HistoryWrites.WithLabelValues("error")))
}

func TestSolverService_Solve_Cancelled(t *testing.T) {
	m := metrics.New("test", "solver")
	svc := NewSolverService(Config{MaxConcurrency: 1}, WithMetrics(m))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Solve(ctx, detourProblem(), SolveOptions{})

	require.Error(t, err)
	assert.Equal(t, apperror.CodeTimeout, apperror.Code(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SolvesTotal.WithLabelValues(metrics.OutcomeError)))
}

func TestSolverService_History(t *testing.T) {
	assert.Nil(t, NewSolverService(Config{}).History())

	history := &mockHistory{}
	assert.Same(t, history, NewSolverService(Config{}, WithHistory(history)).History())
}
