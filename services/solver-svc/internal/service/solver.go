// Package service wires the solver to the cache, the history store and the
// metrics registry.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"islandflow/pkg/apperror"
	"islandflow/pkg/cache"
	"islandflow/pkg/config"
	"islandflow/pkg/domain"
	"islandflow/pkg/logger"
	"islandflow/pkg/metrics"
	"islandflow/pkg/telemetry"
	"islandflow/services/solver-svc/internal/algorithms"
	"islandflow/services/solver-svc/internal/repository"
)

const historyTimeout = 5 * time.Second

// Limits bounds the size of a single request. Zero means unlimited.
type Limits struct {
	MaxIslands  int
	MaxBridges  int
	MaxSoldiers int
}

// Config tunes a SolverService.
type Config struct {
	Limits           Limits
	VerifyInvariants bool
	Timeout          time.Duration
	// MaxConcurrency caps simultaneous solves; 0 means one per CPU.
	MaxConcurrency int
}

// ConfigFromSolver maps the solver section of the configuration.
func ConfigFromSolver(cfg config.SolverConfig) Config {
	return Config{
		Limits: Limits{
			MaxIslands:  cfg.MaxIslands,
			MaxBridges:  cfg.MaxBridges,
			MaxSoldiers: cfg.MaxSoldiers,
		},
		VerifyInvariants: cfg.VerifyInvariants,
		Timeout:          cfg.Timeout,
	}
}

// SolveOptions are per-request switches.
type SolveOptions struct {
	SkipCache bool
}

// SolveResult is the answer together with how it was obtained.
type SolveResult struct {
	Answer   *domain.Answer
	CacheHit bool
	Duration time.Duration
	// Hash identifies the problem in the cache and in the history.
	Hash string
	// HistoryID is uuid.Nil when history is disabled or the write failed.
	HistoryID uuid.UUID
}

type SolverService struct {
	cfg     Config
	pool    *algorithms.SolverPool
	answers *cache.AnswerCache
	history repository.SolveRepository
	metrics *metrics.Metrics
}

type Option func(*SolverService)

func WithAnswerCache(answers *cache.AnswerCache) Option {
	return func(s *SolverService) {
		s.answers = answers
	}
}

func WithHistory(history repository.SolveRepository) Option {
	return func(s *SolverService) {
		s.history = history
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *SolverService) {
		s.metrics = m
	}
}

func NewSolverService(cfg Config, opts ...Option) *SolverService {
	s := &SolverService{
		cfg:  cfg,
		pool: algorithms.NewSolverPool(cfg.MaxConcurrency),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve answers p from the cache when possible and runs the solver otherwise.
// An infeasible problem is a successful result.
func (s *SolverService) Solve(ctx context.Context, p *domain.Problem, opts SolveOptions) (*SolveResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "SolverService.Solve")
	defer span.End()

	if p == nil {
		return nil, apperror.ErrNilProblem
	}
	span.SetAttributes(telemetry.ProblemAttributes(p.Islands, len(p.Bridges), p.Soldiers)...)

	if err := s.checkLimits(p); err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	if err := p.Validate(); err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	start := time.Now()
	hash := cache.HashProblem(p)
	span.SetAttributes(attribute.String(telemetry.AttrHash, hash))

	if !opts.SkipCache {
		if answer, ok := s.lookup(ctx, p); ok {
			span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
			result := &SolveResult{
				Answer:   answer,
				CacheHit: true,
				Duration: time.Since(start),
				Hash:     hash,
			}
			if s.metrics != nil {
				s.metrics.RecordCachedSolve(outcome(answer), result.Duration)
			}
			result.HistoryID = s.record(ctx, p, result)
			return result, nil
		}
	}
	span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, false))

	solverOpts := algorithms.DefaultSolverOptions().
		WithTimeout(s.cfg.Timeout).
		WithVerifyInvariants(s.cfg.VerifyInvariants)

	solution, err := s.pool.SolvePooled(ctx, p, solverOpts)
	if err != nil {
		s.fail(ctx, p, err, time.Since(start))
		return nil, err
	}

	answer := solution.Answer
	span.SetAttributes(telemetry.SolveAttributes(
		solution.Arcs,
		solution.Iterations,
		solution.Relaxations,
		answer.Feasible,
		answer.TotalCost,
	)...)

	result := &SolveResult{
		Answer:   answer,
		Duration: time.Since(start),
		Hash:     hash,
	}

	if s.metrics != nil {
		s.metrics.RecordSolve(outcome(answer), solution.Duration, p.Soldiers, solution.Iterations)
		s.metrics.RecordGraphSize(p.Islands, solution.Arcs)
	}

	logger.WithContext(ctx).Debug("problem solved",
		"hash", hash,
		"feasible", answer.Feasible,
		"total_cost", answer.TotalCost,
		"augmentations", solution.Iterations,
		"duration", solution.Duration,
	)

	result.HistoryID = s.record(ctx, p, result)

	if s.answers != nil {
		if err := s.answers.Set(ctx, p, answer); err != nil {
			logger.WithContext(ctx).Warn("failed to cache answer", "hash", hash, "error", err)
		}
	}

	return result, nil
}

// History returns the configured repository, or nil.
func (s *SolverService) History() repository.SolveRepository {
	return s.history
}

func (s *SolverService) checkLimits(p *domain.Problem) error {
	l := s.cfg.Limits
	switch {
	case l.MaxIslands > 0 && p.Islands > l.MaxIslands:
		return limitError("islands", p.Islands, l.MaxIslands)
	case l.MaxBridges > 0 && len(p.Bridges) > l.MaxBridges:
		return limitError("bridges", len(p.Bridges), l.MaxBridges)
	case l.MaxSoldiers > 0 && p.Soldiers > l.MaxSoldiers:
		return limitError("soldiers", p.Soldiers, l.MaxSoldiers)
	}
	return nil
}

func limitError(field string, got, limit int) error {
	return apperror.NewWithField(apperror.CodeLimitExceeded,
		"request exceeds the configured limit", field).
		WithDetails("value", got).
		WithDetails("limit", limit)
}

// lookup treats every cache failure as a miss.
func (s *SolverService) lookup(ctx context.Context, p *domain.Problem) (*domain.Answer, bool) {
	if s.answers == nil {
		return nil, false
	}

	cached, hit, err := s.answers.Get(ctx, p)
	switch {
	case err != nil:
		logger.WithContext(ctx).Warn("answer cache lookup failed", "error", err)
		s.recordLookup(metrics.CacheError)
		return nil, false
	case !hit:
		s.recordLookup(metrics.CacheMiss)
		return nil, false
	}

	telemetry.AddEvent(ctx, "cache_hit", attribute.String("computed_at", cached.ComputedAt.Format(time.RFC3339)))
	s.recordLookup(metrics.CacheHit)
	return cached.Answer, true
}

func (s *SolverService) recordLookup(result string) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(result)
	}
}

func (s *SolverService) fail(ctx context.Context, p *domain.Problem, err error, elapsed time.Duration) {
	telemetry.SetError(ctx, err)
	if s.metrics != nil {
		s.metrics.RecordSolve(metrics.OutcomeError, elapsed, p.Soldiers, 0)
	}

	log := logger.WithContext(ctx)
	if apperror.IsCritical(err) {
		log.Error("solver invariant violated",
			"code", apperror.Code(err),
			"islands", p.Islands,
			"bridges", len(p.Bridges),
			"soldiers", p.Soldiers,
			"error", err,
		)
		return
	}
	log.Warn("solve failed", "code", apperror.Code(err), "error", err)
}

// record writes a history entry. Failures are logged and counted only.
func (s *SolverService) record(ctx context.Context, p *domain.Problem, result *SolveResult) uuid.UUID {
	if s.history == nil {
		return uuid.Nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, "SolverService.record", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	a := result.Answer
	rec := &repository.SolveRecord{
		ProblemHash: result.Hash,
		Islands:     p.Islands,
		Bridges:     len(p.Bridges),
		Soldiers:    p.Soldiers,
		Feasible:    a.Feasible,
		TotalCost:   a.TotalCost,
		MeanCost:    a.MeanCost(),
		DurationMs:  float64(result.Duration.Microseconds()) / 1000,
		CacheHit:    result.CacheHit,
		Paths:       a.Paths,
	}

	err := s.history.Save(ctx, rec)
	if s.metrics != nil {
		s.metrics.RecordHistoryWrite(err)
	}
	if err != nil {
		logger.WithContext(ctx).Warn("failed to save solve history", "hash", result.Hash, "error", err)
		return uuid.Nil
	}
	return rec.ID
}

func outcome(a *domain.Answer) string {
	if a.Feasible {
		return metrics.OutcomeFeasible
	}
	return metrics.OutcomeInfeasible
}
