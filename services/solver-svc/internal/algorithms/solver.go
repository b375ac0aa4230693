// Package algorithms routes soldiers across the island graph at minimum total
// cost.
//
// The core is a successive shortest path min-cost flow specialised for unit
// capacities: every augmentation moves exactly one soldier along the cheapest
// residual path from the first island to the last, possibly cancelling flow
// that earlier soldiers placed on a bridge. After the requested number of
// augmentations the flow is split back into one bridge list per soldier.
//
// # Thread Safety
//
// A ResidualGraph and a Workspace belong to one solve. Solve builds its own
// graph from pooled storage, so concurrent calls with different problems are
// safe. Use SolverPool to bound how many run at once.
//
// # Determinism
//
// Arcs are scanned in bridge input order and labels change only on strict
// improvement, so the same problem always yields the same paths, not merely
// the same cost.
//
// # Context Support
//
// The context is checked before every augmentation. A cancelled solve returns
// an error with code TIMEOUT and no partial answer.
//
// # Example Usage
//
//	problem := &domain.Problem{
//	    Islands:  3,
//	    Soldiers: 2,
//	    Bridges:  []domain.Bridge{{From: 1, To: 2, Cost: 1}, {From: 2, To: 3, Cost: 1}, {From: 1, To: 3, Cost: 10}},
//	}
//
//	solution, err := algorithms.Solve(ctx, problem, nil)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(solution.Answer.MeanCost()) // 6
package algorithms

import (
	"context"
	"errors"
	"runtime"
	"time"

	"islandflow/pkg/apperror"
	"islandflow/pkg/domain"
	"islandflow/services/solver-svc/internal/graph"
)

// =============================================================================
// Error Definitions
// =============================================================================

var (
	// ErrNilGraph indicates that a nil graph was passed to a solver function.
	ErrNilGraph = errors.New("graph is nil")
)

// =============================================================================
// Solver Options
// =============================================================================

// SolverOptions configures a solve.
//
// Options can be chained:
//
//	opts := DefaultSolverOptions().
//	    WithTimeout(10 * time.Second).
//	    WithVerifyInvariants(true)
type SolverOptions struct {
	// VerifyInvariants runs the mirror, capacity and conservation checks
	// after every augmentation. It is quadratic overall and meant for tests
	// and debugging.
	VerifyInvariants bool

	// Timeout bounds the whole solve. Zero relies on the caller's context.
	Timeout time.Duration

	// Pool supplies graphs and workspaces. Nil means the global pool.
	Pool *graph.GraphPool
}

// DefaultSolverOptions returns options with invariant checks off, no timeout
// and the global pool.
func DefaultSolverOptions() *SolverOptions {
	return &SolverOptions{
		Pool: graph.GetPool(),
	}
}

func (o *SolverOptions) WithTimeout(timeout time.Duration) *SolverOptions {
	o.Timeout = timeout
	return o
}

func (o *SolverOptions) WithVerifyInvariants(verify bool) *SolverOptions {
	o.VerifyInvariants = verify
	return o
}

func (o *SolverOptions) pool() *graph.GraphPool {
	if o.Pool == nil {
		return graph.GetPool()
	}
	return o.Pool
}

// =============================================================================
// Solve
// =============================================================================

// Solution is a finished solve.
type Solution struct {
	Answer *domain.Answer

	// Graph size, for metrics and tracing.
	Arcs int

	Iterations  int
	Relaxations int
	Duration    time.Duration
}

// Solve validates problem, builds its residual graph and routes every
// soldier from island 1 to island N.
//
// Input problems come back as errors with input codes. An infeasible problem
// is a successful solve whose Answer has Feasible false.
func Solve(ctx context.Context, problem *domain.Problem, options *SolverOptions) (*Solution, error) {
	if options == nil {
		options = DefaultSolverOptions()
	}
	if err := problem.Validate(); err != nil {
		return nil, err
	}

	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	start := time.Now()

	if problem.Soldiers > 0 && !domain.Reachable(problem) {
		return &Solution{
			Answer:   domain.Infeasible(problem.Soldiers),
			Arcs:     4 * len(problem.Bridges),
			Duration: time.Since(start),
		}, nil
	}

	pool := options.pool()
	g := pool.AcquireGraph(problem.Islands)
	defer pool.ReleaseGraph(g)

	if err := g.AddBridges(problem.Bridges); err != nil {
		return nil, err
	}
	arcs := g.ArcCount()

	flow, err := MinCostFlow(ctx, g, problem.Source(), problem.Sink(), problem.Soldiers, options)
	if err != nil {
		return nil, err
	}

	answer := domain.Infeasible(problem.Soldiers)
	if flow.Feasible {
		answer = &domain.Answer{
			Feasible:  true,
			Soldiers:  problem.Soldiers,
			TotalCost: flow.Cost,
			Paths:     flow.Paths,
		}
		if options.VerifyInvariants {
			if err := VerifyAnswer(problem, answer); err != nil {
				return nil, err
			}
		}
	}

	return &Solution{
		Answer:      answer,
		Arcs:        arcs,
		Iterations:  flow.Iterations,
		Relaxations: flow.Relaxations,
		Duration:    time.Since(start),
	}, nil
}

// VerifyAnswer checks a feasible answer against its problem: one path per
// soldier, every path walks from the source to the sink, and the path costs
// add up to TotalCost.
func VerifyAnswer(problem *domain.Problem, answer *domain.Answer) error {
	if len(answer.Paths) != problem.Soldiers {
		return apperror.Invariantf("answer has %d paths for %d soldiers", len(answer.Paths), problem.Soldiers)
	}

	total := 0
	for unit, path := range answer.Paths {
		if _, err := domain.TracePath(problem, path); err != nil {
			return apperror.Invariantf("path of soldier %d is broken: %v", unit, err)
		}
		cost, err := problem.PathCost(path)
		if err != nil {
			return apperror.Invariantf("path of soldier %d is broken: %v", unit, err)
		}
		total += cost
	}

	if total != answer.TotalCost {
		return apperror.Invariantf("paths cost %d, answer reports %d", total, answer.TotalCost)
	}
	return nil
}

// =============================================================================
// Solver Pool
// =============================================================================

// SolverPool bounds the number of solves running at once.
//
//	pool := NewSolverPool(runtime.NumCPU())
//	solution, err := pool.SolvePooled(ctx, problem, nil)
type SolverPool struct {
	graphPool *graph.GraphPool
	workers   chan struct{}
}

// NewSolverPool creates a pool of maxConcurrency slots. Zero or less means
// one slot per CPU.
func NewSolverPool(maxConcurrency int) *SolverPool {
	if maxConcurrency <= 0 {
		maxConcurrency = runtime.NumCPU()
	}
	return &SolverPool{
		graphPool: graph.GetPool(),
		workers:   make(chan struct{}, maxConcurrency),
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (sp *SolverPool) Acquire(ctx context.Context) error {
	select {
	case sp.workers <- struct{}{}:
		return nil
	case <-ctx.Done():
		return apperror.Wrap(ctx.Err(), apperror.CodeTimeout, "waiting for a solver slot")
	}
}

// Release returns a slot taken by Acquire.
func (sp *SolverPool) Release() {
	<-sp.workers
}

// Capacity is the number of slots.
func (sp *SolverPool) Capacity() int {
	return cap(sp.workers)
}

// InUse is the number of slots currently taken.
func (sp *SolverPool) InUse() int {
	return len(sp.workers)
}

// SolvePooled runs Solve inside a slot.
func (sp *SolverPool) SolvePooled(ctx context.Context, problem *domain.Problem, options *SolverOptions) (*Solution, error) {
	if err := sp.Acquire(ctx); err != nil {
		return nil, err
	}
	defer sp.Release()

	if options == nil {
		options = DefaultSolverOptions()
	}
	opts := *options
	opts.Pool = sp.graphPool

	return Solve(ctx, problem, &opts)
}
