package algorithms

import (
	"context"

	"islandflow/pkg/apperror"
	"islandflow/services/solver-svc/internal/graph"
)

// MinCostFlowResult is the outcome of routing a fixed number of units.
type MinCostFlowResult struct {
	// Feasible is false when fewer than the requested units could be routed.
	Feasible bool

	// Flow is the number of units routed, which equals the request when
	// Feasible is set.
	Flow int

	// Cost is the summed cost of every augmenting path.
	Cost int

	// Iterations counts augmentations.
	Iterations int

	// Relaxations counts label improvements over all searches.
	Relaxations int

	// Paths holds one list of 1-based bridge numbers per unit. It is only
	// filled when Feasible is set.
	Paths [][]int
}

// MeanCost is Cost divided by Flow, or zero when nothing was routed.
func (r *MinCostFlowResult) MeanCost() float64 {
	if r.Flow == 0 {
		return 0
	}
	return float64(r.Cost) / float64(r.Flow)
}

// MinCostFlow routes units from source to sink through g at minimum total
// cost, one unit per augmentation along a cheapest residual path.
//
// Each augmentation keeps the flow optimal for its value, so the cost after
// the last one is the optimum for units. If sink stops being reachable early
// the result reports Feasible false; that is an answer, not an error. Errors
// are reserved for cancellation and broken invariants.
//
// g is consumed: on success its flow has been decomposed into Paths and its
// arcs no longer describe a valid flow.
func MinCostFlow(ctx context.Context, g *graph.ResidualGraph, source, sink, units int, options *SolverOptions) (*MinCostFlowResult, error) {
	if options == nil {
		options = DefaultSolverOptions()
	}
	if g == nil {
		return nil, ErrNilGraph
	}

	n := g.NodeCount()
	if source < 0 || source >= n || sink < 0 || sink >= n {
		return nil, apperror.Invariantf("source %d or sink %d outside [0, %d)", source, sink, n)
	}
	if units < 0 {
		return nil, apperror.Newf(apperror.CodeInvalidArgument, "cannot route %d units", units)
	}

	result := &MinCostFlowResult{}

	if source == sink {
		result.Feasible = true
		result.Flow = units
		result.Paths = make([][]int, units)
		for i := range result.Paths {
			result.Paths[i] = []int{}
		}
		return result, nil
	}

	pool := options.pool()
	ws := pool.AcquireWorkspace(n)
	defer pool.ReleaseWorkspace(ws)

	for result.Flow < units {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}

		stats, err := ShortestPaths(g, ws, source)
		if err != nil {
			return nil, err
		}
		result.Relaxations += stats.Relaxations

		if !Reachable(ws, sink) {
			return result, nil
		}

		cost, err := Augment(g, ws, source, sink)
		if err != nil {
			return nil, err
		}

		result.Flow++
		result.Cost += cost
		result.Iterations++

		if options.VerifyInvariants {
			if err := CheckInvariants(g, source, sink, result.Flow); err != nil {
				return nil, err
			}
		}
	}

	paths, err := Decompose(g, source, sink, units)
	if err != nil {
		return nil, err
	}

	result.Feasible = true
	result.Paths = paths

	return result, nil
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return apperror.Wrap(ctx.Err(), apperror.CodeTimeout, "solve interrupted")
	default:
		return nil
	}
}
