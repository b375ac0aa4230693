package algorithms

import (
	"islandflow/pkg/apperror"
	"islandflow/services/solver-svc/internal/graph"
)

// Augment sends one unit from source to sink along the parent chain left in
// ws by the last search and returns the cost of the path.
//
// Each arc on the chain must end where the next one starts and must still
// have residual capacity; anything else means ws and g have drifted apart.
func Augment(g *graph.ResidualGraph, ws *graph.Workspace, source, sink int) (int, error) {
	chain, err := graph.ParentChain(ws, source, sink)
	if err != nil {
		return 0, err
	}

	total := 0
	child := sink
	for _, step := range chain {
		a, err := g.Arc(step.Node, step.Arc)
		if err != nil {
			return 0, err
		}
		if a.To != child {
			return 0, apperror.Invariantf("parent arc of node %d leads to %d", child, a.To)
		}
		if !a.HasCapacity() {
			return 0, apperror.Invariantf("arc %d->%d (bridge %d) is saturated",
				a.From, a.To, a.Bridge+1)
		}

		cost, err := g.Push(step.Node, step.Arc, 1)
		if err != nil {
			return 0, err
		}
		total += cost
		child = step.Node
	}

	return total, nil
}
