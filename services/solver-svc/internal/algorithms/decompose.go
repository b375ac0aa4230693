package algorithms

import (
	"islandflow/pkg/apperror"
	"islandflow/services/solver-svc/internal/graph"
)

// Decompose splits the flow in g into units source-to-sink paths and returns
// each as a list of 1-based bridge numbers.
//
// A walk starts at source and repeatedly takes the first arc, in adjacency
// order, that carries positive flow. The arc's flow is cleared as it is taken
// so no unit of flow is used twice; mirrors are left untouched and g is no
// longer a consistent residual graph afterwards.
//
// Running out of arcs before reaching sink means flow was not conserved.
func Decompose(g *graph.ResidualGraph, source, sink, units int) ([][]int, error) {
	n := g.NodeCount()
	if source < 0 || source >= n || sink < 0 || sink >= n {
		return nil, apperror.Invariantf("source %d or sink %d outside [0, %d)", source, sink, n)
	}

	paths := make([][]int, 0, units)
	limit := g.ArcCount()

	for unit := 0; unit < units; unit++ {
		path := []int{}

		for current := source; current != sink; {
			if len(path) > limit {
				return nil, apperror.Invariantf("path %d is longer than the arc count %d", unit+1, limit)
			}

			next, bridge, ok := takeFlowArc(g, current)
			if !ok {
				return nil, apperror.NewCritical(apperror.CodeConservationViolation,
					"flow stops before reaching the sink").
					WithDetails("unit", unit+1).
					WithDetails("island", current+1)
			}

			path = append(path, bridge+1)
			current = next
		}

		paths = append(paths, path)
	}

	return paths, nil
}

// takeFlowArc clears the first arc leaving node with positive flow and
// returns where it leads and which bridge it belongs to.
func takeFlowArc(g *graph.ResidualGraph, node int) (to, bridge int, ok bool) {
	arcs := g.Arcs(node)
	for i := range arcs {
		if arcs[i].Flow > 0 {
			arcs[i].Flow = 0
			return arcs[i].To, arcs[i].Bridge, true
		}
	}
	return 0, 0, false
}
