package algorithms

import (
	"github.com/gammazero/deque"

	"islandflow/pkg/apperror"
	"islandflow/pkg/domain"
	"islandflow/services/solver-svc/internal/graph"
)

// SearchStats counts the work done by one shortest path search.
type SearchStats struct {
	Pops        int
	Relaxations int
}

// ShortestPaths labels every node of g with its cheapest residual distance
// from source, writing distances and parents into ws.
//
// The search is a label-correcting one driven by a double-ended queue. A node
// improved for the first time joins the back of the queue. A node improved
// after it was already scanned jumps to the front, so its new label spreads
// before stale ones are used. A node still waiting in the queue keeps its
// place. Arcs are relaxed in adjacency order and only on strict improvement,
// which fixes the parent labels, and therefore the chosen path, for a given
// graph.
//
// Mirror arcs carry negative costs, so labels may be corrected several times.
// Every label belongs to a walk whose length is kept in ws.Hops; a walk with
// as many arcs as there are nodes must repeat a node, and in a residual graph
// of a minimum-cost flow that can only happen around a negative cycle. Such a
// cycle is reported as an invariant violation instead of looping forever.
func ShortestPaths(g *graph.ResidualGraph, ws *graph.Workspace, source int) (SearchStats, error) {
	var stats SearchStats

	n := g.NodeCount()
	if source < 0 || source >= n {
		return stats, apperror.Invariantf("source %d outside [0, %d)", source, n)
	}
	if ws.Len() != n {
		ws.Resize(n)
	}
	ws.Reset(domain.Infinity)

	queue := deque.New[int]()
	ws.Dist[source] = 0
	ws.Status[source] = graph.InProcess
	queue.PushBack(source)

	for queue.Len() > 0 {
		u := queue.PopFront()
		ws.Status[u] = graph.Processed
		stats.Pops++

		arcs := g.Arcs(u)
		for i := range arcs {
			a := &arcs[i]
			if !a.HasCapacity() {
				continue
			}

			v := a.To
			candidate := ws.Dist[u] + a.Cost
			if candidate >= ws.Dist[v] {
				continue
			}

			hops := ws.Hops[u] + 1
			if hops >= n {
				return stats, apperror.NewCritical(apperror.CodeNegativeCycle,
					"residual graph contains a negative cycle").
					WithDetails("node", v).
					WithDetails("bridge", a.Bridge)
			}

			ws.Dist[v] = candidate
			ws.Hops[v] = hops
			ws.ParentNode[v] = u
			ws.ParentArc[v] = i
			stats.Relaxations++

			switch ws.Status[v] {
			case graph.NotProcessed:
				queue.PushBack(v)
			case graph.Processed:
				queue.PushFront(v)
			case graph.InProcess:
				continue
			}
			ws.Status[v] = graph.InProcess
		}
	}

	return stats, nil
}

// Reachable reports whether the last search in ws reached node.
func Reachable(ws *graph.Workspace, node int) bool {
	return node >= 0 && node < ws.Len() && ws.Dist[node] < domain.Infinity
}
