package graph

import (
	"sync"
)

// =============================================================================
// Graph Pool
// =============================================================================

// GraphPool recycles residual graphs and search workspaces between solves.
//
// A value taken from the pool is owned exclusively by the caller until it is
// released, which keeps the one-graph-per-solve rule intact under concurrent
// requests. The pool itself is safe for concurrent use.
type GraphPool struct {
	graphs     sync.Pool
	workspaces sync.Pool
}

var globalPool = &GraphPool{
	graphs: sync.Pool{
		New: func() any {
			return &ResidualGraph{}
		},
	},
	workspaces: sync.Pool{
		New: func() any {
			return &Workspace{}
		},
	},
}

// GetPool returns the process-wide pool.
func GetPool() *GraphPool {
	return globalPool
}

// AcquireGraph returns an empty graph over islands nodes.
func (p *GraphPool) AcquireGraph(islands int) *ResidualGraph {
	g := p.graphs.Get().(*ResidualGraph)
	g.Reset(islands)
	return g
}

// ReleaseGraph returns g to the pool. g must not be used afterwards.
// It is safe to pass nil.
func (p *GraphPool) ReleaseGraph(g *ResidualGraph) {
	if g == nil {
		return
	}
	g.Reset(0)
	p.graphs.Put(g)
}

// AcquireWorkspace returns a workspace sized for islands nodes.
func (p *GraphPool) AcquireWorkspace(islands int) *Workspace {
	ws := p.workspaces.Get().(*Workspace)
	ws.Resize(islands)
	return ws
}

// ReleaseWorkspace returns ws to the pool. It is safe to pass nil.
func (p *GraphPool) ReleaseWorkspace(ws *Workspace) {
	if ws == nil {
		return
	}
	p.workspaces.Put(ws)
}

// =============================================================================
// Workspace
// =============================================================================

// Status is the queue state of a node during a shortest path search.
type Status uint8

const (
	NotProcessed Status = iota
	InProcess
	Processed
)

// Workspace holds the per-node labels of one shortest path search.
// ParentNode and ParentArc describe how each node was last reached:
// the arc is ParentArc-th in the adjacency list of ParentNode. Hops is the
// number of arcs on the walk behind the current label.
type Workspace struct {
	Dist       []int
	Hops       []int
	Status     []Status
	ParentNode []int
	ParentArc  []int
}

// Resize makes every slice exactly n long. Contents are unspecified until
// Reset is called.
func (ws *Workspace) Resize(n int) {
	ws.Dist = resize(ws.Dist, n)
	ws.Hops = resize(ws.Hops, n)
	ws.Status = resize(ws.Status, n)
	ws.ParentNode = resize(ws.ParentNode, n)
	ws.ParentArc = resize(ws.ParentArc, n)
}

// Reset labels every node unreached at distance inf.
func (ws *Workspace) Reset(inf int) {
	for i := range ws.Dist {
		ws.Dist[i] = inf
		ws.Hops[i] = 0
		ws.Status[i] = NotProcessed
		ws.ParentNode[i] = -1
		ws.ParentArc[i] = -1
	}
}

// Len is the number of nodes the workspace covers.
func (ws *Workspace) Len() int {
	return len(ws.Dist)
}

func resize[T any](s []T, n int) []T {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]T, n)
}
