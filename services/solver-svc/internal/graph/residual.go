// Package graph provides the residual graph the solver routes soldiers through.
//
// Every bridge of a problem expands into four arcs stored in per-island
// adjacency lists. Arcs refer to their mirrors by index, never by pointer, so
// a graph can be copied, pooled and reset without fixing up references.
package graph

import (
	"islandflow/pkg/apperror"
	"islandflow/pkg/domain"
)

// =============================================================================
// Arc
// =============================================================================

// Arc is one directed edge of the residual graph.
//
// A bridge (u, v, c) produces two arc pairs:
//   - forward u->v (capacity 1, cost c) and its mirror v->u (capacity 0, cost -c)
//   - forward v->u (capacity 1, cost c) and its mirror u->v (capacity 0, cost -c)
//
// Pushing a unit along an arc raises its Flow by one and lowers its mirror's
// Flow by one, so a mirror with negative Flow has residual capacity and can
// cancel a unit that was sent the other way.
type Arc struct {
	From     int
	To       int
	Capacity int
	Cost     int
	Flow     int

	// Mirror is the index of the paired arc in the adjacency list of To.
	Mirror int

	// Bridge is the zero-based input index of the bridge this arc came from.
	Bridge int
}

// HasCapacity reports whether the arc can carry another unit.
func (a *Arc) HasCapacity() bool {
	return a.Flow < a.Capacity
}

// IsMirror reports whether the arc exists only to carry back-flow.
func (a *Arc) IsMirror() bool {
	return a.Capacity == 0
}

// =============================================================================
// Residual Graph
// =============================================================================

// ResidualGraph is an arena of arcs indexed by island.
//
// Adjacency order is insertion order. Path decomposition relies on it to pick
// the same path for the same input every time.
//
// A ResidualGraph belongs to exactly one solve. It is not safe for concurrent
// use and must not be shared between solves without Reset.
type ResidualGraph struct {
	adj     [][]Arc
	arcs    int
	bridges int
}

// New returns an empty graph over islands zero-based nodes.
func New(islands int) *ResidualGraph {
	return &ResidualGraph{adj: make([][]Arc, islands)}
}

// Build expands 1-indexed input bridges into a new residual graph. Bridge
// numbers are the positions in bridges.
func Build(islands int, bridges []domain.Bridge) (*ResidualGraph, error) {
	g := New(islands)
	if err := g.AddBridges(bridges); err != nil {
		return nil, err
	}
	return g, nil
}

// AddBridges appends 1-indexed bridges in order, numbering them from the
// current bridge count.
func (g *ResidualGraph) AddBridges(bridges []domain.Bridge) error {
	for _, b := range bridges {
		if err := g.AddBridge(g.bridges, b.From-1, b.To-1, b.Cost); err != nil {
			return err
		}
	}
	return nil
}

// AddBridge adds the four arcs of a bridge between zero-based islands.
//
// Indices outside the graph are an internal invariant violation: callers are
// expected to have validated the problem already.
func (g *ResidualGraph) AddBridge(number, from, to, cost int) error {
	if !g.hasNode(from) || !g.hasNode(to) {
		return apperror.Invariantf("bridge %d connects islands %d and %d outside [0, %d)",
			number, from, to, len(g.adj)).
			WithDetails("bridge", number)
	}

	g.addArcPair(number, from, to, cost)
	g.addArcPair(number, to, from, cost)
	g.bridges++

	return nil
}

// addArcPair appends a forward arc to adj[from] and its mirror to adj[to].
// Each mirror index is the target list's length at insertion time. For a
// self-loop both arcs land in the same list, so the forward arc's mirror sits
// one slot after it.
func (g *ResidualGraph) addArcPair(number, from, to, cost int) {
	forward := Arc{
		From:     from,
		To:       to,
		Capacity: domain.BridgeCapacity,
		Cost:     cost,
		Mirror:   len(g.adj[to]),
		Bridge:   number,
	}
	if from == to {
		forward.Mirror++
	}

	mirror := Arc{
		From:     to,
		To:       from,
		Capacity: 0,
		Cost:     -cost,
		Mirror:   len(g.adj[from]),
		Bridge:   number,
	}

	g.adj[from] = append(g.adj[from], forward)
	g.adj[to] = append(g.adj[to], mirror)
	g.arcs += 2
}

// =============================================================================
// Access
// =============================================================================

// NodeCount returns the number of islands.
func (g *ResidualGraph) NodeCount() int {
	return len(g.adj)
}

// ArcCount returns the number of arcs, four per bridge.
func (g *ResidualGraph) ArcCount() int {
	return g.arcs
}

// BridgeCount returns the number of bridges added.
func (g *ResidualGraph) BridgeCount() int {
	return g.bridges
}

// Arcs returns the adjacency list of node. The slice aliases the graph:
// writes through it change the graph. Out-of-range nodes yield nil.
func (g *ResidualGraph) Arcs(node int) []Arc {
	if !g.hasNode(node) {
		return nil
	}
	return g.adj[node]
}

// Arc returns a pointer to the index-th arc leaving node.
func (g *ResidualGraph) Arc(node, index int) (*Arc, error) {
	if !g.hasNode(node) {
		return nil, apperror.Invariantf("node %d outside [0, %d)", node, len(g.adj))
	}
	if index < 0 || index >= len(g.adj[node]) {
		return nil, apperror.Invariantf("arc %d outside adjacency of node %d (len %d)",
			index, node, len(g.adj[node]))
	}
	return &g.adj[node][index], nil
}

// Mirror returns the paired arc of a.
func (g *ResidualGraph) Mirror(a *Arc) (*Arc, error) {
	m, err := g.Arc(a.To, a.Mirror)
	if err != nil {
		return nil, err
	}
	if m.Mirror < 0 || m.Mirror >= len(g.adj[m.To]) || &g.adj[m.To][m.Mirror] != a {
		return nil, apperror.Invariantf("arc %d->%d (bridge %d) and its mirror do not point at each other",
			a.From, a.To, a.Bridge)
	}
	return m, nil
}

// Push moves delta units along the index-th arc of node and the opposite
// amount along its mirror. It returns the cost of the move.
func (g *ResidualGraph) Push(node, index, delta int) (int, error) {
	a, err := g.Arc(node, index)
	if err != nil {
		return 0, err
	}
	m, err := g.Mirror(a)
	if err != nil {
		return 0, err
	}

	a.Flow += delta
	m.Flow -= delta

	return a.Cost * delta, nil
}

// ForEachArc calls fn for every arc, by node and then by insertion order.
func (g *ResidualGraph) ForEachArc(fn func(node, index int, a *Arc)) {
	for u := range g.adj {
		for i := range g.adj[u] {
			fn(u, i, &g.adj[u][i])
		}
	}
}

// =============================================================================
// Lifecycle
// =============================================================================

// Reset drops all arcs and resizes the graph to islands nodes, keeping the
// allocated adjacency storage where possible.
func (g *ResidualGraph) Reset(islands int) {
	if cap(g.adj) >= islands {
		g.adj = g.adj[:islands]
	} else {
		g.adj = make([][]Arc, islands)
	}
	for u := range g.adj {
		g.adj[u] = g.adj[u][:0]
	}
	g.arcs = 0
	g.bridges = 0
}

func (g *ResidualGraph) hasNode(node int) bool {
	return node >= 0 && node < len(g.adj)
}
