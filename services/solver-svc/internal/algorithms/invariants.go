package algorithms

import (
	"islandflow/pkg/apperror"
	"islandflow/services/solver-svc/internal/graph"
)

// CheckMirrorSymmetry verifies that every arc and its mirror point at each
// other and carry opposite flow.
func CheckMirrorSymmetry(g *graph.ResidualGraph) error {
	var firstErr error
	g.ForEachArc(func(node, index int, a *graph.Arc) {
		if firstErr != nil {
			return
		}
		m, err := g.Mirror(a)
		if err != nil {
			firstErr = err
			return
		}
		if a.Flow+m.Flow != 0 {
			firstErr = apperror.Invariantf("arc %d->%d (bridge %d) has flow %d but its mirror has %d",
				a.From, a.To, a.Bridge+1, a.Flow, m.Flow)
		}
	})
	return firstErr
}

// CheckCapacity verifies that no arc carries more than its capacity and that
// forward arcs never carry negative flow.
func CheckCapacity(g *graph.ResidualGraph) error {
	var firstErr error
	g.ForEachArc(func(node, index int, a *graph.Arc) {
		if firstErr != nil {
			return
		}
		if a.Flow > a.Capacity {
			firstErr = apperror.Invariantf("arc %d->%d (bridge %d) carries %d over capacity %d",
				a.From, a.To, a.Bridge+1, a.Flow, a.Capacity)
			return
		}
		if !a.IsMirror() && a.Flow < 0 {
			firstErr = apperror.Invariantf("arc %d->%d (bridge %d) carries negative flow %d",
				a.From, a.To, a.Bridge+1, a.Flow)
		}
	})
	return firstErr
}

// CheckConservation verifies that every island other than source and sink
// passes on exactly what it receives, and that flow units leave source and
// arrive at sink.
func CheckConservation(g *graph.ResidualGraph, source, sink, flow int) error {
	n := g.NodeCount()
	for u := 0; u < n; u++ {
		net := 0
		for _, a := range g.Arcs(u) {
			net += a.Flow
		}

		want := 0
		if source != sink {
			switch u {
			case source:
				want = flow
			case sink:
				want = -flow
			}
		}

		if net != want {
			return apperror.NewCritical(apperror.CodeConservationViolation,
				"net outflow does not match").
				WithDetails("island", u+1).
				WithDetails("net", net).
				WithDetails("expected", want)
		}
	}
	return nil
}

// CheckInvariants runs every structural check on g.
func CheckInvariants(g *graph.ResidualGraph, source, sink, flow int) error {
	if err := CheckMirrorSymmetry(g); err != nil {
		return err
	}
	if err := CheckCapacity(g); err != nil {
		return err
	}
	return CheckConservation(g, source, sink, flow)
}
