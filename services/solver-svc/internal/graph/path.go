package graph

import (
	"islandflow/pkg/apperror"
)

// Step is one arc of a path, addressed as the Arc-th arc leaving Node.
type Step struct {
	Node int
	Arc  int
}

// ParentChain walks the parent labels of ws from sink back to source and
// returns the arcs in sink-to-source order. An empty chain means sink equals
// source.
//
// A chain that breaks off or runs longer than the node count cannot come from
// a finished search and is reported as an invariant violation.
func ParentChain(ws *Workspace, source, sink int) ([]Step, error) {
	n := ws.Len()
	if source < 0 || source >= n || sink < 0 || sink >= n {
		return nil, apperror.Invariantf("source %d or sink %d outside [0, %d)", source, sink, n)
	}

	var chain []Step
	for current := sink; current != source; {
		if len(chain) >= n {
			return nil, apperror.Invariantf("parent chain from %d does not reach source %d", sink, source)
		}

		parent := ws.ParentNode[current]
		if parent < 0 || parent >= n {
			return nil, apperror.Invariantf("node %d has no parent on the way to source %d", current, source)
		}

		chain = append(chain, Step{Node: parent, Arc: ws.ParentArc[current]})
		current = parent
	}

	return chain, nil
}
