package domain

import (
	"islandflow/pkg/apperror"
)

// TracePath follows a 1-indexed bridge sequence from the source and returns
// the zero-based islands visited, source first. The walk must end on the sink.
func TracePath(p *Problem, path []int) ([]int, error) {
	current := p.Source()
	islands := make([]int, 0, len(path)+1)
	islands = append(islands, current)

	for step, number := range path {
		if number < 1 || number > len(p.Bridges) {
			return nil, apperror.Newf(apperror.CodeInvalidArgument,
				"step %d uses bridge %d which does not exist", step, number)
		}

		b := p.Bridges[number-1]
		switch current {
		case b.From - 1:
			current = b.To - 1
		case b.To - 1:
			current = b.From - 1
		default:
			return nil, apperror.Newf(apperror.CodeInvalidArgument,
				"step %d uses bridge %d which does not touch island %d", step, number, current+1)
		}
		islands = append(islands, current)
	}

	if current != p.Sink() {
		return nil, apperror.Newf(apperror.CodeInvalidArgument,
			"path ends on island %d, not on the sink %d", current+1, p.Sink()+1)
	}

	return islands, nil
}
