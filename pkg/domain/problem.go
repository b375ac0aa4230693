package domain

import (
	"fmt"

	"islandflow/pkg/apperror"
)

// Bridge is an input link between two islands. Islands are 1-indexed, as
// read from the input.
type Bridge struct {
	From int `json:"from"`
	To   int `json:"to"`
	Cost int `json:"cost"`
}

// Problem is one routing request: move Soldiers units from island 1 to
// island Islands over Bridges.
type Problem struct {
	Islands  int      `json:"islands"`
	Soldiers int      `json:"soldiers"`
	Bridges  []Bridge `json:"bridges"`
}

// Source is the zero-based source island.
func (p *Problem) Source() int {
	return SourceIsland
}

// Sink is the zero-based sink island.
func (p *Problem) Sink() int {
	return p.Islands - 1
}

// Check collects every input problem. Self-loops are reported as warnings:
// they are legal but can never carry a soldier anywhere.
func (p *Problem) Check() *apperror.ValidationErrors {
	v := apperror.NewValidationErrors()

	if p.Islands < 1 {
		v.AddErrorWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("islands must be at least 1, got %d", p.Islands), "islands")
	}
	if p.Soldiers < 0 {
		v.AddErrorWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("soldiers must be non-negative, got %d", p.Soldiers), "soldiers")
	}

	for i, b := range p.Bridges {
		if b.From < 1 || b.From > p.Islands {
			v.AddErrorWithField(apperror.CodeInvalidIsland,
				fmt.Sprintf("bridge %d starts at island %d, want 1..%d", i+1, b.From, p.Islands),
				fmt.Sprintf("bridges[%d].from", i))
		}
		if b.To < 1 || b.To > p.Islands {
			v.AddErrorWithField(apperror.CodeInvalidIsland,
				fmt.Sprintf("bridge %d ends at island %d, want 1..%d", i+1, b.To, p.Islands),
				fmt.Sprintf("bridges[%d].to", i))
		}
		if b.Cost < 0 {
			v.AddErrorWithField(apperror.CodeNegativeCost,
				fmt.Sprintf("bridge %d has negative cost %d", i+1, b.Cost),
				fmt.Sprintf("bridges[%d].cost", i))
		}
		if b.From == b.To {
			v.AddWarning(apperror.CodeInvalidInput, fmt.Sprintf("bridge %d is a self-loop", i+1))
		}
	}

	return v
}

// Validate returns the first error found by Check, or nil.
func (p *Problem) Validate() error {
	if p == nil {
		return apperror.ErrNilProblem
	}
	if first := p.Check().First(); first != nil {
		return first
	}
	return nil
}

// PathCost sums the costs of the 1-indexed bridge numbers in path.
func (p *Problem) PathCost(path []int) (int, error) {
	total := 0
	for _, number := range path {
		if number < 1 || number > len(p.Bridges) {
			return 0, apperror.Newf(apperror.CodeInvalidArgument, "bridge %d does not exist", number)
		}
		total += p.Bridges[number-1].Cost
	}
	return total, nil
}
