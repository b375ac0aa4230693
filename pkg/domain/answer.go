package domain

// Answer is the outcome of a solve. An infeasible answer is a valid answer.
type Answer struct {
	Feasible  bool `json:"feasible"`
	Soldiers  int  `json:"soldiers"`
	TotalCost int  `json:"total_cost"`
	// Paths holds one 1-indexed bridge sequence per soldier, in routing order.
	Paths [][]int `json:"paths,omitempty"`
}

// Infeasible is the answer for a problem where not every soldier can cross.
func Infeasible(soldiers int) *Answer {
	return &Answer{Feasible: false, Soldiers: soldiers}
}

// MeanCost is the average cost per soldier, 0 when there are no soldiers.
func (a *Answer) MeanCost() float64 {
	if a.Soldiers == 0 {
		return 0
	}
	return float64(a.TotalCost) / float64(a.Soldiers)
}
