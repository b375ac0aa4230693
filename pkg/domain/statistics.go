package domain

// AnswerStatistics summarises the paths of a feasible answer.
type AnswerStatistics struct {
	Paths           int `json:"paths"`
	TotalCrossings  int `json:"total_crossings"`
	LongestPath     int `json:"longest_path"`
	ShortestPath    int `json:"shortest_path"`
	DistinctBridges int `json:"distinct_bridges"`
	// ReusedBridges counts bridges crossed by more than one soldier, which
	// happens only when they cross in opposite directions.
	ReusedBridges int `json:"reused_bridges"`
}

// CalculateAnswerStatistics is zero-valued for infeasible answers.
func CalculateAnswerStatistics(a *Answer) *AnswerStatistics {
	stats := &AnswerStatistics{}
	if a == nil || !a.Feasible || len(a.Paths) == 0 {
		return stats
	}

	uses := make(map[int]int)
	stats.Paths = len(a.Paths)
	stats.ShortestPath = len(a.Paths[0])

	for _, path := range a.Paths {
		stats.TotalCrossings += len(path)
		if len(path) > stats.LongestPath {
			stats.LongestPath = len(path)
		}
		if len(path) < stats.ShortestPath {
			stats.ShortestPath = len(path)
		}
		for _, number := range path {
			uses[number]++
		}
	}

	stats.DistinctBridges = len(uses)
	for _, n := range uses {
		if n > 1 {
			stats.ReusedBridges++
		}
	}

	return stats
}
