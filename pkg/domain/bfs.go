package domain

// Reachable reports whether the sink can be reached from the source over
// bridges in either direction, ignoring capacities. An unreachable sink means
// a problem with soldiers is infeasible without building a residual graph.
func Reachable(p *Problem) bool {
	source, sink := p.Source(), p.Sink()
	if source == sink {
		return true
	}

	adj := make([][]int, p.Islands)
	for _, b := range p.Bridges {
		from, to := b.From-1, b.To-1
		adj[from] = append(adj[from], to)
		adj[to] = append(adj[to], from)
	}

	visited := make([]bool, p.Islands)
	visited[source] = true
	queue := []int{source}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]

		for _, v := range adj[u] {
			if visited[v] {
				continue
			}
			if v == sink {
				return true
			}
			visited[v] = true
			queue = append(queue, v)
		}
	}

	return false
}
