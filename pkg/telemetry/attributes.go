package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	AttrIslands  = "problem.islands"
	AttrBridges  = "problem.bridges"
	AttrSoldiers = "problem.soldiers"
	AttrHash     = "problem.hash"

	AttrArcs          = "graph.arcs"
	AttrAugmentations = "solver.augmentations"
	AttrRelaxations   = "solver.relaxations"
	AttrFeasible      = "solver.feasible"
	AttrTotalCost     = "solver.total_cost"

	AttrCacheHit = "cache.hit"
)

func ProblemAttributes(islands, bridges, soldiers int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrIslands, islands),
		attribute.Int(AttrBridges, bridges),
		attribute.Int(AttrSoldiers, soldiers),
	}
}

func SolveAttributes(arcs, augmentations, relaxations int, feasible bool, totalCost int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrArcs, arcs),
		attribute.Int(AttrAugmentations, augmentations),
		attribute.Int(AttrRelaxations, relaxations),
		attribute.Bool(AttrFeasible, feasible),
		attribute.Int(AttrTotalCost, totalCost),
	}
}
