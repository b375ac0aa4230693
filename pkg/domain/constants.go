package domain

import "math"

const (
	// Infinity is the distance label of an island not yet reached. It leaves
	// headroom so that adding a bridge cost to a finite label cannot overflow.
	Infinity = math.MaxInt >> 2

	// BridgeCapacity is the number of soldiers a bridge carries per direction.
	BridgeCapacity = 1

	// InfeasibleToken is the whole text answer when not every soldier can cross.
	InfeasibleToken = "-1"

	// SourceIsland is the zero-based island every soldier starts on.
	SourceIsland = 0
)
