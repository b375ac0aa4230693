package algorithms

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"islandflow/pkg/domain"
)

// =============================================================================
// PROBLEM GENERATORS
// =============================================================================

// generateGridProblem lays n*n islands on a grid with a bridge to the right
// and one downwards from every island.
func generateGridProblem(n, soldiers int) *domain.Problem {
	var bridges []domain.Bridge
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			id := i*n + j + 1
			if j < n-1 {
				bridges = append(bridges, domain.Bridge{From: id, To: id + 1, Cost: 1 + (i+j)%5})
			}
			if i < n-1 {
				bridges = append(bridges, domain.Bridge{From: id, To: id + n, Cost: 1 + (i*j)%7})
			}
		}
	}
	return &domain.Problem{Islands: n * n, Soldiers: soldiers, Bridges: bridges}
}

// generateLineProblem chains n islands with doubled bridges, so two soldiers
// always fit.
func generateLineProblem(n int) *domain.Problem {
	bridges := make([]domain.Bridge, 0, 2*(n-1))
	for i := 1; i < n; i++ {
		bridges = append(bridges,
			domain.Bridge{From: i, To: i + 1, Cost: 1},
			domain.Bridge{From: i, To: i + 1, Cost: 2},
		)
	}
	return &domain.Problem{Islands: n, Soldiers: 2, Bridges: bridges}
}

// generateLayeredProblem connects every island of a layer to perEdge random
// islands of the next one. The first and last islands sit alone in their
// own layers and fan out to the whole neighbouring layer.
func generateLayeredProblem(layers, width, perEdge, soldiers int) *domain.Problem {
	rng := rand.New(rand.NewPCG(42, uint64(layers*width)))

	islands := layers*width + 2
	sink := islands
	layerStart := func(l int) int { return 2 + l*width }

	var bridges []domain.Bridge
	for k := 0; k < width; k++ {
		bridges = append(bridges, domain.Bridge{From: 1, To: layerStart(0) + k, Cost: rng.IntN(10) + 1})
		bridges = append(bridges, domain.Bridge{From: layerStart(layers-1) + k, To: sink, Cost: rng.IntN(10) + 1})
	}
	for l := 0; l < layers-1; l++ {
		for k := 0; k < width; k++ {
			for e := 0; e < perEdge; e++ {
				bridges = append(bridges, domain.Bridge{
					From: layerStart(l) + k,
					To:   layerStart(l+1) + rng.IntN(width),
					Cost: rng.IntN(100) + 1,
				})
			}
		}
	}
	return &domain.Problem{Islands: islands, Soldiers: soldiers, Bridges: bridges}
}

func solveProblem(b *testing.B, problem *domain.Problem, options *SolverOptions) {
	b.Helper()
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Solve(ctx, problem, options); err != nil {
			b.Fatalf("Solve failed: %v", err)
		}
	}
}

// =============================================================================
// BENCHMARKS
// =============================================================================

func BenchmarkSolve_Grid(b *testing.B) {
	sizes := []int{10, 20, 50}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("grid_%dx%d", size, size), func(b *testing.B) {
			solveProblem(b, generateGridProblem(size, 2), nil)
		})
	}
}

func BenchmarkSolve_Line(b *testing.B) {
	sizes := []int{100, 1000, 10000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("islands_%d", size), func(b *testing.B) {
			solveProblem(b, generateLineProblem(size), nil)
		})
	}
}

func BenchmarkSolve_Layered(b *testing.B) {
	cases := []struct {
		layers, width, perEdge, soldiers int
	}{
		{5, 20, 3, 5},
		{10, 50, 4, 10},
		{15, 100, 4, 20},
	}

	for _, tc := range cases {
		name := fmt.Sprintf("layers_%d_width_%d_soldiers_%d", tc.layers, tc.width, tc.soldiers)
		b.Run(name, func(b *testing.B) {
			solveProblem(b, generateLayeredProblem(tc.layers, tc.width, tc.perEdge, tc.soldiers), nil)
		})
	}
}

func BenchmarkSolve_VerifyInvariants(b *testing.B) {
	problem := generateGridProblem(10, 2)
	solveProblem(b, problem, DefaultSolverOptions().WithVerifyInvariants(true))
}

func BenchmarkSolve_Unreachable(b *testing.B) {
	problem := generateLineProblem(1000)
	problem.Bridges = problem.Bridges[:len(problem.Bridges)-2]
	solveProblem(b, problem, nil)
}

func BenchmarkSolverPool_Parallel(b *testing.B) {
	pool := NewSolverPool(0)
	problem := generateGridProblem(20, 2)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := pool.SolvePooled(ctx, problem, nil); err != nil {
				b.Errorf("SolvePooled failed: %v", err)
				return
			}
		}
	})
}
