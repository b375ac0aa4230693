package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"islandflow/pkg/apperror"
)

func TestProblem_SourceSink(t *testing.T) {
	p := &Problem{Islands: 5}
	assert.Equal(t, 0, p.Source())
	assert.Equal(t, 4, p.Sink())

	single := &Problem{Islands: 1}
	assert.Equal(t, single.Source(), single.Sink())
}

func TestProblem_Validate(t *testing.T) {
	tests := []struct {
		name     string
		problem  *Problem
		wantCode apperror.ErrorCode
		field    string
	}{
		{
			name:    "valid",
			problem: &Problem{Islands: 3, Soldiers: 2, Bridges: []Bridge{{1, 2, 1}, {2, 3, 0}}},
		},
		{
			name:    "no bridges",
			problem: &Problem{Islands: 2, Soldiers: 1},
		},
		{
			name:    "self-loop is only a warning",
			problem: &Problem{Islands: 2, Soldiers: 1, Bridges: []Bridge{{1, 1, 3}}},
		},
		{
			name:     "nil",
			problem:  nil,
			wantCode: apperror.CodeNilInput,
		},
		{
			name:     "zero islands",
			problem:  &Problem{Islands: 0},
			wantCode: apperror.CodeInvalidArgument,
			field:    "islands",
		},
		{
			name:     "negative soldiers",
			problem:  &Problem{Islands: 2, Soldiers: -1},
			wantCode: apperror.CodeInvalidArgument,
			field:    "soldiers",
		},
		{
			name:     "island out of range",
			problem:  &Problem{Islands: 2, Soldiers: 1, Bridges: []Bridge{{1, 2, 1}, {1, 3, 1}}},
			wantCode: apperror.CodeInvalidIsland,
			field:    "bridges[1].to",
		},
		{
			name:     "island zero",
			problem:  &Problem{Islands: 2, Soldiers: 1, Bridges: []Bridge{{0, 2, 1}}},
			wantCode: apperror.CodeInvalidIsland,
			field:    "bridges[0].from",
		},
		{
			name:     "negative cost",
			problem:  &Problem{Islands: 2, Soldiers: 1, Bridges: []Bridge{{1, 2, -4}}},
			wantCode: apperror.CodeNegativeCost,
			field:    "bridges[0].cost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.problem.Validate()
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, apperror.Is(err, tt.wantCode), "got %v", err)
			if tt.field != "" {
				var appErr *apperror.Error
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, tt.field, appErr.Field)
			}
		})
	}
}

func TestProblem_Check_CollectsEverything(t *testing.T) {
	p := &Problem{
		Islands:  2,
		Soldiers: 1,
		Bridges:  []Bridge{{1, 5, -1}, {2, 2, 0}},
	}

	v := p.Check()
	assert.Len(t, v.Errors, 2)
	assert.Len(t, v.Warnings, 1)
}

func TestProblem_PathCost(t *testing.T) {
	p := &Problem{Islands: 3, Bridges: []Bridge{{1, 2, 1}, {2, 3, 4}, {1, 3, 10}}}

	cost, err := p.PathCost([]int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 5, cost)

	cost, err = p.PathCost(nil)
	require.NoError(t, err)
	assert.Zero(t, cost)

	_, err = p.PathCost([]int{4})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidArgument))
}

func TestAnswer_MeanCost(t *testing.T) {
	assert.InDelta(t, 6.0, (&Answer{Feasible: true, Soldiers: 2, TotalCost: 12}).MeanCost(), 1e-9)
	assert.InDelta(t, 2.5, (&Answer{Feasible: true, Soldiers: 2, TotalCost: 5}).MeanCost(), 1e-9)
	assert.Zero(t, (&Answer{Feasible: true}).MeanCost())

	inf := Infeasible(3)
	assert.False(t, inf.Feasible)
	assert.Equal(t, 3, inf.Soldiers)
	assert.Nil(t, inf.Paths)
}
