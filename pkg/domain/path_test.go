package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracePath(t *testing.T) {
	p := &Problem{
		Islands: 4,
		Bridges: []Bridge{{1, 2, 1}, {3, 2, 1}, {3, 4, 1}, {1, 4, 9}},
	}

	tests := []struct {
		name    string
		path    []int
		want    []int
		wantErr string
	}{
		{name: "direct", path: []int{4}, want: []int{0, 3}},
		{name: "against input direction", path: []int{1, 2, 3}, want: []int{0, 1, 2, 3}},
		{name: "unknown bridge", path: []int{7}, wantErr: "does not exist"},
		{name: "disconnected step", path: []int{3}, wantErr: "does not touch"},
		{name: "stops early", path: []int{1}, wantErr: "not on the sink"},
		{name: "empty path off sink", path: nil, wantErr: "not on the sink"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TracePath(p, tt.path)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTracePath_SingleIsland(t *testing.T) {
	got, err := TracePath(&Problem{Islands: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, got)
}
