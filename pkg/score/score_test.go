package score

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/simerr"
)

func ringGraph(t *testing.T, n int) *network.Graph {
	t.Helper()
	g := network.NewGraph(n, false)
	for i := 0; i < n; i++ {
		require.NoError(t, g.SetEdge(i, (i+1)%n, 1))
	}
	return g
}

func TestScoreRingAgainstItself(t *testing.T) {
	ring := ringGraph(t, 4)

	sdt, cost, err := Scorer{}.Score(ring.Clone(), ring)
	require.NoError(t, err)
	assert.Equal(t, SDT{Hit: 4, Miss: 0, FalseAlarm: 0, CorrectRejection: 2}, sdt)
	assert.Equal(t, 0.0, cost)
	assert.Equal(t, 1.0, sdt.HitRate())
	assert.Equal(t, 0.0, sdt.FalseAlarmRate())
}

func TestScoreEmptyAgainstRing(t *testing.T) {
	ring := ringGraph(t, 4)

	sdt, cost, err := Scorer{}.Score(network.NewGraph(4, false), ring)
	require.NoError(t, err)
	assert.Equal(t, SDT{Hit: 0, Miss: 4, FalseAlarm: 0, CorrectRejection: 2}, sdt)
	assert.Equal(t, 4.0, cost)
}

func TestScoreCountIdentity(t *testing.T) {
	tests := []struct {
		name  string
		recon func(t *testing.T) *network.Graph
	}{
		{"complete", func(t *testing.T) *network.Graph {
			g := network.NewGraph(6, false)
			for i := 0; i < 6; i++ {
				for j := i + 1; j < 6; j++ {
					require.NoError(t, g.SetEdge(i, j, 1))
				}
			}
			return g
		}},
		{"smaller", func(t *testing.T) *network.Graph { return ringGraph(t, 3) }},
		{"directed", func(t *testing.T) *network.Graph {
			g := network.NewGraph(6, true)
			require.NoError(t, g.SetEdge(2, 1, 1))
			require.NoError(t, g.SetEdge(0, 4, 1))
			return g
		}},
	}

	truth := ringGraph(t, 6)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recon := tt.recon(t)
			sdt, cost, err := Scorer{}.Score(recon, truth)
			require.NoError(t, err)
			assert.Equal(t, 6*5/2, sdt.Total())
			assert.Equal(t, 6, sdt.Hit+sdt.Miss)
			assert.Greater(t, cost, 0.0)

			_, back, err := Scorer{}.Score(truth, truth)
			require.NoError(t, err)
			assert.Equal(t, 0.0, back)
		})
	}
}

func TestScoreDirectedEitherDirection(t *testing.T) {
	truth := network.NewGraph(3, true)
	require.NoError(t, truth.SetEdge(0, 1, 1))
	recon := network.NewGraph(3, true)
	require.NoError(t, recon.SetEdge(1, 0, 1))

	sdt, cost, err := Scorer{}.Score(recon, truth)
	require.NoError(t, err)
	assert.Equal(t, SDT{Hit: 1, CorrectRejection: 2}, sdt)
	assert.Equal(t, 2.0, cost)
}

func TestScoreThreshold(t *testing.T) {
	truth := ringGraph(t, 4)
	recon := network.NewGraph(4, false)
	require.NoError(t, recon.SetEdge(0, 1, 0.2))
	require.NoError(t, recon.SetEdge(1, 2, 0.9))

	sdt, _, err := Scorer{Threshold: 0.5}.Score(recon, truth)
	require.NoError(t, err)
	assert.Equal(t, 1, sdt.Hit)
	assert.Equal(t, 3, sdt.Miss)
}

func TestScoreDimensionMismatch(t *testing.T) {
	_, _, err := Scorer{}.Score(ringGraph(t, 5), ringGraph(t, 4))
	assert.ErrorIs(t, err, simerr.ErrDimensionMismatch)

	var dm *simerr.DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 5, dm.Reconstructed)
	assert.Equal(t, 4, dm.Truth)
}

func TestCostCountsUndirectedEdgesOnce(t *testing.T) {
	undirected := network.NewGraph(3, false)
	require.NoError(t, undirected.SetEdge(0, 1, 2))
	assert.Equal(t, 2.0, Cost(network.NewGraph(3, false), undirected))

	directed := network.NewGraph(3, true)
	require.NoError(t, directed.SetEdge(0, 1, 2))
	require.NoError(t, directed.SetEdge(1, 0, 2))
	assert.Equal(t, 4.0, Cost(network.NewGraph(3, true), directed))
}

func TestCostSymmetric(t *testing.T) {
	a := ringGraph(t, 5)
	b := network.NewGraph(5, false)
	require.NoError(t, b.SetEdge(0, 2, 3))

	assert.Equal(t, Cost(a, b), Cost(b, a))
	assert.True(t, math.IsNaN(SDT{}.HitRate()))
}
