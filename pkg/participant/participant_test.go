package participant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/simerr"
	"github.com/gilchrisn/recall-network-sim/pkg/walk"
)

func fixture(t *testing.T) (*network.Graph, *network.Items) {
	t.Helper()
	labels := []string{"cat", "dog", "wolf", "fox", "lion", "tiger"}
	items, err := network.NewItems(labels)
	require.NoError(t, err)

	g := network.NewGraph(len(labels), false)
	for i := range labels {
		require.NoError(t, g.SetEdge(i, (i+1)%len(labels), 1))
	}
	require.NoError(t, g.SetEdge(0, 3, 2))
	return g, items
}

func TestToLocalRoundTrip(t *testing.T) {
	_, items := fixture(t)
	walks := walk.WalkList{{4, 2, 4, 5}, {2, 0}}

	local, localItems, table, err := ToLocal(walks, items)
	require.NoError(t, err)

	assert.Equal(t, walk.WalkList{{0, 1, 0, 2}, {1, 3}}, local)
	assert.Equal(t, []int{4, 2, 5, 0}, table)
	assert.Equal(t, []string{"lion", "wolf", "tiger", "cat"}, localItems.Labels())

	back, err := ToGlobal(local, table)
	require.NoError(t, err)
	assert.Equal(t, walks, back)

	for i, list := range local {
		for j, idx := range list {
			label, ok := localItems.Label(idx)
			require.True(t, ok)
			want, _ := items.Label(walks[i][j])
			assert.Equal(t, want, label)
		}
	}
}

func TestToLocalUnknownNode(t *testing.T) {
	_, items := fixture(t)
	_, _, _, err := ToLocal(walk.WalkList{{0, 99}}, items)
	assert.Error(t, err)

	_, err = ToGlobal(walk.WalkList{{3}}, []int{0, 1})
	assert.Error(t, err)
}

func TestGenerateSeedMonotonicity(t *testing.T) {
	g, items := fixture(t)
	cfg := walk.DefaultConfig()
	cfg.NumX = 3
	cfg.Trim = 5

	records, next, err := Generate(g, items, cfg, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(6), next)
	require.Len(t, records, 2)

	start0, end0 := records[0].SeedRange()
	start1, end1 := records[1].SeedRange()
	assert.Equal(t, int64(0), start0)
	assert.Equal(t, int64(3), end0)
	assert.Equal(t, int64(3), start1)
	assert.Equal(t, int64(6), end1)

	for _, rec := range records {
		assert.Len(t, rec.GlobalWalks(), 3)
		assert.Equal(t, rec.GlobalWalks().UniqueCount(), rec.UniqueNodes())
		assert.Equal(t, rec.UniqueNodes(), rec.Items().Len())
	}
}

func TestGenerateErrors(t *testing.T) {
	g, items := fixture(t)
	cfg := walk.DefaultConfig()

	_, next, err := Generate(g, items, cfg, 0, 4)
	assert.ErrorIs(t, err, simerr.ErrConfig)
	var ce *simerr.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "simulation.numsubs", ce.Field)
	assert.Equal(t, int64(4), next)

	short, err := network.NewItems([]string{"cat"})
	require.NoError(t, err)
	_, _, err = Generate(g, short, cfg, 1, 0)
	assert.ErrorIs(t, err, simerr.ErrGraph)

	_, _, err = Generate(nil, items, cfg, 1, 0)
	assert.ErrorIs(t, err, simerr.ErrGraph)

	cfg.Trim = 0
	_, _, err = Generate(g, items, cfg, 1, 0)
	assert.ErrorIs(t, err, simerr.ErrConfig)
}

func TestCumulativeCorpusPrefix(t *testing.T) {
	g, items := fixture(t)
	cfg := walk.DefaultConfig()
	cfg.NumX = 2
	cfg.Trim = 4

	records, _, err := Generate(g, items, cfg, 3, 10)
	require.NoError(t, err)

	for _, space := range []IndexSpace{Global, Local} {
		for k := 1; k < len(records); k++ {
			prefix := CumulativeCorpus(records[:k], space)
			grown := CumulativeCorpus(records[:k+1], space)

			want := append(prefix.Clone(), records[k].Walks(space)...)
			assert.Equal(t, want, grown, "space %s k=%d", space, k)
			assert.Len(t, grown, (k+1)*cfg.NumX)
		}
	}
}

func TestRecordIsImmutable(t *testing.T) {
	g, items := fixture(t)
	cfg := walk.DefaultConfig()
	cfg.NumX = 1
	cfg.Trim = 3

	records, _, err := Generate(g, items, cfg, 1, 0)
	require.NoError(t, err)
	rec := records[0]

	corpus := CumulativeCorpus(records, Global)
	original := corpus[0][0]
	corpus[0][0] = original + 1
	assert.Equal(t, original, rec.GlobalWalks()[0][0])

	table := rec.LocalToGlobal()
	table[0] = -1
	assert.NotEqual(t, -1, rec.LocalToGlobal()[0])
}
