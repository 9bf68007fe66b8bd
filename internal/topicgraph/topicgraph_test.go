package topicgraph

import (
	"testing"

	"github.com/google/uuid"
	"github.com/katalvlaran/lvlath/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGraph(t *testing.T, topics []uuid.UUID, edges map[[2]uuid.UUID]float64) *Graph {
	t.Helper()
	lg := core.NewGraph(core.WithWeighted(), core.WithDirected(false))
	for _, id := range topics {
		require.NoError(t, lg.AddVertex(id.String()))
	}
	weight := make(map[[2]uuid.UUID]float64, len(edges))
	for pair, w := range edges {
		_, err := lg.AddEdge(pair[0].String(), pair[1].String(), w)
		require.NoError(t, err)
		weight[pairKey(pair[0], pair[1])] = w
	}
	return &Graph{g: lg, weight: weight}
}

func TestWeightDefaultsToZeroForUnlistedPair(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	gr := newGraph(t, []uuid.UUID{a, b}, nil)
	assert.Equal(t, 0.0, gr.Weight(a, b))
}

func TestWeightRequiresGraphAdjacency(t *testing.T) {
	// A stale index entry without a corresponding graph edge must not count:
	// adjacency is answered by the graph, the index only holds magnitudes.
	a, b := uuid.New(), uuid.New()
	lg := core.NewGraph(core.WithWeighted(), core.WithDirected(false))
	require.NoError(t, lg.AddVertex(a.String()))
	require.NoError(t, lg.AddVertex(b.String()))
	gr := &Graph{g: lg, weight: map[[2]uuid.UUID]float64{pairKey(a, b): 0.7}}

	assert.Equal(t, 0.0, gr.Weight(a, b))
}

func TestWeightIsSymmetric(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	gr := newGraph(t, []uuid.UUID{a, b}, map[[2]uuid.UUID]float64{{a, b}: 0.4})
	assert.Equal(t, 0.4, gr.Weight(a, b))
	assert.Equal(t, 0.4, gr.Weight(b, a))
}

func TestBisectSingleTopicGoesToA(t *testing.T) {
	only := uuid.New()
	gr := newGraph(t, []uuid.UUID{only}, nil)
	a, b := Bisect([]uuid.UUID{only}, gr)
	assert.Equal(t, []uuid.UUID{only}, a)
	assert.Nil(t, b)
}

func TestBisectTwoTopicsSplitIntoSingletons(t *testing.T) {
	x, y := uuid.New(), uuid.New()
	gr := newGraph(t, []uuid.UUID{x, y}, map[[2]uuid.UUID]float64{{x, y}: 0.9})
	a, b := Bisect([]uuid.UUID{x, y}, gr)
	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
	assert.NotEqual(t, a[0], b[0])
}

func TestBisectMaximizesWithinGroupWeight(t *testing.T) {
	// Two tightly-coupled pairs (w, x) and (y, z), with only a weak cross link.
	// Bisect should keep each coupled pair together rather than splitting them.
	w, x, y, z := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	edges := map[[2]uuid.UUID]float64{
		{w, x}: 0.9,
		{y, z}: 0.9,
		{w, y}: 0.1,
	}
	gr := newGraph(t, []uuid.UUID{w, x, y, z}, edges)

	a, b := Bisect([]uuid.UUID{w, x, y, z}, gr)
	require.Len(t, a, 2)
	require.Len(t, b, 2)

	inA := func(id uuid.UUID) bool {
		for _, t := range a {
			if t == id {
				return true
			}
		}
		return false
	}
	// w and x must land in the same group, and so must y and z.
	assert.Equal(t, inA(w), inA(x))
	assert.Equal(t, inA(y), inA(z))
}

func TestBisectPicksPartitionWithHighestCombinedWeight(t *testing.T) {
	// The best halving pairs t1 with t3 and leaves t2 with t4:
	// W({t1,t3}) + W({t2,t4}) = 0.9 + 0.1 = 1.0, beating
	// {t1,t2}/{t3,t4} at 0.2 and {t1,t4}/{t2,t3} at 0.9.
	t1, t2, t3, t4 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	edges := map[[2]uuid.UUID]float64{
		{t1, t2}: 0.1,
		{t1, t3}: 0.9,
		{t1, t4}: 0.8,
		{t2, t3}: 0.1,
		{t2, t4}: 0.1,
		{t3, t4}: 0.1,
	}
	gr := newGraph(t, []uuid.UUID{t1, t2, t3, t4}, edges)

	a, b := Bisect([]uuid.UUID{t1, t2, t3, t4}, gr)
	require.Len(t, a, 2)
	require.Len(t, b, 2)
	assert.Equal(t, 1.0, gr.WeightOfSet(a)+gr.WeightOfSet(b))

	together := func(group []uuid.UUID, x, y uuid.UUID) bool {
		foundX, foundY := false, false
		for _, id := range group {
			foundX = foundX || id == x
			foundY = foundY || id == y
		}
		return foundX && foundY
	}
	assert.True(t, together(a, t1, t3) || together(b, t1, t3))
	assert.True(t, together(a, t2, t4) || together(b, t2, t4))
}

func TestWeightOfSetSumsPairwiseWeights(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	gr := newGraph(t, []uuid.UUID{a, b, c}, map[[2]uuid.UUID]float64{
		{a, b}: 0.5,
		{b, c}: 0.25,
	})
	assert.Equal(t, 0.75, gr.WeightOfSet([]uuid.UUID{a, b, c}))
}
