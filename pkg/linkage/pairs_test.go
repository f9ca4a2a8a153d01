package linkage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/partitioning"
)

func indexesOf(pairs []CandidatePair) [][2]int {
	out := make([][2]int, len(pairs))
	for i, p := range pairs {
		out[i] = [2]int{p.LeftIndex, p.RightIndex}
	}
	return out
}

func TestGenerateIntra(t *testing.T) {
	records := []any{"a", "b", "c", "d"}

	t.Run("pairs within bins once", func(t *testing.T) {
		bins := []partitioning.Bin{
			{Members: []int{0, 2, 3}},
			{Members: []int{1}},
			{Members: []int{0, 2}}, // already emitted by the first bin
			{Members: []int{1, 3}},
		}
		pairs := GenerateIntra(records, bins)
		assert.Equal(t, [][2]int{{0, 2}, {0, 3}, {2, 3}, {1, 3}}, indexesOf(pairs))
		assert.Equal(t, "a", pairs[0].Left)
		assert.Equal(t, "c", pairs[0].Right)
	})

	t.Run("singletons and empty input", func(t *testing.T) {
		assert.Empty(t, GenerateIntra(records, []partitioning.Bin{{Members: []int{0}}, {Members: []int{1}}}))
		assert.Empty(t, GenerateIntra(nil, nil))
	})
}

func TestGenerateInter(t *testing.T) {
	left := []any{"l0", "l1"}
	right := []any{"r0", "r1", "r2"}

	joined := []partitioning.BinPair{
		{Left: partitioning.Bin{Members: []int{0, 1}}, Right: partitioning.Bin{Members: []int{2}}},
		{Left: partitioning.Bin{Members: []int{0}}, Right: partitioning.Bin{Members: []int{0, 2}}},
	}
	pairs := GenerateInter(left, right, joined)
	assert.Equal(t, [][2]int{{0, 2}, {1, 2}, {0, 0}}, indexesOf(pairs))
	assert.Equal(t, "l1", pairs[1].Left)
	assert.Equal(t, "r2", pairs[1].Right)
}
