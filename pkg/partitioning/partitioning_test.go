package partitioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
)

func mustCriterion(t *testing.T, cfg CriterionConfig) Criterion {
	t.Helper()
	c, err := NewCriterion(cfg)
	require.NoError(t, err)
	return c
}

func members(bins []Bin) [][]int {
	out := make([][]int, len(bins))
	for i, b := range bins {
		out[i] = b.Members
	}
	return out
}

func TestBlockingKey_Equality(t *testing.T) {
	a := NewBlockingKey(0, []any{"berta", 70})
	b := NewBlockingKey(0, []any{"berta", 70.0})
	c := NewBlockingKey(1, []any{"berta", 70})

	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))
	assert.False(t, a.Equal(c))
	assert.Equal(t, a.String(), b.String())
}

func TestPartition_Disjunct(t *testing.T) {
	records := []any{
		map[string]any{"first": "albert", "age": 80},
		map[string]any{"first": "berta", "age": 70},
		map[string]any{"first": "Albert", "age": 70},
		map[string]any{"age": 75},
		map[string]any{"age": 60},
	}

	byName := mustCriterion(t, CriterionConfig{Paths: []string{"first"}, Normalizers: []string{"lowercase"}})
	byAge := mustCriterion(t, CriterionConfig{Name: "age", Paths: []string{"age"}})
	strategy, err := NewDisjunct([]Criterion{byName, byAge}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, strategy.Criteria(Left))
	assert.Equal(t, "first", byName.Name)

	bins, err := Partition(records, strategy, Left)
	require.NoError(t, err)

	assert.Equal(t, [][]int{
		// by name: records without a first name share the missing key
		{0, 2}, {1}, {3, 4},
		// by age
		{0}, {1, 2}, {3}, {4},
	}, members(bins))

	t.Run("every record appears under every criterion", func(t *testing.T) {
		for criterion := 0; criterion < 2; criterion++ {
			seen := map[int]int{}
			for _, bin := range bins {
				if bin.Key.Criterion != criterion {
					continue
				}
				for _, m := range bin.Members {
					seen[m]++
				}
			}
			assert.Len(t, seen, len(records))
			for _, count := range seen {
				assert.Equal(t, 1, count)
			}
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		again, err := Partition(records, strategy, Left)
		require.NoError(t, err)
		assert.Equal(t, members(bins), members(again))
	})
}

func TestPartition_AsymmetricJoin(t *testing.T) {
	left := []any{
		map[string]any{"surname": "smith"},
		map[string]any{"surname": "jones"},
	}
	right := []any{
		map[string]any{"family_name": "jones"},
		map[string]any{"family_name": "smith"},
		map[string]any{"family_name": "smith"},
		map[string]any{"family_name": "brown"},
	}

	strategy, err := NewDisjunct(
		[]Criterion{mustCriterion(t, CriterionConfig{Paths: []string{"surname"}})},
		[]Criterion{mustCriterion(t, CriterionConfig{Paths: []string{"family_name"}})},
	)
	require.NoError(t, err)

	leftBins, err := Partition(left, strategy, Left)
	require.NoError(t, err)
	rightBins, err := Partition(right, strategy, Right)
	require.NoError(t, err)

	pairs := Join(leftBins, rightBins)
	require.Len(t, pairs, 2)
	assert.Equal(t, []int{0}, pairs[0].Left.Members)
	assert.Equal(t, []int{1, 2}, pairs[0].Right.Members)
	assert.Equal(t, []int{1}, pairs[1].Left.Members)
	assert.Equal(t, []int{0}, pairs[1].Right.Members)
}

func TestNewDisjunct_Errors(t *testing.T) {
	one := mustCriterion(t, CriterionConfig{Paths: []string{"a"}})
	two := mustCriterion(t, CriterionConfig{Paths: []string{"a", "b"}})

	_, err := NewDisjunct(nil, nil)
	assert.True(t, ferrors.IsConfigError(err))

	_, err = NewDisjunct([]Criterion{one}, []Criterion{one, one})
	assert.True(t, ferrors.IsConfigError(err))

	_, err = NewDisjunct([]Criterion{one}, []Criterion{two})
	assert.True(t, ferrors.IsConfigError(err))

	_, err = NewCriterion(CriterionConfig{Name: "empty"})
	assert.True(t, ferrors.IsConfigError(err))

	_, err = NewCriterion(CriterionConfig{Paths: []string{"a"}, Normalizers: []string{"nope"}})
	assert.True(t, ferrors.IsConfigError(err))

	strategy, err := NewDisjunct([]Criterion{one}, nil)
	require.NoError(t, err)
	_, err = strategy.Key(map[string]any{}, Left, 3)
	assert.Error(t, err)
}

func TestPartition_Naive(t *testing.T) {
	records := []any{"a", "b", "c"}
	bins, err := Partition(records, Naive{}, Left)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2}}, members(bins))

	_, err = Naive{}.Key("a", Left, 1)
	assert.Error(t, err)
}
