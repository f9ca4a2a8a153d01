package expressions

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluator_Evaluate(t *testing.T) {
	e := NewEvaluator()
	pair := []any{
		map[string]any{"id": 1, "first name": "berta"},
		map[string]any{"id": 6, "first name": "berta"},
	}

	t.Run("multi-select over a pair", func(t *testing.T) {
		result, err := e.Evaluate(`{names: [[0]."first name", [1]."first name"], ids: [[0].id, [1].id]}`, pair)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"names": []any{"berta", "berta"},
			"ids":   []any{1.0, 6.0},
		}, result)
	})

	t.Run("missing field is null", func(t *testing.T) {
		result, err := e.Evaluate("[0].email", pair)
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("typed slices are normalized", func(t *testing.T) {
		result, err := e.Evaluate("[1]", []int{4, 5})
		require.NoError(t, err)
		assert.Equal(t, 5.0, result)
	})

	t.Run("invalid expression", func(t *testing.T) {
		_, err := e.Evaluate("[0.", pair)
		require.Error(t, err)
		require.Error(t, e.Validate("{a:"))
	})
}

func TestEvaluator_ConcurrentCache(t *testing.T) {
	e := NewEvaluator()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Evaluate("a.b", map[string]any{"a": map[string]any{"b": 1}})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, e.Cached())
}

func TestEvaluator_CacheLimit(t *testing.T) {
	e := NewEvaluatorWithLimit(2)
	require.NoError(t, e.Validate("a"))
	require.NoError(t, e.Validate("b"))
	assert.Equal(t, 2, e.Cached())

	require.NoError(t, e.Validate("c"))
	assert.Equal(t, 1, e.Cached())

	require.Error(t, e.Validate("{a:"))
	assert.Equal(t, 1, e.Cached())
}
