package value

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare_KindOrder(t *testing.T) {
	ordered := []any{
		Missing,
		nil,
		false,
		true,
		-1.5,
		3,
		"a",
		"b",
		[]any{},
		[]any{1.0},
		map[string]any{},
		map[string]any{"a": 1.0},
	}

	for i := 0; i < len(ordered); i++ {
		for j := 0; j < len(ordered); j++ {
			want := compareInts(i, j)
			assert.Equal(t, want, Compare(ordered[i], ordered[j]), "compare(%v, %v)", ordered[i], ordered[j])
		}
	}
}

func TestCompare_Structural(t *testing.T) {
	t.Run("numbers of different go types are equal", func(t *testing.T) {
		assert.True(t, Equal(3, 3.0))
		assert.True(t, Equal(int64(80), json.Number("80")))
		assert.True(t, Equal(0.0, math.Copysign(0, -1)))
	})

	t.Run("NaN orders first among numbers", func(t *testing.T) {
		assert.Equal(t, -1, Compare(math.NaN(), math.Inf(-1)))
		assert.True(t, Equal(math.NaN(), math.NaN()))
	})

	t.Run("arrays compare element-wise then by length", func(t *testing.T) {
		assert.Equal(t, -1, Compare([]any{1, 2}, []any{1, 3}))
		assert.Equal(t, -1, Compare([]any{1, 2}, []any{1, 2, 0}))
		assert.True(t, Equal([]string{"x", "y"}, []any{"x", "y"}))
	})

	t.Run("objects compare by sorted keys then values", func(t *testing.T) {
		a := map[string]any{"b": 1, "a": "x"}
		b := map[string]any{"a": "x", "b": 1.0}
		assert.True(t, Equal(a, b))
		assert.Equal(t, -1, Compare(map[string]any{"a": 1}, map[string]any{"b": 0}))
		assert.Equal(t, -1, Compare(map[string]any{"a": 1}, map[string]any{"a": 2}))
	})

	t.Run("antisymmetric", func(t *testing.T) {
		values := []any{nil, true, 2, "s", []any{"s"}, map[string]any{"k": nil}}
		for _, a := range values {
			for _, b := range values {
				assert.Equal(t, -Compare(b, a), Compare(a, b))
			}
		}
	})
}

func TestKey_MatchesEquality(t *testing.T) {
	assert.Equal(t, Key(map[string]any{"age": 80, "tags": []any{"a"}}), Key(map[string]any{"tags": []string{"a"}, "age": 80.0}))
	assert.NotEqual(t, Key("80"), Key(80))
	assert.NotEqual(t, Key(nil), Key(Missing))
	assert.NotEqual(t, Key([]any{"a,b"}), Key([]any{"a", "b"}))
	assert.Len(t, Fingerprint("albert"), 64)
}

func TestNormalize(t *testing.T) {
	type named string
	in := map[string]any{
		"n":    int32(4),
		"s":    named("x"),
		"list": []int{1, 2},
		"nil":  nil,
	}

	out := Normalize(in)

	require.IsType(t, map[string]any{}, out)
	m := out.(map[string]any)
	assert.Equal(t, 4.0, m["n"])
	assert.Equal(t, "x", m["s"])
	assert.Equal(t, []any{1.0, 2.0}, m["list"])
	assert.Nil(t, m["nil"])
	assert.True(t, IsMissing(Normalize(Missing)))
}

func TestSort(t *testing.T) {
	values := []any{"b", map[string]any{}, 2, nil, []any{}, "a", 1}
	Sort(values)
	assert.Equal(t, []any{nil, 1, 2, "a", "b", []any{}, map[string]any{}}, values)
}
