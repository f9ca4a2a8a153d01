package fusion

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	engine, err := NewEngine(cfg, testLogger())
	require.NoError(t, err)
	return engine
}

func TestEngine_Fuse(t *testing.T) {
	engine := newEngine(t, Config{
		Fields: map[string]Rule{"tags": MergeDistinct{}},
	})

	out, err := engine.Fuse([]any{"a", "b"}, []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "b", out)

	out, err = engine.FuseWith("tags", []any{"b", "a", "b"}, []float64{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, out)

	out, err = engine.FuseWith("unconfigured", []any{"a", "b"}, []float64{3, 2})
	require.NoError(t, err)
	assert.Equal(t, "a", out)
}

func TestEngine_WeightValidation(t *testing.T) {
	engine := newEngine(t, Config{})

	_, err := engine.Fuse([]any{"a", "b"}, []float64{1})
	assert.ErrorIs(t, err, ErrWeightCount)

	_, err = engine.Fuse([]any{"a"}, []float64{-1})
	assert.ErrorIs(t, err, ErrInvalidWeight)

	_, err = engine.FuseWith("x", []any{"a"}, []float64{math.NaN()})
	assert.ErrorIs(t, err, ErrInvalidWeight)

	_, err = engine.FuseRecords([]any{map[string]any{}}, nil)
	assert.ErrorIs(t, err, ErrWeightCount)
}

func TestNewEngine_Schema(t *testing.T) {
	_, err := NewEngine(Config{
		Fields: map[string]Rule{"nmae": MergeDistinct{}},
		Schema: []string{"name", "age"},
	}, testLogger())
	require.Error(t, err)
	assert.True(t, ferrors.IsConfigError(err))
	assert.Contains(t, err.Error(), "nmae")

	_, err = NewEngine(Config{
		Fields: map[string]Rule{"name": MergeDistinct{}},
		Schema: []string{"name", "age"},
	}, testLogger())
	assert.NoError(t, err)

	_, err = NewEngine(Config{Fields: map[string]Rule{"address.": MergeDistinct{}}}, testLogger())
	assert.True(t, ferrors.IsConfigError(err))
}

func TestEngine_FuseRecords(t *testing.T) {
	engine := newEngine(t, Config{
		Fields: map[string]Rule{
			"emails":       MergeDistinct{},
			"age":          numericRule{RuleMax, maxOf},
			"address.city": Vote{},
		},
	})

	records := []any{
		map[string]any{
			"name":    "Robert",
			"emails":  "bob@example.com",
			"age":     41,
			"address": map[string]any{"city": "Berlin", "zip": "10115"},
		},
		map[string]any{
			"name":    "Bob",
			"emails":  nil,
			"address": map[string]any{"city": "Berlin"},
		},
		nil,
		map[string]any{
			"name":    "Rob",
			"emails":  "rob@example.com",
			"age":     42,
			"address": map[string]any{"city": "Potsdam", "zip": "14467"},
		},
	}
	weights := []float64{0.5, 0.9, 1, 0.7}

	out, err := engine.FuseRecords(records, weights)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"name":   "Bob",
		"emails": []any{"bob@example.com", "rob@example.com"},
		"age":    42.0,
		"address": map[string]any{
			// 0.5 + 0.9 for Berlin beats 0.7 for Potsdam
			"city": "Berlin",
			// absent on the second record, so Potsdam's 0.7 wins
			"zip": "14467",
		},
	}, out)
}

func TestEngine_FuseRecordsWholeObjectRule(t *testing.T) {
	engine := newEngine(t, Config{
		Fields: map[string]Rule{"address": MostTrusted{}},
	})

	out, err := engine.FuseRecords([]any{
		map[string]any{"address": map[string]any{"city": "Berlin"}},
		map[string]any{"address": map[string]any{"city": "Potsdam", "zip": "14467"}},
	}, []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"city": "Potsdam", "zip": "14467"}, out["address"])
}

func TestEngine_FuseRecordsRejectsScalars(t *testing.T) {
	engine := newEngine(t, Config{})
	_, err := engine.FuseRecords([]any{map[string]any{"a": 1}, "x"}, []float64{1, 1})
	assert.Error(t, err)
}

func TestEngine_FuseRecordsOrderIndependent(t *testing.T) {
	engine := newEngine(t, Config{
		Default: MergeDistinct{},
	})
	records := []any{
		map[string]any{"name": "b", "tags": []any{"x"}},
		map[string]any{"name": "a"},
		map[string]any{"name": nil, "tags": []any{"x"}},
	}

	want, err := engine.FuseRecords(records, UniformWeights(3))
	require.NoError(t, err)
	for _, p := range permutations(records) {
		got, err := engine.FuseRecords(p, UniformWeights(3))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, []any{"a", "b"}, want["name"])
}

func TestEngine_FuseClusters(t *testing.T) {
	engine := newEngine(t, Config{
		Default: MergeDistinct{},
		Workers: 8,
	})

	clusters := make([]models.Cluster, 50)
	for i := range clusters {
		clusters[i] = models.Cluster{
			ID:     fmt.Sprintf("c%d", i),
			Values: []any{i, nil, i, i + 1},
		}
	}
	clusters[7].Weights = []float64{1}

	results, err := engine.FuseClusters(context.Background(), clusters)
	require.NoError(t, err)
	require.Len(t, results, len(clusters))

	for i, r := range results {
		assert.Equal(t, clusters[i].ID, r.ID)
		if i == 7 {
			assert.Contains(t, r.Error, "differ in length")
			continue
		}
		assert.Empty(t, r.Error)
		assert.Equal(t, []any{float64(i), float64(i + 1)}, r.Value)
	}
}

func TestEngine_FuseClusterDispatch(t *testing.T) {
	engine := newEngine(t, Config{})

	out, err := engine.FuseCluster([]any{
		map[string]any{"name": "a"},
		nil,
		map[string]any{"name": "b", "age": 3},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "a", "age": 3.0}, out)

	out, err = engine.FuseCluster([]any{"x", map[string]any{"name": "a"}}, []float64{2, 1})
	require.NoError(t, err)
	assert.Equal(t, "x", out)

	out, err = engine.FuseCluster([]any{nil, nil}, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestEngine_FuseClustersCancelled(t *testing.T) {
	engine := newEngine(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.FuseClusters(ctx, []models.Cluster{{Values: []any{"a"}}})
	assert.ErrorIs(t, err, context.Canceled)
}

const contactSpec = `
name: contacts
default:
  rule: most_trusted
fields:
  emails:
    rule: merge_distinct
  phones:
    rule: collect_all
    params:
      dedup: true
schema: [name, emails, phones]
`

func TestBuild(t *testing.T) {
	spec, err := models.ParseFusionSpec([]byte(contactSpec))
	require.NoError(t, err)

	engine, err := Build(*spec, 2, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, engine.workers)

	out, err := engine.FuseRecords([]any{
		map[string]any{"name": "Ann", "emails": "ann@example.com", "phones": []any{"1"}},
		map[string]any{"name": "Anne", "emails": "ann@example.com", "phones": "2"},
	}, []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "Anne", out["name"])
	assert.Equal(t, []any{"ann@example.com"}, out["emails"])
	assert.Equal(t, []any{[]any{"1"}, "2"}, out["phones"])

	spec.Fields["phones"] = models.RuleSpec{Rule: "loudest"}
	_, err = Build(*spec, 2, testLogger())
	assert.True(t, ferrors.IsConfigError(err))

	spec.Fields["phones"] = models.RuleSpec{Rule: models.FusionRuleCollectAll}
	spec.Fields["fax"] = models.RuleSpec{Rule: models.FusionRuleCollectAll}
	_, err = Build(*spec, 2, testLogger())
	assert.True(t, ferrors.IsConfigError(err))
}
