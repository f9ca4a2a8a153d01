package linkage

import (
	"context"
	"math"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/partitioning"
	"github.com/Ramsey-B/fern/pkg/similarity"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func person(id int, first, last string, age any) map[string]any {
	return map[string]any{"id": id, "first name": first, "last name": last, "age": age}
}

func people() []any {
	return []any{
		person(0, "albert", "perfect duplicate", 80),
		person(1, "berta", "typo", 70),
		person(2, "charles", "age inaccurate", 70),
		person(3, "dagmar", "unmatched", 75),
		person(4, "elma", "first nameDiffers", 60),
		person(5, "albert", "perfect duplicate", 80),
		person(6, "berta", "tpyo", 70),
		person(7, "charles", "age inaccurate", 69),
		person(8, "elmar", "first nameDiffers", 60),
	}
}

func personStrategy(t *testing.T) partitioning.Strategy {
	t.Helper()
	byLast, err := partitioning.NewCriterion(partitioning.CriterionConfig{Paths: []string{"last name"}})
	require.NoError(t, err)
	byAge, err := partitioning.NewCriterion(partitioning.CriterionConfig{Paths: []string{"age"}})
	require.NoError(t, err)
	strategy, err := partitioning.NewDisjunct([]partitioning.Criterion{byLast, byAge}, nil)
	require.NoError(t, err)
	return strategy
}

func personComposite(t *testing.T) *similarity.Composite {
	t.Helper()
	composite, err := similarity.NewComposite([]similarity.Comparison{
		similarity.MustComparison(similarity.ComparisonConfig{Metric: similarity.MetricLevenshtein, Left: "first name"}),
		similarity.MustComparison(similarity.ComparisonConfig{Metric: similarity.MetricJaccard, Left: "last name"}),
		similarity.MustComparison(similarity.ComparisonConfig{Metric: similarity.MetricNumericDifference, Left: "age", Params: similarity.Params{"tolerance": 10}}),
	}, similarity.Options{})
	require.NoError(t, err)
	return composite
}

func newPersonLinker(t *testing.T, threshold float64, mutate func(*Config)) *Linker {
	t.Helper()
	idPath, err := PathProjection("id")
	require.NoError(t, err)
	decider, err := NewDecider(DeciderConfig{Threshold: threshold, LeftID: idPath, RightID: idPath})
	require.NoError(t, err)

	cfg := Config{
		Strategy:   personStrategy(t),
		Similarity: personComposite(t),
		Decider:    decider,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	linker, err := NewLinker(cfg, testLogger())
	require.NoError(t, err)
	return linker
}

func pairsOf(matches []Match) [][2]int {
	out := make([][2]int, len(matches))
	for i, m := range matches {
		out[i] = [2]int{m.LeftIndex, m.RightIndex}
	}
	return out
}

func TestLinker_LinkIntra(t *testing.T) {
	linker := newPersonLinker(t, 0.5, nil)

	result, err := linker.LinkIntra(context.Background(), people())
	require.NoError(t, err)

	// last name bins first, then age bins; (1,2) and (2,6) only share an age
	assert.Equal(t, 6, result.Candidates)
	assert.Equal(t, 11, result.Bins)
	assert.Empty(t, result.Failures)
	require.Equal(t, [][2]int{{0, 5}, {2, 7}, {4, 8}, {1, 6}}, pairsOf(result.Matches))

	assert.Equal(t, 1.0, result.Matches[0].Score)
	assert.InDelta(t, 2.9/3, result.Matches[1].Score, 1e-9)
	assert.InDelta(t, 2.8/3, result.Matches[2].Score, 1e-9)
	assert.InDelta(t, 2.0/3, result.Matches[3].Score, 1e-9)

	assert.Equal(t, []any{0, 5}, result.Matches[0].Value)
	assert.Len(t, result.Matches[0].Metrics, 3)

	for _, m := range result.Matches {
		assert.NotEqual(t, m.LeftIndex, m.RightIndex)
		assert.Greater(t, m.Score, 0.5)
	}
}

func TestLinker_ThresholdIsStrict(t *testing.T) {
	linker := newPersonLinker(t, 2.0/3, nil)

	result, err := linker.LinkIntra(context.Background(), people())
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 5}, {2, 7}, {4, 8}}, pairsOf(result.Matches))

	linker = newPersonLinker(t, 1.0, nil)
	result, err = linker.LinkIntra(context.Background(), people())
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
}

func TestLinker_ResultIndependentOfWorkers(t *testing.T) {
	sequential := newPersonLinker(t, 0.0, func(c *Config) {
		c.Workers = 1
		c.BatchSize = 1
	})
	parallel := newPersonLinker(t, 0.0, func(c *Config) {
		c.Workers = 8
		c.BatchSize = 1
	})

	want, err := sequential.LinkIntra(context.Background(), people())
	require.NoError(t, err)
	for range 10 {
		got, err := parallel.LinkIntra(context.Background(), people())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestLinker_NaiveComparesEveryPairOnce(t *testing.T) {
	linker := newPersonLinker(t, -1, func(c *Config) {
		c.Strategy = partitioning.Naive{}
	})

	result, err := linker.LinkIntra(context.Background(), people())
	require.NoError(t, err)
	assert.Equal(t, 36, result.Candidates)
	assert.Len(t, result.Matches, 36)

	seen := make(map[[2]int]bool)
	for _, p := range pairsOf(result.Matches) {
		assert.Less(t, p[0], p[1])
		assert.False(t, seen[p])
		seen[p] = true
	}
}

func TestLinker_PairFailuresDoNotAbort(t *testing.T) {
	records := people()
	records[6] = person(6, "berta", "tpyo", "seventy")
	records = append(records, person(9, "zoe", "typo", "seventy"))

	linker := newPersonLinker(t, 0.5, nil)
	result, err := linker.LinkIntra(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{0, 5}, {2, 7}, {4, 8}}, pairsOf(result.Matches))
	require.NotEmpty(t, result.Failures)
	for _, f := range result.Failures {
		assert.Contains(t, f.Error, "value type mismatch")
	}
}

func TestLinker_LinkInter(t *testing.T) {
	left := []any{
		map[string]any{"key": "a1", "name": "albert", "city": "berlin"},
		map[string]any{"key": "a2", "name": "berta", "city": "hamburg"},
		map[string]any{"key": "a3", "name": "charles", "city": "munich"},
	}
	right := []any{
		map[string]any{"ref": "b1", "fullname": "berta", "town": "hamburg"},
		map[string]any{"ref": "b2", "fullname": "albrecht", "town": "berlin"},
		map[string]any{"ref": "b3", "fullname": "albert", "town": "berlin"},
		map[string]any{"ref": "b4", "fullname": "dora", "town": "cologne"},
	}

	leftCity, err := partitioning.NewCriterion(partitioning.CriterionConfig{Paths: []string{"city"}})
	require.NoError(t, err)
	rightTown, err := partitioning.NewCriterion(partitioning.CriterionConfig{Paths: []string{"town"}})
	require.NoError(t, err)
	strategy, err := partitioning.NewDisjunct([]partitioning.Criterion{leftCity}, []partitioning.Criterion{rightTown})
	require.NoError(t, err)

	composite, err := similarity.NewComposite([]similarity.Comparison{
		similarity.MustComparison(similarity.ComparisonConfig{Metric: similarity.MetricJaroWinkler, Left: "name", Right: "fullname"}),
	}, similarity.Options{})
	require.NoError(t, err)

	leftID, err := PathProjection("key")
	require.NoError(t, err)
	rightID, err := PathProjection("ref")
	require.NoError(t, err)
	decider, err := NewDecider(DeciderConfig{Threshold: 0.95, LeftID: leftID, RightID: rightID})
	require.NoError(t, err)

	linker, err := NewLinker(Config{Mode: ModeInter, Strategy: strategy, Similarity: composite, Decider: decider}, testLogger())
	require.NoError(t, err)

	result, err := linker.Run(context.Background(), left, right)
	require.NoError(t, err)

	// berlin: a1 x {b2, b3}; hamburg: a2 x b1; munich and cologne have no partner
	assert.Equal(t, 3, result.Candidates)
	assert.Equal(t, 2, result.Bins)
	require.Len(t, result.Matches, 2)
	assert.Equal(t, []any{"a1", "b3"}, result.Matches[0].Value)
	assert.Equal(t, []any{"a2", "b1"}, result.Matches[1].Value)
}

func TestLinker_DuplicateProjection(t *testing.T) {
	dup, err := ExpressionProjection(expressions.NewEvaluator(), `{ids: [[0].id, [1].id], name: [0]."first name"}`)
	require.NoError(t, err)
	linker := newPersonLinker(t, 0.9, func(c *Config) {
		c.Decider.duplicate = &dup
	})

	result, err := linker.LinkIntra(context.Background(), people())
	require.NoError(t, err)
	require.Len(t, result.Matches, 3)
	assert.Equal(t, map[string]any{
		"ids":  []any{0.0, 5.0},
		"name": "albert",
	}, result.Matches[0].Value)
}

func TestLinker_IdentityProjectionKeepsRecords(t *testing.T) {
	decider, err := NewDecider(DeciderConfig{Threshold: 0.99})
	require.NoError(t, err)
	linker := newPersonLinker(t, 0, func(c *Config) {
		c.Decider = decider
	})

	records := people()
	result, err := linker.LinkIntra(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, []any{records[0], records[5]}, result.Matches[0].Value)
}

func TestLinker_CancelledContext(t *testing.T) {
	linker := newPersonLinker(t, 0.5, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := linker.LinkIntra(ctx, people())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLinker_EmptyInput(t *testing.T) {
	linker := newPersonLinker(t, 0.5, nil)

	result, err := linker.LinkIntra(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.Zero(t, result.Candidates)

	result, err = linker.LinkInter(context.Background(), people(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
}

func TestNewLinker_RequiresComponents(t *testing.T) {
	_, err := NewLinker(Config{}, testLogger())
	assert.True(t, ferrors.IsConfigError(err))

	_, err = NewLinker(Config{Strategy: partitioning.Naive{}}, testLogger())
	assert.True(t, ferrors.IsConfigError(err))

	_, err = NewDecider(DeciderConfig{Threshold: math.NaN()})
	assert.Error(t, err)
}

func TestLinker_Score(t *testing.T) {
	linker := newPersonLinker(t, 0.5, nil)
	records := people()

	score, ok, err := linker.Score(records[1], records[6])
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 2.0/3, score.Value, 1e-9)

	_, ok, err = linker.Score(records[0], records[3])
	require.NoError(t, err)
	assert.False(t, ok)
}

const personSpec = `
name: people
mode: intra
blocking:
  left:
    - fields: ["last name"]
    - fields: [age]
metrics:
  - metric: levenshtein
    left: first name
  - metric: jaccard
    left: last name
  - metric: numeric_difference
    left: age
    tolerance: 10
threshold: 0.5
id_projection:
  left:
    path: id
`

func TestBuild(t *testing.T) {
	spec, err := models.ParseLinkageSpec([]byte(personSpec))
	require.NoError(t, err)

	linker, err := Build(*spec, nil, 2, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, linker.config.Workers)

	result, err := linker.LinkIntra(context.Background(), people())
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 5}, {2, 7}, {4, 8}, {1, 6}}, pairsOf(result.Matches))
	assert.Equal(t, []any{1, 6}, result.Matches[3].Value)

	viaRun, err := linker.Run(context.Background(), people(), nil)
	require.NoError(t, err)
	assert.Equal(t, result, viaRun)
}

func TestBuild_InvalidSpecs(t *testing.T) {
	base := func() models.LinkageSpec {
		spec, err := models.ParseLinkageSpec([]byte(personSpec))
		require.NoError(t, err)
		return *spec
	}

	t.Run("unknown metric", func(t *testing.T) {
		spec := base()
		spec.Metrics[0].Metric = "telepathy"
		_, err := Build(spec, nil, 0, testLogger())
		assert.True(t, ferrors.IsConfigError(err))
	})

	t.Run("numeric difference without tolerance", func(t *testing.T) {
		spec := base()
		spec.Metrics[2].Tolerance = nil
		_, err := Build(spec, nil, 0, testLogger())
		assert.True(t, ferrors.IsConfigError(err))
	})

	t.Run("empty metric list", func(t *testing.T) {
		spec := base()
		spec.Metrics = nil
		_, err := Build(spec, nil, 0, testLogger())
		assert.True(t, ferrors.IsConfigError(err))

		spec.AllowEmptyMetrics = true
		_, err = Build(spec, nil, 0, testLogger())
		assert.NoError(t, err)
	})

	t.Run("unknown aggregator", func(t *testing.T) {
		spec := base()
		spec.Aggregator = "median"
		_, err := Build(spec, nil, 0, testLogger())
		assert.True(t, ferrors.IsConfigError(err))
	})

	t.Run("malformed duplicate projection", func(t *testing.T) {
		spec := base()
		spec.DuplicateProjection = "[0.id"
		_, err := Build(spec, nil, 0, testLogger())
		assert.True(t, ferrors.IsConfigError(err))
	})
}
