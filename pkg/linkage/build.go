package linkage

import (
	"github.com/Gobusters/ectologger"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/partitioning"
	"github.com/Ramsey-B/fern/pkg/similarity"
)

// Build compiles a declarative linkage spec into a Linker. workers is used
// when the spec does not set its own worker count.
func Build(spec models.LinkageSpec, evaluator *expressions.Evaluator, workers int, logger ectologger.Logger) (*Linker, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if evaluator == nil {
		evaluator = expressions.NewEvaluator()
	}

	strategy, err := buildStrategy(spec.Blocking)
	if err != nil {
		return nil, err
	}

	composite, err := buildComposite(spec)
	if err != nil {
		return nil, err
	}

	decider, err := buildDecider(spec, evaluator)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	config.Mode = Mode(spec.Mode)
	config.Strategy = strategy
	config.Similarity = composite
	config.Decider = decider
	if workers > 0 {
		config.Workers = workers
	}
	if spec.Workers > 0 {
		config.Workers = spec.Workers
	}

	return NewLinker(config, logger)
}

func buildStrategy(spec models.BlockingSpec) (partitioning.Strategy, error) {
	if spec.Strategy == models.BlockingStrategyNaive {
		return partitioning.Naive{}, nil
	}

	left, err := buildCriteria(spec.Left)
	if err != nil {
		return nil, err
	}
	right, err := buildCriteria(spec.Right)
	if err != nil {
		return nil, err
	}
	return partitioning.NewDisjunct(left, right)
}

func buildCriteria(specs []models.CriterionSpec) ([]partitioning.Criterion, error) {
	criteria := make([]partitioning.Criterion, 0, len(specs))
	for i, s := range specs {
		c, err := partitioning.NewCriterion(partitioning.CriterionConfig{
			Name:        s.Name,
			Paths:       s.Fields,
			Normalizers: s.Normalizers,
		})
		if err != nil {
			return nil, ferrors.WrapConfigError(err).AddIndex(i)
		}
		criteria = append(criteria, c)
	}
	return criteria, nil
}

func buildComposite(spec models.LinkageSpec) (*similarity.Composite, error) {
	comparisons := make([]similarity.Comparison, 0, len(spec.Metrics))
	for i, m := range spec.Metrics {
		params := similarity.Params{}
		for k, v := range m.Params {
			params[k] = v
		}
		if m.Tolerance != nil {
			params["tolerance"] = *m.Tolerance
		}

		c, err := similarity.NewComparison(similarity.ComparisonConfig{
			Metric:      m.Metric,
			Params:      params,
			Left:        m.Left,
			Right:       m.Right,
			Normalizers: m.Normalizers,
			Weight:      m.Weight,
		})
		if err != nil {
			return nil, ferrors.WrapConfigError(err).AddIndex(i)
		}
		comparisons = append(comparisons, c)
	}

	aggregator, err := similarity.NewAggregator(spec.Aggregator)
	if err != nil {
		return nil, err
	}

	return similarity.NewComposite(comparisons, similarity.Options{
		Aggregator:    aggregator,
		MissingPolicy: similarity.MissingPolicy(spec.MissingPolicy),
		AllowEmpty:    spec.AllowEmptyMetrics,
		EmptyScore:    spec.EmptyScore,
	})
}

func buildDecider(spec models.LinkageSpec, evaluator *expressions.Evaluator) (*Decider, error) {
	left, err := buildProjection(spec.IDProjection.Left, evaluator)
	if err != nil {
		return nil, err
	}
	right := left
	if spec.IDProjection.Right != nil {
		right, err = buildProjection(spec.IDProjection.Right, evaluator)
		if err != nil {
			return nil, err
		}
	}

	cfg := DeciderConfig{
		Threshold: spec.Threshold,
		LeftID:    left,
		RightID:   right,
	}
	if spec.DuplicateProjection != "" {
		dup, err := ExpressionProjection(evaluator, spec.DuplicateProjection)
		if err != nil {
			return nil, err
		}
		cfg.Duplicate = &dup
	}
	return NewDecider(cfg)
}

func buildProjection(spec *models.ProjectionSpec, evaluator *expressions.Evaluator) (Projection, error) {
	switch {
	case spec == nil:
		return Projection{}, nil
	case spec.Expression != "":
		return ExpressionProjection(evaluator, spec.Expression)
	default:
		return PathProjection(spec.Path)
	}
}
