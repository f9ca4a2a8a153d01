package similarity

import (
	"fmt"
	"math"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/extractor"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/value"
)

// MissingPolicy decides how an absent or null field value contributes.
type MissingPolicy string

const (
	// MissingZero scores the metric 0, the lowest possible contribution.
	MissingZero MissingPolicy = "zero"
	// MissingSkip leaves the metric out of the aggregate for that pair.
	MissingSkip MissingPolicy = "skip"
	// MissingFail fails scoring of the pair with ErrMissingField.
	MissingFail MissingPolicy = "fail"
)

// ParseMissingPolicy validates a policy name. The empty string is MissingZero.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch MissingPolicy(s) {
	case "", MissingZero:
		return MissingZero, nil
	case MissingSkip, MissingFail:
		return MissingPolicy(s), nil
	}
	return "", ferrors.NewConfigErrorf("unknown missing policy %q", s).AddComponent("similarity")
}

// ComparisonConfig describes one (metric, left path, right path) entry.
type ComparisonConfig struct {
	Metric      string
	Params      Params
	Left        string
	Right       string // defaults to Left
	Normalizers []string
	Weight      float64 // defaults to 1
}

// Comparison is a compiled metric over one field pair.
type Comparison struct {
	Metric      Metric
	Left        extractor.Path
	Right       extractor.Path
	Normalizers normalizers.Chain
	Weight      float64
}

// NewComparison compiles cfg.
func NewComparison(cfg ComparisonConfig) (Comparison, error) {
	metric, err := New(cfg.Metric, cfg.Params)
	if err != nil {
		return Comparison{}, err
	}

	left, err := extractor.Compile(cfg.Left)
	if err != nil {
		return Comparison{}, ferrors.WrapConfigError(err).AddComponent("similarity").AddField(cfg.Left)
	}
	rightPath := cfg.Right
	if rightPath == "" {
		rightPath = cfg.Left
	}
	right, err := extractor.Compile(rightPath)
	if err != nil {
		return Comparison{}, ferrors.WrapConfigError(err).AddComponent("similarity").AddField(rightPath)
	}

	chain, err := normalizers.NewChain(cfg.Normalizers...)
	if err != nil {
		return Comparison{}, ferrors.WrapConfigError(err).AddComponent("similarity").AddField(cfg.Left)
	}

	weight := cfg.Weight
	if weight == 0 {
		weight = 1
	}
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return Comparison{}, ferrors.NewConfigErrorf("weight must be a positive finite number (got %v)", cfg.Weight).AddComponent("similarity").AddField(cfg.Left)
	}

	return Comparison{
		Metric:      metric,
		Left:        left,
		Right:       right,
		Normalizers: chain,
		Weight:      weight,
	}, nil
}

// MustComparison is NewComparison for static configuration.
func MustComparison(cfg ComparisonConfig) Comparison {
	c, err := NewComparison(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// values extracts and normalizes both sides. missing is true when either
// side is absent or null.
func (c Comparison) values(left, right any) (a, b any, missing bool) {
	a = c.Normalizers.Apply(c.Left.Evaluate(left))
	b = c.Normalizers.Apply(c.Right.Evaluate(right))
	missing = value.IsMissing(a) || value.IsMissing(b) || value.IsNull(a) || value.IsNull(b)
	return a, b, missing
}

// MetricScore is one metric's contribution to a pair score.
type MetricScore struct {
	Metric  string  `json:"metric"`
	Left    string  `json:"left"`
	Right   string  `json:"right"`
	Score   float64 `json:"score"`
	Missing bool    `json:"missing,omitempty"`
	Skipped bool    `json:"skipped,omitempty"`
}

// Score is an aggregated pair score with its breakdown.
type Score struct {
	Value   float64       `json:"value"`
	Metrics []MetricScore `json:"metrics,omitempty"`
}

// Options configure a Composite.
type Options struct {
	Aggregator    Aggregator // defaults to the arithmetic mean
	MissingPolicy MissingPolicy
	// AllowEmpty permits a Composite without comparisons; such a Composite,
	// and any pair whose every metric was skipped, scores EmptyScore.
	AllowEmpty bool
	EmptyScore float64
}

// Composite aggregates an ordered list of comparisons into one score. It
// holds no mutable state and is safe for concurrent use.
type Composite struct {
	comparisons []Comparison
	aggregator  Aggregator
	missing     MissingPolicy
	allowEmpty  bool
	emptyScore  float64
}

// NewComposite validates the configuration. An empty comparison list is a
// configuration error unless opts.AllowEmpty is set.
func NewComposite(comparisons []Comparison, opts Options) (*Composite, error) {
	if len(comparisons) == 0 && !opts.AllowEmpty {
		return nil, ferrors.NewConfigError("at least one similarity metric is required").AddComponent("similarity")
	}

	policy, err := ParseMissingPolicy(string(opts.MissingPolicy))
	if err != nil {
		return nil, err
	}

	agg := opts.Aggregator
	if agg == nil {
		agg, _ = NewAggregator(AggregatorMean)
	}

	for i, c := range comparisons {
		if c.Metric == nil {
			return nil, ferrors.NewConfigError("comparison has no metric").AddComponent("similarity").AddIndex(i)
		}
	}

	return &Composite{
		comparisons: comparisons,
		aggregator:  agg,
		missing:     policy,
		allowEmpty:  opts.AllowEmpty,
		emptyScore:  opts.EmptyScore,
	}, nil
}

// Len returns the number of comparisons.
func (c *Composite) Len() int {
	return len(c.comparisons)
}

// Score scores a record pair. A type mismatch, or a missing field under
// MissingFail, fails this pair only.
func (c *Composite) Score(left, right any) (Score, error) {
	result := Score{Metrics: make([]MetricScore, 0, len(c.comparisons))}
	scores := make([]float64, 0, len(c.comparisons))
	weights := make([]float64, 0, len(c.comparisons))

	for _, cmp := range c.comparisons {
		entry := MetricScore{
			Metric: cmp.Metric.Name(),
			Left:   cmp.Left.String(),
			Right:  cmp.Right.String(),
		}

		a, b, missing := cmp.values(left, right)
		if missing {
			entry.Missing = true
			switch c.missing {
			case MissingFail:
				return Score{}, fmt.Errorf("%s (%s, %s): %w", entry.Metric, entry.Left, entry.Right, ErrMissingField)
			case MissingSkip:
				entry.Skipped = true
				result.Metrics = append(result.Metrics, entry)
				continue
			}
			result.Metrics = append(result.Metrics, entry)
			scores = append(scores, 0)
			weights = append(weights, cmp.Weight)
			continue
		}

		score, err := cmp.Metric.Score(a, b)
		if err != nil {
			return Score{}, fmt.Errorf("%s (%s, %s): %w", entry.Metric, entry.Left, entry.Right, err)
		}
		entry.Score = score
		result.Metrics = append(result.Metrics, entry)
		scores = append(scores, score)
		weights = append(weights, cmp.Weight)
	}

	if len(scores) == 0 {
		result.Value = c.emptyScore
		return result, nil
	}

	result.Value = c.aggregator.Aggregate(scores, weights)
	return result, nil
}
