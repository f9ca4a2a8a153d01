package linkage

import (
	"fmt"
	"math"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/extractor"
	"github.com/Ramsey-B/fern/pkg/similarity"
	"github.com/Ramsey-B/fern/pkg/value"
)

// Projection derives an output value from a record, either by field path or
// by JMESPath expression. The zero Projection is the identity.
type Projection struct {
	path       extractor.Path
	expression string
	evaluator  *expressions.Evaluator
}

// PathProjection projects by field path.
func PathProjection(path string) (Projection, error) {
	p, err := extractor.Compile(path)
	if err != nil {
		return Projection{}, ferrors.WrapConfigError(err).AddComponent("linkage").AddField(path)
	}
	return Projection{path: p}, nil
}

// ExpressionProjection projects by JMESPath expression. The expression is
// compiled now so a malformed one fails configuration.
func ExpressionProjection(evaluator *expressions.Evaluator, expression string) (Projection, error) {
	if evaluator == nil {
		evaluator = expressions.NewEvaluator()
	}
	if err := evaluator.Validate(expression); err != nil {
		return Projection{}, ferrors.NewConfigErrorf("invalid projection expression %q: %w", expression, err).AddComponent("linkage")
	}
	return Projection{expression: expression, evaluator: evaluator}, nil
}

// Apply projects v. Unresolvable paths project to null.
func (p Projection) Apply(v any) (any, error) {
	if p.expression != "" {
		return p.evaluator.Evaluate(p.expression, v)
	}
	out := p.path.Evaluate(v)
	if value.IsMissing(out) {
		return nil, nil
	}
	return out, nil
}

// Match is a candidate pair whose score exceeded the threshold.
type Match struct {
	LeftIndex  int                      `json:"left_index"`
	RightIndex int                      `json:"right_index"`
	Score      float64                  `json:"score"`
	Value      any                      `json:"value"`
	Metrics    []similarity.MetricScore `json:"metrics,omitempty"`
}

// DeciderConfig configures a Decider.
type DeciderConfig struct {
	Threshold float64
	LeftID    Projection
	RightID   Projection
	// Duplicate, when set, is evaluated on [left, right] and replaces the
	// default [leftID, rightID] output.
	Duplicate *Projection
}

// Decider accepts pairs whose score is strictly greater than the threshold.
type Decider struct {
	threshold float64
	leftID    Projection
	rightID   Projection
	duplicate *Projection
}

// NewDecider validates cfg.
func NewDecider(cfg DeciderConfig) (*Decider, error) {
	if math.IsNaN(cfg.Threshold) || math.IsInf(cfg.Threshold, 0) {
		return nil, ferrors.NewConfigErrorf("threshold must be finite (got %v)", cfg.Threshold).AddComponent("linkage")
	}
	return &Decider{
		threshold: cfg.Threshold,
		leftID:    cfg.LeftID,
		rightID:   cfg.RightID,
		duplicate: cfg.Duplicate,
	}, nil
}

// Threshold returns the configured threshold.
func (d *Decider) Threshold() float64 {
	return d.threshold
}

// Accepts reports whether score is a match. Equality is not a match.
func (d *Decider) Accepts(score float64) bool {
	return score > d.threshold
}

// Decide turns a scored pair into a Match, or reports false.
func (d *Decider) Decide(pair CandidatePair, score float64) (Match, bool, error) {
	if !d.Accepts(score) {
		return Match{}, false, nil
	}

	out, err := d.project(pair)
	if err != nil {
		return Match{}, false, fmt.Errorf("projecting pair (%d, %d): %w", pair.LeftIndex, pair.RightIndex, err)
	}

	return Match{
		LeftIndex:  pair.LeftIndex,
		RightIndex: pair.RightIndex,
		Score:      score,
		Value:      out,
	}, true, nil
}

func (d *Decider) project(pair CandidatePair) (any, error) {
	if d.duplicate != nil {
		return d.duplicate.Apply([]any{pair.Left, pair.Right})
	}

	leftID, err := d.leftID.Apply(pair.Left)
	if err != nil {
		return nil, err
	}
	rightID, err := d.rightID.Apply(pair.Right)
	if err != nil {
		return nil, err
	}
	return []any{leftID, rightID}, nil
}
