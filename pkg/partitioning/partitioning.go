// Package partitioning maps records to blocking keys and groups them into
// bins so that only records sharing a key are compared.
package partitioning

import (
	"fmt"
	"strings"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/extractor"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/value"
)

// Side selects the input source a record belongs to.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// CriterionConfig describes one blocking criterion.
type CriterionConfig struct {
	Name        string
	Paths       []string
	Normalizers []string
}

// Criterion is an ordered list of field paths whose values form a key.
type Criterion struct {
	Name        string
	Paths       []extractor.Path
	Normalizers normalizers.Chain
}

// NewCriterion compiles cfg. A criterion needs at least one path.
func NewCriterion(cfg CriterionConfig) (Criterion, error) {
	if len(cfg.Paths) == 0 {
		return Criterion{}, ferrors.NewConfigError("criterion needs at least one field path").AddComponent("partitioning").AddField(cfg.Name)
	}

	c := Criterion{Name: cfg.Name}
	for _, raw := range cfg.Paths {
		p, err := extractor.Compile(raw)
		if err != nil {
			return Criterion{}, ferrors.WrapConfigError(err).AddComponent("partitioning").AddField(raw)
		}
		c.Paths = append(c.Paths, p)
	}

	chain, err := normalizers.NewChain(cfg.Normalizers...)
	if err != nil {
		return Criterion{}, ferrors.WrapConfigError(err).AddComponent("partitioning").AddField(cfg.Name)
	}
	c.Normalizers = chain

	if c.Name == "" {
		names := make([]string, len(c.Paths))
		for i, p := range c.Paths {
			names[i] = p.String()
		}
		c.Name = strings.Join(names, "+")
	}
	return c, nil
}

// Values extracts the key tuple. Absent fields contribute value.Missing,
// so a record always has a key.
func (c Criterion) Values(record any) []any {
	values := make([]any, len(c.Paths))
	for i, p := range c.Paths {
		values[i] = c.Normalizers.Apply(p.Evaluate(record))
	}
	return values
}

// BlockingKey is the tuple a criterion extracted from one record. Keys are
// equal when they come from the same criterion index and their values are
// structurally equal.
type BlockingKey struct {
	Criterion int
	Values    []any
	canonical string
}

// NewBlockingKey builds a key for criterion index criterion.
func NewBlockingKey(criterion int, values []any) BlockingKey {
	return BlockingKey{
		Criterion: criterion,
		Values:    values,
		canonical: fmt.Sprintf("%d|%s", criterion, value.Key(values)),
	}
}

// String is the canonical encoding; equal keys have equal strings.
func (k BlockingKey) String() string {
	return k.canonical
}

// Equal reports structural key equality.
func (k BlockingKey) Equal(other BlockingKey) bool {
	return k.canonical == other.canonical
}

// Strategy maps records to blocking keys. Implementations are pure: the
// same record and criterion always yield an equal key.
type Strategy interface {
	// Criteria returns the number of criteria configured for side.
	Criteria(side Side) int
	// Key computes the blocking key of record under criterion.
	Key(record any, side Side, criterion int) (BlockingKey, error)
}

// Disjunct co-bins two records when any one criterion yields equal keys.
// Each side has its own criteria so field names may differ across sources;
// criterion i on the left joins criterion i on the right.
type Disjunct struct {
	left  []Criterion
	right []Criterion
}

// NewDisjunct builds the strategy. Right may be empty, in which case both
// sides share the left criteria.
func NewDisjunct(left, right []Criterion) (*Disjunct, error) {
	if len(left) == 0 {
		return nil, ferrors.NewConfigError("at least one blocking criterion is required").AddComponent("partitioning")
	}
	if len(right) == 0 {
		right = left
	}
	if len(left) != len(right) {
		return nil, ferrors.NewConfigErrorf("left and right sides must have the same number of criteria (got %d and %d)", len(left), len(right)).AddComponent("partitioning")
	}
	for i := range left {
		if len(left[i].Paths) != len(right[i].Paths) {
			return nil, ferrors.NewConfigErrorf("criterion %q has %d paths on the left and %d on the right", left[i].Name, len(left[i].Paths), len(right[i].Paths)).AddComponent("partitioning").AddIndex(i)
		}
	}
	return &Disjunct{left: left, right: right}, nil
}

func (d *Disjunct) criteria(side Side) []Criterion {
	if side == Right {
		return d.right
	}
	return d.left
}

func (d *Disjunct) Criteria(side Side) int {
	return len(d.criteria(side))
}

func (d *Disjunct) Key(record any, side Side, criterion int) (BlockingKey, error) {
	criteria := d.criteria(side)
	if criterion < 0 || criterion >= len(criteria) {
		return BlockingKey{}, fmt.Errorf("criterion %d out of range for %s side (%d configured)", criterion, side, len(criteria))
	}
	return NewBlockingKey(criterion, criteria[criterion].Values(record)), nil
}

// Naive places every record in a single bin, so every pair is compared.
type Naive struct{}

func (Naive) Criteria(Side) int {
	return 1
}

func (Naive) Key(_ any, _ Side, criterion int) (BlockingKey, error) {
	if criterion != 0 {
		return BlockingKey{}, fmt.Errorf("criterion %d out of range for naive partitioning", criterion)
	}
	return NewBlockingKey(0, nil), nil
}

var (
	_ Strategy = (*Disjunct)(nil)
	_ Strategy = Naive{}
)
