// Package fusion consolidates clusters of duplicate values into one value
// using named, per-field rules.
package fusion

import (
	"fmt"
	"sort"
	"sync"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/value"
)

// Rule fuses a cluster of values into one. values[i] carries weights[i];
// the engine guarantees equal lengths and non-negative finite weights.
// Rules must not retain or modify their inputs.
type Rule interface {
	Name() string
	Fuse(values []any, weights []float64) (any, error)
}

// Params configures a rule.
type Params map[string]any

// Bool returns a boolean parameter, or def when unset.
func (p Params) Bool(key string, def bool) (bool, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return def, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("parameter %q must be a boolean (got %T)", key, raw)
	}
	return b, nil
}

// Int returns a non-negative integer parameter, or def when unset.
func (p Params) Int(key string, def int) (int, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return def, nil
	}
	f, ok := value.ToFloat64(raw)
	if !ok || f < 0 || f != float64(int(f)) {
		return 0, fmt.Errorf("parameter %q must be a non-negative integer (got %v)", key, raw)
	}
	return int(f), nil
}

// Factory builds a configured rule.
type Factory func(params Params) (Rule, error)

const (
	RuleMergeDistinct   = "merge_distinct"
	RuleMostTrusted     = "most_trusted"
	RuleVote            = "vote"
	RuleWeightedAverage = "weighted_average"
	RuleLongest         = "longest"
	RuleShortest        = "shortest"
	RuleMax             = "max"
	RuleMin             = "min"
	RuleSum             = "sum"
	RuleAverage         = "average"
	RuleCollectAll      = "collect_all"
	RuleFirstNonNull    = "first_non_null"
)

// DefaultRule is used for fields without a configured rule.
const DefaultRule = RuleMostTrusted

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

func init() {
	Register(RuleMergeDistinct, static(MergeDistinct{}))
	Register(RuleMostTrusted, static(MostTrusted{}))
	Register(RuleVote, static(Vote{}))
	Register(RuleWeightedAverage, static(numericRule{RuleWeightedAverage, weightedAverage}))
	Register(RuleLongest, static(lengthRule{RuleLongest, true}))
	Register(RuleShortest, static(lengthRule{RuleShortest, false}))
	Register(RuleMax, static(numericRule{RuleMax, maxOf}))
	Register(RuleMin, static(numericRule{RuleMin, minOf}))
	Register(RuleSum, static(numericRule{RuleSum, sumOf}))
	Register(RuleAverage, static(numericRule{RuleAverage, averageOf}))
	Register(RuleCollectAll, newCollectAll)
	Register(RuleFirstNonNull, static(FirstNonNull{}))
}

func static(rule Rule) Factory {
	return func(Params) (Rule, error) {
		return rule, nil
	}
}

// Register adds a rule factory under name, replacing any existing entry.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New builds the named rule. Unknown names and bad parameters are
// configuration errors.
func New(name string, params Params) (Rule, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, ferrors.NewConfigErrorf("unknown fusion rule %q", name).AddComponent("fusion")
	}

	rule, err := factory(params)
	if err != nil {
		return nil, ferrors.WrapConfigError(err).AddComponent("fusion")
	}
	return rule, nil
}

// Names lists the registered rules in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
