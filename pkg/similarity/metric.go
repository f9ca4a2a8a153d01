// Package similarity scores record pairs. Field-level metrics are registered
// by name and combined by a Composite into one score per pair.
package similarity

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/value"
)

var (
	// ErrTypeMismatch is returned when a metric receives a value it cannot score.
	ErrTypeMismatch = errors.New("value type mismatch")
	// ErrMissingField is returned under MissingFail when a compared field is absent.
	ErrMissingField = errors.New("missing field")
)

// Metric scores a pair of field values. Scores lie in [0,1] where 1 means
// identical. Well-formed metrics are symmetric.
type Metric interface {
	Name() string
	Score(a, b any) (float64, error)
}

// Params carries metric-specific configuration such as a tolerance.
type Params map[string]any

// Float returns a numeric parameter.
func (p Params) Float(key string) (float64, bool, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	f, ok := value.ToFloat64(raw)
	if !ok {
		return 0, true, fmt.Errorf("parameter %q must be a number (got %T)", key, raw)
	}
	return f, true, nil
}

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

// String returns a string parameter, or def when unset.
func (p Params) String(key, def string) string {
	if s, ok := p[key].(string); ok && s != "" {
		return s
	}
	return def
}

// Factory builds a configured metric. Invalid parameters are reported here
// so they surface before any record is scored.
type Factory func(params Params) (Metric, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

const (
	MetricLevenshtein       = "levenshtein"
	MetricJaccard           = "jaccard"
	MetricJaro              = "jaro"
	MetricJaroWinkler       = "jaro_winkler"
	MetricSoundex           = "soundex"
	MetricMetaphone         = "metaphone"
	MetricExact             = "exact"
	MetricNumericDifference = "numeric_difference"
	MetricDateProximity     = "date_proximity"
)

func init() {
	Register(MetricLevenshtein, stringMetricFactory(MetricLevenshtein, Levenshtein))
	Register(MetricJaccard, stringMetricFactory(MetricJaccard, Jaccard))
	Register(MetricJaro, stringMetricFactory(MetricJaro, Jaro))
	Register(MetricJaroWinkler, newJaroWinklerMetric)
	Register(MetricSoundex, stringMetricFactory(MetricSoundex, SoundexMatch))
	Register(MetricMetaphone, stringMetricFactory(MetricMetaphone, MetaphoneMatch))
	Register(MetricExact, newExactMetric)
	Register(MetricNumericDifference, newNumericDifferenceMetric)
	Register(MetricDateProximity, newDateProximityMetric)
}

// Register adds a metric factory under name, replacing any existing entry.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New builds the named metric.
func New(name string, params Params) (Metric, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, ferrors.NewConfigErrorf("unknown metric %q", name).AddComponent("similarity")
	}

	metric, err := factory(params)
	if err != nil {
		return nil, ferrors.NewConfigErrorf("metric %q: %w", name, err).AddComponent("similarity")
	}
	return metric, nil
}

// Names lists registered metrics in sorted order.
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

func mismatch(metric string, a, b any) error {
	return fmt.Errorf("%s cannot compare %s and %s: %w", metric, value.KindOf(a), value.KindOf(b), ErrTypeMismatch)
}
