package similarity

import (
	"sort"
	"sync"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
)

// Aggregator combines per-metric scores into one pair score. scores and
// weights have equal, non-zero length.
type Aggregator interface {
	Name() string
	Aggregate(scores, weights []float64) float64
}

// AggregatorFunc adapts a function to Aggregator.
type AggregatorFunc struct {
	AggregatorName string
	Fn             func(scores, weights []float64) float64
}

func (f AggregatorFunc) Name() string {
	return f.AggregatorName
}

func (f AggregatorFunc) Aggregate(scores, weights []float64) float64 {
	return f.Fn(scores, weights)
}

const (
	AggregatorMean         = "mean"
	AggregatorWeightedMean = "weighted_mean"
	AggregatorMin          = "min"
	AggregatorMax          = "max"
)

var (
	aggregatorsMu sync.RWMutex
	aggregators   = make(map[string]Aggregator)
)

func init() {
	RegisterAggregator(AggregatorFunc{AggregatorMean, mean})
	RegisterAggregator(AggregatorFunc{AggregatorWeightedMean, weightedMean})
	RegisterAggregator(AggregatorFunc{AggregatorMin, minScore})
	RegisterAggregator(AggregatorFunc{AggregatorMax, maxScore})
}

// RegisterAggregator adds an aggregator, replacing any with the same name.
func RegisterAggregator(agg Aggregator) {
	aggregatorsMu.Lock()
	defer aggregatorsMu.Unlock()
	aggregators[agg.Name()] = agg
}

// NewAggregator looks up an aggregator by name. The empty name is the
// arithmetic mean.
func NewAggregator(name string) (Aggregator, error) {
	if name == "" {
		name = AggregatorMean
	}
	aggregatorsMu.RLock()
	defer aggregatorsMu.RUnlock()
	agg, ok := aggregators[name]
	if !ok {
		return nil, ferrors.NewConfigErrorf("unknown aggregator %q", name).AddComponent("similarity")
	}
	return agg, nil
}

// AggregatorNames lists registered aggregators in sorted order.
func AggregatorNames() []string {
	aggregatorsMu.RLock()
	defer aggregatorsMu.RUnlock()
	names := make([]string, 0, len(aggregators))
	for name := range aggregators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mean(scores, _ []float64) float64 {
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func weightedMean(scores, weights []float64) float64 {
	var totalWeight, weightedSum float64
	for i, s := range scores {
		weightedSum += s * weights[i]
		totalWeight += weights[i]
	}
	if totalWeight == 0 {
		return 0.0
	}
	return weightedSum / totalWeight
}

func minScore(scores, _ []float64) float64 {
	result := scores[0]
	for _, s := range scores[1:] {
		result = min(result, s)
	}
	return result
}

func maxScore(scores, _ []float64) float64 {
	result := scores[0]
	for _, s := range scores[1:] {
		result = max(result, s)
	}
	return result
}
