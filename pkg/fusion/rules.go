package fusion

import (
	"math"
	"sort"
	"unicode/utf8"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/fern/pkg/value"
)

// weighted is a present (non-null) value with its weight.
type weighted struct {
	value  any
	weight float64
}

// present drops nulls and normalizes what remains, keeping input order.
func present(values []any, weights []float64) []weighted {
	out := make([]weighted, 0, len(values))
	for i, v := range values {
		if value.IsNull(v) || value.IsMissing(v) {
			continue
		}
		out = append(out, weighted{value: value.Normalize(v), weight: weights[i]})
	}
	return out
}

// MergeDistinct returns the distinct non-null values as an array sorted by
// value.Compare. A cluster with nothing left after null removal fuses to an
// empty array.
type MergeDistinct struct{}

func (MergeDistinct) Name() string {
	return RuleMergeDistinct
}

func (MergeDistinct) Fuse(values []any, weights []float64) (any, error) {
	items := ectolinq.Map(present(values, weights), func(w weighted) any {
		return w.value
	})
	value.Sort(items)

	out := make([]any, 0, len(items))
	for _, item := range items {
		if len(out) > 0 && value.Equal(out[len(out)-1], item) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// MostTrusted picks the non-null value with the highest weight. Equal
// weights resolve to the lowest value.
type MostTrusted struct{}

func (MostTrusted) Name() string {
	return RuleMostTrusted
}

func (MostTrusted) Fuse(values []any, weights []float64) (any, error) {
	var best *weighted
	for _, w := range present(values, weights) {
		if best == nil || w.weight > best.weight || (w.weight == best.weight && value.Less(w.value, best.value)) {
			best = &w
		}
	}
	if best == nil {
		return nil, nil
	}
	return best.value, nil
}

// Vote picks the value with the greatest summed weight. Ties resolve to the
// lowest value.
type Vote struct{}

func (Vote) Name() string {
	return RuleVote
}

func (Vote) Fuse(values []any, weights []float64) (any, error) {
	type tally struct {
		value   any
		weights []float64
	}
	tallies := make(map[string]*tally)
	for _, w := range present(values, weights) {
		key := value.Key(w.value)
		t, ok := tallies[key]
		if !ok {
			t = &tally{value: w.value}
			tallies[key] = t
		}
		t.weights = append(t.weights, w.weight)
	}

	var winner any
	bestTotal := math.Inf(-1)
	for _, t := range ectolinq.Values(tallies) {
		total := stableSum(t.weights)
		if total > bestTotal || (total == bestTotal && value.Less(t.value, winner)) {
			winner, bestTotal = t.value, total
		}
	}
	return winner, nil
}

// lengthRule picks the longest or shortest string. Empty strings never win
// the shortest rule; ties resolve to the lowest string.
type lengthRule struct {
	name    string
	longest bool
}

func (r lengthRule) Name() string {
	return r.name
}

func (r lengthRule) Fuse(values []any, weights []float64) (any, error) {
	var best string
	bestLen := -1
	for _, w := range present(values, weights) {
		s, ok := w.value.(string)
		if !ok {
			continue
		}
		n := utf8.RuneCountInString(s)
		if !r.longest && n == 0 {
			continue
		}
		better := bestLen < 0 || (r.longest && n > bestLen) || (!r.longest && n < bestLen)
		if better || (n == bestLen && s < best) {
			best, bestLen = s, n
		}
	}
	if bestLen < 0 {
		return nil, nil
	}
	return best, nil
}

// numericRule reduces the numeric values of a cluster. Non-numeric values
// and NaN are ignored; a cluster without numbers fuses to null.
type numericRule struct {
	name   string
	reduce func(nums []weighted) float64
}

func (r numericRule) Name() string {
	return r.name
}

func (r numericRule) Fuse(values []any, weights []float64) (any, error) {
	nums := ectolinq.Filter(present(values, weights), func(w weighted) bool {
		f, ok := w.value.(float64)
		return ok && !math.IsNaN(f)
	})
	if len(nums) == 0 {
		return nil, nil
	}
	// floating point sums depend on order
	sort.Slice(nums, func(i, j int) bool {
		a, b := nums[i].value.(float64), nums[j].value.(float64)
		if a != b {
			return a < b
		}
		return nums[i].weight < nums[j].weight
	})
	return r.reduce(nums), nil
}

func maxOf(nums []weighted) float64 {
	return nums[len(nums)-1].value.(float64)
}

func minOf(nums []weighted) float64 {
	return nums[0].value.(float64)
}

func sumOf(nums []weighted) float64 {
	var sum float64
	for _, n := range nums {
		sum += n.value.(float64)
	}
	return sum
}

func averageOf(nums []weighted) float64 {
	return sumOf(nums) / float64(len(nums))
}

// weightedAverage falls back to the plain mean when every weight is zero.
func weightedAverage(nums []weighted) float64 {
	var sum, total float64
	for _, n := range nums {
		sum += n.value.(float64) * n.weight
		total += n.weight
	}
	if total == 0 {
		return averageOf(nums)
	}
	return sum / total
}

func stableSum(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	var sum float64
	for _, x := range sorted {
		sum += x
	}
	return sum
}

// CollectAll keeps the non-null values in input order. Unlike the other
// rules its result depends on input order.
type CollectAll struct {
	Dedup    bool
	MaxItems int
}

func newCollectAll(params Params) (Rule, error) {
	dedup, err := params.Bool("dedup", false)
	if err != nil {
		return nil, err
	}
	maxItems, err := params.Int("max_items", 0)
	if err != nil {
		return nil, err
	}
	return CollectAll{Dedup: dedup, MaxItems: maxItems}, nil
}

func (CollectAll) Name() string {
	return RuleCollectAll
}

func (r CollectAll) Fuse(values []any, weights []float64) (any, error) {
	out := make([]any, 0, len(values))
	seen := make(map[string]struct{})
	for _, w := range present(values, weights) {
		if r.Dedup {
			key := value.Key(w.value)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, w.value)
		if r.MaxItems > 0 && len(out) >= r.MaxItems {
			break
		}
	}
	return out, nil
}

// FirstNonNull returns the first non-null value in input order.
type FirstNonNull struct{}

func (FirstNonNull) Name() string {
	return RuleFirstNonNull
}

func (FirstNonNull) Fuse(values []any, weights []float64) (any, error) {
	items := present(values, weights)
	if len(items) == 0 {
		return nil, nil
	}
	return items[0].value, nil
}
