package similarity

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/value"
)

// stringMetric adapts a string scoring function to Metric. Numbers and
// booleans are compared by their string form; arrays and objects are a
// type mismatch.
type stringMetric struct {
	name string
	fn   func(a, b string) float64
}

func stringMetricFactory(name string, fn func(a, b string) float64) Factory {
	return func(Params) (Metric, error) {
		return &stringMetric{name: name, fn: fn}, nil
	}
}

func (m *stringMetric) Name() string {
	return m.name
}

func (m *stringMetric) Score(a, b any) (float64, error) {
	sa, okA := value.ToString(a)
	sb, okB := value.ToString(b)
	if !okA || !okB {
		return 0, mismatch(m.name, a, b)
	}
	return clamp(m.fn(sa, sb)), nil
}

type jaroWinklerMetric struct {
	prefixScale float64
}

func newJaroWinklerMetric(params Params) (Metric, error) {
	scale, set, err := params.Float("prefix_scale")
	if err != nil {
		return nil, err
	}
	if !set {
		scale = 0.1
	}
	if scale < 0 || scale > 0.25 {
		return nil, fmt.Errorf("prefix_scale must be between 0.0 and 0.25 (got %.2f)", scale)
	}
	return &jaroWinklerMetric{prefixScale: scale}, nil
}

func (m *jaroWinklerMetric) Name() string {
	return MetricJaroWinkler
}

func (m *jaroWinklerMetric) Score(a, b any) (float64, error) {
	sa, okA := value.ToString(a)
	sb, okB := value.ToString(b)
	if !okA || !okB {
		return 0, mismatch(MetricJaroWinkler, a, b)
	}
	return clamp(JaroWinklerScaled(sa, sb, m.prefixScale)), nil
}

type exactMetric struct {
	caseSensitive bool
}

func newExactMetric(params Params) (Metric, error) {
	caseSensitive, err := params.Bool("case_sensitive", true)
	if err != nil {
		return nil, err
	}
	return &exactMetric{caseSensitive: caseSensitive}, nil
}

func (m *exactMetric) Name() string {
	return MetricExact
}

// Score compares any two values structurally.
func (m *exactMetric) Score(a, b any) (float64, error) {
	if !m.caseSensitive {
		if sa, ok := a.(string); ok {
			a = strings.ToLower(sa)
		}
		if sb, ok := b.(string); ok {
			b = strings.ToLower(sb)
		}
	}
	if value.Equal(a, b) {
		return 1.0, nil
	}
	return 0.0, nil
}

// Levenshtein returns 1 - distance/maxLen over runes. Two empty strings are
// identical.
func Levenshtein(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(ra, rb))/float64(maxLen)
}

// LevenshteinDistance calculates the edit distance between two strings
func LevenshteinDistance(a, b string) int {
	return levenshteinDistance([]rune(a), []rune(b))
}

func levenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)
	for j := range prevRow {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(row[j-1]+1, prevRow[j]+1, prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}

// Jaccard compares whitespace-separated token sets: |A∩B| / |A∪B|.
func Jaccard(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1.0
	}

	intersection := 0
	for token := range ta {
		if _, ok := tb[token]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	tokens := strings.Fields(s)
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// Jaro calculates the Jaro similarity between two strings
func Jaro(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if a == b {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}

	matchDist := max(max(len(ra), len(rb))/2-1, 0)

	aMatches := make([]bool, len(ra))
	bMatches := make([]bool, len(rb))

	matches := 0
	for i := range ra {
		start := max(0, i-matchDist)
		end := min(len(rb), i+matchDist+1)

		for j := start; j < end; j++ {
			if bMatches[j] || ra[i] != rb[j] {
				continue
			}
			aMatches[i] = true
			bMatches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := range ra {
		if !aMatches[i] {
			continue
		}
		for !bMatches[k] {
			k++
		}
		if ra[i] != rb[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2

	return (m/float64(len(ra)) + m/float64(len(rb)) + (m-t)/m) / 3
}

// JaroWinkler is Jaro boosted by a common prefix of up to four runes with
// the standard 0.1 scaling factor.
func JaroWinkler(a, b string) float64 {
	return JaroWinklerScaled(a, b, 0.1)
}

// JaroWinklerScaled is JaroWinkler with a custom prefix scale.
func JaroWinklerScaled(a, b string, scale float64) float64 {
	jaro := Jaro(a, b)
	if jaro == 1.0 {
		return jaro
	}

	ra, rb := []rune(a), []rune(b)
	prefixLen := 0
	for i := 0; i < len(ra) && i < len(rb) && i < 4; i++ {
		if ra[i] != rb[i] {
			break
		}
		prefixLen++
	}

	return jaro + float64(prefixLen)*scale*(1.0-jaro)
}

// SoundexMatch returns 1.0 if Soundex codes match, 0.0 otherwise
func SoundexMatch(a, b string) float64 {
	if normalizers.Soundex(a) == normalizers.Soundex(b) {
		return 1.0
	}
	return 0.0
}

// MetaphoneMatch returns 1.0 if Metaphone codes match, 0.0 otherwise
func MetaphoneMatch(a, b string) float64 {
	if normalizers.Metaphone(a) == normalizers.Metaphone(b) {
		return 1.0
	}
	return 0.0
}

func clamp(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}
