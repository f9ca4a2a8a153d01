package similarity

import (
	"fmt"
	"math"
	"time"

	"github.com/Ramsey-B/fern/pkg/value"
)

type numericDifferenceMetric struct {
	tolerance float64
}

func newNumericDifferenceMetric(params Params) (Metric, error) {
	tolerance, set, err := params.Float("tolerance")
	if err != nil {
		return nil, err
	}
	if !set {
		return nil, fmt.Errorf("tolerance is required")
	}
	if tolerance <= 0 || math.IsNaN(tolerance) || math.IsInf(tolerance, 0) {
		return nil, fmt.Errorf("tolerance must be a positive finite number (got %v)", tolerance)
	}
	return &numericDifferenceMetric{tolerance: tolerance}, nil
}

// NewNumericDifference returns the numeric difference metric for tolerance.
func NewNumericDifference(tolerance float64) (Metric, error) {
	return newNumericDifferenceMetric(Params{"tolerance": tolerance})
}

func (m *numericDifferenceMetric) Name() string {
	return MetricNumericDifference
}

// Score is max(0, 1 - |a-b|/tolerance). Numeric strings are accepted.
func (m *numericDifferenceMetric) Score(a, b any) (float64, error) {
	fa, okA := numeric(a)
	fb, okB := numeric(b)
	if !okA || !okB {
		return 0, mismatch(MetricNumericDifference, a, b)
	}
	return NumericDifference(fa, fb, m.tolerance), nil
}

// NumericDifference scores two numbers within a tolerance window.
func NumericDifference(a, b, tolerance float64) float64 {
	if a == b {
		return 1.0
	}
	return clamp(1.0 - math.Abs(a-b)/tolerance)
}

func numeric(v any) (float64, bool) {
	switch value.KindOf(v) {
	case value.KindNumber, value.KindString:
		f, ok := value.ToFloat64(v)
		if !ok || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

type dateProximityMetric struct {
	maxDays float64
	layout  string
}

func newDateProximityMetric(params Params) (Metric, error) {
	maxDays, set, err := params.Float("max_days")
	if err != nil {
		return nil, err
	}
	if !set {
		return nil, fmt.Errorf("max_days is required")
	}
	if maxDays <= 0 {
		return nil, fmt.Errorf("max_days must be positive (got %v)", maxDays)
	}
	return &dateProximityMetric{maxDays: maxDays, layout: params.String("layout", "")}, nil
}

func (m *dateProximityMetric) Name() string {
	return MetricDateProximity
}

// Score decays linearly from 1.0 for equal instants to 0.0 at max_days apart.
func (m *dateProximityMetric) Score(a, b any) (float64, error) {
	ta, okA := m.parse(a)
	tb, okB := m.parse(b)
	if !okA || !okB {
		return 0, mismatch(MetricDateProximity, a, b)
	}
	return DateProximity(ta, tb, m.maxDays), nil
}

// DateProximity calculates a proximity score for two instants.
func DateProximity(a, b time.Time, maxDays float64) float64 {
	daysDiff := math.Abs(a.Sub(b).Hours() / 24)
	if daysDiff == 0 {
		return 1.0
	}
	return clamp(1.0 - daysDiff/maxDays)
}

func (m *dateProximityMetric) parse(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case string:
		layouts := dateLayouts
		if m.layout != "" {
			layouts = []string{m.layout}
		}
		for _, layout := range layouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
