package value

import (
	"math"
	"sort"
	"strings"
)

// Compare is a total structural order over values. Kinds order
// missing < null < bool < number < string < array < object; values of the
// same kind compare structurally. It returns -1, 0 or 1.
func Compare(a, b any) int {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return compareInts(int(ka), int(kb))
	}

	switch ka {
	case KindMissing, KindNull:
		return 0
	case KindBool:
		ba, bb := deref(a).Bool(), deref(b).Bool()
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		default:
			return 1
		}
	case KindNumber:
		fa, _ := ToFloat64(deref(a).Interface())
		fb, _ := ToFloat64(deref(b).Interface())
		return compareFloats(fa, fb)
	case KindString:
		sa, _ := ToString(a)
		sb, _ := ToString(b)
		return strings.Compare(sa, sb)
	case KindArray:
		return compareArrays(arrayItems(a), arrayItems(b))
	case KindObject:
		return compareObjects(objectFields(a), objectFields(b))
	}
	return 0
}

// Equal reports structural equality.
func Equal(a, b any) bool {
	return Compare(a, b) == 0
}

// Less reports whether a orders before b.
func Less(a, b any) bool {
	return Compare(a, b) < 0
}

// Sort orders values in place by Compare. The sort is stable.
func Sort(values []any) {
	sort.SliceStable(values, func(i, j int) bool {
		return Compare(values[i], values[j]) < 0
	})
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// NaN sorts below every other number and equal to itself.
func compareFloats(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareArrays(a, b []any) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareInts(len(a), len(b))
}

func compareObjects(a, b map[string]any) int {
	ka, kb := sortedKeys(a), sortedKeys(b)
	n := min(len(ka), len(kb))
	for i := 0; i < n; i++ {
		if c := strings.Compare(ka[i], kb[i]); c != 0 {
			return c
		}
		if c := Compare(a[ka[i]], b[kb[i]]); c != 0 {
			return c
		}
	}
	return compareInts(len(ka), len(kb))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
