package partitioning

// Bin holds the indexes of the records sharing one blocking key, in record
// enumeration order.
type Bin struct {
	Key     BlockingKey
	Members []int
}

// Partition groups records into bins under every criterion of side. Bins are
// ordered by criterion and then by first appearance of their key. Every
// record lands in exactly one bin per criterion, a singleton when nothing
// shares its key.
func Partition(records []any, strategy Strategy, side Side) ([]Bin, error) {
	var bins []Bin
	for criterion := 0; criterion < strategy.Criteria(side); criterion++ {
		index := make(map[string]int)
		for i, record := range records {
			key, err := strategy.Key(record, side, criterion)
			if err != nil {
				return nil, err
			}
			pos, ok := index[key.String()]
			if !ok {
				pos = len(bins)
				index[key.String()] = pos
				bins = append(bins, Bin{Key: key})
			}
			bins[pos].Members = append(bins[pos].Members, i)
		}
	}
	return bins, nil
}

// BinPair is a left bin and a right bin sharing a blocking key.
type BinPair struct {
	Left  Bin
	Right Bin
}

// Join pairs left and right bins with equal keys, in left bin order. Keys
// present on one side only produce nothing.
func Join(left, right []Bin) []BinPair {
	rightIndex := make(map[string]int, len(right))
	for i, bin := range right {
		rightIndex[bin.Key.String()] = i
	}

	var pairs []BinPair
	for _, bin := range left {
		if pos, ok := rightIndex[bin.Key.String()]; ok {
			pairs = append(pairs, BinPair{Left: bin, Right: right[pos]})
		}
	}
	return pairs
}
