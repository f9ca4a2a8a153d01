package linkage

import (
	"github.com/Ramsey-B/fern/pkg/partitioning"
)

// CandidatePair is a record pair that passed blocking. In intra-source mode
// LeftIndex < RightIndex and both index the same collection.
type CandidatePair struct {
	LeftIndex  int
	RightIndex int
	Left       any
	Right      any
}

// GenerateIntra emits every pair {i, j} with i before j inside each bin.
// A pair that co-bins under several criteria is emitted once, at its first
// occurrence.
func GenerateIntra(records []any, bins []partitioning.Bin) []CandidatePair {
	seen := make(map[[2]int]struct{})
	var pairs []CandidatePair

	for _, bin := range bins {
		for x := 0; x < len(bin.Members); x++ {
			for y := x + 1; y < len(bin.Members); y++ {
				i, j := bin.Members[x], bin.Members[y]
				if i == j {
					continue
				}
				key := [2]int{min(i, j), max(i, j)}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				pairs = append(pairs, CandidatePair{
					LeftIndex:  i,
					RightIndex: j,
					Left:       records[i],
					Right:      records[j],
				})
			}
		}
	}
	return pairs
}

// GenerateInter emits the cross product of every left/right bin pair that
// shares a key. Each (left, right) pair is emitted once.
func GenerateInter(left, right []any, joined []partitioning.BinPair) []CandidatePair {
	seen := make(map[[2]int]struct{})
	var pairs []CandidatePair

	for _, bp := range joined {
		for _, i := range bp.Left.Members {
			for _, j := range bp.Right.Members {
				key := [2]int{i, j}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				pairs = append(pairs, CandidatePair{
					LeftIndex:  i,
					RightIndex: j,
					Left:       left[i],
					Right:      right[j],
				})
			}
		}
	}
	return pairs
}
