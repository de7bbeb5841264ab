package match

import (
	"cmp"
	"math"
	"slices"
)

// entry is one distinct control score and the lowest control row holding it.
type entry struct {
	score float64
	id    int
}

// Index answers exact one-dimensional nearest-neighbour queries over a fixed
// set of control propensity scores.
//
// Scores are kept sorted and deduplicated; for every distinct score only the
// lowest control row index is retained, since a query can never prefer a
// higher index at the same distance. A query is a binary search followed by a
// comparison of the two neighbouring entries, so it is O(log n) and the result
// is identical to a linear scan that keeps the first strict minimum.
//
// An Index is immutable after construction and safe for concurrent use.
type Index struct {
	entries []entry
	size    int
}

// NewIndex builds an index over scores. Position i in scores is control row i.
// The slice is not retained.
func NewIndex(scores []float64) *Index {
	all := make([]entry, len(scores))
	for i, s := range scores {
		all[i] = entry{score: s, id: i}
	}
	slices.SortFunc(all, func(a, b entry) int {
		if c := cmp.Compare(a.score, b.score); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	uniq := all[:0]
	for _, e := range all {
		if n := len(uniq); n > 0 && uniq[n-1].score == e.score {
			continue
		}
		uniq = append(uniq, e)
	}

	return &Index{entries: slices.Clip(uniq), size: len(scores)}
}

// Len returns the number of indexed control rows.
func (ix *Index) Len() int { return ix.size }

// Nearest returns the control row whose score is closest to q and the
// absolute distance between them. Among equidistant rows the lowest row index
// wins. It returns -1 and +Inf for an empty index.
func (ix *Index) Nearest(q float64) (int, float64) {
	if len(ix.entries) == 0 {
		return -1, math.Inf(1)
	}

	// First entry with score >= q.
	pos, _ := slices.BinarySearchFunc(ix.entries, q, func(e entry, t float64) int {
		return cmp.Compare(e.score, t)
	})

	best, bestDist := -1, math.Inf(1)
	consider := func(e entry) {
		d := math.Abs(q - e.score)
		if d < bestDist || (d == bestDist && e.id < best) {
			best, bestDist = e.id, d
		}
	}
	if pos < len(ix.entries) {
		consider(ix.entries[pos])
	}
	if pos > 0 {
		consider(ix.entries[pos-1])
	}
	return best, bestDist
}
