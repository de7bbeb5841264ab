package match

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/psmgo/table"
)

var (
	// ErrEmptyIndex is returned when matching against zero control rows.
	ErrEmptyIndex = errors.New("no control rows to match against")

	// ErrInvalidScore is returned for a NaN or infinite propensity score.
	ErrInvalidScore = errors.New("propensity score is not finite")
)

// Pair links one experiment row to its nearest control row.
type Pair struct {
	// Query is the experiment row index.
	Query int
	// Control is the matched control row index.
	Control int
	// Distance is |score(experiment) - score(control)|.
	Distance float64
}

// Nearest matches every experiment score to its closest control score, with
// replacement: a control row may serve any number of experiment rows.
//
// The result has one Pair per experiment row, in experiment order.
func Nearest(experiment, control []float64) ([]Pair, error) {
	if len(control) == 0 {
		return nil, ErrEmptyIndex
	}
	if err := checkFinite("control", control); err != nil {
		return nil, err
	}
	if err := checkFinite("experiment", experiment); err != nil {
		return nil, err
	}

	ix := NewIndex(control)
	pairs := make([]Pair, len(experiment))
	for i, q := range experiment {
		id, d := ix.Nearest(q)
		pairs[i] = Pair{Query: i, Control: id, Distance: d}
	}
	return pairs, nil
}

func checkFinite(group string, scores []float64) error {
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("%w: %s row %d", ErrInvalidScore, group, i)
		}
	}
	return nil
}

// Rank returns the n pairs with the smallest distances, ascending. The sort is
// stable, so pairs at equal distance keep their experiment order. n <= 0
// yields an empty slice and n larger than len(pairs) yields every pair.
// The input is not modified.
func Rank(pairs []Pair, n int) []Pair {
	if n <= 0 {
		return []Pair{}
	}
	ranked := slices.Clone(pairs)
	slices.SortStableFunc(ranked, func(a, b Pair) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	return ranked[:min(n, len(ranked))]
}

// Assemble returns the matched control rows, one per pair and in pair order,
// with the control table's full column schema. A control row matched several
// times appears several times.
func Assemble(control *table.Table, pairs []Pair) (*table.Table, error) {
	ids := make([]int, len(pairs))
	for i, p := range pairs {
		ids[i] = p.Control
	}
	return control.Take(ids)
}

// Distinct returns the set of control rows used by pairs.
func Distinct(pairs []Pair) *roaring.Bitmap {
	bm := roaring.New()
	for _, p := range pairs {
		if p.Control >= 0 {
			bm.Add(uint32(p.Control))
		}
	}
	return bm
}
