package testutil

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
	"sync"

	"github.com/hupe1980/psmgo/table"
)

// Neighbor is a ground-truth nearest-neighbour result.
type Neighbor struct {
	Index    int
	Distance float64
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Scores returns n values in [0, 1).
func (r *RNG) Scores(n int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float64, n)
	for i := range out {
		out[i] = r.rand.Float64()
	}
	return out
}

// QuantizedScores returns n values drawn from only levels distinct values in
// [0, 1). Small level counts produce many exact ties.
func (r *RNG) QuantizedScores(n, levels int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float64, n)
	for i := range out {
		out[i] = float64(r.rand.Intn(levels)) / float64(levels)
	}
	return out
}

// CohortConfig shapes a synthetic experiment/control pair.
type CohortConfig struct {
	Experiment int
	Control    int
	// Features is the number of float covariates, named f0, f1, ...
	Features int
	// Shift is added to every experiment covariate mean.
	Shift float64
}

// Cohorts generates an experiment and a control table sharing the schema
// id, f0..f{Features-1}, group. Covariates are standard normal, shifted by
// cfg.Shift for experiment rows.
func (r *RNG) Cohorts(cfg CohortConfig) (*table.Table, *table.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()

	columns := make([]string, 0, cfg.Features+2)
	columns = append(columns, "id")
	for j := range cfg.Features {
		columns = append(columns, FeatureName(j))
	}
	columns = append(columns, "group")

	build := func(n int, shift float64, group string, firstID int) *table.Table {
		t := table.New(columns...)
		for i := range n {
			row := make(table.Row, 0, len(columns))
			row = append(row, table.Int(int64(firstID+i)))
			for range cfg.Features {
				row = append(row, table.Float(r.rand.NormFloat64()+shift))
			}
			row = append(row, table.String(group))
			_ = t.Append(row...)
		}
		return t
	}

	exp := build(cfg.Experiment, cfg.Shift, "experiment", 0)
	ctrl := build(cfg.Control, 0, "control", cfg.Experiment)
	return exp, ctrl
}

// FeatureName returns the name of the j-th generated covariate.
func FeatureName(j int) string {
	return "f" + strconv.Itoa(j)
}

// BruteForceNearest performs exact linear search for ground truth: the
// first index at the minimum absolute distance.
func BruteForceNearest(scores []float64, query float64) Neighbor {
	best := Neighbor{Index: -1, Distance: math.Inf(1)}
	for i, s := range scores {
		if d := math.Abs(query - s); d < best.Distance {
			best = Neighbor{Index: i, Distance: d}
		}
	}
	return best
}

// BruteForceRank orders neighbours by distance, keeping input order among
// equal distances, and truncates to k.
func BruteForceRank(neighbors []Neighbor, k int) []Neighbor {
	out := make([]Neighbor, len(neighbors))
	copy(out, neighbors)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance < out[j].Distance
	})
	if k < 0 {
		k = 0
	}
	if len(out) > k {
		out = out[:k]
	}
	return out
}
