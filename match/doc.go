// Package match pairs experiment rows with control rows by propensity score.
//
// Matching is exact nearest-neighbour search in one dimension with
// replacement. Distances are absolute score differences and ties resolve to
// the lowest control row index.
//
//	pairs, err := match.Nearest(scores.Experiment, scores.Control)
//	top := match.Rank(pairs, 10)
//	matched, err := match.Assemble(control, top)
//
// [Distinct] summarises which control rows were used as a roaring bitmap.
package match
