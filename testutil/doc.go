// Package testutil provides testing utilities for psmgo.
//
// This package is intended for use in tests and benchmarks only.
// It provides seeded random score and cohort generators and exact
// brute-force references for verifying the matcher.
//
// # Random Data
//
//	rng := testutil.NewRNG(seed)
//	scores := rng.Scores(1000)            // uniform [0, 1)
//	ties := rng.QuantizedScores(1000, 8)  // many exact ties
//	exp, ctrl := rng.Cohorts(testutil.CohortConfig{Experiment: 50, Control: 200, Features: 3, Shift: 0.5})
//
// # Ground Truth
//
//	nn := testutil.BruteForceNearest(controlScores, query)
package testutil
