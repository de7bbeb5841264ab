// Package psmgo performs propensity score matching.
//
// Given an experiment (treatment) table and a control table with the same
// columns, psmgo fits a classifier that predicts group membership from the
// covariates, scores every row with its treatment probability, and pairs
// each experiment row with the control row of nearest score. The result is
// a table of matched control rows: a control group that resembles the
// experiment group on the chosen covariates.
//
// # Quick Start
//
//	ctx := context.Background()
//	exp, _ := dataset.Load(ctx, store, "experiment.csv")
//	ctrl, _ := dataset.Load(ctx, store, "control.csv")
//
//	res, err := psmgo.Run(ctx, exp, ctrl,
//	    psmgo.WithFeatureColumns("age", "income"),
//	    psmgo.WithNResults(100),
//	)
//
// # Pipeline
//
// A run has three stages:
//
//   - schema resolution ([schema.Resolve]): both tables must share column
//     names and order; the feature selection is validated against them.
//   - propensity estimation ([propensity.Estimator]): an L2-penalised
//     logistic regression, fitted deterministically.
//   - matching ([match.Nearest]): exact one-dimensional nearest neighbour
//     with replacement, lowest control index on ties.
//
// Without [WithNResults] the result has one row per experiment row in
// experiment order. With it, matches are ranked by ascending distance
// (stable, so ties keep experiment order) and truncated.
//
// # Errors
//
// Failures are reported with the sentinels [ErrSchemaMismatch],
// [ErrUnknownColumn], [ErrInvalidFeatureType] and [ErrInsufficientData],
// matchable with errors.Is. [UnknownColumnError] and
// [InvalidFeatureTypeError] carry the offending column.
//
// # Observability
//
// Runs are silent by default. Use [WithLogger] for structured slog output and
// [WithMetricsCollector] for fit and match statistics.
package psmgo
