// Package propensity estimates propensity scores: the probability that a row
// belongs to the experiment (treatment) group given its covariates.
//
// The [Estimator] labels experiment rows 1 and control rows 0, fits a binary
// [Classifier] on the selected feature columns and scores every row with the
// fitted probability of label 1.
//
//	est, _ := propensity.NewEstimator(propensity.DefaultConfig())
//	scores, err := est.Estimate(experiment, control, []string{"age", "income"})
//
// The default classifier is an L2-penalised [LogisticRegression]. Both of its
// solvers start from zero and are free of randomness, so a fit is a pure
// function of its inputs and [Config]. Feature columns must be numeric: int,
// float or bool cells. Strings, nulls and non-finite floats are rejected with
// an [InvalidFeatureTypeError] instead of being coerced.
package propensity
