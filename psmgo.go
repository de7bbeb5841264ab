package psmgo

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/psmgo/match"
	"github.com/hupe1980/psmgo/propensity"
	"github.com/hupe1980/psmgo/schema"
	"github.com/hupe1980/psmgo/table"
)

// Result is the outcome of a matching run.
type Result struct {
	// Table holds the matched control rows with the control schema. It has one
	// row per entry of Matches, in the same order.
	Table *table.Table

	// Matches are the kept experiment/control pairs: experiment order, or
	// ascending distance when WithNResults was given.
	Matches []match.Pair

	// Features are the columns the propensity model was fitted on.
	Features []string

	// ExperimentScores and ControlScores are the propensity of every input
	// row, aligned with the input tables.
	ExperimentScores []float64
	ControlScores    []float64

	// DistinctControls is the number of different control rows in Table.
	DistinctControls uint64
}

// Run matches every experiment row to the control row with the closest
// propensity score.
//
// Both tables must have identical column names in identical order. A
// classifier is fitted on the feature columns to separate experiment (label 1)
// from control (label 0) rows; each experiment row is then paired, with
// replacement, with the control row whose score is nearest, ties going to the
// lowest control row index. The inputs are never modified.
//
// ctx is checked between stages; a cancelled context aborts the run with
// ctx.Err().
func Run(ctx context.Context, experiment, control *table.Table, optFns ...Option) (*Result, error) {
	opts := applyOptions(optFns)
	log := opts.logger

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if experiment == nil || control == nil {
		return nil, fmt.Errorf("%w: nil table", ErrInsufficientData)
	}

	features, err := schema.Resolve(experiment.Columns(), control.Columns(), opts.features)
	log.LogResolve(ctx, opts.features, features, err)
	if err != nil {
		return nil, translateError(err)
	}
	log = log.WithFeatures(features)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores, err := estimate(ctx, log, opts, experiment, control, features)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	pairs, matched, err := pair(scores, control, opts)
	duration := time.Since(start)
	err = translateError(err)
	opts.metricsCollector.RecordMatch(experiment.Len(), matched.Len(), duration, err)

	var distinct uint64
	if err == nil {
		distinct = match.Distinct(pairs).GetCardinality()
	}
	log.LogMatch(ctx, experiment.Len(), matched.Len(), distinct, err)
	if err != nil {
		return nil, err
	}

	return &Result{
		Table:            matched,
		Matches:          pairs,
		Features:         features,
		ExperimentScores: scores.Experiment,
		ControlScores:    scores.Control,
		DistinctControls: distinct,
	}, nil
}

func estimate(ctx context.Context, log *Logger, opts options, experiment, control *table.Table, features []string) (*propensity.Scores, error) {
	est, err := propensity.NewEstimator(opts.estimator)
	if err != nil {
		return nil, translateError(err)
	}

	start := time.Now()
	scores, err := est.Estimate(experiment, control, features)
	duration := time.Since(start)
	err = translateError(err)

	opts.metricsCollector.RecordFit(experiment.Len()+control.Len(), len(features), duration, err)
	log.LogFit(ctx, experiment.Len(), control.Len(), duration, err)
	return scores, err
}

func pair(scores *propensity.Scores, control *table.Table, opts options) ([]match.Pair, *table.Table, error) {
	pairs, err := match.Nearest(scores.Experiment, scores.Control)
	if err != nil {
		return nil, nil, err
	}
	if opts.limitResults {
		pairs = match.Rank(pairs, opts.nResults)
	}
	matched, err := match.Assemble(control, pairs)
	if err != nil {
		return nil, nil, err
	}
	return pairs, matched, nil
}
