package propensity

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/psmgo/table"
)

var (
	// ErrInsufficientData is returned when the combined data cannot support a
	// fit: an empty group, or no feature columns.
	ErrInsufficientData = errors.New("insufficient data for propensity estimation")

	// ErrInvalidFeatureType is the sentinel matched by InvalidFeatureTypeError.
	ErrInvalidFeatureType = errors.New("invalid feature type")
)

// Group names the origin of a row in the combined working table.
type Group string

const (
	// GroupExperiment marks treatment rows (label 1).
	GroupExperiment Group = "experiment"
	// GroupControl marks control rows (label 0).
	GroupControl Group = "control"
)

// InvalidFeatureTypeError reports a feature cell the classifier cannot use.
type InvalidFeatureTypeError struct {
	Column string
	Group  Group
	Row    int
	Kind   table.Kind
	// NonFinite is set when the cell is a NaN or infinite float.
	NonFinite bool
}

func (e *InvalidFeatureTypeError) Error() string {
	if e.NonFinite {
		return fmt.Sprintf("feature column %q has a non-finite value (%s row %d)", e.Column, e.Group, e.Row)
	}
	return fmt.Sprintf("feature column %q is not numeric: %s value (%s row %d)", e.Column, e.Kind, e.Group, e.Row)
}

// Is reports whether target is ErrInvalidFeatureType.
func (e *InvalidFeatureTypeError) Is(target error) bool { return target == ErrInvalidFeatureType }

// Scores holds the propensity of every input row, aligned with the original
// row order of each group.
type Scores struct {
	Experiment []float64
	Control    []float64
	// Model is the fitted classifier.
	Model Classifier
}

// Estimator fits a classifier separating experiment from control rows and
// scores every row with its treatment probability.
//
// An Estimator holds only configuration. It is safe for concurrent use.
type Estimator struct {
	cfg           Config
	newClassifier func(Config) Classifier
}

// NewEstimator validates cfg and returns an Estimator.
//
// optFns may replace the classifier factory, for instance to plug in a
// different deterministic model. The default is LogisticRegression.
func NewEstimator(cfg Config, optFns ...func(e *Estimator)) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Estimator{
		cfg: cfg,
		newClassifier: func(c Config) Classifier {
			return NewLogisticRegression(c)
		},
	}
	for _, fn := range optFns {
		fn(e)
	}
	return e, nil
}

// WithClassifier overrides the classifier factory.
func WithClassifier(factory func(Config) Classifier) func(e *Estimator) {
	return func(e *Estimator) {
		if factory != nil {
			e.newClassifier = factory
		}
	}
}

// Config returns the estimator configuration.
func (e *Estimator) Config() Config { return e.cfg }

// Estimate fits the classifier on the feature columns of both tables and
// returns the propensity of every row.
//
// The working set is a labeled copy: experiment rows (label 1) followed by
// control rows (label 0). The input tables are not modified.
func (e *Estimator) Estimate(experiment, control *table.Table, features []string) (*Scores, error) {
	if experiment.Len() == 0 || control.Len() == 0 {
		return nil, fmt.Errorf("%w: experiment has %d rows, control has %d rows",
			ErrInsufficientData, experiment.Len(), control.Len())
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: no feature columns selected", ErrInsufficientData)
	}

	expModel, err := experiment.Select(features)
	if err != nil {
		return nil, err
	}
	ctrlModel, err := control.Select(features)
	if err != nil {
		return nil, err
	}

	nExp, nCtrl := expModel.Len(), ctrlModel.Len()
	X := make([][]float64, 0, nExp+nCtrl)
	y := make([]float64, 0, nExp+nCtrl)

	expX, err := designMatrix(expModel, features, GroupExperiment)
	if err != nil {
		return nil, err
	}
	ctrlX, err := designMatrix(ctrlModel, features, GroupControl)
	if err != nil {
		return nil, err
	}

	for _, row := range expX {
		X = append(X, row)
		y = append(y, 1)
	}
	for _, row := range ctrlX {
		X = append(X, row)
		y = append(y, 0)
	}

	clf := e.newClassifier(e.cfg)
	if err := clf.Fit(X, y); err != nil {
		return nil, fmt.Errorf("fit propensity model: %w", err)
	}

	proba := clf.PredictProba(X)
	if len(proba) != len(X) {
		return nil, fmt.Errorf("classifier returned %d scores for %d rows", len(proba), len(X))
	}

	return &Scores{
		Experiment: proba[:nExp:nExp],
		Control:    proba[nExp:],
		Model:      clf,
	}, nil
}

// designMatrix converts a feature-only table into dense float rows backed by
// a single allocation.
func designMatrix(t *table.Table, features []string, group Group) ([][]float64, error) {
	n, d := t.Len(), len(features)
	data := make([]float64, n*d)
	rows := make([][]float64, n)

	for i := range n {
		row := data[i*d : (i+1)*d]
		for j := range d {
			v := t.At(i, j)
			f, ok := v.AsFloat64()
			if !ok {
				return nil, &InvalidFeatureTypeError{Column: features[j], Group: group, Row: i, Kind: v.Kind}
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, &InvalidFeatureTypeError{Column: features[j], Group: group, Row: i, Kind: v.Kind, NonFinite: true}
			}
			row[j] = f
		}
		rows[i] = row
	}
	return rows, nil
}
