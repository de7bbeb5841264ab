package psmgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/psmgo/match"
	"github.com/hupe1980/psmgo/propensity"
	"github.com/hupe1980/psmgo/schema"
)

var (
	// ErrSchemaMismatch is returned when experiment and control do not share
	// identical column names in identical order.
	ErrSchemaMismatch = errors.New("experiment and control schemas differ")

	// ErrUnknownColumn is matched by UnknownColumnError.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrInvalidFeatureType is matched by InvalidFeatureTypeError.
	ErrInvalidFeatureType = errors.New("invalid feature type")

	// ErrInsufficientData is returned when there is nothing to fit or match:
	// an empty group or an empty feature selection.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidConfig is returned for out-of-range estimator settings.
	ErrInvalidConfig = errors.New("invalid config")
)

// UnknownColumnError names a selected feature column that is not in the
// shared schema.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type UnknownColumnError struct {
	Column string
	cause  error
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("selected column does not exist: %q", e.Column)
}

func (e *UnknownColumnError) Unwrap() error { return e.cause }

// Is reports whether target is ErrUnknownColumn.
func (e *UnknownColumnError) Is(target error) bool { return target == ErrUnknownColumn }

// InvalidFeatureTypeError names a feature column holding a value the
// classifier cannot use: text, null or a non-finite number.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type InvalidFeatureTypeError struct {
	Column string
	// Group is "experiment" or "control".
	Group string
	// Row is the row index within Group.
	Row   int
	cause error
}

func (e *InvalidFeatureTypeError) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return fmt.Sprintf("feature column %q is not numeric (%s row %d)", e.Column, e.Group, e.Row)
}

func (e *InvalidFeatureTypeError) Unwrap() error { return e.cause }

// Is reports whether target is ErrInvalidFeatureType.
func (e *InvalidFeatureTypeError) Is(target error) bool { return target == ErrInvalidFeatureType }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, schema.ErrHeaderMismatch) {
		return fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
	}
	var uc *schema.UnknownColumnError
	if errors.As(err, &uc) {
		return &UnknownColumnError{Column: uc.Column, cause: err}
	}

	var ft *propensity.InvalidFeatureTypeError
	if errors.As(err, &ft) {
		return &InvalidFeatureTypeError{Column: ft.Column, Group: string(ft.Group), Row: ft.Row, cause: err}
	}
	if errors.Is(err, propensity.ErrInsufficientData) || errors.Is(err, match.ErrEmptyIndex) {
		return fmt.Errorf("%w: %w", ErrInsufficientData, err)
	}
	if errors.Is(err, propensity.ErrInvalidConfig) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return err
}

// IsClientError reports whether err is caused by the caller's input rather
// than by an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrSchemaMismatch) ||
		errors.Is(err, ErrUnknownColumn) ||
		errors.Is(err, ErrInvalidFeatureType) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrInvalidConfig)
}
