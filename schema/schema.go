// Package schema validates the column schemas of a matching run and resolves
// the feature columns used for propensity estimation.
package schema

import (
	"errors"
	"fmt"
	"slices"
)

// ErrHeaderMismatch is returned when the experiment and control schemas differ
// in names or order.
var ErrHeaderMismatch = errors.New("experiment and control headers differ")

// ErrUnknownColumn is the sentinel matched by UnknownColumnError.
var ErrUnknownColumn = errors.New("unknown column")

// UnknownColumnError names a requested feature column that is not part of
// the schema.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("selected column does not exist: %q", e.Column)
}

// Is reports whether target is ErrUnknownColumn.
func (e *UnknownColumnError) Is(target error) bool { return target == ErrUnknownColumn }

// Resolve checks that both schemas are identical and returns the feature
// columns.
//
// A nil requested selection resolves to every column in schema order. A
// non-nil selection is validated name by name and keeps the caller's order;
// repeated names collapse to their first occurrence. An empty, non-nil
// selection resolves to no features.
func Resolve(experiment, control, requested []string) ([]string, error) {
	if !slices.Equal(experiment, control) {
		return nil, ErrHeaderMismatch
	}

	if requested == nil {
		return slices.Clone(experiment), nil
	}

	known := make(map[string]struct{}, len(experiment))
	for _, c := range experiment {
		known[c] = struct{}{}
	}

	features := make([]string, 0, len(requested))
	seen := make(map[string]struct{}, len(requested))
	for _, c := range requested {
		if _, ok := known[c]; !ok {
			return nil, &UnknownColumnError{Column: c}
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		features = append(features, c)
	}
	return features, nil
}
