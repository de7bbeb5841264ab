package dataset

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when the input has no header row.
var ErrEmptyInput = errors.New("dataset: empty input")

// ParseError reports malformed CSV input.
type ParseError struct {
	// Name identifies the input (blob name or upload field), if known.
	Name string
	// Line is the 1-based line number, 0 if unknown.
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	switch {
	case e.Name != "" && e.Line > 0:
		return fmt.Sprintf("dataset: %s: line %d: %v", e.Name, e.Line, e.Err)
	case e.Name != "":
		return fmt.Sprintf("dataset: %s: %v", e.Name, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("dataset: line %d: %v", e.Line, e.Err)
	default:
		return fmt.Sprintf("dataset: %v", e.Err)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }
