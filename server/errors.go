package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/hupe1980/psmgo"
	"github.com/hupe1980/psmgo/dataset"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable error code.
	Code string `json:"code"`
}

// Error codes.
const (
	CodeMissingFile      = "MISSING_FILE"
	CodeInvalidCSV       = "INVALID_CSV"
	CodeUploadTooLarge   = "UPLOAD_TOO_LARGE"
	CodeSchemaMismatch   = "SCHEMA_MISMATCH"
	CodeInvalidColumns   = "INVALID_COLUMNS"
	CodeInvalidNResults  = "INVALID_N_RESULTS"
	CodeUnknownColumn    = "UNKNOWN_COLUMN"
	CodeInvalidFeature   = "INVALID_FEATURE_TYPE"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeRateLimited      = "RATE_LIMITED"
	CodeBusy             = "BUSY"
	CodeMatchFailed      = "MATCH_FAILED"
)

// classify maps an error from upload decoding or psmgo.Run to a status code
// and error code.
func classify(err error) (int, string) {
	var pe *dataset.ParseError
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge, CodeUploadTooLarge
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, CodeBusy
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return http.StatusBadRequest, CodeMissingFile
	case errors.As(err, &pe), errors.Is(err, dataset.ErrEmptyInput):
		return http.StatusBadRequest, CodeInvalidCSV
	case errors.Is(err, psmgo.ErrSchemaMismatch):
		return http.StatusBadRequest, CodeSchemaMismatch
	case errors.Is(err, psmgo.ErrUnknownColumn):
		return http.StatusBadRequest, CodeUnknownColumn
	case errors.Is(err, psmgo.ErrInvalidFeatureType):
		return http.StatusBadRequest, CodeInvalidFeature
	case errors.Is(err, psmgo.ErrInsufficientData):
		return http.StatusBadRequest, CodeInsufficientData
	case errors.Is(err, psmgo.ErrInvalidConfig):
		return http.StatusBadRequest, CodeInvalidConfig
	default:
		return http.StatusInternalServerError, CodeMatchFailed
	}
}
