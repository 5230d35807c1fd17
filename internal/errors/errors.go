// Package errors defines the structured API error envelope shared by all
// HTTP handlers and the mapping from domain errors to HTTP status and error
// codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/gidavehub/mlstudio-sub000/internal/dataset"
	"github.com/gidavehub/mlstudio-sub000/internal/pipeline"
)

// APIError is the structured error response returned to clients.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer so handlers can respond with
// render.Render(w, r, err).
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates an APIError.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

// NewWithDetails creates an APIError carrying extra detail payload.
func NewWithDetails(statusCode int, errorCode, message string, details any) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message, Details: details}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidRequest  = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrNotFound        = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrSessionNotFound = New(http.StatusNotFound, "SESSION_NOT_FOUND", "Preprocessing session not found")
	ErrInternalServer  = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
)

// ValidationError describes one invalid request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrValidation creates a field-level validation error.
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", ValidationError{
		Field:   field,
		Message: message,
	})
}

// InvalidRequestWithError wraps a decoding error into an invalid request
// response.
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// FromDomain maps pipeline and dataset errors onto API errors: malformed
// input and configuration problems are 400, empty datasets 422, missing
// sessions or columns 404, ordering violations (tensors before split,
// transforms before load) 409. Unknown errors become 500 without leaking
// internals.
func FromDomain(err error) *APIError {
	switch {
	case errors.Is(err, dataset.ErrMalformedInput):
		return NewWithDetails(http.StatusBadRequest, "MALFORMED_INPUT", "Input could not be parsed", err.Error())
	case errors.Is(err, dataset.ErrNotTabular):
		return NewWithDetails(http.StatusBadRequest, "NOT_TABULAR", "Payload is not a tabular JSON array", err.Error())
	case errors.Is(err, dataset.ErrEmptyDataset):
		return NewWithDetails(http.StatusUnprocessableEntity, "EMPTY_DATASET", "No usable rows in dataset", err.Error())
	case errors.Is(err, dataset.ErrColumnNotFound):
		return NewWithDetails(http.StatusNotFound, "COLUMN_NOT_FOUND", "Referenced column does not exist", err.Error())
	case errors.Is(err, pipeline.ErrConfiguration):
		return NewWithDetails(http.StatusBadRequest, "INVALID_CONFIGURATION", "Invalid pipeline configuration", err.Error())
	case errors.Is(err, pipeline.ErrNoDataset):
		return NewWithDetails(http.StatusConflict, "NO_DATASET", "Load a dataset before applying transforms", err.Error())
	case errors.Is(err, pipeline.ErrSplitRequired):
		return NewWithDetails(http.StatusConflict, "SPLIT_REQUIRED", "Split the dataset before converting to tensors", err.Error())
	default:
		return ErrInternalServer
	}
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// NewErrorResponse wraps an APIError in the standard envelope.
func NewErrorResponse(err *APIError) *ErrorResponse {
	return &ErrorResponse{Success: false, Error: err}
}

// Render implements render.Renderer.
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return e.Error.Render(w, r)
}

// ErrPanic converts a recovered panic value into an internal server error.
func ErrPanic(rec any) *APIError {
	return NewWithDetails(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error",
		fmt.Sprintf("%v", rec))
}
