// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal       = "INTERNAL_ERROR"
	CodeDatabase       = "DATABASE_ERROR"
	CodeTimeout        = "TIMEOUT_ERROR"
	CodeDependentWrite = "DEPENDENT_WRITE_FAILED"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Business rule violations (422)
	CodeBusinessRule   = "BUSINESS_RULE_VIOLATION"
	CodeNegativeProfit = "NEGATIVE_PROFIT"

	// Idempotency guards (409)
	CodeAlreadyPaid      = "ALREADY_PAID"
	CodeAlreadyProcessed = "ALREADY_PROCESSED"

	// Authorization errors (401)
	CodeUnauthorized = "UNAUTHORIZED"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Non-fatal diagnostics. Never returned as an error from an operation,
	// only logged or attached to a success response.
	CodeSchemaShapeUnresolved = "SCHEMA_SHAPE_UNRESOLVED"
	CodePartialSideEffect     = "PARTIAL_SIDE_EFFECT"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, ids, step names)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404).
// Also used when the record exists but belongs to another owner.
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewAlreadyPaid is returned when an installment is paid a second time.
func NewAlreadyPaid(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeAlreadyPaid,
		Message:    fmt.Sprintf("%s is already paid", entity),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewAlreadyProcessed is returned when a one-shot transition was already applied.
func NewAlreadyProcessed(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeAlreadyProcessed,
		Message:    fmt.Sprintf("%s was already processed", entity),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewNegativeProfit is returned when a profit-sharing period closes at a loss.
func NewNegativeProfit(netProfit string) *AppError {
	return &AppError{
		Code:       CodeNegativeProfit,
		Message:    "Net profit is negative, nothing to share",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"net_profit": netProfit},
	}
}

// NewDependentWrite is returned after a later step of a multi-record write
// failed and the earlier steps were compensated.
func NewDependentWrite(operation, step string, cause error) *AppError {
	return &AppError{
		Code:       CodeDependentWrite,
		Message:    fmt.Sprintf("%s failed at step %q and was rolled back", operation, step),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"operation": operation, "step": step},
		Err:        cause,
	}
}

// NewSchemaShapeUnresolved describes a field whose column could not be located.
func NewSchemaShapeUnresolved(table string, candidates []string, fallback string) *AppError {
	return &AppError{
		Code:       CodeSchemaShapeUnresolved,
		Message:    fmt.Sprintf("no candidate column found on %s", table),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"table": table, "candidates": candidates, "fallback": fallback},
	}
}

// NewPartialSideEffect describes a best-effort step that failed while the
// primary operation succeeded.
func NewPartialSideEffect(step string, cause error) *AppError {
	return &AppError{
		Code:       CodePartialSideEffect,
		Message:    fmt.Sprintf("%s did not complete", step),
		HTTPStatus: http.StatusOK,
		Details:    map[string]any{"step": step},
		Err:        cause,
	}
}

// NewDatabase wraps a store failure (500).
func NewDatabase(err error) *AppError {
	return &AppError{
		Code:       CodeDatabase,
		Message:    "Database operation failed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewTimeout is returned when the request context ends mid-operation.
func NewTimeout(operation string, err error) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    fmt.Sprintf("%s did not finish before the request deadline", operation),
		HTTPStatus: http.StatusGatewayTimeout,
		Details:    map[string]any{"operation": operation},
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether the outermost AppError in the chain carries code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsDependentWrite checks if error is CodeDependentWrite
func IsDependentWrite(err error) bool {
	return HasCode(err, CodeDependentWrite)
}
