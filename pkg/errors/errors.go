package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeInvalidCutoff indicates a cutoff k that is not a positive integer
	ErrorTypeInvalidCutoff ErrorType = "INVALID_CUTOFF"

	// ErrorTypeEmptyGroundTruth indicates a ratio over an empty set of relevant items
	ErrorTypeEmptyGroundTruth ErrorType = "EMPTY_GROUND_TRUTH"

	// ErrorTypeEmptyBatch indicates a mean over zero evaluation instances
	ErrorTypeEmptyBatch ErrorType = "EMPTY_BATCH"

	// ErrorTypeMismatchedBatchLength indicates actual and predicted batches of different sizes
	ErrorTypeMismatchedBatchLength ErrorType = "MISMATCHED_BATCH_LENGTH"

	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeInternal indicates an internal error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// Sentinels for errors.Is. Any *AppError of the same Type matches.
var (
	ErrInvalidCutoff         = &AppError{Type: ErrorTypeInvalidCutoff}
	ErrEmptyGroundTruth      = &AppError{Type: ErrorTypeEmptyGroundTruth}
	ErrEmptyBatch            = &AppError{Type: ErrorTypeEmptyBatch}
	ErrMismatchedBatchLength = &AppError{Type: ErrorTypeMismatchedBatchLength}
	ErrNotFound              = &AppError{Type: ErrorTypeNotFound}
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *AppError with the same Type.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsType reports whether any error in err's chain is an *AppError of type t.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	for err != nil {
		if errors.As(err, &appErr) {
			if appErr.Type == t {
				return true
			}
			err = appErr.Err
			continue
		}
		return false
	}
	return false
}

// NewInvalidCutoffError creates an error for a non-positive cutoff
func NewInvalidCutoffError(k int) *AppError {
	return &AppError{
		Type:    ErrorTypeInvalidCutoff,
		Message: fmt.Sprintf("cutoff k must be a positive integer, got %d", k),
	}
}

// NewEmptyGroundTruthError creates an error for a ratio over no relevant items
func NewEmptyGroundTruthError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeEmptyGroundTruth,
		Message: message,
	}
}

// NewEmptyBatchError creates an error for a mean over no pairs
func NewEmptyBatchError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeEmptyBatch,
		Message: message,
	}
}

// NewMismatchedBatchLengthError creates an error for unequal batch sizes
func NewMismatchedBatchLengthError(actual, predicted int) *AppError {
	return &AppError{
		Type:    ErrorTypeMismatchedBatchLength,
		Message: fmt.Sprintf("actual batch has %d lists, predicted batch has %d", actual, predicted),
	}
}

// NewNotFoundError creates an error for a missing input
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}
