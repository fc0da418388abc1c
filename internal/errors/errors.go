package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound        = new(ErrCodeNotFound, "resource not found")
	ErrPlanNotFound    = new(ErrCodePlanNotFound, "plan not found")
	ErrAlreadyExists   = new(ErrCodeAlreadyExists, "resource already exists")
	ErrVersionConflict = new(ErrCodeVersionConflict, "version conflict")
	ErrValidation      = new(ErrCodeValidation, "validation error")
	ErrInvalidState    = new(ErrCodeInvalidState, "invalid state")
	ErrBilling         = new(ErrCodeBilling, "billing gateway error")
	ErrDatabase        = new(ErrCodeDatabase, "database error")
	ErrSystem          = new(ErrCodeSystemError, "system error")

	// maps errors to http status codes, first match wins
	statusCodes = []struct {
		err    error
		status int
	}{
		{ErrValidation, http.StatusBadRequest},
		{ErrPlanNotFound, http.StatusNotFound},
		{ErrNotFound, http.StatusNotFound},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrVersionConflict, http.StatusConflict},
		{ErrInvalidState, http.StatusConflict},
		{ErrBilling, http.StatusBadGateway},
		{ErrDatabase, http.StatusInternalServerError},
		{ErrSystem, http.StatusInternalServerError},
	}
)

const (
	ErrCodeSystemError     = "system_error"
	ErrCodeNotFound        = "not_found"
	ErrCodePlanNotFound    = "plan_not_found"
	ErrCodeAlreadyExists   = "already_exists"
	ErrCodeVersionConflict = "version_conflict"
	ErrCodeValidation      = "validation_error"
	ErrCodeInvalidState    = "invalid_state"
	ErrCodeBilling         = "billing_error"
	ErrCodeDatabase        = "database_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

// New creates a new InternalError with the given code
func New(code string, message string) *InternalError {
	return new(code, message)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error, plan misses included
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPlanNotFound checks if an error is specifically an unknown plan
func IsPlanNotFound(err error) bool {
	return errors.Is(err, ErrPlanNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsVersionConflict checks if an error is a version conflict error
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidState checks if an error is an invalid lifecycle state error
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsBilling checks if an error came from the billing gateway
func IsBilling(err error) bool {
	return errors.Is(err, ErrBilling)
}

func HTTPStatusFromErr(err error) int {
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return sc.status
		}
	}
	return http.StatusInternalServerError
}
