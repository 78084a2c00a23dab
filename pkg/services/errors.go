// Package services implements the administrative operations behind ewctl.
package services

import (
	"errors"
	"fmt"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
)

// Business Logic Errors - These indicate client errors.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrFormNil        = errors.New("form cannot be nil")
	ErrContactNil     = errors.New("contact cannot be nil")
	ErrInvalidImport  = errors.New("invalid form import")
	ErrInvalidCSV     = errors.New("invalid contacts CSV")
	ErrInvalidField   = errors.New("invalid field specification")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for CLI output
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error was caused by bad input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrFormNil) ||
		errors.Is(err, ErrContactNil) ||
		errors.Is(err, ErrInvalidImport) ||
		errors.Is(err, ErrInvalidCSV) ||
		errors.Is(err, ErrInvalidField)
}

// IsConflictError checks if an error is a uniqueness conflict.
func IsConflictError(err error) bool {
	return errors.Is(err, persistence.ErrFormAlreadyExists) ||
		errors.Is(err, persistence.ErrContactPhoneTaken)
}

// IsNotFoundError checks if the referenced form or contact does not exist.
func IsNotFoundError(err error) bool {
	return persistence.IsFormNotFound(err) || persistence.IsContactNotFound(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
