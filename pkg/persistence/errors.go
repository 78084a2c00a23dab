// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrFormNotFound indicates a form was not found by the given identifier.
	ErrFormNotFound = errors.New("form not found")

	// ErrFormAlreadyExists indicates a form with the same identifier already exists.
	ErrFormAlreadyExists = errors.New("form already exists")

	// ErrContactNotFound indicates a contact was not found by the given identifier.
	ErrContactNotFound = errors.New("contact not found")

	// ErrContactPhoneTaken indicates another contact already uses the phone number.
	ErrContactPhoneTaken = errors.New("contact phone number already exists")

	// ErrMonitoringStateNotFound indicates no state has been recorded for the key yet.
	ErrMonitoringStateNotFound = errors.New("monitoring state not found")
)

// FormError wraps form-related errors with additional context.
type FormError struct {
	Op      string // Operation being performed (e.g., "FormByID", "CreateForm")
	FormID  string
	Err     error
	Message string // Additional context message
}

func (e *FormError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for form %s: %s (%v)", e.Op, e.FormID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for form %s: %v", e.Op, e.FormID, e.Err)
}

func (e *FormError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for form errors.
func (e *FormError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewFormError creates a new form error with context.
func NewFormError(op, formID string, err error) *FormError {
	return &FormError{
		Op:     op,
		FormID: formID,
		Err:    err,
	}
}

// ContactError wraps contact-related errors with additional context.
type ContactError struct {
	Op        string
	ContactID int64
	Err       error
}

func (e *ContactError) Error() string {
	return fmt.Sprintf("%s operation failed for contact %d: %v", e.Op, e.ContactID, e.Err)
}

func (e *ContactError) Unwrap() error {
	return e.Err
}

func (e *ContactError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewContactError creates a new contact error with context.
func NewContactError(op string, contactID int64, err error) *ContactError {
	return &ContactError{
		Op:        op,
		ContactID: contactID,
		Err:       err,
	}
}

// IsFormNotFound checks if an error indicates a form was not found.
func IsFormNotFound(err error) bool {
	return errors.Is(err, ErrFormNotFound)
}

// IsFormAlreadyExists checks if an error indicates a duplicate form id.
func IsFormAlreadyExists(err error) bool {
	return errors.Is(err, ErrFormAlreadyExists)
}

// IsContactNotFound checks if an error indicates a contact was not found.
func IsContactNotFound(err error) bool {
	return errors.Is(err, ErrContactNotFound)
}

// IsMonitoringStateNotFound checks if an error indicates no prior monitoring state.
func IsMonitoringStateNotFound(err error) bool {
	return errors.Is(err, ErrMonitoringStateNotFound)
}
