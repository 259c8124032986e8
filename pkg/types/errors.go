package types

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeModel          ErrorType = "model"
	ErrorTypeStore          ErrorType = "store"
	ErrorTypeConfig         ErrorType = "config"
	ErrorTypeInternal       ErrorType = "internal"
)

// PortalError represents a structured error in the portal
type PortalError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *PortalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *PortalError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeConfigMissing        = "CONFIG_MISSING"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeEmptyInput           = "EMPTY_INPUT"
	ErrCodeModelUnavailable     = "MODEL_UNAVAILABLE"
	ErrCodeGenerationFailed     = "GENERATION_FAILED"
	ErrCodeMalformedModelOutput = "MALFORMED_MODEL_OUTPUT"
	ErrCodePatientNotFound      = "PATIENT_NOT_FOUND"
	ErrCodeStoreUnavailable     = "STORE_UNAVAILABLE"
	ErrCodeDuplicateLoginID     = "DUPLICATE_LOGIN_ID"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// NewValidationError creates a new validation error
func NewValidationError(code, message string) *PortalError {
	return &PortalError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(code, message string) *PortalError {
	return &PortalError{
		Type:    ErrorTypeAuthentication,
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *PortalError {
	return &PortalError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewModelError creates a new model backend error
func NewModelError(code, message string, cause error) *PortalError {
	return &PortalError{
		Type:    ErrorTypeModel,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewStoreError creates a new durable store error
func NewStoreError(code, message string, cause error) *PortalError {
	return &PortalError{
		Type:    ErrorTypeStore,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *PortalError {
	return &PortalError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsCode reports whether err is a PortalError carrying the given code
func IsCode(err error, code string) bool {
	var pe *PortalError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}
