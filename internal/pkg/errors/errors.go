package errors

import (
	"fmt"
)

// AppError represents an application error with additional context
type AppError struct {
	Code     string      `json:"code"`
	Message  string      `json:"message"`
	Internal error       `json:"-"`
	Details  interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeDataUnavailable = "DATA_UNAVAILABLE"
	ErrCodeDataQuality     = "DATA_QUALITY_ERROR"
	ErrCodeStageFailure    = "STAGE_FAILURE"
	ErrCodeMalformed       = "MALFORMED_RESPONSE"
	ErrCodeProviderAPI     = "PROVIDER_API_ERROR"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeTimeout         = "TIMEOUT"
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Internal: err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Common error constructors

// Internal creates an internal error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message)
}

// DataUnavailable creates a data-unavailable error for a failed source query
func DataUnavailable(source string, err error) *AppError {
	return Wrap(err, ErrCodeDataUnavailable,
		fmt.Sprintf("cost data unavailable from %s", source))
}

// DataQuality creates a data-quality error for a malformed snapshot or record
func DataQuality(message string, details interface{}) *AppError {
	return New(ErrCodeDataQuality, message).WithDetails(details)
}

// StageFailure creates a remediation stage failure
func StageFailure(stage string, err error) *AppError {
	return Wrap(err, ErrCodeStageFailure,
		fmt.Sprintf("remediation stage %s failed", stage))
}

// Malformed creates a malformed-response error for an unparseable collaborator payload
func Malformed(collaborator string, err error) *AppError {
	return Wrap(err, ErrCodeMalformed,
		fmt.Sprintf("malformed response from %s", collaborator))
}

// ProviderAPIError creates a provider API error
func ProviderAPIError(provider string, err error) *AppError {
	return Wrap(err, ErrCodeProviderAPI,
		fmt.Sprintf("failed to communicate with %s API", provider))
}

// Timeout creates a timeout error
func Timeout(operation string) *AppError {
	return New(ErrCodeTimeout, fmt.Sprintf("%s timed out", operation))
}
