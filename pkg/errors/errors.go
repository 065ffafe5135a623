package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown  ErrorCode = "UNKNOWN"
	ErrInternal ErrorCode = "INTERNAL"
	ErrNotFound ErrorCode = "NOT_FOUND"

	// Input and configuration errors
	ErrValidation    ErrorCode = "VALIDATION_ERROR"
	ErrConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// Git subprocess/object errors
	ErrGit ErrorCode = "GIT_ERROR"

	// Remote transfer errors
	ErrNetwork ErrorCode = "NETWORK_ERROR"

	// Repository lock contention
	ErrConcurrency ErrorCode = "CONCURRENCY_ERROR"

	// Operation lifecycle errors
	ErrCancelled      ErrorCode = "CANCELLED"
	ErrAlreadyUndone  ErrorCode = "ALREADY_UNDONE"
	ErrUndoUnsafe     ErrorCode = "UNDO_UNSAFE"
	ErrRollbackFailed ErrorCode = "ROLLBACK_FAILED"
)

// CancelReason identifies why an operation was cancelled. Callers branch on
// the reason value, never on error message text.
type CancelReason string

const (
	CancelUserInterrupt CancelReason = "user_interrupt"
	CancelTimeout       CancelReason = "timeout"
	CancelShutdown      CancelReason = "shutdown"
)

// HistofyError represents a structured error with code and details
type HistofyError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *HistofyError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *HistofyError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *HistofyError) Is(target error) bool {
	var targetErr *HistofyError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new HistofyError with the given code and message
func New(code ErrorCode, message string) *HistofyError {
	return &HistofyError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new HistofyError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *HistofyError {
	return &HistofyError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a HistofyError
func Wrap(err error, code ErrorCode, message string) *HistofyError {
	if err == nil {
		return nil
	}
	return &HistofyError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *HistofyError {
	if err == nil {
		return nil
	}
	return &HistofyError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *HistofyError) WithDetail(key string, value interface{}) *HistofyError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *HistofyError) WithDetails(details map[string]interface{}) *HistofyError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var herr *HistofyError
	if errors.As(err, &herr) {
		return herr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a HistofyError
func GetErrorCode(err error) ErrorCode {
	var herr *HistofyError
	if errors.As(err, &herr) {
		return herr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a HistofyError
func GetErrorDetails(err error) map[string]interface{} {
	var herr *HistofyError
	if errors.As(err, &herr) {
		return herr.Details
	}
	return nil
}
