package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Host integration errors
	ErrCodeLoopUnavailable ErrorCode = "LOOP_UNAVAILABLE"
	ErrCodePipeFailed      ErrorCode = "PIPE_FAILED"

	// Asset errors
	ErrCodeDecodeFailed ErrorCode = "DECODE_FAILED"
	ErrCodeUploadFailed ErrorCode = "UPLOAD_FAILED"

	// Input errors
	ErrCodeMalformedCommand ErrorCode = "MALFORMED_COMMAND"

	// General errors
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
)

// OverlayError represents a structured error with context
type OverlayError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *OverlayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *OverlayError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *OverlayError) WithDetail(key string, value interface{}) *OverlayError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *OverlayError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new OverlayError
func New(code ErrorCode, message string) *OverlayError {
	return &OverlayError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an OverlayError
func Wrap(err error, code ErrorCode, message string) *OverlayError {
	return &OverlayError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific OverlayError code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	overlayErr, ok := err.(*OverlayError)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return overlayErr.Code
}
