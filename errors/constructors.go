package errors

import (
	"fmt"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *OverlayError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *OverlayError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// LoopUnavailable is returned when the host event loop cannot be reached.
func LoopUnavailable() *OverlayError {
	return New(ErrCodeLoopUnavailable, "host event loop is unavailable")
}

// PipeFailed wraps a failure to create or register the wakeup pipe.
func PipeFailed(op string, err error) *OverlayError {
	return Wrap(err, ErrCodePipeFailed, fmt.Sprintf("wakeup pipe %s failed", op)).
		WithDetail("op", op)
}

// DecodeFailed wraps an image decode failure.
func DecodeFailed(path string, err error) *OverlayError {
	return Wrap(err, ErrCodeDecodeFailed, fmt.Sprintf("failed to decode image: %s", path)).
		WithDetail("path", path)
}

// UploadFailed wraps a texture upload failure.
func UploadFailed(path string, err error) *OverlayError {
	return Wrap(err, ErrCodeUploadFailed, fmt.Sprintf("failed to upload texture: %s", path)).
		WithDetail("path", path)
}

// MalformedCommand reports a command line that could not be parsed.
func MalformedCommand(line, reason string) *OverlayError {
	return New(ErrCodeMalformedCommand, fmt.Sprintf("malformed command %q: %s", line, reason)).
		WithDetail("line", line)
}
