package engine

import (
	"errors"
	"fmt"
)

// RenderError represents a failed Render call.
//
// Render errors include:
//   - Unsupported kind: the host rejected a descriptor's tag during commit
//   - Duplicate key: two siblings share a key (detected before any mutation)
//   - Invalid target: the mount target is nil or rejected by the host
//   - Torn target: an earlier commit into this target failed part-way
//   - Provider failure: any other host error during commit
type RenderError struct {
	// Code identifies the error category.
	Code RenderErrorCode

	// Message is a human-readable description.
	Message string

	// Path locates the offending node, e.g. "/#0/2". Empty for target errors.
	Path string

	// Err is the underlying cause, if any.
	Err error
}

// RenderErrorCode categorizes render errors.
type RenderErrorCode string

const (
	// ErrCodeUnsupportedKind indicates the host rejected a tag.
	ErrCodeUnsupportedKind RenderErrorCode = "UNSUPPORTED_KIND"

	// ErrCodeDuplicateKey indicates two siblings share a key.
	ErrCodeDuplicateKey RenderErrorCode = "DUPLICATE_KEY"

	// ErrCodeInvalidTarget indicates the mount target is unusable.
	ErrCodeInvalidTarget RenderErrorCode = "INVALID_TARGET"

	// ErrCodeTornTarget indicates a previous commit left the target half-updated.
	ErrCodeTornTarget RenderErrorCode = "TORN_TARGET"

	// ErrCodeProvider indicates any other host failure during commit.
	ErrCodeProvider RenderErrorCode = "PROVIDER_ERROR"
)

// Error implements the error interface.
func (e *RenderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg += " (at " + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the cause so errors.Is(err, host.ErrUnsupportedKind) works.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// CodeOf returns the RenderErrorCode of err, or "" if err is not a RenderError.
func CodeOf(err error) RenderErrorCode {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsUnsupportedKind reports whether err is an unsupported kind error.
func IsUnsupportedKind(err error) bool {
	return CodeOf(err) == ErrCodeUnsupportedKind
}

// IsDuplicateKey reports whether err is a duplicate key error.
func IsDuplicateKey(err error) bool {
	return CodeOf(err) == ErrCodeDuplicateKey
}

// IsInvalidTarget reports whether err is an invalid target error.
func IsInvalidTarget(err error) bool {
	return CodeOf(err) == ErrCodeInvalidTarget
}

// IsTornTarget reports whether err is a torn target error.
func IsTornTarget(err error) bool {
	return CodeOf(err) == ErrCodeTornTarget
}

// NewDuplicateKeyError wraps a duplicate key found while reconciling.
func NewDuplicateKeyError(path string, cause error) *RenderError {
	return &RenderError{
		Code:    ErrCodeDuplicateKey,
		Message: "sibling keys must be unique",
		Path:    path,
		Err:     cause,
	}
}

// NewInvalidTargetError reports an unusable mount target.
func NewInvalidTargetError(cause error) *RenderError {
	return &RenderError{
		Code:    ErrCodeInvalidTarget,
		Message: "mount target is not a valid container",
		Err:     cause,
	}
}

// NewTornTargetError reports that an earlier failed commit left the target
// inconsistent.
func NewTornTargetError(cause error) *RenderError {
	return &RenderError{
		Code:    ErrCodeTornTarget,
		Message: "a previous commit into this target failed; call Reset before rendering again",
		Err:     cause,
	}
}
