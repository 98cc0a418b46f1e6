package core

import (
	"errors"
	"fmt"
)

// Error is the canonical error type shared by the voice core and the
// gateway. It carries a machine-readable type plus a human message.
type Error struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Param     string    `json:"param,omitempty"`
	RequestID string    `json:"request_id,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrInvalidRequest   ErrorType = "invalid_request_error"
	ErrNotFound         ErrorType = "not_found_error"
	ErrPermissionDenied ErrorType = "permission_denied_error"
	ErrConnection       ErrorType = "connection_error"
	ErrDecode           ErrorType = "decode_error"
	ErrAlreadyActive    ErrorType = "already_active_error"
	ErrAPI              ErrorType = "api_error"
)

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{Type: ErrInvalidRequest, Message: message}
}

// NewInvalidRequestErrorWithParam creates an invalid request error with a parameter.
func NewInvalidRequestErrorWithParam(message, param string) *Error {
	return &Error{Type: ErrInvalidRequest, Message: message, Param: param}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *Error {
	return &Error{Type: ErrNotFound, Message: message}
}

// NewPermissionDeniedError creates an error for a refused device grant.
// Permission errors are user-correctable and are surfaced verbatim.
func NewPermissionDeniedError(message string, cause error) *Error {
	return &Error{Type: ErrPermissionDenied, Message: message, cause: cause}
}

// NewConnectionError creates an error for a transport open or send failure.
func NewConnectionError(message string, cause error) *Error {
	return &Error{Type: ErrConnection, Message: message, cause: cause}
}

// NewDecodeError creates an error for a malformed inbound payload.
// Decode errors are isolated per-frame and never abort a session.
func NewDecodeError(message string, cause error) *Error {
	return &Error{Type: ErrDecode, Message: message, cause: cause}
}

// NewAlreadyActiveError reports a start request while a session is live.
func NewAlreadyActiveError(message string) *Error {
	return &Error{Type: ErrAlreadyActive, Message: message}
}

// NewAPIError creates a generic API error.
func NewAPIError(message string) *Error {
	return &Error{Type: ErrAPI, Message: message}
}

// WrapAPIError creates a generic API error with an underlying cause.
func WrapAPIError(message string, cause error) *Error {
	return &Error{Type: ErrAPI, Message: message, cause: cause}
}

// TypeOf returns the ErrorType of err, or ErrAPI when err is not a *Error.
func TypeOf(err error) ErrorType {
	var ce *Error
	if errors.As(err, &ce) && ce != nil {
		return ce.Type
	}
	return ErrAPI
}

// IsPermissionDenied reports whether err is a permission error.
func IsPermissionDenied(err error) bool { return TypeOf(err) == ErrPermissionDenied }

// IsDecode reports whether err is a per-frame decode error.
func IsDecode(err error) bool { return TypeOf(err) == ErrDecode }
