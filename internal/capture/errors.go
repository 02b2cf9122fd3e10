package capture

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes capture failures.
type ErrorCode string

const (
	// ErrCodeLinkUnavailable indicates the instrument link reported itself
	// disconnected before any command was sent.
	ErrCodeLinkUnavailable ErrorCode = "LINK_UNAVAILABLE"

	// ErrCodeInvalidChannel indicates a channel number below 1.
	ErrCodeInvalidChannel ErrorCode = "INVALID_CHANNEL"

	// ErrCodeNotReady indicates the instrument never reported a stopped
	// acquisition within the ready deadline.
	ErrCodeNotReady ErrorCode = "NOT_READY"

	// ErrCodeConfigFailed indicates a waveform-source configuration command
	// was not acknowledged.
	ErrCodeConfigFailed ErrorCode = "CONFIG_FAILED"

	// ErrCodeEmptyPayload indicates the binary block decoded to zero bytes.
	ErrCodeEmptyPayload ErrorCode = "EMPTY_PAYLOAD"
)

// Error is a capture failure with enough structure for callers to branch on.
//
// A failed capture never leaves a partially populated waveform behind: the
// store and journal are untouched on any path that returns an Error.
type Error struct {
	Code    ErrorCode
	Message string
	Channel int
	Err     error // underlying cause, optional
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Channel > 0 {
		return fmt.Sprintf("%s: %s (channel=%d)", e.Code, e.Message, e.Channel)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not a
// capture error.
func CodeOf(err error) ErrorCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func newError(code ErrorCode, channel int, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Channel: channel, Err: cause}
}
