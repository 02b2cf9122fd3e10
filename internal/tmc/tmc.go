// Package tmc decodes the IEEE-488.2 definite-length block framing used by
// instrument binary responses ("TMC blocks").
//
// A block looks like:
//
//	'#' <d> <len[d]> <payload[L]> [trailing bytes]
//
// where <d> is a single ASCII digit '1'-'9' giving the width of the decimal
// length field, <len> is the payload length L in ASCII decimal, and any bytes
// past the payload (typically a terminating newline) are ignored.
//
// Decoding is total: malformed input never panics, it yields an empty payload
// and a DecodeError describing what was wrong. Callers treat an empty payload
// as "no data", not as a fault they must recover from.
package tmc

import (
	"errors"
	"fmt"
)

// MinBlockSize is the smallest input worth inspecting: marker, digit-count,
// at least one length digit, and a few payload bytes. Anything shorter is
// rejected outright before field parsing.
const MinBlockSize = 10

// DecodeErrorCode categorizes block decode failures.
type DecodeErrorCode string

const (
	// ErrCodeTooShort indicates the input is shorter than MinBlockSize,
	// or too short to hold the declared length field.
	ErrCodeTooShort DecodeErrorCode = "TOO_SHORT"

	// ErrCodeBadMarker indicates byte 0 is not '#'.
	ErrCodeBadMarker DecodeErrorCode = "BAD_MARKER"

	// ErrCodeBadDigitCount indicates byte 1 is not an ASCII digit '1'-'9'.
	ErrCodeBadDigitCount DecodeErrorCode = "BAD_DIGIT_COUNT"

	// ErrCodeBadLength indicates the length field is not a decimal integer.
	ErrCodeBadLength DecodeErrorCode = "BAD_LENGTH"
)

// DecodeError reports why a block could not be decoded.
type DecodeError struct {
	Code    DecodeErrorCode
	Message string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsDecodeError returns true if err is (or wraps) a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Decode strips the block header from raw and returns the payload bytes.
//
// The returned payload aliases raw; callers that retain it past the life of
// raw must copy. On any framing error the payload is nil and the error is a
// *DecodeError. If the input declares more payload than it carries, the
// available bytes are returned rather than failing the whole block.
func Decode(raw []byte) ([]byte, error) {
	if len(raw) < MinBlockSize {
		return nil, &DecodeError{
			Code:    ErrCodeTooShort,
			Message: fmt.Sprintf("block is %d bytes, need at least %d", len(raw), MinBlockSize),
		}
	}
	if raw[0] != '#' {
		return nil, &DecodeError{
			Code:    ErrCodeBadMarker,
			Message: fmt.Sprintf("block starts with 0x%02x, want '#'", raw[0]),
		}
	}

	d := int(raw[1] - '0')
	if d < 1 || d > 9 {
		return nil, &DecodeError{
			Code:    ErrCodeBadDigitCount,
			Message: fmt.Sprintf("length digit count byte is 0x%02x, want '1'-'9'", raw[1]),
		}
	}
	if len(raw) < 2+d {
		return nil, &DecodeError{
			Code:    ErrCodeTooShort,
			Message: fmt.Sprintf("block is %d bytes, too short for %d-digit length field", len(raw), d),
		}
	}

	length := 0
	for _, b := range raw[2 : 2+d] {
		if b < '0' || b > '9' {
			return nil, &DecodeError{
				Code:    ErrCodeBadLength,
				Message: fmt.Sprintf("length field contains non-digit 0x%02x", b),
			}
		}
		length = length*10 + int(b-'0')
	}

	payload := raw[2+d:]
	if length < len(payload) {
		// Trailing bytes (instrument newline terminator) are ignored.
		payload = payload[:length]
	}
	return payload, nil
}

// HeaderLength returns the total size in bytes of the header that precedes
// the payload in a block whose length field is w digits wide.
func HeaderLength(w int) int {
	return 2 + w
}
