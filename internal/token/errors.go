package token

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a token did not yield valid claims.
type ErrorKind int

const (
	// KindNone means the token parsed and has not expired
	KindNone ErrorKind = iota
	// KindMissingToken means no token was supplied
	KindMissingToken
	// KindMalformedToken means the token did not have exactly three parts
	KindMalformedToken
	// KindPayloadDecode means the payload was not base64 JSON text
	KindPayloadDecode
	// KindExpired means the token parsed but its exp is in the past
	KindExpired
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindMissingToken:
		return "missing_token"
	case KindMalformedToken:
		return "malformed_token"
	case KindPayloadDecode:
		return "payload_decode"
	case KindExpired:
		return "expired"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// IsParseFailure reports whether the kind is one of the parse failures.
func (k ErrorKind) IsParseFailure() bool {
	return k == KindMalformedToken || k == KindPayloadDecode
}

// Messages written to jwt.error. These strings are part of the gateway
// contract and must not change.
const (
	MessageNoToken       = "No token provided"
	MessageExpired       = "Token expired"
	MessageParsePrefix   = "Failed to parse JWT: "
	MessageInvalidFormat = "Invalid JWT format"
)

// Sentinels for errors.Is, one per kind.
var (
	ErrMissingToken   = errors.New("missing token")
	ErrMalformedToken = errors.New("malformed token")
	ErrPayloadDecode  = errors.New("payload decode failure")
	ErrExpired        = errors.New("token expired")
)

// Error describes a failed extraction. Error() returns the exact jwt.error text.
type Error struct {
	Kind ErrorKind

	// Cause is the underlying decode failure, set for KindPayloadDecode
	Cause error

	msg string
}

func (e *Error) Error() string {
	return e.msg
}

// Unwrap exposes the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's kind
func (e *Error) Is(target error) bool {
	switch target {
	case ErrMissingToken:
		return e.Kind == KindMissingToken
	case ErrMalformedToken:
		return e.Kind == KindMalformedToken
	case ErrPayloadDecode:
		return e.Kind == KindPayloadDecode
	case ErrExpired:
		return e.Kind == KindExpired
	}
	return false
}

func missingTokenError() *Error {
	return &Error{Kind: KindMissingToken, msg: MessageNoToken}
}

func malformedTokenError() *Error {
	return &Error{Kind: KindMalformedToken, msg: MessageParsePrefix + MessageInvalidFormat}
}

func payloadDecodeError(cause error) *Error {
	return &Error{Kind: KindPayloadDecode, Cause: cause, msg: MessageParsePrefix + cause.Error()}
}

func expiredError() *Error {
	return &Error{Kind: KindExpired, msg: MessageExpired}
}
