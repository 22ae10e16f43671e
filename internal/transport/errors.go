// file: internal/transport/errors.go

// Package transport moves JSON-RPC envelopes between an MCP client and its peer.
package transport

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrorCode identifies a specific transport failure.
type ErrorCode int

// Transport error codes.
const (
	ErrGeneric ErrorCode = iota + 1000
	ErrInvalidMessage
	ErrMessageTooLarge
	ErrTransportClosed
	ErrRequestTimeout
	ErrJSONParseFailed
	ErrConnectFailed
	ErrHTTPStatus
)

// ErrorType groups codes into the classes callers branch on.
type ErrorType int

// Transport error classes.
const (
	ErrorTypeGeneric ErrorType = iota
	ErrorTypeMessageSize
	ErrorTypeParse
	ErrorTypeTimeout
	ErrorTypeClosed
	ErrorTypeUnavailable
	ErrorTypeStatus
)

// Error is the single error type returned by transports. It is always distinguishable
// from a protocol-level error returned by the peer.
type Error struct {
	Type    ErrorType
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *Error) Error() string {
	base := fmt.Sprintf("TransportError [%d] %s", e.Code, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds a detail and returns the error for chaining.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is matches another *Error with the same type and code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// NewError creates a generic transport error.
func NewError(code ErrorCode, message string, cause error) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{
		Type:    ErrorTypeGeneric,
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
}

// NewMessageSizeError reports a frame larger than the limit.
func NewMessageSizeError(size, maxSize int) *Error {
	err := NewError(ErrMessageTooLarge, fmt.Sprintf("message size %d exceeds maximum allowed size %d", size, maxSize), nil)
	err.Type = ErrorTypeMessageSize
	return err.WithContext("size", size).WithContext("maxSize", maxSize)
}

// NewParseError reports an inbound frame that is not a valid envelope.
func NewParseError(message []byte, cause error) *Error {
	preview := message
	if len(preview) > 100 {
		preview = preview[:100]
	}
	err := NewError(ErrJSONParseFailed, "failed to parse inbound message", cause)
	err.Type = ErrorTypeParse
	return err.WithContext("messagePreview", string(preview)).WithContext("messageLength", len(message))
}

// NewTimeoutError reports a request whose deadline expired before its response arrived.
func NewTimeoutError(operation string, cause error) *Error {
	err := NewError(ErrRequestTimeout, fmt.Sprintf("%s timed out", operation), cause)
	err.Type = ErrorTypeTimeout
	return err.WithContext("operation", operation)
}

// NewClosedError reports a transport that is closed, or closed while the operation waited.
func NewClosedError(operation string, cause error) *Error {
	err := NewError(ErrTransportClosed, fmt.Sprintf("transport closed during %s", operation), cause)
	err.Type = ErrorTypeClosed
	return err.WithContext("operation", operation)
}

// NewUnavailableError reports a peer that could not be reached.
func NewUnavailableError(target string, cause error) *Error {
	err := NewError(ErrConnectFailed, fmt.Sprintf("peer %s is unavailable", target), cause)
	err.Type = ErrorTypeUnavailable
	return err.WithContext("target", target)
}

// NewStatusError reports a non-2xx HTTP answer.
func NewStatusError(status int, body []byte) *Error {
	if len(body) > 200 {
		body = body[:200]
	}
	err := NewError(ErrHTTPStatus, fmt.Sprintf("unexpected HTTP status %d", status), nil)
	err.Type = ErrorTypeStatus
	return err.WithContext("status", status).WithContext("body", string(body))
}

// NewInvalidMessageError reports an envelope that decodes but violates the contract.
func NewInvalidMessageError(message string) *Error {
	return NewError(ErrInvalidMessage, message, nil)
}

func typeOf(err error) (ErrorType, bool) {
	var transportErr *Error
	if errors.As(err, &transportErr) {
		return transportErr.Type, true
	}
	return 0, false
}

// IsTransportError reports whether err came from a transport rather than the peer.
func IsTransportError(err error) bool {
	_, ok := typeOf(err)
	return ok
}

// IsClosedError reports whether err means the transport is closed.
func IsClosedError(err error) bool {
	if t, ok := typeOf(err); ok {
		return t == ErrorTypeClosed
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe)
}

// IsTimeoutError reports whether err is a request timeout.
func IsTimeoutError(err error) bool {
	if t, ok := typeOf(err); ok {
		return t == ErrorTypeTimeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsConnectionError reports whether err means the connection itself is gone or could
// not be established, which is the class that warrants a reconnect.
func IsConnectionError(err error) bool {
	if t, ok := typeOf(err); ok {
		return t == ErrorTypeClosed || t == ErrorTypeUnavailable
	}
	return false
}

// contextError converts a finished context into a transport error. Deadline expiry is a
// timeout; cancellation is passed through so errors.Is(err, context.Canceled) holds.
func contextError(ctx context.Context, operation string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewTimeoutError(operation, ctx.Err())
	}
	return errors.Wrapf(ctx.Err(), "%s cancelled", operation)
}
