// file: internal/mcp/mcperrors/errors.go

// Package mcperrors defines the error taxonomy of the MCP layer: typed errors raised by
// server handlers, their mapping onto JSON-RPC error objects, and the typed failure a
// client returns when a peer answers with an error.
package mcperrors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
)

// Error is a server-side error carrying the JSON-RPC code it should be reported with.
type Error struct {
	// Code is the JSON-RPC error code.
	Code int
	// Message is the client-facing message.
	Message string
	// Cause is the underlying error, if any. It is never sent to the peer.
	Cause error
	// Context holds details that are sent to the peer as error data.
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("MCPError (Code: %d): %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("MCPError (Code: %d): %s", e.Code, e.Message)
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

// New creates an Error with a stack-carrying cause.
func New(code int, message string, cause error) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Code: code, Message: message, Cause: cause}
}

// NewToolNotFound reports an unregistered tool name.
func NewToolNotFound(name string) *Error {
	return New(protocol.CodeToolNotFound, "Tool not found: "+name, nil).WithContext("tool", name)
}

// NewResourceNotFound reports an unknown or unreadable resource URI.
func NewResourceNotFound(message, uri string) *Error {
	return New(protocol.CodeResourceNotFound, message, nil).WithContext("uri", uri)
}

// NewInvalidParams reports params that are missing or do not match what the method expects.
func NewInvalidParams(message string, cause error) *Error {
	return New(protocol.CodeInvalidParams, message, cause)
}

// NewMethodNotFound reports an unknown request method.
func NewMethodNotFound(method string) *Error {
	return New(protocol.CodeMethodNotFound, "Method not found: "+method, nil).WithContext("method", method)
}

// NewInvalidRequest reports a structurally invalid request.
func NewInvalidRequest(message string, cause error) *Error {
	return New(protocol.CodeInvalidRequest, message, cause)
}

// NewInternal reports an unexpected failure.
func NewInternal(message string, cause error) *Error {
	return New(protocol.CodeInternalError, message, cause)
}

// ToErrorObject maps any error to the most specific JSON-RPC error object. Typed errors
// keep their code and context; decode failures keep their object; anything else becomes
// an internal error whose message does not leak the cause.
func ToErrorObject(err error) *protocol.ErrorObject {
	if err == nil {
		return nil
	}
	var mcpErr *Error
	if errors.As(err, &mcpErr) {
		var data any
		if len(mcpErr.Context) > 0 {
			data = mcpErr.Context
		}
		return protocol.NewErrorObject(mcpErr.Code, mcpErr.Message, data)
	}
	var decodeErr *protocol.DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.Object
	}
	var obj *protocol.ErrorObject
	if errors.As(err, &obj) {
		return obj
	}
	return &protocol.ErrorObject{Code: protocol.CodeInternalError, Message: "Internal error"}
}
