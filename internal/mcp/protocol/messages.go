// file: internal/mcp/protocol/messages.go
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
)

// Version is the JSON-RPC version carried by every envelope.
const Version = "2.0"

// Request is a JSON-RPC request expecting a response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Notification is a JSON-RPC request without an id. Receivers never reply.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response answers a Request. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is the structured error member of a Response.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *ErrorObject) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// NewErrorObject builds an ErrorObject, marshaling data when non-nil.
func NewErrorObject(code int, message string, data any) *ErrorObject {
	obj := &ErrorObject{Code: code, Message: message}
	if data != nil {
		if raw, err := marshalParams(data); err == nil {
			obj.Data = raw
		}
	}
	return obj
}

// NewRequest builds a request with the given id. Params may be nil, a json.RawMessage,
// or any value that marshals to JSON.
func NewRequest(id ID, method string, params any) (*Request, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal params for %s", method)
	}
	return &Request{JSONRPC: Version, ID: id, Method: method, Params: raw}, nil
}

// NewNotification builds a notification.
func NewNotification(method string, params any) (*Notification, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal params for %s", method)
	}
	return &Notification{JSONRPC: Version, Method: method, Params: raw}, nil
}

// NewResultResponse builds a success response. A nil result is encoded as {}.
func NewResultResponse(id ID, result any) (*Response, error) {
	raw, err := marshalParams(result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal result")
	}
	if raw == nil {
		raw = json.RawMessage("{}")
	}
	return &Response{JSONRPC: Version, ID: id, Result: raw}, nil
}

// NewErrorResponse builds an error response. A zero id encodes as null.
func NewErrorResponse(id ID, obj *ErrorObject) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: obj}
}

func marshalParams(v any) (json.RawMessage, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if len(p) == 0 {
			return nil, nil
		}
		return p, nil
	case []byte:
		if len(p) == 0 {
			return nil, nil
		}
		return json.RawMessage(p), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}
