// file: internal/mcp/protocol/decode.go
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind classifies a decoded envelope.
type Kind int

const (
	// KindRequest is a message with a method and an id.
	KindRequest Kind = iota + 1
	// KindNotification is a message with a method and no id.
	KindNotification
	// KindResponse is a message with an id and a result or error.
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotification:
		return "notification"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Envelope is the result of Decode. Exactly one of the typed pointers is set,
// matching Kind.
type Envelope struct {
	Kind         Kind
	Request      *Request
	Notification *Notification
	Response     *Response
}

// Method returns the method of a request or notification.
func (e *Envelope) Method() string {
	switch e.Kind {
	case KindRequest:
		return e.Request.Method
	case KindNotification:
		return e.Notification.Method
	default:
		return ""
	}
}

// DecodeError reports a message that could not be decoded into a valid envelope.
// ID is set when the id could still be recovered from the input.
type DecodeError struct {
	ID     ID
	Object *ErrorObject
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed (id %s): %s", e.ID, e.Object.Message)
}

// Unwrap exposes the underlying ErrorObject.
func (e *DecodeError) Unwrap() error {
	return e.Object
}

type rawEnvelope struct {
	JSONRPC *string         `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  *string         `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

// Decode parses one JSON-RPC message. Malformed JSON yields a DecodeError with
// CodeParseError; structurally invalid envelopes yield CodeInvalidRequest. Method names
// are not checked here.
func Decode(data []byte) (*Envelope, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		if !json.Valid(data) {
			return nil, parseFailure("Parse error")
		}
		return nil, invalid(ID{}, "message must be a JSON object")
	}

	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		if !json.Valid(data) {
			return nil, parseFailure("Parse error")
		}
		return nil, invalid(ID{}, "invalid envelope: "+err.Error())
	}

	hasID := len(raw.ID) > 0
	id, err := parseID(raw.ID)
	if err != nil {
		return nil, invalid(ID{}, err.Error())
	}
	if raw.JSONRPC == nil || *raw.JSONRPC != Version {
		return nil, invalid(id, `jsonrpc must be "2.0"`)
	}
	params := nullToNil(raw.Params)

	if raw.Method != nil {
		if *raw.Method == "" {
			return nil, invalid(id, "method must not be empty")
		}
		if !hasID {
			return &Envelope{
				Kind:         KindNotification,
				Notification: &Notification{JSONRPC: Version, Method: *raw.Method, Params: params},
			}, nil
		}
		if id.IsZero() {
			return nil, invalid(id, "request id must not be null")
		}
		return &Envelope{
			Kind:    KindRequest,
			Request: &Request{JSONRPC: Version, ID: id, Method: *raw.Method, Params: params},
		}, nil
	}

	if !hasID {
		return nil, invalid(id, "message has neither method nor id")
	}
	hasResult := len(raw.Result) > 0
	hasError := len(raw.Error) > 0 && !bytes.Equal(raw.Error, []byte("null"))
	if hasResult == hasError {
		return nil, invalid(id, "response must carry exactly one of result or error")
	}
	resp := &Response{JSONRPC: Version, ID: id}
	if hasError {
		var obj ErrorObject
		if err := json.Unmarshal(raw.Error, &obj); err != nil {
			return nil, invalid(id, "invalid error object: "+err.Error())
		}
		resp.Error = &obj
	} else {
		resp.Result = raw.Result
	}
	return &Envelope{Kind: KindResponse, Response: resp}, nil
}

func nullToNil(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return raw
}

func parseFailure(msg string) *DecodeError {
	return &DecodeError{Object: &ErrorObject{Code: CodeParseError, Message: msg}}
}

func invalid(id ID, msg string) *DecodeError {
	return &DecodeError{ID: id, Object: &ErrorObject{Code: CodeInvalidRequest, Message: "Invalid Request: " + msg}}
}
