// file: internal/mcp/mcperrors/remote.go
package mcperrors

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
)

// RemoteError is returned by a client when the peer answered a request with an error
// object. It is a protocol or capability failure, never a transport failure.
type RemoteError struct {
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

// FromErrorObject converts a response error into a RemoteError.
func FromErrorObject(method string, obj *protocol.ErrorObject) *RemoteError {
	return &RemoteError{Method: method, Code: obj.Code, Message: obj.Message, Data: obj.Data}
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s failed: %s (code %d, %s)", e.Method, e.Message, e.Code, protocol.CodeName(e.Code))
}

// CodeOf returns the JSON-RPC code of a remote or server-side error.
func CodeOf(err error) (int, bool) {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Code, true
	}
	var local *Error
	if errors.As(err, &local) {
		return local.Code, true
	}
	return 0, false
}

func hasCode(err error, code int) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsToolNotFound reports whether err carries the tool-not-found code.
func IsToolNotFound(err error) bool { return hasCode(err, protocol.CodeToolNotFound) }

// IsResourceNotFound reports whether err carries the resource-not-found code.
func IsResourceNotFound(err error) bool { return hasCode(err, protocol.CodeResourceNotFound) }

// IsMethodNotFound reports whether err carries the method-not-found code.
func IsMethodNotFound(err error) bool { return hasCode(err, protocol.CodeMethodNotFound) }

// IsInvalidParams reports whether err carries the invalid-params code.
func IsInvalidParams(err error) bool { return hasCode(err, protocol.CodeInvalidParams) }
