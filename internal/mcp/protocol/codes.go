// file: internal/mcp/protocol/codes.go
package protocol

// JSON-RPC 2.0 reserved error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Implementation-defined codes in the -32000 to -32099 server range.
const (
	CodeServerError      = -32000
	CodeToolNotFound     = -32001
	CodeResourceNotFound = -32002
)

// CodeName returns a short symbolic name for a code, used in logs and metrics labels.
func CodeName(code int) string {
	switch code {
	case CodeParseError:
		return "parse_error"
	case CodeInvalidRequest:
		return "invalid_request"
	case CodeMethodNotFound:
		return "method_not_found"
	case CodeInvalidParams:
		return "invalid_params"
	case CodeInternalError:
		return "internal_error"
	case CodeServerError:
		return "server_error"
	case CodeToolNotFound:
		return "tool_not_found"
	case CodeResourceNotFound:
		return "resource_not_found"
	default:
		return "unknown"
	}
}
