// file: internal/tools/tool.go

// Package tools defines the Tool contract exposed over MCP and the registry the server
// dispatches tools/call against.
package tools

import (
	"context"
	"encoding/json"
)

// Tool is a named capability callable through tools/call.
type Tool interface {
	Name() string
	Description() string
	// ParametersSchema returns the JSON schema of the tool's arguments. Nil means the tool
	// takes an arbitrary object.
	ParametersSchema() json.RawMessage
	// Execute runs the tool. A returned error is an internal failure; an expected failure
	// is reported through Result.Success.
	Execute(ctx context.Context, args json.RawMessage) (*Result, error)
}

// Result is the outcome of a tool execution.
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK builds a successful result.
func OK(output string) *Result {
	return &Result{Success: true, Output: output}
}

// Failed builds a failed result.
func Failed(msg string) *Result {
	return &Result{Success: false, Error: msg}
}

// Text returns the text a caller should see: the output on success, otherwise the error
// message, falling back to the output.
func (r *Result) Text() string {
	if r.Success || r.Error == "" {
		return r.Output
	}
	return r.Error
}
