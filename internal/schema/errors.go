// file: internal/schema/errors.go
package schema

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrorCode defines validation error codes.
type ErrorCode int

// Defined validation error codes.
const (
	ErrSchemaCompileFailed ErrorCode = iota + 1000
	ErrValidationFailed
	ErrInvalidJSONFormat
)

// ValidationError represents a schema compile or validation failure.
type ValidationError struct {
	// Code is the numeric error code.
	Code ErrorCode
	// Message is a human-readable error message.
	Message string
	// Cause is the underlying error, if any.
	Cause error
	// SchemaPath identifies the schema keyword that was violated.
	SchemaPath string
	// InstancePath identifies the part of the instance that violated the schema.
	InstancePath string
	// Context contains additional error context.
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	base := fmt.Sprintf("[%d] %s", e.Code, e.Message)
	if e.InstancePath != "" {
		base += fmt.Sprintf(" (instance path: %s)", e.InstancePath)
	}
	if e.SchemaPath != "" {
		base += fmt.Sprintf(" (schema path: %s)", e.SchemaPath)
	}
	return base
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the validation error.
func (e *ValidationError) WithContext(key string, value interface{}) *ValidationError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Details returns the locations of the failure in a form suitable for error data.
func (e *ValidationError) Details() map[string]interface{} {
	out := map[string]interface{}{}
	if e.InstancePath != "" {
		out["instancePath"] = e.InstancePath
	}
	if e.SchemaPath != "" {
		out["schemaPath"] = e.SchemaPath
	}
	if causes, ok := e.Context["validationErrors"]; ok {
		out["errors"] = causes
	}
	return out
}

// NewValidationError creates a new ValidationError.
func NewValidationError(code ErrorCode, message string, cause error) *ValidationError {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &ValidationError{Code: code, Message: message, Cause: cause}
}

// convertValidationError flattens a jsonschema failure, keeping the most specific leaf.
func convertValidationError(valErr *jsonschema.ValidationError) *ValidationError {
	out := NewValidationError(ErrValidationFailed, valErr.Message, valErr)

	leaf := valErr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	out.Message = leaf.Message
	out.SchemaPath = leaf.KeywordLocation
	out.InstancePath = leaf.InstanceLocation
	if out.InstancePath == "" {
		out.InstancePath = "/"
	}

	basic := valErr.BasicOutput()
	if len(basic.Errors) > 1 {
		causes := make([]map[string]string, 0, len(basic.Errors))
		for _, c := range basic.Errors {
			if c.Error == "" {
				continue
			}
			causes = append(causes, map[string]string{
				"instanceLocation": c.InstanceLocation,
				"keywordLocation":  c.KeywordLocation,
				"error":            c.Error,
			})
		}
		out = out.WithContext("validationErrors", causes)
	}
	return out
}
