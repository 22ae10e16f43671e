// file: internal/schema/validator.go

// Package schema compiles and applies JSON schemas for tool arguments, and checks the
// names tools are registered under.
package schema

import (
	"bytes"
	"encoding/json"
	"net/url"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// emptyObjectSchema is used for tools that declare no parameters.
var emptyObjectSchema = json.RawMessage(`{"type":"object"}`)

// Validator is a compiled JSON schema. It is safe for concurrent use.
type Validator struct {
	raw    json.RawMessage
	schema *jsonschema.Schema
}

// Compile compiles raw under the given name, which only labels error locations. A nil
// or empty schema accepts any object.
func Compile(name string, raw json.RawMessage) (*Validator, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = emptyObjectSchema
	}
	if !json.Valid(raw) {
		return nil, NewValidationError(ErrInvalidJSONFormat, "schema for "+name+" is not valid JSON", nil)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true

	resource := "tool://" + url.PathEscape(name) + "/input.json"
	if err := compiler.AddResource(resource, bytes.NewReader(raw)); err != nil {
		return nil, NewValidationError(ErrSchemaCompileFailed, "failed to add schema for "+name, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, NewValidationError(ErrSchemaCompileFailed, "failed to compile schema for "+name, err)
	}
	return &Validator{raw: raw, schema: compiled}, nil
}

// Raw returns the schema document.
func (v *Validator) Raw() json.RawMessage {
	return v.raw
}

// Validate checks a JSON document against the schema. Absent arguments are validated as
// an empty object.
func (v *Validator) Validate(data json.RawMessage) error {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		data = json.RawMessage(`{}`)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return NewValidationError(ErrInvalidJSONFormat, "arguments are not valid JSON", err)
	}

	if err := v.schema.Validate(doc); err != nil {
		var valErr *jsonschema.ValidationError
		if errors.As(err, &valErr) {
			return convertValidationError(valErr)
		}
		return NewValidationError(ErrValidationFailed, "schema validation failed", err)
	}
	return nil
}
