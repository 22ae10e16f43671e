// file: internal/tools/registry.go
package tools

import (
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/logging"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
	"github.com/dkoosis/toolwire/internal/schema"
)

// ErrDuplicateTool is returned when a tool name is registered twice.
var ErrDuplicateTool = errors.New("tool already registered")

type entry struct {
	tool      Tool
	validator *schema.Validator
}

// Registry holds tools in registration order. Lookups are safe for concurrent use with
// registration.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	index   map[string]int
	logger  logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger logging.Logger) *Registry {
	return &Registry{
		index:  make(map[string]int),
		logger: logging.OrNoop(logger).WithField("component", "tool_registry"),
	}
}

// Register validates the tool's name, compiles its schema and appends it.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return errors.New("cannot register a nil tool")
	}
	name := t.Name()
	if err := schema.ValidateToolName(name); err != nil {
		return errors.Wrap(err, "invalid tool name")
	}
	v, err := schema.Compile(name, t.ParametersSchema())
	if err != nil {
		return errors.Wrapf(err, "tool %q has an invalid parameter schema", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.index[name]; exists {
		return errors.Wrapf(ErrDuplicateTool, "tool %q", name)
	}
	r.index[name] = len(r.entries)
	r.entries = append(r.entries, entry{tool: t, validator: v})
	r.logger.Debug("Registered tool.", "tool", name)
	return nil
}

// MustRegister is Register for static setup code; it panics on error.
func (r *Registry) MustRegister(tools ...Tool) *Registry {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Get looks up a tool by exact name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.entries[i].tool, true
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.tool.Name()
	}
	return out
}

// Definitions returns the wire definitions of all tools in registration order.
func (r *Registry) Definitions() []protocol.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.ToolDefinition, len(r.entries))
	for i, e := range r.entries {
		out[i] = protocol.ToolDefinition{
			Name:        e.tool.Name(),
			Description: e.tool.Description(),
			InputSchema: e.validator.Raw(),
		}
	}
	return out
}

// ValidateArguments checks args against the named tool's schema. The error is a
// *schema.ValidationError when the arguments are rejected.
func (r *Registry) ValidateArguments(name string, args json.RawMessage) error {
	r.mu.RLock()
	i, ok := r.index[name]
	var v *schema.Validator
	if ok {
		v = r.entries[i].validator
	}
	r.mu.RUnlock()
	if !ok {
		return errors.Newf("tool %q is not registered", name)
	}
	return v.Validate(args)
}
