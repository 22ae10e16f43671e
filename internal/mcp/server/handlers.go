// file: internal/mcp/server/handlers.go
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/mcp/mcperrors"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
	"github.com/dkoosis/toolwire/internal/memory"
	"github.com/dkoosis/toolwire/internal/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// MemoryScheme prefixes the URIs of memory store entries.
	MemoryScheme = "memory://"
	// MaxListedResources caps resources/list.
	MaxListedResources = 1000

	textMimeType = "text/plain"
)

func (s *Server) handleInitialize(_ context.Context, params json.RawMessage) (json.RawMessage, error) {
	var p protocol.InitializeParams
	if hasParams(params) {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, mcperrors.NewInvalidParams("Invalid params: malformed initialize params", err)
		}
	}
	s.logger.Info("Client initializing.",
		"client", p.ClientInfo.Name, "client_version", p.ClientInfo.Version, "protocol_version", p.ProtocolVersion)

	return json.Marshal(protocol.InitializeResult{
		ProtocolVersion: protocol.LatestVersion,
		Capabilities:    s.Capabilities(),
		ServerInfo:      protocol.Implementation{Name: s.opts.Name, Version: s.opts.Version},
		Instructions:    s.opts.Instructions,
	})
}

func (s *Server) handlePing(context.Context, json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (s *Server) handleInitialized(context.Context, json.RawMessage) error {
	s.logger.Info("Client finished initialization.")
	return nil
}

func (s *Server) handleCancelled(_ context.Context, params json.RawMessage) error {
	var p struct {
		RequestID protocol.ID `json:"requestId"`
		Reason    string      `json:"reason"`
	}
	_ = json.Unmarshal(params, &p)
	s.logger.Info("Client cancelled a request.", "request_id", p.RequestID.String(), "reason", p.Reason)
	return nil
}

func (s *Server) handleToolsList(context.Context, json.RawMessage) (json.RawMessage, error) {
	result := protocol.ListToolsResult{Tools: []protocol.ToolDefinition{}}
	if s.registry != nil {
		result.Tools = s.registry.Definitions()
	}
	return json.Marshal(result)
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	if !hasParams(params) {
		return nil, mcperrors.NewInvalidParams("Invalid params: missing tools/call params", nil)
	}
	var p protocol.CallToolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, mcperrors.NewInvalidParams("Invalid params: malformed tools/call params", err)
	}
	if p.Name == "" {
		return nil, mcperrors.NewInvalidParams("Invalid params: missing tool name", nil)
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("mcp.tool", p.Name))

	if s.registry == nil {
		return nil, mcperrors.NewToolNotFound(p.Name)
	}
	tool, ok := s.registry.Get(p.Name)
	if !ok {
		s.metrics.RecordToolCall(p.Name, "not_found")
		return nil, mcperrors.NewToolNotFound(p.Name)
	}

	if err := s.registry.ValidateArguments(p.Name, p.Arguments); err != nil {
		s.metrics.RecordToolCall(p.Name, "invalid_params")
		return nil, invalidArguments(p.Name, err)
	}

	args := p.Arguments
	if !hasParams(args) {
		args = json.RawMessage(`{}`)
	}
	execCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	res, err := tool.Execute(execCtx, args)
	if err != nil {
		s.metrics.RecordToolCall(p.Name, "error")
		return nil, mcperrors.NewInternal("Internal error", errors.Wrapf(err, "tool %q failed", p.Name)).
			WithContext("tool", p.Name)
	}
	if res == nil {
		s.metrics.RecordToolCall(p.Name, "error")
		return nil, mcperrors.NewInternal("Internal error", errors.Newf("tool %q returned no result", p.Name))
	}

	out := protocol.CallToolResult{Content: []protocol.ContentBlock{protocol.TextContent(res.Text())}}
	if res.Success {
		s.metrics.RecordToolCall(p.Name, "success")
	} else {
		out.IsError = true
		s.metrics.RecordToolCall(p.Name, "failure")
		s.logger.Debug("Tool reported failure.", "tool", p.Name, "error", res.Text())
	}
	return json.Marshal(out)
}

func invalidArguments(tool string, err error) error {
	var valErr *schema.ValidationError
	if !errors.As(err, &valErr) {
		return mcperrors.NewInvalidParams("Invalid params: "+err.Error(), err)
	}
	out := mcperrors.NewInvalidParams(fmt.Sprintf("Invalid params: arguments for %s: %s", tool, valErr.Message), err).
		WithContext("tool", tool)
	for k, v := range valErr.Details() {
		out = out.WithContext(k, v)
	}
	return out
}

func (s *Server) handleResourcesList(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
	result := protocol.ListResourcesResult{Resources: []protocol.ResourceDefinition{}}
	if s.store == nil {
		return json.Marshal(result)
	}
	entries, err := s.store.List(ctx, memory.Filter{Limit: MaxListedResources})
	if err != nil {
		return nil, mcperrors.NewInternal("Internal error", errors.Wrap(err, "failed to list memory entries"))
	}
	for _, e := range entries {
		size := int64(len(e.Content))
		result.Resources = append(result.Resources, protocol.ResourceDefinition{
			URI:         MemoryScheme + e.Key,
			Name:        e.Key,
			Description: e.Category + " - " + e.ID,
			MimeType:    textMimeType,
			Size:        &size,
		})
	}
	return json.Marshal(result)
}

func (s *Server) handleResourcesRead(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	if !hasParams(params) {
		return nil, mcperrors.NewInvalidParams("Invalid params: missing resources/read params", nil)
	}
	var p protocol.ReadResourceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, mcperrors.NewInvalidParams("Invalid params: malformed resources/read params", err)
	}
	if p.URI == "" {
		return nil, mcperrors.NewInvalidParams("Invalid params: missing uri", nil)
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("mcp.resource_uri", p.URI))

	if !strings.HasPrefix(p.URI, MemoryScheme) {
		return nil, mcperrors.NewResourceNotFound("Unknown resource URI scheme", p.URI)
	}
	key := strings.TrimPrefix(p.URI, MemoryScheme)
	if s.store == nil || key == "" {
		return nil, mcperrors.NewResourceNotFound("Memory entry not found", p.URI)
	}
	entry, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, mcperrors.NewInternal("Internal error", errors.Wrapf(err, "failed to read memory entry %q", key))
	}
	if entry == nil {
		return nil, mcperrors.NewResourceNotFound("Memory entry not found", p.URI)
	}
	return json.Marshal(protocol.ReadResourceResult{Contents: []protocol.ResourceContents{{
		URI:      p.URI,
		MimeType: textMimeType,
		Text:     entry.Content,
	}}})
}

func hasParams(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
