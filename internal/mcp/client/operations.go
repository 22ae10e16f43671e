// file: internal/mcp/client/operations.go
package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/mcp/mcperrors"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
	"github.com/dkoosis/toolwire/internal/metrics"
	"github.com/dkoosis/toolwire/internal/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxPages bounds cursor pagination in the list operations.
const maxPages = 100

// ListTools returns every tool the server offers, following pagination.
func (c *Client) ListTools(ctx context.Context) ([]protocol.ToolDefinition, error) {
	var all []protocol.ToolDefinition
	cursor := ""
	for page := 0; page < maxPages; page++ {
		var result protocol.ListToolsResult
		if err := c.call(ctx, protocol.MethodToolsList, pageParams(cursor), &result); err != nil {
			return nil, err
		}
		all = append(all, result.Tools...)
		if result.NextCursor == "" || result.NextCursor == cursor {
			return all, nil
		}
		cursor = result.NextCursor
	}
	c.logger.Warn("Stopped following tools/list pagination.", "pages", maxPages)
	return all, nil
}

// CallTool invokes a tool. args may be nil, a json.RawMessage, or any value that
// marshals to a JSON object. A result with IsError set is returned without an error.
func (c *Client) CallTool(ctx context.Context, name string, args any) (*protocol.CallToolResult, error) {
	raw, err := toArguments(args)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid arguments for tool %q", name)
	}
	var result protocol.CallToolResult
	params := protocol.CallToolParams{Name: name, Arguments: raw}
	if err := c.call(ctx, protocol.MethodToolsCall, params, &result, attribute.String("mcp.tool", name)); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResources returns every resource the server offers, following pagination.
func (c *Client) ListResources(ctx context.Context) ([]protocol.ResourceDefinition, error) {
	var all []protocol.ResourceDefinition
	cursor := ""
	for page := 0; page < maxPages; page++ {
		var result protocol.ListResourcesResult
		if err := c.call(ctx, protocol.MethodResourcesList, pageParams(cursor), &result); err != nil {
			return nil, err
		}
		all = append(all, result.Resources...)
		if result.NextCursor == "" || result.NextCursor == cursor {
			return all, nil
		}
		cursor = result.NextCursor
	}
	c.logger.Warn("Stopped following resources/list pagination.", "pages", maxPages)
	return all, nil
}

// ReadResource reads the resource at uri.
func (c *Client) ReadResource(ctx context.Context, uri string) (*protocol.ReadResourceResult, error) {
	var result protocol.ReadResourceResult
	params := protocol.ReadResourceParams{URI: uri}
	if err := c.call(ctx, protocol.MethodResourcesRead, params, &result, attribute.String("mcp.resource_uri", uri)); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ping checks that the server is responsive.
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, protocol.MethodPing, nil, nil)
}

// call wraps one operation in a span and records its outcome.
func (c *Client) call(ctx context.Context, method string, params, out any, attrs ...attribute.KeyValue) error {
	ctx, span := c.tracer.Start(ctx, method, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs,
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", method),
			attribute.String("mcp.remote", c.cfg.Name),
		)...))
	defer span.End()

	start := time.Now()
	err := c.roundTrip(ctx, method, params, out)
	c.metrics.RecordRequest(metrics.RoleClient, method, outcomeOf(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if code, ok := mcperrors.CodeOf(err); ok {
			span.SetAttributes(attribute.Int("rpc.jsonrpc.error_code", code))
		}
	}
	return err
}

// roundTrip sends one request. A client that is not connected, or whose transport has
// already ended, runs one reconnect sequence first. A request that was written is never
// resent: the peer may already have acted on it.
func (c *Client) roundTrip(ctx context.Context, method string, params, out any) error {
	tr := c.active()
	if tr != nil && ended(tr) {
		c.markLost(tr, tr.Err())
		tr = nil
	}
	if tr == nil {
		c.logger.Debug("Not connected; reconnecting before request.", "method", method)
		if err := c.Reconnect(ctx); err != nil {
			return errors.Wrapf(err, "%s: not connected to %q", method, c.cfg.Name)
		}
		if tr = c.active(); tr == nil {
			return transport.NewClosedError(method, errors.New("connection lost after reconnect"))
		}
	}
	return c.sendOnce(ctx, tr, method, params, out)
}

func ended(tr transport.Transport) bool {
	select {
	case <-tr.Done():
		return true
	default:
		return false
	}
}

// sendOnce is send plus loss detection for the active transport.
func (c *Client) sendOnce(ctx context.Context, tr transport.Transport, method string, params, out any) error {
	err := c.send(ctx, tr, method, params, out)
	if transport.IsConnectionError(err) {
		c.markLost(tr, err)
	}
	return err
}

// send performs one request on tr under the per-request timeout.
func (c *Client) send(ctx context.Context, tr transport.Transport, method string, params, out any) error {
	req, err := protocol.NewRequest(protocol.NextID(), method, params)
	if err != nil {
		return err
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	resp, err := tr.Send(reqCtx, req)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return mcperrors.FromErrorObject(method, resp.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return transport.NewParseError(resp.Result, errors.Wrapf(err, "malformed %s result", method))
	}
	return nil
}

func pageParams(cursor string) any {
	if cursor == "" {
		return nil
	}
	return protocol.PaginatedParams{Cursor: cursor}
}

func toArguments(args any) (json.RawMessage, error) {
	switch a := args.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return a, nil
	case []byte:
		return json.RawMessage(a), nil
	default:
		b, err := json.Marshal(a)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return b, nil
	}
}
