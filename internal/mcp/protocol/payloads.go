// file: internal/mcp/protocol/payloads.go
package protocol

import "encoding/json"

// LatestVersion is the MCP protocol revision spoken by toolwire.
const LatestVersion = "2024-11-05"

// Method names.
const (
	MethodInitialize             = "initialize"
	MethodPing                   = "ping"
	MethodToolsList              = "tools/list"
	MethodToolsCall              = "tools/call"
	MethodResourcesList          = "resources/list"
	MethodResourcesRead          = "resources/read"
	NotificationInitialized      = "notifications/initialized"
	NotificationInitializedShort = "initialized"
	NotificationCancelled        = "notifications/cancelled"
	NotificationToolsChanged     = "notifications/tools/list_changed"
	NotificationResourcesChanged = "notifications/resources/list_changed"
)

// Implementation identifies a client or server.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ListChangedCapability flags support for list-change notifications.
type ListChangedCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourcesCapability describes a server's resource support.
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// ServerCapabilities are the features a server advertises during initialize.
type ServerCapabilities struct {
	Tools     *ListChangedCapability `json:"tools,omitempty"`
	Resources *ResourcesCapability   `json:"resources,omitempty"`
	Logging   *struct{}              `json:"logging,omitempty"`
}

// SupportsTools reports whether the server offers tools.
func (c *ServerCapabilities) SupportsTools() bool { return c != nil && c.Tools != nil }

// SupportsResources reports whether the server offers resources.
func (c *ServerCapabilities) SupportsResources() bool { return c != nil && c.Resources != nil }

// ClientCapabilities are the features a client declares during initialize.
type ClientCapabilities struct {
	Roots    *ListChangedCapability `json:"roots,omitempty"`
	Sampling *struct{}              `json:"sampling,omitempty"`
}

// InitializeParams is sent by the client to open a session.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// InitializeResult is the server's answer to initialize.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// PaginatedParams carries an opaque continuation cursor.
type PaginatedParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ToolDefinition describes one invocable tool.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ListToolsResult is the result of tools/list.
type ListToolsResult struct {
	Tools      []ToolDefinition `json:"tools"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// CallToolParams is the params of tools/call.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ContentBlock is one element of a tool result.
type ContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// TextContent returns a text content block.
func TextContent(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// CallToolResult is the result of tools/call. IsError marks a tool-level failure,
// which is distinct from a protocol error response.
type CallToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// Text concatenates the text blocks of the result.
func (r *CallToolResult) Text() string {
	var out string
	for _, c := range r.Content {
		if c.Type == "text" {
			out += c.Text
		}
	}
	return out
}

// ResourceDefinition describes one readable resource.
type ResourceDefinition struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Size        *int64 `json:"size,omitempty"`
}

// ListResourcesResult is the result of resources/list.
type ListResourcesResult struct {
	Resources  []ResourceDefinition `json:"resources"`
	NextCursor string               `json:"nextCursor,omitempty"`
}

// ReadResourceParams is the params of resources/read.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ResourceContents is the body of a read resource.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// ReadResourceResult is the result of resources/read.
type ReadResourceResult struct {
	Contents []ResourceContents `json:"contents"`
}
