// Package mcprouter implements the in-process MCP router (spec.md §4.F): a
// pure JSON-RPC dispatch for tool-server modules declared with type "sdk"
// in mcp_servers, answered over the control protocol instead of a
// subprocess MCP server.
package mcprouter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/samsaffron/claude-agent-sdk-go/option"
)

const protocolVersion = "2024-11-05"

// jsonRPCError mirrors the standard JSON-RPC error object.
type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const errMethodNotFound = -32601

// Server is one in-process tool-server module, addressed by name.
type Server struct {
	Name  string
	Tools map[string]option.ToolDefinition
}

// NewServer indexes a server's tool list by name for dispatch.
func NewServer(name string, tools []option.ToolDefinition) *Server {
	idx := make(map[string]option.ToolDefinition, len(tools))
	for _, t := range tools {
		idx[t.Name] = t
	}
	return &Server{Name: name, Tools: idx}
}

// Router dispatches JSON-RPC requests to the declared sdk servers by name.
type Router struct {
	servers map[string]*Server
}

// NewRouter builds a router from the mcp_servers entries that are
// in-process ("sdk") tool sets.
func NewRouter(servers map[string]option.MCPServerConfig) *Router {
	r := &Router{servers: make(map[string]*Server)}
	for name, cfg := range servers {
		if cfg.IsSDK() {
			r.servers[name] = NewServer(name, cfg.Tools)
		}
	}
	return r
}

// rpcRequest is the generic envelope carried inside an mcp_message control
// request payload.
type rpcRequest struct {
	ID     any             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// rpcResponse mirrors JSON-RPC 2.0's result/error discriminated response.
type rpcResponse struct {
	ID     any           `json:"id,omitempty"`
	Result any           `json:"result,omitempty"`
	Error  *jsonRPCError `json:"error,omitempty"`
}

// Dispatch routes one JSON-RPC request addressed to serverName and returns
// the JSON-RPC response object (never an error itself — protocol-level
// failures are rendered as a JSON-RPC error response per spec.md §4.F).
func (rt *Router) Dispatch(ctx context.Context, serverName string, raw json.RawMessage) rpcResponse {
	var req rpcRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return rpcResponse{Error: &jsonRPCError{Code: errMethodNotFound, Message: fmt.Sprintf("malformed request: %v", err)}}
	}

	srv, ok := rt.servers[serverName]
	if !ok {
		return rpcResponse{ID: req.ID, Error: &jsonRPCError{Code: errMethodNotFound, Message: fmt.Sprintf("unknown tool server %q", serverName)}}
	}

	switch req.Method {
	case "initialize":
		return rpcResponse{ID: req.ID, Result: map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": srv.Name, "version": "0.0.0"},
		}}
	case "notifications/initialized":
		return rpcResponse{ID: req.ID, Result: map[string]any{}}
	case "tools/list":
		return rpcResponse{ID: req.ID, Result: listTools(srv)}
	case "tools/call":
		return callTool(ctx, srv, req)
	default:
		return rpcResponse{ID: req.ID, Error: &jsonRPCError{Code: errMethodNotFound, Message: fmt.Sprintf("unknown method %q", req.Method)}}
	}
}

// listTools builds the tools/list result using the MCP SDK's own Tool and
// jsonschema.Schema shapes, so the wire JSON matches what a subprocess MCP
// server built on the same SDK would emit.
func listTools(srv *Server) *mcp.ListToolsResult {
	out := make([]*mcp.Tool, 0, len(srv.Tools))
	for _, t := range srv.Tools {
		out = append(out, &mcp.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return &mcp.ListToolsResult{Tools: out}
}

func callTool(ctx context.Context, srv *Server, req rpcRequest) rpcResponse {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return rpcResponse{ID: req.ID, Error: &jsonRPCError{Code: errMethodNotFound, Message: fmt.Sprintf("malformed tools/call params: %v", err)}}
	}
	tool, ok := srv.Tools[params.Name]
	if !ok {
		return rpcResponse{ID: req.ID, Error: &jsonRPCError{Code: errMethodNotFound, Message: fmt.Sprintf("unknown tool %q", params.Name)}}
	}

	result := invokeTool(ctx, tool, params.Arguments)
	return rpcResponse{ID: req.ID, Result: result}
}

// invokeTool calls the handler with exception containment; a panic or
// returned error becomes an error-content result, never a crash
// (spec.md §4.F: "Tool exceptions are caught and rendered as error
// content, never propagated").
func invokeTool(ctx context.Context, tool option.ToolDefinition, args json.RawMessage) (result *mcp.CallToolResult) {
	defer func() {
		if p := recover(); p != nil {
			result = errorContent(fmt.Sprintf("tool %q panicked: %v", tool.Name, p))
		}
	}()
	res, callErr := tool.Handler(ctx, args)
	if callErr != nil {
		return errorContent(callErr.Error())
	}
	if res.IsError {
		return errorContent(res.Text)
	}
	if res.Structured != nil {
		return &mcp.CallToolResult{StructuredContent: res.Structured}
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: res.Text}}}
}

func errorContent(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}
}
