package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	routererrors "github.com/wagiedev/voice-tool-router/internal/errors"
	"github.com/wagiedev/voice-tool-router/internal/message"
	"github.com/wagiedev/voice-tool-router/internal/registry"
)

// Local is an in-process tool server backed by its own registry.
//
// It can be mounted directly, or exposed over a real MCP transport with
// MCPServer so the same tools are reachable through the full protocol.
type Local struct {
	name     string
	version  string
	registry *registry.Registry
}

// NewLocal creates an empty in-process server.
func NewLocal(name, version string) *Local {
	return &Local{
		name:     name,
		version:  version,
		registry: registry.New(),
	}
}

// AddTool registers a tool with the server, replacing any tool of the same name.
func (s *Local) AddTool(desc message.ToolDescriptor, handler registry.Handler) {
	s.registry.Register(desc, handler)
}

// AddFunc registers a tool implemented against the router's envelope types.
func (s *Local) AddFunc(desc message.ToolDescriptor, fn registry.Func) {
	s.registry.Register(desc, registry.Adapt(fn))
}

// ServerInfo implements ToolServer.
func (s *Local) ServerInfo() Info {
	return Info{Name: s.name, Version: s.version}
}

// Capabilities implements ToolServer.
func (s *Local) Capabilities() map[string]any {
	return map[string]any{
		"tools": map[string]any{"listChanged": false},
	}
}

// ListTools implements ToolServer.
func (s *Local) ListTools(_ context.Context) ([]message.ToolDescriptor, error) {
	return s.registry.ListTools(), nil
}

// CallTool implements ToolServer. Unknown tools yield
// *errors.ToolNotFoundError; handler failures are encoded in the response.
func (s *Local) CallTool(ctx context.Context, req message.ToolCallRequest) (message.ToolCallResponse, error) {
	result, err := s.registry.Invoke(ctx, req.Name, message.SanitizeArguments(req.Arguments))
	if err != nil {
		var notFound *routererrors.ToolNotFoundError
		if errors.As(err, &notFound) {
			return message.ToolCallResponse{}, err
		}

		return message.ErrorResponse("Tool execution failed: " + err.Error()), nil
	}

	return message.FromCallToolResult(result), nil
}

// MCPServer builds an SDK server exposing every currently registered tool.
// Handler errors are converted into error results so they reach the caller
// as IsError responses rather than protocol errors.
func (s *Local) MCPServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: s.name, Version: s.version}, nil)

	for _, desc := range s.registry.ListTools() {
		name := desc.Name

		server.AddTool(message.ToolFromDescriptor(desc),
			func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				args, err := message.ParseArguments(req)
				if err != nil {
					return ErrorResult(err.Error()), nil
				}

				result, err := s.registry.Invoke(ctx, name, args)
				if err != nil {
					return ErrorResult(fmt.Sprintf("Tool execution failed: %v", err)), nil
				}

				return result, nil
			})
	}

	return server
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}
