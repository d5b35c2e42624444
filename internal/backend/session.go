package backend

import (
	"context"
	"maps"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/voice-tool-router/internal/errors"
	"github.com/wagiedev/voice-tool-router/internal/message"
)

// Session is a ToolServer reached over an MCP client session.
type Session struct {
	session *mcp.ClientSession
}

// NewSession wraps an initialized SDK client session.
func NewSession(cs *mcp.ClientSession) *Session {
	return &Session{session: cs}
}

// ConnectSession connects a new SDK client named impl over transport and
// wraps the resulting session.
func ConnectSession(ctx context.Context, impl *mcp.Implementation, transport mcp.Transport) (*Session, error) {
	cs, err := mcp.NewClient(impl, nil).Connect(ctx, transport, nil)
	if err != nil {
		return nil, &errors.ConnectionError{Err: err}
	}

	return NewSession(cs), nil
}

// ClientSession returns the underlying SDK session.
func (s *Session) ClientSession() *mcp.ClientSession {
	return s.session
}

// ServerInfo implements ToolServer.
func (s *Session) ServerInfo() Info {
	res := s.session.InitializeResult()
	if res == nil || res.ServerInfo == nil {
		return Info{}
	}

	return Info{Name: res.ServerInfo.Name, Version: res.ServerInfo.Version}
}

// Capabilities implements ToolServer.
func (s *Session) Capabilities() map[string]any {
	caps := make(map[string]any, 4)

	res := s.session.InitializeResult()
	if res == nil || res.Capabilities == nil {
		return caps
	}

	if t := res.Capabilities.Tools; t != nil {
		caps["tools"] = map[string]any{"listChanged": t.ListChanged}
	}

	if res.Capabilities.Resources != nil {
		caps["resources"] = map[string]any{}
	}

	if res.Capabilities.Prompts != nil {
		caps["prompts"] = map[string]any{}
	}

	if res.Capabilities.Logging != nil {
		caps["logging"] = map[string]any{}
	}

	if len(res.Capabilities.Experimental) > 0 {
		caps["experimental"] = maps.Clone(res.Capabilities.Experimental)
	}

	return caps
}

// ListTools implements ToolServer, following pagination to the end.
func (s *Session) ListTools(ctx context.Context) ([]message.ToolDescriptor, error) {
	var out []message.ToolDescriptor

	for tool, err := range s.session.Tools(ctx, nil) {
		if err != nil {
			return nil, &errors.ProtocolError{Message: "list tools", Err: err}
		}

		desc, err := message.DescriptorFromTool(tool)
		if err != nil {
			return nil, err
		}

		out = append(out, desc)
	}

	return out, nil
}

// CallTool implements ToolServer.
func (s *Session) CallTool(ctx context.Context, req message.ToolCallRequest) (message.ToolCallResponse, error) {
	params := &mcp.CallToolParams{Name: req.Name}
	if args := message.SanitizeArguments(req.Arguments); args != nil {
		params.Arguments = args
	}

	result, err := s.session.CallTool(ctx, params)
	if err != nil {
		return message.ToolCallResponse{}, &errors.ProtocolError{Message: "call " + req.Name, Err: err}
	}

	return message.FromCallToolResult(result), nil
}

// Close ends the session.
func (s *Session) Close() error {
	return s.session.Close()
}
