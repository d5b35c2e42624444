package backend

import (
	"context"

	"github.com/wagiedev/voice-tool-router/internal/message"
)

// Info identifies a tool server.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolServer is the contract every tool backend exposes to the router.
// The router never inspects a server beyond this interface; arguments are
// passed through opaquely.
type ToolServer interface {
	// ListTools returns the server's tools in a stable order.
	ListTools(ctx context.Context) ([]message.ToolDescriptor, error)
	// CallTool runs a tool. Tool failures are reported as responses with
	// IsError set; the error return is reserved for structural failures.
	CallTool(ctx context.Context, req message.ToolCallRequest) (message.ToolCallResponse, error)
	// ServerInfo identifies the server.
	ServerInfo() Info
	// Capabilities describes what the server supports.
	Capabilities() map[string]any
}

// Compile-time verification of ToolServer implementations.
var (
	_ ToolServer = (*Local)(nil)
	_ ToolServer = (*Session)(nil)
)
