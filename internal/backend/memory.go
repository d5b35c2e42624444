package backend

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServeInMemory exposes local over an in-memory MCP transport pair and
// returns a client Session connected to it. The server side ends when the
// session is closed.
func ServeInMemory(ctx context.Context, impl *mcp.Implementation, local *Local) (*Session, error) {
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	if _, err := local.MCPServer().Connect(ctx, serverTransport, nil); err != nil {
		return nil, fmt.Errorf("start in-memory server %s: %w", local.name, err)
	}

	return ConnectSession(ctx, impl, clientTransport)
}
