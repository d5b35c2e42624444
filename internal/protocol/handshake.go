package protocol

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/voice-tool-router/internal/message"
)

// LatestProtocolVersion is the protocol revision reported by the in-process handshake.
const LatestProtocolVersion = "2025-06-18"

// ServerInfo identifies the server side of a connection.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerCapabilities lists the feature families a server supports.
type ServerCapabilities struct {
	Tools            bool           `json:"tools"`
	ToolsListChanged bool           `json:"toolsListChanged,omitempty"`
	Resources        bool           `json:"resources,omitempty"`
	Prompts          bool           `json:"prompts,omitempty"`
	Logging          bool           `json:"logging,omitempty"`
	Experimental     map[string]any `json:"experimental,omitempty"`
}

// InitializeResult is what the handshake captured from the server.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	Instructions    string             `json:"instructions,omitempty"`
}

// Handshaker performs the initialization exchange of a connection.
type Handshaker interface {
	// Initialize negotiates capabilities. tools is the client's current tool
	// set, which in-process handshakers advertise back as the server's.
	Initialize(ctx context.Context, tools []message.ToolDescriptor) (*InitializeResult, error)
}

// Dialer is implemented by handshakers that must establish a transport before
// initializing. The client reports the Connected state after a successful Dial.
type Dialer interface {
	Dial(ctx context.Context) error
}

// Closer is implemented by handshakers holding a transport that must be
// released on disconnect.
type Closer interface {
	Close() error
}

// Compile-time verification of handshaker implementations.
var (
	_ Handshaker = (*InProcessHandshaker)(nil)
	_ Handshaker = (*SessionHandshaker)(nil)
	_ Dialer     = (*SessionHandshaker)(nil)
	_ Closer     = (*SessionHandshaker)(nil)
)

// InProcessHandshaker completes the handshake synthetically, without any
// network round-trip.
type InProcessHandshaker struct {
	Name    string
	Version string
}

// Initialize implements Handshaker.
func (h *InProcessHandshaker) Initialize(ctx context.Context, tools []message.ToolDescriptor) (*InitializeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &InitializeResult{
		ProtocolVersion: LatestProtocolVersion,
		ServerInfo:      ServerInfo{Name: h.Name, Version: h.Version},
		Capabilities: ServerCapabilities{
			Tools:            true,
			ToolsListChanged: true,
			Experimental: map[string]any{
				"registeredTools": len(tools),
			},
		},
	}, nil
}

// TransportFactory returns a fresh transport for each connection attempt.
// Transports such as in-memory pipes cannot be reused after close.
type TransportFactory func(ctx context.Context) (mcp.Transport, error)

// SessionHandshaker performs a real MCP initialize exchange over a transport
// using the official SDK client, and captures the server's capabilities.
type SessionHandshaker struct {
	client       *mcp.Client
	newTransport TransportFactory

	mu      sync.RWMutex
	session *mcp.ClientSession
}

// NewSessionHandshaker creates a handshaker that connects impl to the server
// reached through transports produced by newTransport.
func NewSessionHandshaker(impl *mcp.Implementation, newTransport TransportFactory) *SessionHandshaker {
	return &SessionHandshaker{
		client:       mcp.NewClient(impl, nil),
		newTransport: newTransport,
	}
}

// Dial implements Dialer. It opens the transport and runs the SDK's
// initialize exchange.
func (h *SessionHandshaker) Dial(ctx context.Context) error {
	transport, err := h.newTransport(ctx)
	if err != nil {
		return fmt.Errorf("create transport: %w", err)
	}

	session, err := h.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connect session: %w", err)
	}

	h.mu.Lock()
	h.session = session
	h.mu.Unlock()

	return nil
}

// Initialize implements Handshaker. It validates and converts the result the
// server returned during Dial.
func (h *SessionHandshaker) Initialize(_ context.Context, _ []message.ToolDescriptor) (*InitializeResult, error) {
	h.mu.RLock()
	session := h.session
	h.mu.RUnlock()

	if session == nil {
		return nil, fmt.Errorf("no session: dial first")
	}

	res := session.InitializeResult()
	if res == nil {
		return nil, fmt.Errorf("server returned no initialize result")
	}

	if res.Capabilities == nil || res.Capabilities.Tools == nil {
		return nil, fmt.Errorf("server does not advertise the tools capability")
	}

	out := &InitializeResult{
		ProtocolVersion: res.ProtocolVersion,
		Instructions:    res.Instructions,
		Capabilities: ServerCapabilities{
			Tools:            true,
			ToolsListChanged: res.Capabilities.Tools.ListChanged,
			Resources:        res.Capabilities.Resources != nil,
			Prompts:          res.Capabilities.Prompts != nil,
			Logging:          res.Capabilities.Logging != nil,
			Experimental:     maps.Clone(res.Capabilities.Experimental),
		},
	}

	if res.ServerInfo != nil {
		out.ServerInfo = ServerInfo{Name: res.ServerInfo.Name, Version: res.ServerInfo.Version}
	}

	return out, nil
}

// Session returns the live SDK session, or nil before Dial and after Close.
func (h *SessionHandshaker) Session() *mcp.ClientSession {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.session
}

// Close implements Closer.
func (h *SessionHandshaker) Close() error {
	h.mu.Lock()
	session := h.session
	h.session = nil
	h.mu.Unlock()

	if session == nil {
		return nil
	}

	return session.Close()
}
