package backend

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerType represents the transport used to reach a tool server.
type ServerType string

const (
	// ServerTypeStdio runs the server as a child process over stdin/stdout.
	ServerTypeStdio ServerType = "stdio"
	// ServerTypeSSE uses Server-Sent Events.
	ServerTypeSSE ServerType = "sse"
	// ServerTypeHTTP uses the streamable HTTP transport.
	ServerTypeHTTP ServerType = "http"
)

// ServerConfig describes how to reach an external tool server.
type ServerConfig interface {
	GetType() ServerType
	// Transport builds a fresh transport for one connection.
	Transport() (mcp.Transport, error)
}

// Compile-time verification that all server config types implement ServerConfig.
var (
	_ ServerConfig = (*StdioServerConfig)(nil)
	_ ServerConfig = (*SSEServerConfig)(nil)
	_ ServerConfig = (*HTTPServerConfig)(nil)
)

// StdioServerConfig configures a child-process tool server.
type StdioServerConfig struct {
	Command string            `toml:"command" json:"command"`
	Args    []string          `toml:"args" json:"args,omitempty"`
	Env     map[string]string `toml:"env" json:"env,omitempty"`
}

// GetType implements ServerConfig.
func (c *StdioServerConfig) GetType() ServerType { return ServerTypeStdio }

// Transport implements ServerConfig.
func (c *StdioServerConfig) Transport() (mcp.Transport, error) {
	if c.Command == "" {
		return nil, fmt.Errorf("stdio server: command is required")
	}

	cmd := exec.Command(c.Command, c.Args...)

	if len(c.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range c.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	return &mcp.CommandTransport{Command: cmd}, nil
}

// SSEServerConfig configures a Server-Sent Events tool server.
type SSEServerConfig struct {
	URL     string            `toml:"url" json:"url"`
	Headers map[string]string `toml:"headers" json:"headers,omitempty"`
}

// GetType implements ServerConfig.
func (c *SSEServerConfig) GetType() ServerType { return ServerTypeSSE }

// Transport implements ServerConfig.
func (c *SSEServerConfig) Transport() (mcp.Transport, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("sse server: url is required")
	}

	return &mcp.SSEClientTransport{Endpoint: c.URL, HTTPClient: httpClient(c.Headers)}, nil
}

// HTTPServerConfig configures a streamable HTTP tool server.
type HTTPServerConfig struct {
	URL     string            `toml:"url" json:"url"`
	Headers map[string]string `toml:"headers" json:"headers,omitempty"`
}

// GetType implements ServerConfig.
func (c *HTTPServerConfig) GetType() ServerType { return ServerTypeHTTP }

// Transport implements ServerConfig.
func (c *HTTPServerConfig) Transport() (mcp.Transport, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("http server: url is required")
	}

	return &mcp.StreamableClientTransport{Endpoint: c.URL, HTTPClient: httpClient(c.Headers)}, nil
}

// Dial connects to the server described by cfg.
func Dial(ctx context.Context, impl *mcp.Implementation, cfg ServerConfig) (*Session, error) {
	transport, err := cfg.Transport()
	if err != nil {
		return nil, err
	}

	return ConnectSession(ctx, impl, transport)
}

// httpClient returns a client adding headers to every request, or nil to
// use the SDK default.
func httpClient(headers map[string]string) *http.Client {
	if len(headers) == 0 {
		return nil
	}

	return &http.Client{Transport: &headerTransport{headers: headers, base: http.DefaultTransport}}
}

type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	return t.base.RoundTrip(req)
}
