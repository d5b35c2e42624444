package toolrouter

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/voice-tool-router/internal/backend"
	"github.com/wagiedev/voice-tool-router/internal/message"
)

// Tool pairs a descriptor with its implementation.
type Tool struct {
	Descriptor ToolDescriptor
	Func       ToolFunc
}

// NewTool creates a tool. A nil schema accepts any object.
//
//	weather := toolrouter.NewTool("get_weather", "Current weather for a city",
//	    toolrouter.SimpleSchema(map[string]string{"city": "string"}),
//	    func(ctx context.Context, req toolrouter.ToolCallRequest) (toolrouter.ToolCallResponse, error) {
//	        city := req.Args().Field("city").StringOr("")
//	        return toolrouter.TextResponse("12°C in " + city), nil
//	    },
//	)
func NewTool(name, description string, inputSchema *Schema, fn ToolFunc) Tool {
	return Tool{
		Descriptor: message.NewToolDescriptor(name, description, inputSchema),
		Func:       fn,
	}
}

// NewServer creates an in-process tool server. Pass it to WithServers to
// route its tools without a transport, or to ServeInMemory to put a real
// protocol session in front of it.
func NewServer(name, version string, tools ...Tool) *backend.Local {
	srv := backend.NewLocal(name, version)
	for _, t := range tools {
		srv.AddFunc(t.Descriptor, t.Func)
	}

	return srv
}

// Version is reported to tool servers as the client implementation version.
const Version = "0.4.0"

// ClientImplementation identifies the router to the tool servers it connects to.
var ClientImplementation = &mcp.Implementation{Name: "voice-tool-router", Version: Version}

// ServeInMemory puts a real protocol session in front of srv over an
// in-memory transport. The returned server is mounted like any remote one.
func ServeInMemory(ctx context.Context, srv *backend.Local) (ToolServer, error) {
	return backend.ServeInMemory(ctx, ClientImplementation, srv)
}
