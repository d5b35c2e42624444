package registry

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/voice-tool-router/internal/errors"
	"github.com/wagiedev/voice-tool-router/internal/message"
)

// Handler is the function signature tools are registered with.
// It is the MCP SDK's low-level tool handler.
type Handler = mcp.ToolHandler

// entry holds tool metadata and handler.
type entry struct {
	desc    message.ToolDescriptor
	handler Handler
}

// Registry maps tool names to their descriptor and handler.
//
// Listing follows registration order. Re-registering a name replaces the
// descriptor and handler together but keeps the original position.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]*entry, 16),
		order:   make([]string, 0, 16),
	}
}

// Register inserts or replaces the tool named desc.Name.
func (r *Registry) Register(desc message.ToolDescriptor, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.Name]; !exists {
		r.order = append(r.order, desc.Name)
	}

	r.entries[desc.Name] = &entry{
		desc:    desc,
		handler: handler,
	}
}

// Unregister removes the named tool. Unknown names are ignored.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; !exists {
		return
	}

	delete(r.entries, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
}

// Clear removes every tool.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.entries)
	r.order = r.order[:0]
}

// ListTools returns the descriptors of all registered tools in registration order.
func (r *Registry) ListTools() []message.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]message.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].desc)
	}

	return out
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[name]

	return ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Invoke runs the named tool's handler with the given arguments.
//
// Returns *errors.ToolNotFoundError if no tool is registered under name.
// Handler errors are returned unchanged.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	r.mu.RLock()
	e, exists := r.entries[name]
	r.mu.RUnlock()

	if !exists {
		return nil, &errors.ToolNotFoundError{Name: name}
	}

	var raw json.RawMessage
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, &errors.ProtocolError{Message: "encode arguments for " + name, Err: err}
		}

		raw = data
	}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      name,
			Arguments: raw,
		},
	}

	return e.handler(ctx, req)
}

// Func is a handler written against the router's own envelope types.
type Func func(ctx context.Context, req message.ToolCallRequest) (message.ToolCallResponse, error)

// Adapt converts a Func into a Handler.
func Adapt(fn Func) Handler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := message.ParseArguments(req)
		if err != nil {
			return nil, err
		}

		name := ""
		if req != nil && req.Params != nil {
			name = req.Params.Name
		}

		resp, err := fn(ctx, message.ToolCallRequest{Name: name, Arguments: args})
		if err != nil {
			return nil, err
		}

		return message.ToCallToolResult(resp), nil
	}
}
