package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/voice-tool-router/internal/message"
	"github.com/wagiedev/voice-tool-router/internal/registry"
)

// Registrar receives forwarding handlers. *protocol.Client satisfies it.
type Registrar interface {
	RegisterTool(desc message.ToolDescriptor, handler registry.Handler)
}

type discovered struct {
	server ToolServer
	tools  []message.ToolDescriptor
	err    error
}

// Mount lists every server's tools concurrently and registers a forwarding
// handler per tool with dst. Servers are registered in argument order, so
// when two servers expose the same tool name the later one wins and a warning
// is logged. A server that fails to list its tools is skipped and reported in
// the returned Status; Mount only fails if ctx is done.
func Mount(ctx context.Context, log *slog.Logger, dst Registrar, servers ...ToolServer) (Status, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	log = log.With("component", "backend_mount")
	results := make([]discovered, len(servers))

	g, gctx := errgroup.WithContext(ctx)

	for i, srv := range servers {
		g.Go(func() error {
			tools, err := srv.ListTools(gctx)
			results[i] = discovered{server: srv, tools: tools, err: err}

			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Status{}, fmt.Errorf("mount tool servers: %w", err)
	}

	var (
		status Status
		owners = make(map[string]string, 32)
	)

	for _, res := range results {
		info := res.server.ServerInfo()

		if res.err != nil {
			log.Warn("Failed to list tools", "server", info.Name, "error", res.err)
			status.Servers = append(status.Servers, ServerStatus{
				Name:   info.Name,
				Status: StatusFailed,
				Error:  res.err.Error(),
			})

			continue
		}

		names := make([]string, 0, len(res.tools))

		for _, desc := range res.tools {
			if prev, dup := owners[desc.Name]; dup {
				log.Warn("Tool exposed by several servers, last one wins",
					"tool", desc.Name,
					"previous", prev,
					"server", info.Name,
				)
			}

			owners[desc.Name] = info.Name
			dst.RegisterTool(desc, Forward(res.server))
			names = append(names, desc.Name)
		}

		log.Info("Mounted tool server", "server", info.Name, "version", info.Version, "tools", len(names))
		status.Servers = append(status.Servers, ServerStatus{
			Name:   info.Name,
			Status: StatusConnected,
			Tools:  names,
		})
	}

	return status, nil
}

// Forward returns a handler that passes calls through to srv.
func Forward(srv ToolServer) registry.Handler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := message.ParseArguments(req)
		if err != nil {
			return nil, err
		}

		name := ""
		if req != nil && req.Params != nil {
			name = req.Params.Name
		}

		resp, err := srv.CallTool(ctx, message.ToolCallRequest{Name: name, Arguments: args})
		if err != nil {
			return nil, err
		}

		return message.ToCallToolResult(resp), nil
	}
}

// Closer is implemented by servers holding a connection.
type Closer interface {
	Close() error
}

// CloseAll closes every server that holds a connection, in parallel, and
// returns the first error.
func CloseAll(servers ...ToolServer) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for _, srv := range servers {
		c, ok := srv.(Closer)
		if !ok {
			continue
		}

		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := c.Close(); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	return firstErr
}
