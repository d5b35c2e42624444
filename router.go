package toolrouter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wagiedev/voice-tool-router/internal/backend"
	"github.com/wagiedev/voice-tool-router/internal/coordinator"
	"github.com/wagiedev/voice-tool-router/internal/flags"
	"github.com/wagiedev/voice-tool-router/internal/observability"
	"github.com/wagiedev/voice-tool-router/internal/protocol"
	"github.com/wagiedev/voice-tool-router/internal/registry"
	"github.com/wagiedev/voice-tool-router/internal/store"
)

var connectionKinds = []string{
	protocol.KindDisconnected.String(),
	protocol.KindConnecting.String(),
	protocol.KindConnected.String(),
	protocol.KindInitializing.String(),
	protocol.KindReady.String(),
	protocol.KindError.String(),
}

// Router wires the migration engine, the protocol client, the mounted tool
// servers and the coordinator into one unit.
//
// Lifecycle: New builds a disconnected router, Start mounts the servers and
// connects, Close disconnects and closes the servers. A closed router cannot
// be restarted.
type Router struct {
	log      *slog.Logger
	options  *Options
	registry *registry.Registry
	engine   *flags.Engine
	client   *protocol.Client
	coord    *coordinator.Coordinator

	mu        sync.Mutex
	started   bool
	closed    bool
	mounted   backend.Status
	unobserve func()
}

// New creates a disconnected router.
//
//	router := toolrouter.New(
//	    toolrouter.WithLogger(slog.Default()),
//	    toolrouter.WithServers(weather),
//	    toolrouter.WithLegacyExecutor(legacy),
//	)
//	if err := router.Start(ctx); err != nil {
//	    return err
//	}
//	defer router.Close()
//
//	res, err := router.Execute(ctx, toolrouter.ToolCallRequest{Name: "get_weather"})
func New(opts ...Option) *Router {
	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	st := options.Store
	if st == nil {
		st = store.NewMemory()
	}

	var engineOpts []flags.Option
	if options.Clock != nil {
		engineOpts = append(engineOpts, flags.WithClock(options.Clock))
	}

	reg := registry.New()

	clientOpts := []protocol.ClientOption{protocol.WithRegistry(reg)}
	if options.Handshaker != nil {
		clientOpts = append(clientOpts, protocol.WithHandshaker(options.Handshaker))
	}

	engine := flags.New(log, st, engineOpts...)
	client := protocol.NewClient(log, clientOpts...)

	coordOpts := []coordinator.Option{}
	if options.Legacy != nil {
		coordOpts = append(coordOpts, coordinator.WithLegacyExecutor(options.Legacy))
	}

	if options.Clock != nil {
		coordOpts = append(coordOpts, coordinator.WithClock(options.Clock))
	}

	r := &Router{
		log:      log.With("component", "router"),
		options:  options,
		registry: reg,
		engine:   engine,
		client:   client,
		coord:    coordinator.New(log, engine, client, coordOpts...),
	}

	observability.SetActive(observability.ConnectionState, client.State().Kind.String(), connectionKinds...)
	r.unobserve = client.Observe(func(_, next protocol.ConnectionState) {
		observability.SetActive(observability.ConnectionState, next.Kind.String(), connectionKinds...)
		observability.RegisteredTools.Set(float64(reg.Len()))
	})

	return r
}

// Start mounts the configured servers and tools, then connects the client.
// Servers that fail discovery are reported by Mounted and do not fail Start.
func (r *Router) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRouterClosed
	}

	if r.started {
		return ErrAlreadyConnected
	}

	status, err := backend.Mount(ctx, r.log, r.client, r.options.Servers...)
	if err != nil {
		return fmt.Errorf("mount tool servers: %w", err)
	}

	for _, failed := range status.Failed() {
		r.log.Warn("Tool server unavailable", "server", failed.Name, "error", failed.Error)
	}

	for _, t := range r.options.Tools {
		r.client.RegisterTool(t.Descriptor, registry.Adapt(t.Func))
	}

	if err := r.client.Connect(ctx); err != nil {
		return err
	}

	r.mounted = status
	r.started = true

	r.log.Info("Router started",
		"tools", r.registry.Len(),
		"servers", len(status.Servers),
		"state", r.engine.State(),
	)

	return nil
}

// Execute routes one tool call.
func (r *Router) Execute(ctx context.Context, req ToolCallRequest) (Result, error) {
	return r.coord.Execute(ctx, req)
}

// Call is Execute for a name and arguments.
func (r *Router) Call(ctx context.Context, name string, args map[string]any) (Result, error) {
	return r.Execute(ctx, ToolCallRequest{Name: name, Arguments: args})
}

// ListTools returns the tools routable on the new path.
func (r *Router) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	return r.client.ListTools(ctx)
}

// State returns the client connection state.
func (r *Router) State() ConnectionState {
	return r.client.State()
}

// Mounted reports the outcome of mounting each server on Start.
func (r *Router) Mounted() backend.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.mounted
}

// Engine exposes the migration engine for control and telemetry.
func (r *Router) Engine() *flags.Engine {
	return r.engine
}

// Client exposes the protocol client.
func (r *Router) Client() *protocol.Client {
	return r.client
}

// Close disconnects the client and closes the mounted servers.
// Safe to call multiple times.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	r.client.Disconnect()
	r.unobserve()

	return backend.CloseAll(r.options.Servers...)
}
