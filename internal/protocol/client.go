package protocol

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/voice-tool-router/internal/errors"
	"github.com/wagiedev/voice-tool-router/internal/message"
	"github.com/wagiedev/voice-tool-router/internal/registry"
)

// Observer is notified of every state transition, in order, before the call
// that triggered it returns. Observers may read client state but must not
// call Connect or Disconnect.
type Observer func(prev, next ConnectionState)

// ErrorObserver is notified of connection and tool execution failures.
type ErrorObserver func(err error)

// Client owns a connection state machine and dispatches tool calls to its
// registry once the connection is ready.
//
// The zero value is not usable; create clients with NewClient.
type Client struct {
	log        *slog.Logger
	registry   *registry.Registry
	handshaker Handshaker

	// opMu serializes Connect and Disconnect so transitions never interleave.
	opMu sync.Mutex

	stateMu    sync.RWMutex
	state      ConnectionState
	initResult *InitializeResult

	obsMu          sync.RWMutex
	observers      map[int]Observer
	errorObservers map[int]ErrorObserver
	nextObserverID int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHandshaker replaces the default in-process handshake.
func WithHandshaker(h Handshaker) ClientOption {
	return func(c *Client) {
		c.handshaker = h
	}
}

// WithRegistry uses reg instead of a fresh registry.
func WithRegistry(reg *registry.Registry) ClientOption {
	return func(c *Client) {
		c.registry = reg
	}
}

// NewClient creates a disconnected client.
// A nil logger disables logging.
func NewClient(log *slog.Logger, opts ...ClientOption) *Client {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Client{
		log:            log.With("component", "protocol_client"),
		state:          Disconnected,
		observers:      make(map[int]Observer, 4),
		errorObservers: make(map[int]ErrorObserver, 4),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.registry == nil {
		c.registry = registry.New()
	}

	if c.handshaker == nil {
		c.handshaker = &InProcessHandshaker{Name: "in-process", Version: "1.0.0"}
	}

	return c
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	return c.state
}

// InitializeResult returns what the last successful handshake captured,
// or nil when the client is not ready.
func (c *Client) InitializeResult() *InitializeResult {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	if c.initResult == nil {
		return nil
	}

	res := *c.initResult

	return &res
}

// Capabilities returns the negotiated server capabilities.
// The zero value is returned when the client is not ready.
func (c *Client) Capabilities() ServerCapabilities {
	if res := c.InitializeResult(); res != nil {
		return res.Capabilities
	}

	return ServerCapabilities{}
}

// Observe registers a state observer and returns a function that removes it.
func (c *Client) Observe(fn Observer) (unsubscribe func()) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()

	id := c.nextObserverID
	c.nextObserverID++
	c.observers[id] = fn

	return func() {
		c.obsMu.Lock()
		defer c.obsMu.Unlock()

		delete(c.observers, id)
	}
}

// OnError registers an error observer and returns a function that removes it.
func (c *Client) OnError(fn ErrorObserver) (unsubscribe func()) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()

	id := c.nextObserverID
	c.nextObserverID++
	c.errorObservers[id] = fn

	return func() {
		c.obsMu.Lock()
		defer c.obsMu.Unlock()

		delete(c.errorObservers, id)
	}
}

// transition moves to next and notifies observers synchronously.
// Caller must hold opMu.
func (c *Client) transition(next ConnectionState) {
	c.stateMu.Lock()
	prev := c.state

	if !ValidTransition(prev, next) {
		c.stateMu.Unlock()
		c.log.Error("Rejected invalid state transition", "from", prev.String(), "to", next.String())

		return
	}

	c.state = next
	c.stateMu.Unlock()

	c.log.Debug("Connection state changed", "from", prev.String(), "to", next.String())

	c.obsMu.RLock()
	observers := sortedObservers(c.observers)
	c.obsMu.RUnlock()

	for _, fn := range observers {
		fn(prev, next)
	}
}

func (c *Client) reportError(err error) {
	c.obsMu.RLock()
	observers := sortedObservers(c.errorObservers)
	c.obsMu.RUnlock()

	for _, fn := range observers {
		fn(err)
	}
}

// sortedObservers returns the observers in registration order.
func sortedObservers[F any](m map[int]F) []F {
	maxID := -1
	for id := range m {
		maxID = max(maxID, id)
	}

	out := make([]F, 0, len(m))
	for id := 0; id <= maxID; id++ {
		if fn, ok := m[id]; ok {
			out = append(out, fn)
		}
	}

	return out
}

// Connect establishes the connection and performs the initialization handshake.
//
// Valid from Disconnected or Error; returns errors.ErrAlreadyConnected
// otherwise. On failure the client moves to the Error state and the returned
// error is *errors.ConnectionError (transport) or *errors.InitializationError
// (handshake).
func (c *Client) Connect(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	switch c.State().Kind {
	case KindDisconnected, KindError:
	default:
		return errors.ErrAlreadyConnected
	}

	c.transition(Connecting)

	if dialer, ok := c.handshaker.(Dialer); ok {
		if err := dialer.Dial(ctx); err != nil {
			connErr := &errors.ConnectionError{Err: err}
			c.fail(connErr)

			return connErr
		}

		c.transition(Connected)
	}

	c.transition(Initializing)

	res, err := c.handshaker.Initialize(ctx, c.registry.ListTools())
	if err == nil && res == nil {
		err = fmt.Errorf("handshake returned no result")
	}

	if err != nil {
		initErr := &errors.InitializationError{Err: err}
		c.closeHandshaker()
		c.fail(initErr)

		return initErr
	}

	c.stateMu.Lock()
	c.initResult = res
	c.stateMu.Unlock()

	c.transition(Ready)
	c.log.Info("Client ready",
		"server", res.ServerInfo.Name,
		"protocol_version", res.ProtocolVersion,
		"tools", c.registry.Len(),
	)

	return nil
}

// fail moves to the Error state and notifies error observers.
// Caller must hold opMu.
func (c *Client) fail(err error) {
	c.log.Warn("Connection failed", "error", err)
	c.transition(ErrorState(err.Error()))
	c.reportError(err)
}

func (c *Client) closeHandshaker() {
	closer, ok := c.handshaker.(Closer)
	if !ok {
		return
	}

	if err := closer.Close(); err != nil {
		c.log.Debug("Closing handshaker transport failed", "error", err)
	}
}

// Disconnect removes every registered tool and moves to Disconnected.
// Calling it on a disconnected client is a no-op.
func (c *Client) Disconnect() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.registry.Clear()
	c.closeHandshaker()

	c.stateMu.Lock()
	c.initResult = nil
	already := c.state.Kind == KindDisconnected
	c.stateMu.Unlock()

	if already {
		return
	}

	c.transition(Disconnected)
}

// RegisterTool adds or replaces a tool. Tools may be registered in any state.
func (c *Client) RegisterTool(desc message.ToolDescriptor, handler registry.Handler) {
	c.registry.Register(desc, handler)
}

// UnregisterTool removes a tool if present.
func (c *Client) UnregisterTool(name string) {
	c.registry.Unregister(name)
}

// ListTools returns the registered tool descriptors.
// Returns errors.ErrNotConnected unless the client is ready.
func (c *Client) ListTools(_ context.Context) ([]message.ToolDescriptor, error) {
	if !c.State().IsReady() {
		return nil, errors.ErrNotConnected
	}

	return c.registry.ListTools(), nil
}

// CallTool runs the named tool.
//
// Structural failures are returned as errors without a response:
// errors.ErrNotConnected unless ready, *errors.ToolNotFoundError for unknown
// names. A failing handler yields an error response (IsError set) together
// with a *errors.ToolExecutionError, so the caller can either surface the
// response or act on the error.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (message.ToolCallResponse, error) {
	if !c.State().IsReady() {
		return message.ToolCallResponse{}, errors.ErrNotConnected
	}

	if !c.registry.Has(name) {
		return message.ToolCallResponse{}, &errors.ToolNotFoundError{Name: name}
	}

	result, err := c.invoke(ctx, name, message.SanitizeArguments(args))
	if err != nil {
		var notFound *errors.ToolNotFoundError
		if stderrors.As(err, &notFound) {
			return message.ToolCallResponse{}, err
		}

		execErr := &errors.ToolExecutionError{Tool: name, Err: err}
		c.log.Debug("Tool execution failed", "tool", name, "error", err)
		c.reportError(execErr)

		return message.ErrorResponse(err.Error()), execErr
	}

	return message.FromCallToolResult(result), nil
}

// invoke calls the registry, converting handler panics into errors.
func (c *Client) invoke(ctx context.Context, name string, args map[string]any) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &errors.InternalError{Message: fmt.Sprintf("handler for %s panicked: %v", name, r)}
		}
	}()

	return c.registry.Invoke(ctx, name, args)
}
