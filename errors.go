package toolrouter

import (
	stderrors "errors"

	"github.com/wagiedev/voice-tool-router/internal/errors"
)

// Re-export error types from internal package

// RouterError is the base interface for all router errors.
type RouterError = errors.RouterError

// ConnectionError indicates the transport to a tool server could not be established.
type ConnectionError = errors.ConnectionError

// InitializationError indicates the initialize handshake failed.
type InitializationError = errors.InitializationError

// ToolNotFoundError indicates a call named a tool nobody registered.
type ToolNotFoundError = errors.ToolNotFoundError

// ProtocolError indicates malformed data crossed the protocol boundary.
type ProtocolError = errors.ProtocolError

// InternalError indicates a bug or a recovered panic inside the router.
type InternalError = errors.InternalError

// ToolExecutionError wraps a failure reported by a tool handler.
type ToolExecutionError = errors.ToolExecutionError

// RoutingError is returned when no execution path produced a result.
type RoutingError = errors.RoutingError

// Re-export sentinel errors from internal package.
var (
	// ErrNotConnected indicates the client is not ready.
	ErrNotConnected = errors.ErrNotConnected

	// ErrAlreadyConnected indicates a connect attempt while connecting or ready.
	ErrAlreadyConnected = errors.ErrAlreadyConnected

	// ErrInvalidResponse indicates a malformed response.
	ErrInvalidResponse = errors.ErrInvalidResponse

	// ErrNoLegacyPath indicates the legacy path was needed but none is configured.
	ErrNoLegacyPath = errors.ErrNoLegacyPath

	// ErrRouterClosed indicates the router was used after Close.
	ErrRouterClosed = stderrors.New("router closed")
)
