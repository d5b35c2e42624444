package errors

import (
	"errors"
	"fmt"
)

// RouterError is the base interface for all tool-router errors.
type RouterError interface {
	error
	IsRouterError() bool
}

// Compile-time verification that all error types implement RouterError.
var (
	_ RouterError = (*ConnectionError)(nil)
	_ RouterError = (*InitializationError)(nil)
	_ RouterError = (*ToolNotFoundError)(nil)
	_ RouterError = (*ProtocolError)(nil)
	_ RouterError = (*InternalError)(nil)
	_ RouterError = (*ToolExecutionError)(nil)
	_ RouterError = (*RoutingError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotConnected indicates an operation was attempted while the client is not ready.
	ErrNotConnected = errors.New("client not connected")

	// ErrAlreadyConnected indicates connect was called on a client that is connecting or ready.
	ErrAlreadyConnected = errors.New("client already connected")

	// ErrInvalidResponse indicates malformed data crossed the protocol boundary.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrNoLegacyPath indicates the legacy path was selected but no legacy executor is configured.
	ErrNoLegacyPath = errors.New("no legacy execution path configured")
)

// ConnectionError indicates the transport could not be established.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsRouterError implements RouterError.
func (e *ConnectionError) IsRouterError() bool { return true }

// InitializationError indicates the initialization handshake did not complete.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialization failed: %v", e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// IsRouterError implements RouterError.
func (e *InitializationError) IsRouterError() bool { return true }

// ToolNotFoundError indicates no handler is registered under the requested name.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return "tool not found: " + e.Name
}

// IsRouterError implements RouterError.
func (e *ToolNotFoundError) IsRouterError() bool { return true }

// ProtocolError indicates a malformed message crossing the protocol boundary.
type ProtocolError struct {
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Message, e.Err)
	}

	return "protocol error: " + e.Message
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Is reports every ProtocolError as an ErrInvalidResponse.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrInvalidResponse
}

// IsRouterError implements RouterError.
func (e *ProtocolError) IsRouterError() bool { return true }

// InternalError is the catch-all for unexpected failures inside the router.
type InternalError struct {
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("internal error: %s: %v", e.Message, e.Err)
	}

	return "internal error: " + e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// IsRouterError implements RouterError.
func (e *InternalError) IsRouterError() bool { return true }

// ToolExecutionError wraps a failure returned (or panicked) by a tool handler.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// IsRouterError implements RouterError.
func (e *ToolExecutionError) IsRouterError() bool { return true }

// RoutingError indicates that no permitted execution path produced a result.
// This is the only routing failure meant to reach the end user.
type RoutingError struct {
	Tool string
	Err  error
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("no execution path succeeded for %s: %v", e.Tool, e.Err)
}

func (e *RoutingError) Unwrap() error {
	return e.Err
}

// IsRouterError implements RouterError.
func (e *RoutingError) IsRouterError() bool { return true }
