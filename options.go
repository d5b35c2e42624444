package toolrouter

import (
	"log/slog"
	"time"

	"github.com/wagiedev/voice-tool-router/internal/protocol"
	"github.com/wagiedev/voice-tool-router/internal/store"
)

// Options holds the router configuration assembled from functional options.
type Options struct {
	// Logger receives router logs. Nil disables logging.
	Logger *slog.Logger

	// Store persists migration settings. Defaults to an in-memory store.
	Store store.Store

	// Legacy runs tools on the legacy path. Without it, routing a tool to
	// the legacy path fails with ErrNoLegacyPath.
	Legacy LegacyExecutor

	// Handshaker performs the protocol client's initialize handshake.
	// Defaults to the in-process handshake over the mounted tools.
	Handshaker protocol.Handshaker

	// Servers are mounted into the client on Start. Servers with a Close
	// method are closed by Router.Close.
	Servers []ToolServer

	// Tools are registered directly with the client on Start.
	Tools []Tool

	// Clock replaces time.Now for measured durations.
	Clock func() time.Time
}

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to a fresh Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for router output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithStore sets the settings store backing the migration engine.
func WithStore(st store.Store) Option {
	return func(o *Options) {
		o.Store = st
	}
}

// WithLegacyExecutor sets the legacy execution path.
func WithLegacyExecutor(legacy LegacyExecutor) Option {
	return func(o *Options) {
		o.Legacy = legacy
	}
}

// WithHandshaker replaces the protocol client's handshake.
func WithHandshaker(h protocol.Handshaker) Option {
	return func(o *Options) {
		o.Handshaker = h
	}
}

// WithServers adds tool servers to mount on Start. Later servers win when
// tool names collide.
func WithServers(servers ...ToolServer) Option {
	return func(o *Options) {
		o.Servers = append(o.Servers, servers...)
	}
}

// WithTools registers tools directly, after all servers are mounted.
func WithTools(tools ...Tool) Option {
	return func(o *Options) {
		o.Tools = append(o.Tools, tools...)
	}
}

// WithClock overrides the clock used to measure executions.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Clock = now
	}
}
