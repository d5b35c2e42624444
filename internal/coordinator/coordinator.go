// Package coordinator routes tool calls between the new protocol path and
// the legacy path according to the migration engine, and records every
// outcome back into it.
package coordinator

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wagiedev/voice-tool-router/internal/errors"
	"github.com/wagiedev/voice-tool-router/internal/message"
	"github.com/wagiedev/voice-tool-router/internal/observability"
)

// Router is the migration engine surface the coordinator depends on.
// *flags.Engine satisfies it.
type Router interface {
	ShouldUseNewPath(tool string) bool
	ShouldFallbackToLegacy(tool string, cause error) bool
	RecordExecution(tool string, usedNewPath bool, duration time.Duration, success bool, cause error)
}

// ToolCaller executes tools on the new path. *protocol.Client satisfies it.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (message.ToolCallResponse, error)
}

// LegacyExecutor runs a tool call on the legacy path.
type LegacyExecutor interface {
	Execute(ctx context.Context, req message.ToolCallRequest) (message.ToolCallResponse, error)
}

// LegacyFunc adapts a function to LegacyExecutor.
type LegacyFunc func(ctx context.Context, req message.ToolCallRequest) (message.ToolCallResponse, error)

// Execute implements LegacyExecutor.
func (f LegacyFunc) Execute(ctx context.Context, req message.ToolCallRequest) (message.ToolCallResponse, error) {
	return f(ctx, req)
}

// Result is the outcome of one routed tool call.
type Result struct {
	Response    message.ToolCallResponse
	UsedNewPath bool
	FellBack    bool
	Duration    time.Duration
}

// Coordinator asks the router for a decision, runs the call on the chosen
// path and falls back to legacy when the router allows it.
type Coordinator struct {
	log    *slog.Logger
	router Router
	client ToolCaller
	legacy LegacyExecutor
	now    func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLegacyExecutor sets the legacy path. Without one, calls that need the
// legacy path fail with errors.ErrNoLegacyPath.
func WithLegacyExecutor(legacy LegacyExecutor) Option {
	return func(c *Coordinator) {
		c.legacy = legacy
	}
}

// WithClock overrides the time source used to measure durations.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// New creates a coordinator. A nil logger disables logging.
func New(log *slog.Logger, router Router, client ToolCaller, opts ...Option) *Coordinator {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Coordinator{
		log:    log.With("component", "tool_coordinator"),
		router: router,
		client: client,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Execute routes req.
//
// A new-path attempt fails when it returns an error or an IsError response.
// The failure is recorded and, if the router allows, the call is retried on
// the legacy path. When no path succeeds the returned error is a
// *errors.RoutingError wrapping the last failure; the response of the last
// attempt is still returned in Result so callers can surface it.
func (c *Coordinator) Execute(ctx context.Context, req message.ToolCallRequest) (Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "coordinator.Execute",
		trace.WithAttributes(attribute.String("tool.name", req.Name)))
	defer span.End()

	start := c.now()
	res, err := c.execute(ctx, req)
	res.Duration = c.now().Sub(start)

	span.SetAttributes(
		attribute.Bool("tool.used_new_path", res.UsedNewPath),
		attribute.Bool("tool.fell_back", res.FellBack),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.RoutingFailuresTotal.Inc()
	}

	return res, err
}

func (c *Coordinator) execute(ctx context.Context, req message.ToolCallRequest) (Result, error) {
	if !c.router.ShouldUseNewPath(req.Name) {
		resp, err := c.runLegacy(ctx, req)
		if err != nil {
			return Result{Response: resp}, &errors.RoutingError{Tool: req.Name, Err: err}
		}

		return Result{Response: resp}, nil
	}

	resp, newErr := c.runNew(ctx, req)
	if newErr == nil {
		return Result{Response: resp, UsedNewPath: true}, nil
	}

	if !c.router.ShouldFallbackToLegacy(req.Name, newErr) {
		c.log.Warn("New path failed and fallback is not permitted", "tool", req.Name, "error", newErr)

		return Result{Response: resp, UsedNewPath: true}, &errors.RoutingError{Tool: req.Name, Err: newErr}
	}

	c.log.Info("Falling back to legacy path", "tool", req.Name, "error", newErr)
	observability.FallbacksTotal.Inc()

	legacyResp, legacyErr := c.runLegacy(ctx, req)
	if legacyErr != nil {
		return Result{Response: legacyResp, UsedNewPath: true, FellBack: true},
			&errors.RoutingError{Tool: req.Name, Err: stderrors.Join(newErr, legacyErr)}
	}

	return Result{Response: legacyResp, UsedNewPath: true, FellBack: true}, nil
}

// runNew calls the protocol client and records the outcome.
func (c *Coordinator) runNew(ctx context.Context, req message.ToolCallRequest) (message.ToolCallResponse, error) {
	ctx, span := observability.Tracer.Start(ctx, "coordinator.newPath")
	defer span.End()

	start := c.now()
	resp, err := c.client.CallTool(ctx, req.Name, req.Arguments)
	elapsed := c.now().Sub(start)

	if err == nil && resp.IsError {
		err = &errors.ToolExecutionError{Tool: req.Name, Err: fmt.Errorf("%s", resp.Text())}
	}

	c.router.RecordExecution(req.Name, true, elapsed, err == nil, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return resp, err
}

// runLegacy calls the legacy executor and records the outcome.
func (c *Coordinator) runLegacy(ctx context.Context, req message.ToolCallRequest) (message.ToolCallResponse, error) {
	if c.legacy == nil {
		return message.ToolCallResponse{}, errors.ErrNoLegacyPath
	}

	ctx, span := observability.Tracer.Start(ctx, "coordinator.legacyPath")
	defer span.End()

	start := c.now()
	resp, err := c.legacy.Execute(ctx, message.ToolCallRequest{
		Name:      req.Name,
		Arguments: message.SanitizeArguments(req.Arguments),
	})
	elapsed := c.now().Sub(start)

	if err == nil && resp.IsError {
		err = &errors.ToolExecutionError{Tool: req.Name, Err: fmt.Errorf("%s", resp.Text())}
	}

	c.router.RecordExecution(req.Name, false, elapsed, err == nil, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return resp, err
}
