package admin

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/wagiedev/voice-tool-router/internal/flags"
	"github.com/wagiedev/voice-tool-router/internal/message"
	"github.com/wagiedev/voice-tool-router/internal/protocol"
)

// Default throttle for mutating requests.
const (
	DefaultRateLimit = 5.0
	DefaultRateBurst = 10
)

// ToolLister reports the tools currently routable.
type ToolLister interface {
	ListTools(ctx context.Context) ([]message.ToolDescriptor, error)
}

// StateFunc reports the protocol client's connection state.
type StateFunc func() protocol.ConnectionState

type options struct {
	tools     ToolLister
	state     StateFunc
	rateLimit float64
	rateBurst int
}

// Option configures the admin router.
type Option func(*options)

// WithTools exposes the routable tool list on GET /tools.
func WithTools(tools ToolLister) Option {
	return func(o *options) {
		o.tools = tools
	}
}

// WithConnectionState reports the client connection on /health and /status.
func WithConnectionState(fn StateFunc) Option {
	return func(o *options) {
		o.state = fn
	}
}

// WithRateLimit throttles mutating requests. Non-positive values keep the
// defaults.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *options) {
		if perSecond > 0 {
			o.rateLimit = perSecond
		}

		if burst > 0 {
			o.rateBurst = burst
		}
	}
}

// NewRouter builds the admin HTTP handler around engine.
func NewRouter(log *slog.Logger, engine *flags.Engine, opts ...Option) http.Handler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	log = log.With("component", "admin")

	o := &options{rateLimit: DefaultRateLimit, rateBurst: DefaultRateBurst}
	for _, opt := range opts {
		opt(o)
	}

	h := &handler{log: log, engine: engine, tools: o.tools, state: o.state}
	limiter := rate.NewLimiter(rate.Limit(o.rateLimit), o.rateBurst)

	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recovery(log))

	r.Get("/health", h.health)
	r.Get("/status", h.status)
	r.Get("/tools", h.listTools)
	r.Get("/executions/{path}", h.executions)
	r.Get("/events", h.events)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(limiter))

		r.Put("/state", h.setState)
		r.Post("/rollback", h.rollback)
		r.Post("/counters/{tool}/reset", h.resetCounters)

		r.Route("/categories", func(r chi.Router) {
			r.Post("/enable-all", h.enableAll)
			r.Post("/disable-all", h.disableAll)
			r.Post("/{category}/enable", h.enableCategory)
			r.Post("/{category}/disable", h.disableCategory)
		})
	})

	return r
}
