package toolrouter

import (
	"context"
	"fmt"
)

// WithRouter manages router lifecycle with automatic cleanup.
//
// It creates a router with the provided options, starts it, executes the
// callback, and closes the router when done. If Close fails, a warning is
// logged but does not override the callback's error.
//
//	err := toolrouter.WithRouter(ctx, func(r *toolrouter.Router) error {
//	    res, err := r.Call(ctx, "get_weather", map[string]any{"city": "Oslo"})
//	    if err != nil {
//	        return err
//	    }
//	    // use res.Response...
//	    return nil
//	},
//	    toolrouter.WithLogger(log),
//	    toolrouter.WithServers(weather),
//	)
func WithRouter(ctx context.Context, fn func(*Router) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	router := New(opts...)

	defer func() {
		if closeErr := router.Close(); closeErr != nil {
			log.Warn("failed to close router", "error", closeErr)
		}
	}()

	if err := router.Start(ctx); err != nil {
		return fmt.Errorf("failed to start router: %w", err)
	}

	return fn(router)
}
