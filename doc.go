// Package toolrouter routes a voice assistant's tool calls between a new
// protocol-based execution path and a legacy one, under the control of a
// persisted migration engine.
//
// Tools are served by tool servers speaking the Model Context Protocol,
// either in-process or over a real transport. The router mounts their tools
// into a protocol client, and for every call asks the migration engine which
// path to use and whether a failed new-path call may fall back to legacy.
//
// # Basic Usage
//
//	weather := toolrouter.NewServer("weather", "1.0.0",
//	    toolrouter.NewTool("get_weather", "Current weather for a city",
//	        toolrouter.SimpleSchema(map[string]string{"city": "string"}),
//	        getWeather,
//	    ),
//	)
//
//	err := toolrouter.WithRouter(ctx, func(r *toolrouter.Router) error {
//	    res, err := r.Call(ctx, "get_weather", map[string]any{"city": "Oslo"})
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(res.UsedNewPath, res.Response.Content)
//	    return nil
//	},
//	    toolrouter.WithServers(weather),
//	    toolrouter.WithLegacyExecutor(toolrouter.LegacyFunc(legacyDispatch)),
//	)
//
// # Migration Control
//
// The engine returned by Router.Engine decides routing from the migration
// state and the enabled tool categories:
//
//	engine := router.Engine()
//	engine.SetMigrationState(toolrouter.StateNewWithFallback)
//	engine.EnableCategory("travel")
//
//	// Something is wrong: route everything to legacy.
//	engine.EmergencyRollback("error rate above 5%")
//
// Settings survive restarts when a persistent store is configured with
// WithStore.
//
// # Logging
//
// For detailed operation tracking, use WithLogger:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	router := toolrouter.New(toolrouter.WithLogger(logger))
//
// # Error Handling
//
// The router provides typed errors for different failure scenarios:
//
//	res, err := router.Call(ctx, "get_weather", args)
//	if err != nil {
//	    if routeErr, ok := errors.AsType[*toolrouter.RoutingError](err); ok {
//	        log.Printf("no path succeeded for %s", routeErr.Tool)
//	    }
//	    if errors.Is(err, toolrouter.ErrNoLegacyPath) {
//	        log.Print("legacy path required but not configured")
//	    }
//	}
package toolrouter
