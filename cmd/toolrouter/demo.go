package main

import (
	"context"
	"fmt"
	"strings"

	toolrouter "github.com/wagiedev/voice-tool-router"
	"github.com/wagiedev/voice-tool-router/internal/backend"
	"github.com/wagiedev/voice-tool-router/internal/message"
)

// demoServers returns the built-in servers by name.
func demoServers() map[string]*backend.Local {
	return map[string]*backend.Local{
		"weather":  weatherServer(),
		"location": locationServer(),
	}
}

func weatherServer() *backend.Local {
	return toolrouter.NewServer("weather", toolrouter.Version,
		toolrouter.NewTool("get_weather", "Current weather for a city",
			toolrouter.ObjectSchema(map[string]*toolrouter.Schema{
				"city":  toolrouter.Property("string", "City name"),
				"units": toolrouter.Property("string", "Unit system", message.WithEnum("metric", "imperial")),
			}, "city"),
			func(_ context.Context, req toolrouter.ToolCallRequest) (toolrouter.ToolCallResponse, error) {
				args := req.Args()
				city := args.Field("city").StringOr("")

				if city == "" {
					return toolrouter.ErrorResponse("city is required"), nil
				}

				temp := "12°C"
				if args.Field("units").StringOr("metric") == "imperial" {
					temp = "54°F"
				}

				return toolrouter.TextResponse(fmt.Sprintf("%s, light rain in %s", temp, city)), nil
			},
		),
		toolrouter.NewTool("get_weather_forecast", "Daily forecast for a city",
			toolrouter.SimpleSchema(map[string]string{"city": "string", "days": "int"}),
			func(_ context.Context, req toolrouter.ToolCallRequest) (toolrouter.ToolCallResponse, error) {
				args := req.Args()
				days := min(max(args.Field("days").IntOr(3), 1), 7)

				lines := make([]string, days)
				for i := range days {
					lines[i] = fmt.Sprintf("day %d: %d°C", i+1, 10+i)
				}

				return toolrouter.TextResponse(args.Field("city").StringOr("here") + "\n" + strings.Join(lines, "\n")), nil
			},
		),
	)
}

func locationServer() *backend.Local {
	return toolrouter.NewServer("location", toolrouter.Version,
		toolrouter.NewTool("get_user_location", "Approximate location of the user", nil,
			func(context.Context, toolrouter.ToolCallRequest) (toolrouter.ToolCallResponse, error) {
				return toolrouter.TextResponse("59.9139,10.7522 (Oslo)"), nil
			},
		),
		toolrouter.NewTool("search_location", "Find a place by name",
			toolrouter.SimpleSchema(map[string]string{"query": "string"}),
			func(_ context.Context, req toolrouter.ToolCallRequest) (toolrouter.ToolCallResponse, error) {
				q := req.Args().Field("query").StringOr("")
				if q == "" {
					return toolrouter.ErrorResponse("query is required"), nil
				}

				return toolrouter.TextResponse("1 result for " + q), nil
			},
		),
		toolrouter.NewTool("reverse_geocode", "Address for coordinates",
			toolrouter.SimpleSchema(map[string]string{"lat": "float64", "lon": "float64"}),
			func(_ context.Context, req toolrouter.ToolCallRequest) (toolrouter.ToolCallResponse, error) {
				args := req.Args()

				return toolrouter.TextResponse(fmt.Sprintf("near %.4f,%.4f", args.Field("lat").FloatOr(0), args.Field("lon").FloatOr(0))), nil
			},
		),
	)
}

// serveDemoServers puts each demo server behind an in-memory protocol session.
func serveDemoServers(ctx context.Context) ([]toolrouter.ToolServer, error) {
	var out []toolrouter.ToolServer

	for _, name := range []string{"weather", "location"} {
		srv, err := toolrouter.ServeInMemory(ctx, demoServers()[name])
		if err != nil {
			_ = backend.CloseAll(out...)

			return nil, fmt.Errorf("start demo server %s: %w", name, err)
		}

		out = append(out, srv)
	}

	return out, nil
}

// newLegacyExecutor answers every tool from the legacy dispatcher with a
// canned reply.
func newLegacyExecutor() toolrouter.LegacyExecutor {
	return toolrouter.LegacyFunc(func(_ context.Context, req toolrouter.ToolCallRequest) (toolrouter.ToolCallResponse, error) {
		return toolrouter.TextResponse(fmt.Sprintf("[legacy] %s handled", req.Name)), nil
	})
}
