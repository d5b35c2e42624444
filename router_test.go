package toolrouter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/voice-tool-router/internal/observability"
	"github.com/wagiedev/voice-tool-router/internal/store"
)

func locationTool() *Tool {
	t := NewTool("search_location", "Find a place by name",
		SimpleSchema(map[string]string{"query": "string"}),
		func(_ context.Context, req ToolCallRequest) (ToolCallResponse, error) {
			return TextResponse("found " + req.Args().Field("query").StringOr("nothing")), nil
		},
	)

	return &t
}

func weatherTool(fail bool) Tool {
	return NewTool("get_weather", "Current weather for a city",
		SimpleSchema(map[string]string{"city": "string"}),
		func(_ context.Context, req ToolCallRequest) (ToolCallResponse, error) {
			if fail {
				return ToolCallResponse{}, errors.New("weather service down")
			}

			return TextResponse("sunny in " + req.Args().Field("city").StringOr("somewhere")), nil
		},
	)
}

func legacy(calls *[]string) LegacyFunc {
	return func(_ context.Context, req ToolCallRequest) (ToolCallResponse, error) {
		*calls = append(*calls, req.Name)

		return TextResponse("legacy " + req.Name), nil
	}
}

func responseText(t *testing.T, resp ToolCallResponse) string {
	t.Helper()
	require.Len(t, resp.Content, 1)

	block, ok := resp.Content[0].(*TextBlock)
	require.True(t, ok, "expected text block, got %T", resp.Content[0])

	return block.Text
}

func TestRouterRoutesByCategory(t *testing.T) {
	var legacyCalls []string

	srv := NewServer("places", "1.0.0", *locationTool(), weatherTool(false))
	router := New(WithServers(srv), WithLegacyExecutor(legacy(&legacyCalls)))

	require.NoError(t, router.Start(context.Background()))
	t.Cleanup(func() { require.NoError(t, router.Close()) })

	require.True(t, router.State().IsReady())

	// location is enabled by default, travel is not.
	res, err := router.Call(context.Background(), "search_location", map[string]any{"query": "harbour"})
	require.NoError(t, err)
	require.True(t, res.UsedNewPath)
	require.Equal(t, "found harbour", responseText(t, res.Response))

	res, err = router.Call(context.Background(), "get_weather", map[string]any{"city": "Oslo"})
	require.NoError(t, err)
	require.False(t, res.UsedNewPath)
	require.Equal(t, "legacy get_weather", responseText(t, res.Response))
	require.Equal(t, []string{"get_weather"}, legacyCalls)

	require.NoError(t, router.Engine().EnableCategory(CategoryTravel))

	res, err = router.Call(context.Background(), "get_weather", map[string]any{"city": "Oslo"})
	require.NoError(t, err)
	require.True(t, res.UsedNewPath)
	require.Equal(t, "sunny in Oslo", responseText(t, res.Response))
	require.Len(t, legacyCalls, 1)
}

func TestRouterFallsBackOnFailure(t *testing.T) {
	var legacyCalls []string

	router := New(
		WithServers(NewServer("weather", "1.0.0", weatherTool(true))),
		WithLegacyExecutor(legacy(&legacyCalls)),
	)
	require.NoError(t, router.Start(context.Background()))
	t.Cleanup(func() { _ = router.Close() })

	require.NoError(t, router.Engine().SetMigrationState(StateNewWithFallback))
	require.NoError(t, router.Engine().EnableCategory(CategoryTravel))

	res, err := router.Call(context.Background(), "get_weather", nil)
	require.NoError(t, err)
	require.True(t, res.FellBack)
	require.Equal(t, []string{"get_weather"}, legacyCalls)
	require.Equal(t, int64(1), router.Engine().ErrorCount("get_weather"))

	require.NoError(t, router.Engine().SetMigrationState(StateNewOnly))

	_, err = router.Call(context.Background(), "get_weather", nil)

	var routeErr *RoutingError
	require.ErrorAs(t, err, &routeErr)
	require.Equal(t, "get_weather", routeErr.Tool)
	require.Len(t, legacyCalls, 1)
}

func TestRouterWithoutLegacyPath(t *testing.T) {
	router := New(WithServers(NewServer("weather", "1.0.0", weatherTool(false))))
	require.NoError(t, router.Start(context.Background()))
	t.Cleanup(func() { _ = router.Close() })

	_, err := router.Call(context.Background(), "get_weather", nil)
	require.ErrorIs(t, err, ErrNoLegacyPath)
}

func TestRouterOverInMemorySession(t *testing.T) {
	ctx := context.Background()

	remote, err := ServeInMemory(ctx, NewServer("places", "2.0.0", *locationTool()))
	require.NoError(t, err)

	router := New(WithServers(remote))
	require.NoError(t, router.Start(ctx))
	t.Cleanup(func() { require.NoError(t, router.Close()) })

	tools, err := router.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	require.Equal(t, "search_location", tools[0].Name)

	res, err := router.Call(ctx, "search_location", map[string]any{"query": "museum"})
	require.NoError(t, err)
	require.Equal(t, "found museum", responseText(t, res.Response))

	mounted := router.Mounted()
	require.Len(t, mounted.Servers, 1)
	require.Equal(t, "places", mounted.Servers[0].Name)
	require.Empty(t, mounted.Failed())
}

func TestRouterKeepsDataPayloads(t *testing.T) {
	payload := &DataBlock{Data: `{"stations": 3}`, MIMEType: "application/json"}

	stations := NewTool("search_location", "Find a place by name", SimpleSchema(nil),
		func(context.Context, ToolCallRequest) (ToolCallResponse, error) {
			return ToolCallResponse{Content: []ContentBlock{payload}}, nil
		},
	)

	ctx := context.Background()

	remote, err := ServeInMemory(ctx, NewServer("remote", "1.0.0", stations))
	require.NoError(t, err)

	servers := map[string]ToolServer{
		"in-process": NewServer("local", "1.0.0", stations),
		"session":    remote,
	}

	for name, srv := range servers {
		t.Run(name, func(t *testing.T) {
			router := New(WithServers(srv))
			require.NoError(t, router.Start(ctx))
			t.Cleanup(func() { require.NoError(t, router.Close()) })

			res, err := router.Call(ctx, "search_location", nil)
			require.NoError(t, err)
			require.True(t, res.UsedNewPath)
			require.Equal(t, []ContentBlock{payload}, res.Response.Content)
		})
	}
}

func TestRouterDirectTools(t *testing.T) {
	router := New(WithTools(*locationTool()))
	require.NoError(t, router.Start(context.Background()))
	t.Cleanup(func() { _ = router.Close() })

	res, err := router.Call(context.Background(), "search_location", map[string]any{"query": "park"})
	require.NoError(t, err)
	require.Equal(t, "found park", responseText(t, res.Response))
}

func TestRouterLifecycle(t *testing.T) {
	router := New()

	require.NoError(t, router.Start(context.Background()))
	require.ErrorIs(t, router.Start(context.Background()), ErrAlreadyConnected)

	require.NoError(t, router.Close())
	require.NoError(t, router.Close())
	require.False(t, router.State().IsReady())
	require.ErrorIs(t, router.Start(context.Background()), ErrRouterClosed)
}

func TestRouterPersistsMigrationSettings(t *testing.T) {
	st := store.NewMemory()

	first := New(WithStore(st))
	require.NoError(t, first.Engine().SetMigrationState(StateNewOnly))
	first.Engine().EmergencyRollback("latency spike")
	require.NoError(t, first.Close())

	second := New(WithStore(st))
	t.Cleanup(func() { _ = second.Close() })

	require.Equal(t, StateLegacy, second.Engine().State())

	rb, ok := second.Engine().LastRollback()
	require.True(t, ok)
	require.Equal(t, "latency spike", rb.Reason)
	require.Equal(t, StateNewOnly, rb.PreviousState)
}

func TestRouterClockMeasuresDuration(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Second)

		return now
	}

	router := New(WithTools(*locationTool()), WithClock(clock))
	require.NoError(t, router.Start(context.Background()))
	t.Cleanup(func() { _ = router.Close() })

	res, err := router.Call(context.Background(), "search_location", nil)
	require.NoError(t, err)
	require.Positive(t, res.Duration)
}

func TestRouterPublishesConnectionGauges(t *testing.T) {
	router := New(WithTools(*locationTool(), weatherTool(false)))
	require.Equal(t, 1.0, testutil.ToFloat64(observability.ConnectionState.WithLabelValues("disconnected")))

	require.NoError(t, router.Start(context.Background()))
	require.Equal(t, 1.0, testutil.ToFloat64(observability.ConnectionState.WithLabelValues("ready")))
	require.Equal(t, 0.0, testutil.ToFloat64(observability.ConnectionState.WithLabelValues("disconnected")))
	require.Equal(t, 2.0, testutil.ToFloat64(observability.RegisteredTools))

	require.NoError(t, router.Close())
	require.Equal(t, 1.0, testutil.ToFloat64(observability.ConnectionState.WithLabelValues("disconnected")))
	require.Equal(t, 0.0, testutil.ToFloat64(observability.RegisteredTools))
}

func TestWithRouter(t *testing.T) {
	var seen *Router

	err := WithRouter(context.Background(), func(r *Router) error {
		seen = r
		require.True(t, r.State().IsReady())

		return nil
	}, WithTools(*locationTool()))
	require.NoError(t, err)
	require.False(t, seen.State().IsReady())

	sentinel := errors.New("callback failed")
	err = WithRouter(context.Background(), func(*Router) error { return sentinel })
	require.ErrorIs(t, err, sentinel)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, WithRouter(ctx, func(*Router) error { return nil }), context.Canceled)
}
