package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	toolrouter "github.com/wagiedev/voice-tool-router"
	"github.com/wagiedev/voice-tool-router/internal/config"
	"github.com/wagiedev/voice-tool-router/internal/store"
)

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	if _, statErr := os.Stat(defaultConfigPath); statErr == nil {
		t.Skip("a real config file is present")
	}

	cfg, watch, err := loadConfig(defaultConfigPath)
	require.NoError(t, err)
	require.False(t, watch)
	require.Equal(t, config.Default(), cfg)

	_, _, err = loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "router.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage]\ndriver = \"memory\"\n"), 0o600))

	cfg, watch, err = loadConfig(path)
	require.NoError(t, err)
	require.True(t, watch)
	require.Equal(t, config.DriverMemory, cfg.Storage.Driver)
}

func TestOpenStore(t *testing.T) {
	st, closeFn, err := openStore(config.StorageConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	require.IsType(t, &store.Memory{}, st)
	require.NoError(t, closeFn())

	path := filepath.Join(t.TempDir(), "router.db")
	st, closeFn, err = openStore(config.StorageConfig{Driver: config.DriverSQLite, Path: path})
	require.NoError(t, err)
	require.NoError(t, st.Set("k", "v"))
	require.NoError(t, closeFn())
	require.FileExists(t, path)
}

func TestDemoRouterEndToEnd(t *testing.T) {
	ctx := context.Background()

	servers, err := serveDemoServers(ctx)
	require.NoError(t, err)

	router := toolrouter.New(
		toolrouter.WithServers(servers...),
		toolrouter.WithLegacyExecutor(newLegacyExecutor()),
	)
	require.NoError(t, router.Start(ctx))
	t.Cleanup(func() { require.NoError(t, router.Close()) })

	tools, err := router.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 5)

	// location is enabled by default.
	res, err := router.Call(ctx, "search_location", map[string]any{"query": "opera"})
	require.NoError(t, err)
	require.True(t, res.UsedNewPath)
	require.Equal(t, toolrouter.TextResponse("1 result for opera"), res.Response)

	// travel is not.
	res, err = router.Call(ctx, "get_weather", map[string]any{"city": "Bergen"})
	require.NoError(t, err)
	require.False(t, res.UsedNewPath)
	require.Equal(t, toolrouter.TextResponse("[legacy] get_weather handled"), res.Response)

	require.NoError(t, router.Engine().EnableCategory(toolrouter.CategoryTravel))

	res, err = router.Call(ctx, "get_weather", map[string]any{"city": "Bergen", "units": "imperial"})
	require.NoError(t, err)
	require.True(t, res.UsedNewPath)
	require.Equal(t, toolrouter.TextResponse("54°F, light rain in Bergen"), res.Response)

	// A tool-level error on the new path falls back in hybrid.
	res, err = router.Call(ctx, "get_weather", nil)
	require.NoError(t, err)
	require.True(t, res.FellBack)
}

func TestDialServersSkipsUnreachable(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	servers := dialServers(context.Background(), log, []config.BackendConfig{
		{Name: "broken", Type: "grpc"},
		{Name: "gone", Type: config.BackendStdio, Command: filepath.Join(t.TempDir(), "does-not-exist")},
	})

	require.Empty(t, servers)
	require.Contains(t, buf.String(), "server=broken")
	require.Contains(t, buf.String(), "server=gone")
}

func TestRunDemoServerUnknown(t *testing.T) {
	require.ErrorContains(t, runDemoServer(context.Background(), "music"), "unknown demo server")
}

func TestLogSpanProcessor(t *testing.T) {
	var buf bytes.Buffer

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(&logSpanProcessor{
		log: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := tp.Tracer("test").Start(context.Background(), "coordinator.Execute")
	span.SetAttributes(attribute.String("tool.name", "get_weather"))
	span.End()

	out := buf.String()
	require.Contains(t, out, "span=coordinator.Execute")
	require.Contains(t, out, "tool.name=get_weather")
}
