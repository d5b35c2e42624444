package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/voice-tool-router/internal/backend"
	"github.com/wagiedev/voice-tool-router/internal/flags"
	"github.com/wagiedev/voice-tool-router/internal/store"
)

const sampleConfig = `
[server]
admin_addr = "127.0.0.1:9000"
rate_limit = 2.5
shutdown_timeout = "10s"

[storage]
driver = "memory"

[migration]
state = "newWithFallback"
enabled_categories = ["location", "travel"]
performance_monitoring = false

[logging]
level = "debug"
format = "json"

[[servers]]
name = "weather"
type = "stdio"
command = "weather-server"
args = ["--units", "metric"]
env = { API_KEY = "secret" }

[[servers]]
name = "places"
type = "http"
url = "https://places.example.com/mcp"
headers = { Authorization = "Bearer t" }
`

func TestParse(t *testing.T) {
	cfg, err := Parse(sampleConfig)
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9000", cfg.Server.AdminAddr)
	require.InDelta(t, 2.5, cfg.Server.RateLimit, 0.0001)
	require.Equal(t, DefaultRateBurst, cfg.Server.RateBurst)
	require.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, DriverMemory, cfg.Storage.Driver)
	require.Empty(t, cfg.Storage.Path)
	require.Equal(t, "newWithFallback", cfg.Migration.State)
	require.Equal(t, []string{"location", "travel"}, cfg.Migration.EnabledCategories)
	require.NotNil(t, cfg.Migration.PerformanceMonitoring)
	require.False(t, *cfg.Migration.PerformanceMonitoring)
	require.Nil(t, cfg.Migration.DebugLogging)
	require.Len(t, cfg.Servers, 2)

	stdio, err := cfg.Servers[0].Backend()
	require.NoError(t, err)
	require.Equal(t, backend.ServerTypeStdio, stdio.GetType())
	require.Equal(t, &backend.StdioServerConfig{
		Command: "weather-server",
		Args:    []string{"--units", "metric"},
		Env:     map[string]string{"API_KEY": "secret"},
	}, stdio)

	httpCfg, err := cfg.Servers[1].Backend()
	require.NoError(t, err)
	require.Equal(t, backend.ServerTypeHTTP, httpCfg.GetType())
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, DriverSQLite, cfg.Storage.Driver)
	require.Equal(t, DefaultStoragePath, cfg.Storage.Path)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "text", cfg.Logging.Format)
	require.Empty(t, cfg.Server.AdminAddr)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "bad toml", body: "[server", want: "decode config"},
		{name: "unknown key", body: "[server]\nport = 1", want: "unknown config keys: server.port"},
		{name: "bad driver", body: "[storage]\ndriver = \"redis\"", want: "storage.driver"},
		{name: "bad state", body: "[migration]\nstate = \"sideways\"", want: "migration.state"},
		{name: "bad category", body: "[migration]\nenabled_categories = [\"music\"]", want: "unknown category \"music\""},
		{name: "bad level", body: "[logging]\nlevel = \"loud\"", want: "logging.level"},
		{name: "bad format", body: "[logging]\nformat = \"xml\"", want: "logging.format"},
		{name: "negative rate", body: "[server]\nrate_limit = -1.0", want: "must not be negative"},
		{name: "nameless server", body: "[[servers]]\ntype = \"stdio\"\ncommand = \"x\"", want: "name is required"},
		{
			name: "duplicate server",
			body: "[[servers]]\nname = \"a\"\ntype = \"sse\"\nurl = \"http://x\"\n[[servers]]\nname = \"a\"\ntype = \"sse\"\nurl = \"http://y\"",
			want: "duplicate name",
		},
		{name: "stdio without command", body: "[[servers]]\nname = \"a\"\ntype = \"stdio\"", want: "command is required"},
		{name: "http without url", body: "[[servers]]\nname = \"a\"\ntype = \"http\"", want: "url is required"},
		{name: "unknown type", body: "[[servers]]\nname = \"a\"\ntype = \"grpc\"", want: "unknown server type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.body)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "router.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.Server.AdminAddr)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestMigrationApply(t *testing.T) {
	engine := flags.New(nil, store.NewMemory())
	monitoring := false
	debug := true

	m := MigrationConfig{
		State:                 "newOnly",
		EnabledCategories:     []string{"search", "safety"},
		PerformanceMonitoring: &monitoring,
		DebugLogging:          &debug,
	}
	require.NoError(t, m.Apply(engine))

	require.Equal(t, flags.StateNewOnly, engine.State())
	require.Equal(t, []flags.Category{
		flags.CategorySearch,
		flags.CategorySafety,
		flags.CategoryTransport,
	}, engine.EnabledCategories())
	require.False(t, engine.PerformanceMonitoring())
	require.True(t, engine.DebugLogging())
}

func TestMigrationApplyLeavesUnsetFields(t *testing.T) {
	engine := flags.New(nil, store.NewMemory())
	before := engine.Snapshot()

	require.NoError(t, MigrationConfig{}.Apply(engine))
	require.Equal(t, before, engine.Snapshot())
}

func TestMigrationApplyKeepsTransportEnabled(t *testing.T) {
	engine := flags.New(nil, store.NewMemory())
	require.True(t, engine.IsCategoryEnabled(flags.CategoryTransport))

	m := MigrationConfig{State: "hybrid", EnabledCategories: []string{"location"}}
	require.NoError(t, m.Apply(engine))

	require.True(t, engine.IsCategoryEnabled(flags.CategoryTransport))
	require.Equal(t, []flags.Category{flags.CategoryLocation, flags.CategoryTransport}, engine.EnabledCategories())
}

func TestMigrationChanges(t *testing.T) {
	on, off := true, false

	prev := MigrationConfig{
		State:                 "hybrid",
		EnabledCategories:     []string{"location", "search"},
		PerformanceMonitoring: &on,
	}

	t.Run("identical config has no changes", func(t *testing.T) {
		same := MigrationConfig{
			State:                 "hybrid",
			EnabledCategories:     []string{"search", "location"},
			PerformanceMonitoring: &on,
		}
		require.True(t, same.Changes(prev).IsZero())
	})

	t.Run("removed fields are not changes", func(t *testing.T) {
		require.True(t, MigrationConfig{}.Changes(prev).IsZero())
	})

	t.Run("edited fields are reported", func(t *testing.T) {
		next := MigrationConfig{
			State:                 "newOnly",
			EnabledCategories:     []string{"location", "search"},
			PerformanceMonitoring: &off,
			DebugLogging:          &on,
		}

		changes := next.Changes(prev)
		require.Equal(t, "newOnly", changes.State)
		require.Nil(t, changes.EnabledCategories)
		require.Equal(t, &off, changes.PerformanceMonitoring)
		require.Equal(t, &on, changes.DebugLogging)
	})
}

func TestMigrationReloaderKeepsRollbackOnUnrelatedReload(t *testing.T) {
	engine := flags.New(nil, store.NewMemory())

	pinned := MigrationConfig{State: "hybrid", EnabledCategories: []string{"location"}}
	require.NoError(t, pinned.Apply(engine))

	reloader := NewMigrationReloader(nil, engine, pinned)

	engine.EmergencyRollback("incident")

	// The file was saved again with only [logging] edited.
	require.NoError(t, reloader.Reload(pinned))
	require.Equal(t, flags.StateLegacy, engine.State())
	require.Empty(t, engine.EnabledCategories())

	// An explicit edit of the pinned state still takes effect.
	require.NoError(t, reloader.Reload(MigrationConfig{State: "newWithFallback", EnabledCategories: []string{"location"}}))
	require.Equal(t, flags.StateNewWithFallback, engine.State())
	require.Empty(t, engine.EnabledCategories())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	log := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)
	log.Info("hidden")
	log.Warn("shown", "tool", "get_weather")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, `"msg":"shown"`)
	require.Contains(t, out, `"tool":"get_weather"`)

	buf.Reset()
	NewLogger(LoggingConfig{Level: "debug", Format: "text"}, &buf).Debug("detail")
	require.Contains(t, buf.String(), "msg=detail")
}
