package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/wagiedev/voice-tool-router/internal/backend"
	"github.com/wagiedev/voice-tool-router/internal/flags"
)

// Defaults.
const (
	DefaultAdminAddr       = "127.0.0.1:8790"
	DefaultRateLimit       = 5.0
	DefaultRateBurst       = 10
	DefaultShutdownTimeout = 5 * time.Second
	DefaultStoragePath     = "data/router.db"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)

	return cfg
}

// Load reads, defaults and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(string(data))
}

// Parse decodes, defaults and validates TOML configuration text.
func Parse(data string) (*Config, error) {
	var cfg Config

	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = DefaultRateLimit
	}

	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = DefaultRateBurst
	}

	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if strings.TrimSpace(cfg.Storage.Driver) == "" {
		cfg.Storage.Driver = DriverSQLite
	}

	if cfg.Storage.Driver == DriverSQLite && strings.TrimSpace(cfg.Storage.Path) == "" {
		cfg.Storage.Path = DefaultStoragePath
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.RateLimit < 0 || cfg.Server.RateBurst < 0 {
		return fmt.Errorf("server.rate_limit and server.rate_burst must not be negative")
	}

	switch cfg.Storage.Driver {
	case DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverSQLite, DriverMemory, cfg.Storage.Driver)
	}

	if cfg.Migration.State != "" {
		if _, err := flags.ParseMigrationState(cfg.Migration.State); err != nil {
			return fmt.Errorf("migration.state: %w", err)
		}
	}

	for _, name := range cfg.Migration.EnabledCategories {
		if !flags.Category(name).Valid() {
			return fmt.Errorf("migration.enabled_categories: unknown category %q", name)
		}
	}

	if _, err := ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", cfg.Logging.Format)
	}

	seen := make(map[string]struct{}, len(cfg.Servers))

	for i, srv := range cfg.Servers {
		if strings.TrimSpace(srv.Name) == "" {
			return fmt.Errorf("servers[%d]: name is required", i)
		}

		if _, dup := seen[srv.Name]; dup {
			return fmt.Errorf("servers[%d]: duplicate name %q", i, srv.Name)
		}

		seen[srv.Name] = struct{}{}

		if _, err := srv.Backend(); err != nil {
			return fmt.Errorf("servers[%d] (%s): %w", i, srv.Name, err)
		}
	}

	return nil
}

// Backend converts the entry into a dialable server configuration.
func (b BackendConfig) Backend() (backend.ServerConfig, error) {
	switch b.Type {
	case BackendStdio:
		if b.Command == "" {
			return nil, fmt.Errorf("command is required for stdio servers")
		}

		return &backend.StdioServerConfig{Command: b.Command, Args: b.Args, Env: b.Env}, nil
	case BackendHTTP:
		if b.URL == "" {
			return nil, fmt.Errorf("url is required for http servers")
		}

		return &backend.HTTPServerConfig{URL: b.URL, Headers: b.Headers}, nil
	case BackendSSE:
		if b.URL == "" {
			return nil, fmt.Errorf("url is required for sse servers")
		}

		return &backend.SSEServerConfig{URL: b.URL, Headers: b.Headers}, nil
	default:
		return nil, fmt.Errorf("unknown server type %q", b.Type)
	}
}
