// Package config loads the router's TOML configuration file and watches it
// for changes.
package config

import (
	"time"
)

// Config is the root of the configuration file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Migration MigrationConfig `toml:"migration"`
	Logging   LoggingConfig   `toml:"logging"`
	Servers   []BackendConfig `toml:"servers"`
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	// AdminAddr is the listen address of the admin API. Empty disables it.
	AdminAddr string `toml:"admin_addr"`
	// RateLimit is the sustained number of mutating admin requests per second.
	RateLimit float64 `toml:"rate_limit"`
	// RateBurst is the number of mutating requests allowed in a burst.
	RateBurst int `toml:"rate_burst"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// StorageConfig selects the settings store.
type StorageConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

// MigrationConfig optionally pins the migration engine's settings. Unset
// fields leave the persisted values alone.
type MigrationConfig struct {
	State                 string   `toml:"state"`
	EnabledCategories     []string `toml:"enabled_categories"`
	PerformanceMonitoring *bool    `toml:"performance_monitoring"`
	DebugLogging          *bool    `toml:"debug_logging"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Backend types.
const (
	BackendStdio = "stdio"
	BackendHTTP  = "http"
	BackendSSE   = "sse"
)

// BackendConfig describes an external tool server to mount.
type BackendConfig struct {
	Name    string            `toml:"name"`
	Type    string            `toml:"type"`
	Command string            `toml:"command"`
	Args    []string          `toml:"args"`
	Env     map[string]string `toml:"env"`
	URL     string            `toml:"url"`
	Headers map[string]string `toml:"headers"`
}
