// Command toolrouter runs the voice assistant tool router with its admin
// control plane.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	toolrouter "github.com/wagiedev/voice-tool-router"
	"github.com/wagiedev/voice-tool-router/internal/admin"
	"github.com/wagiedev/voice-tool-router/internal/backend"
	"github.com/wagiedev/voice-tool-router/internal/config"
	"github.com/wagiedev/voice-tool-router/internal/store"
)

const defaultConfigPath = "./toolrouter.toml"

var (
	configPath = flag.String("config", defaultConfigPath, "Path to config file")
	demo       = flag.Bool("demo", true, "Mount the built-in demo weather and location servers")
	serveDemo  = flag.String("serve-demo", "", "Serve one demo server (weather or location) over stdio and exit")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("toolrouter v%s\n", toolrouter.Version)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serveDemo != "" {
		if err := runDemoServer(ctx, *serveDemo); err != nil {
			fmt.Fprintf(os.Stderr, "toolrouter: %v\n", err)
			os.Exit(1)
		}

		return
	}

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "toolrouter: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (cfg *config.Config, watch bool, err error) {
	cfg, err = config.Load(path)
	if err == nil {
		return cfg, true, nil
	}

	if path == defaultConfigPath && errors.Is(err, os.ErrNotExist) {
		return config.Default(), false, nil
	}

	return nil, false, err
}

func openStore(cfg config.StorageConfig) (store.Store, func() error, error) {
	if cfg.Driver == config.DriverMemory {
		return store.NewMemory(), func() error { return nil }, nil
	}

	db, err := store.OpenSQLite(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open settings store: %w", err)
	}

	return db, db.Close, nil
}

func run(ctx context.Context) error {
	cfg, watch, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if *verbose {
		cfg.Logging.Level = "debug"
	}

	log := config.NewLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(log)

	shutdownTracing := setupTracing(log)
	defer shutdownTracing()

	st, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}

	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("Failed to close settings store", "error", err)
		}
	}()

	servers := dialServers(ctx, log, cfg.Servers)

	if *demo {
		demoServers, err := serveDemoServers(ctx)
		if err != nil {
			return err
		}

		servers = append(servers, demoServers...)
	}

	router := toolrouter.New(
		toolrouter.WithLogger(log),
		toolrouter.WithStore(st),
		toolrouter.WithServers(servers...),
		toolrouter.WithLegacyExecutor(newLegacyExecutor()),
	)

	defer func() {
		if err := router.Close(); err != nil {
			log.Warn("Failed to close router", "error", err)
		}
	}()

	if err := cfg.Migration.Apply(router.Engine()); err != nil {
		return fmt.Errorf("apply migration config: %w", err)
	}

	if err := router.Start(ctx); err != nil {
		return fmt.Errorf("start router: %w", err)
	}

	if watch {
		reloader := config.NewMigrationReloader(log, router.Engine(), cfg.Migration)

		watcher := config.NewWatcher(log, *configPath, func(next *config.Config) {
			if err := reloader.Reload(next.Migration); err != nil {
				log.Warn("Failed to apply reloaded migration config", "error", err)
			}
		})

		if err := watcher.Start(ctx); err != nil {
			log.Warn("Config hot-reload disabled", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Server.AdminAddr != "" {
		handler := admin.NewRouter(log, router.Engine(),
			admin.WithTools(router),
			admin.WithConnectionState(router.State),
			admin.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
		)

		g.Go(func() error {
			return admin.Serve(gctx, log, cfg.Server.AdminAddr, handler, cfg.Server.ShutdownTimeout)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		return gctx.Err()
	})

	return g.Wait()
}

// dialServers connects to the configured external servers. Unreachable
// servers are logged and skipped so the router still starts.
func dialServers(ctx context.Context, log *slog.Logger, entries []config.BackendConfig) []toolrouter.ToolServer {
	servers := make([]toolrouter.ToolServer, 0, len(entries))

	for _, entry := range entries {
		cfg, err := entry.Backend()
		if err != nil {
			log.Warn("Skipping tool server", "server", entry.Name, "error", err)

			continue
		}

		session, err := backend.Dial(ctx, toolrouter.ClientImplementation, cfg)
		if err != nil {
			log.Warn("Tool server unreachable", "server", entry.Name, "type", entry.Type, "error", err)

			continue
		}

		log.Info("Connected to tool server", "server", entry.Name, "type", entry.Type)
		servers = append(servers, session)
	}

	return servers
}

func runDemoServer(ctx context.Context, name string) error {
	srv, ok := demoServers()[name]
	if !ok {
		return fmt.Errorf("unknown demo server %q", name)
	}

	return srv.MCPServer().Run(ctx, &mcp.StdioTransport{})
}
