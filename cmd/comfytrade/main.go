// Package main implements the entry point for the comfyTrade runtime: a
// node-graph trading engine that executes user-authored strategy graphs
// against an external trading terminal bridge and trails stops on open
// positions.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtomtong/comfyTrade/bridge/ws"
	"github.com/tomtomtong/comfyTrade/config"
	"github.com/tomtomtong/comfyTrade/engine"
	apperrors "github.com/tomtomtong/comfyTrade/errors"
	"github.com/tomtomtong/comfyTrade/graph"
	"github.com/tomtomtong/comfyTrade/health"
	"github.com/tomtomtong/comfyTrade/metric"
	"github.com/tomtomtong/comfyTrade/natsclient"
	"github.com/tomtomtong/comfyTrade/node"
	"github.com/tomtomtong/comfyTrade/nodes"
	"github.com/tomtomtong/comfyTrade/scheduler"
	"github.com/tomtomtong/comfyTrade/store"
	"github.com/tomtomtong/comfyTrade/trailing"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "comfytrade"

	defaultGraphName = "default"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	cfg, err := loadConfiguration(cliCfg)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		logger.Info("Configuration is valid")
		return nil
	}

	logger.Info("Starting comfyTrade",
		"version", Version,
		"build_time", BuildTime,
		"bridge_url", cfg.Bridge.URL)

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metric.NewMetricsRegistry()
	coreMetrics := metric.NewMetrics()
	if err := coreMetrics.Register(registry); err != nil {
		return fmt.Errorf("register core metrics: %w", err)
	}

	// Persistence: JetStream KV when a NATS URL is configured, in-memory
	// otherwise.
	graphKV, pluginKV, trailingKV, natsCleanup, err := setupStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer natsCleanup()

	// Terminal bridge.
	terminal, err := ws.NewClient(ws.Options{
		URL:            cfg.Bridge.URL,
		DialTimeout:    cfg.Bridge.DialTimeout.Std(),
		RequestTimeout: cfg.Bridge.RequestTimeout.Std(),
	}, logger, coreMetrics)
	if err != nil {
		return err
	}
	if err := terminal.Connect(ctx); err != nil {
		return fmt.Errorf("connect terminal bridge: %w", err)
	}
	defer terminal.Close()

	// Node types and graph.
	nodeRegistry := node.NewRegistry()
	if err := nodes.RegisterBuiltins(nodeRegistry); err != nil {
		return fmt.Errorf("register built-in node types: %w", err)
	}

	g := graph.New(nodeRegistry)
	graphStore := store.NewGraphStore(graphKV)
	if err := graphStore.Load(ctx, defaultGraphName, g); err != nil {
		if !stderrors.Is(err, apperrors.ErrKeyNotFound) {
			return fmt.Errorf("load saved graph: %w", err)
		}
		logger.Info("No saved graph, starting empty")
	} else {
		logger.Info("Loaded saved graph",
			"nodes", len(g.Nodes()), "unresolved", len(g.Unresolved()))
	}

	notify := func(text string, level node.NotifyLevel) {
		switch level {
		case node.NotifyError:
			logger.Error("User notification", "text", text)
		case node.NotifyWarn:
			logger.Warn("User notification", "text", text)
		default:
			logger.Info("User notification", "text", text)
		}
	}

	pluginStores := store.NewPluginStores(pluginKV)
	eng := engine.NewEngine(nodeRegistry, terminal, notify, pluginStores.For, logger, registry)
	sched := scheduler.New(eng, g, logger, registry)

	trailer, err := trailing.NewController(terminal, trailingKV, notify,
		cfg.Trailing.Interval.Std(), logger, registry)
	if err != nil {
		return err
	}
	if err := trailer.Load(ctx); err != nil {
		return fmt.Errorf("restore trailing configs: %w", err)
	}
	trailer.Start(ctx)

	// Operational endpoints.
	monitor := health.NewMonitor()
	monitor.Register(health.BoolChecker("bridge", terminal.IsConnected))
	monitor.Register(func() health.Status {
		return health.Status{
			Component: "scheduler",
			Healthy:   true,
			Message:   fmt.Sprintf("%d flows", len(sched.Flows())),
			Timestamp: time.Now(),
		}
	})
	monitor.Register(func() health.Status {
		return health.Status{
			Component: "trailing",
			Healthy:   true,
			Message:   fmt.Sprintf("%d tracked", len(trailer.Tracked())),
			Timestamp: time.Now(),
		}
	})

	httpServer := startHTTPServer(cfg.Metrics.Port, registry, monitor, logger)

	logger.Info("comfyTrade started")
	<-ctx.Done()
	logger.Info("Shutdown signal received")

	return shutdown(cliCfg.ShutdownTimeout, sched, trailer, graphStore, g, terminal, httpServer, logger)
}

// loadConfiguration loads the YAML config, or the defaults when no path
// was given.
func loadConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	var cfg *config.Config
	if cliCfg.ConfigPath == "" {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(cliCfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	// CLI flags take precedence over the file.
	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = cliCfg.LogFormat
	}

	return cfg, cfg.Validate()
}

// setupStores builds the three persistence backends and a cleanup func.
func setupStores(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (graphKV, pluginKV, trailingKV store.KV, cleanup func(), err error) {
	if cfg.NATS.URL == "" {
		logger.Info("No NATS URL configured, using in-memory stores")
		return store.NewMemoryKV(), store.NewMemoryKV(), store.NewMemoryKV(), func() {}, nil
	}

	client, err := natsclient.New(natsclient.DefaultOptions(cfg.NATS.URL), logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, nil, nil, nil, err
	}

	graphBucket, err := client.KeyValueBucket(ctx, cfg.NATS.GraphBucket)
	if err != nil {
		client.Close()
		return nil, nil, nil, nil, err
	}
	pluginBucket, err := client.KeyValueBucket(ctx, cfg.NATS.StoreBucket)
	if err != nil {
		client.Close()
		return nil, nil, nil, nil, err
	}
	trailingBucket, err := client.KeyValueBucket(ctx, cfg.Trailing.Bucket)
	if err != nil {
		client.Close()
		return nil, nil, nil, nil, err
	}

	cleanup = func() {
		if err := client.Close(); err != nil {
			logger.Warn("NATS close failed", "error", err)
		}
	}
	return store.NewJetStreamKV(graphBucket),
		store.NewJetStreamKV(pluginBucket),
		store.NewJetStreamKV(trailingBucket),
		cleanup, nil
}

// startHTTPServer serves metrics and health. Port 0 disables it.
func startHTTPServer(port int, registry *metric.MetricsRegistry, monitor *health.Monitor, logger *slog.Logger) *http.Server {
	if port == 0 {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	mux.Handle("/healthz", monitor.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// shutdown stops flows and trailing, saves the graph, and closes the
// transports within the timeout.
func shutdown(
	timeout time.Duration,
	sched *scheduler.Scheduler,
	trailer *trailing.Controller,
	graphStore *store.GraphStore,
	g *graph.Graph,
	terminal *ws.Client,
	httpServer *http.Server,
	logger *slog.Logger,
) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sched.StopAll()
	trailer.Stop()

	if err := graphStore.Save(ctx, defaultGraphName, g); err != nil {
		logger.Warn("Failed to save graph on shutdown", "error", err)
	}

	if err := terminal.Close(); err != nil {
		logger.Warn("Bridge close failed", "error", err)
	}

	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Warn("HTTP server shutdown failed", "error", err)
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
