// Thoughtd is the thought-space daemon.
//
// It serves the HTTP API for contributing and retrieving thoughts, runs the
// pheromone decay scheduler, and can alternatively expose the same engine
// over MCP stdio for agent runtimes.
//
// Usage:
//
//	# Start the HTTP daemon with defaults
//	thoughtd
//
//	# Use an explicit config file
//	thoughtd -config /etc/thoughtd/config.yaml
//
//	# Serve the brain tools over MCP stdio
//	thoughtd stdio
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/bestpractices"
	"github.com/fyrsmithlabs/thoughtd/internal/config"
	"github.com/fyrsmithlabs/thoughtd/internal/embeddings"
	httpserver "github.com/fyrsmithlabs/thoughtd/internal/http"
	"github.com/fyrsmithlabs/thoughtd/internal/logging"
	"github.com/fyrsmithlabs/thoughtd/internal/querylog"
	"github.com/fyrsmithlabs/thoughtd/internal/services"
	"github.com/fyrsmithlabs/thoughtd/internal/telemetry"
	"github.com/fyrsmithlabs/thoughtd/internal/thoughtspace"
	"github.com/fyrsmithlabs/thoughtd/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/thoughtd/config.yaml)")
	flag.Parse()
	args := flag.Args()

	mode := "serve"
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		case "stdio":
			mode = "stdio"
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  thoughtd           Start the thoughtd daemon\n")
			fmt.Fprintf(os.Stderr, "  thoughtd stdio     Serve the brain tools over MCP stdio\n")
			fmt.Fprintf(os.Stderr, "  thoughtd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	var err error
	switch mode {
	case "stdio":
		err = runStdio(ctx, *configPath)
	default:
		err = run(ctx, *configPath)
	}
	if err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("thoughtd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the thoughtd HTTP daemon and blocks until ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting thoughtd",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	tel, err := telemetry.Init("thoughtd", version)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		_ = tel.Shutdown(context.Background())
	}()

	reg, err := initServices(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logger.Warn("service shutdown reported errors", zap.Error(err))
		}
	}()

	if !cfg.Engine.DecayDisabled {
		reg.Scheduler().Start()
		logger.Info("Decay scheduler started",
			zap.Duration("interval", cfg.Engine.DecayInterval))
	}

	srv, err := httpserver.NewServer(
		reg.Engine(),
		reg.BestPractices(),
		logger,
		&httpserver.Config{Host: cfg.Server.Host, Port: cfg.Server.Port},
		httpserver.WithMetricsHandler(tel.Handler()),
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("metrics_endpoint", "/metrics"))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}

// initServices wires the vectorstore, embedder, query log, engine, and
// best-practices store, and bootstraps the collections.
func initServices(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.Registry, error) {
	store, err := vectorstore.NewQdrantStore(&vectorstore.QdrantConfig{
		Host:           cfg.Qdrant.Host,
		Port:           cfg.Qdrant.Port,
		UseTLS:         cfg.Qdrant.UseTLS,
		APIKey:         cfg.Qdrant.APIKey,
		RequestTimeout: cfg.Qdrant.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	embedder, err := embeddings.NewFastEmbedProvider(embeddings.Config{
		Model:    cfg.Embeddings.Model,
		CacheDir: cfg.Embeddings.CacheDir,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	queries, err := querylog.Open(cfg.QueryLog.Path)
	if err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to open query log: %w", err)
	}

	engine, err := thoughtspace.NewService(store, embedder, queries,
		thoughtspace.Config{Collection: cfg.Engine.Collection}, logger)
	if err != nil {
		_ = queries.Close()
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	if err := engine.Bootstrap(ctx); err != nil {
		_ = queries.Close()
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to bootstrap thought collection: %w", err)
	}

	practices, err := bestpractices.NewService(store, embedder,
		cfg.Engine.BestPracticesCollection, logger)
	if err != nil {
		_ = queries.Close()
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to create best-practices service: %w", err)
	}
	if err := practices.Bootstrap(ctx); err != nil {
		_ = queries.Close()
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to bootstrap best-practices collection: %w", err)
	}

	scheduler := thoughtspace.NewDecayScheduler(engine, cfg.Engine.DecayInterval, logger)

	return services.NewRegistry(services.Options{
		Engine:        engine,
		BestPractices: practices,
		Scheduler:     scheduler,
		VectorStore:   store,
		Embedder:      embedder,
		QueryLog:      queries,
	}), nil
}
