package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/config"
	"github.com/fyrsmithlabs/thoughtd/internal/logging"
	"github.com/fyrsmithlabs/thoughtd/internal/mcp"
)

// runStdio starts the MCP server on stdio with an in-process engine.
//
// The brain tools call the engine directly; no HTTP daemon is involved. The
// logger writes to stderr so stdout stays clean for the MCP protocol.
func runStdio(ctx context.Context, configPath string) error {
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

	logger.Info("Starting thoughtd in MCP stdio mode")

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
	}

	mcpServer, err := mcp.NewServer(&mcp.Config{
		Name:    "thoughtd",
		Version: version,
		Logger:  logger,
	}, reg.Engine())
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	fmt.Fprintln(os.Stderr, "thoughtd stdio mode started")

	if err := mcpServer.Run(ctx); err != nil {
		return fmt.Errorf("stdio server error: %w", err)
	}

	logger.Info("stdio MCP server shutdown complete")
	return nil
}
