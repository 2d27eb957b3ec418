// Package mcp exposes the thought space over the Model Context Protocol.
//
// The server registers the brain_* tools against an in-process engine and
// serves them on the stdio transport, so agent runtimes can contribute and
// retrieve thoughts without going through the HTTP API.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/thoughtspace"
)

// Engine is the subset of the thought-space service the MCP tools call.
type Engine interface {
	Contribute(ctx context.Context, params thoughtspace.ContributeParams) (*thoughtspace.ContributeResult, error)
	Retrieve(ctx context.Context, params thoughtspace.RetrieveParams) (*thoughtspace.RetrieveResult, error)
	GetLineage(ctx context.Context, thoughtID string) (*thoughtspace.Lineage, error)
	GetHighways(ctx context.Context, params thoughtspace.HighwayParams) ([]thoughtspace.Highway, error)
	ApplySessionFeedback(ctx context.Context, sessionID string) (int, error)
	ClassifyPrompt(ctx context.Context, contributorID, prompt string) []string
}

// Server serves the brain tools over MCP.
type Server struct {
	mcp     *mcp.Server
	engine  Engine
	metrics *Metrics
	logger  *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "thoughtd")
	Name string

	// Version is the server version (default: "1.0.0")
	Version string

	// Logger for structured logging
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "thoughtd",
		Version: "1.0.0",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates an MCP server bound to the given engine.
func NewServer(cfg *Config, engine Engine) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:     mcpServer,
		engine:  engine,
		metrics: NewMetrics(cfg.Logger),
		logger:  cfg.Logger,
	}
	s.registerTools()

	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
