// Package http provides the HTTP API for thoughtd.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/bestpractices"
	"github.com/fyrsmithlabs/thoughtd/internal/thoughtspace"
)

// Engine is the thought-space surface the HTTP layer consumes.
type Engine interface {
	Contribute(ctx context.Context, params thoughtspace.ContributeParams) (*thoughtspace.ContributeResult, error)
	Retrieve(ctx context.Context, params thoughtspace.RetrieveParams) (*thoughtspace.RetrieveResult, error)
	GetLineage(ctx context.Context, id string) (*thoughtspace.Lineage, error)
	GetHighways(ctx context.Context, params thoughtspace.HighwayParams) ([]thoughtspace.Highway, error)
	RunDecayPass(ctx context.Context) (int, error)
	ApplyImplicitFeedback(ctx context.Context, ids []string) (int, error)
	ApplySessionFeedback(ctx context.Context, sessionID string) (int, error)
	PatchMetadata(ctx context.Context, id string, fields map[string]interface{}) error
	AgentQueryCount(ctx context.Context, agentID string) (int, error)
	ClassifyPrompt(ctx context.Context, contributorID, prompt string) []string
	KnownTags(ctx context.Context, max int) ([]string, error)
	Count(ctx context.Context) (uint64, error)
}

// BestPractices is the legacy document-search surface.
type BestPractices interface {
	Ingest(ctx context.Context, docs []bestpractices.Document) ([]string, error)
	Query(ctx context.Context, text string, limit int, source string) ([]bestpractices.Result, error)
	Count(ctx context.Context) (uint64, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server exposes the engine over HTTP.
type Server struct {
	echo      *echo.Echo
	engine    Engine
	practices BestPractices
	metrics   *Metrics
	logger    *zap.Logger
	config    *Config

	// metricsHandler serves /metrics when telemetry is wired in.
	metricsHandler http.Handler
}

// Option configures optional server features.
type Option func(*Server)

// WithMetricsHandler mounts a Prometheus scrape handler at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// NewServer creates the HTTP server.
func NewServer(engine Engine, practices BestPractices, logger *zap.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 8700}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:      e,
		engine:    engine,
		practices: practices,
		metrics:   NewMetrics(logger),
		logger:    logger,
		config:    cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	if s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}

	v1 := s.echo.Group("/api/v1")
	v1.POST("/memory", s.handleMemory)
	v1.POST("/thoughts", s.handleContribute)
	v1.GET("/thoughts/:id/lineage", s.handleLineage)
	v1.PATCH("/thoughts/:id/metadata", s.handlePatchMetadata)
	v1.GET("/highways", s.handleHighways)
	v1.POST("/decay/run", s.handleDecayRun)
	v1.POST("/feedback", s.handleFeedback)

	if s.practices != nil {
		v1.POST("/ingest", s.handleIngest)
		v1.POST("/query", s.handleQuery)
	}
}

// Start begins serving. Blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("http server starting", zap.String("addr", addr))

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// errorResponse is the JSON error envelope. Code carries the engine's
// machine-readable error code unchanged.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// engineError maps engine error codes to HTTP statuses 1:1.
func (s *Server) engineError(c echo.Context, err error) error {
	code := thoughtspace.ErrorCode(err)

	var status int
	switch code {
	case thoughtspace.CodeValidation,
		thoughtspace.CodeInvalidThoughtType,
		thoughtspace.CodeMissingSourceIDs:
		status = http.StatusBadRequest
	case thoughtspace.CodeNotFound,
		thoughtspace.CodeSourceNotFound:
		status = http.StatusNotFound
	default:
		status = http.StatusInternalServerError
		s.logger.Error("request failed", zap.String("code", code), zap.Error(err))
	}

	message := err.Error()
	var engineErr *thoughtspace.Error
	if errors.As(err, &engineErr) {
		message = engineErr.Message
	}

	return c.JSON(status, errorResponse{Code: code, Message: message})
}
