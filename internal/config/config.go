// Package config provides configuration loading for thoughtd.
package config

import (
	"fmt"
	"time"
)

// Config is the full daemon configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Qdrant     QdrantConfig     `koanf:"qdrant"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	QueryLog   QueryLogConfig   `koanf:"querylog"`
	Engine     EngineConfig     `koanf:"engine"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// QdrantConfig configures the vector store connection.
type QdrantConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	UseTLS  bool          `koanf:"use_tls"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// EmbeddingsConfig configures the local embedding model.
type EmbeddingsConfig struct {
	Model    string `koanf:"model"`
	CacheDir string `koanf:"cache_dir"`
}

// QueryLogConfig configures the SQLite query log.
type QueryLogConfig struct {
	Path string `koanf:"path"`
}

// EngineConfig configures the thought engine.
type EngineConfig struct {
	Collection              string        `koanf:"collection"`
	BestPracticesCollection string        `koanf:"best_practices_collection"`
	DecayInterval           time.Duration `koanf:"decay_interval"`
	DecayDisabled           bool          `koanf:"decay_disabled"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8700
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.Timeout == 0 {
		cfg.Qdrant.Timeout = 30 * time.Second
	}

	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}

	if cfg.Engine.Collection == "" {
		cfg.Engine.Collection = "thoughts"
	}
	if cfg.Engine.BestPracticesCollection == "" {
		cfg.Engine.BestPracticesCollection = "best_practices"
	}
	if cfg.Engine.DecayInterval == 0 {
		cfg.Engine.DecayInterval = time.Hour
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Qdrant.Host == "" {
		return fmt.Errorf("qdrant host cannot be empty")
	}
	if c.Qdrant.Port < 1 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("qdrant port must be 1-65535, got %d", c.Qdrant.Port)
	}
	if c.Engine.DecayInterval < time.Minute {
		return fmt.Errorf("decay interval must be at least 1m, got %s", c.Engine.DecayInterval)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}

	return nil
}
