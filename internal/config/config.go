// Package config provides configuration loading for pagesift.
package config

import (
	"fmt"
	"time"

	"github.com/pagesift/pagesift/internal/logging"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   logging.Config  `koanf:"logging"`
	Qdrant    QdrantConfig    `koanf:"qdrant"`
	Vision    VisionConfig    `koanf:"vision"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Search    SearchConfig    `koanf:"search"`
	Assets    AssetsConfig    `koanf:"assets"`
	Store     StoreConfig     `koanf:"store"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	MaxUploadBytes  int64    `koanf:"max_upload_bytes"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// QdrantConfig holds vector database connection configuration.
type QdrantConfig struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	UseTLS bool   `koanf:"use_tls"`
	APIKey Secret `koanf:"api_key"`
}

// VisionConfig holds the vision model endpoint configuration.
type VisionConfig struct {
	BaseURL string   `koanf:"base_url"`
	Model   string   `koanf:"model"`
	APIKey  Secret   `koanf:"api_key"`
	Timeout Duration `koanf:"timeout"`
}

// EmbeddingConfig holds the embedding model endpoint configuration.
type EmbeddingConfig struct {
	BaseURL   string   `koanf:"base_url"`
	Model     string   `koanf:"model"`
	APIKey    Secret   `koanf:"api_key"`
	Dimension int      `koanf:"dimension"`
	Timeout   Duration `koanf:"timeout"`
}

// IngestConfig holds ingestion configuration.
type IngestConfig struct {
	DPI int `koanf:"dpi"`
}

// SearchConfig holds search configuration.
type SearchConfig struct {
	DefaultK int `koanf:"default_k"`
	MaxK     int `koanf:"max_k"`
}

// AssetsConfig holds document asset storage configuration.
type AssetsConfig struct {
	Dir         string `koanf:"dir"`
	ServePrefix string `koanf:"serve_prefix"`
}

// StoreConfig holds page store configuration.
type StoreConfig struct {
	Collection string `koanf:"collection"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 100 << 20
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Fields == nil {
		cfg.Logging.Fields = map[string]string{"service": "pagesift"}
	}

	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}

	if cfg.Vision.BaseURL == "" {
		cfg.Vision.BaseURL = "http://localhost:8000/v1"
	}
	if cfg.Vision.Model == "" {
		cfg.Vision.Model = "qwen2.5-vl-7b-instruct"
	}
	if cfg.Vision.Timeout == 0 {
		cfg.Vision.Timeout = Duration(120 * time.Second)
	}

	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:8001/v1"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "BAAI/bge-m3"
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 1024
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = Duration(30 * time.Second)
	}

	if cfg.Ingest.DPI == 0 {
		cfg.Ingest.DPI = 150
	}

	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = 24
	}
	if cfg.Search.MaxK == 0 {
		cfg.Search.MaxK = 100
	}

	if cfg.Assets.Dir == "" {
		cfg.Assets.Dir = "./data/files"
	}
	if cfg.Assets.ServePrefix == "" {
		cfg.Assets.ServePrefix = "/files"
	}

	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "pagesift_pages"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max_upload_bytes must be positive")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Qdrant.Host == "" {
		return fmt.Errorf("qdrant host required")
	}
	if c.Qdrant.Port < 1 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("qdrant port must be 1-65535, got %d", c.Qdrant.Port)
	}
	if c.Vision.BaseURL == "" || c.Vision.Model == "" {
		return fmt.Errorf("vision base_url and model required")
	}
	if c.Embedding.BaseURL == "" || c.Embedding.Model == "" {
		return fmt.Errorf("embedding base_url and model required")
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Ingest.DPI <= 0 {
		return fmt.Errorf("ingest dpi must be positive, got %d", c.Ingest.DPI)
	}
	if c.Search.DefaultK <= 0 || c.Search.MaxK < c.Search.DefaultK {
		return fmt.Errorf("search default_k must be positive and max_k >= default_k")
	}
	if c.Assets.Dir == "" {
		return fmt.Errorf("assets dir required")
	}
	if c.Store.Collection == "" {
		return fmt.Errorf("store collection required")
	}
	return nil
}
