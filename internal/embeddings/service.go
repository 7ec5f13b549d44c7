// Package embeddings provides embedding generation via langchaingo.
//
// It wraps langchaingo's embedding support to turn text into fixed-length
// float32 vectors through any OpenAI-compatible endpoint (OpenAI itself or a
// local TEI-style server). The vector dimension is fixed per deployment by
// the configured model; every vector stored and every query vector must share
// it, or the similarity index breaks.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	// ErrEmptyInput indicates empty or nil input texts
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrService indicates the embedding call failed or timed out.
	ErrService = errors.New("embedding service error")
)

// Config holds configuration for the embedding service.
type Config struct {
	// BaseURL is the base URL for the embedding API.
	BaseURL string

	// Model is the embedding model to use
	// (e.g. text-embedding-3-large, BAAI/bge-small-en-v1.5).
	Model string

	// APIKey is the API key (required for OpenAI, optional for local servers).
	APIKey string

	// Dimension is the vector length the model produces. Declared once per
	// deployment; changing it requires a full re-embed of stored rows.
	Dimension int

	// Timeout bounds each embedding call. Zero defers to the caller's context.
	Timeout time.Duration
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return nil
}

// Service provides embedding generation functionality.
type Service struct {
	embedder *embeddings.EmbedderImpl
	config   Config
}

// NewService creates a new embedding service with the given configuration.
func NewService(config Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	apiKey := config.APIKey
	if apiKey == "" {
		// langchaingo requires a token, use placeholder for local servers
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithModel(config.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &Service{embedder: embedder, config: config}, nil
}

// Dimension returns the configured vector dimension.
func (s *Service) Dimension() int {
	return s.config.Dimension
}

// EmbedText generates the embedding vector for a single text.
func (s *Service) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}
	if len(vector) != s.config.Dimension {
		return nil, fmt.Errorf("%w: model returned dimension %d, configured %d",
			ErrService, len(vector), s.config.Dimension)
	}

	return vector, nil
}

// EmbedTexts generates embeddings for a batch of texts, one vector per input.
func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}

	return vectors, nil
}
