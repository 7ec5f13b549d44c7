// Package search answers free-text semantic queries over stored pages.
package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pagesift/pagesift/internal/store"
)

const (
	// DefaultK is the number of results returned when the caller does not
	// ask for a specific count.
	DefaultK = 24

	// MaxK caps a single query's result set to bound response size.
	MaxK = 100
)

// Embedder turns the query text into a vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// PageSearcher ranks stored pages against a query vector.
type PageSearcher interface {
	SimilaritySearch(ctx context.Context, vector []float32, k int) ([]store.ScoredRecord, error)
}

// Result is one ranked search hit.
type Result struct {
	ID         string   `json:"id"`
	Filename   string   `json:"filename"`
	PageNumber int      `json:"page_number"`
	Caption    string   `json:"caption"`
	Keywords   []string `json:"keywords"`
	Path       string   `json:"path"`
	Score      float32  `json:"score"`
}

// Config holds search configuration. Zero values fall back to DefaultK and
// MaxK.
type Config struct {
	DefaultK int
	MaxK     int
}

// Service embeds queries and delegates ranking to the page store.
type Service struct {
	embedder Embedder
	pages    PageSearcher
	config   Config
	logger   *zap.Logger
}

// NewService creates the search service.
func NewService(embedder Embedder, pages PageSearcher, config Config, logger *zap.Logger) (*Service, error) {
	if embedder == nil || pages == nil {
		return nil, fmt.Errorf("embedder and page searcher are required")
	}
	if config.DefaultK == 0 {
		config.DefaultK = DefaultK
	}
	if config.MaxK == 0 {
		config.MaxK = MaxK
	}
	if config.DefaultK < 0 || config.MaxK < config.DefaultK {
		return nil, fmt.Errorf("invalid k bounds: default %d, max %d", config.DefaultK, config.MaxK)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{embedder: embedder, pages: pages, config: config, logger: logger}, nil
}

// Search returns the top-k stored pages for the query, ordered by descending
// score.
//
// An empty or whitespace-only query returns an empty list without calling
// the embedding service: a vacuous query is not worth an external call.
// Non-positive k falls back to DefaultK; k above MaxK is clamped.
func (s *Service) Search(ctx context.Context, query string, k int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{}, nil
	}

	if k <= 0 {
		k = s.config.DefaultK
	}
	if k > s.config.MaxK {
		k = s.config.MaxK
	}

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	scored, err := s.pages.SimilaritySearch(ctx, vector, k)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(scored))
	for i, r := range scored {
		results[i] = Result{
			ID:         r.ID,
			Filename:   r.DocumentFilename,
			PageNumber: r.PageNumber,
			Caption:    r.Caption,
			Keywords:   r.Keywords,
			Path:       r.DocumentPath,
			Score:      r.Score,
		}
	}

	s.logger.Debug("search served",
		zap.Int("k", k),
		zap.Int("results", len(results)),
	)

	return results, nil
}
