// Package ingest drives one document through the indexing pipeline:
// rasterize, extract features, synthesize embedding text, embed, upsert.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/pagesift/pagesift/internal/assets"
	"github.com/pagesift/pagesift/internal/identity"
	"github.com/pagesift/pagesift/internal/raster"
	"github.com/pagesift/pagesift/internal/store"
	"github.com/pagesift/pagesift/internal/vision"
)

// ErrInvalidDocument rejects a request before any processing begins: empty
// upload, missing filename, or bytes that are not a PDF.
var ErrInvalidDocument = errors.New("invalid document")

// PageSource is a finite lazy sequence of rendered pages, in page order.
type PageSource interface {
	Next() (*raster.Page, error)
	Close() error
}

// Opener parses document bytes into a PageSource at the given DPI.
type Opener func(data []byte, dpi int) (PageSource, error)

// Extractor produces structured metadata for one page image.
type Extractor interface {
	ExtractPage(ctx context.Context, pngData []byte) (*vision.PageMetadata, json.RawMessage, error)
}

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// PageStore persists page records.
type PageStore interface {
	Upsert(ctx context.Context, record *store.PageRecord) error
}

// AssetStore persists the source document for serving.
type AssetStore interface {
	Save(hash, originalName string, data []byte) (assets.Asset, error)
}

// Result reports the outcome of one document ingestion. On page-level
// failure, PagesIndexed counts the pages committed before the failure:
// partial ingestion is a legitimate terminal outcome, not something to roll
// back, because re-ingesting the same bytes is idempotent.
type Result struct {
	DocumentID   string `json:"document_id"`
	PagesIndexed int    `json:"pages_indexed"`
	Path         string `json:"path"`
}

// Config holds ingestion configuration.
type Config struct {
	// DPI is the required render resolution for page rasterization.
	DPI int
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.DPI <= 0 {
		return fmt.Errorf("invalid configuration: dpi must be positive")
	}
	return nil
}

// Service is the ingestion orchestrator.
type Service struct {
	open      Opener
	extractor Extractor
	embedder  Embedder
	pages     PageStore
	assets    AssetStore
	config    Config
	logger    *zap.Logger
}

// NewService creates the ingestion orchestrator. A nil opener defaults to the
// PDF rasterizer.
func NewService(open Opener, extractor Extractor, embedder Embedder, pages PageStore, assetStore AssetStore, config Config, logger *zap.Logger) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if extractor == nil || embedder == nil || pages == nil || assetStore == nil {
		return nil, fmt.Errorf("extractor, embedder, page store and asset store are required")
	}
	if open == nil {
		open = func(data []byte, dpi int) (PageSource, error) {
			return raster.Open(data, dpi)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		open:      open,
		extractor: extractor,
		embedder:  embedder,
		pages:     pages,
		assets:    assetStore,
		config:    config,
		logger:    logger,
	}, nil
}

// IngestDocument indexes every page of one document, strictly sequentially
// and in page order: one page's full extract, embed, store cycle completes
// before the next begins, which bounds external-API load and keeps ordering
// trivial.
//
// A failure on any page aborts the remaining pages; pages already upserted
// stay committed and are counted in the returned Result even when err is
// non-nil.
func (s *Service) IngestDocument(ctx context.Context, data []byte, filename string) (Result, error) {
	if err := validateUpload(data, filename); err != nil {
		return Result{}, err
	}

	hash := identity.HashBytes(data)
	result := Result{DocumentID: hash}

	// Parse before any side effect: malformed bytes must abort the whole
	// document with nothing persisted.
	doc, err := s.open(data, s.config.DPI)
	if err != nil {
		return result, err
	}
	defer doc.Close()

	asset, err := s.assets.Save(hash, filename, data)
	if err != nil {
		return result, fmt.Errorf("storing document asset: %w", err)
	}
	result.Path = asset.ServePath

	log := s.logger.With(
		zap.String("document", filename),
		zap.String("hash", hash),
	)

	for {
		page, err := doc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, err
		}

		if err := s.ingestPage(ctx, page, hash, filename, asset.ServePath); err != nil {
			return result, fmt.Errorf("page %d: %w", page.Number, err)
		}
		result.PagesIndexed++

		log.Info("indexed page",
			zap.Int("page", page.Number),
			zap.Int("width", page.Width),
			zap.Int("height", page.Height),
		)
	}

	return result, nil
}

// ingestPage runs one page through extract, synthesize, embed, upsert.
func (s *Service) ingestPage(ctx context.Context, page *raster.Page, hash, filename, servePath string) error {
	meta, rawMeta, err := s.extractor.ExtractPage(ctx, page.PNG)
	if err != nil {
		return err
	}

	text := vision.BuildEmbeddingText(meta, filename)
	vector, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		return err
	}

	record := &store.PageRecord{
		ID:               identity.PageID(hash, page.Number),
		DocumentFilename: filename,
		DocumentPath:     servePath,
		PageNumber:       page.Number,
		Width:            page.Width,
		Height:           page.Height,
		SizeBytes:        int64(len(page.PNG)),
		Caption:          meta.Caption,
		Keywords:         meta.Keywords(),
		RawMetadata:      rawMeta,
		Embedding:        vector,
	}

	return s.pages.Upsert(ctx, record)
}

func validateUpload(data []byte, filename string) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("%w: filename required", ErrInvalidDocument)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty upload", ErrInvalidDocument)
	}
	if !looksLikePDF(data) {
		return fmt.Errorf("%w: %s is not a PDF", ErrInvalidDocument, filename)
	}
	return nil
}

// looksLikePDF sniffs for the PDF header. The spec for PDF allows junk ahead
// of the magic within the first kilobyte, and scanners commonly emit that.
func looksLikePDF(data []byte) bool {
	window := data
	if len(window) > 1024 {
		window = window[:1024]
	}
	return bytes.Contains(window, []byte("%PDF-"))
}
