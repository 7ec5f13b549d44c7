// Package http provides the HTTP API for pagesift.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pagesift/pagesift/internal/embeddings"
	"github.com/pagesift/pagesift/internal/ingest"
	"github.com/pagesift/pagesift/internal/logging"
	"github.com/pagesift/pagesift/internal/raster"
	"github.com/pagesift/pagesift/internal/search"
	"github.com/pagesift/pagesift/internal/store"
	"github.com/pagesift/pagesift/internal/vision"
)

// Ingestor indexes one uploaded document.
type Ingestor interface {
	IngestDocument(ctx context.Context, data []byte, filename string) (ingest.Result, error)
}

// Searcher answers free-text queries.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]search.Result, error)
}

// PageLister lists stored page records.
type PageLister interface {
	ListExisting(ctx context.Context, existsFn store.ExistsFunc) ([]store.PageRecord, error)
}

// Cleaner removes orphaned index entries.
type Cleaner interface {
	CleanOrphans(ctx context.Context) ([]string, error)
}

// AssetFS exposes the document asset store to the server.
type AssetFS interface {
	Dir() string
	ServePrefix() string
	Exists(servePath string) bool
}

// Config holds HTTP server configuration.
type Config struct {
	Host           string
	Port           int
	MaxUploadBytes int64
}

// Server provides HTTP endpoints for pagesift.
type Server struct {
	echo     *echo.Echo
	ingestor Ingestor
	searcher Searcher
	pages    PageLister
	cleaner  Cleaner
	assets   AssetFS
	metrics  *Metrics
	logger   *zap.Logger
	config   *Config
}

// NewServer creates a new HTTP server. A nil registry falls back to the
// default Prometheus registry.
func NewServer(ingestor Ingestor, searcher Searcher, pages PageLister, cleaner Cleaner, assets AssetFS, registry *prometheus.Registry, logger *zap.Logger, cfg *Config) (*Server, error) {
	if ingestor == nil || searcher == nil || pages == nil || cleaner == nil || assets == nil {
		return nil, fmt.Errorf("all services are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:           "localhost",
			Port:           8080,
			MaxUploadBytes: 100 << 20,
		}
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		ingestor: ingestor,
		searcher: searcher,
		pages:    pages,
		cleaner:  cleaner,
		assets:   assets,
		metrics:  NewMetrics(registry),
		logger:   logger,
		config:   cfg,
	}

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger())

	s.registerRoutes(registry)

	return s, nil
}

// requestLogger logs every request and feeds the duration histogram.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			duration := time.Since(start)

			status := c.Response().Status
			s.metrics.RequestDuration.WithLabelValues(
				c.Request().Method, c.Path(), strconv.Itoa(status),
			).Observe(duration.Seconds())

			s.logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", status),
				zap.Duration("duration", duration),
				zap.String("request_id", requestID),
			)

			return err
		}
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes(registry *prometheus.Registry) {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Stored documents, addressed by content hash.
	s.echo.Static(s.assets.ServePrefix(), s.assets.Dir())

	v1 := s.echo.Group("/api/v1")
	v1.POST("/documents", s.handleIngest)
	v1.POST("/search", s.handleSearch)
	v1.GET("/pages", s.handlePages)
	v1.POST("/maintenance/cleanup", s.handleCleanup)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleIngest indexes an uploaded PDF. On a partial failure the response
// still reports the pages that made it in, alongside the error.
func (s *Server) handleIngest(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field 'file' is required")
	}
	if fileHeader.Size > s.config.MaxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", s.config.MaxUploadBytes))
	}

	f, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read upload")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.config.MaxUploadBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read upload")
	}
	if int64(len(data)) > s.config.MaxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", s.config.MaxUploadBytes))
	}

	result, err := s.ingestor.IngestDocument(c.Request().Context(), data, fileHeader.Filename)
	s.metrics.PagesIndexed.Add(float64(result.PagesIndexed))
	if err != nil {
		s.metrics.IngestFailures.Inc()
		s.logger.Warn("ingestion failed",
			zap.String("document", fileHeader.Filename),
			zap.Int("pages_indexed", result.PagesIndexed),
			zap.Error(err),
		)
		return c.JSON(statusForError(err), IngestResponse{
			DocumentID:   result.DocumentID,
			PagesIndexed: result.PagesIndexed,
			Path:         result.Path,
			Error:        err.Error(),
		})
	}

	s.metrics.DocumentsIngested.Inc()
	return c.JSON(http.StatusCreated, IngestResponse{
		DocumentID:   result.DocumentID,
		PagesIndexed: result.PagesIndexed,
		Path:         result.Path,
	})
}

// handleSearch answers a semantic query over indexed pages.
func (s *Server) handleSearch(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	results, err := s.searcher.Search(c.Request().Context(), req.Query, req.K)
	if err != nil {
		s.logger.Warn("search failed", zap.Error(err))
		return echo.NewHTTPError(statusForError(err), err.Error())
	}

	s.metrics.SearchesServed.Inc()
	return c.JSON(http.StatusOK, SearchResponse{Results: results})
}

// handlePages lists indexed pages whose source document is still available.
func (s *Server) handlePages(c echo.Context) error {
	records, err := s.pages.ListExisting(c.Request().Context(), func(_, path string) bool {
		return s.assets.Exists(path)
	})
	if err != nil {
		s.logger.Error("listing pages failed", zap.Error(err))
		return echo.NewHTTPError(statusForError(err), err.Error())
	}

	pages := make([]PageSummary, len(records))
	for i, r := range records {
		pages[i] = PageSummary{
			ID:         r.ID,
			Filename:   r.DocumentFilename,
			PageNumber: r.PageNumber,
			Caption:    r.Caption,
			Keywords:   r.Keywords,
			Path:       r.DocumentPath,
			CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		}
	}

	return c.JSON(http.StatusOK, PagesResponse{Pages: pages, Total: len(pages)})
}

// handleCleanup removes index entries whose documents are gone.
func (s *Server) handleCleanup(c echo.Context) error {
	removed, err := s.cleaner.CleanOrphans(c.Request().Context())
	if err != nil {
		s.logger.Error("cleanup failed", zap.Error(err))
		return echo.NewHTTPError(statusForError(err), err.Error())
	}

	s.metrics.OrphansRemoved.Add(float64(len(removed)))
	return c.JSON(http.StatusOK, CleanupResponse{Removed: removed})
}

// statusForError maps service errors onto HTTP status codes. Upstream model
// failures are gateway errors, not internal ones, so operators can tell the
// two apart at the edge.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ingest.ErrInvalidDocument):
		return http.StatusBadRequest
	case errors.Is(err, raster.ErrRasterize):
		return http.StatusUnprocessableEntity
	case errors.Is(err, vision.ErrService), errors.Is(err, embeddings.ErrService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
