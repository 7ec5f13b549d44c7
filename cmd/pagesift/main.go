// Pagesift is a semantic page index for PDF documents.
//
// This binary starts the pagesift HTTP server with full service
// initialization: Qdrant, the vision extractor, the embedding service, the
// asset store, and the ingestion and search pipelines.
//
// Usage:
//
//	# Start server with defaults
//	pagesift
//
//	# Load a YAML config file
//	pagesift -config /etc/pagesift/config.yaml
//
//	# Configure via environment
//	PAGESIFT_SERVER_PORT=9090 PAGESIFT_QDRANT_HOST=qdrant.internal pagesift
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pagesift/pagesift/internal/assets"
	"github.com/pagesift/pagesift/internal/config"
	"github.com/pagesift/pagesift/internal/embeddings"
	httpserver "github.com/pagesift/pagesift/internal/http"
	"github.com/pagesift/pagesift/internal/ingest"
	"github.com/pagesift/pagesift/internal/logging"
	"github.com/pagesift/pagesift/internal/maintenance"
	"github.com/pagesift/pagesift/internal/qdrant"
	"github.com/pagesift/pagesift/internal/search"
	"github.com/pagesift/pagesift/internal/store"
	"github.com/pagesift/pagesift/internal/vision"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  pagesift           Start the pagesift server\n")
			fmt.Fprintf(os.Stderr, "  pagesift version   Show version information\n")
			os.Exit(1)
		}
	}

	// A local .env is a development convenience; absence is normal.
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("pagesift\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the pagesift server and blocks until context is cancelled.
//
// This function initializes all dependencies and services:
//  1. Loads and validates configuration
//  2. Initializes the logger
//  3. Connects to Qdrant and ensures the page collection exists
//  4. Creates the vision, embedding and asset services
//  5. Wires the ingestion, search and maintenance pipelines
//  6. Starts the HTTP server
//  7. Performs graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logging.Sync(logger)
	}()

	logger.Info("starting pagesift",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()),
	)

	qdrantClient, err := qdrant.NewGRPCClient(&qdrant.ClientConfig{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		UseTLS: cfg.Qdrant.UseTLS,
		APIKey: cfg.Qdrant.APIKey.Value(),
	}, logger)
	if err != nil {
		return fmt.Errorf("connecting to qdrant: %w", err)
	}
	defer qdrantClient.Close()

	logger.Info("connected to qdrant",
		zap.String("host", cfg.Qdrant.Host),
		zap.Int("port", cfg.Qdrant.Port),
	)

	pageStore, err := store.NewService(qdrantClient, store.Config{
		Collection: cfg.Store.Collection,
		Dimension:  cfg.Embedding.Dimension,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating page store: %w", err)
	}

	if err := pageStore.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensuring page collection: %w", err)
	}

	logger.Info("page collection ready",
		zap.String("collection", cfg.Store.Collection),
		zap.Int("dimension", cfg.Embedding.Dimension),
	)

	extractor, err := vision.NewExtractor(vision.Config{
		BaseURL: cfg.Vision.BaseURL,
		Model:   cfg.Vision.Model,
		APIKey:  cfg.Vision.APIKey.Value(),
		Timeout: cfg.Vision.Timeout.Duration(),
	})
	if err != nil {
		return fmt.Errorf("creating vision extractor: %w", err)
	}

	embedder, err := embeddings.NewService(embeddings.Config{
		BaseURL:   cfg.Embedding.BaseURL,
		Model:     cfg.Embedding.Model,
		APIKey:    cfg.Embedding.APIKey.Value(),
		Dimension: cfg.Embedding.Dimension,
		Timeout:   cfg.Embedding.Timeout.Duration(),
	})
	if err != nil {
		return fmt.Errorf("creating embedding service: %w", err)
	}

	logger.Info("model endpoints configured",
		zap.String("vision_model", cfg.Vision.Model),
		zap.String("embedding_model", cfg.Embedding.Model),
	)

	assetStore, err := assets.NewStore(assets.Config{
		Dir:         cfg.Assets.Dir,
		ServePrefix: cfg.Assets.ServePrefix,
	})
	if err != nil {
		return fmt.Errorf("creating asset store: %w", err)
	}

	ingestSvc, err := ingest.NewService(nil, extractor, embedder, pageStore, assetStore,
		ingest.Config{DPI: cfg.Ingest.DPI}, logger)
	if err != nil {
		return fmt.Errorf("creating ingestion service: %w", err)
	}

	searchSvc, err := search.NewService(embedder, pageStore, search.Config{
		DefaultK: cfg.Search.DefaultK,
		MaxK:     cfg.Search.MaxK,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating search service: %w", err)
	}

	maintSvc, err := maintenance.NewService(pageStore, assetStore, logger)
	if err != nil {
		return fmt.Errorf("creating maintenance service: %w", err)
	}

	srv, err := httpserver.NewServer(
		ingestSvc, searchSvc, pageStore, maintSvc, assetStore,
		prometheus.NewRegistry(), logger,
		&httpserver.Config{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
		},
	)
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
